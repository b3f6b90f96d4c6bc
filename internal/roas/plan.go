package roas

import (
	"fmt"
	"math"

	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
)

const (
	planCandidateLimit = 5
	planFallbackBase   = 10.0
	planFloorRatio     = 0.01
)

// PlanInput is the new-ad planner request. Percentages are fractions.
type PlanInput struct {
	ProductCost     float64 `json:"product_cost" validate:"gte=0"`
	UnitPrice       float64 `json:"unit_price" validate:"gt=0"`
	FeePct          float64 `json:"fee_pct" validate:"gte=0"`
	AdditionalCost  float64 `json:"additional_cost" validate:"gte=0"`
	TargetProfitPct float64 `json:"target_profit_pct" validate:"gte=0"`
	EstimatedUnits  float64 `json:"estimated_units"`
}

// PlanResult is what a seller needs to configure a brand new ad.
type PlanResult struct {
	Headline        string          `json:"headline"`
	Notes           []string        `json:"notes"`
	Warnings        []string        `json:"warnings"`
	Economics       UnitEconomics   `json:"economics"`
	EstimatedUnits  float64         `json:"estimated_units"`
	EstimatedProfit *float64        `json:"estimated_profit"`
	Simulation      []SimulationRow `json:"simulation"`
}

func (in PlanInput) validate() error {
	fields := map[string]string{}
	if in.ProductCost < 0 || math.IsNaN(in.ProductCost) {
		fields["product_cost"] = "must be 0 or more"
	}
	if !(in.UnitPrice > 0) || math.IsInf(in.UnitPrice, 0) {
		fields["unit_price"] = "must be greater than 0"
	}
	if in.FeePct < 0 || math.IsNaN(in.FeePct) {
		fields["fee_pct"] = "must be 0 or more"
	}
	if in.AdditionalCost < 0 || math.IsNaN(in.AdditionalCost) {
		fields["additional_cost"] = "must be 0 or more"
	}
	if in.TargetProfitPct < 0 || math.IsNaN(in.TargetProfitPct) {
		fields["target_profit_pct"] = "must be 0 or more"
	}
	if len(fields) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid plan input").WithDetails(fields)
}

// Plan computes break-even and target ratios for an ad that has not run yet and projects a
// simulation table around them.
func Plan(in PlanInput) (PlanResult, error) {
	if err := in.validate(); err != nil {
		return PlanResult{}, err
	}

	units := in.EstimatedUnits
	if !(units > 0) || math.IsInf(units, 0) {
		units = 1
	}

	profile := CostProfile{
		ProductCost:     in.ProductCost,
		FeePct:          in.FeePct,
		AdditionalCost:  in.AdditionalCost,
		TargetProfitPct: in.TargetProfitPct,
	}
	econ := Economics(in.UnitPrice, profile)

	res := PlanResult{
		Notes:          []string{},
		Warnings:       []string{},
		Economics:      econ,
		EstimatedUnits: units,
	}

	if in.UnitPrice <= econ.TotalUnitCost && in.TargetProfitPct > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"The selling price (%s) is too low or the costs (%s) are too high to reach a %s profit. This product loses money "+
				"even without ads.",
			FormatRupiah(in.UnitPrice), FormatRupiah(econ.TotalUnitCost), FormatPercent(in.TargetProfitPct)))
	}

	target, targetFinite := econ.Target.Value()
	switch {
	case !targetFinite:
		res.Headline = "Target not achievable: this product cannot reach the profit target at the current price and costs. " +
			"Consider raising the price, lowering costs or lowering the profit target."
	case target > RatioCap:
		res.Headline = fmt.Sprintf("Optimal target ROAS: %s (marketplace maximum). Margins are very high, so focus on "+
			"growing sales volume.", FormatRatio(RatioCap, 2))
	default:
		res.Headline = fmt.Sprintf("Optimal target ROAS for a %s profit: %s", FormatPercent(in.TargetProfitPct), FormatRatio(target, 2))
	}

	beNote := NotApplicable
	if econ.BreakEven.IsFinite() {
		beNote = econ.BreakEven.Display()
	}
	res.Notes = append(res.Notes, fmt.Sprintf(
		"Break-even ROAS: %s. Below this ROAS the ad loses money.", beNote))
	if econ.MaxAdSpendPerUnit > 0 {
		res.Notes = append(res.Notes, fmt.Sprintf("Maximum ad spend per unit sold for a %s profit: %s",
			FormatPercent(in.TargetProfitPct), FormatRupiah(econ.MaxAdSpendPerUnit)))
	} else {
		res.Notes = append(res.Notes, "Maximum ad spend per unit sold: no profit is possible at this target. Product costs "+
			"already meet or exceed the selling price.")
	}
	if targetFinite {
		revenue := in.UnitPrice * units
		profit := revenue - revenue/target - econ.TotalUnitCost*units
		res.EstimatedProfit = float64Ptr(profit)
		res.Notes = append(res.Notes, fmt.Sprintf("Estimated total profit at the target ROAS for %s: %s",
			FormatUnits(units), FormatRupiah(profit)))
	}

	res.Simulation = BuildSimulation(SimulationInput{
		UnitPrice:       in.UnitPrice,
		BaseUnits:       units,
		TotalUnitCost:   econ.TotalUnitCost,
		TargetProfitPct: in.TargetProfitPct,
		BreakEven:       econ.BreakEven,
		Candidates:      planCandidates(econ),
	})
	return res, nil
}

func planCandidates(econ UnitEconomics) []float64 {
	var values []float64
	target, targetFinite := econ.Target.Value()
	be, beFinite := econ.BreakEven.Value()

	if targetFinite && target > 0 {
		values = append(values, math.Min(target, RatioCap))
	}
	if beFinite && be > 0 && (!targetFinite || be != target) {
		values = append(values, math.Min(be, RatioCap))
	} else if !beFinite {
		values = append(values, planFloorRatio)
	}
	values = append(values, RatioCap)

	base := planFallbackBase
	switch {
	case targetFinite && target > 0:
		base = target
	case beFinite && be > 0:
		base = be
	}
	values = append(values, base, base+5, base+10, math.Max(1, base-5), math.Max(1, base-10))
	return NormalizeCandidates(values, planCandidateLimit)
}
