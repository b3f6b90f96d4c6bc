package roas

import (
	"fmt"
	"math"

	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
)

const (
	ProfitOnTarget = "on target"
	ProfitThin     = "thin profit"
	ProfitLoss     = "loss"

	manualCandidateLimit = 7
	manualPlaceholderCTR = 0.01
	candidateGap         = 0.05
)

// ManualInput is a running campaign's figures typed in by hand. Unset cost fields use the defaults.
type ManualInput struct {
	Spend     float64        `json:"spend" validate:"gte=0"`
	Revenue   float64        `json:"revenue" validate:"gte=0"`
	UnitsSold float64        `json:"units_sold" validate:"gte=0"`
	Costs     *CostOverrides `json:"costs,omitempty"`
}

// ManualResult is the verdict, actual profit and simulation for a hand-entered campaign.
type ManualResult struct {
	Headline       string          `json:"headline"`
	Record         ProductRecord   `json:"record"`
	Recommendation Recommendation  `json:"recommendation"`
	Economics      UnitEconomics   `json:"economics"`
	NetProfit      float64         `json:"net_profit"`
	ProfitStatus   string          `json:"profit_status"`
	Notes          []string        `json:"notes"`
	Simulation     []SimulationRow `json:"simulation"`
}

func (in ManualInput) validate() error {
	fields := map[string]string{}
	nonNegative := func(name string, v float64) {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			fields[name] = "must be 0 or more"
		}
	}
	nonNegative("spend", in.Spend)
	nonNegative("revenue", in.Revenue)
	nonNegative("units_sold", in.UnitsSold)
	if in.Costs != nil {
		for name, v := range map[string]*float64{
			"costs.product_cost":      in.Costs.ProductCost,
			"costs.fee_pct":           in.Costs.FeePct,
			"costs.additional_cost":   in.Costs.AdditionalCost,
			"costs.target_profit_pct": in.Costs.TargetProfitPct,
		} {
			if v != nil {
				nonNegative(name, *v)
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid campaign figures").WithDetails(fields)
}

// AnalyzeManual runs the engine on hand-entered campaign figures. There is no CTR in the
// form, so a placeholder of 1% keeps the zero-sale branches on the listing advice.
func (e *Engine) AnalyzeManual(in ManualInput) (ManualResult, error) {
	if err := in.validate(); err != nil {
		return ManualResult{}, err
	}

	rec := NormalizeManual(ManualFigures{
		ProductID: "manual",
		Name:      "Manual analysis",
		Spend:     in.Spend,
		Revenue:   in.Revenue,
		UnitsSold: in.UnitsSold,
		CTR:       manualPlaceholderCTR,
	})
	price := rec.UnitPrice()
	reco := e.Recommend(rec, in.Costs, price)

	profile := e.assumptions.Resolve(price, in.Costs)
	econ := Economics(price, profile)

	netProfit := rec.Revenue - rec.Spend - econ.TotalUnitCost*rec.UnitsSold
	status := ProfitLoss
	switch {
	case netProfit >= rec.Revenue*profile.TargetProfitPct:
		status = ProfitOnTarget
	case netProfit > 0:
		status = ProfitThin
	}

	res := ManualResult{
		Headline:       fmt.Sprintf("Optimal target ROAS for this product: %s", reco.OptimalRatio),
		Record:         rec,
		Recommendation: reco,
		Economics:      econ,
		NetProfit:      netProfit,
		ProfitStatus:   status,
	}
	res.Notes = []string{
		"Analysis: " + reco.Analysis,
		"Recommended action: " + reco.Action,
		"Break-even ROAS: " + breakEvenDisplay(econ.BreakEven),
		"Actual ROAS: " + FormatRatio(rec.ActualRatio, 2),
		"Recommended daily budget: " + reco.DailyBudget,
		fmt.Sprintf("Estimated actual net profit: %s (%s)", FormatRupiah(netProfit), status),
		"Details: " + reco.Explanation,
	}
	res.Simulation = BuildSimulation(SimulationInput{
		UnitPrice:       price,
		BaseUnits:       rec.UnitsSold,
		TotalUnitCost:   econ.TotalUnitCost,
		TargetProfitPct: profile.TargetProfitPct,
		BreakEven:       econ.BreakEven,
		Candidates:      manualCandidates(rec.ActualRatio, reco, econ.BreakEven),
	})
	return res, nil
}

// manualCandidates surrounds the actual ROAS with the recommended and break-even ratios plus a
// few context points. When that yields too many rows, the three anchors win.
func manualCandidates(actual float64, reco Recommendation, breakEven Ratio) []float64 {
	optimal, hasOptimal := reco.Optimal()
	be, beFinite := breakEven.Value()

	var values []float64
	if actual > 0 && actual <= RatioCap {
		values = append(values, actual)
	}
	if hasOptimal && optimal > 0 && optimal <= RatioCap && math.Abs(optimal-actual) > candidateGap {
		values = append(values, optimal)
	}
	if beFinite && be > 0 && be <= RatioCap && math.Abs(be-actual) > candidateGap &&
		(!hasOptimal || math.Abs(be-optimal) > candidateGap) {
		values = append(values, be)
	}
	if actual > 0 {
		values = append(values, math.Min(RatioCap, actual*1.2), math.Max(1, actual*0.8))
		if actual > 20 {
			values = append(values, math.Max(1, actual-10))
		}
		if actual < 10 {
			values = append(values, math.Min(RatioCap, actual+10))
		}
	}

	sorted := NormalizeCandidates(values, 0)
	if len(sorted) <= manualCandidateLimit {
		return sorted
	}

	var anchors []float64
	if actual > 0 {
		anchors = append(anchors, actual)
	}
	if hasOptimal {
		anchors = append(anchors, optimal)
	}
	if beFinite && be > 0 {
		anchors = append(anchors, be)
	}
	picked := NormalizeCandidates(anchors, 0)
	for _, v := range sorted {
		if len(picked) >= manualCandidateLimit {
			break
		}
		if !containsRatio(picked, v) {
			picked = append(picked, v)
		}
	}
	return NormalizeCandidates(picked, manualCandidateLimit)
}

func containsRatio(values []float64, v float64) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
