package roas

import (
	"cmp"
	"math"
	"slices"

	"github.com/angelmondragon/roasapp-backend/pkg/enums"
)

const (
	TrafficVeryLow       = "very low (very efficient)"
	TrafficLow           = "low (efficient)"
	TrafficMedium        = "medium (inefficient)"
	TrafficTight         = "tight (losing)"
	TrafficVeryTight     = "very tight (heavy loss)"
	TrafficNotAdjustable = "not adjustable"

	StatusOnTarget      = "on target"
	StatusMarginal      = "marginal"
	StatusLosing        = "losing"
	StatusUnboundedLoss = "unbounded loss"

	capTolerance = 0.01
)

// SimulationInput describes the unit economics to project at each candidate ratio.
// When FixedSpend is set, spend stays constant and revenue scales with the ratio instead, while
// product costs remain those of BaseUnits.
type SimulationInput struct {
	UnitPrice       float64
	BaseUnits       float64
	TotalUnitCost   float64
	TargetProfitPct float64
	BreakEven       Ratio
	Candidates      []float64
	FixedSpend      *float64
}

// SimulationRow is the projected outcome at one candidate ratio. Nil amounts are unbounded.
type SimulationRow struct {
	Ratio          float64                 `json:"ratio"`
	Spend          *float64                `json:"spend"`
	Revenue        float64                 `json:"revenue"`
	Profit         *float64                `json:"profit"`
	SpendDisplay   string                  `json:"spend_display"`
	RevenueDisplay string                  `json:"revenue_display"`
	ProfitDisplay  string                  `json:"profit_display"`
	Traffic        string                  `json:"traffic"`
	Status         string                  `json:"status"`
	Tag            enums.RecommendationTag `json:"tag"`
}

// BuildSimulation projects every candidate in the order given. Candidates above RatioCap are
// evaluated at the cap and labeled not adjustable.
func BuildSimulation(in SimulationInput) []SimulationRow {
	rows := make([]SimulationRow, 0, len(in.Candidates))
	for _, candidate := range in.Candidates {
		rows = append(rows, simulateRow(in, candidate))
	}
	return rows
}

func simulateRow(in SimulationInput, candidate float64) SimulationRow {
	r := candidate
	if math.IsNaN(r) || math.IsInf(r, 0) {
		r = 0
	}
	overCap := r > RatioCap+capTolerance
	r = math.Min(r, RatioCap)

	var revenue, spend float64
	if in.FixedSpend != nil {
		spend = *in.FixedSpend
		revenue = spend * math.Max(r, 0)
	} else {
		revenue = in.UnitPrice * in.BaseUnits
		switch {
		case r > 0:
			spend = revenue / r
		case revenue == 0:
			spend = 0
		default:
			spend = math.Inf(1)
		}
	}

	row := SimulationRow{
		Ratio:          roundTo(math.Max(r, 0), 2),
		Revenue:        revenue,
		RevenueDisplay: FormatRupiah(revenue),
	}

	if math.IsInf(spend, 1) {
		row.SpendDisplay = NotApplicable
		row.ProfitDisplay = StatusUnboundedLoss
		row.Status = StatusUnboundedLoss
		row.Tag = enums.RecommendationTagLosing
		row.Traffic = TrafficVeryTight
		return row
	}

	// Costs are charged on the observed units even when a fixed spend scales revenue.
	profit := revenue - spend - in.TotalUnitCost*in.BaseUnits
	row.Spend = float64Ptr(spend)
	row.Profit = float64Ptr(profit)
	row.SpendDisplay = FormatRupiah(spend)
	row.ProfitDisplay = FormatRupiah(profit)

	targetProfit := revenue * in.TargetProfitPct
	switch {
	case profit >= targetProfit:
		row.Status = StatusOnTarget
		row.Tag = enums.RecommendationTagGood
	case profit > 0:
		row.Status = StatusMarginal
		row.Tag = enums.RecommendationTagAcceptable
	default:
		row.Status = StatusLosing
		row.Tag = enums.RecommendationTagLosing
	}

	if overCap {
		row.Traffic = TrafficNotAdjustable
	} else {
		row.Traffic = trafficLabel(r, in.BreakEven)
	}
	return row
}

// trafficLabel grades how hard the ad auction has to work at ratio r relative to break-even.
// An unbounded break-even means every positive ratio loses money.
func trafficLabel(r float64, breakEven Ratio) string {
	be, finite := breakEven.Value()
	if !finite {
		if r > 0 {
			return TrafficTight
		}
		return TrafficVeryTight
	}
	if be <= 0 {
		switch {
		case r >= 10:
			return TrafficVeryLow
		case r > 0:
			return TrafficLow
		default:
			return TrafficVeryTight
		}
	}
	switch {
	case r >= be*2:
		return TrafficVeryLow
	case r >= be:
		return TrafficLow
	case r >= be*0.5:
		return TrafficMedium
	case r > 0:
		return TrafficTight
	default:
		return TrafficVeryTight
	}
}

// NormalizeCandidates keeps positive values up to RatioCap, rounds them to two decimals,
// dedupes, sorts descending and truncates to limit (0 keeps everything).
func NormalizeCandidates(values []float64, limit int) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			continue
		}
		rounded := roundTo(v, 2)
		if rounded <= 0 || rounded > RatioCap {
			continue
		}
		out = append(out, rounded)
	}
	slices.SortFunc(out, func(a, b float64) int { return cmp.Compare(b, a) })
	out = slices.Compact(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
