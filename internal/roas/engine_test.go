package roas

import (
	"testing"

	"github.com/angelmondragon/roasapp-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return NewEngine(DefaultAssumptions())
}

func record(spend, revenue, units, ctr float64) ProductRecord {
	return NormalizeManual(ManualFigures{
		ProductID: "SKU-1",
		Name:      "Test product",
		Spend:     spend,
		Revenue:   revenue,
		UnitsSold: units,
		CTR:       ctr,
	})
}

func TestEconomicsScenario(t *testing.T) {
	profile := CostProfile{ProductCost: 50000, FeePct: 0.05, AdditionalCost: 1000, TargetProfitPct: 0.10}
	econ := Economics(100000, profile)

	assert.InDelta(t, 56000, econ.TotalUnitCost, 1e-9)
	assert.InDelta(t, 44000, econ.GrossProfitPerUnit, 1e-9)
	assert.InDelta(t, 10000, econ.TargetProfitPerUnit, 1e-9)
	assert.InDelta(t, 34000, econ.MaxAdSpendPerUnit, 1e-9)

	be, ok := econ.BreakEven.Value()
	require.True(t, ok)
	assert.InDelta(t, 2.2727, be, 1e-4)
	target, ok := econ.Target.Value()
	require.True(t, ok)
	assert.InDelta(t, 2.9412, target, 1e-4)
}

func TestEconomicsScenarioWithoutAdditionalCost(t *testing.T) {
	profile := CostProfile{ProductCost: 50000, FeePct: 0.05, TargetProfitPct: 0.10}
	econ := Economics(100000, profile)

	assert.InDelta(t, 55000, econ.TotalUnitCost, 1e-9)
	assert.InDelta(t, 45000, econ.GrossProfitPerUnit, 1e-9)
	assert.InDelta(t, 35000, econ.MaxAdSpendPerUnit, 1e-9)
	be, _ := econ.BreakEven.Value()
	assert.InDelta(t, 2.22, be, 0.005)
	target, _ := econ.Target.Value()
	assert.InDelta(t, 2.857, target, 0.001)
}

func TestEconomicsUnprofitablePriceIsUnbounded(t *testing.T) {
	econ := Economics(10000, CostProfile{ProductCost: 12000, FeePct: 0.05, AdditionalCost: 1000, TargetProfitPct: 0.1})
	assert.False(t, econ.BreakEven.IsFinite())
	assert.False(t, econ.Target.IsFinite())
	assert.Equal(t, NotApplicable, econ.BreakEven.Display())
	assert.Equal(t, RatioCap, econ.BreakEven.Capped())
}

func TestRecommendTiers(t *testing.T) {
	engine := newTestEngine()

	cases := []struct {
		name      string
		rec       ProductRecord
		unitPrice float64
		tag       enums.RecommendationTag
		action    string
		optimal   string
		budget    string
	}{
		{
			name:    "excellent",
			rec:     record(200000, 1000000, 10, 0.03),
			tag:     enums.RecommendationTagExcellent,
			action:  "MAXIMIZE BUDGET",
			optimal: "50.0",
			budget:  "Rp600.000",
		},
		{
			name:      "good",
			rec:       record(400000, 1000000, 10, 0.03),
			unitPrice: 60000,
			tag:       enums.RecommendationTagGood,
			action:    "RAISE BUDGET GRADUALLY",
			optimal:   "3.0",
			budget:    "Rp600.000",
		},
		{
			name:    "acceptable",
			rec:     record(400000, 1000000, 10, 0.03),
			tag:     enums.RecommendationTagAcceptable,
			action:  "KEEP & OPTIMIZE CONTENT/TARGETING/PRICE",
			optimal: "2.6",
			budget:  "Rp400.000",
		},
		{
			name:    "losing with sales",
			rec:     record(200000, 300000, 3, 0.03),
			tag:     enums.RecommendationTagLosing,
			action:  "LOWER BUDGET / OPTIMIZE HARD / PAUSE AD",
			optimal: "2.5",
			budget:  "Rp60.000",
		},
		{
			name:      "low ctr without sales",
			rec:       record(100000, 0, 0, 0.005),
			unitPrice: 100000,
			tag:       enums.RecommendationTagLosing,
			action:    "PAUSE & REPLACE CREATIVE/VISUAL/TITLE",
			optimal:   NotApplicable,
			budget:    NotApplicable,
		},
		{
			name:      "clicks without sales",
			rec:       record(100000, 0, 0, 0.02),
			unitPrice: 100000,
			tag:       enums.RecommendationTagLosing,
			action:    "PAUSE & OPTIMIZE PRICE/PROMO/LISTING",
			optimal:   NotApplicable,
			budget:    NotApplicable,
		},
		{
			name:    "sales without spend",
			rec:     record(0, 500000, 5, 0.02),
			tag:     enums.RecommendationTagNeutral,
			action:  "START ADVERTISING / CHECK DATA",
			optimal: NotApplicable,
			budget:  NotApplicable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := engine.Recommend(tc.rec, nil, tc.unitPrice)
			assert.Equal(t, tc.tag, got.Tag)
			assert.Equal(t, tc.action, got.Action)
			assert.Equal(t, tc.optimal, got.OptimalRatio)
			assert.Equal(t, tc.budget, got.DailyBudget)
			assert.NotEmpty(t, got.Explanation)
		})
	}
}

func TestRecommendZeroPriceShortCircuits(t *testing.T) {
	engine := newTestEngine()

	spendOnly := engine.Recommend(record(50000, 0, 0, 0.02), nil, 0)
	assert.Equal(t, enums.RecommendationTagDefault, spendOnly.Tag)
	assert.Equal(t, NotApplicable, spendOnly.OptimalRatio)
	assert.Equal(t, NotApplicable, spendOnly.DailyBudget)
	assert.False(t, spendOnly.BreakEven.IsFinite())
	assert.Contains(t, spendOnly.Explanation, "not enough ad data")

	withRevenue := engine.Recommend(record(50000, 250000, 0, 0.02), nil, 0)
	assert.Equal(t, enums.RecommendationTagDefault, withRevenue.Tag)
	assert.Contains(t, withRevenue.Explanation, "price cannot be computed")
}

func TestRecommendSpendAndRevenueZeroIsNeutral(t *testing.T) {
	got := newTestEngine().Recommend(NormalizeManual(ManualFigures{}), nil, 0)
	assert.Equal(t, enums.RecommendationTagNeutral, got.Tag)
	assert.Equal(t, "START ADVERTISING / CHECK DATA", got.Action)
	assert.Equal(t, NotApplicable, got.OptimalRatio)
	assert.Equal(t, NotApplicable, got.DailyBudget)
	assert.Contains(t, got.Explanation, "not enough ad activity")
}

func TestRecommendZeroActivityWithOverridesIsDefault(t *testing.T) {
	cost := 30000.0
	got := newTestEngine().Recommend(NormalizeManual(ManualFigures{}), &CostOverrides{ProductCost: &cost}, 0)
	assert.Equal(t, enums.RecommendationTagDefault, got.Tag)
	assert.Contains(t, got.Explanation, "price cannot be computed")
}

func TestRecommendExplanationRestatesFigures(t *testing.T) {
	engine := newTestEngine()
	cases := []struct {
		name      string
		rec       ProductRecord
		unitPrice float64
		tag       enums.RecommendationTag
	}{
		{name: "excellent", rec: record(200000, 1000000, 10, 0.03), tag: enums.RecommendationTagExcellent},
		{name: "good", rec: record(400000, 1000000, 10, 0.03), unitPrice: 60000, tag: enums.RecommendationTagGood},
		{name: "acceptable", rec: record(400000, 1000000, 10, 0.03), tag: enums.RecommendationTagAcceptable},
		{name: "losing with sales", rec: record(200000, 300000, 3, 0.03), tag: enums.RecommendationTagLosing},
		{name: "low ctr without sales", rec: record(100000, 0, 0, 0.005), unitPrice: 100000, tag: enums.RecommendationTagLosing},
		{name: "clicks without sales", rec: record(100000, 0, 0, 0.02), unitPrice: 100000, tag: enums.RecommendationTagLosing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := engine.Recommend(tc.rec, nil, tc.unitPrice)
			require.Equal(t, tc.tag, got.Tag)
			for _, fact := range []string{
				FormatRatio(tc.rec.ActualRatio, 2),
				breakEvenDisplay(got.BreakEven),
				positiveRupiah(tc.rec.Spend),
				positiveRupiah(tc.rec.Revenue),
				FormatUnits(tc.rec.UnitsSold),
			} {
				assert.Contains(t, got.Explanation, fact)
			}
		})
	}
}

func TestRecommendLowCTRScenario(t *testing.T) {
	got := newTestEngine().Recommend(record(100000, 0, 0, 0.005), nil, 100000)
	assert.Equal(t, enums.RecommendationTagLosing, got.Tag)
	assert.Equal(t, "PAUSE & REPLACE CREATIVE/VISUAL/TITLE", got.Action)
	assert.Contains(t, got.Explanation, "0.50%")
}

func TestRecommendIsIdempotent(t *testing.T) {
	engine := newTestEngine()
	cost := 30000.0
	overrides := &CostOverrides{ProductCost: &cost}
	rec := record(150000, 900000, 9, 0.04)

	first := engine.Recommend(rec, overrides, 0)
	second := engine.Recommend(rec, overrides, 0)
	assert.Equal(t, first, second)
}

func TestRecommendRespectsRatioCap(t *testing.T) {
	engine := newTestEngine()
	for _, rec := range []ProductRecord{
		record(1000, 10000000, 100, 0.05),
		record(100000, 100000, 1, 0.05),
		record(10000, 5000000, 1, 0.05),
	} {
		got := engine.Recommend(rec, nil, 0)
		if optimal, ok := got.Optimal(); ok {
			assert.LessOrEqual(t, optimal, RatioCap)
		}
		assert.LessOrEqual(t, got.BreakEven.Capped(), RatioCap)
		assert.LessOrEqual(t, got.Target.Capped(), RatioCap)
	}
}

func TestRecommendLosingWithUnboundedBreakEvenTargetsCap(t *testing.T) {
	cost := 200000.0
	got := newTestEngine().Recommend(record(100000, 300000, 3, 0.03), &CostOverrides{ProductCost: &cost}, 0)
	assert.Equal(t, enums.RecommendationTagLosing, got.Tag)
	assert.Equal(t, "50.0", got.OptimalRatio)
	assert.Contains(t, got.Explanation, "unbounded")
}

func TestBreakEvenMonotonicInProductCost(t *testing.T) {
	prev := 0.0
	for cost := 0.0; cost <= 100000; cost += 5000 {
		econ := Economics(100000, CostProfile{ProductCost: cost, FeePct: 0.05, AdditionalCost: 1000, TargetProfitPct: 0.1})
		be, finite := econ.BreakEven.Value()
		if !finite {
			prev = RatioCap * 1000
			continue
		}
		require.GreaterOrEqual(t, be, prev, "break-even decreased at cost %.0f", cost)
		prev = be
	}
}

func TestRecommendProducesExactlyOneKnownTag(t *testing.T) {
	engine := newTestEngine()
	values := []float64{0, 1, 5000, 100000, 2500000}
	for _, spend := range values {
		for _, revenue := range values {
			for _, units := range []float64{0, 1, 25} {
				for _, price := range []float64{0, 75000} {
					got := engine.Recommend(record(spend, revenue, units, 0.01), nil, price)
					require.True(t, got.Tag.IsValid(), "unexpected tag %q", got.Tag)
				}
			}
		}
	}
}

func TestResolvePrefersOverrides(t *testing.T) {
	fee := 0.02
	extra := 0.0
	profile := DefaultAssumptions().Resolve(80000, &CostOverrides{FeePct: &fee, AdditionalCost: &extra})
	assert.InDelta(t, 40000, profile.ProductCost, 1e-9)
	assert.InDelta(t, 0.02, profile.FeePct, 1e-9)
	assert.InDelta(t, 0, profile.AdditionalCost, 1e-9)
	assert.InDelta(t, 0.10, profile.TargetProfitPct, 1e-9)
}
