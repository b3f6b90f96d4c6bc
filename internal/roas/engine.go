package roas

import (
	"fmt"
	"math"

	"github.com/angelmondragon/roasapp-backend/pkg/enums"
)

const lowCTRThreshold = 0.01

// Recommendation is the engine verdict for one product.
type Recommendation struct {
	Tag          enums.RecommendationTag `json:"tag"`
	Analysis     string                  `json:"analysis"`
	Action       string                  `json:"action"`
	OptimalRatio string                  `json:"optimal_ratio"`
	DailyBudget  string                  `json:"daily_budget"`
	Explanation  string                  `json:"explanation"`
	BreakEven    Ratio                   `json:"break_even_ratio"`
	Target       Ratio                   `json:"target_ratio"`

	optimal Ratio
}

// Optimal returns the recommended target ROAS as a number when one applies.
func (r Recommendation) Optimal() (float64, bool) {
	return r.optimal.Value()
}

// Engine classifies products against break-even and target-profit thresholds.
type Engine struct {
	assumptions Assumptions
}

func NewEngine(assumptions Assumptions) *Engine {
	return &Engine{assumptions: assumptions}
}

// Assumptions exposes the defaults the engine resolves unset costs from.
func (e *Engine) Assumptions() Assumptions {
	return e.assumptions
}

// Recommend evaluates a record. A unitPrice > 0 takes precedence over the price derived from
// revenue and units; overrides may be nil.
func (e *Engine) Recommend(rec ProductRecord, overrides *CostOverrides, unitPrice float64) Recommendation {
	price := unitPrice
	if price <= 0 {
		price = rec.UnitPrice()
	}

	if rec.Spend <= 0 && rec.Revenue <= 0 && rec.UnitsSold <= 0 && !overrides.any() {
		return noActivity(Recommendation{BreakEven: Unbounded(), Target: Unbounded(), optimal: Unbounded()})
	}

	if price <= 0 {
		out := Recommendation{
			Tag:          enums.RecommendationTagDefault,
			Analysis:     "No data / no ad activity",
			Action:       "NO RECOMMENDATION YET",
			OptimalRatio: NotApplicable,
			DailyBudget:  NotApplicable,
			Explanation: "There is not enough ad data to analyze this product. Make sure revenue, units sold and ad spend " +
				"are filled in, or recalculate the product with its own cost figures.",
			BreakEven: Unbounded(),
			Target:    Unbounded(),
			optimal:   Unbounded(),
		}
		if rec.Revenue > 0 || rec.UnitsSold > 0 || overrides.any() {
			out.Explanation = "The unit price cannot be computed from the given revenue and units sold, or the entered " +
				"price is not valid. Enter a price above 0, or provide both revenue and units sold above 0."
		}
		return out
	}

	profile := e.assumptions.Resolve(price, overrides)
	econ := Economics(price, profile)

	out := Recommendation{
		BreakEven: econ.BreakEven,
		Target:    econ.Target,
		optimal:   Unbounded(),
	}

	facts := explanationFacts{
		actual:    FormatRatio(rec.ActualRatio, 2),
		breakEven: breakEvenDisplay(econ.BreakEven),
		spend:     positiveRupiah(rec.Spend),
		revenue:   positiveRupiah(rec.Revenue),
		units:     FormatUnits(rec.UnitsSold),
		ctr:       FormatRatio(rec.CTR*100, 2) + "%",
		target:    FormatPercent(profile.TargetProfitPct),
	}

	actual := rec.ActualRatio
	if rec.Spend <= 0 || math.IsNaN(actual) || math.IsInf(actual, 0) {
		return noActivity(out)
	}

	netProfit := rec.Revenue - (rec.Spend + econ.TotalUnitCost*rec.UnitsSold)
	targetProfit := rec.Revenue * profile.TargetProfitPct

	switch {
	case econ.Target.ReachedBy(actual):
		out.Tag = enums.RecommendationTagExcellent
		out.Analysis = "Outstanding (very efficient and highly profitable)"
		out.Action = "MAXIMIZE BUDGET"
		out.optimal = Finite(RatioCap)
		out.DailyBudget = FormatRupiah(math.Max(MinDailyBudget, rec.Spend*3))
		out.OptimalRatio = FormatRatio(RatioCap, 1)
		out.Explanation = fmt.Sprintf(
			"This product is extremely efficient with an actual ROAS of %s. Its break-even ROAS is %s and it already beats "+
				"the %s profit target. Ad spend of %s produced %s in revenue from %s sold. Raise the budget aggressively and "+
				"set the target ROAS to %s, the highest the marketplace allows, to push for volume.",
			facts.actual, facts.breakEven, facts.target, facts.spend, facts.revenue, facts.units, out.OptimalRatio)

	case econ.BreakEven.ExceededBy(actual) && netProfit >= targetProfit:
		target, _ := econ.Target.Value()
		out.Tag = enums.RecommendationTagGood
		out.Analysis = "Very good (efficient and on profit target)"
		out.Action = "RAISE BUDGET GRADUALLY"
		out.optimal = Finite(math.Min(RatioCap, math.Max(actual*1.05, target)))
		out.OptimalRatio = FormatRatio(out.optimal.Capped(), 1)
		out.DailyBudget = FormatRupiah(math.Max(MinDailyBudget, rec.Spend*1.5))
		out.Explanation = fmt.Sprintf(
			"Ad performance is very good with an actual ROAS of %s against a break-even ROAS of %s, and the %s profit "+
				"target is met. Revenue of %s came from ad spend of %s with %s sold. Raise the budget step by step while "+
				"monitoring results, and aim for a target ROAS around %s to keep the margin while growing sales.",
			facts.actual, facts.breakEven, facts.target, facts.revenue, facts.spend, facts.units, out.OptimalRatio)

	case econ.BreakEven.ExceededBy(actual):
		breakEven, _ := econ.BreakEven.Value()
		out.Tag = enums.RecommendationTagAcceptable
		out.Analysis = "Fair (profitable, below profit target)"
		out.Action = "KEEP & OPTIMIZE CONTENT/TARGETING/PRICE"
		out.optimal = Finite(math.Min(RatioCap, math.Max(actual*1.05, breakEven*1.1)))
		out.OptimalRatio = FormatRatio(out.optimal.Capped(), 1)
		out.DailyBudget = FormatRupiah(math.Max(MinDailyBudget, rec.Spend*1.0))
		out.Explanation = fmt.Sprintf(
			"The actual ROAS of %s is above the break-even ROAS of %s but short of the %s profit target. Revenue of %s from "+
				"%s sold on ad spend of %s leaves room to improve. Keep the ad running and work on titles, images, audience "+
				"targeting, keywords or pricing to reach a ROAS of about %s.",
			facts.actual, facts.breakEven, facts.target, facts.revenue, facts.units, facts.spend, out.OptimalRatio)

	case actual > 0:
		out.Tag = enums.RecommendationTagLosing
		out.Analysis = "Inefficient (losing money)"
		out.Action = "LOWER BUDGET / OPTIMIZE HARD / PAUSE AD"
		if be, ok := econ.BreakEven.Value(); ok {
			out.optimal = Finite(math.Min(RatioCap, be*1.1))
		} else {
			out.optimal = Finite(RatioCap)
		}
		out.OptimalRatio = FormatRatio(out.optimal.Capped(), 1)
		out.DailyBudget = FormatRupiah(math.Max(MinDailyBudget, rec.Spend*0.3))
		out.Explanation = fmt.Sprintf(
			"The actual ROAS of %s is at or below the break-even ROAS of %s, so this ad is losing money. Ad spend of %s is "+
				"too high for the %s in revenue from %s sold. Cut the budget sharply or pause the ad, then rework targeting, "+
				"bids, creative or the product page. Aim for a ROAS of at least %s to break even.",
			facts.actual, facts.breakEven, facts.spend, facts.revenue, facts.units, out.OptimalRatio)

	case rec.CTR < lowCTRThreshold:
		out.Tag = enums.RecommendationTagLosing
		out.Analysis = "Unattractive ad (low CTR)"
		out.Action = "PAUSE & REPLACE CREATIVE/VISUAL/TITLE"
		out.OptimalRatio = NotApplicable
		out.DailyBudget = NotApplicable
		out.Explanation = fmt.Sprintf(
			"This ad spent %s and brought in %s in revenue from %s sold (ROAS %s, break-even ROAS %s). The very low "+
				"click-through rate of %s shows the ad does not catch buyers' attention. Pause it now and rework the product "+
				"title, main image and video so the ad stands out in search and recommendations.",
			facts.spend, facts.revenue, facts.units, facts.actual, facts.breakEven, facts.ctr)

	default:
		out.Tag = enums.RecommendationTagLosing
		out.Analysis = "Unconvincing product (clicks without conversions)"
		out.Action = "PAUSE & OPTIMIZE PRICE/PROMO/LISTING"
		out.OptimalRatio = NotApplicable
		out.DailyBudget = NotApplicable
		out.Explanation = fmt.Sprintf(
			"The ad gets clicks (CTR %s) for %s in spend but only %s in revenue from %s sold (ROAS %s, break-even ROAS %s). "+
				"Buyers are interested but not convinced once they reach the product page. Pause the ad and improve the "+
				"price, promotions, description, reviews or product media to lift conversion.",
			facts.ctr, facts.spend, facts.revenue, facts.units, facts.actual, facts.breakEven)
	}
	return out
}

// noActivity fills out as the insufficient-data verdict for a product without ad activity.
func noActivity(out Recommendation) Recommendation {
	out.Tag = enums.RecommendationTagNeutral
	out.Analysis = "No data / no ad activity"
	out.Action = "START ADVERTISING / CHECK DATA"
	out.OptimalRatio = NotApplicable
	out.DailyBudget = NotApplicable
	out.Explanation = "There is not enough ad activity to analyze this product. Make sure the ad is running and that " +
		"revenue, units sold and ad spend are filled in. For a brand new ad, use the new-ad planner instead."
	return out
}

type explanationFacts struct {
	actual    string
	breakEven string
	spend     string
	revenue   string
	units     string
	ctr       string
	target    string
}

func breakEvenDisplay(r Ratio) string {
	if !r.IsFinite() {
		return "unbounded"
	}
	return r.Display()
}

func positiveRupiah(v float64) string {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "Rp0"
	}
	return FormatRupiah(v)
}
