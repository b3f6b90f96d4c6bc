package roas

import "github.com/angelmondragon/roasapp-backend/pkg/config"

// Assumptions are the cost defaults applied when a caller leaves a CostProfile field unset.
type Assumptions struct {
	ProductCostRatio float64 `json:"product_cost_ratio"`
	FeePct           float64 `json:"fee_pct"`
	AdditionalCost   float64 `json:"additional_cost"`
	TargetProfitPct  float64 `json:"target_profit_pct"`
}

// DefaultAssumptions matches the marketplace defaults: 50% product cost, 5% fee, Rp1.000 extra, 10% profit.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		ProductCostRatio: 0.50,
		FeePct:           0.05,
		AdditionalCost:   1000,
		TargetProfitPct:  0.10,
	}
}

// AssumptionsFromConfig lifts the calculator config into engine defaults.
func AssumptionsFromConfig(cfg config.CalculatorConfig) Assumptions {
	return Assumptions{
		ProductCostRatio: cfg.ProductCostRatio,
		FeePct:           cfg.FeePct,
		AdditionalCost:   cfg.AdditionalCost,
		TargetProfitPct:  cfg.TargetProfitPct,
	}
}

// CostOverrides carries any subset of caller-supplied cost values. Fractions, not percents.
type CostOverrides struct {
	ProductCost     *float64 `json:"product_cost,omitempty" validate:"omitempty,gte=0"`
	FeePct          *float64 `json:"fee_pct,omitempty" validate:"omitempty,gte=0"`
	AdditionalCost  *float64 `json:"additional_cost,omitempty" validate:"omitempty,gte=0"`
	TargetProfitPct *float64 `json:"target_profit_pct,omitempty" validate:"omitempty,gte=0"`
}

func (o *CostOverrides) any() bool {
	return o != nil && (o.ProductCost != nil || o.FeePct != nil || o.AdditionalCost != nil || o.TargetProfitPct != nil)
}

// CostProfile is a fully resolved set of per-unit cost inputs.
type CostProfile struct {
	ProductCost     float64 `json:"product_cost"`
	FeePct          float64 `json:"fee_pct"`
	AdditionalCost  float64 `json:"additional_cost"`
	TargetProfitPct float64 `json:"target_profit_pct"`
}

// Resolve fills every unset override from the assumptions. Product cost defaults to a share of unitPrice.
func (a Assumptions) Resolve(unitPrice float64, o *CostOverrides) CostProfile {
	p := CostProfile{
		ProductCost:     a.ProductCostRatio * unitPrice,
		FeePct:          a.FeePct,
		AdditionalCost:  a.AdditionalCost,
		TargetProfitPct: a.TargetProfitPct,
	}
	if o == nil {
		return p
	}
	if o.ProductCost != nil {
		p.ProductCost = *o.ProductCost
	}
	if o.FeePct != nil {
		p.FeePct = *o.FeePct
	}
	if o.AdditionalCost != nil {
		p.AdditionalCost = *o.AdditionalCost
	}
	if o.TargetProfitPct != nil {
		p.TargetProfitPct = *o.TargetProfitPct
	}
	return p
}

// UnitEconomics holds the per-unit figures every calculator mode derives from price and cost.
type UnitEconomics struct {
	UnitPrice           float64 `json:"unit_price"`
	TotalUnitCost       float64 `json:"total_unit_cost"`
	GrossProfitPerUnit  float64 `json:"gross_profit_per_unit"`
	TargetProfitPerUnit float64 `json:"target_profit_per_unit"`
	MaxAdSpendPerUnit   float64 `json:"max_ad_spend_per_unit"`
	BreakEven           Ratio   `json:"break_even_ratio"`
	Target              Ratio   `json:"target_ratio"`
}

// Economics runs the break-even and target-profit arithmetic for one unit.
func Economics(unitPrice float64, p CostProfile) UnitEconomics {
	total := p.ProductCost + unitPrice*p.FeePct + p.AdditionalCost
	gross := unitPrice - total
	targetProfit := unitPrice * p.TargetProfitPct
	maxAd := unitPrice - (total + targetProfit)
	return UnitEconomics{
		UnitPrice:           unitPrice,
		TotalUnitCost:       total,
		GrossProfitPerUnit:  gross,
		TargetProfitPerUnit: targetProfit,
		MaxAdSpendPerUnit:   maxAd,
		BreakEven:           ratioOf(unitPrice, gross),
		Target:              ratioOf(unitPrice, maxAd),
	}
}

func float64Ptr(v float64) *float64 {
	return &v
}
