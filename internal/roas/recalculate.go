package roas

import (
	"math"
	"strings"

	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
)

const (
	recalcCandidateLimit = 5
	unknownProductName   = "N/A"
)

// RecalculateInput re-runs one batch product with the seller's own costs. The actual figures are
// echoed back by the client from the batch it was shown.
type RecalculateInput struct {
	ProductID   string         `json:"product_id" validate:"required"`
	UnitPrice   float64        `json:"unit_price" validate:"gte=0"`
	Costs       *CostOverrides `json:"costs,omitempty"`
	Spend       float64        `json:"spend" validate:"gte=0"`
	Revenue     float64        `json:"revenue" validate:"gte=0"`
	UnitsSold   float64        `json:"units_sold" validate:"gte=0"`
	ActualRatio float64        `json:"actual_ratio" validate:"gte=0"`
	CTR         float64        `json:"ctr" validate:"gte=0"`
}

// RecalculateResult is the refreshed verdict for one product plus its fixed-spend simulation.
type RecalculateResult struct {
	Record         ProductRecord   `json:"record"`
	Recommendation Recommendation  `json:"recommendation"`
	Economics      UnitEconomics   `json:"economics"`
	Simulation     []SimulationRow `json:"simulation"`
}

// Recalculate evaluates the product with the caller's overrides. The display name comes from the
// snapshot of the caller's last batch when available.
func (e *Engine) Recalculate(in RecalculateInput, snapshot *BatchResult) (RecalculateResult, error) {
	id := strings.TrimSpace(in.ProductID)
	if id == "" {
		return RecalculateResult{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required").
			WithDetails(map[string]string{"product_id": "is required"})
	}

	rec := NormalizeManual(ManualFigures{
		ProductID: id,
		Name:      unknownProductName,
		Spend:     in.Spend,
		Revenue:   in.Revenue,
		UnitsSold: in.UnitsSold,
		CTR:       in.CTR,
	})
	if in.ActualRatio > 0 && !math.IsInf(in.ActualRatio, 0) {
		rec.ActualRatio = in.ActualRatio
	}
	if row, ok := snapshot.Find(id); ok && row.Record.Name != "" {
		rec.Name = row.Record.Name
		rec.Status = row.Record.Status
	}

	price := in.UnitPrice
	if price <= 0 {
		price = rec.UnitPrice()
	}
	reco := e.Recommend(rec, in.Costs, price)
	res := RecalculateResult{Record: rec, Recommendation: reco}
	if price <= 0 {
		res.Economics = UnitEconomics{BreakEven: Unbounded(), Target: Unbounded()}
		res.Simulation = []SimulationRow{}
		return res, nil
	}

	profile := e.assumptions.Resolve(price, in.Costs)
	econ := Economics(price, profile)
	res.Economics = econ

	values := []float64{rec.ActualRatio}
	if optimal, ok := reco.Optimal(); ok {
		values = append(values, optimal)
	}
	if be, ok := econ.BreakEven.Value(); ok {
		values = append(values, be)
	}
	values = append(values, RatioCap)

	spend := rec.Spend
	res.Simulation = BuildSimulation(SimulationInput{
		UnitPrice:       price,
		BaseUnits:       rec.UnitsSold,
		TotalUnitCost:   econ.TotalUnitCost,
		TargetProfitPct: profile.TargetProfitPct,
		BreakEven:       econ.BreakEven,
		Candidates:      NormalizeCandidates(values, recalcCandidateLimit),
		FixedSpend:      &spend,
	})
	return res, nil
}
