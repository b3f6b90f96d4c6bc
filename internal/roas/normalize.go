package roas

import (
	"math"
	"strconv"
	"strings"
)

// Column names of the marketplace ads export.
const (
	ColumnOrder       = "Urutan"
	ColumnAdName      = "Nama Iklan"
	ColumnStatus      = "Status"
	ColumnProductCode = "Kode Produk"
	ColumnCTR         = "Persentase Klik"
	ColumnUnitsSold   = "Produk Terjual"
	ColumnRevenue     = "Omzet Penjualan"
	ColumnSpend       = "Biaya"

	// StatusRunning marks an ad that is currently delivering.
	StatusRunning = "Berjalan"
)

// ProductRecord is one advertised product after normalization.
type ProductRecord struct {
	ProductID   string  `json:"product_id"`
	Name        string  `json:"name"`
	Status      string  `json:"status,omitempty"`
	Spend       float64 `json:"spend"`
	Revenue     float64 `json:"revenue"`
	UnitsSold   float64 `json:"units_sold"`
	CTR         float64 `json:"ctr"`
	ActualRatio float64 `json:"actual_ratio"`
}

// UnitPrice derives the average selling price, or 0 when nothing sold.
func (p ProductRecord) UnitPrice() float64 {
	if p.UnitsSold <= 0 {
		return 0
	}
	return p.Revenue / p.UnitsSold
}

// ManualFigures are the raw numbers a seller types in by hand.
type ManualFigures struct {
	ProductID string
	Name      string
	Spend     float64
	Revenue   float64
	UnitsSold float64
	CTR       float64
}

// NormalizeRow coerces an export row into a ProductRecord. It never fails: bad cells become 0.
func NormalizeRow(raw map[string]string) ProductRecord {
	rec := ProductRecord{
		ProductID: strings.TrimSpace(raw[ColumnProductCode]),
		Name:      strings.TrimSpace(raw[ColumnAdName]),
		Status:    strings.TrimSpace(raw[ColumnStatus]),
		Spend:     ParseNumber(raw[ColumnSpend]),
		Revenue:   ParseNumber(raw[ColumnRevenue]),
		UnitsSold: ParseNumber(raw[ColumnUnitsSold]),
		CTR:       ParseNumber(raw[ColumnCTR]) / 100,
	}
	rec.ActualRatio = actualRatio(rec.Spend, rec.Revenue)
	return rec
}

// NormalizeManual applies the same coercion rules to hand-entered figures.
func NormalizeManual(in ManualFigures) ProductRecord {
	rec := ProductRecord{
		ProductID: strings.TrimSpace(in.ProductID),
		Name:      strings.TrimSpace(in.Name),
		Spend:     clean(in.Spend),
		Revenue:   clean(in.Revenue),
		UnitsSold: clean(in.UnitsSold),
		CTR:       clean(in.CTR),
	}
	rec.ActualRatio = actualRatio(rec.Spend, rec.Revenue)
	return rec
}

func actualRatio(spend, revenue float64) float64 {
	if spend <= 0 {
		return 0
	}
	return clean(revenue / spend)
}

// ParseNumber reads a locale-formatted cell such as "Rp1,250,000", "3.5%" or "1.250.000".
// Anything unparsable yields 0.
func ParseNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, "Rp", "")
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if strings.Count(s, ".") > 1 {
		s = strings.ReplaceAll(s, ".", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return clean(v)
}

func clean(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
