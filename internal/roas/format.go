package roas

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatRupiah renders a whole-rupiah amount with dot thousands separators, e.g. Rp1.250.000 or -Rp5.000.
func FormatRupiah(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return NotApplicable
	}
	d := decimal.NewFromFloat(amount).Round(0)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	return sign + "Rp" + groupThousands(d.String())
}

// FormatRatio renders a ratio with a fixed number of decimals.
func FormatRatio(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotApplicable
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// FormatPercent renders a fraction as a whole percentage, e.g. 0.1 -> "10%".
func FormatPercent(fraction float64) string {
	return decimal.NewFromFloat(fraction*100).StringFixed(0) + "%"
}

// FormatUnits renders a unit count.
func FormatUnits(units float64) string {
	if math.IsNaN(units) || math.IsInf(units, 0) {
		return NotApplicable
	}
	return fmt.Sprintf("%s units", groupThousands(decimal.NewFromFloat(math.Trunc(units)).String()))
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
