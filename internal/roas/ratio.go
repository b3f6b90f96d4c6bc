package roas

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"
)

const (
	// RatioCap is the highest target ROAS the marketplace lets a seller configure.
	RatioCap = 50.0
	// MinDailyBudget is the smallest daily ad budget the marketplace accepts.
	MinDailyBudget = 5000.0

	NotApplicable = "not applicable"
)

// Ratio is a ROAS threshold that is either a finite number or unreachable.
// Values are stored raw; the cap is applied only when presenting them.
type Ratio struct {
	value   float64
	bounded bool
}

func Finite(v float64) Ratio {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Unbounded()
	}
	return Ratio{value: v, bounded: true}
}

func Unbounded() Ratio {
	return Ratio{}
}

// ratioOf divides price by a per-unit margin, treating non-positive margins as unreachable.
func ratioOf(price, margin float64) Ratio {
	if margin <= 0 {
		return Unbounded()
	}
	return Finite(price / margin)
}

func (r Ratio) IsFinite() bool {
	return r.bounded
}

// Value returns the raw value and whether it is finite.
func (r Ratio) Value() (float64, bool) {
	return r.value, r.bounded
}

// Capped returns the value clamped to RatioCap; unbounded ratios report the cap.
func (r Ratio) Capped() float64 {
	if !r.bounded {
		return RatioCap
	}
	return math.Min(r.value, RatioCap)
}

// ReachedBy reports whether an actual ROAS meets or beats the threshold.
func (r Ratio) ReachedBy(actual float64) bool {
	return r.bounded && actual >= r.value
}

// ExceededBy reports whether an actual ROAS is strictly above the threshold.
func (r Ratio) ExceededBy(actual float64) bool {
	return r.bounded && actual > r.value
}

// Display renders the capped value with two decimals or "not applicable".
func (r Ratio) Display() string {
	if !r.bounded {
		return NotApplicable
	}
	return FormatRatio(r.Capped(), 2)
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.bounded {
		return []byte("null"), nil
	}
	return json.Marshal(roundTo(r.Capped(), 4))
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = Unbounded()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Finite(v)
	return nil
}

func roundTo(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	out, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return out
}
