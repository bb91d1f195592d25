// Package convert provides defensive numeric coercion for calculator inputs.
// Form values arrive as strings, numbers, or garbage; everything that cannot
// be read as a finite number degrades to 0 instead of propagating NaN/Inf.
package convert

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToFloat64 converts various numeric representations to float64.
// Returns 0 for unsupported types, parse failures, and non-finite values.
func ToFloat64(v any) float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		f, _ = t.Float64()
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// NonNegative coerces v to a finite float64 and floors it at 0.
func NonNegative(v any) float64 {
	f := ToFloat64(v)
	if f < 0 {
		return 0
	}
	return f
}

// Percent coerces v to a finite float64 clamped into [0,100].
func Percent(v any) float64 {
	f := ToFloat64(v)
	if f < 0 {
		return 0
	}
	if f > 100 {
		return 100
	}
	return f
}

// Clamp bounds f into [lo,hi]. Callers guarantee lo <= hi.
func Clamp(f, lo, hi float64) float64 {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}
