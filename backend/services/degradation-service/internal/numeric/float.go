// Package numeric provides an optional float64 whose arithmetic short-circuits
// to "undefined" instead of producing sentinels, NaN or panics.
package numeric

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Float is a float64 that may be undefined. The zero value is undefined.
type Float struct {
	Float64 float64
	Valid   bool
}

// Of wraps v. NaN and infinities are treated as undefined.
func Of(v float64) Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Float{}
	}
	return Float{Float64: v, Valid: true}
}

// Undefined returns an undefined value.
func Undefined() Float {
	return Float{}
}

// Get returns the value and whether it is defined.
func (f Float) Get() (float64, bool) {
	return f.Float64, f.Valid
}

// Or returns the value, or fallback when undefined.
func (f Float) Or(fallback float64) float64 {
	if !f.Valid {
		return fallback
	}
	return f.Float64
}

// Add returns f + o.
func (f Float) Add(o Float) Float {
	if !f.Valid || !o.Valid {
		return Float{}
	}
	return Of(f.Float64 + o.Float64)
}

// Sub returns f - o.
func (f Float) Sub(o Float) Float {
	if !f.Valid || !o.Valid {
		return Float{}
	}
	return Of(f.Float64 - o.Float64)
}

// Mul returns f * o.
func (f Float) Mul(o Float) Float {
	if !f.Valid || !o.Valid {
		return Float{}
	}
	return Of(f.Float64 * o.Float64)
}

// Div returns f / o; a zero divisor yields undefined.
func (f Float) Div(o Float) Float {
	if !f.Valid || !o.Valid || o.Float64 == 0 {
		return Float{}
	}
	return Of(f.Float64 / o.Float64)
}

// Scale multiplies by a constant.
func (f Float) Scale(k float64) Float {
	return f.Mul(Of(k))
}

// AtLeast reports whether f is defined and f >= threshold.
func (f Float) AtLeast(threshold float64) bool {
	return f.Valid && f.Float64 >= threshold
}

// IsZero reports whether f is defined and exactly zero.
func (f Float) IsZero() bool {
	return f.Valid && f.Float64 == 0
}

// Mean averages the defined values; undefined when none are defined.
func Mean(values ...Float) Float {
	var (
		sum float64
		n   int
	)
	for _, v := range values {
		if !v.Valid {
			continue
		}
		sum += v.Float64
		n++
	}
	if n == 0 {
		return Float{}
	}
	return Of(sum / float64(n))
}

// MeanAll averages values only when every one is defined.
func MeanAll(values ...Float) Float {
	if len(values) == 0 {
		return Float{}
	}
	var sum float64
	for _, v := range values {
		if !v.Valid {
			return Float{}
		}
		sum += v.Float64
	}
	return Of(sum / float64(len(values)))
}

// Defined returns the defined values in order.
func Defined(values []Float) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v.Valid {
			out = append(out, v.Float64)
		}
	}
	return out
}

// Parse reads a decimal string; blanks and tokens such as "nan" or "null" are undefined.
func Parse(s string) Float {
	s = strings.TrimSpace(s)
	if s == "" {
		return Float{}
	}
	switch strings.ToLower(s) {
	case "nan", "null", "none", "na", "n/a":
		return Float{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Float{}
	}
	return Of(v)
}

// String formats the value for flat tables; undefined renders as an empty cell.
func (f Float) String() string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Float64, 'f', -1, 64)
}

// MarshalJSON encodes undefined as null.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Float64)
}

// UnmarshalJSON accepts a number or null.
func (f *Float) UnmarshalJSON(data []byte) error {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*f = Float{}
		return nil
	}
	*f = Of(*v)
	return nil
}

var (
	_ msgpack.CustomEncoder = Float{}
	_ msgpack.CustomDecoder = (*Float)(nil)
)

// EncodeMsgpack encodes undefined as nil.
func (f Float) EncodeMsgpack(enc *msgpack.Encoder) error {
	if !f.Valid {
		return enc.EncodeNil()
	}
	return enc.EncodeFloat64(f.Float64)
}

// DecodeMsgpack accepts a number or nil.
func (f *Float) DecodeMsgpack(dec *msgpack.Decoder) error {
	var v *float64
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if v == nil {
		*f = Float{}
		return nil
	}
	*f = Of(*v)
	return nil
}
