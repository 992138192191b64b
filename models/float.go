package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Float is a Kraken numeric value. The exchange sends prices, volumes and
// timestamps as decimal strings, so Float is always encoded as a JSON string
// and never as a JSON number.
type Float struct {
	v float64
}

// NewFloat wraps a native float.
func NewFloat(v float64) Float { return Float{v: v} }

// ParseFloat decodes a decimal or scientific literal such as "5525.40000" or
// "1.5e-3". NaN and infinities are rejected.
func ParseFloat(text string) (Float, error) {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Float{}, &NumericParseError{Text: text, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Float{}, &NumericParseError{Text: text, Err: strconv.ErrSyntax}
	}
	return Float{v: v}, nil
}

// MustFloat is ParseFloat for literals known to be valid.
func MustFloat(text string) Float {
	f, err := ParseFloat(text)
	if err != nil {
		panic(err)
	}
	return f
}

// Float64 returns the underlying value.
func (f Float) Float64() float64 { return f.v }

// Decimal converts the value into an arbitrary precision decimal for callers
// that need exact arithmetic (timestamp scaling, notional sums).
func (f Float) Decimal() decimal.Decimal {
	d, err := decimal.NewFromString(f.String())
	if err != nil {
		return decimal.NewFromFloat(f.v)
	}
	return d
}

// IsZero reports whether the value is numerically zero.
func (f Float) IsZero() bool { return f.v == 0 }

// Equal compares by numeric value.
func (f Float) Equal(o Float) bool { return f.v == o.v }

// Cmp returns -1, 0 or +1.
func (f Float) Cmp(o Float) int {
	switch {
	case f.v < o.v:
		return -1
	case f.v > o.v:
		return 1
	default:
		return 0
	}
}

// String renders the shortest decimal form that parses back to the same value
// ("5525.40000" becomes "5525.4", 1.0 becomes "1").
func (f Float) String() string {
	return strconv.FormatFloat(f.v, 'f', -1, 64)
}

func (f Float) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *Float) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return &NumericParseError{Text: string(data), Err: errNotString}
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &NumericParseError{Text: string(data), Err: err}
	}
	parsed, err := ParseFloat(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
