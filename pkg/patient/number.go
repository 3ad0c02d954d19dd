package patient

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a numeric cell that may be undefined.
//
// It plays the role of a nullable float: a zero Number is undefined, and
// every arithmetic helper in this package propagates undefined values instead
// of failing.
type Number struct {
	Float float64
	Valid bool
}

// Num returns a defined Number. NaN and infinities are treated as undefined.
func Num(f float64) Number {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Number{}
	}
	return Number{Float: f, Valid: true}
}

// ParseNumber coerces text to a Number. Surrounding whitespace is ignored;
// anything that is not a finite decimal number yields an undefined Number.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number{}
	}
	return Num(f)
}

// String formats the number in its shortest form, or "" when undefined.
func (n Number) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Float, 'f', -1, 64)
}

// Fixed formats the number with the given number of decimals, or "" when
// undefined.
func (n Number) Fixed(decimals int) string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Float, 'f', decimals, 64)
}

// Equal reports whether two numbers are both undefined or hold the same value.
func (n Number) Equal(o Number) bool {
	if n.Valid != o.Valid {
		return false
	}
	return !n.Valid || n.Float == o.Float
}

// MarshalJSON encodes undefined numbers as null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float)
}

// UnmarshalJSON accepts a JSON number, a numeric string or null. Strings that
// do not parse decode to an undefined Number rather than an error.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = ParseNumber(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Num(f)
	return nil
}

// round1 rounds half to even at one decimal place.
func round1(f float64) float64 {
	return math.RoundToEven(f*10) / 10
}
