package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// #region kind

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindAbsent Kind = iota
	KindFloat
	KindInt
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	default:
		return "absent"
	}
}

// #endregion kind

// #region value

// Value is a parsed cell: absent, a float, an integer, or raw text.
// The zero Value is absent.
type Value struct {
	kind Kind
	f    float64
	i    int64
	s    string
}

// Absent returns the absent value.
func Absent() Value { return Value{} }

// Float wraps a float64.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Int wraps an int64.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Text wraps a raw string.
func Text(s string) Value { return Value{kind: KindString, s: s} }

// Kind reports the variant.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether the cell was blank or missing.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Text returns the raw string for the string variant and "" otherwise.
func (v Value) Text() string { return v.s }

// Float64 returns the numeric value for float and int variants.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// Int64 returns the integer value. Floats with no fractional part convert.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f == math.Trunc(v.f) && math.Abs(v.f) < 1<<63 {
			return int64(v.f), true
		}
	}
	return 0, false
}

// Interface returns nil, float64, int64 or string.
func (v Value) Interface() any {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindInt:
		return v.i
	case KindString:
		return v.s
	default:
		return nil
	}
}

// MarshalJSON encodes absent as null and the other variants natively.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// #endregion value

// #region parse

// ParseValue applies the cell parsing rule used for features and telemetry:
// blank is absent, then float, then integer, else the raw string.
// Non-finite floats (NaN, Inf) count as absent.
func ParseValue(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Absent()
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Absent()
		}
		return Float(f)
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return Int(i)
	}
	return Text(raw)
}

// #endregion parse
