// Package core provides money parsing and handling utilities.
//
// This file contains the Decimal wire type used by every money-bearing entity,
// the tolerant normalization used when rendering loosely typed payloads, and
// rupee formatting for display.
package core

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// decimalKey is the field name of the wrapped decimal representation.
const decimalKey = "$numberDecimal"

// Decimal is an exact money amount.
//
// On the wire it is written as {"$numberDecimal":"123.45"} and it can be read
// back from that wrapped form, a numeric string or a bare JSON number.
type Decimal struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Decimal{}

// NewDecimal wraps a shopspring decimal.
func NewDecimal(d decimal.Decimal) Decimal { return Decimal{d: d} }

// DecimalFromInt returns the amount for a whole number of rupees.
func DecimalFromInt(v int64) Decimal { return Decimal{d: decimal.NewFromInt(v)} }

// DecimalFromFloat converts a float. Prefer string inputs for exact values.
func DecimalFromFloat(v float64) Decimal { return Decimal{d: decimal.NewFromFloat(v)} }

// DecimalFromString parses a base-10 decimal string such as "12.50".
func DecimalFromString(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	return Decimal{d: d}, nil
}

// MustDecimal is DecimalFromString for literals known to be valid.
func MustDecimal(s string) Decimal {
	d, err := DecimalFromString(s)
	if err != nil {
		panic("core: invalid decimal literal " + strconv.Quote(s))
	}
	return d
}

// ParseAmount parses user input for a money field.
//
// Rupee symbols, spaces and grouping commas are ignored, negative values are
// rejected and the result is rounded half-up to two decimals.
// Examples:
//
//	ParseAmount("1,23,456.50") -> 123456.50
//	ParseAmount("₹ 99.999")    -> 100.00
func ParseAmount(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.NewReplacer(",", "", " ", "").Replace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	return Decimal{d: d.Round(2)}, nil
}

func (x Decimal) Add(y Decimal) Decimal { return Decimal{d: x.d.Add(y.d)} }
func (x Decimal) Sub(y Decimal) Decimal { return Decimal{d: x.d.Sub(y.d)} }

// MulInt multiplies the amount by a count, e.g. installments.
func (x Decimal) MulInt(n int) Decimal { return Decimal{d: x.d.Mul(decimal.NewFromInt(int64(n)))} }

func (x Decimal) Cmp(y Decimal) int        { return x.d.Cmp(y.d) }
func (x Decimal) Equal(y Decimal) bool     { return x.d.Equal(y.d) }
func (x Decimal) IsZero() bool             { return x.d.IsZero() }
func (x Decimal) IsNegative() bool         { return x.d.IsNegative() }
func (x Decimal) IsPositive() bool         { return x.d.IsPositive() }
func (x Decimal) Decimal() decimal.Decimal { return x.d }

// Float64 returns the value for display and charting.
func (x Decimal) Float64() float64 { return x.d.InexactFloat64() }

// String returns the canonical decimal string without trailing zeros.
func (x Decimal) String() string { return x.d.String() }

// StringFixed returns the value with exactly two fractional digits.
func (x Decimal) StringFixed() string { return x.d.StringFixed(2) }

// FormatINR formats the amount as Indian rupees.
func (x Decimal) FormatINR() string { return formatINR(x.d) }

// MarshalJSON writes the wrapped representation.
func (x Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{decimalKey: x.d.String()})
}

// UnmarshalJSON accepts the wrapped object, a numeric string, a bare number or
// null. Anything it cannot read, including null, "" and a wrapped object
// without the field, reads as zero.
func (x *Decimal) UnmarshalJSON(data []byte) error {
	d, err := ParseDecimalJSON(data)
	if err != nil {
		d = Zero
	}
	*x = d
	return nil
}

// ParseDecimalJSON reads the same shapes as UnmarshalJSON but reports an
// unparsable amount as ErrInvalidAmount. Request parsing uses it.
func ParseDecimalJSON(data []byte) (Decimal, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Zero, nil
	}

	switch data[0] {
	case '{':
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return Zero, ErrInvalidAmount
		}
		raw, ok := wrapped[decimalKey]
		if !ok {
			return Zero, nil
		}
		return ParseDecimalJSON(raw)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return Zero, ErrInvalidAmount
		}
		return DecimalFromString(s)
	default:
		d, err := decimal.NewFromString(string(data))
		if err != nil {
			return Zero, ErrInvalidAmount
		}
		return Decimal{d: d}, nil
	}
}

// Count is a whole number read as leniently as a Decimal: a number, a numeric
// string or the wrapped form. Fractions are truncated and anything unreadable
// is 0.
type Count int

func (c *Count) UnmarshalJSON(data []byte) error {
	d, err := ParseDecimalJSON(data)
	if err != nil {
		*c = 0
		return nil
	}
	*c = Count(d.d.IntPart())
	return nil
}

// Scan implements sql.Scanner for TEXT and NUMERIC columns.
func (x *Decimal) Scan(src any) error {
	if src == nil {
		*x = Zero
		return nil
	}
	return x.d.Scan(src)
}

// Value implements driver.Valuer.
func (x Decimal) Value() (driver.Value, error) {
	return x.d.String(), nil
}

// ParseDecimal normalizes any decoded JSON money value to a float.
//
// It accepts nil, numbers, numeric strings, Decimal values and wrapped
// {"$numberDecimal": "..."} maps. Absent or unparsable input yields 0, never
// NaN or an infinity. No rounding is applied.
func ParseDecimal(v any) float64 {
	f := parseRawDecimal(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parseRawDecimal(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case int32:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case Decimal:
		return t.Float64()
	case *Decimal:
		if t == nil {
			return 0
		}
		return t.Float64()
	case map[string]any:
		inner, ok := t[decimalKey]
		if !ok {
			return 0
		}
		return parseRawDecimal(inner)
	case map[string]string:
		inner, ok := t[decimalKey]
		if !ok {
			return 0
		}
		return parseRawDecimal(inner)
	default:
		return math.NaN()
	}
}

// FormatINR formats a value in the en-IN rupee convention: two decimals,
// Indian digit grouping and the ₹ symbol, e.g. 123456.5 -> "₹1,23,456.50".
func FormatINR(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return formatINR(decimal.NewFromFloat(v))
}

func formatINR(d decimal.Decimal) string {
	s := d.Round(2).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	out := "₹" + groupIndian(intPart) + "." + frac
	if neg && strings.Trim(s, "0.") != "" {
		return "-" + out
	}
	return out
}

// groupIndian inserts separators after the last three digits and then every
// two digits: 1234567 -> 12,34,567.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}
