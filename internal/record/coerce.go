package record

import (
	"math"
	"strconv"
	"strings"
)

// Boolean keyword sets, matched case-insensitively.
var (
	truthy = map[string]struct{}{"true": {}, "yes": {}, "sim": {}, "verdadeiro": {}}
	falsy  = map[string]struct{}{"false": {}, "no": {}, "não": {}, "nao": {}, "falso": {}}
)

// Coerce converts a raw text cell to a Value. The order is fixed:
//
//  1. trim whitespace and surrounding quotes
//  2. digits only -> Int
//  3. parses as a finite float -> Float
//  4. boolean keyword -> Bool
//  5. anything else -> String
//
// Coerce is total; it never fails.
func Coerce(s string) Value {
	s = Unquote(s)
	if v, ok := coerceNumber(s); ok {
		return v
	}
	lower := strings.ToLower(s)
	if _, ok := truthy[lower]; ok {
		return Bool(true)
	}
	if _, ok := falsy[lower]; ok {
		return Bool(false)
	}
	return String(s)
}

// CoerceNumeric is Coerce without the boolean step, used for delimited rows.
func CoerceNumeric(s string) Value {
	s = Unquote(s)
	if v, ok := coerceNumber(s); ok {
		return v
	}
	return String(s)
}

// Unquote trims whitespace, then any run of double quotes and then single
// quotes on both ends.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	s = strings.Trim(s, `'`)
	return strings.TrimSpace(s)
}

func coerceNumber(s string) (Value, bool) {
	if isDigits(s) {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), true
		}
	}
	if f, ok := parseFloat(s); ok {
		return Float(f), true
	}
	return Value{}, false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// parseFloat accepts decimal and exponent notation only. Hex floats,
// underscores, NaN and infinities stay text.
func parseFloat(s string) (float64, bool) {
	if s == "" || strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
