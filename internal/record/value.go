package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the scalar type carried by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is a scalar field value. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

func String(s string) Value  { return Value{kind: KindString, s: s} }
func Int(i int64) Value      { return Value{kind: KindInt, i: i} }
func Float(f float64) Value  { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func Null() Value            { return Value{} }
func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the raw string for string values and "" otherwise.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// IntValue returns the integer for int values.
func (v Value) IntValue() (int64, bool) { return v.i, v.kind == KindInt }

// BoolValue returns the boolean for bool values.
func (v Value) BoolValue() (bool, bool) { return v.b, v.kind == KindBool }

// String renders the value as display text. Floats use the shortest
// representation that round-trips; null renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Number reports the value as a float64 when it is numeric or a string that
// parses as a finite float. Booleans and nulls are never numeric.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindString:
		return parseFloat(strings.TrimSpace(v.s))
	default:
		return 0, false
	}
}

// LooseNumber is Number with one round of normalization applied to strings:
// a leading "R$" currency marker is dropped and ',' is read as the decimal
// separator.
func (v Value) LooseNumber() (float64, bool) {
	if v.kind != KindString {
		return v.Number()
	}
	s := strings.ReplaceAll(v.s, ",", ".")
	s = strings.ReplaceAll(s, "R$", "")
	return parseFloat(strings.TrimSpace(s))
}

// Equal compares two values. Ints and floats compare numerically so that a
// value survives a text round trip regardless of which numeric kind it lands in.
func (v Value) Equal(o Value) bool {
	if v.kind == o.kind {
		return v == o
	}
	if isNumericKind(v.kind) && isNumericKind(o.kind) {
		a, _ := v.Number()
		b, _ := o.Number()
		return a == b
	}
	return false
}

func isNumericKind(k Kind) bool { return k == KindInt || k == KindFloat }

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("record: non-finite float %v", v.f)
		}
		return json.Marshal(v.f)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	val, err := valueFromJSON(data)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// valueFromJSON converts one JSON value to a scalar. Objects and arrays are
// kept as their compact JSON text.
func valueFromJSON(raw []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return Value{}, fmt.Errorf("decode value: %w", err)
	}
	return FromAny(x), nil
}

// FromAny converts a value produced by encoding/json (with UseNumber) or a Go
// scalar into a Value.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float64:
		return Float(t)
	case json.Number:
		if i, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return Int(i)
		}
		if f, ok := parseFloat(t.String()); ok {
			return Float(f)
		}
		return String(t.String())
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return String(fmt.Sprint(t))
		}
		return String(string(b))
	}
}
