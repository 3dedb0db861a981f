package data

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidLiteral is returned when a literal cannot construct a value of
// the requested type.
var ErrInvalidLiteral = errors.New("invalid literal")

// LiteralKind tags the value held by a Literal.
type LiteralKind uint8

const (
	LiteralNone LiteralKind = iota

	LiteralBool
	LiteralInt32
	LiteralFloat
	LiteralString
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralNone:
		return "none"
	case LiteralBool:
		return "bool"
	case LiteralInt32:
		return "int32"
	case LiteralFloat:
		return "float"
	case LiteralString:
		return "string"
	default:
		return "unknown"
	}
}

// Literal is a construction argument for a data value. The zero value is
// the none literal, which selects settings-only or default construction.
type Literal struct {
	kind LiteralKind
	b    bool
	i    int32
	f    float64
	s    string
}

// NoneLiteral returns the empty literal.
func NoneLiteral() Literal { return Literal{} }

// BoolLiteral wraps a bool.
func BoolLiteral(v bool) Literal { return Literal{kind: LiteralBool, b: v} }

// Int32Literal wraps an int32.
func Int32Literal(v int32) Literal { return Literal{kind: LiteralInt32, i: v} }

// FloatLiteral wraps a float64.
func FloatLiteral(v float64) Literal { return Literal{kind: LiteralFloat, f: v} }

// StringLiteral wraps a string.
func StringLiteral(v string) Literal { return Literal{kind: LiteralString, s: v} }

// Kind returns the literal's tag.
func (l Literal) Kind() LiteralKind { return l.kind }

// IsNone reports whether the literal carries no value.
func (l Literal) IsNone() bool { return l.kind == LiteralNone }

// AsBool converts bool and numeric literals.
func (l Literal) AsBool() (bool, bool) {
	switch l.kind {
	case LiteralBool:
		return l.b, true
	case LiteralInt32:
		return l.i != 0, true
	case LiteralFloat:
		return l.f != 0, true
	default:
		return false, false
	}
}

// AsInt32 converts int32, float (truncating) and bool literals.
func (l Literal) AsInt32() (int32, bool) {
	switch l.kind {
	case LiteralInt32:
		return l.i, true
	case LiteralFloat:
		if math.IsNaN(l.f) || l.f > math.MaxInt32 || l.f < math.MinInt32 {
			return 0, false
		}

		return int32(l.f), true
	case LiteralBool:
		if l.b {
			return 1, true
		}

		return 0, true
	default:
		return 0, false
	}
}

// AsFloat converts float, int32 and bool literals.
func (l Literal) AsFloat() (float64, bool) {
	switch l.kind {
	case LiteralFloat:
		return l.f, true
	case LiteralInt32:
		return float64(l.i), true
	case LiteralBool:
		if l.b {
			return 1, true
		}

		return 0, true
	default:
		return 0, false
	}
}

// AsString returns the string of a string literal.
func (l Literal) AsString() (string, bool) {
	if l.kind != LiteralString {
		return "", false
	}

	return l.s, true
}

// Any returns the literal's value as a plain Go value, nil for none.
func (l Literal) Any() any {
	switch l.kind {
	case LiteralBool:
		return l.b
	case LiteralInt32:
		return l.i
	case LiteralFloat:
		return l.f
	case LiteralString:
		return l.s
	default:
		return nil
	}
}

func (l Literal) String() string {
	switch l.kind {
	case LiteralBool:
		return strconv.FormatBool(l.b)
	case LiteralInt32:
		return strconv.FormatInt(int64(l.i), 10)
	case LiteralFloat:
		return strconv.FormatFloat(l.f, 'g', -1, 64)
	case LiteralString:
		return strconv.Quote(l.s)
	default:
		return "<none>"
	}
}

// LiteralFrom converts a decoded document value into a Literal. Integers
// that fit into int32 become int32 literals; other numbers become floats.
func LiteralFrom(v any) (Literal, error) {
	switch t := v.(type) {
	case nil:
		return NoneLiteral(), nil
	case Literal:
		return t, nil
	case bool:
		return BoolLiteral(t), nil
	case int:
		return intLiteral(int64(t)), nil
	case int32:
		return Int32Literal(t), nil
	case int64:
		return intLiteral(t), nil
	case uint:
		return intLiteral(int64(t)), nil
	case float32:
		return FloatLiteral(float64(t)), nil
	case float64:
		return FloatLiteral(t), nil
	case string:
		return StringLiteral(t), nil
	default:
		return NoneLiteral(), fmt.Errorf("%w: unsupported value type %T", ErrInvalidLiteral, v)
	}
}

func intLiteral(v int64) Literal {
	if v > math.MaxInt32 || v < math.MinInt32 {
		return FloatLiteral(float64(v))
	}

	return Int32Literal(int32(v))
}
