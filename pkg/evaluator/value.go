// Package evaluator implements the Toy tree-walking interpreter.
package evaluator

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Value is any Toy runtime value: Null, Bool, Number, String, *Function or
// a host object implementing Callable, Bundle or Collection.
type Value = any

// Null is the null value.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// Number is the only numeric type; all arithmetic is float64.
type Number float64

// String is an immutable string value.
type String string

type undefined struct{}

// Undefined is what Env.Get returns for a name bound nowhere. The
// interpreter reads it as null; it never reaches script code.
var Undefined Value = undefined{}

func (Null) String() string { return "null" }

// Equaler lets host objects define equality with other values.
type Equaler interface {
	Equal(other Value) bool
}

// FromGo converts a Go literal (nil, bool, float64, int, string) into a
// Value. Anything else is returned unchanged.
func FromGo(v any) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case bool:
		return Bool(val)
	case float64:
		return Number(val)
	case int:
		return Number(val)
	case string:
		return String(val)
	}
	return v
}

// IsTruthy applies Toy truthiness: null and undefined are false, booleans
// are themselves, numbers are true unless zero, everything else is true.
func IsTruthy(v Value) bool {
	switch val := v.(type) {
	case nil, Null, undefined:
		return false
	case Bool:
		return bool(val)
	case Number:
		return val != 0
	}
	return true
}

func isNull(v Value) bool {
	switch v.(type) {
	case nil, Null, undefined:
		return true
	}
	return false
}

// IsEqual compares two values. Null equals only null; a number compared
// with a boolean compares their truthiness; otherwise values of the same
// type compare natively and values of different types are unequal.
func IsEqual(a, b Value) bool {
	if isNull(a) || isNull(b) {
		return isNull(a) && isNull(b)
	}
	switch x := a.(type) {
	case Number:
		switch y := b.(type) {
		case Number:
			return x == y
		case Bool:
			return IsTruthy(x) == bool(y)
		}
		return false
	case Bool:
		switch y := b.(type) {
		case Bool:
			return x == y
		case Number:
			return bool(x) == IsTruthy(y)
		}
		return false
	case String:
		if y, ok := b.(String); ok {
			return x == y
		}
		if eq, ok := b.(Equaler); ok {
			return eq.Equal(a)
		}
		return false
	}
	if eq, ok := a.(Equaler); ok {
		return eq.Equal(b)
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// FormatNumber prints integral values without a fractional part.
func FormatNumber(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Stringify renders v the way print shows it.
func Stringify(v Value) string {
	switch val := v.(type) {
	case nil, Null, undefined:
		return "null"
	case Bool:
		return strconv.FormatBool(bool(val))
	case Number:
		return FormatNumber(float64(val))
	case String:
		return string(val)
	case fmt.Stringer:
		return val.String()
	}
	return fmt.Sprintf("<%s>", TypeName(v))
}

// TypeName names the type of v for error messages.
func TypeName(v Value) string {
	switch val := v.(type) {
	case nil, Null, undefined:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case *Function, *NativeFunc:
		return "function"
	case Named:
		return val.TypeName()
	case Collection:
		return "collection"
	case Bundle:
		return "bundle"
	case Callable:
		return "function"
	}
	return fmt.Sprintf("%T", v)
}

// Named lets host objects report their own type name.
type Named interface {
	TypeName() string
}

// AsNumber returns v as a float64 when it is a Number.
func AsNumber(v Value) (float64, bool) {
	n, ok := v.(Number)
	return float64(n), ok
}

// AsString returns v as a Go string when it is a String.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}
