// Package value models the runtime values that an instrumentation host passes
// to the tracer.
//
// The tracer never interprets program semantics: it only needs to classify a
// value, print primitives, and enumerate the own properties of objects. Hosts
// implement the Value and Object interfaces over their own representation; the
// concrete types in this package are a reference implementation used by tests
// and by programs that drive the tracer directly.
package value

import (
	"math"
	"strconv"
	"strings"
)

// Kind classifies runtime values.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindNumber
	KindBigInt
	KindString
	KindSymbol
	KindObject
	KindFunction
)

var kindNames = [...]string{
	KindUndefined: "undefined",
	KindNull:      "null",
	KindBoolean:   "boolean",
	KindNumber:    "number",
	KindBigInt:    "bigint",
	KindString:    "string",
	KindSymbol:    "symbol",
	KindObject:    "object",
	KindFunction:  "function",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a runtime value.
type Value interface {
	// Kind returns the classification of the value.
	Kind() Kind
	// String returns the textual form of the value, as the program would see
	// it after converting the value to a string.
	String() string
}

// Object is implemented by values of kind KindObject and KindFunction.
type Object interface {
	Value
	// Intrinsic returns the stable name of well-known built-in objects (for
	// example "Array.prototype.push" or "Object.defineProperty"), or the
	// empty string for objects created by the program.
	Intrinsic() string
	// IsArray reports whether the object is an array.
	IsArray() bool
	// Keys returns the own enumerable property keys in enumeration order.
	Keys() []string
	// Get returns the value of the property, following the prototype chain.
	// Missing properties yield Undefined.
	Get(key string) Value
	// Has reports whether the property exists on the object or along its
	// prototype chain.
	Has(key string) bool
	// IsData reports whether key names an own data property, as opposed to
	// an accessor.
	IsData(key string) bool
}

// IsObject reports whether v is an object or a function. Null is not an
// object.
func IsObject(v Value) bool {
	_, ok := AsObject(v)
	return ok
}

// AsObject returns v as an Object if it is one.
func AsObject(v Value) (Object, bool) {
	if v == nil {
		return nil, false
	}
	switch v.Kind() {
	case KindObject, KindFunction:
		o, ok := v.(Object)
		return o, ok
	}
	return nil, false
}

// IsArray reports whether v is an array object.
func IsArray(v Value) bool {
	o, ok := AsObject(v)
	return ok && o.IsArray()
}

// IntrinsicOf returns the intrinsic name of v, or the empty string if v is not
// a well-known built-in.
func IntrinsicOf(v Value) string {
	if o, ok := AsObject(v); ok {
		return o.Intrinsic()
	}
	return ""
}

// Length returns the numeric "length" property of o, or zero if the property
// is missing or not a non-negative number.
func Length(o Object) int {
	n, ok := o.Get("length").(Number)
	if !ok || n < 0 || math.IsNaN(float64(n)) {
		return 0
	}
	return int(n)
}

// Truthy reports whether v converts to true in a boolean context.
func Truthy(v Value) bool {
	if v == nil {
		return false
	}
	switch v.Kind() {
	case KindUndefined, KindNull:
		return false
	case KindBoolean, KindBigInt:
		s := v.String()
		return s != "false" && s != "0"
	case KindNumber:
		s := v.String()
		return s != "0" && s != "NaN"
	case KindString:
		return v.String() != ""
	default:
		return true
	}
}

// Elements returns the indexed elements of an array-like object, from index
// zero up to its length.
func Elements(o Object) []Value {
	n := Length(o)
	elems := make([]Value, n)
	for i := range elems {
		elems[i] = o.Get(strconv.Itoa(i))
	}
	return elems
}

// Key converts a property key to the string it names. Strings are used as is;
// other values use their textual form.
func Key(v Value) string {
	if v == nil {
		return "undefined"
	}
	return v.String()
}

// Or returns v, or Undefined if v is nil.
func Or(v Value) Value {
	if v == nil {
		return Undefined
	}
	return v
}

type undefined struct{}

func (undefined) Kind() Kind     { return KindUndefined }
func (undefined) String() string { return "undefined" }

type null struct{}

func (null) Kind() Kind     { return KindNull }
func (null) String() string { return "null" }

var (
	// Undefined is the undefined value.
	Undefined Value = undefined{}
	// Null is the null value.
	Null Value = null{}
)

// Bool is a boolean value.
type Bool bool

func (b Bool) Kind() Kind { return KindBoolean }

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Number is a numeric value.
type Number float64

func (n Number) Kind() Kind { return KindNumber }

func (n Number) String() string {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, +1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if a := math.Abs(f); a >= 1e21 || a < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// String is a string value.
type String string

func (s String) Kind() Kind { return KindString }

func (s String) String() string { return string(s) }

// Symbol is a symbol value, represented by its description.
type Symbol string

func (s Symbol) Kind() Kind { return KindSymbol }

func (s Symbol) String() string { return "Symbol(" + string(s) + ")" }
