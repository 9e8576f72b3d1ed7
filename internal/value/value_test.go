package value_test

import (
	"math"
	"testing"

	"github.com/stealthrocket/travioli/internal/assert"
	"github.com/stealthrocket/travioli/internal/value"
)

func TestNumberString(t *testing.T) {
	tests := []struct {
		in  float64
		out string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-42, "-42"},
		{1.5, "1.5"},
		{0.1, "0.1"},
		{1e21, "1e+21"},
		{1.5e-7, "1.5e-7"},
		{123456789, "123456789"},
		{math.NaN(), "NaN"},
		{math.Inf(+1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}

	for _, test := range tests {
		t.Run(test.out, func(t *testing.T) {
			assert.Equal(t, value.Number(test.in).String(), test.out)
		})
	}
}

func TestKinds(t *testing.T) {
	assert.Equal(t, value.Undefined.Kind(), value.KindUndefined)
	assert.Equal(t, value.Null.Kind(), value.KindNull)
	assert.Equal(t, value.Bool(true).String(), "true")
	assert.Equal(t, value.Symbol("it").String(), "Symbol(it)")
	assert.Equal(t, value.IsObject(value.Null), false)
	assert.Equal(t, value.IsObject(value.NewObject()), true)
	assert.Equal(t, value.IsObject(value.NewFunction("f", 0)), true)
	assert.Equal(t, value.NewFunction("f", 0).Kind(), value.KindFunction)
}

func TestObjectKeys(t *testing.T) {
	o := value.NewObject()
	o.Set("b", value.Number(1))
	o.Set("10", value.Number(2))
	o.Set("a", value.Number(3))
	o.Set("2", value.Number(4))
	o.Define("hidden", value.Property{Value: value.Null})

	assert.EqualAll(t, o.Keys(), []string{"2", "10", "b", "a"})
	assert.Equal(t, o.Get("hidden"), value.Null)
	assert.Equal(t, o.Get("missing"), value.Undefined)
}

func TestObjectPrototype(t *testing.T) {
	proto := value.NewObject()
	proto.Set("inherited", value.String("yes"))

	o := value.NewObject()
	o.SetPrototype(proto)

	assert.Equal(t, o.Has("inherited"), true)
	assert.Equal(t, o.IsData("inherited"), false)
	assert.Equal(t, o.Get("inherited"), value.Value(value.String("yes")))
	assert.EqualAll(t, o.Keys(), nil)
}

func TestArrayPushPop(t *testing.T) {
	a := value.NewArray(value.Number(1))
	assert.Equal(t, a.Push(value.Number(2), value.Number(3)), 3)
	assert.Equal(t, value.Length(a), 3)
	assert.EqualAll(t, a.Keys(), []string{"0", "1", "2"})
	assert.Equal(t, a.String(), "1,2,3")

	assert.Equal(t, a.Pop(), value.Value(value.Number(3)))
	assert.Equal(t, value.Length(a), 2)
	assert.EqualAll(t, a.Keys(), []string{"0", "1"})
}

func TestArguments(t *testing.T) {
	args := value.NewArguments(value.String("x"), value.Number(1))
	assert.Equal(t, args.IsArray(), false)
	assert.Equal(t, value.Length(args), 2)
	assert.EqualAll(t, args.Keys(), []string{"0", "1"})
}

func TestFunctionProperties(t *testing.T) {
	f := value.NewFunction("g", 2)
	assert.Equal(t, f.Get("name"), value.Value(value.String("g")))
	assert.Equal(t, f.Get("length"), value.Value(value.Number(2)))
	assert.Equal(t, value.IsObject(f.Get("prototype")), true)
	assert.EqualAll(t, f.Keys(), nil)

	push := value.NewBuiltin("Array.prototype.push", 1)
	assert.Equal(t, push.Name(), "push")
	assert.Equal(t, value.IntrinsicOf(push), "Array.prototype.push")
	assert.Equal(t, push.Has("prototype"), false)
}

func TestTruthy(t *testing.T) {
	for _, test := range []struct {
		value value.Value
		want  bool
	}{
		{value.Undefined, false},
		{value.Null, false},
		{value.Bool(false), false},
		{value.Bool(true), true},
		{value.Number(0), false},
		{value.Number(math.NaN()), false},
		{value.Number(-1), true},
		{value.String(""), false},
		{value.String("0"), true},
		{value.Symbol(""), true},
		{value.NewObject(), true},
		{value.NewArray(), true},
		{nil, false},
	} {
		assert.Equal(t, value.Truthy(test.value), test.want)
	}
}

func TestElements(t *testing.T) {
	args := value.NewArguments(value.Number(1), value.String("two"))
	elems := value.Elements(args)
	assert.Equal(t, len(elems), 2)
	assert.Equal(t, elems[0], value.Value(value.Number(1)))
	assert.Equal(t, elems[1], value.Value(value.String("two")))

	assert.Equal(t, len(value.Elements(value.NewObject())), 0)
}
