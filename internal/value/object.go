package value

import (
	"sort"
	"strconv"
	"strings"
)

// Property is an own property of an Obj.
type Property struct {
	Value      Value
	Accessor   bool
	Enumerable bool
}

// Obj is a reference implementation of Object.
//
// Properties are kept in insertion order; enumeration lists integer keys in
// ascending order first, then the remaining keys in insertion order.
type Obj struct {
	intrinsic string
	array     bool
	proto     Object
	keys      []string
	props     map[string]*Property
}

// NewObject constructs an empty object.
func NewObject() *Obj {
	return &Obj{props: make(map[string]*Property)}
}

// NewArray constructs an array holding the given elements.
func NewArray(elems ...Value) *Obj {
	a := NewObject()
	a.array = true
	a.Define("length", Property{Value: Number(0)})
	a.Push(elems...)
	return a
}

// NewArguments constructs the arguments-like collection of a call frame. It
// has indexed elements and a length, but is not an array.
func NewArguments(args ...Value) *Obj {
	o := NewObject()
	for i, arg := range args {
		o.Set(strconv.Itoa(i), arg)
	}
	o.Define("length", Property{Value: Number(len(args))})
	return o
}

// NewIntrinsic returns o after tagging it with the given intrinsic name.
func NewIntrinsic(name string, o *Obj) *Obj {
	o.intrinsic = name
	return o
}

func (o *Obj) Kind() Kind { return KindObject }

func (o *Obj) String() string {
	if !o.array {
		return "[object Object]"
	}
	n := Length(o)
	elems := make([]string, n)
	for i := range elems {
		switch v := o.Get(strconv.Itoa(i)); v.Kind() {
		case KindUndefined, KindNull:
		default:
			elems[i] = v.String()
		}
	}
	return strings.Join(elems, ",")
}

func (o *Obj) Intrinsic() string { return o.intrinsic }

func (o *Obj) IsArray() bool { return o.array }

// SetPrototype sets the object that property lookups fall back to.
func (o *Obj) SetPrototype(proto Object) { o.proto = proto }

// Prototype returns the object's prototype, or nil.
func (o *Obj) Prototype() Object { return o.proto }

func (o *Obj) Keys() []string {
	var indexes []int
	var names []string
	for _, key := range o.keys {
		if !o.props[key].Enumerable {
			continue
		}
		if i, ok := arrayIndex(key); ok {
			indexes = append(indexes, i)
		} else {
			names = append(names, key)
		}
	}
	sort.Ints(indexes)
	keys := make([]string, 0, len(indexes)+len(names))
	for _, i := range indexes {
		keys = append(keys, strconv.Itoa(i))
	}
	return append(keys, names...)
}

func (o *Obj) Get(key string) Value {
	if p, ok := o.props[key]; ok {
		return Or(p.Value)
	}
	if o.proto != nil {
		return o.proto.Get(key)
	}
	return Undefined
}

func (o *Obj) Has(key string) bool {
	if _, ok := o.props[key]; ok {
		return true
	}
	return o.proto != nil && o.proto.Has(key)
}

func (o *Obj) IsData(key string) bool {
	p, ok := o.props[key]
	return ok && !p.Accessor
}

// HasAccessor reports whether key names an own accessor property.
func (o *Obj) HasAccessor(key string) bool {
	p, ok := o.props[key]
	return ok && p.Accessor
}

// Set assigns an enumerable data property. Assigning an index past the end
// of an array extends its length.
func (o *Obj) Set(key string, v Value) {
	if p, ok := o.props[key]; ok {
		p.Value = v
	} else {
		o.Define(key, Property{Value: v, Enumerable: true})
	}
	if o.array {
		if i, ok := arrayIndex(key); ok && i >= Length(o) {
			o.props["length"].Value = Number(i + 1)
		}
	}
}

// Define creates or replaces an own property.
func (o *Obj) Define(key string, p Property) {
	if _, ok := o.props[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.props[key] = &p
}

// Delete removes an own property.
func (o *Obj) Delete(key string) {
	if _, ok := o.props[key]; !ok {
		return
	}
	delete(o.props, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Push appends elements to an array and returns its new length.
func (o *Obj) Push(elems ...Value) int {
	n := Length(o)
	for _, elem := range elems {
		o.Set(strconv.Itoa(n), elem)
		n++
	}
	return n
}

// Pop removes the last element of an array and returns it.
func (o *Obj) Pop() Value {
	n := Length(o)
	if n == 0 {
		return Undefined
	}
	key := strconv.Itoa(n - 1)
	v := o.Get(key)
	o.Delete(key)
	o.props["length"].Value = Number(n - 1)
	return v
}

func arrayIndex(key string) (int, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// Func is a reference implementation of function objects.
type Func struct {
	*Obj
	name string
}

// NewFunction constructs a program-defined function with the implicit "name",
// "length" and "prototype" properties.
func NewFunction(name string, length int) *Func {
	f := &Func{Obj: NewObject(), name: name}
	f.Define("name", Property{Value: String(name)})
	f.Define("length", Property{Value: Number(length)})
	f.Define("prototype", Property{Value: NewObject()})
	return f
}

// NewBuiltin constructs a built-in function identified by its intrinsic name,
// for example "Array.prototype.map".
func NewBuiltin(intrinsic string, length int) *Func {
	name := intrinsic
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	f := &Func{Obj: NewIntrinsic(intrinsic, NewObject()), name: name}
	f.Define("name", Property{Value: String(name)})
	f.Define("length", Property{Value: Number(length)})
	return f
}

func (f *Func) Kind() Kind { return KindFunction }

func (f *Func) String() string {
	if f.Intrinsic() != "" {
		return "function " + f.name + "() { [native code] }"
	}
	return "function " + f.name + "() {}"
}

// Name returns the function name.
func (f *Func) Name() string { return f.name }

var (
	_ Object = (*Obj)(nil)
	_ Object = (*Func)(nil)
)
