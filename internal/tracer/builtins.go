package tracer

import (
	"strconv"
	"strings"

	"github.com/stealthrocket/travioli/internal/value"
)

// effect describes how a built-in function touches the properties of its
// receiver, arguments, or result. Built-ins run uninstrumented, so the tracer
// approximates their property accesses.
type effect uint8

const (
	// readBefore reads every own property of the array receiver before the
	// call.
	readBefore effect = 1 << iota
	// writeResult writes every own property of the returned array.
	writeResult
	// writeBase writes every own property of the array receiver after the
	// call.
	writeBase
	// pushIndices writes one index per pushed element.
	pushIndices
	// popLength reads then writes the length of the receiver.
	popLength
)

var arrayMethods = map[string]effect{
	"concat":         readBefore | writeResult,
	"copyWithin":     writeBase,
	"entries":        readBefore,
	"every":          readBefore,
	"fill":           writeBase,
	"filter":         readBefore,
	"find":           readBefore,
	"findIndex":      readBefore,
	"forEach":        readBefore,
	"includes":       readBefore,
	"indexOf":        readBefore,
	"join":           readBefore,
	"lastIndexOf":    readBefore,
	"map":            readBefore,
	"pop":            popLength,
	"push":           pushIndices,
	"reduce":         readBefore,
	"reduceRight":    readBefore,
	"reverse":        readBefore | writeBase,
	"shift":          writeBase,
	"slice":          writeResult,
	"some":           readBefore,
	"sort":           readBefore | writeBase,
	"splice":         writeResult | writeBase,
	"toLocaleString": readBefore,
	"toString":       readBefore,
	"unshift":        writeBase,
	"values":         readBefore,
}

const (
	arrayPrototype       = "Array.prototype"
	arrayPrototypePrefix = arrayPrototype + "."
	functionCall         = "Function.prototype.call"
	functionApply        = "Function.prototype.apply"
	arrayConstructor     = "Array"
	objectConstructor    = "Object"
	functionConstructor  = "Function"
	arrayFrom            = "Array.from"
	arrayOf              = "Array.of"
	objectDefineProperty = "Object.defineProperty"
	objectDefineProps    = "Object.defineProperties"
)

func arrayMethod(f value.Value) (effect, bool) {
	name, ok := strings.CutPrefix(value.IntrinsicOf(f), arrayPrototypePrefix)
	if !ok {
		return 0, false
	}
	e, ok := arrayMethods[name]
	return e, ok
}

// redirect rewrites an invocation through Function.prototype.call or
// Function.prototype.apply as the invocation of the target function. It
// reports false if f is neither.
func redirect(f, base value.Value, args []value.Value) (value.Value, value.Value, []value.Value, bool) {
	switch value.IntrinsicOf(f) {
	case functionCall:
		this := value.Undefined
		if len(args) > 0 {
			this, args = args[0], args[1:]
		}
		return base, this, args, true
	case functionApply:
		this := value.Undefined
		if len(args) > 0 {
			this = args[0]
		}
		var list []value.Value
		if len(args) > 1 && value.Truthy(args[1]) {
			if o, ok := value.AsObject(args[1]); ok && o.Has("length") {
				list = value.Elements(o)
			}
		}
		return base, this, list, true
	}
	return nil, nil, nil, false
}

// receiver returns the array an array method operates on and the remaining
// arguments. Methods invoked on Array.prototype itself apply to their first
// argument.
func receiver(base value.Value, args []value.Value) (value.Object, []value.Value, bool) {
	if value.IntrinsicOf(base) == arrayPrototype {
		if len(args) == 0 {
			return nil, nil, false
		}
		base, args = args[0], args[1:]
	}
	o, ok := value.AsObject(base)
	return o, args, ok
}

func (t *Tracer) InvokeFunPre(site int, f, base value.Value, args []value.Value, isConstructor, isMethod bool) {
	t.setLastSite(site)
	if isMethod {
		if f, base, args, ok := redirect(f, base, args); ok {
			t.InvokeFunPre(site, f, base, args, isConstructor, value.Truthy(base))
			return
		}
	}
	if !isMethod || !value.IsArray(base) {
		return
	}
	e, ok := arrayMethod(f)
	if !ok || e&readBefore == 0 {
		return
	}
	if arr, _, ok := receiver(base, args); ok {
		t.readOwnProps(site, arr)
	}
}

func (t *Tracer) InvokeFun(site int, f, base value.Value, args []value.Value, result value.Value, isConstructor, isMethod bool) {
	if isMethod {
		if f, base, args, ok := redirect(f, base, args); ok {
			t.InvokeFun(site, f, base, args, result, isConstructor, value.Truthy(base))
			return
		}
	}

	switch intrinsic := value.IntrinsicOf(f); {
	case isConstructor:
		obj, ok := value.AsObject(result)
		if !ok {
			return
		}
		switch intrinsic {
		case arrayConstructor, objectConstructor:
			t.writeOwnProps(site, obj)
		case functionConstructor:
			t.writeFunctionProps(site, obj)
		}

	case isMethod && value.IsArray(base):
		e, ok := arrayMethod(f)
		if !ok {
			return
		}
		t.arrayEffects(site, e, base, args, result)

	case intrinsic == arrayFrom || intrinsic == arrayOf:
		if obj, ok := value.AsObject(result); ok {
			t.writeProp(site, obj, "length")
			t.writeOwnProps(site, obj)
		}

	case intrinsic == objectDefineProperty:
		if len(args) < 2 {
			return
		}
		obj, ok := value.AsObject(args[0])
		if !ok {
			return
		}
		if len(args) == 2 {
			t.writeProp(site, obj, value.Key(args[1]))
			return
		}
		if desc, ok := value.AsObject(args[2]); ok && desc.Has("value") {
			t.writeProp(site, obj, value.Key(args[1]))
		}

	case intrinsic == objectDefineProps:
		if len(args) < 2 {
			return
		}
		obj, ok := value.AsObject(args[0])
		if !ok {
			return
		}
		props, ok := value.AsObject(args[1])
		if !ok {
			return
		}
		for _, key := range props.Keys() {
			if desc, ok := value.AsObject(props.Get(key)); ok && desc.Has("value") {
				t.writeProp(site, obj, key)
			}
		}
	}
}

func (t *Tracer) arrayEffects(site int, e effect, base value.Value, args []value.Value, result value.Value) {
	arr, params, ok := receiver(base, args)
	if !ok {
		return
	}
	if e&writeResult != 0 {
		if res, ok := value.AsObject(result); ok {
			t.writeOwnProps(site, res)
		}
	}
	if e&writeBase != 0 {
		t.writeOwnProps(site, arr)
	}
	if e&popLength != 0 {
		t.readProp(site, arr, "length")
		t.writeProp(site, arr, "length")
	}
	if e&pushIndices != 0 {
		// Pushed elements occupy the last indices; they are written
		// from the highest index down.
		n := value.Length(arr)
		for i := 0; i < len(params); i++ {
			index := n - 1 - i
			if index < 0 {
				break
			}
			t.writeProp(site, arr, strconv.Itoa(index))
		}
	}
}
