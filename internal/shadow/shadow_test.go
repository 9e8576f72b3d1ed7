package shadow_test

import (
	"testing"

	"github.com/stealthrocket/travioli/internal/assert"
	"github.com/stealthrocket/travioli/internal/shadow"
	"github.com/stealthrocket/travioli/internal/strtab"
	"github.com/stealthrocket/travioli/internal/value"
)

func TestIdentityIsStable(t *testing.T) {
	heap := shadow.NewHeap()
	registry := shadow.NewRegistry(heap)

	a := value.NewObject()
	b := value.NewArray()
	f := value.NewFunction("f", 0)

	ids := map[shadow.Identity]bool{heap.Global(): true}
	for _, v := range []value.Value{a, b, f} {
		id := registry.IdentityOf(v)
		if ids[id] {
			t.Fatalf("identity %d allocated twice", id)
		}
		ids[id] = true
		for i := 0; i < 3; i++ {
			assert.Equal(t, registry.IdentityOf(v), id)
		}
	}
}

func TestIdentityOfPrimitives(t *testing.T) {
	registry := shadow.NewRegistry(shadow.NewHeap())

	for _, v := range []value.Value{
		value.Undefined,
		value.Null,
		value.Bool(false),
		value.Number(1),
		value.String("s"),
		value.Symbol("s"),
	} {
		assert.Equal(t, registry.IdentityOf(v), shadow.Identity(0))
	}
}

func TestFramesDoNotCollideWithObjects(t *testing.T) {
	heap := shadow.NewHeap()
	obj := heap.ObjectID(value.NewObject())
	frame := heap.Enter(0)

	if obj == frame || obj == heap.Global() || frame == heap.Global() {
		t.Fatalf("identities collide: object=%d frame=%d global=%d", obj, frame, heap.Global())
	}
}

func TestFrameResolution(t *testing.T) {
	heap := shadow.NewHeap()
	heap.Declare("x")
	global := heap.Global()

	outer := heap.Enter(0)
	heap.Declare("y")
	assert.Equal(t, heap.Current(), outer)
	assert.Equal(t, heap.FrameID("this"), outer)
	assert.Equal(t, heap.FrameID("y"), outer)
	assert.Equal(t, heap.FrameID("x"), global)

	inner := heap.Enter(outer)
	assert.Equal(t, heap.Depth(), 2)
	assert.Equal(t, heap.FrameID("y"), outer)
	assert.Equal(t, heap.FrameID("this"), inner)
	assert.Equal(t, heap.FrameID("undeclared"), global)

	heap.Exit()
	heap.Exit()
	heap.Exit()
	assert.Equal(t, heap.Current(), global)
	assert.Equal(t, heap.Depth(), 0)
}

func TestPropertyOwner(t *testing.T) {
	heap := shadow.NewHeap()

	proto := value.NewObject()
	proto.Set("shared", value.Number(1))
	obj := value.NewObject()
	obj.SetPrototype(proto)
	obj.Set("own", value.Number(2))

	owner, ok := heap.Property(obj, "own", true)
	assert.Equal(t, ok, true)
	assert.Equal(t, owner, heap.ObjectID(obj))

	owner, ok = heap.Property(obj, "shared", true)
	assert.Equal(t, ok, true)
	assert.Equal(t, owner, heap.ObjectID(proto))

	owner, ok = heap.Property(obj, "missing", true)
	assert.Equal(t, ok, true)
	assert.Equal(t, owner, shadow.Identity(0))

	owner, ok = heap.Property(obj, "shared", false)
	assert.Equal(t, ok, true)
	assert.Equal(t, owner, heap.ObjectID(obj))

	_, ok = heap.Property(value.String("abc"), "length", true)
	assert.Equal(t, ok, false)
}

func TestRegistryInterning(t *testing.T) {
	registry := shadow.NewRegistry(shadow.NewHeap())
	assert.Equal(t, registry.Intern("this"), strtab.Index(-1))
	assert.Equal(t, registry.InternValue(value.String("x")), strtab.Index(-2))
	assert.Equal(t, registry.Intern("this"), strtab.Index(-1))
	assert.Equal(t, registry.Strings().Len(), 2)
}
