// Package shadow resolves the stable identities of runtime entities.
//
// Every object and every call frame of the instrumented program has a shadow
// maintained by the host's shadow memory manager. The shadow carries a small
// positive integer, its Identity, which names the entity for the lifetime of
// the process. The tracer never allocates identities itself: it forwards all
// lookups to the host through the Memory interface.
package shadow

import (
	"github.com/stealthrocket/travioli/internal/strtab"
	"github.com/stealthrocket/travioli/internal/value"
)

// Identity names one shadow object or one call frame. Zero means "none".
type Identity int64

// Memory is the interface of the host's shadow memory manager.
type Memory interface {
	// ObjectID returns the identity of the shadow of obj, allocating it on
	// first reference.
	ObjectID(obj value.Object) Identity

	// FrameID returns the identity of the frame that owns the binding name,
	// as seen from the frame currently executing.
	FrameID(name string) Identity

	// Property resolves the shadow of property key on base. The returned
	// owner is the identity of the object that actually holds the property
	// along the lookup chain, or zero if there is none. The boolean is false
	// when the access does not target a genuine property, in which case no
	// field record must be emitted. get distinguishes reads from writes.
	Property(base value.Value, key string, get bool) (owner Identity, isProperty bool)
}

// Registry is the identity registry of a tracer. It forwards identity lookups
// to the host's Memory and owns the string table.
type Registry struct {
	memory  Memory
	strings *strtab.Table
}

// NewRegistry constructs a registry resolving identities through memory.
func NewRegistry(memory Memory) *Registry {
	return &Registry{
		memory:  memory,
		strings: strtab.New(),
	}
}

// IdentityOf returns the identity of v if it is an object or a function, and
// zero otherwise.
func (r *Registry) IdentityOf(v value.Value) Identity {
	if obj, ok := value.AsObject(v); ok {
		return r.memory.ObjectID(obj)
	}
	return 0
}

// FrameOf returns the identity of the frame that owns the binding name.
func (r *Registry) FrameOf(name string) Identity {
	return r.memory.FrameID(name)
}

// Property forwards to Memory.Property.
func (r *Registry) Property(base value.Value, key string, get bool) (Identity, bool) {
	return r.memory.Property(base, key, get)
}

// Intern returns the string table index of s.
func (r *Registry) Intern(s string) strtab.Index {
	return r.strings.Intern(s)
}

// InternValue interns a string value, panicking on any other kind.
func (r *Registry) InternValue(v value.Value) strtab.Index {
	return r.strings.InternValue(v)
}

// Strings returns the string table of the registry.
func (r *Registry) Strings() *strtab.Table {
	return r.strings
}
