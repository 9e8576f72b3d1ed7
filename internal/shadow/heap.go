package shadow

import "github.com/stealthrocket/travioli/internal/value"

// Heap is an in-process implementation of Memory.
//
// Objects and frames draw identities from the same counter, so an identity
// never names both an object and a frame. Objects are keyed by interface
// equality and must therefore be comparable (pointer types are).
//
// Frames form lexical chains: a binding resolves to the nearest enclosing
// frame that declared it, falling back to the global frame.
type Heap struct {
	last    Identity
	objects map[value.Object]Identity
	frames  map[Identity]*frame
	global  *frame
	stack   []*frame
}

type frame struct {
	id     Identity
	parent *frame
	names  map[string]struct{}
}

// NewHeap constructs a heap whose global frame is the current frame.
func NewHeap() *Heap {
	h := &Heap{
		objects: make(map[value.Object]Identity),
		frames:  make(map[Identity]*frame),
	}
	h.global = h.newFrame(nil)
	h.stack = []*frame{h.global}
	return h
}

func (h *Heap) allocate() Identity {
	h.last++
	return h.last
}

func (h *Heap) newFrame(parent *frame) *frame {
	f := &frame{
		id:     h.allocate(),
		parent: parent,
		names:  make(map[string]struct{}),
	}
	h.frames[f.id] = f
	return f
}

// Global returns the identity of the global frame.
func (h *Heap) Global() Identity { return h.global.id }

// Current returns the identity of the frame currently executing.
func (h *Heap) Current() Identity { return h.stack[len(h.stack)-1].id }

// Depth returns the number of frames pushed by Enter and not yet exited.
func (h *Heap) Depth() int { return len(h.stack) - 1 }

// Enter pushes a new activation whose lexical parent is the given frame, or
// the global frame if parent is zero or unknown. The frame declares "this" and
// "arguments".
func (h *Heap) Enter(parent Identity) Identity {
	p, ok := h.frames[parent]
	if !ok {
		p = h.global
	}
	f := h.newFrame(p)
	f.names["this"] = struct{}{}
	f.names["arguments"] = struct{}{}
	h.stack = append(h.stack, f)
	return f.id
}

// Exit pops the current activation. The global frame is never popped.
func (h *Heap) Exit() {
	if len(h.stack) > 1 {
		h.stack[len(h.stack)-1] = nil
		h.stack = h.stack[:len(h.stack)-1]
	}
}

// Declare binds names in the current frame.
func (h *Heap) Declare(names ...string) {
	f := h.stack[len(h.stack)-1]
	for _, name := range names {
		f.names[name] = struct{}{}
	}
}

func (h *Heap) ObjectID(obj value.Object) Identity {
	id, ok := h.objects[obj]
	if !ok {
		id = h.allocate()
		h.objects[obj] = id
	}
	return id
}

func (h *Heap) FrameID(name string) Identity {
	for f := h.stack[len(h.stack)-1]; f != nil; f = f.parent {
		if _, ok := f.names[name]; ok {
			return f.id
		}
	}
	return h.global.id
}

// Property reports accesses on objects as genuine properties. Reads are owned
// by the first object along the prototype chain that holds the key; writes
// always land on the base object.
func (h *Heap) Property(base value.Value, key string, get bool) (Identity, bool) {
	obj, ok := value.AsObject(base)
	if !ok {
		return 0, false
	}
	if !get {
		return h.ObjectID(obj), true
	}
	for o := obj; o != nil; o = prototypeOf(o) {
		if o.IsData(key) || ownAccessor(o, key) {
			return h.ObjectID(o), true
		}
	}
	return 0, true
}

type prototyped interface{ Prototype() value.Object }

func prototypeOf(o value.Object) value.Object {
	if p, ok := o.(prototyped); ok {
		return p.Prototype()
	}
	return nil
}

type accessors interface{ HasAccessor(key string) bool }

func ownAccessor(o value.Object, key string) bool {
	a, ok := o.(accessors)
	return ok && a.HasAccessor(key)
}

var _ Memory = (*Heap)(nil)
