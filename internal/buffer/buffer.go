// Package buffer provides pooled byte arenas.
package buffer

import "sync"

const DefaultSize = 4096

// Buffer is a byte arena. Data is the slice in use; its capacity may be
// larger and is retained when the buffer is returned to a pool.
type Buffer struct{ Data []byte }

func (buf *Buffer) Size() int {
	return len(buf.Data)
}

// Reset truncates the buffer to zero length, keeping its capacity.
func (buf *Buffer) Reset() {
	buf.Data = buf.Data[:0]
}

// Pool recycles buffers.
type Pool struct{ pool sync.Pool }

// Get returns a buffer with capacity of at least size. The returned buffer
// has zero length.
func (p *Pool) Get(size int) *Buffer {
	b, _ := p.pool.Get().(*Buffer)
	if b != nil {
		if size <= cap(b.Data) {
			b.Data = b.Data[:0]
			return b
		}
		p.Put(b)
	}
	return New(size)
}

func (p *Pool) Put(b *Buffer) {
	if b != nil {
		p.pool.Put(b)
	}
}

// New allocates a zero length buffer of the given capacity, rounded up to a
// multiple of DefaultSize.
func New(size int) *Buffer {
	return &Buffer{Data: make([]byte, 0, Align(size, DefaultSize))}
}

// Release returns *buf to the pool and clears the pointer.
func Release(buf **Buffer, pool *Pool) {
	if b := *buf; b != nil {
		*buf = nil
		pool.Put(b)
	}
}

func Align(size, to int) int {
	return ((size + (to - 1)) / to) * to
}
