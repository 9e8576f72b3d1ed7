// Package tracebuf implements the bounded buffer that stages trace records
// before they are delivered to a sink.
//
// Records are appended as text. The buffer never holds more than its maximum
// size: an incoming piece that would overflow it first causes the buffered
// pieces to be flushed, and text longer than the maximum is split into pieces
// of exactly the maximum size. Nothing is ever dropped or reordered before the
// buffer is stopped; after that, appends are silently discarded.
package tracebuf

import (
	"github.com/stealthrocket/travioli/internal/buffer"
)

// DefaultSize is the default maximum size of a buffer.
const DefaultSize = 64 * 1024

var arenaPool buffer.Pool

// Buffer accumulates trace text and flushes it to a Sink.
//
// A Buffer is not safe for concurrent use. The tracer drives it from the
// single thread of the instrumented program.
type Buffer struct {
	sink   Sink
	max    int
	arena  *buffer.Buffer
	pieces [][]byte
	done   bool
	// Once the sink failed, the buffer stops accepting text and every call
	// reports the same error.
	stickyErr error
}

// New constructs a buffer delivering chunks of at most max bytes to sink.
// A non-positive max selects DefaultSize.
func New(sink Sink, max int) *Buffer {
	if max <= 0 {
		max = DefaultSize
	}
	return &Buffer{sink: sink, max: max}
}

// Max returns the maximum number of bytes that the buffer holds.
func (b *Buffer) Max() int { return b.max }

// Size returns the number of bytes currently buffered.
func (b *Buffer) Size() int {
	if b.arena == nil {
		return 0
	}
	return b.arena.Size()
}

// Len returns the number of pieces currently buffered.
func (b *Buffer) Len() int { return len(b.pieces) }

// Stopped reports whether Stop was called.
func (b *Buffer) Stopped() bool { return b.done }

// Err returns the first error reported by the sink, if any.
func (b *Buffer) Err() error { return b.stickyErr }

// Append buffers text, splitting it in pieces no larger than the maximum
// size and flushing whenever the next piece would not fit.
//
// The text is copied and may be reused when the call returns. Appending to a
// stopped buffer does nothing and returns nil.
func (b *Buffer) Append(text []byte) error {
	if b.done {
		return nil
	}
	if b.stickyErr != nil {
		return b.stickyErr
	}
	for len(text) > 0 {
		n := min(len(text), b.max)
		if b.Size()+n > b.max {
			if err := b.Flush(); err != nil {
				return err
			}
		}
		b.push(text[:n])
		text = text[n:]
	}
	return nil
}

// AppendString is like Append but takes a string.
func (b *Buffer) AppendString(text string) error {
	return b.Append([]byte(text))
}

// The arena has a capacity of at least max and is never grown past it, so the
// pieces remain valid subslices of it until the next flush.
func (b *Buffer) push(piece []byte) {
	if b.arena == nil {
		b.arena = arenaPool.Get(b.max)
	}
	i := len(b.arena.Data)
	b.arena.Data = append(b.arena.Data, piece...)
	b.pieces = append(b.pieces, b.arena.Data[i:len(b.arena.Data):len(b.arena.Data)])
}

// Flush hands the buffered pieces to the sink, in order, and clears the
// buffer. Flushing an empty buffer does not call the sink.
func (b *Buffer) Flush() error {
	if b.stickyErr != nil {
		return b.stickyErr
	}
	if len(b.pieces) == 0 {
		return nil
	}
	err := b.sink.WriteChunk(b.pieces)
	clear(b.pieces)
	b.pieces = b.pieces[:0]
	b.arena.Reset()
	if err != nil {
		b.stickyErr = err
	}
	return err
}

// Stop flushes the buffer one last time and releases its memory. Later calls
// to Append are ignored. Stop is idempotent; it does not close the sink.
func (b *Buffer) Stop() error {
	if b.done {
		return b.stickyErr
	}
	err := b.Flush()
	b.done = true
	b.pieces = nil
	buffer.Release(&b.arena, &arenaPool)
	return err
}
