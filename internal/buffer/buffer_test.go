package buffer_test

import (
	"testing"

	"github.com/stealthrocket/travioli/internal/assert"
	"github.com/stealthrocket/travioli/internal/buffer"
)

func TestAlign(t *testing.T) {
	assert.Equal(t, buffer.Align(0, 4096), 0)
	assert.Equal(t, buffer.Align(1, 4096), 4096)
	assert.Equal(t, buffer.Align(4096, 4096), 4096)
	assert.Equal(t, buffer.Align(4097, 4096), 8192)
}

func TestPool(t *testing.T) {
	var pool buffer.Pool

	b := pool.Get(10)
	assert.Equal(t, b.Size(), 0)
	assert.Equal(t, cap(b.Data), buffer.DefaultSize)

	b.Data = append(b.Data, "hello"...)
	buffer.Release(&b, &pool)
	if b != nil {
		t.Fatal("released buffer pointer was not cleared")
	}

	b = pool.Get(buffer.DefaultSize * 2)
	assert.Equal(t, b.Size(), 0)
	if cap(b.Data) < buffer.DefaultSize*2 {
		t.Fatalf("buffer capacity is too small: %d", cap(b.Data))
	}
}
