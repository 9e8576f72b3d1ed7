package tracebuf_test

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stealthrocket/travioli/internal/assert"
	"github.com/stealthrocket/travioli/internal/tracebuf"
)

// recorder is a sink keeping a copy of every chunk it receives.
type recorder struct {
	chunks [][]string
	err    error
}

func (r *recorder) WriteChunk(pieces [][]byte) error {
	if r.err != nil {
		return r.err
	}
	chunk := make([]string, len(pieces))
	for i, piece := range pieces {
		chunk[i] = string(piece)
	}
	r.chunks = append(r.chunks, chunk)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) String() string {
	var s strings.Builder
	for _, chunk := range r.chunks {
		for _, piece := range chunk {
			s.WriteString(piece)
		}
	}
	return s.String()
}

func TestAppendSplitsLargeText(t *testing.T) {
	sink := new(recorder)
	b := tracebuf.New(sink, 8)

	assert.OK(t, b.Append([]byte("0123456789")))
	assert.Equal(t, len(sink.chunks), 1)
	assert.EqualAll(t, sink.chunks[0], []string{"01234567"})
	assert.Equal(t, b.Size(), 2)

	assert.OK(t, b.Flush())
	assert.Equal(t, len(sink.chunks), 2)
	assert.EqualAll(t, sink.chunks[1], []string{"89"})
}

func TestAppendFlushesBeforeOverflow(t *testing.T) {
	sink := new(recorder)
	b := tracebuf.New(sink, 8)

	assert.OK(t, b.Append([]byte("abc")))
	assert.OK(t, b.Append([]byte("def")))
	assert.Equal(t, len(sink.chunks), 0)
	assert.Equal(t, b.Len(), 2)

	assert.OK(t, b.Append([]byte("ghi")))
	assert.Equal(t, len(sink.chunks), 1)
	assert.EqualAll(t, sink.chunks[0], []string{"abc", "def"})
	assert.Equal(t, b.Size(), 3)
}

func TestAppendExactFit(t *testing.T) {
	sink := new(recorder)
	b := tracebuf.New(sink, 4)

	assert.OK(t, b.AppendString("ab"))
	assert.OK(t, b.AppendString("cd"))
	assert.Equal(t, len(sink.chunks), 0)
	assert.Equal(t, b.Size(), 4)
}

func TestFlushEmptyBuffer(t *testing.T) {
	sink := new(recorder)
	b := tracebuf.New(sink, 8)

	assert.OK(t, b.Flush())
	assert.OK(t, b.Flush())
	assert.Equal(t, len(sink.chunks), 0)

	assert.OK(t, b.AppendString(""))
	assert.OK(t, b.Flush())
	assert.Equal(t, len(sink.chunks), 0)
}

func TestBufferRandomAppends(t *testing.T) {
	prng := rand.New(rand.NewSource(0))
	sink := new(recorder)
	b := tracebuf.New(sink, 16)

	var input strings.Builder
	for i := 0; i < 1000; i++ {
		text := make([]byte, prng.Intn(40))
		for j := range text {
			text[j] = 'a' + byte(prng.Intn(26))
		}
		input.Write(text)

		assert.OK(t, b.Append(text))
		assert.LessOrEqual(t, b.Size(), b.Max())

		if prng.Intn(10) == 0 {
			assert.OK(t, b.Flush())
			assert.Equal(t, b.Size(), 0)
		}
	}
	assert.OK(t, b.Stop())

	for _, chunk := range sink.chunks {
		size := 0
		for _, piece := range chunk {
			size += len(piece)
		}
		assert.LessOrEqual(t, size, 16)
		if len(chunk) == 0 {
			t.Fatal("empty chunk handed to the sink")
		}
	}
	assert.Equal(t, sink.String(), input.String())
}

func TestAppendCopiesText(t *testing.T) {
	sink := new(recorder)
	b := tracebuf.New(sink, 8)

	text := []byte("abc")
	assert.OK(t, b.Append(text))
	copy(text, "xyz")
	assert.OK(t, b.Flush())
	assert.EqualAll(t, sink.chunks[0], []string{"abc"})
}

func TestStopThenAppend(t *testing.T) {
	sink := new(recorder)
	b := tracebuf.New(sink, 8)

	assert.OK(t, b.Append([]byte("abc")))
	assert.OK(t, b.Stop())
	assert.Equal(t, b.Stopped(), true)
	assert.Equal(t, len(sink.chunks), 1)

	assert.OK(t, b.Append([]byte("x")))
	assert.OK(t, b.Flush())
	assert.OK(t, b.Stop())
	assert.Equal(t, len(sink.chunks), 1)
	assert.Equal(t, sink.String(), "abc")
}

func TestSinkErrorIsSticky(t *testing.T) {
	failure := errors.New("disk full")
	sink := &recorder{err: failure}
	b := tracebuf.New(sink, 4)

	assert.OK(t, b.Append([]byte("ab")))
	assert.Error(t, b.Append([]byte("cdef")), failure)
	assert.Error(t, b.AppendString("g"), failure)
	assert.Error(t, b.Flush(), failure)
	assert.Error(t, b.Err(), failure)
	assert.Error(t, b.Stop(), failure)
}

func TestFileSinkLazyOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".travioli", "trace.csv")
	sink := tracebuf.NewFileSink(path)
	b := tracebuf.New(sink, 8)

	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("trace file exists before the first flush: %v", err)
	}

	assert.OK(t, b.AppendString("R,1,2,3,-1,4,P\n"))
	assert.OK(t, b.Stop())
	assert.OK(t, tracebuf.Sync(context.Background(), sink))
	assert.OK(t, sink.Close())
	assert.Equal(t, sink.Written(), int64(len("R,1,2,3,-1,4,P\n")))

	data, err := os.ReadFile(path)
	assert.OK(t, err)
	assert.Equal(t, string(data), "R,1,2,3,-1,4,P\n")

	assert.Error(t, sink.WriteChunk([][]byte{[]byte("x")}), os.ErrClosed)
}

func TestWriterSink(t *testing.T) {
	out := new(bytes.Buffer)
	b := tracebuf.New(tracebuf.NewWriterSink(out), 3)

	assert.OK(t, b.AppendString("hello, "))
	assert.OK(t, b.AppendString("world"))
	assert.OK(t, b.Stop())
	assert.Equal(t, out.String(), "hello, world")
}

func TestDiscard(t *testing.T) {
	b := tracebuf.New(tracebuf.Discard, 0)
	assert.Equal(t, b.Max(), tracebuf.DefaultSize)
	assert.OK(t, b.AppendString("anything"))
	assert.OK(t, b.Stop())
	assert.OK(t, tracebuf.Sync(context.Background(), tracebuf.Discard))
}
