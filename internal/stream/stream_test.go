package stream_test

import (
	"errors"
	"io"
	"strconv"
	"testing"

	"github.com/stealthrocket/travioli/internal/assert"
	"github.com/stealthrocket/travioli/internal/stream"
)

func TestReadAll(t *testing.T) {
	values := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	reader := stream.NewReader(values...)

	read, err := stream.ReadAll(reader)
	assert.OK(t, err)
	assert.EqualAll(t, read, values)
}

func TestCopy(t *testing.T) {
	values := make([]int, 100)
	for i := range values {
		values[i] = i
	}

	w := new(sliceWriter[int])
	n, err := stream.Copy[int](w, chunks([][]int{values[:7], {}, values[7:50], values[50:]}))
	assert.OK(t, err)
	assert.Equal(t, n, int64(len(values)))
	assert.EqualAll(t, w.values, values)
}

func TestCopyWriteError(t *testing.T) {
	failure := errors.New("failure")
	w := &failingWriter[int]{err: failure}

	_, err := stream.Copy[int](w, stream.NewReader(1, 2, 3))
	assert.Error(t, err, failure)
}

func TestConvertReader(t *testing.T) {
	r := stream.ConvertReader[string](stream.NewReader(1, 2, 3), func(i int) (string, error) {
		return strconv.Itoa(i), nil
	})
	values, err := stream.ReadAll(r)
	assert.OK(t, err)
	assert.EqualAll(t, values, []string{"1", "2", "3"})
}

func TestConvertReaderError(t *testing.T) {
	failure := errors.New("failure")
	r := stream.ConvertReader[string](stream.NewReader(1, 2, 3), func(i int) (string, error) {
		if i == 3 {
			return "", failure
		}
		return strconv.Itoa(i), nil
	})
	values := make([]string, 10)
	n, err := r.Read(values)
	assert.Error(t, err, failure)
	assert.EqualAll(t, values[:n], []string{"1", "2"})
}

func TestConvertWriter(t *testing.T) {
	w := new(sliceWriter[string])
	n, err := stream.Copy[int](stream.ConvertWriter[string](w, func(i int) (string, error) {
		return strconv.Itoa(i * 10), nil
	}), stream.NewReader(1, 2, 3))
	assert.OK(t, err)
	assert.Equal(t, n, int64(3))
	assert.EqualAll(t, w.values, []string{"10", "20", "30"})
}

// chunks returns a reader producing at most one of the chunks per call to Read.
func chunks[T any](c [][]T) stream.Reader[T] { return &chunkReader[T]{chunks: c} }

type chunkReader[T any] struct{ chunks [][]T }

func (r *chunkReader[T]) Read(values []T) (int, error) {
	for len(r.chunks) > 0 && len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(values, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	return n, nil
}

type sliceWriter[T any] struct{ values []T }

func (w *sliceWriter[T]) Write(values []T) (int, error) {
	w.values = append(w.values, values...)
	return len(values), nil
}

type failingWriter[T any] struct{ err error }

func (w *failingWriter[T]) Write([]T) (int, error) { return 0, w.err }

var _ io.Closer = (stream.WriteCloser[int])(nil)
