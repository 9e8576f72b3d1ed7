// Package yamlprint writes streams of values as YAML documents separated by
// "---" lines.
package yamlprint

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/stealthrocket/travioli/internal/stream"
)

func NewWriter[T any](w io.Writer) stream.WriteCloser[T] {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &writer[T]{enc: enc}
}

type writer[T any] struct {
	enc   *yaml.Encoder
	count int
}

func (w *writer[T]) Write(values []T) (int, error) {
	for i, v := range values {
		if err := w.enc.Encode(v); err != nil {
			return i, err
		}
		w.count++
	}
	return len(values), nil
}

// Close terminates the stream. Closing a writer which never encoded a value
// produces no output.
func (w *writer[T]) Close() error {
	if w.count == 0 {
		return nil
	}
	return w.enc.Close()
}
