package textprint

import (
	"bufio"
	"fmt"
	"io"

	"github.com/stealthrocket/travioli/internal/stream"
)

// NewWriter returns a writer printing each value on its own line, in the form
// produced by the %v verb. Output is buffered until the writer is closed.
func NewWriter[T any](w io.Writer) stream.WriteCloser[T] {
	return &writer[T]{output: bufio.NewWriter(w)}
}

type writer[T any] struct {
	output *bufio.Writer
}

func (w *writer[T]) Write(values []T) (int, error) {
	for n, v := range values {
		if _, err := fmt.Fprintln(w.output, v); err != nil {
			return n, err
		}
	}
	return len(values), nil
}

func (w *writer[T]) Close() error {
	return w.output.Flush()
}
