package tracefile

import (
	"bufio"
	"fmt"
	"io"

	"github.com/stealthrocket/travioli/internal/stream"
)

const maxLineSize = 1024 * 1024

// Reader decodes records from a trace file. It implements
// stream.Reader[Record].
type Reader struct {
	input *bufio.Scanner
	line  int
}

// NewReader constructs a reader of the trace file content exposed by r.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{input: s}
}

// Read decodes up to len(records) records. Empty lines are skipped. Decoding
// errors report the line number of the offending record.
func (r *Reader) Read(records []Record) (n int, err error) {
	for n < len(records) {
		if !r.input.Scan() {
			if err := r.input.Err(); err != nil {
				return n, fmt.Errorf("reading trace line %d: %w", r.line+1, err)
			}
			return n, io.EOF
		}
		r.line++

		line := r.input.Text()
		if line == "" {
			continue
		}
		record, err := Parse(line)
		if err != nil {
			return n, fmt.Errorf("trace line %d: %w", r.line, err)
		}
		records[n] = record
		n++
	}
	return n, nil
}

// Line returns the number of lines consumed so far.
func (r *Reader) Line() int { return r.line }

var _ stream.Reader[Record] = (*Reader)(nil)
