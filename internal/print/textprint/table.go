// Package textprint writes streams of values as human readable text.
package textprint

import (
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/stealthrocket/travioli/internal/stream"
)

type TableOption[T any] func(*tableWriter[T])

func Header[T any](enable bool) TableOption[T] {
	return func(t *tableWriter[T]) { t.header = enable }
}

// List restricts the output to the column tagged with "list".
func List[T any](enable bool) TableOption[T] {
	return func(t *tableWriter[T]) { t.list = enable }
}

// OrderBy sorts the rows of the table with f, which returns a negative number
// when the first row is ordered before the second.
func OrderBy[T any](f func(T, T) int) TableOption[T] {
	return func(t *tableWriter[T]) { t.orderBy = f }
}

// NewTableWriter returns a writer buffering rows of type T, which must be a
// struct or a pointer to a struct, and printing them as aligned columns when
// closed. Column names come from the "text" tag of exported fields; fields
// tagged "-" are omitted.
func NewTableWriter[T any](w io.Writer, opts ...TableOption[T]) stream.WriteCloser[T] {
	t := &tableWriter[T]{
		output: w,
		header: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type tableWriter[T any] struct {
	output  io.Writer
	values  []T
	header  bool
	list    bool
	orderBy func(T, T) int
}

type column struct {
	name  string
	index []int
	list  bool
}

func columnsOf(t reflect.Type) []column {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	var columns []column
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		c := column{name: f.Name, index: f.Index}
		if tag, ok := f.Tag.Lookup("text"); ok {
			name, opts, _ := strings.Cut(tag, ",")
			if name == "-" {
				continue
			}
			if name != "" {
				c.name = name
			}
			c.list = opts == "list"
		}
		columns = append(columns, c)
	}
	return columns
}

func (t *tableWriter[T]) Write(values []T) (int, error) {
	t.values = append(t.values, values...)
	return len(values), nil
}

func (t *tableWriter[T]) Close() error {
	if t.orderBy != nil {
		slices.SortStableFunc(t.values, t.orderBy)
	}

	columns := columnsOf(reflect.TypeOf((*T)(nil)).Elem())
	if t.list {
		i := slices.IndexFunc(columns, func(c column) bool { return c.list })
		if i < 0 {
			i = 0
		}
		columns = columns[i : i+1]
	}

	// Cells are separated rather than terminated by tabs so the last column
	// is not padded with trailing spaces.
	tw := tabwriter.NewWriter(t.output, 0, 4, 2, ' ', 0)
	row := make([]string, len(columns))

	if t.header {
		for i, c := range columns {
			row[i] = c.name
		}
		if _, err := io.WriteString(tw, strings.Join(row, "\t")+"\n"); err != nil {
			return err
		}
	}

	for i := range t.values {
		v := reflect.ValueOf(&t.values[i]).Elem()
		if v.Kind() == reflect.Pointer {
			v = v.Elem()
		}
		for j, c := range columns {
			row[j] = formatCell(v.FieldByIndex(c.index))
		}
		if _, err := io.WriteString(tw, strings.Join(row, "\t")+"\n"); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func formatCell(v reflect.Value) string {
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return "-"
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v.Interface())
}
