// Package strtab implements the string table of a trace.
//
// Strings never appear inline in trace records. Each distinct string is
// interned once and referenced by a negative index: the first string interned
// is -1, the second -2, and so on. The table is written next to the trace as a
// JSON array in interning order, so index -k resolves to element k-1.
package strtab

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/stealthrocket/travioli/internal/value"
)

// Index is a reference to an interned string. Valid indexes are negative.
type Index int

// ContractError is the panic value raised when a value that is not a string is
// interned.
type ContractError struct {
	Kind value.Kind
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("strtab: only strings can be interned, not %s", e.Kind)
}

// Table is a bijection between strings and negative indexes.
//
// A Table is not safe for concurrent use; the tracer drives it from the single
// thread of the instrumented program.
type Table struct {
	index map[string]Index
	list  []string
}

// New constructs an empty table.
func New() *Table {
	return &Table{index: make(map[string]Index)}
}

// Intern returns the index of s, allocating the next index if s was never seen
// before.
func (t *Table) Intern(s string) Index {
	if i, ok := t.index[s]; ok {
		return i
	}
	t.list = append(t.list, s)
	i := Index(-len(t.list))
	t.index[s] = i
	return i
}

// InternValue interns a string value. Passing any other kind of value is a
// programming error and panics with a *ContractError.
func (t *Table) InternValue(v value.Value) Index {
	if v == nil || v.Kind() != value.KindString {
		k := value.KindUndefined
		if v != nil {
			k = v.Kind()
		}
		panic(&ContractError{Kind: k})
	}
	return t.Intern(v.String())
}

// Lookup returns the string that i refers to.
func (t *Table) Lookup(i Index) (string, bool) {
	k := -int(i) - 1
	if k < 0 || k >= len(t.list) {
		return "", false
	}
	return t.list[k], true
}

// Len returns the number of interned strings.
func (t *Table) Len() int { return len(t.list) }

// Strings returns a copy of the interned strings in interning order.
func (t *Table) Strings() []string {
	return append([]string(nil), t.list...)
}

// WriteTo writes the table as a JSON array followed by a newline.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	list := t.list
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(append(b, '\n'))
	return int64(n), err
}

// Read loads a table previously written by WriteTo.
func Read(r io.Reader) (*Table, error) {
	var list []string
	if err := json.NewDecoder(bufio.NewReader(r)).Decode(&list); err != nil {
		return nil, fmt.Errorf("reading string table: %w", err)
	}
	t := New()
	for i, s := range list {
		if j := t.Intern(s); j != Index(-(i + 1)) {
			return nil, fmt.Errorf("reading string table: duplicate string %q at position %d", s, i)
		}
	}
	return t, nil
}
