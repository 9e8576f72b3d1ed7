package strtab_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stealthrocket/travioli/internal/assert"
	"github.com/stealthrocket/travioli/internal/strtab"
	"github.com/stealthrocket/travioli/internal/value"
)

func TestInternFirstSeenOrder(t *testing.T) {
	table := strtab.New()

	assert.Equal(t, table.Intern("foo"), strtab.Index(-1))
	assert.Equal(t, table.Intern("bar"), strtab.Index(-2))
	assert.Equal(t, table.Intern("foo"), strtab.Index(-1))
	assert.EqualAll(t, table.Strings(), []string{"foo", "bar"})

	buf := new(bytes.Buffer)
	_, err := table.WriteTo(buf)
	assert.OK(t, err)
	assert.Equal(t, buf.String(), `["foo","bar"]`+"\n")
}

func TestInternBijection(t *testing.T) {
	inputs := []string{"", "a", "b", "a", ",", "\n", "b", "this", "length", ""}
	table := strtab.New()
	seen := map[string]strtab.Index{}
	last := strtab.Index(0)

	for _, s := range inputs {
		i := table.Intern(s)
		if j, ok := seen[s]; ok {
			assert.Equal(t, i, j)
			continue
		}
		assert.Less(t, i, last)
		assert.Equal(t, i, last-1)
		for other, j := range seen {
			if i == j {
				t.Fatalf("%q and %q share index %d", s, other, i)
			}
		}
		seen[s] = i
		last = i
	}

	for s, i := range seen {
		got, ok := table.Lookup(i)
		assert.Equal(t, ok, true)
		assert.Equal(t, got, s)
	}
}

func TestLookupOutOfRange(t *testing.T) {
	table := strtab.New()
	table.Intern("x")

	for _, i := range []strtab.Index{0, 1, -2} {
		_, ok := table.Lookup(i)
		assert.Equal(t, ok, false)
	}
}

func TestInternValueRejectsNonStrings(t *testing.T) {
	table := strtab.New()
	assert.Equal(t, table.InternValue(value.String("s")), strtab.Index(-1))

	defer func() {
		var contractError *strtab.ContractError
		err, _ := recover().(error)
		if !errors.As(err, &contractError) {
			t.Fatalf("expected a contract error, got %v", err)
		}
		assert.Equal(t, contractError.Kind, value.KindNumber)
		assert.Equal(t, table.Len(), 1)
	}()

	table.InternValue(value.Number(1))
}

func TestReadRoundTrip(t *testing.T) {
	table := strtab.New()
	table.Intern("foo")
	table.Intern("bar")

	buf := new(bytes.Buffer)
	_, err := table.WriteTo(buf)
	assert.OK(t, err)

	loaded, err := strtab.Read(buf)
	assert.OK(t, err)
	s, ok := loaded.Lookup(-2)
	assert.Equal(t, ok, true)
	assert.Equal(t, s, "bar")
	assert.Equal(t, loaded.Intern("baz"), strtab.Index(-3))
}

func TestReadEmpty(t *testing.T) {
	buf := new(bytes.Buffer)
	_, err := strtab.New().WriteTo(buf)
	assert.OK(t, err)
	assert.Equal(t, buf.String(), "[]\n")
}

func TestReadDuplicate(t *testing.T) {
	_, err := strtab.Read(bytes.NewBufferString(`["a","a"]`))
	if err == nil {
		t.Fatal("expected an error reading a table with duplicates")
	}
}
