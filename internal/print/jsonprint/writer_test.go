package jsonprint_test

import (
	"bytes"
	"testing"

	"github.com/stealthrocket/travioli/internal/assert"
	"github.com/stealthrocket/travioli/internal/print/jsonprint"
)

type interned struct {
	Index  int    `json:"index"`
	String string `json:"string"`
}

func TestWriteNothing(t *testing.T) {
	b := new(bytes.Buffer)
	w := jsonprint.NewWriter[interned](b)
	assert.OK(t, w.Close())
	assert.Equal(t, b.String(), "")
}

func TestWriteValues(t *testing.T) {
	b := new(bytes.Buffer)
	w := jsonprint.NewWriter[interned](b)
	_, err := w.Write([]interned{
		{Index: -1, String: "this"},
		{Index: -2, String: "<length>"},
	})
	assert.OK(t, err)
	assert.OK(t, w.Close())
	assert.Equal(t, b.String(), `{
  "index": -1,
  "string": "this"
}
{
  "index": -2,
  "string": "<length>"
}
`)
}
