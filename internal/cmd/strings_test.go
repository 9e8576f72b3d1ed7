package cmd_test

import (
	"testing"

	"github.com/stealthrocket/travioli/internal/assert"
)

var stringTable = tests{
	"print the string table of a trace": func(t *testing.T) {
		dir := writeTrace(t, sampleFiles())
		stdout, stderr, exitCode := travioli(t, "strings", dir)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "-1\tthis\n-2\tx\n-3\tfoo\n-4\tbar\n")
		assert.Equal(t, stderr, "")
	},

	"print the string table as yaml": func(t *testing.T) {
		dir := writeTrace(t, map[string]string{"strings.json": `["a"]` + "\n"})
		stdout, stderr, exitCode := travioli(t, "strings", "-o", "yaml", dir)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "index: -1\nstring: a\n")
		assert.Equal(t, stderr, "")
	},

	"a trace without string table causes an error": func(t *testing.T) {
		dir := writeTrace(t, map[string]string{"trace.csv": sampleTrace})
		_, stderr, exitCode := travioli(t, "strings", dir)
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: travioli strings: ")
	},
}
