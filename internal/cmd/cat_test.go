package cmd_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stealthrocket/travioli/internal/assert"
)

var cat = tests{
	"print the records of a trace directory": func(t *testing.T) {
		dir := writeTrace(t, sampleFiles())
		stdout, stderr, exitCode := travioli(t, "cat", dir)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, sampleTrace)
		assert.Equal(t, stderr, "")
	},

	"resolve the strings referenced by records": func(t *testing.T) {
		dir := writeTrace(t, sampleFiles())
		stdout, stderr, exitCode := travioli(t, "cat", "-r", dir)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, `C,1,5,1,9,3,2
D,1,9,2,-1,0,U	name="this"
D,1,9,2,-2,42,P	name="x"
R,1,13,2,-2,42,P	name="x"
G,1,17,4,4,-3,-4,S	name="foo"	value="bar"
E,1,21,-3,S	value="foo"
`)
		assert.Equal(t, stderr, "")
	},

	"show the source locations of records": func(t *testing.T) {
		dir := writeTrace(t, sampleFiles())
		stdout, stderr, exitCode := travioli(t, "cat", dir, "--locations")
		assert.Equal(t, exitCode, 0)
		lines := strings.Split(stdout, "\n")
		assert.Equal(t, lines[0], "C,1,5,1,9,3,2\tat list.js:3 -> list.js:1")
		assert.Equal(t, lines[1], "D,1,9,2,-1,0,U\tat list.js:1")
		assert.Equal(t, lines[3], "R,1,13,2,-2,42,P")
		assert.Equal(t, stderr, "")
	},

	"print records as json": func(t *testing.T) {
		dir := writeTrace(t, map[string]string{
			"trace.csv":    "G,1,17,4,4,-1,-2,S\n",
			"strings.json": `["foo","bar"]` + "\n",
		})
		stdout, stderr, exitCode := travioli(t, "cat", "-o", "json", "-r", dir)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stderr, "")

		var record struct {
			Kind      string `json:"kind"`
			Frame     int    `json:"frame"`
			Owner     int    `json:"owner"`
			Name      int    `json:"name"`
			NameText  string `json:"nameText"`
			ValueText string `json:"valueText"`
			Value     struct {
				Code string `json:"code"`
				Type string `json:"type"`
			} `json:"value"`
		}
		assert.OK(t, json.Unmarshal([]byte(stdout), &record))
		assert.Equal(t, record.Kind, "G")
		assert.Equal(t, record.Frame, 4)
		assert.Equal(t, record.Owner, 4)
		assert.Equal(t, record.Name, -1)
		assert.Equal(t, record.NameText, "foo")
		assert.Equal(t, record.Value.Code, "-2")
		assert.Equal(t, record.Value.Type, "S")
		assert.Equal(t, record.ValueText, "bar")
	},

	"print records as yaml": func(t *testing.T) {
		dir := writeTrace(t, map[string]string{"trace.csv": "E,1,21,0,U\n"})
		stdout, stderr, exitCode := travioli(t, "cat", "-o", "yaml", dir)
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "kind: E\nscript: 1\nsite: 21\n")
		assert.Equal(t, stderr, "")
	},

	"a malformed record causes an error": func(t *testing.T) {
		dir := writeTrace(t, map[string]string{"trace.csv": "R,1,5,1,-1,0,U\nR,1,5\n"})
		stdout, stderr, exitCode := travioli(t, "cat", dir)
		assert.Equal(t, exitCode, 1)
		assert.Equal(t, stdout, "R,1,5,1,-1,0,U\n")
		assert.HasPrefix(t, stderr, "ERR: travioli cat: trace line 2: malformed trace record")
	},

	"resolving strings requires the string table": func(t *testing.T) {
		dir := writeTrace(t, map[string]string{"trace.csv": sampleTrace})
		_, stderr, exitCode := travioli(t, "cat", "-r", dir)
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: travioli cat: ")
	},

	"a directory that does not exist causes an error": func(t *testing.T) {
		_, stderr, exitCode := travioli(t, "cat", "/does/not/exist")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: travioli cat: ")
	},

	"passing more than one directory is a usage error": func(t *testing.T) {
		_, _, exitCode := travioli(t, "cat", "a", "b")
		assert.Equal(t, exitCode, 2)
	},

	"an unsupported output format is a usage error": func(t *testing.T) {
		_, _, exitCode := travioli(t, "cat", "-o", "xml")
		assert.Equal(t, exitCode, 2)
	},
}
