package cmd_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/stealthrocket/travioli/internal/assert"
)

var archive = tests{
	"archived traces can be listed and extracted": func(t *testing.T) {
		dir := writeTrace(t, sampleFiles())

		stdout, stderr, exitCode := travioli(t, "archive", "-t", "app=test", dir)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stderr, "")

		id, err := uuid.Parse(strings.TrimSpace(stdout))
		assert.OK(t, err)

		stdout, _, exitCode = travioli(t, "get", "sessions", "-q")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, id.String()+"\n")

		stdout, _, exitCode = travioli(t, "get", "sess", "-q", "-t", "app=test")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, id.String()+"\n")

		stdout, _, exitCode = travioli(t, "get", "sessions", "-q", "-t", "app=other")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "")

		out := filepath.Join(t.TempDir(), "extracted")
		stdout, _, exitCode = travioli(t, "extract", id.String(), out)
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, strings.Join([]string{
			filepath.Join(out, "trace.csv"),
			filepath.Join(out, "strings.json"),
			filepath.Join(out, "smap.json"),
		}, "\n")+"\n")

		for name, content := range sampleFiles() {
			b, err := os.ReadFile(filepath.Join(out, name))
			assert.OK(t, err)
			assert.Equal(t, string(b), content)
		}

		stdout, _, exitCode = travioli(t, "cat", id.String())
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, sampleTrace)

		stdout, _, exitCode = travioli(t, "strings", id.String())
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "-1\tthis\n-2\tx\n-3\tfoo\n-4\tbar\n")
	},

	"the session table shows archived files": func(t *testing.T) {
		dir := writeTrace(t, map[string]string{"trace.csv": sampleTrace})

		stdout, _, exitCode := travioli(t, "archive", "--compression", "none", dir)
		assert.Equal(t, exitCode, 0)
		id := strings.TrimSpace(stdout)

		stdout, _, exitCode = travioli(t, "get", "sessions")
		assert.Equal(t, exitCode, 0)
		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		assert.Equal(t, len(lines), 2)
		assert.HasPrefix(t, lines[0], "SESSION ID")
		assert.HasPrefix(t, lines[1], id)
	},

	"archiving a directory without trace causes an error": func(t *testing.T) {
		dir := writeTrace(t, map[string]string{"strings.json": sampleStrings})
		stdout, stderr, exitCode := travioli(t, "archive", dir)
		assert.Equal(t, exitCode, 1)
		assert.Equal(t, stdout, "")
		assert.HasPrefix(t, stderr, "ERR: travioli archive: archiving ")
	},

	"an unsupported compression is a usage error": func(t *testing.T) {
		_, _, exitCode := travioli(t, "archive", "--compression", "lz4")
		assert.Equal(t, exitCode, 2)
	},

	"extracting a malformed session id is a usage error": func(t *testing.T) {
		_, stderr, exitCode := travioli(t, "extract", "nope")
		assert.Equal(t, exitCode, 2)
		assert.HasPrefix(t, stderr, `travioli extract: malformed session id: "nope"`)
	},

	"extracting a session that does not exist causes an error": func(t *testing.T) {
		_, stderr, exitCode := travioli(t, "extract", uuid.NewString(), t.TempDir())
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: travioli extract: ")
	},

	"getting an unknown resource type is a usage error": func(t *testing.T) {
		_, stderr, exitCode := travioli(t, "get", "profiles")
		assert.Equal(t, exitCode, 2)
		assert.HasPrefix(t, stderr, "no resources matching 'profiles'")
	},
}
