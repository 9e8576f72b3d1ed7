package cmd_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stealthrocket/travioli/internal/assert"
)

var config = tests{
	"show the configuration file": func(t *testing.T) {
		b, err := os.ReadFile(os.Getenv("TRAVIOLICONFIG"))
		assert.OK(t, err)

		stdout, stderr, exitCode := travioli(t, "config")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, string(b))
		assert.Equal(t, stderr, "")
	},

	"show the configuration as yaml": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "config", "-o", "yaml")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "output: ")
		assert.Equal(t, stderr, "")
	},

	"show the configuration as json": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "config", "--output", "json")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stderr, "")

		var c struct {
			Archive struct {
				Location string `json:"location"`
			} `json:"archive"`
		}
		assert.OK(t, json.Unmarshal([]byte(stdout), &c))
		assert.Equal(t, filepath.Base(c.Archive.Location), "archive")
	},

	"a missing configuration file shows the defaults": func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.yaml")
		stdout, stderr, exitCode := travioli(t, "config", "-c", path)
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "output: .travioli\n")
		assert.Equal(t, stderr, "")
	},

	"a configuration with unknown fields causes an error": func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		assert.OK(t, os.WriteFile(path, []byte("tracer: true\n"), 0666))
		_, stderr, exitCode := travioli(t, "config", "-o", "yaml", "-c", path)
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: travioli config: ")
	},

	"passing arguments is a usage error": func(t *testing.T) {
		_, stderr, exitCode := travioli(t, "config", "extra")
		assert.Equal(t, exitCode, 2)
		assert.HasPrefix(t, stderr, `travioli config: unexpected arguments: ["extra"]`)
	},
}
