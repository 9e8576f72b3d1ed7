package cmd_test

import (
	"testing"

	"github.com/stealthrocket/travioli/internal/assert"
)

var root = tests{
	"invoking travioli without a command prints the introduction message": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t)
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "travioli - Object Traversal Tracer\n")
		assert.Equal(t, stderr, "")
	},

	"show the travioli help with the short option": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\ttravioli <command> ")
		assert.Equal(t, stderr, "")
	},

	"show the travioli help with the long option": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "--help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\ttravioli <command> ")
		assert.Equal(t, stderr, "")
	},

	"an invalid log level is a usage error": func(t *testing.T) {
		_, stderr, exitCode := travioli(t, "--log-level", "loud", "version")
		assert.Equal(t, exitCode, 2)
		assert.HasPrefix(t, stderr, "ERR: travioli: ")
	},

	"the log level is set before running the command": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "--log-level", "debug", "version")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "travioli devel\n")
		assert.Equal(t, stderr, "")
	},
}
