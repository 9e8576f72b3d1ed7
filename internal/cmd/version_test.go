package cmd_test

import (
	"testing"

	"github.com/stealthrocket/travioli/internal/assert"
)

var version = tests{
	"print the travioli version": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "version")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "travioli devel\n")
		assert.Equal(t, stderr, "")
	},

	"passing an unsupported flag to the command causes an error": func(t *testing.T) {
		_, stderr, exitCode := travioli(t, "version", "-_")
		assert.Equal(t, exitCode, 2)
		assert.HasPrefix(t, stderr, "travioli version: flag provided but not defined: -_")
	},

	"show the version command help with the short option": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "version", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\ttravioli version\n")
		assert.Equal(t, stderr, "")
	},
}
