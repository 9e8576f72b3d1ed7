package cmd_test

import (
	"testing"

	"github.com/stealthrocket/travioli/internal/assert"
)

var help = tests{
	"calling help with an unknown command causes an error": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "help", "whatever")
		assert.Equal(t, exitCode, 2)
		assert.Equal(t, stdout, "")
		assert.Equal(t, stderr, "travioli help whatever: unknown command\n")
	},

	"passing an unsupported flag to the command causes an error": func(t *testing.T) {
		_, _, exitCode := travioli(t, "help", "-_")
		assert.Equal(t, exitCode, 2)
	},

	"show the help command help with the short option": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "help", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\ttravioli <command> ")
		assert.Equal(t, stderr, "")
	},

	"show the help command help after a command name": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "help", "get", "--help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\ttravioli <command> ")
		assert.Equal(t, stderr, "")
	},

	"travioli help without arguments": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\ttravioli <command> ")
		assert.Equal(t, stderr, "")
	},

	"travioli help archive": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "help", "archive")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\ttravioli archive ")
		assert.Equal(t, stderr, "")
	},

	"travioli help cat": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "help", "cat")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\ttravioli cat ")
		assert.Equal(t, stderr, "")
	},

	"travioli help config": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "help", "config")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\ttravioli config ")
		assert.Equal(t, stderr, "")
	},

	"travioli help extract": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "help", "extract")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\ttravioli extract ")
		assert.Equal(t, stderr, "")
	},

	"travioli help get": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "help", "get")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\ttravioli get ")
		assert.Equal(t, stderr, "")
	},

	"travioli help serve": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "help", "serve")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\ttravioli serve ")
		assert.Equal(t, stderr, "")
	},

	"travioli help strings": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "help", "strings")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\ttravioli strings ")
		assert.Equal(t, stderr, "")
	},

	"travioli help version": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "help", "version")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\ttravioli version")
		assert.Equal(t, stderr, "")
	},
}
