package cmd_test

import (
	"testing"

	"github.com/stealthrocket/travioli/internal/assert"
)

var unknown = tests{
	"an unknown command causes an error": func(t *testing.T) {
		stdout, stderr, exitCode := travioli(t, "whatever")
		assert.Equal(t, exitCode, 2)
		assert.Equal(t, stdout, "")
		assert.Equal(t, stderr, "travioli whatever: unknown command\nFor a list of commands available, run 'travioli help'.\n")
	},
}
