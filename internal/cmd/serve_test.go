package cmd_test

import (
	"context"
	"testing"

	"github.com/stealthrocket/travioli/internal/assert"
)

var serve = tests{
	"the server stops when the context is canceled": func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		stdout, stderr, exitCode := traviolictx(t, ctx, "serve", "--listen", "127.0.0.1:0", "--archive")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "")
		assert.Equal(t, stderr, "")
	},

	"an invalid listen address causes an error": func(t *testing.T) {
		_, stderr, exitCode := travioli(t, "serve", "-L", "127.0.0.1:-1")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: travioli serve: ")
	},

	"an invalid rate is a usage error": func(t *testing.T) {
		_, _, exitCode := travioli(t, "serve", "--rate", "fast")
		assert.Equal(t, exitCode, 2)
	},

	"passing arguments is a usage error": func(t *testing.T) {
		_, stderr, exitCode := travioli(t, "serve", "extra")
		assert.Equal(t, exitCode, 2)
		assert.HasPrefix(t, stderr, `travioli serve: unexpected arguments: ["extra"]`)
	},
}
