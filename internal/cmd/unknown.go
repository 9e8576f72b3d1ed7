package cmd

import (
	"context"
)

const unknownCommand = `travioli %s: unknown command
For a list of commands available, run 'travioli help'.`

func unknown(ctx context.Context, cmd string) error {
	return usageError(unknownCommand, cmd)
}
