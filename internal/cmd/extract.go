package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stealthrocket/travioli/internal/print/human"
)

const extractUsage = `
Usage:	travioli extract [options] <session id> [<dir>]

   The extract command restores the files of an archived session into a trace
   directory, which defaults to a directory named after the session id.

Example:

   $ travioli extract f6e9acbc-0543-47df-9413-b99f569cfa3b traces
   traces/trace.csv
   traces/strings.json
   traces/smap.json

Options:
   -c, --config path  Path to the travioli configuration file (overrides TRAVIOLICONFIG)
   -h, --help         Show this usage information
`

func extract(ctx context.Context, args []string) error {
	flagSet := newFlagSet("travioli extract", extractUsage)

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	if len(args) < 1 || len(args) > 2 {
		return usageError("travioli extract: expected a session id and an optional directory, got %q", args)
	}

	id, err := uuid.Parse(args[0])
	if err != nil {
		return usageError("travioli extract: malformed session id: %q", args[0])
	}
	path := human.Path(id.String())
	if len(args) == 2 {
		path = human.Path(args[1])
	}
	dir, err := path.Resolve()
	if err != nil {
		return err
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := config.OpenArchive()
	if err != nil {
		return err
	}
	session, err := a.Extract(ctx, id, dir)
	if err != nil {
		return err
	}
	for _, file := range session.Files {
		fmt.Println(path.Join(file.Name))
	}
	return nil
}
