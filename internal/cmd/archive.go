package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stealthrocket/travioli/internal/archive"
	"github.com/stealthrocket/travioli/internal/print/human"
	"github.com/stealthrocket/travioli/internal/tracefile"
)

const archiveUsage = `
Usage:	travioli archive [options] [<dir>]

   The archive command stores a trace directory in the archive and prints the
   id of the new session. Without arguments, the trace directory of the
   configuration is archived.

Example:

   $ travioli archive --compression snappy .travioli
   f6e9acbc-0543-47df-9413-b99f569cfa3b

Options:
   -c, --config path        Path to the travioli configuration file (overrides TRAVIOLICONFIG)
   -h, --help               Show this usage information
       --compression type   Compression of archived files, one of: zstd, snappy, none
   -t, --tag name=value     Tag attached to the archived objects (may be repeated)
`

func archiveTrace(ctx context.Context, args []string) error {
	var (
		compression archive.Compression
		tags        tagList
	)

	flagSet := newFlagSet("travioli archive", archiveUsage)
	customVar(flagSet, &compression, "compression")
	customVar(flagSet, &tags, "t", "tag")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}

	var path human.Path
	switch len(args) {
	case 0:
		path = config.Output.Or(tracefile.DefaultDir)
	case 1:
		path = human.Path(args[0])
	default:
		return usageError("travioli archive: expected at most one trace directory, got %q", args)
	}
	dir, err := path.Resolve()
	if err != nil {
		return err
	}

	if compression != "" {
		config.Archive.Compression = compression
	}
	a, err := config.CreateArchive(tags...)
	if err != nil {
		return err
	}

	session, err := a.WithLogger(slog.Default()).Store(ctx, dir, uuid.Nil)
	if err != nil {
		return err
	}
	fmt.Println(session.ID)
	return nil
}
