package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/stealthrocket/travioli/internal/print/jsonprint"
	"github.com/stealthrocket/travioli/internal/print/textprint"
	"github.com/stealthrocket/travioli/internal/print/yamlprint"
	"github.com/stealthrocket/travioli/internal/stream"
	"github.com/stealthrocket/travioli/internal/strtab"
)

const stringsUsage = `
Usage:	travioli strings [options] [<dir> | <session id>]

   The strings command prints the string table of a trace, one string per
   line preceded by the index that records use to refer to it.

Example:

   $ travioli strings .travioli
   -1	this
   -2	x
   -3	foo

Options:
   -c, --config path    Path to the travioli configuration file (overrides TRAVIOLICONFIG)
   -h, --help           Show this usage information
   -o, --output format  Output format, one of: text, json, yaml
`

func stringTable(ctx context.Context, args []string) error {
	output := outputFormat("text")

	flagSet := newFlagSet("travioli strings", stringsUsage)
	customVar(flagSet, &output, "o", "output")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	dir, err := openTraceDir(ctx, "strings", args)
	if err != nil {
		return err
	}
	table, err := readStrings(ctx, dir)
	if err != nil {
		return err
	}

	list := table.Strings()
	values := make([]stringEntry, len(list))
	for i, s := range list {
		values[i] = stringEntry{Index: strtab.Index(-(i + 1)), Value: s}
	}

	var writer stream.WriteCloser[stringEntry]
	switch output {
	case "json":
		writer = jsonprint.NewWriter[stringEntry](os.Stdout)
	case "yaml":
		writer = yamlprint.NewWriter[stringEntry](os.Stdout)
	default:
		writer = textprint.NewWriter[stringEntry](os.Stdout)
	}
	defer writer.Close()

	_, err = stream.Copy[stringEntry](writer, stream.NewReader(values...))
	return err
}

type stringEntry struct {
	Index strtab.Index `json:"index"  yaml:"index"`
	Value string       `json:"string" yaml:"string"`
}

func (e stringEntry) String() string {
	return fmt.Sprintf("%d\t%s", e.Index, e.Value)
}
