package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/stealthrocket/travioli/internal/print/human"
	"github.com/stealthrocket/travioli/internal/print/jsonprint"
	"github.com/stealthrocket/travioli/internal/print/textprint"
	"github.com/stealthrocket/travioli/internal/print/yamlprint"
	"github.com/stealthrocket/travioli/internal/stream"
	"github.com/stealthrocket/travioli/internal/strtab"
	"github.com/stealthrocket/travioli/internal/tracefile"
)

const catUsage = `
Usage:	travioli cat [options] [<dir> | <session id>]

   The cat command prints the records of a trace, read from a trace directory
   or from a session of the archive. Without arguments, the trace directory of
   the configuration is used.

Examples:

   $ travioli cat -r .travioli
   C,1,5,1,9,3,2
   D,1,9,2,-1,0,U	name="this"
   D,1,9,2,-2,42,P	name="x"
   ...

   $ travioli cat -l -o yaml f6e9acbc-0543-47df-9413-b99f569cfa3b
   kind: C
   script: 1
   site: 5
   ...

Options:
   -c, --config path    Path to the travioli configuration file (overrides TRAVIOLICONFIG)
   -h, --help           Show this usage information
   -l, --locations      Show the source locations of records (requires smap.json)
   -o, --output format  Output format, one of: text, json, yaml
   -r, --resolve        Resolve string indices (requires strings.json)
`

func cat(ctx context.Context, args []string) error {
	var (
		output    = outputFormat("text")
		resolve   = false
		locations = false
	)

	flagSet := newFlagSet("travioli cat", catUsage)
	customVar(flagSet, &output, "o", "output")
	boolVar(flagSet, &resolve, "r", "resolve")
	boolVar(flagSet, &locations, "l", "locations")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	dir, err := openTraceDir(ctx, "cat", args)
	if err != nil {
		return err
	}

	var table *strtab.Table
	if resolve {
		if table, err = readStrings(ctx, dir); err != nil {
			return err
		}
	}

	var sourceMap tracefile.SourceMap
	if locations {
		r, err := dir.open(ctx, tracefile.SourceMapFile)
		if err != nil {
			return err
		}
		sourceMap, err = tracefile.ReadSourceMap(r)
		r.Close()
		if err != nil {
			return err
		}
	}

	r, err := dir.open(ctx, tracefile.TraceFile)
	if err != nil {
		return err
	}
	defer r.Close()

	records := tracefile.NewReader(r)
	entries := stream.ConvertReader[entry](records, func(record tracefile.Record) (entry, error) {
		return newEntry(record, table, sourceMap), nil
	})

	var writer stream.WriteCloser[entry]
	switch output {
	case "json":
		writer = jsonprint.NewWriter[entry](os.Stdout)
	case "yaml":
		writer = yamlprint.NewWriter[entry](os.Stdout)
	default:
		writer = textprint.NewWriter[entry](os.Stdout)
	}
	defer writer.Close()

	_, err = stream.Copy[entry](writer, entries)
	return err
}

// entry is a trace record annotated with the strings and source locations it
// refers to.
type entry struct {
	tracefile.Record `yaml:",inline"`

	NameText       *string `json:"nameText,omitempty"       yaml:"nameText,omitempty"`
	ValueText      *string `json:"valueText,omitempty"      yaml:"valueText,omitempty"`
	Location       string  `json:"location,omitempty"       yaml:"location,omitempty"`
	CalleeLocation string  `json:"calleeLocation,omitempty" yaml:"calleeLocation,omitempty"`
}

func newEntry(record tracefile.Record, table *strtab.Table, sourceMap tracefile.SourceMap) entry {
	e := entry{Record: record}

	if table != nil {
		switch record.Kind {
		case tracefile.Call, tracefile.Exit:
		default:
			if s, ok := table.Lookup(record.Name); ok {
				e.NameText = &s
			}
		}
		if i, ok := record.Value.Index(); ok {
			if s, ok := table.Lookup(i); ok {
				e.ValueText = &s
			}
		}
	}

	if sourceMap != nil {
		e.Location = sourceMap.Location(record.Script, record.Site)
		if record.Kind == tracefile.Call {
			e.CalleeLocation = sourceMap.Location(record.CalleeScript, record.CalleeSite)
		}
	}
	return e
}

func (e entry) String() string {
	s := new(strings.Builder)
	s.WriteString(e.Record.String())
	if e.NameText != nil {
		fmt.Fprintf(s, "\tname=%q", *e.NameText)
	}
	if e.ValueText != nil {
		fmt.Fprintf(s, "\tvalue=%q", *e.ValueText)
	}
	if e.Location != "" {
		s.WriteString("\tat ")
		s.WriteString(e.Location)
	}
	if e.CalleeLocation != "" {
		s.WriteString(" -> ")
		s.WriteString(e.CalleeLocation)
	}
	return s.String()
}

// traceDir gives access to the files of a trace, either in a local directory
// or in an archived session.
type traceDir struct {
	open func(ctx context.Context, name string) (io.ReadCloser, error)
}

func openTraceDir(ctx context.Context, cmd string, args []string) (*traceDir, error) {
	var path human.Path
	switch len(args) {
	case 0:
		config, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = config.Output.Or(tracefile.DefaultDir)
	case 1:
		path = human.Path(args[0])
	default:
		return nil, usageError("travioli %s: expected at most one trace directory or session id, got %q", cmd, args)
	}

	dir, err := path.Resolve()
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(dir)
	if err == nil {
		if !stat.IsDir() {
			return nil, fmt.Errorf("%s: not a trace directory", dir)
		}
		return &traceDir{
			open: func(ctx context.Context, name string) (io.ReadCloser, error) {
				return os.Open(filepath.Join(dir, name))
			},
		}, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	id, parseErr := uuid.Parse(string(path))
	if parseErr != nil {
		return nil, err
	}
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := config.OpenArchive()
	if err != nil {
		return nil, err
	}
	if _, err := a.Lookup(ctx, id); err != nil {
		return nil, err
	}
	return &traceDir{
		open: func(ctx context.Context, name string) (io.ReadCloser, error) {
			return a.Open(ctx, id, name)
		},
	}, nil
}

func readStrings(ctx context.Context, dir *traceDir) (*strtab.Table, error) {
	r, err := dir.open(ctx, tracefile.StringsFile)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return strtab.Read(r)
}
