package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/stealthrocket/travioli/internal/archive"
	"github.com/stealthrocket/travioli/internal/object"
	"github.com/stealthrocket/travioli/internal/print/human"
	"github.com/stealthrocket/travioli/internal/print/jsonprint"
	"github.com/stealthrocket/travioli/internal/print/textprint"
	"github.com/stealthrocket/travioli/internal/print/yamlprint"
	"github.com/stealthrocket/travioli/internal/stream"
)

const getUsage = `
Usage:	travioli get <resource type> [options]

   The get sub-command gives access to the state of the trace archive. The
   command must be followed by the name of resources to display, which must
   be session (the command also accepts plurals and abbreviations of the
   resource names).

Examples:

   $ travioli get sessions
   SESSION ID                            SOURCE     FILES  SIZE      STORED    CREATED
   f6e9acbc-0543-47df-9413-b99f569cfa3b  .travioli  3      1.21 MiB  162 KiB   2023-07-14T09:41:02Z

   $ travioli get sessions -q
   f6e9acbc-0543-47df-9413-b99f569cfa3b

Options:
   -c, --config path     Path to the travioli configuration file (overrides TRAVIOLICONFIG)
   -h, --help            Show this usage information
   -o, --output format   Output format, one of: text, json, yaml
   -q, --quiet           Only display the resource ids
       --since duration  Only display resources created in the duration (e.g. 2h)
   -t, --tag name=value  Only display resources with the tag (may be repeated)
`

type resource struct {
	typ string
	alt []string
	get func(context.Context, io.Writer, bool) stream.WriteCloser[*archive.Session]
}

var resources = [...]resource{
	{
		typ: "session",
		alt: []string{"sess", "sessions"},
		get: getSessions,
	},
}

func get(ctx context.Context, args []string) error {
	var (
		output = outputFormat("text")
		quiet  = false
		since  human.Duration
		tags   tagList
	)

	flagSet := newFlagSet("travioli get", getUsage)
	customVar(flagSet, &output, "o", "output")
	boolVar(flagSet, &quiet, "q", "quiet")
	customVar(flagSet, &since, "since")
	customVar(flagSet, &tags, "t", "tag")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		perrorf(`Expected exactly one resource type as argument` + useCmd("get"))
		return ExitCode(2)
	}
	resource, err := findResource("get", args[0])
	if err != nil {
		perror(err)
		return ExitCode(2)
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := config.OpenArchive()
	if err != nil {
		return err
	}

	var timeRange archive.TimeRange
	if since > 0 {
		timeRange = archive.Since(time.Now().Add(-time.Duration(since)))
	}
	filters := make([]object.Filter, len(tags))
	for i, tag := range tags {
		filters[i] = object.MATCH(tag.Name, tag.Value)
	}

	reader := a.Sessions(ctx, timeRange, filters...)
	defer reader.Close()

	var writer stream.WriteCloser[*archive.Session]
	switch output {
	case "json":
		writer = jsonprint.NewWriter[*archive.Session](os.Stdout)
	case "yaml":
		writer = yamlprint.NewWriter[*archive.Session](os.Stdout)
	default:
		writer = resource.get(ctx, os.Stdout, quiet)
	}
	defer writer.Close()

	_, err = stream.Copy[*archive.Session](writer, reader)
	return err
}

func getSessions(ctx context.Context, w io.Writer, quiet bool) stream.WriteCloser[*archive.Session] {
	type session struct {
		ID         string      `text:"SESSION ID,list"`
		Source     string      `text:"SOURCE"`
		Files      int         `text:"FILES"`
		Size       human.Bytes `text:"SIZE"`
		StoredSize human.Bytes `text:"STORED"`
		CreatedAt  string      `text:"CREATED"`
		createdAt  time.Time   `text:"-"`
	}
	return newTableWriter(w, quiet,
		func(s1, s2 session) int {
			return s1.createdAt.Compare(s2.createdAt)
		},
		func(s *archive.Session) (session, error) {
			return session{
				ID:         s.ID.String(),
				Source:     s.Source,
				Files:      len(s.Files),
				Size:       human.Bytes(s.Size()),
				StoredSize: human.Bytes(s.StoredSize()),
				CreatedAt:  s.CreatedAt.Format(time.RFC3339),
				createdAt:  s.CreatedAt,
			}, nil
		})
}

func newTableWriter[T1, T2 any](w io.Writer, quiet bool, orderBy func(T1, T1) int, conv func(T2) (T1, error)) stream.WriteCloser[T2] {
	opts := []textprint.TableOption[T1]{
		textprint.OrderBy(orderBy),
	}
	if quiet {
		opts = append(opts,
			textprint.Header[T1](false),
			textprint.List[T1](true),
		)
	}
	tw := textprint.NewTableWriter[T1](w, opts...)
	cw := stream.ConvertWriter[T1](tw, conv)
	return stream.NewWriteCloser(cw, tw)
}

func findResource(cmd, typ string) (*resource, error) {
	for i, resource := range resources {
		if resource.typ == typ {
			return &resources[i], nil
		}
		for _, alt := range resource.alt {
			if alt == typ {
				return &resources[i], nil
			}
		}
	}

	var matchingResources []*resource
	for i, resource := range resources {
		if prefixLength(resource.typ, typ) > 1 || prefixLength(typ, resource.typ) > 1 {
			matchingResources = append(matchingResources, &resources[i])
		}
	}
	if len(matchingResources) == 0 {
		return nil, fmt.Errorf(`no resources matching '%s'%s`, typ, useCmd(cmd))
	}

	var resourceTypes strings.Builder
	for _, r := range matchingResources {
		resourceTypes.WriteString("\n  ")
		resourceTypes.WriteString(r.typ)
	}

	return nil, fmt.Errorf("no resources matching '%s'\n\nDid you mean?%s", typ, &resourceTypes)
}

func prefixLength(base, prefix string) int {
	n := 0
	for n < len(base) && n < len(prefix) && base[n] == prefix[n] {
		n++
	}
	return n
}

func useCmd(cmd string) string {
	s := new(strings.Builder)
	s.WriteString("\n\n")
	s.WriteString(`Use 'travioli ` + cmd + ` <resource type>' where the supported resource types are:`)
	for _, r := range resources {
		s.WriteString("\n   ")
		s.WriteString(r.typ)
	}
	return s.String()
}
