package cmd

// Notes on program structure
// --------------------------
//
// Travioli uses subcommands to invoke specific functionalities of the program.
// Each subcommand is implemented by a function named after the command, in a
// file of the same name (e.g. the "help" command is implemented by the help
// function in help.go).
//
// The usage message for each command is declared by a constant starting with
// the command name and followed by the suffix "Usage". For example, the usage
// message for the "help" command is declared by the constant helpUsage.
//
// The usage message contains a "Usage:	travioli <command>" section presenting
// the structure of the command. Note the tabulation separating "Usage:" and
// "travioli".

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/stealthrocket/travioli/internal/config"
	"github.com/stealthrocket/travioli/internal/object"
)

const rootUsage = `travioli - Object Traversal Tracer

   travioli records the accesses that instrumented programs make to the
   properties of their objects and to the variables of their frames, so they
   can later be analyzed offline to find the traversal patterns of the program.

Example:

   $ travioli serve --archive
   ...

   $ travioli cat -r .travioli
   C,1,5,1,9,3,2	name="this"
   ...

For a list of commands available, run 'travioli help'.`

// Root is the travioli entrypoint.
func Root(ctx context.Context, args ...string) int {
	config.ConfigPath = config.PathFromEnv()
	level := logLevel(slog.LevelWarn)

	flagSet := newFlagSet("travioli", helpUsage)
	customVar(flagSet, &level, "log-level")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "ERR: travioli: %s\n", err)
		return 2
	}
	if args = flagSet.Args(); len(args) == 0 {
		fmt.Println(rootUsage)
		return 0
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(level),
	})))

	cmd, args := args[0], args[1:]

	var err error
	switch cmd {
	case "archive":
		err = archiveTrace(ctx, args)
	case "cat":
		err = cat(ctx, args)
	case "config":
		err = configure(ctx, args)
	case "extract":
		err = extract(ctx, args)
	case "get":
		err = get(ctx, args)
	case "help":
		err = help(ctx, args)
	case "serve":
		err = serve(ctx, args)
	case "strings":
		err = stringTable(ctx, args)
	case "version":
		err = version(ctx, args)
	default:
		err = unknown(ctx, cmd)
	}

	switch e := err.(type) {
	case nil:
		return 0
	case ExitCode:
		return int(e)
	case usage:
		fmt.Fprintf(os.Stderr, "%s\n", e)
		return 2
	default:
		fmt.Fprintf(os.Stderr, "ERR: travioli %s: %s\n", cmd, err)
		return 1
	}
}

// ExitCode is an error type returned from command functions to indicate the
// exit code that should be returned by the program.
type ExitCode int

func (e ExitCode) Error() string {
	return fmt.Sprintf("exit: %d", e)
}

// usage is an error type returned from command functions to indicate a usage
// error.
//
// Usage errors cause the program to exit with status code 2.
type usage string

func usageError(msg string, args ...any) error {
	return usage(fmt.Sprintf(msg, args...))
}

func (e usage) Error() string {
	return string(e)
}

func perror(args ...any) {
	fmt.Fprintln(os.Stderr, args...)
}

func perrorf(msg string, args ...any) {
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprintf(os.Stderr, msg, args...)
}

func setEnum[T ~string](enum *T, typ string, value string, options ...string) error {
	for _, option := range options {
		if option == value {
			*enum = T(option)
			return nil
		}
	}
	return fmt.Errorf("unsupported %s: %q (not one of %s)", typ, value, strings.Join(options, ", "))
}

type outputFormat string

func (o outputFormat) String() string {
	return string(o)
}

func (o *outputFormat) Set(value string) error {
	return setEnum(o, "output format", value, "text", "json", "yaml")
}

type logLevel slog.Level

func (l logLevel) String() string {
	return slog.Level(l).String()
}

func (l *logLevel) Set(value string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return fmt.Errorf("unsupported log level: %q (not one of debug, info, warn, error)", value)
	}
	*l = logLevel(level)
	return nil
}

type tagList []object.Tag

func (t tagList) String() string {
	s := make([]string, len(t))
	for i, tag := range t {
		s[i] = tag.String()
	}
	return strings.Join(s, ",")
}

func (t *tagList) Set(value string) error {
	tag, err := object.ParseTag(value)
	if err != nil {
		return err
	}
	*t = append(*t, tag)
	return nil
}

func newFlagSet(cmd, usage string) *flag.FlagSet {
	usage = strings.TrimSpace(usage)
	flagSet := flag.NewFlagSet(cmd, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.Usage = func() { fmt.Println(usage) }
	customVar(flagSet, &config.ConfigPath, "c", "config")
	return flagSet
}

// parseFlags is a greedy parser which consumes all options known to f and
// returns the remaining arguments.
func parseFlags(f *flag.FlagSet, args []string) ([]string, error) {
	var unknownArgs []string
	for {
		if err := f.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, ExitCode(0)
			}
			return nil, usageError("%s: %s", f.Name(), err)
		}
		if args = f.Args(); len(args) == 0 {
			return unknownArgs, nil
		}
		i := slices.IndexFunc(args, func(s string) bool {
			return strings.HasPrefix(s, "-")
		})
		switch {
		case i < 0:
			i = len(args)
		case args[i] == "-":
			i++
		case i == 0:
			// Everything after a "--" terminator is positional.
			return append(unknownArgs, args...), nil
		}
		unknownArgs = append(unknownArgs, args[:i]...)
		args = args[i:]
	}
}

func boolVar(f *flag.FlagSet, dst *bool, name string, alias ...string) {
	f.BoolVar(dst, name, *dst, "")
	for _, name := range alias {
		f.BoolVar(dst, name, *dst, "")
	}
}

func customVar(f *flag.FlagSet, dst flag.Value, name string, alias ...string) {
	f.Var(dst, name, "")
	for _, name := range alias {
		f.Var(dst, name, "")
	}
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig()
}

func stringVar(f *flag.FlagSet, dst *string, name string, alias ...string) {
	f.StringVar(dst, name, *dst, "")
	for _, name := range alias {
		f.StringVar(dst, name, *dst, "")
	}
}
