package cmd

import (
	"context"
	"fmt"
	"strings"
)

const helpUsage = `
Usage:	travioli <command> [options]

Tracing Commands:
   serve    Receive traces from remote tracers
   cat      Print the records of a trace
   strings  Print the string table of a trace

Archive Commands:
   archive  Store a trace directory in the archive
   extract  Restore an archived trace into a directory
   get      Display archived resources

Other Commands:
   config   View or edit the travioli configuration
   help     Show usage information about travioli commands
   version  Show the travioli version information

Global Options:
   -c, --config path  Path to the travioli configuration file (overrides TRAVIOLICONFIG)
       --log-level    Minimum level of logs written to stderr (default warn)

For a description of each command, run 'travioli help <command>'.`

func help(ctx context.Context, args []string) error {
	flagSet := newFlagSet("travioli help", helpUsage)

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}

	for i, cmd := range args {
		var msg string

		if i != 0 {
			fmt.Println("---")
		}

		switch cmd {
		case "archive":
			msg = archiveUsage
		case "cat":
			msg = catUsage
		case "config":
			msg = configUsage
		case "extract":
			msg = extractUsage
		case "get":
			msg = getUsage
		case "help":
			msg = helpUsage
		case "serve":
			msg = serveUsage
		case "strings":
			msg = stringsUsage
		case "version":
			msg = versionUsage
		default:
			perrorf("travioli help %s: unknown command", cmd)
			return ExitCode(2)
		}

		fmt.Println(strings.TrimSpace(msg))
	}

	if len(args) == 0 {
		fmt.Println(strings.TrimSpace(helpUsage))
	}
	return nil
}
