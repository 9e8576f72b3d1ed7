package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/stealthrocket/travioli/internal/print/human"
	"github.com/stealthrocket/travioli/internal/remote"
	"github.com/stealthrocket/travioli/internal/tracefile"
)

const serveUsage = `
Usage:	travioli serve [options]

   The serve command runs a trace consumer accepting connections from remote
   tracers. Each connection is a session: the chunks received are appended to
   the trace.csv file of a directory named after the session id, and each
   chunk is acknowledged once written.

Example:

   $ travioli serve --listen 127.0.0.1:8080 --archive
   ...

Options:
       --archive          Store each completed session in the archive
   -c, --config path      Path to the travioli configuration file (overrides TRAVIOLICONFIG)
   -h, --help             Show this usage information
   -L, --listen addr      Address to accept connections on (default 127.0.0.1:8080)
   -O, --output path      Directory where sessions are written (default .travioli)
       --rate rate        Limit the rate of acknowledgments per connection (e.g. 100/s)
`

const shutdownTimeout = 5 * time.Second

func serve(ctx context.Context, args []string) error {
	var (
		listen   string
		output   human.Path
		archived bool
		ackRate  human.Rate
	)

	flagSet := newFlagSet("travioli serve", serveUsage)
	stringVar(flagSet, &listen, "L", "listen")
	customVar(flagSet, &output, "O", "output")
	boolVar(flagSet, &archived, "archive")
	customVar(flagSet, &ackRate, "rate")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	if len(args) != 0 {
		return usageError("travioli serve: unexpected arguments: %q", args)
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}
	if listen == "" {
		listen = config.Server.Listen
	}
	if output == "" {
		output = config.Output.Or(tracefile.DefaultDir)
	}
	outputPath, err := output.Resolve()
	if err != nil {
		return err
	}

	logger := slog.Default()
	server := config.NewServer(outputPath, logger)
	if ackRate > 0 {
		server.AckRate = rate.Limit(ackRate)
	}

	if archived {
		a, err := config.CreateArchive()
		if err != nil {
			return err
		}
		a = a.WithLogger(logger)
		server.OnSession = func(ctx context.Context, session *remote.Session) error {
			_, err := a.Store(ctx, session.Dir, session.ID)
			return err
		}
	}

	l, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Handler:  server.Handler(),
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	logger.Info("trace consumer listening", "addr", l.Addr(), "output", outputPath, "archive", archived)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := httpServer.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
