package tracer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/stealthrocket/travioli/internal/tracebuf"
	"github.com/stealthrocket/travioli/internal/tracefile"
)

// Teardown flushes the trace and writes the string table and the source map
// next to it. Events received after Teardown are ignored.
//
// Teardown waits for the sink to acknowledge every chunk, or for ctx to be
// canceled. Calling Teardown more than once is a no-op.
func (t *Tracer) Teardown(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true

	var errs []error
	if err := t.buffer.Stop(); err != nil && !errors.Is(err, t.err) {
		errs = append(errs, err)
	}
	if err := tracebuf.Sync(ctx, t.sink); err != nil {
		errs = append(errs, fmt.Errorf("waiting for trace delivery: %w", err))
	}
	if err := t.sink.Close(); err != nil {
		errs = append(errs, err)
	}

	stringsPath := filepath.Join(t.output, tracefile.StringsFile)
	if err := tracefile.WriteFile(stringsPath, t.registry.Strings()); err != nil {
		errs = append(errs, err)
	}
	sourceMapPath := filepath.Join(t.output, tracefile.SourceMapFile)
	if err := tracefile.WriteFile(sourceMapPath, t.scripts.SourceMap()); err != nil {
		errs = append(errs, err)
	}

	if t.depth != 0 {
		t.logger.Warn("tracing ended with activations still open", "depth", t.depth)
	}
	t.logger.Info("tracing ended",
		"output", t.output,
		"records", t.records,
		"strings", t.registry.Strings().Len())

	if t.err != nil {
		errs = append([]error{t.err}, errs...)
	}
	return errors.Join(errs...)
}
