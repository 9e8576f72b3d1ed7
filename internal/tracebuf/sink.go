package tracebuf

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Sink is the destination of flushed chunks.
//
// WriteChunk receives the pieces of one chunk in order. The pieces are only
// valid for the duration of the call; sinks that deliver asynchronously must
// copy them.
type Sink interface {
	WriteChunk(pieces [][]byte) error
	Close() error
}

// Syncer is implemented by sinks that can wait until every chunk written so
// far reached its final destination.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Sync waits for sink to deliver its chunks if it implements Syncer.
func Sync(ctx context.Context, sink Sink) error {
	if s, ok := sink.(Syncer); ok {
		return s.Sync(ctx)
	}
	return nil
}

// Discard is a sink that drops every chunk.
var Discard Sink = discard{}

type discard struct{}

func (discard) WriteChunk([][]byte) error { return nil }
func (discard) Close() error              { return nil }

// FileSink writes chunks to a local file.
//
// The file is created, replacing any previous content, when the first chunk
// is written, so a session that never produces records leaves no trace file
// behind. Once a write failed, every later call returns the same error.
type FileSink struct {
	mutex     sync.Mutex
	path      string
	file      *os.File
	written   int64
	closed    bool
	stickyErr error
}

// NewFileSink constructs a sink writing to the file at path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Path returns the path of the file that the sink writes to.
func (s *FileSink) Path() string { return s.path }

// Written returns the number of bytes written so far.
func (s *FileSink) Written() int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.written
}

func (s *FileSink) WriteChunk(pieces [][]byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.stickyErr != nil {
		return s.stickyErr
	}
	if s.closed {
		return fmt.Errorf("writing trace file: %w", os.ErrClosed)
	}
	if s.file == nil {
		if err := s.open(); err != nil {
			s.stickyErr = err
			return err
		}
	}
	for _, piece := range pieces {
		n, err := s.file.Write(piece)
		s.written += int64(n)
		if err != nil {
			s.stickyErr = fmt.Errorf("writing trace file: %w", err)
			return s.stickyErr
		}
	}
	return nil
}

func (s *FileSink) open() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0777); err != nil {
		return fmt.Errorf("creating trace directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return fmt.Errorf("opening trace file: %w", err)
	}
	s.file = f
	return nil
}

// Sync commits the content of the file to stable storage.
func (s *FileSink) Sync(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.stickyErr != nil {
		return s.stickyErr
	}
	if s.file == nil {
		return nil
	}
	return s.file.Sync()
}

// Close closes the underlying file. Chunks written after Close are rejected.
func (s *FileSink) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.closed = true
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err == nil {
		err = s.stickyErr
	}
	return err
}

// WriterSink writes chunks to an io.Writer.
type WriterSink struct {
	output    io.Writer
	stickyErr error
}

// NewWriterSink constructs a sink writing chunks to w. If w implements
// io.Closer, closing the sink closes w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{output: w}
}

func (s *WriterSink) WriteChunk(pieces [][]byte) error {
	if s.stickyErr != nil {
		return s.stickyErr
	}
	for _, piece := range pieces {
		if _, err := s.output.Write(piece); err != nil {
			s.stickyErr = err
			return err
		}
	}
	return nil
}

func (s *WriterSink) Close() error {
	if c, ok := s.output.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var (
	_ Sink   = (*FileSink)(nil)
	_ Syncer = (*FileSink)(nil)
	_ Sink   = (*WriterSink)(nil)
)
