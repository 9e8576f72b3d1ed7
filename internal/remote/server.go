package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"
	"golang.org/x/time/rate"

	"github.com/stealthrocket/travioli/internal/tracebuf"
	"github.com/stealthrocket/travioli/internal/tracefile"
)

// Ack is the acknowledgment sent by the server for every chunk.
const Ack = "ok"

// Session describes the trace received over one connection.
type Session struct {
	ID        uuid.UUID `json:"id"        yaml:"id"`
	Dir       string    `json:"dir"       yaml:"dir"`
	Remote    string    `json:"remote"    yaml:"remote"`
	Chunks    int       `json:"chunks"    yaml:"chunks"`
	Size      int64     `json:"size"      yaml:"size"`
	StartTime time.Time `json:"startTime" yaml:"startTime"`
	EndTime   time.Time `json:"endTime"   yaml:"endTime"`
}

// TracePath returns the path of the trace file of the session.
func (s *Session) TracePath() string {
	return filepath.Join(s.Dir, tracefile.TraceFile)
}

// Server is a trace consumer. Every websocket connection that negotiates
// Protocol is a session whose chunks are appended, in order, to the file
// trace.csv of a directory named after the session id.
type Server struct {
	// Output is the directory where session directories are created.
	Output string
	// MaxMessageSize limits the size of received chunks. Defaults to
	// DefaultMaxMessageSize.
	MaxMessageSize int
	// AckRate limits the rate of acknowledgments sent on each connection,
	// which throttles producers since they wait for the acknowledgment
	// before sending the next chunk. Zero means no limit.
	AckRate rate.Limit
	// OnSession is called when a connection is closed, after its trace file
	// was closed. Errors are logged.
	OnSession func(ctx context.Context, session *Session) error
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Handler returns the http.Handler accepting trace connections.
func (s *Server) Handler() http.Handler {
	return websocket.Server{
		Handshake: s.handshake,
		Handler:   s.serve,
	}
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Server) handshake(config *websocket.Config, req *http.Request) error {
	if !slices.Contains(config.Protocol, Protocol) {
		s.logger().Warn("rejecting trace connection", "remote", req.RemoteAddr, "protocols", config.Protocol)
		return fmt.Errorf("unsupported websocket protocols: %q", config.Protocol)
	}
	config.Protocol = []string{Protocol}
	return nil
}

func (s *Server) serve(ws *websocket.Conn) {
	defer ws.Close()

	max := s.MaxMessageSize
	if max <= 0 {
		max = DefaultMaxMessageSize
	}
	ws.MaxPayloadBytes = max

	ctx := ws.Request().Context()
	session := &Session{
		ID:        uuid.New(),
		Remote:    ws.Request().RemoteAddr,
		StartTime: time.Now(),
	}
	session.Dir = filepath.Join(s.Output, session.ID.String())
	logger := s.logger().With("session", session.ID, "remote", session.Remote)
	logger.Info("trace session started")

	sink := tracebuf.NewFileSink(session.TracePath())
	limiter := rate.NewLimiter(rate.Inf, 1)
	if s.AckRate > 0 {
		limiter = rate.NewLimiter(s.AckRate, 1)
	}

	err := s.receive(ctx, ws, sink, limiter, session)
	if closeErr := sink.Close(); err == nil {
		err = closeErr
	}
	session.EndTime = time.Now()
	if err != nil {
		logger.Error("trace session failed", "error", err)
	}
	logger.Info("trace session ended", "chunks", session.Chunks, "size", session.Size)

	if s.OnSession != nil && session.Chunks > 0 {
		if err := s.OnSession(ctx, session); err != nil {
			logger.Error("trace session handler failed", "error", err)
		}
	}
}

func (s *Server) receive(ctx context.Context, ws *websocket.Conn, sink *tracebuf.FileSink, limiter *rate.Limiter, session *Session) error {
	var chunk []byte
	for {
		if err := websocket.Message.Receive(ws, &chunk); err != nil {
			if isClosed(err) {
				return nil
			}
			return fmt.Errorf("receiving trace chunk: %w", err)
		}
		if err := sink.WriteChunk([][]byte{chunk}); err != nil {
			return err
		}
		session.Chunks++
		session.Size += int64(len(chunk))

		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := websocket.Message.Send(ws, Ack); err != nil {
			return fmt.Errorf("acknowledging trace chunk: %w", err)
		}
	}
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
