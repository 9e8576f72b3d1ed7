// Package remote delivers trace chunks to a consumer over a websocket.
//
// The client side is a Channel, a tracebuf.Sink which queues chunks and sends
// them one at a time: a chunk is only sent once the previous one has been
// acknowledged by the consumer. The server side is a Server which persists
// the chunks it receives and acknowledges each of them.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/stealthrocket/travioli/internal/tracebuf"
)

const (
	// Protocol is the websocket sub-protocol negotiated by both ends.
	Protocol = "log-protocol"

	// DefaultURL is the address of the consumer when none is configured.
	DefaultURL = "ws://127.0.0.1:8080"

	// DefaultMaxMessageSize is the largest chunk that can be sent when no
	// limit is configured.
	DefaultMaxMessageSize = 1024 * 1024

	defaultOrigin = "http://127.0.0.1/"
)

var (
	// ErrMessageTooLarge is the panic value raised when a chunk exceeds the
	// maximum message size. The trace buffer bounds chunks, so this only
	// happens when the two limits are misconfigured.
	ErrMessageTooLarge = errors.New("remote: message exceeds the maximum message size")

	// ErrClosed is returned when writing to a channel that was closed.
	ErrClosed = errors.New("remote: channel closed")
)

// Conn is a connection to a trace consumer.
type Conn interface {
	// Send transmits one message.
	Send(msg []byte) error
	// Receive blocks until the consumer acknowledges a message.
	Receive() error
	// Close closes the connection, unblocking pending calls.
	Close() error
}

// Dialer opens connections to a trace consumer.
type Dialer func(ctx context.Context) (Conn, error)

// Config configures a Channel.
type Config struct {
	// URL of the consumer. Defaults to DefaultURL.
	URL string
	// Origin sent during the websocket handshake.
	Origin string
	// MaxMessageSize is the size limit of a chunk. Defaults to
	// DefaultMaxMessageSize.
	MaxMessageSize int
	// Dial overrides how connections are established. Defaults to a
	// websocket dialer negotiating Protocol.
	Dial Dialer
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Channel is a tracebuf.Sink sending chunks to a remote consumer.
//
// The connection is opened lazily when the first chunk is written and is
// reused for the lifetime of the channel; reconnecting after a transport
// failure is left to the caller. At most one chunk is awaiting
// acknowledgment at any time.
type Channel struct {
	dial    Dialer
	max     int
	logger  *slog.Logger
	notify  chan struct{}
	closing chan struct{}
	exited  chan struct{}
	start   sync.Once

	mutex    sync.Mutex
	queue    [][]byte
	inflight int
	sent     int
	acked    int
	onflush  []func()
	conn     Conn
	closed   bool
	// A transport failure breaks the channel; every later call reports it.
	stickyErr error
}

// NewChannel constructs a channel from config.
func NewChannel(config Config) *Channel {
	c := &Channel{
		dial:    config.Dial,
		max:     config.MaxMessageSize,
		logger:  config.Logger,
		notify:  make(chan struct{}, 1),
		closing: make(chan struct{}),
		exited:  make(chan struct{}),
	}
	if c.max <= 0 {
		c.max = DefaultMaxMessageSize
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.dial == nil {
		url, origin := config.URL, config.Origin
		if url == "" {
			url = DefaultURL
		}
		if origin == "" {
			origin = defaultOrigin
		}
		c.dial = WebsocketDialer(url, origin)
	}
	return c
}

// MaxMessageSize returns the size limit of chunks.
func (c *Channel) MaxMessageSize() int { return c.max }

// WriteChunk joins the pieces into one message and queues it. The message is
// sent as soon as every previously queued message has been acknowledged.
//
// WriteChunk panics with ErrMessageTooLarge if the message exceeds the
// maximum message size.
func (c *Channel) WriteChunk(pieces [][]byte) error {
	msg := bytes.Join(pieces, nil)
	if len(msg) == 0 {
		return nil
	}
	if len(msg) > c.max {
		panic(fmt.Errorf("%w (%d>%d)", ErrMessageTooLarge, len(msg), c.max))
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.stickyErr != nil {
		return c.stickyErr
	}
	if c.closed {
		return ErrClosed
	}
	c.queue = append(c.queue, msg)
	c.start.Do(func() { go c.run() })

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

// OnFlush registers f to be called once the queue has drained. f is called
// immediately if nothing is queued, or when the channel breaks.
//
// The callback runs on the goroutine delivering the messages and must not
// block.
func (c *Channel) OnFlush(f func()) {
	c.mutex.Lock()
	if len(c.queue) > 0 && c.stickyErr == nil {
		c.onflush = append(c.onflush, f)
		f = nil
	}
	c.mutex.Unlock()
	if f != nil {
		f()
	}
}

// Sync blocks until every queued message was acknowledged, the channel broke,
// or ctx is canceled.
func (c *Channel) Sync(ctx context.Context) error {
	drained := make(chan struct{})
	c.OnFlush(func() { close(drained) })
	select {
	case <-drained:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of messages that were not acknowledged yet,
// including the one in flight.
func (c *Channel) Pending() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.queue)
}

// InFlight returns the number of messages sent and awaiting acknowledgment.
func (c *Channel) InFlight() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.inflight
}

// Err returns the transport error that broke the channel, if any.
func (c *Channel) Err() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.stickyErr
}

// Close stops the delivery goroutine and closes the connection. Messages that
// were not acknowledged are dropped; call Sync first to wait for them.
func (c *Channel) Close() error {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mutex.Unlock()

	close(c.closing)
	if conn != nil {
		conn.Close()
	}

	started := true
	c.start.Do(func() { started = false })
	if started {
		<-c.exited
	}
	return nil
}

func (c *Channel) run() {
	defer close(c.exited)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.closing:
			cancel()
		case <-ctx.Done():
		}
	}()

	conn, err := c.dial(ctx)
	if err != nil {
		c.fail(fmt.Errorf("connecting to trace consumer: %w", err))
		return
	}

	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.mutex.Unlock()
	c.logger.Info("trace consumer connected")
	defer c.logger.Info("trace consumer disconnected")

	for {
		select {
		case <-c.notify:
		case <-c.closing:
			return
		}

		for {
			msg := c.peek()
			if msg == nil {
				break
			}
			if err := conn.Send(msg); err != nil {
				c.fail(fmt.Errorf("sending trace chunk: %w", err))
				return
			}
			if err := conn.Receive(); err != nil {
				c.fail(fmt.Errorf("waiting for trace chunk acknowledgment: %w", err))
				return
			}
			c.pop()
		}
	}
}

// peek marks the oldest queued message as in flight and returns it.
func (c *Channel) peek() []byte {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if len(c.queue) == 0 || c.closed {
		return nil
	}
	c.inflight++
	c.sent++
	return c.queue[0]
}

// pop dequeues the acknowledged message, running the flush callbacks if the
// queue drained.
func (c *Channel) pop() {
	c.mutex.Lock()
	c.queue[0] = nil
	c.queue = c.queue[1:]
	c.inflight--
	c.acked++
	c.logger.Debug("trace chunk acknowledged", "acked", c.acked, "pending", len(c.queue))

	var callbacks []func()
	if len(c.queue) == 0 {
		callbacks, c.onflush = c.onflush, nil
	}
	c.mutex.Unlock()

	for _, f := range callbacks {
		f()
	}
}

func (c *Channel) fail(err error) {
	c.mutex.Lock()
	closed := c.closed
	if c.stickyErr == nil && !closed {
		c.stickyErr = err
	}
	dropped := len(c.queue)
	c.queue, c.inflight = nil, 0
	callbacks := c.onflush
	c.onflush = nil
	c.mutex.Unlock()

	if !closed {
		c.logger.Error("trace consumer failure", "error", err, "dropped", dropped)
	}
	for _, f := range callbacks {
		f()
	}
}

// WebsocketDialer returns a Dialer connecting to url over a websocket which
// negotiates Protocol. Canceling the context aborts the connection attempt.
func WebsocketDialer(url, origin string) Dialer {
	return func(ctx context.Context) (Conn, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		config, err := websocket.NewConfig(url, origin)
		if err != nil {
			return nil, err
		}
		config.Protocol = []string{Protocol}
		config.Dialer = &net.Dialer{Cancel: ctx.Done()}
		if deadline, ok := ctx.Deadline(); ok {
			config.Dialer.Deadline = deadline
		}
		ws, err := websocket.DialConfig(config)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
		return &websocketConn{ws: ws}, nil
	}
}

type websocketConn struct{ ws *websocket.Conn }

func (c *websocketConn) Send(msg []byte) error {
	return websocket.Message.Send(c.ws, string(msg))
}

func (c *websocketConn) Receive() error {
	var ack []byte
	return websocket.Message.Receive(c.ws, &ack)
}

func (c *websocketConn) Close() error { return c.ws.Close() }

var (
	_ tracebuf.Sink   = (*Channel)(nil)
	_ tracebuf.Syncer = (*Channel)(nil)
)
