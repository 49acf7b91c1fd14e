package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrClosed is returned when writing to a connection that is no longer open.
var ErrClosed = errors.New("connection closed")

type Options struct {
	ReadLimit    int64         // Max inbound frame size in bytes
	WriteTimeout time.Duration // Deadline for each write
	PingInterval time.Duration // Keepalive period; peers must pong within twice this
}

func DefaultOptions() Options {
	return Options{
		ReadLimit:    1 << 20,
		WriteTimeout: 5 * time.Second,
		PingInterval: 30 * time.Second,
	}
}

type Conn struct {
	id     string
	ws     *websocket.Conn
	opts   Options
	logger *slog.Logger

	writeMu   sync.Mutex
	open      atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func New(ws *websocket.Conn, opts Options, logger *slog.Logger) *Conn {
	c := &Conn{
		id:   uuid.NewString(),
		ws:   ws,
		opts: opts,
		done: make(chan struct{}),
	}
	c.logger = logger.With(slog.String("conn_id", c.id))
	c.open.Store(true)

	if opts.ReadLimit > 0 {
		ws.SetReadLimit(opts.ReadLimit)
	}
	if opts.PingInterval > 0 {
		pongWait := 2 * opts.PingInterval
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	return c
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) IsOpen() bool {
	return c.open.Load()
}

// Send writes one text frame. Concurrent calls are serialized.
func (c *Conn) Send(payload []byte) error {
	if !c.IsOpen() {
		return ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.opts.WriteTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.open.Store(false)
		return err
	}
	return nil
}

// ReadFrame blocks until the next data frame arrives. Any error is terminal.
func (c *Conn) ReadFrame() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		c.open.Store(false)
		return nil, err
	}
	return data, nil
}

// KeepAlive pings the peer until the connection closes or ctx is done.
func (c *Conn) KeepAlive(ctx context.Context) {
	if c.opts.PingInterval <= 0 {
		return
	}

	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.opts.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("Ping failed", slog.Any("err", err))
				c.open.Store(false)
				return
			}
		}
	}
}

// Close sends a close frame and releases the socket. Safe to call repeatedly.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.open.Store(false)
		close(c.done)

		deadline := time.Now().Add(time.Second)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = c.ws.Close()
	})
	return err
}

// IsUnexpectedClose reports whether err is a read error worth logging, as
// opposed to an ordinary client disconnect.
func IsUnexpectedClose(err error) bool {
	return websocket.IsUnexpectedCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
