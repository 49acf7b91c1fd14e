package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/angeloszaimis/collab-sync/internal/metrics"
	"github.com/angeloszaimis/collab-sync/internal/router"
	"github.com/angeloszaimis/collab-sync/internal/transport"
)

// WebSocket upgrades requests and runs one read loop per connection, feeding
// every frame to that connection's router session.
type WebSocket struct {
	ctx       context.Context
	router    *router.Router
	opts      transport.Options
	upgrader  websocket.Upgrader
	collector *metrics.Collector
	logger    *slog.Logger
}

// NewWebSocket creates the handler. Connections are closed when ctx is done.
// An empty allowedOrigins list accepts every origin.
func NewWebSocket(
	ctx context.Context,
	r *router.Router,
	opts transport.Options,
	allowedOrigins []string,
	collector *metrics.Collector,
	logger *slog.Logger,
) *WebSocket {
	return &WebSocket{
		ctx:    ctx,
		router: r,
		opts:   opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		collector: collector,
		logger:    logger.With(slog.String("component", "websocket")),
	}
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return slices.ContainsFunc(allowed, func(a string) bool {
			return a == "*" || strings.EqualFold(a, origin) || strings.EqualFold(a, u.Host)
		})
	}
}

func (h *WebSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		h.logger.Warn("WebSocket upgrade failed",
			slog.String("from", extractClientIP(r)),
			slog.Any("err", err))
		return
	}

	conn := transport.New(ws, h.opts, h.logger)
	h.serve(conn, extractClientIP(r))
}

func (h *WebSocket) serve(conn *transport.Conn, remote string) {
	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()

	logger := h.logger.With(slog.String("conn_id", conn.ID()))
	logger.Info("Client connected", slog.String("from", remote))
	h.collector.Emit(metrics.Event{Type: metrics.EventConnectionOpened})

	session := h.router.NewSession(conn)
	defer func() {
		session.Close()
		_ = conn.Close()
		h.collector.Emit(metrics.Event{Type: metrics.EventConnectionClosed})
		logger.Info("Client disconnected")
	}()

	go conn.KeepAlive(ctx)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if transport.IsUnexpectedClose(err) && ctx.Err() == nil {
				logger.Warn("Connection closed unexpectedly", slog.Any("err", err))
			}
			return
		}
		session.Handle(ctx, frame)
	}
}
