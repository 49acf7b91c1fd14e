package router

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/angeloszaimis/collab-sync/internal/analytics"
	"github.com/angeloszaimis/collab-sync/internal/fanout"
	"github.com/angeloszaimis/collab-sync/internal/metrics"
	"github.com/angeloszaimis/collab-sync/internal/protocol"
	"github.com/angeloszaimis/collab-sync/internal/registry"
)

const processingFailed = "Failed to process message"

type Router struct {
	registry   *registry.Registry
	aggregator *analytics.Aggregator
	fanout     *fanout.Fanout
	logger     *slog.Logger
	collector  *metrics.Collector
	now        func() time.Time
}

type Option func(*Router)

func WithCollector(c *metrics.Collector) Option {
	return func(r *Router) {
		r.collector = c
	}
}

// WithClock overrides the source of relay timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
	}
}

func New(reg *registry.Registry, agg *analytics.Aggregator, fan *fanout.Fanout, logger *slog.Logger, opts ...Option) *Router {
	r := &Router{
		registry:   reg,
		aggregator: agg,
		fanout:     fan,
		logger:     logger.With(slog.String("component", "router")),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State is a connection's position in the protocol.
type State struct {
	Joined     bool
	DocumentID string
}

// Session handles the inbound frames of one connection. It is not safe for
// concurrent use; a connection's read loop owns it.
type Session struct {
	router *Router
	conn   registry.Conn
	logger *slog.Logger
	userID string
	closed bool
}

func (r *Router) NewSession(conn registry.Conn) *Session {
	return &Session{
		router: r,
		conn:   conn,
		logger: r.logger.With(slog.String("conn_id", conn.ID())),
	}
}

func (s *Session) State() State {
	documentID, ok := s.router.registry.RoomOf(s.conn)
	return State{Joined: ok, DocumentID: documentID}
}

// UserID is the identifier the client announced when joining, if any.
func (s *Session) UserID() string {
	return s.userID
}

// Handle processes one inbound frame.
func (s *Session) Handle(ctx context.Context, frame []byte) {
	if s.closed {
		return
	}

	msg, err := protocol.Decode(frame)
	if err != nil {
		s.router.collector.Emit(metrics.Event{Type: metrics.EventFrameRejected})
		s.logger.Warn("Rejected inbound frame", slog.Any("err", err))
		s.reply(protocol.NewError(processingFailed))
		return
	}

	frameType := string(msg.Type())
	if _, ok := msg.(protocol.Unknown); ok {
		frameType = metrics.UnknownFrameType
	}
	s.router.collector.Emit(metrics.Event{
		Type:      metrics.EventFrameReceived,
		FrameType: frameType,
	})

	switch m := msg.(type) {
	case protocol.JoinDocument:
		s.handleJoin(m)
	case protocol.TextUpdate:
		s.handleTextUpdate(ctx, m)
	case protocol.CursorUpdate:
		s.handleCursorUpdate(ctx, m)
	case protocol.RequestAnalytics:
		s.handleRequestAnalytics(m)
	case protocol.Unknown:
		s.logger.Debug("Ignoring unknown message type", slog.String("type", m.Name))
	}
}

func (s *Session) handleJoin(m protocol.JoinDocument) {
	result := s.router.registry.Join(s.conn, m.DocumentID)
	if m.UserID != "" {
		s.userID = m.UserID
	}

	s.logger.Info("Client joined document",
		slog.String("document_id", m.DocumentID),
		slog.String("status", result.Status),
		slog.String("left", result.Left),
		slog.Int("members", len(s.router.registry.Members(m.DocumentID))))

	s.reply(protocol.NewJoinedDocument(m.DocumentID))
}

func (s *Session) handleTextUpdate(ctx context.Context, m protocol.TextUpdate) {
	if m.ParagraphID != "" && m.UserID != "" {
		s.router.aggregator.RecordEdit(m.DocumentID, m.ParagraphID, m.UserID)
		s.router.aggregator.UpdateParagraphLength(m.DocumentID, m.ParagraphID, utf8.RuneCountInString(m.Content))
	}

	payload, err := protocol.Encode(protocol.NewTextUpdateRelay(m, s.router.now()))
	if err != nil {
		s.logger.Error("Failed to encode text update", slog.Any("err", err))
		s.reply(protocol.NewError(processingFailed))
		return
	}

	s.router.fanout.Broadcast(ctx, m.DocumentID, s.conn, payload)
}

func (s *Session) handleCursorUpdate(ctx context.Context, m protocol.CursorUpdate) {
	documentID, ok := s.router.registry.RoomOf(s.conn)
	if !ok {
		return
	}

	s.router.fanout.Broadcast(ctx, documentID, s.conn, m.Raw)
}

func (s *Session) handleRequestAnalytics(m protocol.RequestAnalytics) {
	points := s.router.aggregator.VisualizationSnapshot(m.DocumentID)
	s.reply(protocol.NewAnalyticsData(m.DocumentID, points))
}

// Close leaves the connection's room. Later frames are ignored.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true

	if documentID, ok := s.router.registry.Leave(s.conn); ok {
		s.logger.Info("Client left document", slog.String("document_id", documentID))
	}
}

func (s *Session) reply(frame any) {
	payload, err := protocol.Encode(frame)
	if err != nil {
		s.logger.Error("Failed to encode reply", slog.Any("err", err))
		return
	}

	if err := s.conn.Send(payload); err != nil {
		s.logger.Warn("Failed to send reply", slog.Any("err", err))
	}
}
