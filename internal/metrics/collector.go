package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventConnectionOpened EventType = "connection_opened"
	EventConnectionClosed EventType = "connection_closed"
	EventFrameReceived    EventType = "frame_received"
	EventFrameRejected    EventType = "frame_rejected"
	EventBroadcast        EventType = "broadcast"
	EventRelayFailed      EventType = "relay_failed"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	FrameType string
	Delivered int
	Failed    int
}

type Collector struct {
	eventCh chan Event
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan Event, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

// Emit queues an event without blocking. A nil collector discards events.
func (c *Collector) Emit(event Event) {
	if c == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("Metrics buffer full, dropping event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event Event) {
	switch event.Type {
	case EventConnectionOpened:
		c.metrics.ConnectionOpened()
	case EventConnectionClosed:
		c.metrics.ConnectionClosed()
	case EventFrameReceived:
		c.metrics.FrameReceived(event.FrameType)
	case EventFrameRejected:
		c.metrics.FrameRejected()
	case EventBroadcast:
		c.metrics.RecordBroadcast(event.Delivered, event.Failed)
	case EventRelayFailed:
		c.metrics.RelayFailed()
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
