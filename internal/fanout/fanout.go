package fanout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/angeloszaimis/collab-sync/internal/circuitbreaker"
	"github.com/angeloszaimis/collab-sync/internal/metrics"
	"github.com/angeloszaimis/collab-sync/internal/registry"
)

const defaultRelayTimeout = 2 * time.Second

// Relay publishes a local broadcast to other server instances.
type Relay interface {
	Publish(ctx context.Context, documentID string, payload []byte) error
}

// Result counts what happened to each room member.
type Result struct {
	Delivered int
	Skipped   int
	Failed    int
}

type Fanout struct {
	registry     *registry.Registry
	logger       *slog.Logger
	collector    *metrics.Collector
	relay        Relay
	breaker      *circuitbreaker.CircuitBreaker
	relayTimeout time.Duration
}

type Option func(*Fanout)

func WithCollector(c *metrics.Collector) Option {
	return func(f *Fanout) {
		f.collector = c
	}
}

// WithRelay enables cross-instance publishing guarded by breaker.
func WithRelay(relay Relay, breaker *circuitbreaker.CircuitBreaker) Option {
	return func(f *Fanout) {
		f.relay = relay
		f.breaker = breaker
	}
}

func New(reg *registry.Registry, logger *slog.Logger, opts ...Option) *Fanout {
	f := &Fanout{
		registry:     reg,
		logger:       logger.With(slog.String("component", "fanout")),
		relayTimeout: defaultRelayTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Broadcast sends payload to every open member of the room except sender and
// publishes it to the relay when one is configured.
func (f *Fanout) Broadcast(ctx context.Context, documentID string, sender registry.Conn, payload []byte) Result {
	result := f.deliver(documentID, sender, payload)

	if f.relay != nil {
		f.publish(ctx, documentID, payload)
	}

	return result
}

// DeliverRemote sends a frame received from another instance to every open
// local member of the room.
func (f *Fanout) DeliverRemote(documentID string, payload []byte) Result {
	return f.deliver(documentID, nil, payload)
}

func (f *Fanout) deliver(documentID string, sender registry.Conn, payload []byte) Result {
	var result Result

	members := f.registry.Members(documentID)
	if len(members) == 0 {
		return result
	}

	for _, member := range members {
		if sender != nil && member.ID() == sender.ID() {
			continue
		}
		if !member.IsOpen() {
			result.Skipped++
			continue
		}

		if err := member.Send(payload); err != nil {
			result.Failed++
			f.logger.Warn("Failed to deliver broadcast",
				slog.String("document_id", documentID),
				slog.String("conn_id", member.ID()),
				slog.Any("err", err))
			continue
		}
		result.Delivered++
	}

	f.collector.Emit(metrics.Event{
		Type:      metrics.EventBroadcast,
		Delivered: result.Delivered,
		Failed:    result.Failed,
	})

	return result
}

func (f *Fanout) publish(ctx context.Context, documentID string, payload []byte) {
	call := func() error {
		publishCtx, cancel := context.WithTimeout(ctx, f.relayTimeout)
		defer cancel()
		return f.relay.Publish(publishCtx, documentID, payload)
	}

	var err error
	if f.breaker != nil {
		err = f.breaker.Do(call)
	} else {
		err = call()
	}
	if err == nil {
		return
	}

	f.collector.Emit(metrics.Event{Type: metrics.EventRelayFailed})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		f.logger.Debug("Relay circuit open, skipping publish", slog.String("document_id", documentID))
		return
	}
	f.logger.Warn("Relay publish failed",
		slog.String("document_id", documentID),
		slog.Any("err", err))
}
