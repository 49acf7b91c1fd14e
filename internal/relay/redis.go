package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Envelope is the pub/sub message body.
type Envelope struct {
	Origin     string          `json:"origin"`
	DocumentID string          `json:"documentId"`
	Payload    json.RawMessage `json:"payload"`
}

// DeliverFunc hands a frame received from another instance to local members.
type DeliverFunc func(documentID string, payload []byte)

type Redis struct {
	client *redis.Client
	prefix string
	origin string
	logger *slog.Logger
}

func NewRedis(client *redis.Client, prefix, origin string, logger *slog.Logger) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		origin: origin,
		logger: logger.With(slog.String("component", "relay")),
	}
}

// Origin is the id stamped on this instance's messages.
func (r *Redis) Origin() string {
	return r.origin
}

// Channel returns the pub/sub channel of a document.
func (r *Redis) Channel(documentID string) string {
	return r.prefix + documentID
}

func (r *Redis) Publish(ctx context.Context, documentID string, payload []byte) error {
	data, err := json.Marshal(Envelope{
		Origin:     r.origin,
		DocumentID: documentID,
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("encode relay envelope: %w", err)
	}

	if err := r.client.Publish(ctx, r.Channel(documentID), data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", r.Channel(documentID), err)
	}
	return nil
}

// Run subscribes to every document channel and delivers foreign messages until
// ctx is cancelled.
func (r *Redis) Run(ctx context.Context, deliver DeliverFunc) error {
	pubsub := r.client.PSubscribe(ctx, r.prefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe relay: %w", err)
	}

	r.logger.Info("Relay subscribed", slog.String("pattern", r.prefix+"*"))
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(msg.Payload, deliver)
		}
	}
}

func (r *Redis) handle(raw string, deliver DeliverFunc) {
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		r.logger.Warn("Dropping malformed relay message", slog.Any("err", err))
		return
	}

	if env.Origin == r.origin || env.DocumentID == "" {
		return
	}

	deliver(env.DocumentID, env.Payload)
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
