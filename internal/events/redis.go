package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-redis/redis/v8"
)

// DefaultChannelPrefix namespaces per-user Redis channels.
const DefaultChannelPrefix = "ledger:events:"

// RedisBroker publishes events on a per-user Redis channel so every server
// instance can feed its own subscribers.
type RedisBroker struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisBroker creates a RedisBroker on an already connected client.
func NewRedisBroker(client *redis.Client, logger *slog.Logger) *RedisBroker {
	return &RedisBroker{client: client, prefix: DefaultChannelPrefix, logger: logger}
}

// Channel returns the Redis channel carrying userID's events.
func (b *RedisBroker) Channel(userID string) string {
	return b.prefix + userID
}

// Publish sends ev as JSON on the user's channel.
func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.Channel(ev.UserID), string(payload)).Err()
}

// Subscribe listens on userID's channel until ctx is done. Payloads that
// fail to decode are logged and skipped.
func (b *RedisBroker) Subscribe(ctx context.Context, userID string) (<-chan Event, error) {
	ps := b.client.Subscribe(ctx, b.Channel(userID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, err
	}

	out := make(chan Event, 16)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.Warn("dropping malformed event", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()

	return out, nil
}
