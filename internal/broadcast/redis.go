package broadcast

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisChannel carries events over redis pub/sub, one redis channel per
// signal name.
type RedisChannel struct {
	client *redis.Client
	origin string
	logger *slog.Logger
}

func NewRedisChannel(client *redis.Client, origin string, logger *slog.Logger) *RedisChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisChannel{client: client, origin: origin, logger: logger}
}

func (c *RedisChannel) Publish(ctx context.Context, ev Event) error {
	payload, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	if err := c.client.Publish(ctx, SignalName(c.origin, ev.Kind), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Listen subscribes to both signals and returns once ctx is done.
func (c *RedisChannel) Listen(ctx context.Context, deliver func(Event)) error {
	names := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		names = append(names, SignalName(c.origin, k))
	}

	sub := c.client.Subscribe(ctx, names...)
	defer sub.Close() //nolint:errcheck // closing on shutdown

	// Wait for the subscription confirmation so publishes after Listen
	// starts are not missed.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("redis subscription closed")
			}
			ev, err := decodeEvent([]byte(msg.Payload))
			if err != nil {
				c.logger.WarnContext(ctx, "dropping malformed broadcast", "channel", msg.Channel, "error", err)
				continue
			}
			deliver(ev)
		}
	}
}
