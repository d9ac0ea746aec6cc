package broadcast

import (
	"context"
	"log/slog"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"

	"storefront/internal/platform/kafka"
)

// KafkaChannel carries events on one topic per signal. Tabs read without a
// consumer group so every tab sees every record.
type KafkaChannel struct {
	client *kafka.Client
	topics map[Kind]string
	logger *slog.Logger
}

// Topics returns the topic names used for origin, in Kinds order.
func Topics(prefix, origin string) []string {
	topics := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		topics = append(topics, topicName(prefix, origin, k))
	}
	return topics
}

// topicName maps a signal onto Kafka's legal topic charset.
func topicName(prefix, origin string, kind Kind) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, origin)
	return prefix + "." + clean + ".signal." + kind.signal()
}

// NewKafkaChannel expects client to consume Topics(prefix, origin).
func NewKafkaChannel(client *kafka.Client, prefix, origin string, logger *slog.Logger) *KafkaChannel {
	if logger == nil {
		logger = slog.Default()
	}
	topics := make(map[Kind]string, len(Kinds))
	for _, k := range Kinds {
		topics[k] = topicName(prefix, origin, k)
	}
	return &KafkaChannel{client: client, topics: topics, logger: logger}
}

func (c *KafkaChannel) Publish(ctx context.Context, ev Event) error {
	payload, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	return c.client.Produce(ctx, &kafka.Message{
		Topic: c.topics[ev.Kind],
		Key:   []byte(ev.Origin.String()),
		Value: payload,
		Headers: map[string]string{
			"kind": string(ev.Kind),
		},
	})
}

func (c *KafkaChannel) Listen(ctx context.Context, deliver func(Event)) error {
	return c.client.Consume(ctx, func(r *kgo.Record) {
		ev, err := decodeEvent(r.Value)
		if err != nil {
			c.logger.WarnContext(ctx, "dropping malformed broadcast",
				"topic", r.Topic,
				"offset", r.Offset,
				"error", err,
			)
			return
		}
		deliver(ev)
	})
}
