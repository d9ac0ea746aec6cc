package kafka

import "time"

// Config holds configuration for the shared Kafka client.
type Config struct {
	Brokers         []string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
	// ConsumeTopics are read from the current end without a consumer group:
	// every tab must see every record.
	ConsumeTopics []string
}

// DefaultConfig returns defaults tuned for small, latency-sensitive signals.
func DefaultConfig(brokers []string, topics ...string) Config {
	return Config{
		Brokers:         brokers,
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
		ConsumeTopics:   topics,
	}
}
