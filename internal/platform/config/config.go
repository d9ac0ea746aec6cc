package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	strs "storefront/pkg/string"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Broadcast drivers.
const (
	BroadcastMemory = "memory"
	BroadcastRedis  = "redis"
	BroadcastKafka  = "kafka"
)

// DefaultBackendTimeout bounds every backend request.
var DefaultBackendTimeout = 10 * time.Second

// Agent captures storefront agent configuration.
type Agent struct {
	Addr        string
	Environment string
	// Origin namespaces storage keys and broadcast signals. Tabs sharing an
	// origin share a session and a cart.
	Origin string
	// TabID pins the tab identity; empty means a fresh random id at startup.
	TabID string

	BackendURL     string
	BackendTimeout time.Duration

	StorageDriver string
	StorageDir    string
	RedisURL      string
	DatabaseURL   string

	BroadcastDriver  string
	KafkaBrokers     []string
	KafkaTopicPrefix string
}

// Load reads an optional dotenv file (missing files are ignored) and then
// builds the config from the environment. Real environment variables win.
func Load(envFiles ...string) (Agent, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Agent{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds an Agent config from environment variables so main stays lean.
func FromEnv() (Agent, error) {
	cfg := Agent{
		Addr:             getenv("STOREFRONT_ADDR", ":8081"),
		Environment:      getenv("ENVIRONMENT", "development"),
		Origin:           getenv("STOREFRONT_ORIGIN", "storefront"),
		TabID:            os.Getenv("STOREFRONT_TAB_ID"),
		BackendURL:       getenv("BACKEND_URL", "http://localhost:8080"),
		BackendTimeout:   DefaultBackendTimeout,
		StorageDriver:    getenv("STORAGE_DRIVER", StorageMemory),
		StorageDir:       getenv("STORAGE_DIR", ".storefront"),
		RedisURL:         os.Getenv("REDIS_URL"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		BroadcastDriver:  getenv("BROADCAST_DRIVER", BroadcastMemory),
		KafkaTopicPrefix: getenv("KAFKA_TOPIC_PREFIX", "storefront"),
	}

	if raw := os.Getenv("BACKEND_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return Agent{}, fmt.Errorf("invalid BACKEND_TIMEOUT %q", raw)
		}
		cfg.BackendTimeout = d
	}
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		cfg.KafkaBrokers = strs.DedupeAndTrim(strings.Split(raw, ","))
	}

	if err := cfg.validate(); err != nil {
		return Agent{}, err
	}
	return cfg, nil
}

func (c Agent) validate() error {
	switch c.StorageDriver {
	case StorageMemory, StorageFile:
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("STORAGE_DRIVER=redis requires REDIS_URL")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("STORAGE_DRIVER=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.BroadcastDriver {
	case BroadcastMemory:
	case BroadcastRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("BROADCAST_DRIVER=redis requires REDIS_URL")
		}
	case BroadcastKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("BROADCAST_DRIVER=kafka requires KAFKA_BROKERS")
		}
	default:
		return fmt.Errorf("unknown BROADCAST_DRIVER %q", c.BroadcastDriver)
	}
	return nil
}

// IsProduction reports whether the agent runs in production.
func (c Agent) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
