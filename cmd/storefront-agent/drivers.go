package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"storefront/internal/broadcast"
	"storefront/internal/platform/config"
	"storefront/internal/platform/database"
	"storefront/internal/platform/health"
	"storefront/internal/platform/kafka"
	"storefront/internal/platform/redis"
	"storefront/internal/storage"
	"storefront/migrations"
)

const poolStatsInterval = 15 * time.Second

// drivers opens the storage and broadcast backends named by the config and
// remembers how to close them.
type drivers struct {
	cfg    config.Agent
	log    *slog.Logger
	reg    prometheus.Registerer
	checks *health.Handler

	redis      *redis.Client
	closers    []func() error
	background []func(context.Context)
}

func (d *drivers) storage(ctx context.Context) (storage.Storage, error) {
	switch d.cfg.StorageDriver {
	case config.StorageFile:
		return storage.NewFile(d.cfg.StorageDir, d.cfg.Origin)
	case config.StorageRedis:
		rc, err := d.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return storage.NewRedis(rc, d.cfg.Origin), nil
	case config.StoragePostgres:
		pool, err := database.New(ctx, database.DefaultConfig(d.cfg.DatabaseURL))
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, pool.Close)
		d.checks.RegisterCheck("postgres", pool.Health)
		if err := database.Migrate(ctx, pool.DB(), migrations.FS); err != nil {
			return nil, err
		}
		return storage.NewPostgres(pool.DB(), d.cfg.Origin), nil
	default:
		return storage.NewMemory(d.cfg.Origin), nil
	}
}

// channel returns nil for the memory driver: a single process hosts a
// single tab, so only local delivery applies.
func (d *drivers) channel(ctx context.Context) (broadcast.Channel, error) {
	switch d.cfg.BroadcastDriver {
	case config.BroadcastRedis:
		rc, err := d.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return broadcast.NewRedisChannel(rc.Client, d.cfg.Origin, d.log), nil
	case config.BroadcastKafka:
		topics := broadcast.Topics(d.cfg.KafkaTopicPrefix, d.cfg.Origin)
		kc, err := kafka.New(kafka.DefaultConfig(d.cfg.KafkaBrokers, topics...), d.log)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, kc.Close)
		d.checks.RegisterCheck("kafka", kc.Health)
		if err := kc.EnsureTopics(ctx, topics...); err != nil {
			return nil, err
		}
		return broadcast.NewKafkaChannel(kc, d.cfg.KafkaTopicPrefix, d.cfg.Origin, d.log), nil
	default:
		return nil, nil
	}
}

// redisClient opens one client shared by storage and broadcast.
func (d *drivers) redisClient(ctx context.Context) (*redis.Client, error) {
	if d.redis != nil {
		return d.redis, nil
	}
	rc, err := redis.New(ctx, d.cfg.RedisURL, d.reg)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	d.redis = rc
	d.closers = append(d.closers, rc.Close)
	d.checks.RegisterCheck("redis", rc.Health)
	d.background = append(d.background, func(ctx context.Context) {
		rc.RunPoolStats(ctx, poolStatsInterval)
	})
	return rc, nil
}

func (d *drivers) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.log.Warn("close driver", "error", err)
		}
	}
}
