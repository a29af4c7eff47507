package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"basegraph.app/nudge/common/id"
	"basegraph.app/nudge/core/config"
	"basegraph.app/nudge/core/db"
	"basegraph.app/nudge/internal/store"
)

// backend holds the connections a command opened; close releases them.
type backend struct {
	cfg       config.Config
	reminders store.ReminderStore
	redis     *redis.Client
	db        *db.DB
}

func openBackend(ctx context.Context) (*backend, error) {
	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := id.Init(cfg.NodeID); err != nil {
		return nil, fmt.Errorf("initializing id generator: %w", err)
	}

	b := &backend{cfg: cfg}

	var rdb redis.Cmdable
	if cfg.Store.Backend == config.StoreBackendRedis {
		c, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		b.redis = c
		rdb = c
	}
	if cfg.Store.Backend == config.StoreBackendPostgres {
		b.db, err = db.New(ctx, cfg.DB)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
	}

	collection, err := store.OpenCollection(ctx, cfg.Store, rdb, b.db)
	if err != nil {
		b.close()
		return nil, fmt.Errorf("opening store: %w", err)
	}
	b.reminders = store.NewReminderStore(collection, nil)
	return b, nil
}

func (b *backend) close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.db != nil {
		b.db.Close()
	}
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return c, nil
}
