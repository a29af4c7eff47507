package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"basegraph.app/nudge/core/config"
	"basegraph.app/nudge/core/db"
)

const postgresCollectionName = "reminders"

// OpenCollection builds the collection selected by cfg.Backend. rdb and
// database may be nil when the backend does not need them.
func OpenCollection(ctx context.Context, cfg config.StoreConfig, rdb redis.Cmdable, database *db.DB) (Collection, error) {
	switch cfg.Backend {
	case config.StoreBackendFile:
		return NewFileCollection(cfg.Path)

	case config.StoreBackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis store selected without a redis client")
		}
		return NewRedisCollection(rdb, cfg.RedisKey), nil

	case config.StoreBackendPostgres:
		if database == nil {
			return nil, fmt.Errorf("postgres store selected without a database")
		}
		c := NewPostgresCollection(database.Pool(), database, postgresCollectionName)
		if err := c.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
