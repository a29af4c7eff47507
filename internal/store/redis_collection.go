package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"basegraph.app/nudge/internal/model"
)

// RedisCollection stores the reminder list as one JSON string under a key.
// SET replaces the value atomically.
type RedisCollection struct {
	client redis.Cmdable
	key    string
}

func NewRedisCollection(client redis.Cmdable, key string) *RedisCollection {
	return &RedisCollection{client: client, key: key}
}

func (c *RedisCollection) Load(ctx context.Context) ([]model.Reminder, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []model.Reminder{}, nil
		}
		return nil, fmt.Errorf("reading reminders from redis: %w", err)
	}

	var reminders []model.Reminder
	if err := json.Unmarshal(data, &reminders); err != nil {
		return nil, fmt.Errorf("decoding reminders from redis key %s: %w", c.key, err)
	}
	if reminders == nil {
		reminders = []model.Reminder{}
	}
	return reminders, nil
}

func (c *RedisCollection) Save(ctx context.Context, reminders []model.Reminder) error {
	if reminders == nil {
		reminders = []model.Reminder{}
	}

	data, err := json.Marshal(reminders)
	if err != nil {
		return fmt.Errorf("encoding reminders: %w", err)
	}

	if err := c.client.Set(ctx, c.key, data, 0).Err(); err != nil {
		return fmt.Errorf("writing reminders to redis: %w", err)
	}
	return nil
}
