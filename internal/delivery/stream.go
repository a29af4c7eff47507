package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"basegraph.app/nudge/internal/model"
)

// StreamDeliverer appends deliveries to a Redis stream that a chat gateway
// consumes.
type StreamDeliverer struct {
	client redis.Cmdable
	stream string
}

func NewStreamDeliverer(client redis.Cmdable, stream string) *StreamDeliverer {
	return &StreamDeliverer{client: client, stream: stream}
}

func (s *StreamDeliverer) Deliver(ctx context.Context, d model.Delivery) error {
	values := map[string]any{
		"owner": d.Owner,
		"text":  d.Text,
	}
	if d.ReminderID != "" {
		values["reminder_id"] = d.ReminderID
	}

	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: values,
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd delivery (stream=%s): %w", s.stream, err)
	}

	slog.DebugContext(ctx, "delivery appended to stream", "stream", s.stream, "entry_id", id)
	return nil
}
