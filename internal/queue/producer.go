package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// InboundMessage is what a chat gateway publishes for the worker.
type InboundMessage struct {
	Owner     string
	Text      string
	MessageID string
	TraceID   *string
}

type Producer interface {
	Enqueue(ctx context.Context, msg InboundMessage) (string, error)
}

type redisProducer struct {
	client redis.Cmdable
	stream string
}

func NewRedisProducer(client redis.Cmdable, stream string) Producer {
	return &redisProducer{
		client: client,
		stream: stream,
	}
}

// Enqueue appends the message to the stream and returns the entry id.
func (p *redisProducer) Enqueue(ctx context.Context, msg InboundMessage) (string, error) {
	values := messageValues(Message{
		Owner:     msg.Owner,
		Text:      msg.Text,
		MessageID: msg.MessageID,
	}, 1)
	if msg.TraceID != nil && *msg.TraceID != "" {
		values["trace_id"] = *msg.TraceID
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("enqueue message: %w", err)
	}

	slog.InfoContext(ctx, "enqueued inbound message", "stream", p.stream, "entry_id", id)
	return id, nil
}
