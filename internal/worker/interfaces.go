package worker

import (
	"context"

	"basegraph.app/nudge/internal/model"
	"basegraph.app/nudge/internal/queue"
	"basegraph.app/nudge/internal/service"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// MessageHandler is satisfied by service.ReminderService.
type MessageHandler interface {
	HandleIncomingText(ctx context.Context, owner, text string) service.Action
}

type Replier interface {
	Deliver(ctx context.Context, d model.Delivery) error
}
