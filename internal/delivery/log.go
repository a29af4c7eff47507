package delivery

import (
	"context"
	"log/slog"

	"basegraph.app/nudge/internal/model"
)

// LogDeliverer writes deliveries to the log. Used in development.
type LogDeliverer struct{}

func NewLogDeliverer() *LogDeliverer {
	return &LogDeliverer{}
}

func (LogDeliverer) Deliver(ctx context.Context, d model.Delivery) error {
	slog.InfoContext(ctx, "delivery",
		"owner", d.Owner,
		"reminder_id", d.ReminderID,
		"text", d.Text)
	return nil
}
