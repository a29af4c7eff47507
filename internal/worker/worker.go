package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"basegraph.app/nudge/common/logger"
	"basegraph.app/nudge/internal/model"
	"basegraph.app/nudge/internal/queue"
	"basegraph.app/nudge/internal/service"
)

type Config struct {
	MaxAttempts int
}

// Worker reads inbound chat messages from the stream, runs them through the
// reminder service and sends any reply back to the owner.
type Worker struct {
	consumer Consumer
	handler  MessageHandler
	replier  Replier
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, handler MessageHandler, replier Replier, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Worker{
		consumer:  consumer,
		handler:   handler,
		replier:   replier,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "nudge.worker"})
	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
				case <-w.stopCh:
				}
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.ProcessMessage(ctx, msg); err != nil {
			w.handleFailedMessage(ctx, msg, err)
		}
	}
	return nil
}

// ProcessMessage handles one entry and acks it. A reply that cannot be
// delivered is logged, not retried, since the reminder it confirms already
// exists. Exported so the reclaimer can reuse it.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) (err error) {
	fields := logger.LogFields{Owner: logger.Ptr(msg.Owner)}
	if msg.MessageID != "" {
		fields.MessageID = logger.Ptr(msg.MessageID)
	}
	ctx = logger.WithLogFields(ctx, fields)

	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_message")
	defer sc.End()
	ctx = sc.Context()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"entry_id", msg.ID,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
			sc.RecordError(err)
		}
	}()

	slog.DebugContext(ctx, "processing message",
		"entry_id", msg.ID,
		"attempt", msg.Attempt)

	if strings.TrimSpace(msg.Text) != "" {
		action := w.handler.HandleIncomingText(ctx, msg.Owner, msg.Text)
		if action.Kind == service.ActionReply {
			w.reply(ctx, model.Delivery{Owner: msg.Owner, Text: action.Text, TraceID: sc.TraceID()})
		}
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// the reclaimer will see it again; handling is not idempotent so log loudly
		slog.WarnContext(ctx, "failed to ACK message",
			"error", err,
			"entry_id", msg.ID)
	}
	return nil
}

func (w *Worker) reply(ctx context.Context, d model.Delivery) {
	if err := w.replier.Deliver(ctx, d); err != nil {
		slog.ErrorContext(ctx, "failed to deliver reply", "error", err)
	}
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"entry_id", msg.ID,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"entry_id", msg.ID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
