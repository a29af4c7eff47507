package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"basegraph.app/nudge/common/logger"
	"basegraph.app/nudge/internal/queue"
)

type RedisReclaimerConfig struct {
	Stream    string
	Group     string
	Consumer  string
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
	// MaxDeliveries moves an entry to the DLQ once Redis has handed it out
	// this many times.
	MaxDeliveries int64
}

// ReclaimResult summarizes one reclaim pass.
type ReclaimResult struct {
	Processed    int
	DeadLettered int
	Dropped      int // unparseable entries acked away
	Failed       int
}

// RedisReclaimer takes over inbound entries left pending by a consumer that
// died between XREADGROUP and XACK.
type RedisReclaimer struct {
	client    redis.Cmdable
	cfg       RedisReclaimerConfig
	consumer  Consumer
	processor queue.MessageProcessor

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewRedisReclaimer(client redis.Cmdable, cfg RedisReclaimerConfig, consumer Consumer, processor queue.MessageProcessor) *RedisReclaimer {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.MinIdle <= 0 {
		cfg.MinIdle = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = 3
	}
	return &RedisReclaimer{
		client:    client,
		cfg:       cfg,
		consumer:  consumer,
		processor: processor,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run reclaims every Interval until Stop is called or ctx ends.
func (r *RedisReclaimer) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "nudge.worker.reclaimer"})
	defer close(r.stoppedCh)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle,
		"stream", r.cfg.Stream)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			res, err := r.ReclaimOnce(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "reclaim pass failed", "error", err)
				continue
			}
			if res != (ReclaimResult{}) {
				slog.InfoContext(ctx, "reclaim pass finished",
					"processed", res.Processed,
					"dead_lettered", res.DeadLettered,
					"dropped", res.Dropped,
					"failed", res.Failed)
			}
		}
	}
}

func (r *RedisReclaimer) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

// ReclaimOnce claims up to BatchSize idle entries in a single XCLAIM and
// handles each: over-delivered ones go to the DLQ, the rest are processed
// again under this consumer.
func (r *RedisReclaimer) ReclaimOnce(ctx context.Context) (ReclaimResult, error) {
	var res ReclaimResult

	pending, err := r.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: r.cfg.Stream,
		Group:  r.cfg.Group,
		Idle:   r.cfg.MinIdle,
		Start:  "-",
		End:    "+",
		Count:  r.cfg.BatchSize,
	}).Result()
	if err != nil {
		return res, fmt.Errorf("xpending: %w", err)
	}
	if len(pending) == 0 {
		return res, nil
	}

	deliveries := make(map[string]int64, len(pending))
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		deliveries[p.ID] = p.RetryCount
		ids = append(ids, p.ID)
	}

	claimed, err := r.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   r.cfg.Stream,
		Group:    r.cfg.Group,
		Consumer: r.cfg.Consumer,
		MinIdle:  r.cfg.MinIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return res, fmt.Errorf("xclaim: %w", err)
	}

	// entries another consumer grabbed first are simply absent from claimed
	for _, raw := range claimed {
		r.handleClaimed(ctx, raw, deliveries[raw.ID], &res)
	}
	return res, nil
}

func (r *RedisReclaimer) handleClaimed(ctx context.Context, raw redis.XMessage, delivered int64, res *ReclaimResult) {
	msg, err := queue.ParseMessage(raw)
	if err != nil {
		slog.WarnContext(ctx, "dropping unparseable reclaimed entry",
			"error", err,
			"entry_id", raw.ID)
		_ = r.consumer.Ack(ctx, queue.Message{ID: raw.ID, Raw: raw})
		res.Dropped++
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Owner: logger.Ptr(msg.Owner)})

	if delivered >= r.cfg.MaxDeliveries {
		reason := fmt.Sprintf("abandoned after %d deliveries", delivered)
		if err := r.consumer.SendDLQ(ctx, msg, reason); err != nil {
			slog.ErrorContext(ctx, "failed to dead-letter reclaimed entry", "error", err, "entry_id", msg.ID)
			res.Failed++
			return
		}
		res.DeadLettered++
		return
	}

	if err := r.processor(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "reclaimed entry failed again",
			"error", err,
			"entry_id", msg.ID,
			"deliveries", delivered)
		res.Failed++
		return
	}
	res.Processed++
}
