package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"basegraph.app/nudge/common/logger"
	"basegraph.app/nudge/internal/model"
	"basegraph.app/nudge/internal/store"
)

// ErrStopped is returned by Schedule after Stop.
var ErrStopped = errors.New("scheduler stopped")

// Deliverer hands a notification to whatever transport reaches the owner.
type Deliverer interface {
	Deliver(ctx context.Context, d model.Delivery) error
}

// NotificationText renders the message sent when a reminder fires.
type NotificationText interface {
	Notification(ctx context.Context, r model.Reminder) string
}

type Config struct {
	// Grace is added to "now" when a requested time is not in the future.
	Grace           time.Duration
	DeliveryTimeout time.Duration
	Now             func() time.Time
}

// Scheduler owns the id -> timer table. Every pending reminder in the store
// has exactly one armed timer once ReconcileOnStart has run; removal paths
// delete the store record first and then stop the timer.
type Scheduler struct {
	store     store.ReminderStore
	deliverer Deliverer
	texts     NotificationText
	metrics   *Metrics

	grace           time.Duration
	deliveryTimeout time.Duration
	now             func() time.Time

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	stats   model.ReconcileStats

	ready     chan struct{}
	readyOnce sync.Once
	inflight  sync.WaitGroup
}

func New(s store.ReminderStore, deliverer Deliverer, texts NotificationText, metrics *Metrics, cfg Config) *Scheduler {
	if cfg.Grace <= 0 {
		cfg.Grace = time.Minute
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 10 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Scheduler{
		store:           s,
		deliverer:       deliverer,
		texts:           texts,
		metrics:         metrics,
		grace:           cfg.Grace,
		deliveryTimeout: cfg.DeliveryTimeout,
		now:             cfg.Now,
		timers:          make(map[string]*time.Timer),
		ready:           make(chan struct{}),
	}
}

// Schedule persists a reminder and arms its timer. It blocks until startup
// reconciliation has loaded its snapshot. A due time that is not in the
// future is moved to now + grace.
func (s *Scheduler) Schedule(ctx context.Context, owner string, dueAt time.Time, payload string) (model.Reminder, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return model.Reminder{}, ctx.Err()
	}

	if s.isStopped() {
		return model.Reminder{}, ErrStopped
	}

	if now := s.now(); !dueAt.After(now) {
		dueAt = now.Add(s.grace)
	}

	r, err := s.store.Create(ctx, owner, dueAt, payload)
	if err != nil {
		return model.Reminder{}, fmt.Errorf("creating reminder: %w", err)
	}

	s.arm(r)

	slog.InfoContext(ctx, "reminder scheduled",
		"reminder_id", r.ID,
		"due_at", r.DueAt,
		"payload", logger.Truncate(r.Payload, 80))

	return r, nil
}

// Cancel deletes the reminder and stops its timer. It is safe for ids with
// no record or no timer. A delivery already in flight is not retracted.
func (s *Scheduler) Cancel(ctx context.Context, id string) (bool, error) {
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("deleting reminder %s: %w", id, err)
	}

	s.disarm(id)
	if removed {
		s.metrics.addCancelled(1)
	}
	return removed, nil
}

// CancelMatching cancels the owner's first reminder whose payload matches
// query. It returns store.ErrNotFound when nothing matches.
func (s *Scheduler) CancelMatching(ctx context.Context, owner, query string) (model.Reminder, error) {
	r, err := s.store.FindByOwnerAndPayloadMatch(ctx, owner, query)
	if err != nil {
		return model.Reminder{}, err
	}

	removed, err := s.Cancel(ctx, r.ID)
	if err != nil {
		return model.Reminder{}, err
	}
	if !removed {
		// fired between the lookup and the delete
		return model.Reminder{}, store.ErrNotFound
	}
	return r, nil
}

// ClearOwner deletes every reminder the owner has and stops their timers.
func (s *Scheduler) ClearOwner(ctx context.Context, owner string) ([]model.Reminder, error) {
	removed, err := s.store.DeleteByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("deleting reminders for owner: %w", err)
	}

	for _, r := range removed {
		s.disarm(r.ID)
	}
	s.metrics.addCancelled(len(removed))
	return removed, nil
}

// ReconcileOnStart loads every persisted reminder, deletes the ones already
// due without delivering them and arms the rest. Schedule is held until it
// returns.
func (s *Scheduler) ReconcileOnStart(ctx context.Context) (model.ReconcileStats, error) {
	defer s.markReady()

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "nudge.scheduler"})

	reminders, err := s.store.List(ctx)
	if err != nil {
		return model.ReconcileStats{}, fmt.Errorf("loading reminders: %w", err)
	}

	now := s.now()
	stats := model.ReconcileStats{Loaded: len(reminders), At: now}

	for _, r := range reminders {
		if r.DueAt.After(now) {
			s.arm(r)
			stats.Armed++
			continue
		}

		if _, err := s.store.Delete(ctx, r.ID); err != nil {
			slog.ErrorContext(ctx, "failed to reap past-due reminder",
				"error", err,
				"reminder_id", r.ID)
			continue
		}
		s.metrics.incReaped()
		stats.Reaped++
		slog.InfoContext(ctx, "reaped past-due reminder",
			"reminder_id", r.ID,
			"due_at", r.DueAt)
	}

	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()

	slog.InfoContext(ctx, "scheduler reconciled",
		"loaded", stats.Loaded,
		"armed", stats.Armed,
		"reaped", stats.Reaped)

	return stats, nil
}

// Stop disarms every timer and waits for in-flight fires to finish or for
// ctx to expire. Persisted reminders are left for the next start.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.metrics.setArmed(0)
	s.mu.Unlock()

	s.markReady()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Armed returns the number of live timers.
func (s *Scheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) IsArmed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

func (s *Scheduler) Stats() model.ReconcileStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Ready is closed once reconciliation has finished.
func (s *Scheduler) Ready() <-chan struct{} {
	return s.ready
}

func (s *Scheduler) arm(r model.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if t, ok := s.timers[r.ID]; ok {
		t.Stop()
	}

	delay := r.DueAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	id := r.ID
	s.timers[id] = time.AfterFunc(delay, func() { s.fire(id) })
	s.metrics.setArmed(len(s.timers))
}

func (s *Scheduler) disarm(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.metrics.setArmed(len(s.timers))
}

// fire runs on the timer goroutine. The store record is re-read so a
// cancellation that won the race suppresses delivery.
func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.metrics.setArmed(len(s.timers))
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	ctx := logger.WithLogFields(context.Background(), logger.LogFields{
		ReminderID: logger.Ptr(id),
		Component:  "nudge.scheduler",
	})
	sc := logger.StartSpan(ctx, "scheduler.fire")
	defer sc.End()
	ctx = sc.Context()

	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "panic while firing reminder",
				"panic", rec,
				"stack", string(debug.Stack()))
		}
	}()

	r, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.DebugContext(ctx, "reminder gone before firing")
			return
		}
		sc.RecordError(err)
		slog.ErrorContext(ctx, "failed to load reminder at fire time", "error", err)
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Owner: logger.Ptr(r.Owner)})

	deliverCtx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	text := s.texts.Notification(deliverCtx, r)
	err = s.deliverer.Deliver(deliverCtx, model.Delivery{
		Owner:      r.Owner,
		Text:       text,
		ReminderID: r.ID,
		TraceID:    sc.TraceID(),
	})
	cancel()

	s.metrics.incFired()
	if err != nil {
		s.metrics.incDeliveryFailure()
		sc.RecordError(err)
		slog.ErrorContext(ctx, "reminder delivery failed", "error", err)
	} else {
		slog.InfoContext(ctx, "reminder delivered")
	}

	if _, err := s.store.Delete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "failed to delete fired reminder", "error", err)
	}
}

func (s *Scheduler) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Scheduler) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
