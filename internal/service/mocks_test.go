package service_test

import (
	"context"
	"sync"
	"time"

	"basegraph.app/nudge/common/llm"
	"basegraph.app/nudge/internal/model"
)

type memoryCollection struct {
	mu        sync.Mutex
	reminders []model.Reminder
}

func (c *memoryCollection) Load(context.Context) ([]model.Reminder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Reminder(nil), c.reminders...), nil
}

func (c *memoryCollection) Save(_ context.Context, reminders []model.Reminder) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reminders = append([]model.Reminder(nil), reminders...)
	return nil
}

type mockScheduler struct {
	scheduleFn       func(ctx context.Context, owner string, dueAt time.Time, payload string) (model.Reminder, error)
	cancelMatchingFn func(ctx context.Context, owner, query string) (model.Reminder, error)
	clearOwnerFn     func(ctx context.Context, owner string) ([]model.Reminder, error)
}

func (m *mockScheduler) Schedule(ctx context.Context, owner string, dueAt time.Time, payload string) (model.Reminder, error) {
	if m.scheduleFn != nil {
		return m.scheduleFn(ctx, owner, dueAt, payload)
	}
	return model.Reminder{ID: "1", Owner: owner, DueAt: dueAt, Payload: payload}, nil
}

func (m *mockScheduler) CancelMatching(ctx context.Context, owner, query string) (model.Reminder, error) {
	if m.cancelMatchingFn != nil {
		return m.cancelMatchingFn(ctx, owner, query)
	}
	return model.Reminder{}, nil
}

func (m *mockScheduler) ClearOwner(ctx context.Context, owner string) ([]model.Reminder, error) {
	if m.clearOwnerFn != nil {
		return m.clearOwnerFn(ctx, owner)
	}
	return nil, nil
}

type countingObserver struct {
	outcomes []string
}

func (o *countingObserver) ObserveParse(outcome string) {
	o.outcomes = append(o.outcomes, outcome)
}

type stubConfirmer struct{}

func (stubConfirmer) Confirmation(_ context.Context, r model.Reminder) string {
	return "ok: " + r.Payload
}

type mockLLM struct {
	generateFn func(ctx context.Context, req llm.Request, result any) (*llm.Response, error)
	calls      int
}

func (m *mockLLM) Generate(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	m.calls++
	return m.generateFn(ctx, req, result)
}

func (m *mockLLM) Model() string { return "mock" }
