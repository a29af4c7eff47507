package store

import (
	"context"
	"errors"
	"time"

	"basegraph.app/nudge/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrEmptyPayload rejects reminders with nothing to remind about.
var ErrEmptyPayload = errors.New("reminder payload is empty")

// Collection persists the full reminder list in one write. A failed Save
// must leave the previously saved list intact.
type Collection interface {
	Load(ctx context.Context) ([]model.Reminder, error)
	Save(ctx context.Context, reminders []model.Reminder) error
}

// ReminderStore defines the contract for reminder data access. Every
// mutation is a load-modify-save of the whole collection under one lock.
type ReminderStore interface {
	Create(ctx context.Context, owner string, dueAt time.Time, payload string) (model.Reminder, error)
	Get(ctx context.Context, id string) (model.Reminder, error)
	// Delete is idempotent; removed reports whether a record existed.
	Delete(ctx context.Context, id string) (removed bool, err error)
	DeleteByOwner(ctx context.Context, owner string) ([]model.Reminder, error)
	List(ctx context.Context) ([]model.Reminder, error)
	ListByOwner(ctx context.Context, owner string) ([]model.Reminder, error)
	FindByOwnerAndPayloadMatch(ctx context.Context, owner, query string) (model.Reminder, error)
}
