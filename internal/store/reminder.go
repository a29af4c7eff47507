package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"basegraph.app/nudge/common/id"
	"basegraph.app/nudge/internal/intent"
	"basegraph.app/nudge/internal/model"
)

type reminderStore struct {
	mu         sync.Mutex
	collection Collection
	newID      func() string
}

// NewReminderStore builds a ReminderStore over a collection. newID defaults
// to snowflake ids, which sort in creation order.
func NewReminderStore(collection Collection, newID func() string) ReminderStore {
	if newID == nil {
		newID = id.NewString
	}
	return &reminderStore{collection: collection, newID: newID}
}

func (s *reminderStore) Create(ctx context.Context, owner string, dueAt time.Time, payload string) (model.Reminder, error) {
	if strings.TrimSpace(payload) == "" {
		return model.Reminder{}, ErrEmptyPayload
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reminders, err := s.collection.Load(ctx)
	if err != nil {
		return model.Reminder{}, fmt.Errorf("loading reminders: %w", err)
	}

	r := model.Reminder{
		ID:      s.newID(),
		Owner:   owner,
		DueAt:   dueAt,
		Payload: payload,
	}
	reminders = append(reminders, r)

	if err := s.collection.Save(ctx, reminders); err != nil {
		return model.Reminder{}, fmt.Errorf("saving reminders: %w", err)
	}
	return r, nil
}

func (s *reminderStore) Get(ctx context.Context, reminderID string) (model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders, err := s.collection.Load(ctx)
	if err != nil {
		return model.Reminder{}, fmt.Errorf("loading reminders: %w", err)
	}
	for _, r := range reminders {
		if r.ID == reminderID {
			return r, nil
		}
	}
	return model.Reminder{}, ErrNotFound
}

func (s *reminderStore) Delete(ctx context.Context, reminderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders, err := s.collection.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("loading reminders: %w", err)
	}

	before := len(reminders)
	kept := slices.DeleteFunc(reminders, func(r model.Reminder) bool { return r.ID == reminderID })
	if len(kept) == before {
		return false, nil
	}
	if err := s.collection.Save(ctx, kept); err != nil {
		return false, fmt.Errorf("saving reminders: %w", err)
	}
	return true, nil
}

func (s *reminderStore) DeleteByOwner(ctx context.Context, owner string) ([]model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders, err := s.collection.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading reminders: %w", err)
	}

	var removed, kept []model.Reminder
	for _, r := range reminders {
		if r.Owner == owner {
			removed = append(removed, r)
		} else {
			kept = append(kept, r)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}

	if err := s.collection.Save(ctx, kept); err != nil {
		return nil, fmt.Errorf("saving reminders: %w", err)
	}
	return removed, nil
}

func (s *reminderStore) List(ctx context.Context) ([]model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders, err := s.collection.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading reminders: %w", err)
	}
	return reminders, nil
}

func (s *reminderStore) ListByOwner(ctx context.Context, owner string) ([]model.Reminder, error) {
	reminders, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var owned []model.Reminder
	for _, r := range reminders {
		if r.Owner == owner {
			owned = append(owned, r)
		}
	}
	return owned, nil
}

// FindByOwnerAndPayloadMatch returns the owner's first reminder whose payload
// contains the query or is contained in it, ignoring case and accents.
func (s *reminderStore) FindByOwnerAndPayloadMatch(ctx context.Context, owner, query string) (model.Reminder, error) {
	q := strings.TrimSpace(intent.Fold(query))
	if q == "" {
		return model.Reminder{}, ErrNotFound
	}

	owned, err := s.ListByOwner(ctx, owner)
	if err != nil {
		return model.Reminder{}, err
	}

	for _, r := range owned {
		p := strings.TrimSpace(intent.Fold(r.Payload))
		if strings.Contains(p, q) || strings.Contains(q, p) {
			return r, nil
		}
	}
	return model.Reminder{}, ErrNotFound
}
