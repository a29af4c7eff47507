package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"basegraph.app/nudge/internal/model"
)

const reminderCollectionSchema = `
CREATE TABLE IF NOT EXISTS reminder_collections (
	name       TEXT PRIMARY KEY,
	reminders  JSONB NOT NULL DEFAULT '[]'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// pgxQuerier is the subset of pgxpool.Pool the collection uses.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txRunner is satisfied by *db.DB.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// PostgresCollection stores the reminder list as a single JSONB row. Saves
// lock the row before replacing it, so writers from several processes
// (the server and nudgectl) are applied one at a time.
type PostgresCollection struct {
	db   pgxQuerier
	tx   txRunner
	name string
}

func NewPostgresCollection(db pgxQuerier, tx txRunner, name string) *PostgresCollection {
	return &PostgresCollection{db: db, tx: tx, name: name}
}

// EnsureSchema creates the backing table if it does not exist.
func (c *PostgresCollection) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.Exec(ctx, reminderCollectionSchema); err != nil {
		return fmt.Errorf("creating reminder_collections table: %w", err)
	}
	return nil
}

func (c *PostgresCollection) Load(ctx context.Context) ([]model.Reminder, error) {
	var data []byte
	err := c.db.QueryRow(ctx,
		`SELECT reminders FROM reminder_collections WHERE name = $1`, c.name,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []model.Reminder{}, nil
		}
		return nil, fmt.Errorf("reading reminders from postgres: %w", err)
	}

	var reminders []model.Reminder
	if err := json.Unmarshal(data, &reminders); err != nil {
		return nil, fmt.Errorf("decoding reminders from postgres: %w", err)
	}
	if reminders == nil {
		reminders = []model.Reminder{}
	}
	return reminders, nil
}

func (c *PostgresCollection) Save(ctx context.Context, reminders []model.Reminder) error {
	if reminders == nil {
		reminders = []model.Reminder{}
	}

	data, err := json.Marshal(reminders)
	if err != nil {
		return fmt.Errorf("encoding reminders: %w", err)
	}

	return c.tx.WithTx(ctx, func(tx pgx.Tx) error {
		var locked int
		err := tx.QueryRow(ctx,
			`SELECT 1 FROM reminder_collections WHERE name = $1 FOR UPDATE`, c.name,
		).Scan(&locked)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("locking reminder collection: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO reminder_collections (name, reminders, updated_at)
			VALUES ($1, $2::jsonb, now())
			ON CONFLICT (name) DO UPDATE
			SET reminders = EXCLUDED.reminders, updated_at = EXCLUDED.updated_at`,
			c.name, string(data),
		)
		if err != nil {
			return fmt.Errorf("writing reminders to postgres: %w", err)
		}
		return nil
	})
}
