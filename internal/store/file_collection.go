package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"basegraph.app/nudge/internal/model"
)

// FileCollection keeps all reminders in one JSON file, rewritten wholesale
// through a temp file and rename so a crash never leaves a partial file.
type FileCollection struct {
	path string
}

func NewFileCollection(path string) (*FileCollection, error) {
	if path == "" {
		return nil, fmt.Errorf("reminder file path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating reminder directory: %w", err)
	}

	return &FileCollection{path: path}, nil
}

func (c *FileCollection) Load(ctx context.Context) ([]model.Reminder, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Reminder{}, nil
		}
		return nil, fmt.Errorf("reading reminder file: %w", err)
	}

	if len(data) == 0 {
		return []model.Reminder{}, nil
	}

	var reminders []model.Reminder
	if err := json.Unmarshal(data, &reminders); err != nil {
		return nil, fmt.Errorf("decoding reminder file %s: %w", c.path, err)
	}
	if reminders == nil {
		reminders = []model.Reminder{}
	}
	return reminders, nil
}

func (c *FileCollection) Save(ctx context.Context, reminders []model.Reminder) error {
	if reminders == nil {
		reminders = []model.Reminder{}
	}

	data, err := json.MarshalIndent(reminders, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding reminders: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing temp reminder file: %w", err)
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming reminder file: %w", err)
	}

	return nil
}

func (c *FileCollection) Path() string {
	return c.path
}
