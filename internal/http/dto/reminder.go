package dto

import (
	"time"

	"basegraph.app/nudge/internal/model"
)

type ReminderResponse struct {
	ID      string `json:"id"`
	Owner   string `json:"owner"`
	DueAt   string `json:"due_at"`
	Payload string `json:"payload"`
}

type ListRemindersResponse struct {
	Reminders []ReminderResponse `json:"reminders"`
}

type SchedulerStatusResponse struct {
	Armed        int     `json:"armed"`
	Loaded       int     `json:"loaded"`
	ArmedAtStart int     `json:"armed_at_start"`
	Reaped       int     `json:"reaped"`
	ReconciledAt *string `json:"reconciled_at,omitempty"`
}

func ToReminderResponse(r model.Reminder) ReminderResponse {
	return ReminderResponse{
		ID:      r.ID,
		Owner:   r.Owner,
		DueAt:   r.DueAt.Format(time.RFC3339),
		Payload: r.Payload,
	}
}

func ToSchedulerStatus(armed int, stats model.ReconcileStats) SchedulerStatusResponse {
	resp := SchedulerStatusResponse{
		Armed:        armed,
		Loaded:       stats.Loaded,
		ArmedAtStart: stats.Armed,
		Reaped:       stats.Reaped,
	}
	if !stats.At.IsZero() {
		at := stats.At.Format(time.RFC3339)
		resp.ReconciledAt = &at
	}
	return resp
}
