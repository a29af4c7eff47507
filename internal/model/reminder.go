package model

import "time"

// Reminder is the only persisted entity. Records exist only while pending:
// firing, cancelling, reaping and clearing all delete them.
type Reminder struct {
	ID      string    `json:"id"`
	Owner   string    `json:"owner"`
	DueAt   time.Time `json:"dueAt"`
	Payload string    `json:"payload"`
}

// ReconcileStats summarizes a startup reconciliation.
type ReconcileStats struct {
	Loaded int       `json:"loaded"`
	Armed  int       `json:"armed"`
	Reaped int       `json:"reaped"`
	At     time.Time `json:"at"`
}
