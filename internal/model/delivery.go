package model

// Delivery is a message for an owner: a fired reminder's notification or a
// reply to something the owner sent. ReminderID is empty for replies.
// TraceID is the trace that produced the delivery, empty when tracing is off.
type Delivery struct {
	Owner      string `json:"owner"`
	Text       string `json:"text"`
	ReminderID string `json:"reminder_id,omitempty"`
	TraceID    string `json:"trace_id,omitempty"`
}
