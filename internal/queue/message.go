package queue

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Message is one inbound chat message read from the stream.
type Message struct {
	ID        string // stream entry id
	Owner     string
	Text      string
	MessageID string // id assigned by the chat platform, optional
	TraceID   string
	Attempt   int
	Raw       redis.XMessage
}

func ParseMessage(msg redis.XMessage) (Message, error) {
	owner, err := parseString(msg.Values, "owner")
	if err != nil {
		return Message{}, err
	}
	if strings.TrimSpace(owner) == "" {
		return Message{}, fmt.Errorf("empty owner")
	}
	text, err := parseString(msg.Values, "text")
	if err != nil {
		return Message{}, err
	}

	attempt, err := parseOptionalInt(msg.Values, "attempt")
	if err != nil {
		return Message{}, err
	}
	if attempt == 0 {
		attempt = 1
	}

	return Message{
		ID:        msg.ID,
		Owner:     owner,
		Text:      text,
		MessageID: parseOptionalString(msg.Values, "message_id"),
		TraceID:   parseOptionalString(msg.Values, "trace_id"),
		Attempt:   attempt,
		Raw:       msg,
	}, nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	return fmt.Sprint(raw), nil
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	num, err := strconv.Atoi(fmt.Sprint(raw))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalString(values map[string]any, key string) string {
	raw, ok := values[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(raw)
}

func messageValues(msg Message, attempt int) map[string]any {
	values := map[string]any{
		"owner":   msg.Owner,
		"text":    msg.Text,
		"attempt": attempt,
	}
	if msg.MessageID != "" {
		values["message_id"] = msg.MessageID
	}
	if msg.TraceID != "" {
		values["trace_id"] = msg.TraceID
	}
	return values
}
