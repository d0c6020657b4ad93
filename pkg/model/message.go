package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is a single chat message between two users.
// Created remotely; this side only ever reads and renders it.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Body       string    `json:"message"`
	Timestamp  Timestamp `json:"timestamp"`
	IsRead     bool      `json:"is_read"`
	SenderName string    `json:"sender_name,omitempty"`
}

// SentBy reports whether the message was sent by the given local identity.
// Rendered alignment (sent vs received) depends on exactly this comparison.
func (m Message) SentBy(selfID int64) bool {
	return m.SenderID == selfID
}

// Timestamp wraps time.Time to accept the backend's timestamp spellings.
// The server stores SQLite text timestamps, so history rows arrive as
// "2006-01-02 15:04:05[.999999]" while newer payloads use RFC 3339.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON parses any of the known layouts. Empty and null both decode
// to the zero time.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("model: timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("model: unrecognized timestamp %q", s)
}

// MarshalJSON emits RFC 3339, or null for the zero time.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}
