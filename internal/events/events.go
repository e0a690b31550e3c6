// Package events fans cooldown changes out to message brokers so other
// services (and other UI sessions) learn about reminders without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"saldo/internal/cooldown"
	"saldo/internal/idgen"
)

// TopicReminderRecorded is the subject/routing key reminder events are published under.
const TopicReminderRecorded = "saldo.reminder.recorded"

// Publisher delivers an event to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// ReminderRecorded is published after every recorded reminder.
type ReminderRecorded struct {
	ID        string    `json:"id"`
	ContactID string    `json:"contact_id"`
	SentAt    time.Time `json:"sent_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Previous  time.Time `json:"previous_sent_at,omitzero"`
	Persisted bool      `json:"persisted"`
}

// NewReminderRecorded builds the event for a tracker change.
func NewReminderRecorded(c cooldown.Change) (*ReminderRecorded, error) {
	id, err := idgen.Generate(idgen.EventPrefix)
	if err != nil {
		return nil, err
	}
	return &ReminderRecorded{
		ID:        id,
		ContactID: string(c.ContactID),
		SentAt:    c.SentAt.UTC(),
		ExpiresAt: c.ExpiresAt.UTC(),
		Previous:  c.Previous.UTC(),
		Persisted: c.Persisted,
	}, nil
}

// ToJSON converts the event to JSON bytes
func (e *ReminderRecorded) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ReminderRecordedFromJSON decodes an event published by any Publisher.
func ReminderRecordedFromJSON(data []byte) (*ReminderRecorded, error) {
	var e ReminderRecorded
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode reminder event: %w", err)
	}
	if e.ContactID == "" {
		return nil, fmt.Errorf("decode reminder event: missing contact_id")
	}
	return &e, nil
}
