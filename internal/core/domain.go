package core

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// DefaultWindow is how long a reminder to the same contact stays suppressed.
const DefaultWindow = 20 * time.Hour

// MaxContactIDLength bounds the size of a contact token in bytes.
const MaxContactIDLength = 128

type (
	// ContactID identifies the counterparty of a reminder. Its origin (phone
	// number, internal id) is irrelevant here.
	ContactID string

	// Record is the last successful reminder for one contact.
	Record struct {
		ContactID  ContactID
		LastSentAt time.Time
	}

	// Status is the answer to a cooldown query.
	Status struct {
		ContactID  ContactID
		OnCooldown bool
		// TimeLeft is the humanized remaining time, empty when not on cooldown.
		TimeLeft string
		// Remaining is the exact remaining duration, zero when not on cooldown.
		Remaining time.Duration
		// ExpiresAt is when the cooldown lifts, zero when not on cooldown.
		ExpiresAt time.Time
	}
)

var (
	ErrEmptyContact   = errors.New("empty contact id")
	ErrContactTooLong = errors.New("contact id too long (max 128 bytes)")
	ErrInvalidContact = errors.New("contact id contains control characters")
	ErrInvalidWindow  = errors.New("invalid cooldown window")
)

func (c ContactID) String() string {
	return string(c)
}

// Validate rejects empty, oversized and control-character ids.
func (c ContactID) Validate() error {
	if strings.TrimSpace(string(c)) == "" {
		return ErrEmptyContact
	}
	if len(c) > MaxContactIDLength {
		return ErrContactTooLong
	}
	for _, r := range string(c) {
		if unicode.IsControl(r) {
			return ErrInvalidContact
		}
	}
	return nil
}

// ExpiresAt returns when the record stops suppressing reminders.
func (r Record) ExpiresAt(window time.Duration) time.Time {
	return r.LastSentAt.Add(window)
}

// ValidateWindow accepts whole-hour windows between one hour and thirty days.
// Elapsed time is compared in whole hours, so sub-hour windows are rejected.
func ValidateWindow(w time.Duration) error {
	if w < time.Hour || w > 30*24*time.Hour {
		return ErrInvalidWindow
	}
	if w%time.Hour != 0 {
		return ErrInvalidWindow
	}
	return nil
}

// Idle is the status of a contact with no active cooldown.
func Idle(id ContactID) Status {
	return Status{ContactID: id}
}
