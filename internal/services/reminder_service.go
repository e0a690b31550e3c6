package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"saldo/internal/cooldown"
	"saldo/internal/core"
	"saldo/internal/log"
)

// ErrOnCooldown is wrapped by CooldownError.
var ErrOnCooldown = errors.New("reminder on cooldown")

// CooldownError reports a refused reminder and the status that refused it.
type CooldownError struct {
	Status core.Status
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("reminder to %s on cooldown for %s", e.Status.ContactID, e.Status.TimeLeft)
}

func (e *CooldownError) Unwrap() error {
	return ErrOnCooldown
}

// Rejections is notified when a reminder is refused. metrics.Metrics implements it.
type Rejections interface {
	ReminderRejected()
}

// Outcome is the result of a dispatched and recorded reminder.
type Outcome struct {
	Link     string
	Status   core.Status
	Snapshot cooldown.Snapshot
}

// ReminderService gates reminder dispatch on the cooldown tracker.
type ReminderService struct {
	tracker    *cooldown.Tracker
	logger     *log.Logger
	rejections Rejections

	// remindMu spans check, dispatch and record so two concurrent requests
	// for one contact cannot both pass the check.
	remindMu sync.Mutex
}

// NewReminderService creates a service over tracker. rejections may be nil.
func NewReminderService(tracker *cooldown.Tracker, logger *log.Logger, rejections Rejections) *ReminderService {
	if logger == nil {
		logger = log.Default(log.ComponentReminder)
	}
	return &ReminderService{
		tracker:    tracker,
		logger:     logger.WithComponent(log.ComponentReminder),
		rejections: rejections,
	}
}

// Status returns the cooldown status of id.
func (s *ReminderService) Status(id core.ContactID) (core.Status, error) {
	if err := id.Validate(); err != nil {
		return core.Status{}, err
	}
	return s.tracker.Check(id), nil
}

// Remind dispatches a reminder to id unless it is on cooldown, and records
// it once the dispatcher succeeds. A failed dispatch is not recorded.
func (s *ReminderService) Remind(ctx context.Context, id core.ContactID, d Dispatcher) (*Outcome, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	s.remindMu.Lock()
	defer s.remindMu.Unlock()

	if status := s.tracker.Check(id); status.OnCooldown {
		if s.rejections != nil {
			s.rejections.ReminderRejected()
		}
		s.logger.InfoContext(ctx, "Reminder refused, contact on cooldown",
			log.FieldContact, string(id),
			log.FieldExpiresAt, status.ExpiresAt)
		return nil, &CooldownError{Status: status}
	}

	link, err := d.Dispatch(ctx, Reminder{ContactID: id})
	if err != nil {
		s.logger.ErrorContext(ctx, "Reminder dispatch failed",
			log.FieldContact, string(id),
			log.FieldOperation, log.OpDispatch,
			log.FieldError, err)
		return nil, fmt.Errorf("dispatch reminder: %w", err)
	}

	snap := s.tracker.RecordSent(ctx, id)
	return &Outcome{
		Link:     link,
		Status:   s.tracker.Check(id),
		Snapshot: snap,
	}, nil
}

// MarkSent records a reminder the caller dispatched itself.
func (s *ReminderService) MarkSent(ctx context.Context, id core.ContactID) (core.Status, error) {
	if err := id.Validate(); err != nil {
		return core.Status{}, err
	}
	s.tracker.RecordSent(ctx, id)
	return s.tracker.Check(id), nil
}

// ContactOverview pairs a persisted record with its current status.
type ContactOverview struct {
	LastSentAt time.Time
	Status     core.Status
}

// Overview returns every contact that was ever reminded, ordered by id.
func (s *ReminderService) Overview() []ContactOverview {
	snap := s.tracker.Snapshot()
	out := make([]ContactOverview, 0, len(snap))
	for _, rec := range snap.Records() {
		out = append(out, ContactOverview{
			LastSentAt: rec.LastSentAt,
			Status:     s.tracker.Check(rec.ContactID),
		})
	}
	return out
}

// Window returns the cooldown window in force.
func (s *ReminderService) Window() time.Duration {
	return s.tracker.Window()
}
