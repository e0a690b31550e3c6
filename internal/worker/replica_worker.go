// Package worker keeps a replica of the cooldown mapping in a second medium,
// fed by reminder events and a periodic resync.
package worker

import (
	"context"
	"sync"
	"time"

	"saldo/internal/cooldown"
	"saldo/internal/core"
	"saldo/internal/events"
	"saldo/internal/log"
)

// ReplicaWorker applies reminder events from the primary tracker to a
// replica tracker backed by another medium.
type ReplicaWorker struct {
	primary *cooldown.Tracker
	replica *cooldown.Tracker
	logger  *log.Logger

	// applyMu makes the newer-than check and the replica write one step, so
	// a resync holding a stale primary timestamp cannot overwrite an event.
	applyMu sync.Mutex
}

// NewReplicaWorker creates a worker copying records from primary to replica.
func NewReplicaWorker(primary, replica *cooldown.Tracker, logger *log.Logger) *ReplicaWorker {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &ReplicaWorker{
		primary: primary,
		replica: replica,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleReminderRecorded applies one event. Events older than what the
// replica already holds are skipped, so redeliveries are harmless. Invalid
// events are dropped rather than requeued.
func (w *ReplicaWorker) HandleReminderRecorded(ctx context.Context, ev *events.ReminderRecorded) error {
	id := core.ContactID(ev.ContactID)
	if err := id.Validate(); err != nil {
		w.logger.WarnContext(ctx, "Dropping reminder event with invalid contact",
			log.FieldEventID, ev.ID,
			log.FieldError, err)
		return nil
	}

	if !w.apply(ctx, id, ev.SentAt) {
		w.logger.DebugContext(ctx, "Reminder event already applied",
			log.FieldEventID, ev.ID,
			log.FieldContact, ev.ContactID)
		return nil
	}

	w.logger.InfoContext(ctx, "Reminder event replicated",
		log.FieldEventID, ev.ID,
		log.FieldContact, ev.ContactID,
		log.FieldSentAt, ev.SentAt)
	return nil
}

func (w *ReplicaWorker) apply(ctx context.Context, id core.ContactID, sentAt time.Time) bool {
	w.applyMu.Lock()
	defer w.applyMu.Unlock()

	if have, ok := w.replica.Snapshot()[id]; ok && !sentAt.After(have) {
		return false
	}
	w.replica.RecordSentAt(ctx, id, sentAt)
	return true
}

// Resync reloads the primary mapping and copies every record the replica is
// missing or holds an older timestamp for. It covers events lost while the
// worker was down.
func (w *ReplicaWorker) Resync(ctx context.Context) int {
	w.primary.Reload(ctx)

	applied := 0
	for _, rec := range w.primary.Snapshot().Records() {
		if w.apply(ctx, rec.ContactID, rec.LastSentAt) {
			applied++
		}
	}
	if applied > 0 {
		w.logger.InfoContext(ctx, "Replica resynced", "applied", applied)
	}
	return applied
}

// Run resyncs once and then every interval until ctx is done.
func (w *ReplicaWorker) Run(ctx context.Context, interval time.Duration) error {
	w.Resync(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Resync(ctx)
		}
	}
}
