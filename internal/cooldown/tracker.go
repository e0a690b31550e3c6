// Package cooldown decides whether a payment reminder may be sent to a
// contact and records when one was sent.
//
// A Tracker keeps the contact -> last reminder mapping in memory and mirrors
// every change to a storage.Medium as a single blob, so state survives
// restarts. Storage failures are logged and absorbed: a read failure looks
// like an empty mapping and a write failure still updates the in-memory view.
// No method of Tracker returns a storage error or panics because of one.
package cooldown

import (
	"context"
	"fmt"
	"sync"
	"time"

	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/storage"
)

// Clock returns the current instant.
type Clock func() time.Time

// Option configures a Tracker.
type Option func(*Tracker)

// WithWindow overrides the 20 hour cooldown window.
func WithWindow(w time.Duration) Option {
	return func(t *Tracker) { t.window = w }
}

// WithKey overrides the storage key the blob is persisted under.
func WithKey(key string) Option {
	return func(t *Tracker) { t.key = key }
}

// WithClock replaces time.Now as the source of the current instant.
func WithClock(c Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithLogger sets the logger; the component is forced to cooldown.
func WithLogger(l *log.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithInstrumentation reports checks, records and storage failures to i.
func WithInstrumentation(i Instrumentation) Option {
	return func(t *Tracker) { t.metrics = i }
}

// Tracker is safe for concurrent use.
type Tracker struct {
	medium  storage.Medium
	key     string
	window  time.Duration
	clock   Clock
	logger  *log.Logger
	metrics Instrumentation

	mu      sync.RWMutex
	records map[core.ContactID]time.Time
	// unpersisted holds records the medium refused. They survive Reload
	// and are written again with the next successful persist.
	unpersisted map[core.ContactID]time.Time

	subsMu  sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

// New builds a tracker over medium and loads the persisted mapping.
func New(ctx context.Context, medium storage.Medium, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		medium:  medium,
		key:     storage.DefaultKey,
		window:  core.DefaultWindow,
		clock:   time.Now,
		metrics: noopInstrumentation{},
		subs:    make(map[int]func(Change)),

		unpersisted: make(map[core.ContactID]time.Time),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.Default(log.ComponentCooldown)
	}
	t.logger = t.logger.WithComponent(log.ComponentCooldown)

	if medium == nil {
		return nil, fmt.Errorf("cooldown tracker: nil storage medium")
	}
	if err := storage.ValidateKey(t.key); err != nil {
		return nil, fmt.Errorf("cooldown tracker: %w", err)
	}
	if err := core.ValidateWindow(t.window); err != nil {
		return nil, fmt.Errorf("cooldown tracker: %w: %v", err, t.window)
	}

	records, err := t.load(ctx)
	if err != nil {
		t.logger.WarnContext(ctx, "Cooldown state unreadable, starting empty",
			log.FieldStorageKey, t.key, log.FieldError, err)
		records = make(map[core.ContactID]time.Time)
	}
	t.records = records
	return t, nil
}

// Window returns the cooldown window.
func (t *Tracker) Window() time.Duration {
	return t.window
}

// Check reports the cooldown status of id at the tracker's current time.
func (t *Tracker) Check(id core.ContactID) core.Status {
	return t.CheckAt(id, t.clock())
}

// CheckAt reports the cooldown status of id at now. It never touches the
// medium.
func (t *Tracker) CheckAt(id core.ContactID, now time.Time) core.Status {
	t.mu.RLock()
	last, ok := t.records[id]
	t.mu.RUnlock()

	status := t.evaluate(id, last, ok, now)
	t.metrics.StatusChecked(status.OnCooldown)
	return status
}

func (t *Tracker) evaluate(id core.ContactID, last time.Time, ok bool, now time.Time) core.Status {
	if !ok {
		return core.Idle(id)
	}
	// Elapsed time is compared in whole hours.
	if now.Sub(last).Truncate(time.Hour) >= t.window {
		return core.Idle(id)
	}
	expiresAt := last.Add(t.window)
	remaining := expiresAt.Sub(now)
	return core.Status{
		ContactID:  id,
		OnCooldown: true,
		TimeLeft:   core.Humanize(remaining),
		Remaining:  remaining,
		ExpiresAt:  expiresAt,
	}
}

// StatusAll evaluates every known contact at now.
func (t *Tracker) StatusAll(now time.Time) map[core.ContactID]core.Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[core.ContactID]core.Status, len(t.records))
	for id, last := range t.records {
		out[id] = t.evaluate(id, last, true, now)
	}
	return out
}

// Snapshot returns a copy of the full mapping.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	s := make(Snapshot, len(t.records))
	for id, at := range t.records {
		s[id] = at
	}
	return s
}

// RecordSent records a reminder to id at the tracker's current time.
func (t *Tracker) RecordSent(ctx context.Context, id core.ContactID) Snapshot {
	return t.RecordSentAt(ctx, id, t.clock())
}

// RecordSentAt records a reminder to id at now, persists the mapping and
// notifies subscribers. The latest call wins even if now is earlier than
// the stored timestamp. It returns the updated mapping.
func (t *Tracker) RecordSentAt(ctx context.Context, id core.ContactID, now time.Time) Snapshot {
	t.mu.Lock()
	previous, hadPrevious := t.records[id]
	t.records[id] = now
	persisted := t.persistLocked(ctx)
	if !persisted {
		t.unpersisted[id] = now
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if hadPrevious && now.Before(previous) {
		t.logger.WarnContext(ctx, "Reminder recorded earlier than previous one",
			log.FieldContact, string(id),
			log.FieldSentAt, now,
			log.FieldPrevious, previous)
	}
	t.logger.InfoContext(ctx, "Reminder recorded",
		log.FieldContact, string(id),
		log.FieldSentAt, now,
		log.FieldExpiresAt, now.Add(t.window),
		"persisted", persisted)
	t.metrics.ReminderRecorded()

	t.notify(ctx, Change{
		ContactID: id,
		SentAt:    now,
		Previous:  previous,
		ExpiresAt: now.Add(t.window),
		Persisted: persisted,
		Snapshot:  snap,
	})
	return snap
}

// Reload replaces the in-memory mapping with the persisted one, picking up
// writes made by other processes sharing the medium. If the medium cannot
// be read the current view is kept; an undecodable blob yields an empty
// mapping. Records the medium refused earlier are kept unless the medium
// holds a newer timestamp, and persisting them is retried.
//
// The lock is held across the read so a concurrent RecordSentAt cannot be
// replaced by an older blob.
func (t *Tracker) Reload(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	blob, found, err := t.medium.Get(ctx, t.key)
	if err != nil {
		t.metrics.StorageFailed(log.OpLoad)
		t.logger.WarnContext(ctx, "Cooldown reload failed, keeping current state",
			log.FieldStorageKey, t.key, log.FieldError, err)
		return
	}

	records := make(map[core.ContactID]time.Time)
	if found {
		decoded, err := t.decode(ctx, blob)
		if err != nil {
			t.logger.WarnContext(ctx, "Cooldown state unreadable, resetting",
				log.FieldStorageKey, t.key, log.FieldError, err)
		} else {
			records = decoded
		}
	}

	for id, at := range t.unpersisted {
		if stored, ok := records[id]; ok && stored.After(at) {
			delete(t.unpersisted, id)
			continue
		}
		records[id] = at
	}
	t.records = records

	if len(t.unpersisted) > 0 && t.persistLocked(ctx) {
		t.logger.InfoContext(ctx, "Persisted cooldown records after earlier failure",
			log.FieldStorageKey, t.key)
	}
}

// Subscribe registers fn to be called after every recorded reminder. Calls
// happen on the recording goroutine. The returned function removes the
// subscription.
func (t *Tracker) Subscribe(fn func(Change)) (unsubscribe func()) {
	t.subsMu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.subsMu.Lock()
			delete(t.subs, id)
			t.subsMu.Unlock()
		})
	}
}

func (t *Tracker) notify(ctx context.Context, change Change) {
	t.subsMu.Lock()
	fns := make([]func(Change), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.subsMu.Unlock()

	for _, fn := range fns {
		t.deliver(ctx, fn, change)
	}
}

func (t *Tracker) deliver(ctx context.Context, fn func(Change), change Change) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.ErrorContext(ctx, "Cooldown subscriber panicked",
				log.FieldContact, string(change.ContactID), "panic", r)
		}
	}()
	fn(change)
}

func (t *Tracker) load(ctx context.Context) (map[core.ContactID]time.Time, error) {
	blob, found, err := t.medium.Get(ctx, t.key)
	if err != nil {
		t.metrics.StorageFailed(log.OpLoad)
		return nil, err
	}
	if !found {
		return make(map[core.ContactID]time.Time), nil
	}
	return t.decode(ctx, blob)
}

func (t *Tracker) decode(ctx context.Context, blob []byte) (map[core.ContactID]time.Time, error) {
	records, invalid, err := decode(blob)
	if err != nil {
		t.metrics.StorageFailed(log.OpLoad)
		return nil, err
	}
	if len(invalid) > 0 {
		t.logger.WarnContext(ctx, "Dropped cooldown entries with unreadable timestamps",
			log.FieldStorageKey, t.key, "contacts", invalid)
	}
	return records, nil
}

func (t *Tracker) persistLocked(ctx context.Context) bool {
	blob, err := encode(t.records)
	if err == nil {
		err = t.medium.Set(ctx, t.key, blob)
	}
	if err != nil {
		t.metrics.StorageFailed(log.OpPersist)
		t.logger.ErrorContext(ctx, "Failed to persist cooldown state",
			log.FieldStorageKey, t.key, log.FieldError, err)
		return false
	}
	clear(t.unpersisted)
	return true
}
