package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"saldo/internal/cooldown"
	"saldo/internal/log"
)

var errBufferFull = errors.New("event buffer full")

// Outcomes is notified of every publish attempt. metrics.Metrics implements it.
type Outcomes interface {
	EventPublished(err error)
}

// Bridge subscribes to a tracker and publishes its changes. Publishing runs
// on its own goroutine so a slow broker never delays RecordSent; when the
// buffer is full, changes are dropped and logged.
type Bridge struct {
	publisher Publisher
	logger    *log.Logger
	outcomes  Outcomes
	timeout   time.Duration

	changes     chan cooldown.Change
	unsubscribe func()
	done        chan struct{}
	closeOnce   sync.Once
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithOutcomes reports every publish attempt to o.
func WithOutcomes(o Outcomes) BridgeOption {
	return func(b *Bridge) { b.outcomes = o }
}

// WithBuffer sets how many changes may wait for the publisher.
func WithBuffer(n int) BridgeOption {
	return func(b *Bridge) { b.changes = make(chan cooldown.Change, n) }
}

// WithPublishTimeout bounds a single publish.
func WithPublishTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) { b.timeout = d }
}

// NewBridge subscribes to tracker. Call Run to start publishing.
func NewBridge(tracker *cooldown.Tracker, publisher Publisher, logger *log.Logger, opts ...BridgeOption) *Bridge {
	if logger == nil {
		logger = log.Default(log.ComponentEvents)
	}
	b := &Bridge{
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentEvents),
		timeout:   5 * time.Second,
		changes:   make(chan cooldown.Change, 64),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.unsubscribe = tracker.Subscribe(b.enqueue)
	return b
}

func (b *Bridge) enqueue(c cooldown.Change) {
	select {
	case <-b.done:
	case b.changes <- c:
	default:
		b.logger.Warn("Event buffer full, dropping reminder event",
			log.FieldContact, string(c.ContactID))
		if b.outcomes != nil {
			b.outcomes.EventPublished(errBufferFull)
		}
	}
}

// Run publishes queued changes until ctx is cancelled or Close is called.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return nil
		case c := <-b.changes:
			b.publish(ctx, c)
		}
	}
}

func (b *Bridge) publish(ctx context.Context, c cooldown.Change) {
	event, err := NewReminderRecorded(c)
	if err == nil {
		pubCtx, cancel := context.WithTimeout(ctx, b.timeout)
		err = b.publisher.Publish(pubCtx, TopicReminderRecorded, event)
		cancel()
	}
	if b.outcomes != nil {
		b.outcomes.EventPublished(err)
	}
	if err != nil {
		b.logger.ErrorContext(ctx, "Failed to publish reminder event",
			log.FieldContact, string(c.ContactID),
			log.FieldTopic, TopicReminderRecorded,
			log.FieldError, err)
		return
	}
	b.logger.DebugContext(ctx, "Published reminder event",
		log.FieldContact, string(c.ContactID),
		log.FieldEventID, event.ID)
}

// Close stops listening to the tracker and ends Run.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		b.unsubscribe()
		close(b.done)
	})
}
