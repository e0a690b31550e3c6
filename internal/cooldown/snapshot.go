package cooldown

import (
	"sort"
	"time"

	"saldo/internal/core"
)

// Snapshot is a point-in-time copy of the cooldown mapping. Mutating it has
// no effect on the tracker.
type Snapshot map[core.ContactID]time.Time

// Records lists the snapshot ordered by contact id.
func (s Snapshot) Records() []core.Record {
	out := make([]core.Record, 0, len(s))
	for id, at := range s {
		out = append(out, core.Record{ContactID: id, LastSentAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContactID < out[j].ContactID })
	return out
}

// Change describes one recorded reminder. It is delivered to subscribers
// after the mapping has been updated.
type Change struct {
	ContactID core.ContactID
	SentAt    time.Time
	// Previous is the replaced timestamp, zero on the first reminder.
	Previous  time.Time
	ExpiresAt time.Time
	// Persisted is false when the medium rejected the write.
	Persisted bool
	Snapshot  Snapshot
}

// Instrumentation receives counters from the tracker. The metrics package
// provides the Prometheus implementation.
type Instrumentation interface {
	StatusChecked(onCooldown bool)
	ReminderRecorded()
	StorageFailed(op string)
}

type noopInstrumentation struct{}

func (noopInstrumentation) StatusChecked(bool)   {}
func (noopInstrumentation) ReminderRecorded()    {}
func (noopInstrumentation) StorageFailed(string) {}
