package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"saldo/internal/cooldown"
	"saldo/internal/events"
	"saldo/internal/log"
	"saldo/internal/storage"
	"saldo/internal/storage/memory"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func newTracker(t *testing.T, m storage.Medium) *cooldown.Tracker {
	t.Helper()
	tr, err := cooldown.New(context.Background(), m, cooldown.WithLogger(log.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func TestHandleReminderRecorded(t *testing.T) {
	ctx := context.Background()
	replicaMedium := memory.New()
	w := NewReplicaWorker(newTracker(t, memory.New()), newTracker(t, replicaMedium), log.Discard())

	ev := &events.ReminderRecorded{ID: "rem-1", ContactID: "alice", SentAt: t0}
	if err := w.HandleReminderRecorded(ctx, ev); err != nil {
		t.Fatal(err)
	}
	if got := w.replica.Snapshot()["alice"]; !got.Equal(t0) {
		t.Fatalf("replica holds %v, want %v", got, t0)
	}
	if replicaMedium.Raw(storage.DefaultKey) == nil {
		t.Fatal("replica medium should have been written")
	}

	// Redelivery of an older event is ignored.
	old := &events.ReminderRecorded{ID: "rem-0", ContactID: "alice", SentAt: t0.Add(-time.Hour)}
	if err := w.HandleReminderRecorded(ctx, old); err != nil {
		t.Fatal(err)
	}
	if got := w.replica.Snapshot()["alice"]; !got.Equal(t0) {
		t.Fatalf("older event overwrote replica: %v", got)
	}

	bad := &events.ReminderRecorded{ID: "rem-2", ContactID: "bad\x00id", SentAt: t0}
	if err := w.HandleReminderRecorded(ctx, bad); err != nil {
		t.Fatalf("invalid events should be dropped, got %v", err)
	}
	if len(w.replica.Snapshot()) != 1 {
		t.Fatal("invalid event must not be replicated")
	}
}

func TestResync(t *testing.T) {
	ctx := context.Background()
	primaryMedium := memory.New()
	writer := newTracker(t, primaryMedium)
	writer.RecordSentAt(ctx, "alice", t0)
	writer.RecordSentAt(ctx, "bob", t0.Add(time.Hour))

	replica := newTracker(t, memory.New())
	replica.RecordSentAt(ctx, "bob", t0.Add(2*time.Hour))

	// The worker's view of the primary starts empty and catches up on Resync.
	primary := newTracker(t, memory.New())
	w := NewReplicaWorker(primary, replica, log.Discard())
	if n := w.Resync(ctx); n != 0 {
		t.Fatalf("empty primary should apply nothing, applied %d", n)
	}

	w.primary = newTracker(t, primaryMedium)
	if n := w.Resync(ctx); n != 1 {
		t.Fatalf("expected alice to be applied, applied %d", n)
	}
	snap := replica.Snapshot()
	if !snap["alice"].Equal(t0) || !snap["bob"].Equal(t0.Add(2*time.Hour)) {
		t.Fatalf("unexpected replica %v", snap)
	}
	if n := w.Resync(ctx); n != 0 {
		t.Fatalf("second resync should be a no-op, applied %d", n)
	}
}

func TestResyncNeverRegressesConcurrentEvent(t *testing.T) {
	ctx := context.Background()
	primaryMedium := memory.New()
	newTracker(t, primaryMedium).RecordSentAt(ctx, "alice", t0)
	t2 := t0.Add(time.Hour)

	for i := 0; i < 50; i++ {
		w := NewReplicaWorker(newTracker(t, primaryMedium), newTracker(t, memory.New()), log.Discard())

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			w.Resync(ctx)
		}()
		go func() {
			defer wg.Done()
			ev := &events.ReminderRecorded{ID: "rem-3", ContactID: "alice", SentAt: t2}
			if err := w.HandleReminderRecorded(ctx, ev); err != nil {
				t.Error(err)
			}
		}()
		wg.Wait()

		if got := w.replica.Snapshot()["alice"]; !got.Equal(t2) {
			t.Fatalf("iteration %d: replica regressed to %v, want %v", i, got, t2)
		}
	}
}

func TestRunStopsWithContext(t *testing.T) {
	w := NewReplicaWorker(newTracker(t, memory.New()), newTracker(t, memory.New()), log.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, time.Millisecond) }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
