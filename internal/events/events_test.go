package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"saldo/internal/cooldown"
	"saldo/internal/log"
	"saldo/internal/storage/memory"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*ReminderRecorded
	topics []string
	err    error
	got    chan struct{}
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{got: make(chan struct{}, 16)}
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event any) error {
	p.mu.Lock()
	defer func() {
		p.mu.Unlock()
		p.got <- struct{}{}
	}()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event.(*ReminderRecorded))
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) wait(t *testing.T) {
	t.Helper()
	select {
	case <-p.got:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publish")
	}
}

type outcomeCounter struct {
	mu       sync.Mutex
	ok, fail int
}

func (o *outcomeCounter) EventPublished(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.fail++
		return
	}
	o.ok++
}

func newTracker(t *testing.T) *cooldown.Tracker {
	t.Helper()
	tr, err := cooldown.New(context.Background(), memory.New(), cooldown.WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	return tr
}

func TestNewReminderRecorded(t *testing.T) {
	e, err := NewReminderRecorded(cooldown.Change{
		ContactID: "alice",
		SentAt:    t0,
		ExpiresAt: t0.Add(20 * time.Hour),
		Persisted: true,
	})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	data, err := e.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["previous_sent_at"]; ok {
		t.Fatal("zero previous timestamp should be omitted")
	}

	back, err := ReminderRecordedFromJSON(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.ContactID != "alice" || !back.ExpiresAt.Equal(t0.Add(20*time.Hour)) || back.ID != e.ID {
		t.Fatalf("unexpected event %+v", back)
	}
}

func TestReminderRecordedFromJSONRejectsGarbage(t *testing.T) {
	for _, in := range []string{"nope", `{}`, `{"contact_id":""}`} {
		if _, err := ReminderRecordedFromJSON([]byte(in)); err == nil {
			t.Errorf("%q: expected error", in)
		}
	}
}

func TestNoopAndMulti(t *testing.T) {
	var _ Publisher = NoopPublisher{}
	var _ Publisher = (*NATSPublisher)(nil)

	a, b := newRecordingPublisher(), newRecordingPublisher()
	b.err = errors.New("down")
	m := Multi{a, NoopPublisher{}, b}

	err := m.Publish(context.Background(), TopicReminderRecorded, &ReminderRecorded{ContactID: "x"})
	if err == nil {
		t.Fatal("expected the failing publisher's error")
	}
	if len(a.events) != 1 {
		t.Fatal("healthy publisher should still receive the event")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(TopicReminderRecorded, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	event := &ReminderRecorded{ID: "rem-1", ContactID: "alice", SentAt: t0}
	if err := pub.Publish(context.Background(), TopicReminderRecorded, event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	pub.conn.Flush()

	select {
	case msg := <-ch:
		got, err := ReminderRecordedFromJSON(msg.Data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != "rem-1" || got.ContactID != "alice" {
			t.Errorf("unexpected event %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestBridgePublishesChanges(t *testing.T) {
	tr := newTracker(t)
	pub := newRecordingPublisher()
	outcomes := &outcomeCounter{}
	b := NewBridge(tr, pub, log.Discard(), WithOutcomes(outcomes))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	tr.RecordSentAt(ctx, "alice", t0)
	pub.wait(t)

	pub.mu.Lock()
	if len(pub.events) != 1 || pub.events[0].ContactID != "alice" || pub.topics[0] != TopicReminderRecorded {
		t.Fatalf("unexpected events %+v", pub.events)
	}
	pub.mu.Unlock()

	b.Close()
	if err := <-done; err != nil {
		t.Fatalf("run returned %v", err)
	}

	// Changes after Close are not published.
	tr.RecordSentAt(ctx, "bob", t0)
	select {
	case <-pub.got:
		t.Fatal("unexpected publish after close")
	case <-time.After(50 * time.Millisecond):
	}

	outcomes.mu.Lock()
	defer outcomes.mu.Unlock()
	if outcomes.ok != 1 {
		t.Fatalf("expected 1 successful publish, got %d", outcomes.ok)
	}
}

func TestBridgeCountsFailures(t *testing.T) {
	tr := newTracker(t)
	pub := newRecordingPublisher()
	pub.err = errors.New("broker down")
	outcomes := &outcomeCounter{}
	b := NewBridge(tr, pub, log.Discard(), WithOutcomes(outcomes))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)

	tr.RecordSentAt(ctx, "alice", t0)
	pub.wait(t)
	cancel()

	// Give the bridge a moment to record the outcome after Publish returned.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		outcomes.mu.Lock()
		fail := outcomes.fail
		outcomes.mu.Unlock()
		if fail == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected the failure to be counted")
}

func TestBridgeDropsWhenBufferFull(t *testing.T) {
	tr := newTracker(t)
	outcomes := &outcomeCounter{}
	b := NewBridge(tr, newRecordingPublisher(), log.Discard(), WithBuffer(1), WithOutcomes(outcomes))
	defer b.Close()

	// Run is not started, so the second change cannot be queued.
	tr.RecordSentAt(context.Background(), "alice", t0)
	tr.RecordSentAt(context.Background(), "bob", t0)

	outcomes.mu.Lock()
	defer outcomes.mu.Unlock()
	if outcomes.fail != 1 {
		t.Fatalf("expected one dropped event, got %d", outcomes.fail)
	}
}
