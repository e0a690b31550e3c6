package natskv

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"

	"saldo/internal/storage"
)

func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}
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

func TestStoreRoundTrip(t *testing.T) {
	url := startTestNATS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Open(ctx, url, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if _, found, err := s.Get(ctx, storage.DefaultKey); found || err != nil {
		t.Fatalf("expected missing key, got found=%v err=%v", found, err)
	}

	if err := s.Set(ctx, storage.DefaultKey, []byte(`{"a":"1"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, storage.DefaultKey, []byte(`{"a":"2"}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	// A second connection reads what the first wrote.
	other, err := Open(ctx, url, DefaultBucket)
	if err != nil {
		t.Fatalf("open second store: %v", err)
	}
	defer other.Close()

	got, found, err := other.Get(ctx, storage.DefaultKey)
	if err != nil || !found || string(got) != `{"a":"2"}` {
		t.Fatalf("unexpected get: %q found=%v err=%v", got, found, err)
	}
}

func TestOpenUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := Open(ctx, "nats://127.0.0.1:1", ""); err == nil {
		t.Fatal("expected connection error")
	}
}
