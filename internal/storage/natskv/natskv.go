// Package natskv stores blobs in a NATS JetStream key-value bucket.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"saldo/internal/storage"
)

// DefaultBucket is the key-value bucket used when none is configured.
const DefaultBucket = "saldo"

// Store is a medium backed by a JetStream key-value bucket.
type Store struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
}

// Open connects to url and creates the bucket if it does not exist yet.
func Open(ctx context.Context, url, bucket string, opts ...nats.Option) (*Store, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	defaults := []nats.Option{
		nats.Name("saldo"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "reminder cooldown blobs",
		History:     1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create key-value bucket %s: %w", bucket, err)
	}

	return &Store{conn: nc, kv: kv}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, false, err
	}
	entry, err := s.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return entry.Value(), true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if _, err := s.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
