package memory

import (
	"context"
	"sync"

	"saldo/internal/storage"
)

// Store keeps blobs in process memory. It is the default medium for local
// runs and the fake used by tests.
type Store struct {
	mu    sync.Mutex
	blobs map[string][]byte

	// GetErr and SetErr, when set, are returned by every Get or Set.
	GetErr error
	SetErr error
}

// New returns an empty store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// NewWith seeds the store with raw blobs.
func NewWith(seed map[string][]byte) *Store {
	s := New()
	for k, v := range seed {
		s.blobs[k] = append([]byte(nil), v...)
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, false, s.GetErr
	}
	v, ok := s.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetErr != nil {
		return s.SetErr
	}
	s.blobs[key] = append([]byte(nil), value...)
	return nil
}

// Raw returns the stored blob without copying semantics guarantees, for tests.
func (s *Store) Raw(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blobs[key]
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}
