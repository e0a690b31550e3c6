package storage

import (
	"context"

	"saldo/internal/cache"
)

// CachedMedium serves repeated reads of remote media from a blob cache.
// Writes go through to the medium and replace the cached copy.
type CachedMedium struct {
	medium Medium
	cache  cache.Cache[[]byte]
}

// Cached wraps medium with a read-through cache.
func Cached(medium Medium, c cache.Cache[[]byte]) *CachedMedium {
	return &CachedMedium{medium: medium, cache: c}
}

func (m *CachedMedium) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := m.cache.Get(key); ok {
		return append([]byte(nil), v...), true, nil
	}
	v, found, err := m.medium.Get(ctx, key)
	if err != nil || !found {
		return v, found, err
	}
	m.cache.Set(key, append([]byte(nil), v...))
	return v, true, nil
}

func (m *CachedMedium) Set(ctx context.Context, key string, value []byte) error {
	if err := m.medium.Set(ctx, key, value); err != nil {
		m.cache.Delete(key)
		return err
	}
	m.cache.Set(key, append([]byte(nil), value...))
	return nil
}

// Close closes the wrapped medium when it holds connections.
func (m *CachedMedium) Close() error {
	if c, ok := m.medium.(Closer); ok {
		return c.Close()
	}
	return nil
}
