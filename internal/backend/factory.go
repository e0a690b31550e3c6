package backend

import (
	"context"
	"fmt"

	"saldo/internal/cache"
	"saldo/internal/log"
	"saldo/internal/storage"
	"saldo/internal/storage/file"
	"saldo/internal/storage/memory"
	"saldo/internal/storage/natskv"
	"saldo/internal/storage/postgres"
	s3store "saldo/internal/storage/s3"
	"saldo/internal/storage/sqlite"
)

// cacheEntries bounds the blob cache. The tracker only ever uses one key.
const cacheEntries = 16

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new medium factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateMedium implements Factory.CreateMedium
func (f *DefaultFactory) CreateMedium(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		medium storage.Medium
		err    error
	)
	switch config.Type {
	case MemoryMedium:
		medium = memory.New()
	case FileMedium:
		medium, err = file.New(config.FileStoreDir)
	case SQLiteMedium:
		medium, err = sqlite.Open(config.SQLiteDBPath)
	case PostgresMedium:
		medium, err = postgres.Open(config.PostgresURL)
	case NATSMedium:
		medium, err = natskv.Open(ctx, config.NATSURL, config.NATSBucket)
	case S3Medium:
		medium, err = s3store.Open(ctx, config.S3Bucket, config.S3Prefix, config.S3Region, config.S3Endpoint)
	default:
		return nil, fmt.Errorf("unsupported medium type: %s", config.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s medium: %w", config.Type, err)
	}

	result := &Result{Medium: medium, Cleanup: cleanupFor(medium)}
	if config.Type.IsRemote() && config.CacheTTL > 0 {
		result.Cache = cache.NewLRUCache[[]byte](cacheEntries, config.CacheTTL)
		cached := storage.Cached(medium, result.Cache)
		result.Medium = cached
		result.Cleanup = cached.Close
	}

	f.logger.Info("Initialized storage medium",
		log.FieldBackend, config.Type.String(),
		"cached", result.Cache != nil)

	return result, nil
}

func cleanupFor(medium storage.Medium) CleanupFunc {
	if c, ok := medium.(storage.Closer); ok {
		return c.Close
	}
	return nil
}
