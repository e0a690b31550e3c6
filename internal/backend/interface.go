package backend

import (
	"context"
	"time"

	"saldo/internal/cache"
	"saldo/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the medium instance and optional cleanup function.
// Cache is set when remote reads go through a blob cache, so the caller can
// register it for periodic expiry.
type Result struct {
	Medium  storage.Medium
	Cleanup CleanupFunc
	Cache   *cache.LRUCache[[]byte]
}

// Factory creates storage media based on configuration
type Factory interface {
	CreateMedium(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for medium creation
type Config struct {
	Type MediumType

	// File specific
	FileStoreDir string

	// SQL specific
	SQLiteDBPath string
	PostgresURL  string

	// NATS specific
	NATSURL    string
	NATSBucket string

	// S3 specific
	S3Bucket   string
	S3Region   string
	S3Endpoint string
	S3Prefix   string

	// CacheTTL enables a read-through cache for remote media when positive.
	CacheTTL time.Duration
}

// MediumType represents the type of storage medium
type MediumType string

const (
	MemoryMedium   MediumType = "memory"
	FileMedium     MediumType = "file"
	SQLiteMedium   MediumType = "sqlite"
	PostgresMedium MediumType = "postgres"
	NATSMedium     MediumType = "nats"
	S3Medium       MediumType = "s3"
)

// String implements fmt.Stringer
func (mt MediumType) String() string {
	return string(mt)
}

// IsValid returns true if the medium type is valid
func (mt MediumType) IsValid() bool {
	switch mt {
	case MemoryMedium, FileMedium, SQLiteMedium, PostgresMedium, NATSMedium, S3Medium:
		return true
	default:
		return false
	}
}

// IsRemote reports whether the medium lives behind a network hop.
func (mt MediumType) IsRemote() bool {
	return mt == NATSMedium || mt == S3Medium
}
