package backend

import (
	"fmt"

	"saldo/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	mediumType := MediumType(appConfig.StorageBackend)
	if !mediumType.IsValid() {
		return Config{}, fmt.Errorf("invalid storage backend in config: %s", appConfig.StorageBackend)
	}

	return Config{
		Type: mediumType,

		FileStoreDir: appConfig.FileStoreDir,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		PostgresURL:  appConfig.PostgresURL,

		NATSURL:    appConfig.NATSURL,
		NATSBucket: appConfig.NATSBucket,

		S3Bucket:   appConfig.S3Bucket,
		S3Region:   appConfig.S3Region,
		S3Endpoint: appConfig.S3Endpoint,
		S3Prefix:   appConfig.S3Prefix,

		CacheTTL: appConfig.CacheTTL,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid medium type: %s", c.Type)
	}

	switch c.Type {
	case FileMedium:
		if c.FileStoreDir == "" {
			return fmt.Errorf("file store directory is required for file medium")
		}
	case SQLiteMedium:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite medium")
		}
	case PostgresMedium:
		if c.PostgresURL == "" {
			return fmt.Errorf("Postgres URL is required for postgres medium")
		}
	case NATSMedium:
		if c.NATSURL == "" {
			return fmt.Errorf("NATS URL is required for nats medium")
		}
	case S3Medium:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 medium")
		}
	case MemoryMedium:
		// Memory medium doesn't require additional validation
	}

	if c.CacheTTL < 0 {
		return fmt.Errorf("cache TTL must not be negative")
	}
	return nil
}

// GetMediumTypes returns all valid medium types
func GetMediumTypes() []MediumType {
	return []MediumType{MemoryMedium, FileMedium, SQLiteMedium, PostgresMedium, NATSMedium, S3Medium}
}

// GetMediumTypeStrings returns all valid medium type strings
func GetMediumTypeStrings() []string {
	types := GetMediumTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
