package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errorString string
	}{
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range high",
			mutate:      func(c *Config) { c.Port = "70000" },
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.LogLevel = "loud" },
			errorString: "invalid log level 'loud'",
		},
		{
			name:        "sub-hour window",
			mutate:      func(c *Config) { c.ReminderWindow = 90 * time.Minute },
			errorString: "invalid reminder window 1h30m0s",
		},
		{
			name:        "empty storage key",
			mutate:      func(c *Config) { c.ReminderStorageKey = "" },
			errorString: "invalid reminder storage key",
		},
		{
			name:        "invalid storage backend",
			mutate:      func(c *Config) { c.StorageBackend = "sheets" },
			errorString: "invalid storage backend 'sheets': must be one of [memory file sqlite postgres nats s3]",
		},
		{
			name: "file backend missing directory",
			mutate: func(c *Config) {
				c.FileStoreDir = ""
			},
			errorString: "file store directory cannot be empty",
		},
		{
			name: "postgres backend missing url",
			mutate: func(c *Config) {
				c.StorageBackend = "postgres"
			},
			errorString: "Postgres URL is required",
		},
		{
			name: "postgres backend wrong scheme",
			mutate: func(c *Config) {
				c.StorageBackend = "postgres"
				c.PostgresURL = "mysql://localhost/saldo"
			},
			errorString: "invalid Postgres URL",
		},
		{
			name: "s3 backend missing bucket",
			mutate: func(c *Config) {
				c.StorageBackend = "s3"
			},
			errorString: "S3 bucket is required",
		},
		{
			name: "nats events with bad url",
			mutate: func(c *Config) {
				c.EventsBackend = "nats"
				c.NATSURL = "http://localhost:4222"
			},
			errorString: "invalid NATS URL",
		},
		{
			name: "amqp events with bad scheme",
			mutate: func(c *Config) {
				c.EventsBackend = "amqp"
				c.AMQPURL = "http://localhost:5672/"
			},
			errorString: "invalid AMQP URL scheme 'http'",
		},
		{
			name: "amqp events missing queue",
			mutate: func(c *Config) {
				c.EventsBackend = "amqp"
				c.AMQPQueue = ""
			},
			errorString: "AMQP queue name cannot be empty",
		},
		{
			name:        "invalid events backend",
			mutate:      func(c *Config) { c.EventsBackend = "nats,kafka" },
			errorString: "invalid events backend 'kafka'",
		},
		{
			name:        "replica on the storage backend",
			mutate:      func(c *Config) { c.ReplicaBackend = "file" },
			errorString: "replica backend 'file' must differ",
		},
		{
			name:        "unknown replica backend",
			mutate:      func(c *Config) { c.ReplicaBackend = "tape" },
			errorString: "invalid replica backend 'tape'",
		},
		{
			name:        "sync interval too short",
			mutate:      func(c *Config) { c.SyncInterval = time.Millisecond },
			errorString: "invalid sync interval 1ms",
		},
		{
			name:        "negative rate limit",
			mutate:      func(c *Config) { c.RateLimitPerMinute = -1 },
			errorString: "invalid rate limit -1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errorString) {
				t.Fatalf("expected error containing %q, got %q", tt.errorString, err.Error())
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Port = "0"
	cfg.StorageBackend = "nope"
	cfg.EventsBackend = "nope"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if n := strings.Count(err.Error(), "\n- "); n != 3 {
		t.Fatalf("expected 3 problems, got %d in %q", n, err.Error())
	}
}

func TestConfig_ValidateCreatesSQLiteDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")
	cfg := Defaults()
	cfg.StorageBackend = "sqlite"
	cfg.SQLiteDBPath = filepath.Join(dir, "saldo.db")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("directory should have been created: %v", err)
	}
}

func TestEventsBackends(t *testing.T) {
	cases := map[string][]string{
		"":                nil,
		"none":            nil,
		"nats":            {"nats"},
		" NATS , amqp ":   {"nats", "amqp"},
		"amqp,amqp,none,": {"amqp"},
	}
	for in, want := range cases {
		got := (&Config{EventsBackend: in}).EventsBackends()
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("EventsBackends(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REMINDER_WINDOW", "24h")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")
	t.Setenv("CACHE_TTL", "1m")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.ReminderWindow != 24*time.Hour {
		t.Errorf("ReminderWindow = %v", cfg.ReminderWindow)
	}
	if cfg.StorageBackend != "memory" {
		t.Errorf("StorageBackend = %q", cfg.StorageBackend)
	}
	if cfg.RateLimitPerMinute != 60 {
		t.Errorf("unparsable rate limit should fall back to default, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.CacheTTL != time.Minute {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "saldo.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
port = "7070"
rate_limit_per_minute = 0

[reminder]
window = "48h"
message = "ricordati di me"

[storage]
backend = "sqlite"
sqlite_path = "/tmp/saldo-test.db"

[events]
backend = "nats"

[worker]
replica_backend = "s3"
sync_interval = "10m"
`)
	t.Setenv("PORT", "6060")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "6060" {
		t.Errorf("environment should win over the file, got port %q", cfg.Port)
	}
	if cfg.RateLimitPerMinute != 0 {
		t.Errorf("explicit zero rate limit should be kept, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.ReminderWindow != 48*time.Hour || cfg.ReminderMessage != "ricordati di me" {
		t.Errorf("reminder section not applied: %+v", cfg)
	}
	if cfg.StorageBackend != "sqlite" || cfg.SQLiteDBPath != "/tmp/saldo-test.db" {
		t.Errorf("storage section not applied: %+v", cfg)
	}
	if cfg.EventsBackend != "nats" {
		t.Errorf("EventsBackend = %q", cfg.EventsBackend)
	}
	if cfg.ReplicaBackend != "s3" || cfg.SyncInterval != 10*time.Minute {
		t.Errorf("worker section not applied: %+v", cfg)
	}
	if cfg.NATSBucket != "saldo" {
		t.Errorf("unset keys should keep defaults, got bucket %q", cfg.NATSBucket)
	}
}

func TestLoadFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("unknown key", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, "[storage]\nbakend = \"file\"\n"))
		if err == nil || !strings.Contains(err.Error(), "storage.bakend") {
			t.Fatalf("expected unknown key error, got %v", err)
		}
	})
	t.Run("bad duration", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, "[reminder]\nwindow = \"soon\"\n"))
		if err == nil || !strings.Contains(err.Error(), "reminder.window") {
			t.Fatalf("expected duration error, got %v", err)
		}
	})
	t.Run("empty path uses defaults", func(t *testing.T) {
		cfg, err := LoadFile("")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.ReminderWindow != 20*time.Hour {
			t.Fatalf("unexpected window %v", cfg.ReminderWindow)
		}
	})
}
