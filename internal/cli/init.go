// Package cli provides common initialization utilities shared by
// cmd/saldo, cmd/saldo-worker and cmd/saldoctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"saldo/internal/amqp"
	"saldo/internal/backend"
	"saldo/internal/config"
	"saldo/internal/cooldown"
	"saldo/internal/events"
	"saldo/internal/log"
	"saldo/internal/storage"
)

// SetupLogger initializes structured logging at the configured level and
// sets it as the default logger.
func SetupLogger(level, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and the
// optional TOML file at path, then validates it.
func LoadAndValidateConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenMedium creates the medium of the given type using the connection
// settings in cfg.
func OpenMedium(ctx context.Context, logger *log.Logger, cfg *config.Config, mediumType string) (*backend.Result, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	bcfg.Type = backend.MediumType(mediumType)
	return backend.NewFactory(logger).CreateMedium(ctx, bcfg)
}

// NewTracker builds a cooldown tracker over medium with the configured
// window and storage key.
func NewTracker(ctx context.Context, cfg *config.Config, medium storage.Medium, logger *log.Logger, instr cooldown.Instrumentation) (*cooldown.Tracker, error) {
	opts := []cooldown.Option{
		cooldown.WithWindow(cfg.ReminderWindow),
		cooldown.WithKey(cfg.ReminderStorageKey),
		cooldown.WithLogger(logger),
	}
	if instr != nil {
		opts = append(opts, cooldown.WithInstrumentation(instr))
	}
	return cooldown.New(ctx, medium, opts...)
}

// NewPublisher connects to every configured events backend. With none
// configured it returns a publisher that drops events.
func NewPublisher(cfg *config.Config, logger *log.Logger) (events.Publisher, error) {
	var pubs events.Multi
	for _, b := range cfg.EventsBackends() {
		var (
			p   events.Publisher
			err error
		)
		switch b {
		case "nats":
			p, err = events.NewNATSPublisher(cfg.NATSURL)
		case "amqp":
			p, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		default:
			err = fmt.Errorf("unsupported events backend %q", b)
		}
		if err != nil {
			return nil, errors.Join(fmt.Errorf("connect %s publisher: %w", b, err), pubs.Close())
		}
		logger.Info("Connected events publisher", log.FieldBackend, b)
		pubs = append(pubs, p)
	}

	switch len(pubs) {
	case 0:
		return events.NoopPublisher{}, nil
	case 1:
		return pubs[0], nil
	default:
		return pubs, nil
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// Cleanup runs the medium cleanup, logging failures.
func Cleanup(logger *log.Logger, res *backend.Result) {
	if res == nil || res.Cleanup == nil {
		return
	}
	if err := res.Cleanup(); err != nil {
		logger.Error("Failed to close storage medium", log.FieldError, err)
	}
}
