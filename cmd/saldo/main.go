package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"saldo/internal/cache"
	"saldo/internal/cli"
	"saldo/internal/events"
	apphttp "saldo/internal/http"
	"saldo/internal/log"
	"saldo/internal/metrics"
	"saldo/internal/services"
)

func main() {
	configPath := flag.String("config", "", "optional TOML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "saldo:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig(configPath)
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentApp)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	res, err := cli.OpenMedium(ctx, logger, cfg, cfg.StorageBackend)
	if err != nil {
		return err
	}
	defer cli.Cleanup(logger, res)

	caches := cache.NewManager(logger)
	defer caches.Stop()
	if res.Cache != nil {
		caches.Register(res.Cache)
		caches.StartCleanup(cfg.CacheTTL)
	}

	m := metrics.New()
	tracker, err := cli.NewTracker(ctx, cfg, res.Medium, logger, m)
	if err != nil {
		return err
	}

	publisher, err := cli.NewPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	bridge := events.NewBridge(tracker, publisher, logger, events.WithOutcomes(m))
	defer bridge.Close()

	srv := apphttp.NewServer(":"+cfg.Port, services.NewReminderService(tracker, logger, m), apphttp.Options{
		Logger:             logger,
		Metrics:            m,
		Dispatcher:         services.LinkDispatcher{Message: cfg.ReminderMessage},
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ignoreCanceled(bridge.Run(gctx))
	})

	// Other processes may share a durable medium; pick up their writes.
	if cfg.StorageBackend != "memory" {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.SyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					tracker.Reload(gctx)
				}
			}
		})
	}

	g.Go(func() error {
		logger.Info("Starting saldo server",
			"port", cfg.Port,
			log.FieldBackend, cfg.StorageBackend,
			"window", tracker.Window().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
