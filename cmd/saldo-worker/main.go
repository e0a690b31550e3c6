package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"saldo/internal/amqp"
	"saldo/internal/cli"
	"saldo/internal/log"
	"saldo/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "optional TOML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "saldo-worker:", err)
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
	if cfg.ReplicaBackend == "" {
		return errors.New("REPLICA_BACKEND is required for the worker")
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker)
	logger.Info("Starting saldo-worker",
		log.FieldBackend, cfg.StorageBackend,
		"replica_backend", cfg.ReplicaBackend)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	primaryMedium, err := cli.OpenMedium(ctx, logger, cfg, cfg.StorageBackend)
	if err != nil {
		return err
	}
	defer cli.Cleanup(logger, primaryMedium)

	replicaMedium, err := cli.OpenMedium(ctx, logger, cfg, cfg.ReplicaBackend)
	if err != nil {
		return err
	}
	defer cli.Cleanup(logger, replicaMedium)

	primary, err := cli.NewTracker(ctx, cfg, primaryMedium.Medium, logger, nil)
	if err != nil {
		return err
	}
	replica, err := cli.NewTracker(ctx, cfg, replicaMedium.Medium, logger, nil)
	if err != nil {
		return err
	}

	w := worker.NewReplicaWorker(primary, replica, logger)
	g, gctx := errgroup.WithContext(ctx)

	// Periodic resync covers events lost while the worker was down.
	g.Go(func() error {
		return ignoreCanceled(w.Run(gctx, cfg.SyncInterval))
	})

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return err
		}
		defer client.Close()

		g.Go(func() error {
			return ignoreCanceled(client.ConsumeReminders(gctx, w.HandleReminderRecorded))
		})
	} else {
		logger.Info("Skipping AMQP consumption - no AMQP_URL provided, relying on periodic resync")
	}

	err = g.Wait()
	logger.Info("Worker shutdown complete")
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
