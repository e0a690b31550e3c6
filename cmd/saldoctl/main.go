package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"saldo/internal/backend"
	"saldo/internal/cli"
	"saldo/internal/config"
	"saldo/internal/cooldown"
	"saldo/internal/log"
)

var (
	configPath  string
	backendName string
	jsonOutput  bool
	verbose     bool

	medium  *backend.Result
	tracker *cooldown.Tracker
	logger  *log.Logger
)

var rootCmd = &cobra.Command{
	Use:          "saldoctl",
	Short:        "Inspect and record payment reminder cooldowns",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cli.LoadEnvFile()
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		if backendName != "" {
			cfg.StorageBackend = backendName
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		level := "warn"
		if verbose {
			level = "debug"
		}
		logger = log.New(log.Config{
			Level:     log.ParseLevel(level),
			Component: log.ComponentCLI,
			Output:    os.Stderr,
		})

		ctx := cmd.Context()
		medium, err = cli.OpenMedium(ctx, logger, cfg, cfg.StorageBackend)
		if err != nil {
			return err
		}
		tracker, err = cli.NewTracker(ctx, cfg, medium.Medium, logger, nil)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("SALDO_CONFIG"), "TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "override the storage backend")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log storage activity to stderr")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(listCmd)
}

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// execute runs the command line and closes the medium afterwards. cobra
// skips post-run hooks when a command fails, so the close happens here.
func execute(ctx context.Context, args []string) error {
	rootCmd.SetArgs(args)
	defer closeMedium()
	return rootCmd.ExecuteContext(ctx)
}

func closeMedium() {
	if medium == nil {
		return
	}
	cli.Cleanup(logger, medium)
	medium, tracker = nil, nil
}
