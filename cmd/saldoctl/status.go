package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"saldo/internal/core"
)

var statusCmd = &cobra.Command{
	Use:   "status <contact>...",
	Short: "Show whether contacts can be reminded now",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		snap := tracker.Snapshot()

		rows := make([]row, 0, len(args))
		for _, arg := range args {
			id := core.ContactID(arg)
			if err := id.Validate(); err != nil {
				return err
			}
			rows = append(rows, newRow(tracker.CheckAt(id, now), snap[id]))
		}

		if jsonOutput {
			return printJSON(os.Stdout, rows)
		}
		printTable(os.Stdout, rows, shouldUseColor())
		return nil
	},
}
