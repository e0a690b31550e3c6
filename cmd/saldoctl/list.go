package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

var listActive bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every contact that was ever reminded",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		statuses := tracker.StatusAll(now)

		var rows []row
		for _, rec := range tracker.Snapshot().Records() {
			st := statuses[rec.ContactID]
			if listActive && !st.OnCooldown {
				continue
			}
			rows = append(rows, newRow(st, rec.LastSentAt))
		}

		if jsonOutput {
			if rows == nil {
				rows = []row{}
			}
			return printJSON(os.Stdout, rows)
		}
		printTable(os.Stdout, rows, shouldUseColor())
		printSummary(os.Stdout, len(rows), tracker.Window())
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listActive, "active", false, "only contacts still on cooldown")
}
