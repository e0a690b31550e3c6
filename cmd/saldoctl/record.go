package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"saldo/internal/core"
)

var recordAt string

var recordCmd = &cobra.Command{
	Use:   "record <contact>",
	Short: "Record that a reminder was sent to a contact",
	Long: `Record that a reminder was sent, starting the contact's cooldown.

Use --at to backfill a reminder sent outside Saldo. The latest record wins,
even when --at is earlier than the stored time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := core.ContactID(args[0])
		if err := id.Validate(); err != nil {
			return err
		}

		at := time.Now()
		if recordAt != "" {
			parsed, err := time.Parse(time.RFC3339, recordAt)
			if err != nil {
				return fmt.Errorf("invalid --at %q: expected RFC 3339, e.g. 2025-03-01T08:00:00Z", recordAt)
			}
			at = parsed
		}

		snap := tracker.RecordSentAt(cmd.Context(), id, at)
		r := newRow(tracker.CheckAt(id, time.Now()), snap[id])

		if jsonOutput {
			return printJSON(os.Stdout, r)
		}
		printTable(os.Stdout, []row{r}, shouldUseColor())
		return nil
	},
}

func init() {
	recordCmd.Flags().StringVar(&recordAt, "at", "", "when the reminder was sent (RFC 3339); defaults to now")
}
