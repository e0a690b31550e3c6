package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"saldo/internal/core"
)

const (
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorReset = "\033[0m"
)

type row struct {
	Contact    string     `json:"contact"`
	OnCooldown bool       `json:"on_cooldown"`
	TimeLeft   string     `json:"time_left"`
	LastSentAt *time.Time `json:"last_sent_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

func newRow(st core.Status, lastSent time.Time) row {
	r := row{
		Contact:    string(st.ContactID),
		OnCooldown: st.OnCooldown,
		TimeLeft:   st.TimeLeft,
	}
	if !lastSent.IsZero() {
		t := lastSent.UTC()
		r.LastSentAt = &t
	}
	if !st.ExpiresAt.IsZero() {
		t := st.ExpiresAt.UTC()
		r.ExpiresAt = &t
	}
	return r
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printTable(w io.Writer, rows []row, color bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CONTACT\tSTATE\tTIME LEFT\tLAST SENT")
	for _, r := range rows {
		state, paint := "ready", colorGreen
		if r.OnCooldown {
			state, paint = "cooldown", colorRed
		}
		if color {
			state = paint + state + colorReset
		}
		last := "-"
		if r.LastSentAt != nil {
			last = r.LastSentAt.Format("2006-01-02 15:04")
		}
		timeLeft := r.TimeLeft
		if timeLeft == "" {
			timeLeft = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Contact, state, timeLeft, last)
	}
	tw.Flush()
}

func printSummary(w io.Writer, n int, window time.Duration) {
	noun := "contacts"
	if n == 1 {
		noun = "contact"
	}
	fmt.Fprintf(w, "\n%d %s (cooldown window %s)\n", n, noun, core.Humanize(window))
}

// shouldUseColor respects NO_COLOR, CLICOLOR_FORCE, CLICOLOR and TTY detection.
func shouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
