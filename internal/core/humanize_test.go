package core

import (
	"testing"
	"time"
)

func TestHumanize(t *testing.T) {
	cases := []struct {
		in  time.Duration
		out string
	}{
		{0, "now"},
		{time.Nanosecond, "1 second"},
		{400 * time.Millisecond, "1 second"},
		{time.Second, "1 second"},
		{42 * time.Second, "42 seconds"},
		{time.Minute, "1 minute"},
		{61 * time.Second, "1 minute"},
		{59*time.Minute + 40*time.Second, "1 hour"},
		{5 * time.Minute, "5 minutes"},
		{time.Hour, "1 hour"},
		{90 * time.Minute, "2 hours"},
		{5 * time.Hour, "5 hours"},
		{20 * time.Hour, "20 hours"},
		{23*time.Hour + 40*time.Minute, "1 day"},
		{48 * time.Hour, "2 days"},
		{-5 * time.Hour, "5 hours"},
	}
	for _, tc := range cases {
		if got := Humanize(tc.in); got != tc.out {
			t.Errorf("Humanize(%v) = %q, want %q", tc.in, got, tc.out)
		}
	}
}
