package core

import (
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// remainingMagnitudes mirrors humanize's defaults up to days, without the
// week/month/year buckets: a cooldown never runs that long.
var remainingMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Second, Format: "now", DivBy: time.Second},
	{D: 2 * time.Second, Format: "1 second %s", DivBy: 1},
	{D: time.Minute, Format: "%d seconds %s", DivBy: time.Second},
	{D: 2 * time.Minute, Format: "1 minute %s", DivBy: 1},
	{D: time.Hour, Format: "%d minutes %s", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "1 hour %s", DivBy: 1},
	{D: humanize.Day, Format: "%d hours %s", DivBy: time.Hour},
	{D: 2 * humanize.Day, Format: "1 day %s", DivBy: 1},
	{D: math.MaxInt64, Format: "%d days %s", DivBy: humanize.Day},
}

// Humanize renders a coarse duration such as "1 minute", "5 hours" or
// "2 days", without a leading preposition. The value is rounded to the unit
// it is displayed in. Only a zero duration renders as "now"; anything
// shorter than a second still reads "1 second".
func Humanize(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	if d > 0 && d < time.Second {
		d = time.Second
	}
	d = roundToDisplayUnit(d)

	base := time.Unix(0, 0)
	return strings.TrimSpace(humanize.CustomRelTime(base, base.Add(d), "", "", remainingMagnitudes))
}

func roundToDisplayUnit(d time.Duration) time.Duration {
	switch {
	case d < time.Minute:
		return d.Round(time.Second)
	case d < time.Hour:
		return d.Round(time.Minute)
	case d < humanize.Day:
		return d.Round(time.Hour)
	default:
		return d.Round(humanize.Day)
	}
}
