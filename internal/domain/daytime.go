package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Day bounds for a single 24 hour plan. Times past EndOfDay remain
// representable (MATSim writes them as 25:00:00 and so on).
var (
	StartOfDay = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	EndOfDay   = StartOfDay.Add(24 * time.Hour)
)

// Minutes returns the instant that is m minutes after StartOfDay.
func Minutes(m float64) time.Time {
	return StartOfDay.Add(time.Duration(m * float64(time.Minute)))
}

// ParseClock parses a MATSim clock string (hh:mm:ss or hh:mm) into a duration.
// Hours may exceed 24.
func ParseClock(s string) (time.Duration, error) {
	units := strings.Split(strings.TrimSpace(s), ":")
	if len(units) != 2 && len(units) != 3 {
		return 0, fmt.Errorf("parse clock: unrecognised format %q", s)
	}

	var parts [3]int
	for i, u := range units {
		n, err := strconv.Atoi(u)
		if err != nil {
			return 0, fmt.Errorf("parse clock %q: %w", s, err)
		}
		parts[i] = n
	}

	return time.Duration(parts[0])*time.Hour +
		time.Duration(parts[1])*time.Minute +
		time.Duration(parts[2])*time.Second, nil
}

// ParseTimeOfDay parses a MATSim clock string into an instant of the plan day.
func ParseTimeOfDay(s string) (time.Time, error) {
	d, err := ParseClock(s)
	if err != nil {
		return time.Time{}, err
	}
	return StartOfDay.Add(d), nil
}

// FormatClock renders a duration as hh:mm:ss, with hours allowed past 24.
func FormatClock(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	secs := int64(d / time.Second)
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	if neg {
		return fmt.Sprintf("-%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatTimeOfDay renders an instant of the plan day as hh:mm:ss.
func FormatTimeOfDay(t time.Time) string {
	return FormatClock(t.Sub(StartOfDay))
}
