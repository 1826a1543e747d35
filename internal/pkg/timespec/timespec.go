// Package timespec converts user-entered time specifications into concrete
// target instants. Specs are either absolute wall-clock times ("14:30") or
// relative duration phrases ("1 hour 30 minutes").
package timespec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-quicknotif/internal/domain"
)

// Compute derives the target instant for spec interpreted per kind, relative
// to now.
//
// Absolute specs are "HH:MM" in now's location; the result is the next
// occurrence of that wall-clock time strictly after now (same day, or
// tomorrow if it already passed), with seconds and sub-seconds zeroed.
//
// Relative specs are summed token pairs; unrecognized tokens are ignored, so
// a spec with no valid tokens degrades to now itself.
func Compute(spec string, kind domain.Kind, now time.Time) (time.Time, error) {
	if kind == domain.KindAbsolute {
		hh, mm, err := parseClock(spec)
		if err != nil {
			return time.Time{}, err
		}
		target := time.Date(now.Year(), now.Month(), now.Day(), hh, mm, 0, 0, now.Location())
		if !target.After(now) {
			// Keeps the wall-clock time across a DST boundary.
			target = target.AddDate(0, 0, 1)
		}
		return target, nil
	}
	return now.Add(time.Duration(RelativeMillis(spec)) * time.Millisecond), nil
}

// RelativeMillis parses a relative spec like "2 hours 30 minutes" into total
// milliseconds. Tokens are consumed in <value> <unit> pairs; units match any
// token containing "hour" or "minute". Invalid pairs contribute nothing.
func RelativeMillis(spec string) int64 {
	parts := strings.Fields(strings.ToLower(spec))
	var totalMinutes int64
	for i := 0; i < len(parts); i += 2 {
		value, err := strconv.ParseInt(parts[i], 10, 64)
		if err != nil {
			continue
		}
		var unit string
		if i+1 < len(parts) {
			unit = parts[i+1]
		}
		switch {
		case strings.Contains(unit, "hour"):
			totalMinutes += value * 60
		case strings.Contains(unit, "minute"):
			totalMinutes += value
		}
	}
	return totalMinutes * 60 * 1000
}

// FormatDuration renders hours and minutes the way the input side writes
// relative specs: "1 hour", "2 hours 30 minutes", "1 minute". Zero components
// are omitted; h and m must not both be zero.
func FormatDuration(h, m int) string {
	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", h, plural(h, "hour")))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", m, plural(m, "minute")))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}

func parseClock(spec string) (hh, mm int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(spec), ":")
	if !ok {
		return 0, 0, fmt.Errorf("parse clock time %q: %w", spec, domain.ErrBadRequest)
	}
	hh, err = strconv.Atoi(h)
	if err == nil {
		mm, err = strconv.Atoi(m)
	}
	if err != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, 0, fmt.Errorf("parse clock time %q: %w", spec, domain.ErrBadRequest)
	}
	return hh, mm, nil
}
