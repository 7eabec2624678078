// Package schedule evaluates wall-clock on/off windows. The same evaluation
// drives the TV power controller and the deploy maintenance-window check.
package schedule

import (
	"time"

	"github.com/camden-git/photoframebackend/gallery"
	"github.com/camden-git/photoframebackend/models"
)

// Clock supplies the current time; injected so window evaluation is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ParseClock parses "HH:MM" into minutes since midnight. Trailing text and
// single-digit minutes are rejected.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, gallery.Validationf("invalid time '%s', expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ValidateSchedule checks a TV schedule entry's times and day set.
func ValidateSchedule(s models.TVSchedule) error {
	if _, err := ParseClock(s.OnTime); err != nil {
		return err
	}
	if _, err := ParseClock(s.OffTime); err != nil {
		return err
	}
	for _, d := range s.Days {
		if d < 0 || d > 6 {
			return gallery.Validationf("invalid weekday %d, expected 0 (Monday) through 6 (Sunday)", d)
		}
	}
	return nil
}

// weekday maps time.Weekday to the persisted 0=Monday..6=Sunday convention.
func weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// IsActive reports whether any enabled entry's window contains now. Entries
// are a union: overlapping windows need not be disjoint, and a single match
// is enough. An entry with an empty day set matches nothing; an empty list
// is never active.
func IsActive(entries []models.TVSchedule, now time.Time) bool {
	today := weekday(now)
	yesterday := (today + 6) % 7
	minutes := now.Hour()*60 + now.Minute()

	for _, entry := range entries {
		if !entry.Enabled {
			continue
		}
		on, err := ParseClock(entry.OnTime)
		if err != nil {
			continue
		}
		off, err := ParseClock(entry.OffTime)
		if err != nil {
			continue
		}

		wraps := off <= on
		for _, day := range entry.Days {
			if day == today {
				if wraps {
					// Window started today and runs past midnight.
					if minutes >= on {
						return true
					}
				} else if minutes >= on && minutes < off {
					return true
				}
			}
			// A wrapping window anchored on the previous day is still
			// running before its off-time.
			if wraps && day == yesterday && minutes < off {
				return true
			}
		}
	}
	return false
}

// DeployPermitted is the maintenance-window gate: deployment may proceed only
// while no schedule reports the display as on. An empty schedule list means
// there is nothing to protect.
func DeployPermitted(entries []models.TVSchedule, now time.Time) bool {
	return !IsActive(entries, now)
}
