// Package schedule contains the pure time-window expander that turns a
// class duration plus a repeat rule into concrete session windows.  It
// performs no I/O; persistence of the resulting windows is the job of
// the scheduling service.
package schedule

import (
	"errors"
	"time"
)

// HorizonDays bounds how far ahead weekly repetition generates
// sessions.  Regenerating more sessions requires re-invoking the
// schedule action; the horizon is intentionally not configurable so
// the generated set stays small and variable-priced classes never
// accumulate unbounded future commitments.
const HorizonDays = 28

// RepeatMode selects how a schedule request repeats.
type RepeatMode string

const (
	// RepeatNone schedules exactly one session at the start instant.
	RepeatNone RepeatMode = "none"
	// RepeatWeekly schedules sessions on selected weekdays within the
	// horizon, at the start instant's time of day.
	RepeatWeekly RepeatMode = "weekly"
)

// Valid reports whether m is a known repeat mode.
func (m RepeatMode) Valid() bool {
	return m == RepeatNone || m == RepeatWeekly
}

// Window is one concrete (start, end) pair produced by Expand.
type Window struct {
	StartsAt time.Time
	EndsAt   time.Time
}

// Validation errors returned by Expand before any window is built.
var (
	ErrInvalidMode     = errors.New("unknown repeat mode")
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrNoWeekdays      = errors.New("weekly repeat requires at least one weekday")
)

// Expand produces the ordered sequence of session windows for a class
// of the given duration starting at start.  now is the request clock;
// weekly candidates already in the past are not upcoming sessions and
// are dropped.
//
// For RepeatNone the result is the single window at start, regardless
// of now (one-off sessions may be backfilled).  For RepeatWeekly it
// walks calendar offsets 0..HorizonDays-1 from start's date, keeps
// the dates whose weekday is in days, places each candidate at
// start's time of day and discards candidates strictly before start
// (otherwise a Wednesday start with Monday selected would generate a
// session earlier in the same week) as well as candidates strictly
// before now.  Survivors come back in chronological order.
//
// An empty result is not an error here: Expand reports what the rule
// yields and the caller decides that zero upcoming sessions is a hard
// failure.
func Expand(now, start time.Time, duration time.Duration, mode RepeatMode, days []time.Weekday) ([]Window, error) {
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	switch mode {
	case RepeatNone:
		return []Window{{StartsAt: start, EndsAt: start.Add(duration)}}, nil
	case RepeatWeekly:
		if len(days) == 0 {
			return nil, ErrNoWeekdays
		}
		selected := make(map[time.Weekday]bool, len(days))
		for _, d := range days {
			selected[d] = true
		}
		windows := make([]Window, 0, HorizonDays/7*len(selected)+1)
		year, month, day := start.Date()
		for offset := 0; offset < HorizonDays; offset++ {
			date := time.Date(year, month, day+offset, start.Hour(), start.Minute(), start.Second(), 0, start.Location())
			if !selected[date.Weekday()] {
				continue
			}
			if date.Before(start) || date.Before(now) {
				continue
			}
			windows = append(windows, Window{StartsAt: date, EndsAt: date.Add(duration)})
		}
		return windows, nil
	default:
		return nil, ErrInvalidMode
	}
}
