package schedule

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02T15:04", value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts.UTC()
}

func TestExpandNone(t *testing.T) {
	start := mustTime(t, "2024-01-01T09:00")
	got, err := Expand(start, start, time.Hour, RepeatNone, nil)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 window, got %d", len(got))
	}
	if !got[0].StartsAt.Equal(start) {
		t.Errorf("start = %v, want %v", got[0].StartsAt, start)
	}
	if !got[0].EndsAt.Equal(start.Add(time.Hour)) {
		t.Errorf("end = %v, want %v", got[0].EndsAt, start.Add(time.Hour))
	}
}

func TestExpandWeeklyFourMondays(t *testing.T) {
	// 2024-01-01 is a Monday.  A 60 minute class repeating on Mondays
	// yields the four Mondays at offsets 0, 7, 14 and 21, each at
	// 09:00-10:00.
	start := mustTime(t, "2024-01-01T09:00")
	got, err := Expand(start, start, time.Hour, RepeatWeekly, []time.Weekday{time.Monday})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 windows, got %d", len(got))
	}
	for i, w := range got {
		wantStart := start.AddDate(0, 0, 7*i)
		if !w.StartsAt.Equal(wantStart) {
			t.Errorf("window %d start = %v, want %v", i, w.StartsAt, wantStart)
		}
		if !w.EndsAt.Equal(wantStart.Add(time.Hour)) {
			t.Errorf("window %d end = %v, want %v", i, w.EndsAt, wantStart.Add(time.Hour))
		}
	}
}

func TestExpandWeeklyIncludesStartInstantFirst(t *testing.T) {
	start := mustTime(t, "2024-01-03T18:30") // a Wednesday
	got, err := Expand(start, start, 45*time.Minute, RepeatWeekly, []time.Weekday{time.Wednesday, time.Friday})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected windows")
	}
	if !got[0].StartsAt.Equal(start) {
		t.Errorf("first window = %v, want the start instant %v", got[0].StartsAt, start)
	}
	for i := 1; i < len(got); i++ {
		if !got[i].StartsAt.After(got[i-1].StartsAt) {
			t.Errorf("windows out of order at %d: %v then %v", i, got[i-1].StartsAt, got[i].StartsAt)
		}
	}
}

func TestExpandWeeklySkipsEarlierSameWeek(t *testing.T) {
	// Start on Wednesday with only Monday selected: the Monday of the
	// start week lies before the start instant and must be dropped,
	// leaving the next four Mondays inside the horizon.
	start := mustTime(t, "2024-01-03T10:00") // Wednesday
	got, err := Expand(start, start, time.Hour, RepeatWeekly, []time.Weekday{time.Monday})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 windows, got %d", len(got))
	}
	first := mustTime(t, "2024-01-08T10:00")
	if !got[0].StartsAt.Equal(first) {
		t.Errorf("first window = %v, want %v", got[0].StartsAt, first)
	}
}

func TestExpandWeeklyAllCandidatesInPast(t *testing.T) {
	// A schedule request replayed long after its start date generates
	// no upcoming sessions: every weekly candidate inside the horizon
	// precedes the clock and the result is empty.  Rejecting the empty
	// sequence is the caller's job, not the expander's.
	start := mustTime(t, "2024-01-01T09:00")
	now := mustTime(t, "2024-03-01T09:00")
	got, err := Expand(now, start, time.Hour, RepeatWeekly, []time.Weekday{time.Monday})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty sequence, got %d windows", len(got))
	}
}

func TestExpandWeeklyDropsOnlyPastCandidates(t *testing.T) {
	// Clock midway through the horizon: Mondays Jan 1 and Jan 8 are
	// gone, Jan 15 and Jan 22 remain.
	start := mustTime(t, "2024-01-01T09:00")
	now := mustTime(t, "2024-01-10T12:00")
	got, err := Expand(now, start, time.Hour, RepeatWeekly, []time.Weekday{time.Monday})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(got))
	}
	if want := mustTime(t, "2024-01-15T09:00"); !got[0].StartsAt.Equal(want) {
		t.Errorf("first window = %v, want %v", got[0].StartsAt, want)
	}
}

func TestExpandValidation(t *testing.T) {
	start := mustTime(t, "2024-01-01T09:00")
	if _, err := Expand(start, start, 0, RepeatNone, nil); err != ErrInvalidDuration {
		t.Errorf("zero duration: got %v, want ErrInvalidDuration", err)
	}
	if _, err := Expand(start, start, time.Hour, RepeatMode("monthly"), nil); err != ErrInvalidMode {
		t.Errorf("bad mode: got %v, want ErrInvalidMode", err)
	}
	if _, err := Expand(start, start, time.Hour, RepeatWeekly, nil); err != ErrNoWeekdays {
		t.Errorf("no weekdays: got %v, want ErrNoWeekdays", err)
	}
}
