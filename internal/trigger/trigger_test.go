package trigger

import (
	"errors"
	"testing"
	"time"

	"announcebot/internal/announce"
)

// 2026-02-15 is a Sunday.
var anchor = time.Date(2026, 2, 15, 16, 0, 0, 0, time.Local)

func TestOnceFiresExactlyOnce(t *testing.T) {
	t.Parallel()
	sched, err := Build(anchor, announce.RepeatNone)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if next := sched.Next(anchor.Add(-time.Hour)); !next.Equal(anchor) {
		t.Fatalf("Next before anchor = %v, want %v", next, anchor)
	}
	// At or after the anchor there is no next firing.
	if next := sched.Next(anchor); !next.IsZero() {
		t.Fatalf("Next at anchor = %v, want zero", next)
	}
	if next := sched.Next(anchor.Add(time.Minute)); !next.IsZero() {
		t.Fatalf("Next after anchor = %v, want zero", next)
	}
}

func TestWeeklyKeepsWeekdayAndClock(t *testing.T) {
	t.Parallel()
	sched, err := Build(anchor, announce.RepeatWeekly)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	cur := anchor
	for i := 0; i < 3; i++ {
		next := sched.Next(cur)
		if next.Weekday() != anchor.Weekday() {
			t.Fatalf("firing %d: weekday = %v, want %v", i, next.Weekday(), anchor.Weekday())
		}
		if next.Hour() != 16 || next.Minute() != 0 {
			t.Fatalf("firing %d: clock = %02d:%02d, want 16:00", i, next.Hour(), next.Minute())
		}
		if !next.After(cur) {
			t.Fatalf("firing %d: %v not after %v", i, next, cur)
		}
		cur = next
	}
}

func TestWeeklySurvivesLongDowntime(t *testing.T) {
	t.Parallel()
	sched, err := Build(anchor, announce.RepeatWeekly)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// A restart long after the anchor still lands on the anchor's
	// weekday and clock time, not on "now plus a week".
	next := sched.Next(anchor.AddDate(1, 3, 2))
	if next.Weekday() != anchor.Weekday() || next.Hour() != 16 {
		t.Fatalf("recurrence drifted: %v", next)
	}
}

func TestDailyKeepsClock(t *testing.T) {
	t.Parallel()
	sched, err := Build(anchor, announce.RepeatDaily)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	next := sched.Next(anchor)
	if next.Hour() != 16 || next.Minute() != 0 {
		t.Fatalf("clock = %02d:%02d, want 16:00", next.Hour(), next.Minute())
	}
	if next.Sub(anchor) > 25*time.Hour {
		t.Fatalf("next daily firing too far out: %v", next)
	}
}

func TestMonthlyKeepsDayOfMonth(t *testing.T) {
	t.Parallel()
	sched, err := Build(anchor, announce.RepeatMonthly)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	next := sched.Next(anchor)
	if next.Day() != anchor.Day() || next.Hour() != 16 {
		t.Fatalf("monthly firing drifted: %v", next)
	}
}

func TestInvalidRecurrence(t *testing.T) {
	t.Parallel()
	_, err := Build(anchor, announce.Recurrence("fortnightly"))
	if !errors.Is(err, ErrInvalidRecurrence) {
		t.Fatalf("err = %v, want ErrInvalidRecurrence", err)
	}
}
