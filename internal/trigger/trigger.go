// Package trigger converts an announcement's first firing moment and
// recurrence into a concrete cron schedule.
//
// Recurrence is always anchored to the original firing moment: a weekly
// announcement keeps the weekday and clock time of its first fire_at no
// matter how much later the process is restarted.
package trigger

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"announcebot/internal/announce"
)

// ErrInvalidRecurrence reports a recurrence literal outside the closed
// set {none, daily, weekly, monthly}.
var ErrInvalidRecurrence = errors.New("invalid recurrence")

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Build returns the schedule for one announcement. It is pure: no clock
// access, no side effects.
func Build(fireAt time.Time, rec announce.Recurrence) (cron.Schedule, error) {
	switch rec {
	case announce.RepeatNone:
		return onceSchedule{at: fireAt}, nil
	case announce.RepeatDaily:
		return parse(fmt.Sprintf("%d %d * * *", fireAt.Minute(), fireAt.Hour()))
	case announce.RepeatWeekly:
		return parse(fmt.Sprintf("%d %d * * %d", fireAt.Minute(), fireAt.Hour(), int(fireAt.Weekday())))
	case announce.RepeatMonthly:
		return parse(fmt.Sprintf("%d %d %d * *", fireAt.Minute(), fireAt.Hour(), fireAt.Day()))
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidRecurrence, rec)
	}
}

func parse(spec string) (cron.Schedule, error) {
	sched, err := parser.Parse(spec)
	if err != nil {
		// The specs above are generated from a time.Time, so this only
		// happens if the generation itself is broken.
		return nil, fmt.Errorf("cron spec %q: %w", spec, err)
	}
	return sched, nil
}

// onceSchedule fires exactly once, at its anchor moment.
type onceSchedule struct {
	at time.Time
}

// Next returns the anchor while it is still ahead of t, and the zero
// time afterwards, which the cron runner treats as "never again".
func (o onceSchedule) Next(t time.Time) time.Time {
	if t.Before(o.at) {
		return o.at
	}
	return time.Time{}
}
