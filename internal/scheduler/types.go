package scheduler

import (
	"time"

	"announcebot/internal/announce"
)

// Config controls the scheduler engine.
type Config struct {
	// Channel is the delivery target reference handed to the notifier
	// with every rendered announcement.
	Channel string
	// Timezone is an IANA name, e.g. "Asia/Jakarta". Empty means the
	// process-local timezone. Persisted datetimes are naive and are
	// interpreted in this location.
	Timezone string
}

// CreateParams carries the already-validated fields of a new
// announcement. Validation (future-date check, recurrence literal,
// audience resolution) is the caller's job; the engine only assigns
// identity and provenance.
type CreateParams struct {
	Kind         announce.Kind
	Text         string
	Location     string
	PracticeTime string
	FireAt       time.Time
	Repeating    announce.Recurrence
	Audience     string
	CreatedBy    string
}

// JobInfo describes one live timer.
type JobInfo struct {
	ID   string
	Next time.Time
}

// Snapshot is a point-in-time view of the engine, for diagnostics and
// tests.
type Snapshot struct {
	Running     bool
	Timezone    string
	Jobs        []JobInfo
	Rescheduled int // recovery: jobs re-registered at the last Initialize
	Skipped     int // recovery: missed one-shots left stored but unscheduled
}
