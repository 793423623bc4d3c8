// Package scheduler is the persistent announcement engine.
//
// # Model
//
// The store is the single source of truth. The engine keeps exactly one
// live cron entry per stored announcement whose schedule has not fully
// elapsed, rebuilt from the store on every Initialize. Firing callbacks
// reload the record fresh, deliver the rendered message, and remove
// one-shot records synchronously after a successful delivery — so a
// one-shot fires at most once even across rapid restarts.
//
// # Recovery
//
// One-shot announcements whose moment passed while the process was down
// are counted as skipped and left in the store unscheduled. They never
// fire late and they stay listed for manual review; this mirrors the
// behavior operators already rely on.
//
// # Concurrency
//
// The cron runner dispatches each firing on its own goroutine. All
// load→replace sequences (create, delete, one-shot cleanup) go through
// one mutation mutex so concurrent firings cannot lose updates.
package scheduler
