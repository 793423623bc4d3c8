package scheduler

import (
	"sync"

	"github.com/robfig/cron/v3"
)

// jobTable maps announcement ids to their live cron entries. It is
// rebuilt from the store on every Initialize and never persisted.
type jobTable struct {
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func newJobTable() *jobTable {
	return &jobTable{entries: map[string]cron.EntryID{}}
}

// register records the entry for id and returns any entry it replaced.
// At most one live timer may exist per id, so a previous entry must be
// removed from the runner by the caller.
func (j *jobTable) register(id string, eid cron.EntryID) (prev cron.EntryID, replaced bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	prev, replaced = j.entries[id]
	j.entries[id] = eid
	return prev, replaced
}

// unregister removes the entry for id. Removing an absent id is a no-op.
func (j *jobTable) unregister(id string) (cron.EntryID, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	eid, ok := j.entries[id]
	if ok {
		delete(j.entries, id)
	}
	return eid, ok
}

func (j *jobTable) len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// snapshot returns a copy of the table.
func (j *jobTable) snapshot() map[string]cron.EntryID {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make(map[string]cron.EntryID, len(j.entries))
	for id, eid := range j.entries {
		out[id] = eid
	}
	return out
}

// reset drops every entry and returns the previous table.
func (j *jobTable) reset() map[string]cron.EntryID {
	j.mu.Lock()
	defer j.mu.Unlock()
	old := j.entries
	j.entries = map[string]cron.EntryID{}
	return old
}
