package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"announcebot/internal/announce"
	"announcebot/pkg/logx"
)

var ErrDisabled = errors.New("store disabled")

// Config configures the announcement store.
//
// Driver values:
//   - "file" (default): single JSON document with tmp-write + backup
//   - "sqlite": SQLite database file (optional build tag)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is durable whole-collection persistence for announcements.
//
// Load returns the complete collection; a missing backing file yields an
// empty slice and an unreadable one is logged and treated as empty, so a
// corrupt file never takes the scheduler down.
//
// Replace atomically swaps the whole collection. On write failure the
// previous contents are restored and the error is returned; callers must
// surface it, never swallow it.
type Store interface {
	Load(ctx context.Context) ([]announce.Announcement, error)
	Replace(ctx context.Context, all []announce.Announcement) error
	Close() error
}

// Open initializes the configured store. An empty driver defaults to "file".
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown store driver: " + driver)
	}
}
