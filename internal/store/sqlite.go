//go:build sqlite
// +build sqlite

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"announcebot/internal/announce"
	"announcebot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// sqliteStore keeps the collection in a single-table database. Replace
// rewrites the table in one transaction, which gives the same
// whole-collection swap semantics as the file driver.
type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Load(ctx context.Context) ([]announce.Announcement, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, text, location, practice_time, at, repeating, audience, created_by, created_at
		 FROM announcements ORDER BY created_at`)
	if err != nil {
		s.log.Error("collection query failed; treating as empty", logx.Err(err))
		return nil, nil
	}
	defer rows.Close()

	var all []announce.Announcement
	for rows.Next() {
		var a announce.Announcement
		var at, createdAt string
		if err := rows.Scan(&a.ID, &a.Kind, &a.Text, &a.Location, &a.PracticeTime,
			&at, &a.Repeating, &a.Audience, &a.CreatedBy, &createdAt); err != nil {
			return nil, err
		}
		if err := parseLocal(at, &a.At); err != nil {
			return nil, fmt.Errorf("row %s: %w", a.ID, err)
		}
		if err := parseLocal(createdAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("row %s: %w", a.ID, err)
		}
		all = append(all, a)
	}
	return all, rows.Err()
}

func (s *sqliteStore) Replace(ctx context.Context, all []announce.Announcement) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM announcements`); err != nil {
		return err
	}
	for _, a := range all {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO announcements(id, kind, text, location, practice_time, at, repeating, audience, created_by, created_at)
			 VALUES(?,?,?,?,?,?,?,?,?,?)`,
			a.ID, string(a.Kind), a.Text, a.Location, a.PracticeTime,
			a.At.String(), string(a.Repeating), a.Audience, a.CreatedBy, a.CreatedAt.String(),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func parseLocal(s string, out *announce.LocalTime) error {
	return out.UnmarshalJSON([]byte(`"` + s + `"`))
}
