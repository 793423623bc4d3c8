package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"announcebot/internal/announce"
	"announcebot/pkg/logx"
)

// document is the on-disk shape of the collection file.
type document struct {
	Announcements []announce.Announcement `json:"announcements"`
}

// fileStore keeps the whole collection in one JSON document.
//
// Files:
//   - <path>       canonical collection
//   - <path>.tmp   staging area for the next write
//   - <path>.bak   single-slot backup: the state immediately prior to the
//     most recent successful write
//
// Replace stages the new document in the tmp file, moves the canonical
// file into the backup slot and renames the tmp file into place. If any
// step fails the backup is moved back, so a failed write never loses the
// previous collection.
type fileStore struct {
	log logx.Logger

	path    string
	tmpPath string
	bakPath string
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("store.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{
		log:     log,
		path:    path,
		tmpPath: path + ".tmp",
		bakPath: path + ".bak",
	}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) Load(ctx context.Context) ([]announce.Announcement, error) {
	_ = ctx
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		s.log.Error("collection read failed; treating as empty", logx.String("path", s.path), logx.Err(err))
		return nil, nil
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		s.log.Error("collection parse failed; treating as empty", logx.String("path", s.path), logx.Err(err))
		return nil, nil
	}
	return doc.Announcements, nil
}

func (s *fileStore) Replace(ctx context.Context, all []announce.Announcement) error {
	_ = ctx
	if all == nil {
		all = []announce.Announcement{}
	}

	if err := s.writeTmp(all); err != nil {
		_ = os.Remove(s.tmpPath)
		return fmt.Errorf("stage collection: %w", err)
	}

	// Move the current canonical file into the single backup slot.
	backedUp := false
	if _, err := os.Stat(s.path); err == nil {
		_ = os.Remove(s.bakPath)
		if err := os.Rename(s.path, s.bakPath); err != nil {
			_ = os.Remove(s.tmpPath)
			return fmt.Errorf("backup collection: %w", err)
		}
		backedUp = true
	}

	if err := os.Rename(s.tmpPath, s.path); err != nil {
		if backedUp {
			if rerr := os.Rename(s.bakPath, s.path); rerr != nil {
				s.log.Error("backup restore failed", logx.String("path", s.path), logx.Err(rerr))
			} else {
				s.log.Warn("write failed; restored previous collection", logx.String("path", s.path))
			}
		}
		_ = os.Remove(s.tmpPath)
		return fmt.Errorf("swap collection: %w", err)
	}

	s.log.Debug("collection written", logx.String("path", s.path), logx.Int("count", len(all)))
	return nil
}

func (s *fileStore) writeTmp(all []announce.Announcement) error {
	f, err := os.OpenFile(s.tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{Announcements: all}); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
