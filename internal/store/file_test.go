package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"announcebot/internal/announce"
	"announcebot/pkg/logx"
)

func newFileStore(t *testing.T) (Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "announcements.json")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return st, path
}

func sample(id string) announce.Announcement {
	return announce.Announcement{
		ID:        id,
		Kind:      announce.KindCustom,
		Text:      "scrimmage moved to field 2",
		At:        announce.NewLocalTime(time.Date(2026, 2, 15, 16, 0, 0, 0, time.Local)),
		Repeating: announce.RepeatNone,
		Audience:  "team-role",
		CreatedBy: "operator-1",
		CreatedAt: announce.NewLocalTime(time.Date(2026, 2, 1, 9, 30, 0, 0, time.Local)),
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	t.Parallel()
	st, _ := newFileStore(t)
	all, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty collection, got %d", len(all))
	}
}

func TestReplaceLoadRoundtrip(t *testing.T) {
	t.Parallel()
	st, _ := newFileStore(t)
	ctx := context.Background()

	want := []announce.Announcement{sample("a"), sample("b")}
	if err := st.Replace(ctx, want); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected collection: %+v", got)
	}
	if got[0].Text != want[0].Text || !got[0].At.Time().Equal(want[0].At.Time()) {
		t.Fatalf("record fields lost: %+v", got[0])
	}
}

func TestCorruptFileLoadsEmpty(t *testing.T) {
	t.Parallel()
	st, path := newFileStore(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	all, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("corrupt file should read as empty, got %d records", len(all))
	}
}

func TestBackupHoldsPriorVersion(t *testing.T) {
	t.Parallel()
	st, path := newFileStore(t)
	ctx := context.Background()

	if err := st.Replace(ctx, []announce.Announcement{sample("v1")}); err != nil {
		t.Fatalf("Replace v1: %v", err)
	}
	v1, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := st.Replace(ctx, []announce.Announcement{sample("v2")}); err != nil {
		t.Fatalf("Replace v2: %v", err)
	}

	bak, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if !bytes.Equal(bak, v1) {
		t.Fatal("backup is not the immediately-prior version")
	}
}

func TestFailedStageLeavesCanonicalIntact(t *testing.T) {
	t.Parallel()
	st, path := newFileStore(t)
	ctx := context.Background()

	if err := st.Replace(ctx, []announce.Announcement{sample("v1")}); err != nil {
		t.Fatalf("Replace v1: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// A directory squatting on the tmp path makes the staging write fail.
	if err := os.Mkdir(path+".tmp", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := st.Replace(ctx, []announce.Announcement{sample("v2")}); err == nil {
		t.Fatal("expected Replace to fail")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("canonical file changed despite failed write")
	}
}

func TestFailedBackupLeavesCanonicalIntact(t *testing.T) {
	t.Parallel()
	st, path := newFileStore(t)
	ctx := context.Background()

	if err := st.Replace(ctx, []announce.Announcement{sample("v1")}); err != nil {
		t.Fatalf("Replace v1: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// The staged write succeeds here, but the backup slot is blocked by
	// a non-empty directory, so the swap never happens.
	if err := os.Mkdir(path+".bak", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path+".bak", "blocker"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := st.Replace(ctx, []announce.Announcement{sample("v2")}); err == nil {
		t.Fatal("expected Replace to fail")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("canonical file changed despite failed write")
	}
}

func TestUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "etcd", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
