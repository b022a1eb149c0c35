package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linetally/internal/stats"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return s
}

func project(code int) *stats.Project {
	p := stats.NewProject()
	p.AddFile("C", stats.FileStats{Blank: 1, Comment: 2, Code: code})
	p.AddFile("Go", stats.FileStats{Code: 5})
	p.AddFile("Go", stats.FileStats{Comment: 1, Code: 5})
	return p
}

func TestRecordAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snap, err := s.Record(ctx, "/repo", project(10))
	require.NoError(t, err)
	_, err = uuid.Parse(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Files)
	assert.Equal(t, stats.FileStats{Blank: 1, Comment: 3, Code: 20}, snap.Totals)

	got, err := s.Get(ctx, snap.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Languages(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLanguagesAndProject(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snap, err := s.Record(ctx, "/repo", project(10))
	require.NoError(t, err)

	langs, err := s.Languages(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, []stats.Language{
		{Name: "C", Files: 1, Stats: stats.FileStats{Blank: 1, Comment: 2, Code: 10}},
		{Name: "Go", Files: 2, Stats: stats.FileStats{Comment: 1, Code: 10}},
	}, langs)

	p, err := s.Project(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, project(10).Languages(), p.Languages())
}

func TestRecord_EmptyProject(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snap, err := s.Record(ctx, "/empty", stats.NewProject())
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Files)

	langs, err := s.Languages(ctx, snap.ID)
	require.NoError(t, err)
	assert.Empty(t, langs)
}

func TestList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.Record(ctx, "/a", project(1))
	require.NoError(t, err)
	_, err = s.Record(ctx, "/b", project(2))
	require.NoError(t, err)
	third, err := s.RecordLabeled(ctx, "/a", "v1.0", project(3))
	require.NoError(t, err)

	snaps, err := s.List(ctx, "/a", 0)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, third.ID, snaps[0].ID, "newest first")
	assert.Equal(t, "v1.0", snaps[0].Label)
	assert.Equal(t, first.ID, snaps[1].ID)
	assert.True(t, snaps[0].CreatedAt.After(snaps[1].CreatedAt))

	snaps, err = s.List(ctx, "/a", 1)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, third.ID, snaps[0].ID)

	snaps, err = s.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, snaps, 3)

	snaps, err = s.List(ctx, "/nowhere", 0)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		snap, err := s.Record(ctx, "/a", project(i))
		require.NoError(t, err)
		ids = append(ids, snap.ID)
	}
	_, err := s.Record(ctx, "/b", project(9))
	require.NoError(t, err)

	removed, err := s.Prune(ctx, "/a", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	snaps, err := s.List(ctx, "/a", 0)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, ids[3], snaps[0].ID)
	assert.Equal(t, ids[2], snaps[1].ID)

	// Language rows go with their snapshot.
	var orphans int
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM snapshot_languages WHERE snapshot_id NOT IN (SELECT id FROM snapshots)`).Scan(&orphans))
	assert.Zero(t, orphans)

	others, err := s.List(ctx, "/b", 0)
	require.NoError(t, err)
	assert.Len(t, others, 1)

	_, err = s.Prune(ctx, "/a", -1)
	assert.Error(t, err)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	snap, err := s.Record(ctx, "/repo", project(1))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, path, s.Path())
}

func TestMigrate_FromV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE snapshots (
		id TEXT PRIMARY KEY, root TEXT NOT NULL, created_at INTEGER NOT NULL,
		files INTEGER NOT NULL, blank INTEGER NOT NULL, comment INTEGER NOT NULL, code INTEGER NOT NULL);
		INSERT INTO snapshots VALUES ('old', '/repo', 1, 1, 0, 0, 7);
		PRAGMA user_version = 1;`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	version, err := schemaVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)

	snap, err := s.Get(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "", snap.Label)
	assert.Equal(t, 7, snap.Totals.Code)
}

func TestMigrate_NewerSchemaRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`PRAGMA user_version = 99`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(path)
	assert.Error(t, err)
}
