// Package store keeps snapshots of scan results in SQLite so counts can be
// compared over time.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"linetally/internal/logging"
	"linetally/internal/stats"
)

// ErrNotFound is returned when a snapshot id does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one recorded scan.
type Snapshot struct {
	ID        string          `json:"id"`
	Root      string          `json:"root"`
	Label     string          `json:"label,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Files     int             `json:"files"`
	Totals    stats.FileStats `json:"totals"`
}

// Store is a snapshot database.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the database at path, creating parent directories
// and bringing the schema up to date.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "open")
	defer timer.Stop(zap.String("path", path))

	log := logging.Get(logging.CategoryStore)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn := "file:" + path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_synchronous=NORMAL"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debug("store ready", zap.String("path", path))

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Record stores project as a new snapshot of root.
func (s *Store) Record(ctx context.Context, root string, project *stats.Project) (Snapshot, error) {
	return s.RecordLabeled(ctx, root, "", project)
}

// RecordLabeled is Record with a free-form label, such as a release tag.
func (s *Store) RecordLabeled(ctx context.Context, root, label string, project *stats.Project) (Snapshot, error) {
	files, totals := project.Total()
	snap := Snapshot{
		ID:        uuid.NewString(),
		Root:      root,
		Label:     label,
		CreatedAt: s.now().UTC(),
		Files:     files,
		Totals:    totals,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, root, label, created_at, files, blank, comment, code)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Root, snap.Label, snap.CreatedAt.UnixNano(),
		snap.Files, totals.Blank, totals.Comment, totals.Code)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_languages (snapshot_id, language, files, blank, comment, code)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to prepare language insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, l := range project.Languages() {
		if _, err := stmt.ExecContext(ctx, snap.ID, l.Name, l.Files, l.Stats.Blank, l.Stats.Comment, l.Stats.Code); err != nil {
			return Snapshot{}, fmt.Errorf("failed to insert language %s: %w", l.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("failed to commit snapshot: %w", err)
	}

	logging.Get(logging.CategoryStore).Info("snapshot recorded",
		zap.String("id", snap.ID), zap.String("root", root), zap.Int("files", files))
	return snap, nil
}

const snapshotColumns = `id, root, label, created_at, files, blank, comment, code`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (Snapshot, error) {
	var (
		snap  Snapshot
		nanos int64
	)
	err := row.Scan(&snap.ID, &snap.Root, &snap.Label, &nanos, &snap.Files,
		&snap.Totals.Blank, &snap.Totals.Comment, &snap.Totals.Code)
	if err != nil {
		return Snapshot{}, err
	}
	snap.CreatedAt = time.Unix(0, nanos).UTC()
	return snap, nil
}

// List returns the snapshots of root, newest first. An empty root lists every
// root; a non-positive limit lists everything.
func (s *Store) List(ctx context.Context, root string, limit int) ([]Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots`
	var args []any
	if root != "" {
		query += ` WHERE root = ?`
		args = append(args, root)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snaps := []Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Get returns one snapshot by id.
func (s *Store) Get(ctx context.Context, id string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots WHERE id = ?`, id)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return snap, nil
}

// Languages returns the per-language rows of a snapshot, sorted by name.
func (s *Store) Languages(ctx context.Context, id string) ([]stats.Language, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT language, files, blank, comment, code FROM snapshot_languages
		 WHERE snapshot_id = ? ORDER BY language`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	langs := []stats.Language{}
	for rows.Next() {
		var l stats.Language
		if err := rows.Scan(&l.Name, &l.Files, &l.Stats.Blank, &l.Stats.Comment, &l.Stats.Code); err != nil {
			return nil, fmt.Errorf("failed to read language: %w", err)
		}
		langs = append(langs, l)
	}
	return langs, rows.Err()
}

// Project rebuilds the stats.Project a snapshot was recorded from.
func (s *Store) Project(ctx context.Context, id string) (*stats.Project, error) {
	langs, err := s.Languages(ctx, id)
	if err != nil {
		return nil, err
	}
	p := stats.NewProject()
	for _, l := range langs {
		p.AddLanguage(l)
	}
	return p, nil
}

// Prune deletes all but the newest keep snapshots of root and returns how
// many were removed.
func (s *Store) Prune(ctx context.Context, root string, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must not be negative: %d", keep)
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE root = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE root = ? ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, root, root, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logging.Get(logging.CategoryStore).Info("snapshots pruned", zap.String("root", root), zap.Int64("removed", n))
	}
	return int(n), nil
}
