package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"streamd/internal/common/fsutil"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS snapshots (
	key        TEXT PRIMARY KEY,
	position   INTEGER NOT NULL,
	size       INTEGER NOT NULL,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore keeps snapshots in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if p == "" {
		return nil, fmt.Errorf("store: empty sqlite path")
	}
	if p != ":memory:" && !strings.HasPrefix(p, "file:") {
		if _, err := fsutil.EnsureDir(filepath.Dir(p)); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}
	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, snap Snapshot) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (key, position, size, data, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET position=excluded.position, size=excluded.size,
		 data=excluded.data, updated_at=excluded.updated_at`,
		key, snap.Position, len(snap.Data), snap.Data, time.Now().Unix())
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Snapshot, error) {
	if !ValidKey(key) {
		return Snapshot{}, ErrInvalidKey
	}
	var (
		snap Snapshot
		size int
	)
	err := s.db.QueryRowContext(ctx, `SELECT position, size, data FROM snapshots WHERE key = ?`, key).
		Scan(&snap.Position, &size, &snap.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}
	if len(snap.Data) != size {
		return Snapshot{}, fmt.Errorf("%w: recorded %d bytes, read %d", ErrCorrupt, size, len(snap.Data))
	}
	return snap, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
