// Package store persists engine session snapshots as opaque blobs.
//
// A snapshot is written whole and read back whole; any size mismatch is
// reported as ErrCorrupt.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Snapshot is one saved session: the committed position and the engine blob.
type Snapshot struct {
	Position int
	Data     []byte
}

// Store is a keyed snapshot store.
type Store interface {
	Put(ctx context.Context, key string, snap Snapshot) error
	Get(ctx context.Context, key string) (Snapshot, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

var (
	ErrNotFound   = errors.New("store: snapshot not found")
	ErrCorrupt    = errors.New("store: snapshot size mismatch")
	ErrInvalidKey = errors.New("store: invalid key")
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidKey reports whether key is usable as a snapshot name.
func ValidKey(key string) bool { return keyPattern.MatchString(key) && !strings.Contains(key, "..") }

// Open returns a store by kind: "file" (location is a directory) or
// "sqlite" (location is a database path or DSN).
func Open(kind, location string) (Store, error) {
	var (
		st  Store
		err error
	)
	switch strings.ToLower(kind) {
	case "", "file":
		st, err = NewFileStore(location)
	case "sqlite":
		st, err = OpenSQLite(location)
	default:
		return nil, fmt.Errorf("store: unknown kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}
