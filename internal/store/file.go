package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"streamd/internal/common/fsutil"
)

var fileMagic = [4]byte{'S', 'D', 'S', '1'}

// header: magic, position (uint64), data length (uint64)
const headerLen = 4 + 8 + 8

// FileStore keeps one file per key under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	d, err := fsutil.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return &FileStore{dir: d}, nil
}

func (s *FileStore) path(key string) string { return filepath.Join(s.dir, key+".state") }

// Put replaces the key's file atomically.
func (s *FileStore) Put(ctx context.Context, key string, snap Snapshot) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var hdr [headerLen]byte
	copy(hdr[:4], fileMagic[:])
	binary.LittleEndian.PutUint64(hdr[4:12], uint64(snap.Position))
	binary.LittleEndian.PutUint64(hdr[12:20], uint64(len(snap.Data)))

	n, err := fsutil.WriteAtomic(s.path(key), io.MultiReader(bytes.NewReader(hdr[:]), bytes.NewReader(snap.Data)))
	if err != nil {
		return err
	}
	if n != int64(headerLen+len(snap.Data)) {
		return fmt.Errorf("%w: wrote %d bytes", ErrCorrupt, n)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, key string) (Snapshot, error) {
	if !ValidKey(key) {
		return Snapshot{}, ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}
	if len(b) < headerLen || !bytes.Equal(b[:4], fileMagic[:]) {
		return Snapshot{}, ErrCorrupt
	}
	pos := binary.LittleEndian.Uint64(b[4:12])
	size := binary.LittleEndian.Uint64(b[12:20])
	if uint64(len(b)-headerLen) != size {
		return Snapshot{}, fmt.Errorf("%w: header says %d bytes, file has %d", ErrCorrupt, size, len(b)-headerLen)
	}
	return Snapshot{Position: int(pos), Data: b[headerLen:]}, nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	err := os.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *FileStore) Close() error { return nil }
