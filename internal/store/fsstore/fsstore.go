// Package fsstore implements store.Store as one file per key in a
// directory, modeled on the legacy crawler's use of Twisted's DirDBM:
// a key/value mapping whose durability comes from a plain file write
// plus fsync, with no external dependency beyond the standard
// library.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
)

// Store is a directory-backed store.Store implementation. Each key is
// stored as one file, named by escaping the key for filesystem
// safety.
type Store struct {
	dir string
}

// Open creates dir (and any missing parents) if needed and returns a
// Store rooted there.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fsstore: create %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key))
}

// Contains reports whether key has a backing file.
func (s *Store) Contains(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("fsstore: stat %s: %w", key, err)
}

// Get reads key's file, if present.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("fsstore: read %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set durably writes value to key's file: write to a temp file in the
// same directory, fsync, then rename over the final path, so a crash
// mid-write never leaves a partial file under the real name.
func (s *Store) Set(_ context.Context, key, value string) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("fsstore: create temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("fsstore: write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("fsstore: sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("fsstore: close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("fsstore: rename into place for %s: %w", key, err)
	}
	return nil
}

// Delete removes key's file. A missing file is not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("fsstore: delete %s: %w", key, err)
	}
	return nil
}

// IterateKeys walks the directory, unescaping each filename back to
// its original key.
func (s *Store) IterateKeys(_ context.Context, fn func(key string) error) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("fsstore: read dir %s: %w", s.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || isTempFile(entry.Name()) {
			continue
		}
		key, err := url.PathUnescape(entry.Name())
		if err != nil {
			continue
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; fsstore holds no persistent handles between calls.
func (s *Store) Close() error { return nil }

func isTempFile(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
