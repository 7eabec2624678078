// Package store provides the file-backed persistence primitive every stateful
// component is built on: a named JSON record set loaded whole and saved whole,
// with atomic replacement and advisory locking so concurrent writers serialize
// instead of interleaving.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// ErrUnavailable indicates the backing file could not be read or written for a
// reason other than absence or corruption. Absence and corruption fall back to
// the default record; this does not.
var ErrUnavailable = errors.New("store unavailable")

// Store binds a record type to a JSON file. Reads are unlocked snapshots;
// writes hold an exclusive advisory lock and replace the file atomically
// (temp file + rename), so a crash mid-write leaves the previous record
// intact.
type Store[T any] struct {
	path     string
	defaults func() T

	mu sync.Mutex   // serializes writers within this process
	fl *flock.Flock // serializes writers across processes
}

// New creates a store for the given file path. defaults produces the record
// returned when the file is absent or unreadable as JSON.
func New[T any](path string, defaults func() T) *Store[T] {
	return &Store[T]{
		path:     path,
		defaults: defaults,
		fl:       flock.New(path + ".lock"),
	}
}

// Path returns the backing file path.
func (s *Store[T]) Path() string { return s.path }

// Load returns the on-disk record, or the default when the file is absent.
// A corrupt file is logged and treated as missing rather than fatal; callers
// get a usable default and the old bytes stay on disk until the next save.
func (s *Store[T]) Load() (T, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s.defaults(), nil
		}
		return s.defaults(), fmt.Errorf("%w: reading %s: %v", ErrUnavailable, s.path, err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		log.Printf("store: corrupt record in %s, falling back to defaults: %v", s.path, err)
		return s.defaults(), nil
	}
	return v, nil
}

// Save atomically replaces the record. Either the whole new record persists
// or the old one remains untouched.
func (s *Store[T]) Save(v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(v)
}

// Update runs the read-modify-write transaction the callers are expected to
// use for any mutation: lock, load, mutate, atomic save, unlock. If fn
// returns an error nothing is written and the error is returned unchanged.
func (s *Store[T]) Update(fn func(*T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fl.Lock(); err != nil {
		return fmt.Errorf("%w: locking %s: %v", ErrUnavailable, s.path, err)
	}
	defer s.fl.Unlock()

	v, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(&v); err != nil {
		return err
	}
	return s.writeAtomic(v)
}

func (s *Store[T]) saveLocked(v T) error {
	if err := s.fl.Lock(); err != nil {
		return fmt.Errorf("%w: locking %s: %v", ErrUnavailable, s.path, err)
	}
	defer s.fl.Unlock()
	return s.writeAtomic(v)
}

func (s *Store[T]) writeAtomic(v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding record for %s: %w", s.path, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrUnavailable, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file in %s: %v", ErrUnavailable, dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: writing %s: %v", ErrUnavailable, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: syncing %s: %v", ErrUnavailable, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: closing %s: %v", ErrUnavailable, tmpName, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replacing %s: %v", ErrUnavailable, s.path, err)
	}
	return nil
}
