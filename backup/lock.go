// Package backup owns cloud backup: the run lock, the orchestrated
// push/pull, the daily scheduler and the bounded run history.
package backup

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"
)

// ErrAlreadyRunning indicates another backup or restore holds the lock.
// Callers should retry later, not immediately.
var ErrAlreadyRunning = errors.New("a backup or restore is already in progress")

// DefaultStaleAfter is the liveness window after which a lock file is assumed
// to belong to a crashed process and is reclaimed. Twice the transfer
// timeout, so a slow-but-alive run is never stolen.
const DefaultStaleAfter = 2 * time.Hour

// Lock is the exclusive, file-based run lock. It is cooperative: it guards
// against two full backup runs overlapping, not against catalog edits during
// a run.
type Lock struct {
	Path string
	// StaleAfter overrides DefaultStaleAfter when positive.
	StaleAfter time.Duration
}

func (l *Lock) staleAfter() time.Duration {
	if l.StaleAfter > 0 {
		return l.StaleAfter
	}
	return DefaultStaleAfter
}

// Acquire takes the lock or fails with ErrAlreadyRunning. A lock file whose
// holder timestamp is older than the liveness window is reclaimed on the
// assumption the prior process died without releasing.
func (l *Lock) Acquire() error {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "%d %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
			f.Close()
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("creating lock file %s: %w", l.Path, err)
		}

		info, statErr := os.Stat(l.Path)
		if statErr != nil {
			if os.IsNotExist(statErr) {
				continue // holder released between our attempts
			}
			return fmt.Errorf("checking lock file %s: %w", l.Path, statErr)
		}
		if time.Since(info.ModTime()) < l.staleAfter() {
			return ErrAlreadyRunning
		}

		log.Printf("backup: reclaiming stale lock %s (held since %s)", l.Path, info.ModTime().Format(time.RFC3339))
		if rmErr := os.Remove(l.Path); rmErr != nil && !os.IsNotExist(rmErr) {
			return fmt.Errorf("reclaiming stale lock %s: %w", l.Path, rmErr)
		}
	}
	return ErrAlreadyRunning
}

// Release removes the lock file. Safe to call even when the run failed; a
// missing file is not an error.
func (l *Lock) Release() {
	if err := os.Remove(l.Path); err != nil && !os.IsNotExist(err) {
		log.Printf("backup: failed to release lock %s: %v", l.Path, err)
	}
}
