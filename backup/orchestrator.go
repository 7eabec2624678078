package backup

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/camden-git/photoframebackend/models"
	"github.com/camden-git/photoframebackend/store"
)

// DefaultRunTimeout bounds a single transfer so a wedged rclone process
// cannot leave the run "in progress" indefinitely.
const DefaultRunTimeout = time.Hour

// stateExcludes keeps live operational state out of the data-tree transfers
// in both directions: the account database, the held run lock, the store
// lock files and the remote credentials. A restore must never clobber the
// accounts or the lock protecting the restore itself.
var stateExcludes = []string{"users.json", "backup.lock", "*.lock", "rclone.conf"}

// Orchestrator runs backups and restores under the run lock, recording every
// outcome in the bounded history. Transfers never hold a store lock; only the
// final history append is a store write.
type Orchestrator struct {
	Lock       *Lock
	Syncer     Syncer
	ConfigFile *store.Store[models.BackupConfig]
	LogFile    *store.Store[models.BackupLog]

	// UploadsDir and DataDir are the local trees pushed to the remote.
	UploadsDir string
	DataDir    string

	// RunTimeout overrides DefaultRunTimeout when positive.
	RunTimeout time.Duration

	inProgress atomic.Bool
	restoring  atomic.Bool
}

func (o *Orchestrator) timeout() time.Duration {
	if o.RunTimeout > 0 {
		return o.RunTimeout
	}
	return DefaultRunTimeout
}

// InProgress reports whether a backup is currently running.
func (o *Orchestrator) InProgress() bool { return o.inProgress.Load() }

// Restoring reports whether a restore is currently running.
func (o *Orchestrator) Restoring() bool { return o.restoring.Load() }

// Config returns the current backup configuration.
func (o *Orchestrator) Config() (models.BackupConfig, error) {
	return o.ConfigFile.Load()
}

// UpdateConfig merges a partial configuration change.
func (o *Orchestrator) UpdateConfig(fn func(*models.BackupConfig) error) error {
	return o.ConfigFile.Update(fn)
}

// History returns the recorded runs, oldest first.
func (o *Orchestrator) History() ([]models.BackupRun, error) {
	logData, err := o.LogFile.Load()
	if err != nil {
		return nil, err
	}
	return logData.History, nil
}

// Run performs one full backup: acquire the lock, push uploads and data under
// the run timeout, record the result, release. Failure is recorded, never
// swallowed.
func (o *Orchestrator) Run(ctx context.Context) (models.BackupRun, error) {
	cfg, err := o.ConfigFile.Load()
	if err != nil {
		return models.BackupRun{}, err
	}
	if !o.Syncer.Configured() {
		return models.BackupRun{}, fmt.Errorf("backup is not configured")
	}

	if err := o.Lock.Acquire(); err != nil {
		return models.BackupRun{}, err
	}
	defer o.Lock.Release()

	o.inProgress.Store(true)
	defer o.inProgress.Store(false)

	ctx, cancel := context.WithTimeout(ctx, o.timeout())
	defer cancel()

	run := models.BackupRun{StartedAt: time.Now(), Status: models.BackupStatusSuccess}

	var total int64
	bytes, err := o.Syncer.Push(ctx, o.UploadsDir, cfg.RemotePath+"/uploads", nil)
	total += bytes
	if err == nil {
		bytes, err = o.Syncer.Push(ctx, o.DataDir, cfg.RemotePath+"/data", stateExcludes)
		total += bytes
	}

	run.FinishedAt = time.Now()
	run.Bytes = total
	if err != nil {
		run.Status = models.BackupStatusError
		run.Detail = truncate(err.Error(), 500)
		log.Printf("backup: run failed after %s: %v", run.FinishedAt.Sub(run.StartedAt), err)
	} else {
		log.Printf("backup: run completed in %s (%d bytes)", run.FinishedAt.Sub(run.StartedAt), total)
	}

	if logErr := o.record(run); logErr != nil {
		log.Printf("backup: failed to record run: %v", logErr)
	}
	if err != nil {
		return run, fmt.Errorf("backup transfer failed: %w", err)
	}
	return run, nil
}

// Restore pulls the remote backup into the local trees under the same lock,
// so a restore can never race a backup.
func (o *Orchestrator) Restore(ctx context.Context) (models.BackupRun, error) {
	cfg, err := o.ConfigFile.Load()
	if err != nil {
		return models.BackupRun{}, err
	}
	if !o.Syncer.Configured() {
		return models.BackupRun{}, fmt.Errorf("backup is not configured")
	}

	if err := o.Lock.Acquire(); err != nil {
		return models.BackupRun{}, err
	}
	defer o.Lock.Release()

	o.restoring.Store(true)
	defer o.restoring.Store(false)

	ctx, cancel := context.WithTimeout(ctx, o.timeout())
	defer cancel()

	run := models.BackupRun{StartedAt: time.Now(), Status: models.BackupStatusSuccess}

	var total int64
	bytes, err := o.Syncer.Pull(ctx, cfg.RemotePath+"/uploads", o.UploadsDir, nil)
	total += bytes
	if err == nil {
		bytes, err = o.Syncer.Pull(ctx, cfg.RemotePath+"/data", o.DataDir, stateExcludes)
		total += bytes
	}

	run.FinishedAt = time.Now()
	run.Bytes = total
	if err != nil {
		run.Status = models.BackupStatusError
		run.Detail = truncate(err.Error(), 500)
		return run, fmt.Errorf("restore transfer failed: %w", err)
	}
	log.Printf("backup: restore completed in %s", run.FinishedAt.Sub(run.StartedAt))
	return run, nil
}

func (o *Orchestrator) record(run models.BackupRun) error {
	return o.LogFile.Update(func(l *models.BackupLog) error {
		l.Append(run)
		return nil
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
