package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/photoframebackend/models"
	"github.com/camden-git/photoframebackend/store"
)

// fakeSyncer records transfers and can be told to fail.
type fakeSyncer struct {
	mu         sync.Mutex
	pushes     []string
	pulls      []string
	excludes   map[string][]string // remote path -> excludes passed
	pushErr    error
	configured bool
	blockUntil chan struct{} // when set, Push blocks until closed
}

func (f *fakeSyncer) record(path string, excludes []string) {
	if f.excludes == nil {
		f.excludes = make(map[string][]string)
	}
	f.excludes[path] = excludes
}

func (f *fakeSyncer) Push(ctx context.Context, localDir, remotePath string, excludes []string) (int64, error) {
	if f.blockUntil != nil {
		<-f.blockUntil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return 0, f.pushErr
	}
	f.pushes = append(f.pushes, remotePath)
	f.record(remotePath, excludes)
	return 1024, nil
}

func (f *fakeSyncer) Pull(ctx context.Context, remotePath, localDir string, excludes []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls = append(f.pulls, remotePath)
	f.record(remotePath, excludes)
	return 2048, nil
}

func (f *fakeSyncer) Configured() bool { return f.configured }

func newTestOrchestrator(t *testing.T, syncer Syncer) *Orchestrator {
	t.Helper()
	dir := t.TempDir()
	return &Orchestrator{
		Lock:       &Lock{Path: filepath.Join(dir, "backup.lock")},
		Syncer:     syncer,
		ConfigFile: store.New(filepath.Join(dir, "backup_config.json"), models.DefaultBackupConfig),
		LogFile:    store.New(filepath.Join(dir, "backup_log.json"), func() models.BackupLog { return models.BackupLog{} }),
		UploadsDir: filepath.Join(dir, "uploads"),
		DataDir:    filepath.Join(dir, "data"),
	}
}

func TestLockExclusive(t *testing.T) {
	l := &Lock{Path: filepath.Join(t.TempDir(), "run.lock")}

	require.NoError(t, l.Acquire())
	err := l.Acquire()
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	l.Release()
	assert.NoError(t, l.Acquire())
	l.Release()
}

func TestLockConcurrentAcquireOneWinner(t *testing.T) {
	l := &Lock{Path: filepath.Join(t.TempDir(), "run.lock")}

	const goroutines = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Acquire() == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestLockReclaimsStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	require.NoError(t, os.WriteFile(path, []byte("999999 2020-01-01T00:00:00Z\n"), 0644))
	old := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	l := &Lock{Path: path}
	assert.NoError(t, l.Acquire(), "stale lock should be reclaimed")
	l.Release()
}

func TestLockFreshNotReclaimed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	require.NoError(t, os.WriteFile(path, []byte("1 now\n"), 0644))

	l := &Lock{Path: path}
	assert.ErrorIs(t, l.Acquire(), ErrAlreadyRunning)
}

func TestRunPushesBothTreesAndRecordsHistory(t *testing.T) {
	syncer := &fakeSyncer{configured: true}
	o := newTestOrchestrator(t, syncer)

	run, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.BackupStatusSuccess, run.Status)
	assert.Equal(t, int64(2048), run.Bytes)
	assert.Equal(t, []string{"PhotoFrameBackup/uploads", "PhotoFrameBackup/data"}, syncer.pushes)

	history, err := o.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.BackupStatusSuccess, history[0].Status)
}

func TestRunFailureRecordedInHistory(t *testing.T) {
	syncer := &fakeSyncer{configured: true, pushErr: errors.New("remote unreachable")}
	o := newTestOrchestrator(t, syncer)

	run, err := o.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, models.BackupStatusError, run.Status)
	assert.Contains(t, run.Detail, "remote unreachable")

	history, err := o.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.BackupStatusError, history[0].Status)
}

func TestRunReleasesLockAfterFailure(t *testing.T) {
	syncer := &fakeSyncer{configured: true, pushErr: errors.New("boom")}
	o := newTestOrchestrator(t, syncer)

	_, err := o.Run(context.Background())
	require.Error(t, err)

	syncer.pushErr = nil
	_, err = o.Run(context.Background())
	assert.NoError(t, err, "lock must be released after a failed run")
}

func TestRunRejectedWhileAnotherRuns(t *testing.T) {
	block := make(chan struct{})
	syncer := &fakeSyncer{configured: true, blockUntil: block}
	o := newTestOrchestrator(t, syncer)

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		o.Run(context.Background())
		close(done)
	}()
	<-started
	require.Eventually(t, o.InProgress, time.Second, 5*time.Millisecond)

	_, err := o.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(block)
	<-done
}

func TestRunNotConfigured(t *testing.T) {
	o := newTestOrchestrator(t, &fakeSyncer{configured: false})

	_, err := o.Run(context.Background())
	assert.Error(t, err)
}

func TestRunExcludesLiveStateFromDataTree(t *testing.T) {
	syncer := &fakeSyncer{configured: true}
	o := newTestOrchestrator(t, syncer)

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, syncer.excludes["PhotoFrameBackup/uploads"])
	assert.Equal(t, []string{"users.json", "backup.lock", "*.lock", "rclone.conf"},
		syncer.excludes["PhotoFrameBackup/data"])
}

func TestRestoreExcludesLiveStateFromDataTree(t *testing.T) {
	syncer := &fakeSyncer{configured: true}
	o := newTestOrchestrator(t, syncer)

	_, err := o.Restore(context.Background())
	require.NoError(t, err)

	assert.Empty(t, syncer.excludes["PhotoFrameBackup/uploads"])
	assert.Equal(t, []string{"users.json", "backup.lock", "*.lock", "rclone.conf"},
		syncer.excludes["PhotoFrameBackup/data"],
		"restore must never overwrite accounts, locks or credentials")
}

func TestRcloneArgsCarryExcludes(t *testing.T) {
	s := &RcloneSyncer{ConfigPath: "/etc/rclone.conf", Remote: "backup"}

	argv := s.args("copy", "backup:PhotoFrameBackup/data", "/srv/data",
		[]string{"users.json", "backup.lock"})

	assert.Equal(t, []string{
		"copy", "backup:PhotoFrameBackup/data", "/srv/data",
		"--config", "/etc/rclone.conf",
		"--exclude", "users.json",
		"--exclude", "backup.lock",
	}, argv)
}

func TestRestorePullsBothTrees(t *testing.T) {
	syncer := &fakeSyncer{configured: true}
	o := newTestOrchestrator(t, syncer)

	run, err := o.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.BackupStatusSuccess, run.Status)
	assert.Equal(t, []string{"PhotoFrameBackup/uploads", "PhotoFrameBackup/data"}, syncer.pulls)
}

func TestHistoryBounded(t *testing.T) {
	o := newTestOrchestrator(t, &fakeSyncer{configured: true})

	err := o.LogFile.Update(func(l *models.BackupLog) error {
		for i := 0; i < models.BackupHistoryLimit+5; i++ {
			l.Append(models.BackupRun{Status: models.BackupStatusSuccess, Detail: fmt.Sprintf("run %d", i)})
		}
		return nil
	})
	require.NoError(t, err)

	history, err := o.History()
	require.NoError(t, err)
	assert.Len(t, history, models.BackupHistoryLimit)
	assert.Equal(t, fmt.Sprintf("run %d", models.BackupHistoryLimit+4), history[len(history)-1].Detail)
}

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func newTestScheduler(t *testing.T, syncer *fakeSyncer, clock *fakeClock) *Scheduler {
	t.Helper()
	o := newTestOrchestrator(t, syncer)
	require.NoError(t, o.UpdateConfig(func(c *models.BackupConfig) error {
		c.Enabled = true
		c.ScheduleTime = "03:00"
		return nil
	}))
	return &Scheduler{Orchestrator: o, Clock: clock}
}

func TestSchedulerFiresOncePerDay(t *testing.T) {
	syncer := &fakeSyncer{configured: true}
	clock := &fakeClock{t: time.Date(2025, 6, 2, 3, 0, 10, 0, time.UTC)}
	s := newTestScheduler(t, syncer, clock)

	s.Tick(context.Background())
	s.Tick(context.Background()) // same minute, must not refire
	assert.Len(t, syncer.pushes, 2, "one run pushes two trees")

	clock.t = clock.t.Add(24 * time.Hour)
	s.Tick(context.Background())
	assert.Len(t, syncer.pushes, 4)
}

func TestSchedulerFiresLateWithinGrace(t *testing.T) {
	syncer := &fakeSyncer{configured: true}
	clock := &fakeClock{t: time.Date(2025, 6, 2, 3, 20, 0, 0, time.UTC)}
	s := newTestScheduler(t, syncer, clock)

	s.Tick(context.Background())
	assert.Len(t, syncer.pushes, 2, "a restart spanning the scheduled minute must not skip the day")
}

func TestSchedulerSkipsOutsideWindow(t *testing.T) {
	syncer := &fakeSyncer{configured: true}
	clock := &fakeClock{t: time.Date(2025, 6, 2, 4, 30, 0, 0, time.UTC)}
	s := newTestScheduler(t, syncer, clock)

	s.Tick(context.Background())
	assert.Empty(t, syncer.pushes)
}

func TestSchedulerDisabledDoesNothing(t *testing.T) {
	syncer := &fakeSyncer{configured: true}
	clock := &fakeClock{t: time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)}
	s := newTestScheduler(t, syncer, clock)
	require.NoError(t, s.Orchestrator.UpdateConfig(func(c *models.BackupConfig) error {
		c.Enabled = false
		return nil
	}))

	s.Tick(context.Background())
	assert.Empty(t, syncer.pushes)
}
