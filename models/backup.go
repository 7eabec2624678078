package models

import "time"

// Backup run statuses.
const (
	BackupStatusSuccess = "success"
	BackupStatusError   = "error"
)

// BackupHistoryLimit bounds the retained run history; older entries are
// dropped on append.
const BackupHistoryLimit = 30

// BackupConfig is the persisted backup configuration. CredentialPath points
// at the rclone config file and is opaque to the core.
type BackupConfig struct {
	RemotePath     string `json:"remote_path"`
	ScheduleTime   string `json:"schedule_time"`
	Enabled        bool   `json:"enabled"`
	CredentialPath string `json:"credential_path,omitempty"`
}

// DefaultBackupConfig returns the configuration used when no record exists.
func DefaultBackupConfig() BackupConfig {
	return BackupConfig{
		RemotePath:   "PhotoFrameBackup",
		ScheduleTime: "03:00",
	}
}

// BackupRun records the outcome of a single backup or restore attempt.
type BackupRun struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	Bytes      int64     `json:"bytes"`
}

// BackupLog is the persisted run history, newest last.
type BackupLog struct {
	History []BackupRun `json:"history"`
}

// Append adds a run and trims the history to BackupHistoryLimit entries.
func (l *BackupLog) Append(run BackupRun) {
	l.History = append(l.History, run)
	if len(l.History) > BackupHistoryLimit {
		l.History = l.History[len(l.History)-BackupHistoryLimit:]
	}
}

// LastRun returns the most recent run, or nil if none has been recorded.
func (l *BackupLog) LastRun() *BackupRun {
	if len(l.History) == 0 {
		return nil
	}
	return &l.History[len(l.History)-1]
}
