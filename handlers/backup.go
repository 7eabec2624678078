package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/camden-git/photoframebackend/backup"
	"github.com/camden-git/photoframebackend/models"
	"github.com/camden-git/photoframebackend/schedule"
)

type BackupHandler struct {
	Orchestrator *backup.Orchestrator
	// Verifier tests remote credentials; nil when the syncer cannot verify.
	Verifier interface {
		Verify(ctx context.Context) error
	}
}

func NewBackupHandler(orchestrator *backup.Orchestrator) *BackupHandler {
	h := &BackupHandler{Orchestrator: orchestrator}
	if v, ok := orchestrator.Syncer.(interface {
		Verify(ctx context.Context) error
	}); ok {
		h.Verifier = v
	}
	return h
}

type BackupStatusResponse struct {
	Configured bool              `json:"configured"`
	Enabled    bool              `json:"enabled"`
	InProgress bool              `json:"in_progress"`
	Restoring  bool              `json:"restoring"`
	LastRun    *models.BackupRun `json:"last_run"`
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Orchestrator.Config()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	history, err := h.Orchestrator.History()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var last *models.BackupRun
	if len(history) > 0 {
		last = &history[len(history)-1]
	}
	writeJSON(w, http.StatusOK, BackupStatusResponse{
		Configured: h.Orchestrator.Syncer.Configured(),
		Enabled:    cfg.Enabled,
		InProgress: h.Orchestrator.InProgress(),
		Restoring:  h.Orchestrator.Restoring(),
		LastRun:    last,
	})
}

// Run starts a backup in the background. The lock inside the orchestrator is
// the real arbiter; the in-progress check here just gives a friendlier 409.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.Orchestrator.InProgress() || h.Orchestrator.Restoring() {
		writeDomainError(w, backup.ErrAlreadyRunning)
		return
	}
	if !h.Orchestrator.Syncer.Configured() {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "backup is not configured")
		return
	}

	go func() {
		if _, err := h.Orchestrator.Run(context.Background()); err != nil {
			log.Printf("handlers: manual backup failed: %v", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "backup started"})
}

// Restore starts a restore in the background.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	if h.Orchestrator.InProgress() || h.Orchestrator.Restoring() {
		writeDomainError(w, backup.ErrAlreadyRunning)
		return
	}
	if !h.Orchestrator.Syncer.Configured() {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "backup is not configured")
		return
	}

	go func() {
		if _, err := h.Orchestrator.Restore(context.Background()); err != nil {
			log.Printf("handlers: restore failed: %v", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "restore started"})
}

func (h *BackupHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.Orchestrator.History()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if history == nil {
		history = []models.BackupRun{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *BackupHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Orchestrator.Config()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type BackupSettingsPayload struct {
	RemotePath   *string `json:"remote_path,omitempty"`
	ScheduleTime *string `json:"schedule_time,omitempty"`
	Enabled      *bool   `json:"enabled,omitempty"`
}

func (h *BackupHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var payload BackupSettingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid request payload")
		return
	}
	if payload.ScheduleTime != nil {
		if _, err := schedule.ParseClock(*payload.ScheduleTime); err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_request", "schedule_time must be HH:MM")
			return
		}
	}

	err := h.Orchestrator.UpdateConfig(func(cfg *models.BackupConfig) error {
		if payload.RemotePath != nil {
			cfg.RemotePath = *payload.RemotePath
		}
		if payload.ScheduleTime != nil {
			cfg.ScheduleTime = *payload.ScheduleTime
		}
		if payload.Enabled != nil {
			cfg.Enabled = *payload.Enabled
		}
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	cfg, err := h.Orchestrator.Config()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type ConfigurePayload struct {
	// RcloneConfig is the raw rclone.conf content holding the remote
	// credentials. The core never parses it.
	RcloneConfig string `json:"rclone_config"`
}

// Configure writes the remote credentials file. The content is opaque; a
// follow-up TestConnection tells the caller whether it works.
func (h *BackupHandler) Configure(w http.ResponseWriter, r *http.Request) {
	var payload ConfigurePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid request payload")
		return
	}
	if payload.RcloneConfig == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "rclone_config is required")
		return
	}

	syncer, ok := h.Orchestrator.Syncer.(*backup.RcloneSyncer)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "backup credentials are managed externally")
		return
	}
	if err := os.WriteFile(syncer.ConfigPath, []byte(payload.RcloneConfig), 0600); err != nil {
		log.Printf("handlers: writing rclone config: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "could not store credentials")
		return
	}

	err := h.Orchestrator.UpdateConfig(func(cfg *models.BackupConfig) error {
		cfg.CredentialPath = syncer.ConfigPath
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "credentials stored"})
}

// TestConnection verifies the remote credentials with a cheap listing.
func (h *BackupHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	if h.Verifier == nil || !h.Orchestrator.Syncer.Configured() {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "backup is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	if err := h.Verifier.Verify(ctx); err != nil {
		WriteAPIError(w, http.StatusBadGateway, "collaborator_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "connection ok"})
}
