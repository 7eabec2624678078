package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/camden-git/photoframebackend/gallery"
	"github.com/camden-git/photoframebackend/models"
	"github.com/camden-git/photoframebackend/schedule"
	"github.com/camden-git/photoframebackend/store"
)

type SettingsHandler struct {
	Settings *store.Store[models.Settings]
	Clock    schedule.Clock
}

func NewSettingsHandler(settings *store.Store[models.Settings]) *SettingsHandler {
	return &SettingsHandler{Settings: settings, Clock: schedule.SystemClock{}}
}

// GetSettings returns the singleton display configuration. Display clients
// read this unauthenticated on load.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.Load()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// UpdateSettings merges a partial settings change. TV schedule entries are
// validated and assigned IDs before the list replaces the stored one.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var upd models.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid request payload")
		return
	}

	if upd.SlideshowInterval != nil &&
		(*upd.SlideshowInterval < models.MinSlideshowInterval || *upd.SlideshowInterval > models.MaxSlideshowInterval) {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request",
			"slideshow_interval must be between 3 and 300 seconds")
		return
	}
	if upd.BevelWidth != nil && (*upd.BevelWidth < 0 || *upd.BevelWidth > gallery.MaxBevelWidth) {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "bevel_width out of range")
		return
	}
	if upd.TVSchedules != nil {
		for i := range *upd.TVSchedules {
			entry := &(*upd.TVSchedules)[i]
			if err := schedule.ValidateSchedule(*entry); err != nil {
				WriteAPIError(w, http.StatusBadRequest, "invalid_request", err.Error())
				return
			}
			if entry.ID == "" {
				entry.ID = "sched_" + uuid.NewString()[:8]
			}
		}
	}

	err := h.Settings.Update(func(s *models.Settings) error {
		applySettingsUpdate(s, upd)
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	settings, err := h.Settings.Load()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func applySettingsUpdate(s *models.Settings, upd models.SettingsUpdate) {
	if upd.MatColor != nil {
		s.MatColor = *upd.MatColor
	}
	if upd.MatFinish != nil {
		s.MatFinish = *upd.MatFinish
	}
	if upd.BevelWidth != nil {
		s.BevelWidth = *upd.BevelWidth
	}
	if upd.SlideshowInterval != nil {
		s.SlideshowInterval = *upd.SlideshowInterval
	}
	if upd.TransitionDuration != nil {
		s.TransitionDuration = *upd.TransitionDuration
	}
	if upd.FitMode != nil {
		s.FitMode = *upd.FitMode
	}
	if upd.Shuffle != nil {
		s.Shuffle = *upd.Shuffle
	}
	if upd.ShowFilename != nil {
		s.ShowFilename = *upd.ShowFilename
	}
	if upd.TVSchedules != nil {
		s.TVSchedules = *upd.TVSchedules
	}
}

// GetTVSchedules returns just the TV schedule list.
func (h *SettingsHandler) GetTVSchedules(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.Load()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings.TVSchedules)
}

// UpdateTVSchedules replaces the TV schedule list.
func (h *SettingsHandler) UpdateTVSchedules(w http.ResponseWriter, r *http.Request) {
	var entries []models.TVSchedule
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid request payload")
		return
	}
	for i := range entries {
		if err := schedule.ValidateSchedule(entries[i]); err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if entries[i].ID == "" {
			entries[i].ID = "sched_" + uuid.NewString()[:8]
		}
	}

	err := h.Settings.Update(func(s *models.Settings) error {
		s.TVSchedules = entries
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// MaintenanceWindow reports whether automated deployment may proceed right
// now: permitted only while no TV schedule has the display active.
func (h *SettingsHandler) MaintenanceWindow(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.Load()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	now := h.Clock.Now()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deploy_permitted": schedule.DeployPermitted(settings.TVSchedules, now),
		"display_active":   schedule.IsActive(settings.TVSchedules, now),
	})
}
