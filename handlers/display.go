package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/camden-git/photoframebackend/display"
	"github.com/camden-git/photoframebackend/gallery"
	"github.com/camden-git/photoframebackend/models"
	"github.com/camden-git/photoframebackend/store"
)

type DisplayHandler struct {
	Coordinator *display.Coordinator
	Catalog     *gallery.Catalog
	Settings    *store.Store[models.Settings]
}

func NewDisplayHandler(coordinator *display.Coordinator, catalog *gallery.Catalog, settings *store.Store[models.Settings]) *DisplayHandler {
	return &DisplayHandler{Coordinator: coordinator, Catalog: catalog, Settings: settings}
}

// visibleInterval resolves the live visible-image count and the configured
// slideshow interval for the coordinator.
func (h *DisplayHandler) visibleInterval() (int, time.Duration, error) {
	images, err := h.Catalog.EnabledImages()
	if err != nil {
		return 0, 0, err
	}
	settings, err := h.Settings.Load()
	if err != nil {
		return 0, 0, err
	}
	return len(images), time.Duration(settings.SlideshowInterval) * time.Second, nil
}

// State is polled by every display client. Auto-advance happens inside the
// coordinator so all screens see the same position.
func (h *DisplayHandler) State(w http.ResponseWriter, r *http.Request) {
	count, interval, err := h.visibleInterval()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Coordinator.State(count, interval))
}

type ControlPayload struct {
	Action string `json:"action"`
}

// Control applies next/prev/pause/play and returns the resulting state.
func (h *DisplayHandler) Control(w http.ResponseWriter, r *http.Request) {
	var payload ControlPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid request payload")
		return
	}

	count, _, err := h.visibleInterval()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	state, err := h.Coordinator.Control(payload.Action, count)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
