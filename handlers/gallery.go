package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/photoframebackend/gallery"
	"github.com/camden-git/photoframebackend/media"
	"github.com/camden-git/photoframebackend/models"
)

type GalleryHandler struct {
	Catalog *gallery.Catalog
}

func NewGalleryHandler(catalog *gallery.Catalog) *GalleryHandler {
	return &GalleryHandler{Catalog: catalog}
}

// ListImages returns the full catalog with metadata, ascending display order.
func (h *GalleryHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.Catalog.Images()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, images)
}

// EnabledImages is the unauthenticated display feed: visible images only,
// trimmed to rendering fields.
func (h *GalleryHandler) EnabledImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.Catalog.EnabledImages()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if images == nil {
		images = []models.DisplayImage{}
	}
	writeJSON(w, http.StatusOK, images)
}

func (h *GalleryHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.Catalog.GetImage(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (h *GalleryHandler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var upd models.ImageUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid request payload")
		return
	}

	if err := h.Catalog.UpdateImage(id, upd); err != nil {
		writeDomainError(w, err)
		return
	}

	img, err := h.Catalog.GetImage(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (h *GalleryHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	fileErr, err := h.Catalog.DeleteImage(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if fileErr != nil {
		// the record is gone either way; the orphaned file is only logged
		log.Printf("handlers: delete %s: %v", id, fileErr)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "image deleted"})
}

type BulkPayload struct {
	IDs    []string `json:"ids"`
	Action string   `json:"action"`
}

func (h *GalleryHandler) BulkImages(w http.ResponseWriter, r *http.Request) {
	var payload BulkPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid request payload")
		return
	}

	result, err := h.Catalog.Bulk(payload.IDs, payload.Action)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type ReorderPayload struct {
	Order []string `json:"order"`
}

func (h *GalleryHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var payload ReorderPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid request payload")
		return
	}

	if err := h.Catalog.Reorder(payload.Order); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "order updated"})
}

// Duplicates checks an existing image against the rest of the catalog. The
// threshold query parameter overrides the default Hamming cutoff.
func (h *GalleryHandler) Duplicates(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	img, err := h.Catalog.GetImage(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if img.PHash == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "image has no perceptual hash yet")
		return
	}
	hash, err := media.ParsePHash(img.PHash)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	threshold := media.DefaultDuplicateThreshold
	if s := r.URL.Query().Get("threshold"); s != "" {
		t, err := strconv.Atoi(s)
		if err != nil || t < 0 || t > 64 {
			WriteAPIError(w, http.StatusBadRequest, "invalid_request", "threshold must be an integer between 0 and 64")
			return
		}
		threshold = t
	}

	matches, err := h.Catalog.FindSimilar(hash, threshold)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// the image always matches itself at distance 0; drop it
	filtered := make([]gallery.Match, 0, len(matches))
	for _, m := range matches {
		if m.Filename != id {
			filtered = append(filtered, m)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": filtered, "threshold": threshold})
}

// BackfillHashes computes hashes for every image lacking one.
func (h *GalleryHandler) BackfillHashes(w http.ResponseWriter, r *http.Request) {
	result, err := h.Catalog.BackfillHashes(media.ComputePHash)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
