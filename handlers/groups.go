package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/photoframebackend/gallery"
	"github.com/camden-git/photoframebackend/models"
)

type GroupHandler struct {
	Catalog *gallery.Catalog
}

func NewGroupHandler(catalog *gallery.Catalog) *GroupHandler {
	return &GroupHandler{Catalog: catalog}
}

type GroupCreatePayload struct {
	Name string `json:"name"`
	models.Overrides
}

func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Catalog.Groups()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var payload GroupCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid request payload")
		return
	}

	group, err := h.Catalog.CreateGroup(payload.Name, payload.Overrides)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (h *GroupHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var upd models.GroupUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid request payload")
		return
	}

	if err := h.Catalog.UpdateGroup(id, upd); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "group updated"})
}

func (h *GroupHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteGroup(chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "group deleted"})
}
