package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/camden-git/photoframebackend/backup"
	"github.com/camden-git/photoframebackend/gallery"
	"github.com/camden-git/photoframebackend/store"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// writeDomainError maps core errors onto the standardized response. Internal
// detail is logged but only validation and not-found messages reach the
// client verbatim.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case gallery.IsValidation(err):
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, gallery.ErrNotFound):
		WriteAPIError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, backup.ErrAlreadyRunning):
		WriteAPIError(w, http.StatusConflict, "already_running", err.Error())
	case errors.Is(err, store.ErrUnavailable):
		log.Printf("handlers: storage unavailable: %v", err)
		WriteAPIError(w, http.StatusServiceUnavailable, "storage_unavailable", "persistent storage is unavailable")
	default:
		log.Printf("handlers: internal error: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, httpStatus int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handlers: failed to encode response: %v", err)
	}
}
