package handlers

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/camden-git/photoframebackend/gallery"
	"github.com/camden-git/photoframebackend/media"
	"github.com/camden-git/photoframebackend/models"
	"github.com/camden-git/photoframebackend/workers"
)

const maxUploadBytes = 64 << 20 // 64 MiB

type UploadHandler struct {
	Catalog *gallery.Catalog
	Storage *media.LocalStorage
	Worker  *workers.ImageProcessor
}

func NewUploadHandler(catalog *gallery.Catalog, storage *media.LocalStorage, worker *workers.ImageProcessor) *UploadHandler {
	return &UploadHandler{Catalog: catalog, Storage: storage, Worker: worker}
}

// UploadWarnings carries advisory findings. They never block admission.
type UploadWarnings struct {
	LowResolution bool            `json:"low_resolution"`
	Duplicates    []gallery.Match `json:"duplicates"`
}

type UploadResponse struct {
	Image    models.Image   `json:"image"`
	Warnings UploadWarnings `json:"warnings"`
}

// Upload accepts a multipart image, stores the original, admits it into the
// catalog with its dimensions and perceptual hash, and queues thumbnail
// generation. Duplicate and low-resolution findings come back as warnings.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "could not parse multipart form (is the file too large?)")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "missing 'file' form field")
		return
	}
	defer file.Close()

	originalName := filepath.Base(header.Filename)
	if !media.IsRasterImage(originalName) {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("unsupported file type '%s'", filepath.Ext(originalName)))
		return
	}

	filename := uniqueFilename(originalName)
	path, err := h.Storage.SaveOriginal(filename, file)
	if err != nil {
		log.Printf("handlers: upload: saving %s failed: %v", originalName, err)
		WriteAPIError(w, http.StatusInternalServerError, "storage_failed", "could not store the uploaded file")
		return
	}

	width, height, err := media.Dimensions(path)
	if err != nil {
		// not decodable as an image after all; reject and clean up
		h.Storage.RemoveImage(filename)
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "uploaded file is not a decodable image")
		return
	}

	warnings := UploadWarnings{LowResolution: media.IsLowResolution(width, height)}

	// hash inline so duplicate warnings can ride back on the upload response;
	// a hashing failure is retried by the background worker instead
	var hashStr string
	hash, hashErr := media.ComputePHash(path)
	if hashErr != nil {
		log.Printf("handlers: upload: hashing %s failed, deferring to worker: %v", filename, hashErr)
	} else {
		hashStr = media.FormatPHash(hash)
		matches, err := h.Catalog.FindSimilar(hash, media.DefaultDuplicateThreshold)
		if err != nil {
			log.Printf("handlers: upload: duplicate check for %s failed: %v", filename, err)
		} else {
			warnings.Duplicates = matches
		}
	}
	if warnings.Duplicates == nil {
		warnings.Duplicates = []gallery.Match{}
	}

	uploadedBy := ""
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok && user != nil {
		uploadedBy = user.Username
	}

	img := models.Image{
		Filename:     filename,
		OriginalName: originalName,
		UploadedBy:   uploadedBy,
		UploadedAt:   time.Now(),
		SizeBytes:    header.Size,
		Width:        width,
		Height:       height,
		Enabled:      true,
		PHash:        hashStr,
	}
	if err := h.Catalog.AddImage(img); err != nil {
		h.Storage.RemoveImage(filename)
		writeDomainError(w, err)
		return
	}

	h.Worker.QueueJob(workers.ImageJob{OriginalImagePath: path, Filename: filename, TaskType: workers.TaskThumbnail})
	if hashErr != nil {
		h.Worker.QueueJob(workers.ImageJob{OriginalImagePath: path, Filename: filename, TaskType: workers.TaskPHash})
	}

	stored, err := h.Catalog.GetImage(filename)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, UploadResponse{Image: stored, Warnings: warnings})
}

// uniqueFilename prefixes the sanitized original name with a short random ID
// so repeated uploads of the same file never collide.
func uniqueFilename(originalName string) string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, originalName)
	return uuid.NewString()[:8] + "_" + base
}
