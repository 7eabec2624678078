package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/photoframebackend/gallery"
)

// ImageServer serves stored originals and thumbnails. Only files tracked in
// the catalog are served, so an orphaned file left by a failed delete can
// never leak through the unauthenticated display surface.
type ImageServer struct {
	Catalog       *gallery.Catalog
	UploadsDir    string
	ThumbnailsDir string
}

func NewImageServer(catalog *gallery.Catalog, uploadsDir, thumbnailsDir string) *ImageServer {
	return &ImageServer{
		Catalog:       catalog,
		UploadsDir:    filepath.Clean(uploadsDir),
		ThumbnailsDir: filepath.Clean(thumbnailsDir),
	}
}

// Original serves the full-size image file.
func (s *ImageServer) Original(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, s.UploadsDir, func(filename string) string { return filename })
}

// Thumbnail serves the generated thumbnail, which is always JPEG.
func (s *ImageServer) Thumbnail(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, s.ThumbnailsDir, func(filename string) string { return filename + ".jpg" })
}

func (s *ImageServer) serve(w http.ResponseWriter, r *http.Request, baseDir string, diskName func(string) string) {
	filename := chi.URLParam(r, "filename")
	if filename == "" || strings.Contains(filename, "..") || strings.ContainsRune(filename, os.PathSeparator) {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid asset path")
		return
	}

	if _, err := s.Catalog.GetImage(filename); err != nil {
		if errors.Is(err, gallery.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		writeDomainError(w, err)
		return
	}

	assetPath := filepath.Clean(filepath.Join(baseDir, diskName(filename)))
	if !strings.HasPrefix(assetPath, baseDir) {
		WriteAPIError(w, http.StatusForbidden, "forbidden", "forbidden")
		log.Printf("SECURITY: attempted asset access outside %s: request='%s', resolved='%s'", baseDir, r.URL.Path, assetPath)
		return
	}

	if _, err := os.Stat(assetPath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	} else if err != nil {
		log.Printf("handlers: error stating asset file %s: %v", assetPath, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	cacheDuration := 24 * time.Hour
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cacheDuration.Seconds())))
	w.Header().Set("Expires", time.Now().Add(cacheDuration).Format(http.TimeFormat))

	http.ServeFile(w, r, assetPath)
}
