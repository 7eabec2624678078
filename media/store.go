package media

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Store defines the interface the catalog uses for the files behind its
// records: saving uploads and removing an image's original plus its thumbnail.
type Store interface {
	// SaveOriginal stores upload data under the given filename and returns
	// the absolute path written.
	SaveOriginal(filename string, data io.Reader) (string, error)
	// OriginalPath resolves the absolute path of a stored original.
	OriginalPath(filename string) (string, error)
	// ThumbnailPath returns the absolute path where the image's thumbnail
	// lives (whether or not it exists yet).
	ThumbnailPath(filename string) string
	// RemoveImage deletes the original and its thumbnail. Missing files are
	// not an error.
	RemoveImage(filename string) error
}

// LocalStorage implements Store on the local filesystem with separate
// subdirectories for originals and generated thumbnails.
type LocalStorage struct {
	basePath   string
	uploadsDir string
	thumbsDir  string
}

// NewLocalStorage creates a local filesystem store rooted at basePath,
// ensuring both subdirectories exist.
func NewLocalStorage(basePath, uploadsSubDir, thumbsSubDir string) (*LocalStorage, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base storage path '%s': %w", basePath, err)
	}

	uploadsDir := filepath.Join(absBasePath, uploadsSubDir)
	thumbsDir := filepath.Join(absBasePath, thumbsSubDir)
	for _, dir := range []string{uploadsDir, thumbsDir} {
		if !strings.HasPrefix(filepath.Clean(dir), absBasePath) {
			return nil, fmt.Errorf("invalid subdirectory configuration: '%s' resolves outside base path '%s'", dir, absBasePath)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory '%s': %w", dir, err)
		}
	}

	log.Printf("media.store: initialized LocalStorage at %s", absBasePath)
	return &LocalStorage{
		basePath:   absBasePath,
		uploadsDir: uploadsDir,
		thumbsDir:  thumbsDir,
	}, nil
}

// UploadsDir returns the absolute originals directory.
func (ls *LocalStorage) UploadsDir() string { return ls.uploadsDir }

// ThumbnailsDir returns the absolute thumbnails directory.
func (ls *LocalStorage) ThumbnailsDir() string { return ls.thumbsDir }

// SaveOriginal writes upload data to the uploads directory. The write goes to
// a temp file first so an interrupted upload never leaves a half-written
// original behind.
func (ls *LocalStorage) SaveOriginal(filename string, data io.Reader) (string, error) {
	fullPath, err := ls.OriginalPath(filename)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(ls.uploadsDir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp upload file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write upload data for '%s': %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to finalize upload for '%s': %w", filename, err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to move upload into place at '%s': %w", fullPath, err)
	}

	log.Printf("media.store: saved original %s", fullPath)
	return fullPath, nil
}

// OriginalPath calculates the absolute path for a stored original and rejects
// names that would escape the uploads directory.
func (ls *LocalStorage) OriginalPath(filename string) (string, error) {
	fullPath := filepath.Join(ls.uploadsDir, filepath.Clean(filename))
	if !strings.HasPrefix(fullPath, ls.uploadsDir) {
		return "", fmt.Errorf("invalid filename: access denied for '%s'", filename)
	}
	return fullPath, nil
}

// ThumbnailPath returns the thumbnail location for an image. Thumbnails are
// always JPEG, keyed by the full original filename to avoid stem collisions.
func (ls *LocalStorage) ThumbnailPath(filename string) string {
	return filepath.Join(ls.thumbsDir, filepath.Base(filename)+".jpg")
}

// RemoveImage deletes the original file and its thumbnail, ignoring files
// that are already gone.
func (ls *LocalStorage) RemoveImage(filename string) error {
	fullPath, err := ls.OriginalPath(filename)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete original '%s': %w", filename, err)
	}
	if err := os.Remove(ls.ThumbnailPath(filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete thumbnail for '%s': %w", filename, err)
	}
	return nil
}
