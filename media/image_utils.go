package media

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// Resolution floor below which an upload is flagged as low quality for a
// 1080p display. Independent of duplicate detection.
const (
	MinDisplayWidth  = 1280
	MinDisplayHeight = 720
)

var supportedImageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true,
}

// IsRasterImage checks if the filename has a supported raster image extension
func IsRasterImage(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedImageExtensions[ext]
}

// Dimensions returns the pixel width and height of an image file as it will
// be rendered, i.e. with the EXIF orientation applied.
func Dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open image '%s': %w", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		// Formats the standard decoders don't know (webp, bmp) go through a
		// full decode instead.
		img, openErr := imaging.Open(path)
		if openErr != nil {
			return 0, 0, fmt.Errorf("failed to decode image '%s': %w", path, openErr)
		}
		bounds := img.Bounds()
		cfg.Width, cfg.Height = bounds.Dx(), bounds.Dy()
	}

	width, height := cfg.Width, cfg.Height
	if orientationSwapsAxes(path) {
		width, height = height, width
	}
	return width, height, nil
}

// orientationSwapsAxes reports whether the EXIF orientation rotates the image
// by 90 or 270 degrees. Files without EXIF data report false.
func orientationSwapsAxes(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	exifData, err := exif.Decode(f)
	if err != nil {
		return false
	}
	tag, err := exifData.Get(exif.Orientation)
	if err != nil || tag == nil {
		return false
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return false
	}
	return orientation >= 5 && orientation <= 8
}

// IsLowResolution reports whether the given dimensions fall below the
// display floor.
func IsLowResolution(width, height int) bool {
	return width < MinDisplayWidth || height < MinDisplayHeight
}
