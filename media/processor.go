package media

import (
	"fmt"
	"image"
	"log"
	"math"

	"github.com/disintegration/imaging"
)

const (
	ThumbnailJpegQuality = 90
)

// Processor handles media transformations like thumbnailing. It relies on a
// LocalStorage for resolving output paths.
type Processor struct {
	store *LocalStorage
}

func NewProcessor(store *LocalStorage) *Processor {
	return &Processor{store: store}
}

// GenerateThumbnail creates a thumbnail where the longest side matches
// maxSize and saves it at the image's thumbnail path. Images already smaller
// than maxSize are re-encoded without scaling.
func (p *Processor) GenerateThumbnail(originalImg image.Image, filename string, maxSize int) (string, error) {
	origBounds := originalImg.Bounds()
	origWidth := origBounds.Dx()
	origHeight := origBounds.Dy()
	if origWidth <= 0 || origHeight <= 0 {
		return "", fmt.Errorf("invalid original image dimensions: %dx%d", origWidth, origHeight)
	}

	var newWidth, newHeight int
	if origWidth > origHeight {
		if origWidth <= maxSize {
			newWidth, newHeight = origWidth, origHeight
		} else {
			newWidth = maxSize
			newHeight = int(math.Round(float64(origHeight) * (float64(maxSize) / float64(origWidth))))
		}
	} else {
		if origHeight <= maxSize {
			newWidth, newHeight = origWidth, origHeight
		} else {
			newHeight = maxSize
			newWidth = int(math.Round(float64(origWidth) * (float64(maxSize) / float64(origHeight))))
		}
	}
	newWidth = max(1, newWidth)
	newHeight = max(1, newHeight)

	thumb := imaging.Resize(originalImg, newWidth, newHeight, imaging.Lanczos)

	thumbPath := p.store.ThumbnailPath(filename)
	if err := imaging.Save(thumb, thumbPath, imaging.JPEGQuality(ThumbnailJpegQuality)); err != nil {
		return "", fmt.Errorf("failed to save thumbnail to '%s': %w", thumbPath, err)
	}

	log.Printf("media.processor: generated thumbnail for %s at %s", filename, thumbPath)
	return thumbPath, nil
}
