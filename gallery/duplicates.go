package gallery

import (
	"log"
	"sort"

	"github.com/camden-git/photoframebackend/media"
)

// Match is a near-duplicate candidate from the stored catalog.
type Match struct {
	Filename string `json:"filename"`
	Distance int    `json:"distance"`
}

// FindSimilar scans every image with a stored perceptual hash and returns
// those within threshold Hamming bits of the candidate, closest first. The
// result is advisory: upload admission is never blocked on it.
func (c *Catalog) FindSimilar(hash uint64, threshold int) ([]Match, error) {
	d, err := c.snapshot()
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, img := range d.Images {
		if img.PHash == "" {
			continue
		}
		stored, err := media.ParsePHash(img.PHash)
		if err != nil {
			log.Printf("gallery: ignoring unparseable hash on %s: %v", img.Filename, err)
			continue
		}
		if dist := media.HammingDistance(hash, stored); dist <= threshold {
			matches = append(matches, Match{Filename: img.Filename, Distance: dist})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Filename < matches[j].Filename
	})
	return matches, nil
}

// SetImageHash persists a computed hash for a single image. Images deleted
// since the hash was computed are ignored.
func (c *Catalog) SetImageHash(id string, hash uint64) error {
	return c.update(func(d *Data) error {
		img, ok := d.Images[id]
		if !ok {
			return nil
		}
		img.PHash = media.FormatPHash(hash)
		return nil
	})
}

// BackfillResult reports a backfill pass.
type BackfillResult struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// BackfillHashes computes and persists hashes for every image that lacks one.
// Hashing runs outside the store lock; unreadable images are skipped and
// counted rather than aborting the pass.
func (c *Catalog) BackfillHashes(compute func(path string) (uint64, error)) (BackfillResult, error) {
	d, err := c.snapshot()
	if err != nil {
		return BackfillResult{}, err
	}

	var result BackfillResult
	for _, img := range sortedImages(d.Images) {
		if img.PHash != "" {
			continue
		}
		path, err := c.files.OriginalPath(img.Filename)
		if err != nil {
			log.Printf("gallery: backfill: cannot resolve %s: %v", img.Filename, err)
			result.Failed++
			continue
		}
		hash, err := compute(path)
		if err != nil {
			log.Printf("gallery: backfill: hashing %s failed: %v", img.Filename, err)
			result.Failed++
			continue
		}
		if err := c.SetImageHash(img.Filename, hash); err != nil {
			return result, err
		}
		result.Updated++
	}
	return result, nil
}
