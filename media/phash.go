package media

import (
	"fmt"
	"image/color"
	"math/bits"
	"sort"
	"strconv"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/dsp/fourier"
)

// DefaultDuplicateThreshold is the Hamming distance at or below which two
// hashes are reported as likely duplicates.
const DefaultDuplicateThreshold = 10

const phashGridSize = 32
const phashBlockSize = 8

// ComputePHash computes a 64-bit perceptual hash of the image at path.
//
// The image is oriented, grayscaled and downsampled to a 32x32 grid, a 2-D
// DCT-II is applied, and the 8x8 low-frequency block is thresholded against
// its median (DC term excluded) to produce a fingerprint of coarse structure
// rather than pixel values. Identical pixel content always yields an
// identical hash.
func ComputePHash(path string) (uint64, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return 0, fmt.Errorf("failed to open image '%s' for hashing: %w", path, err)
	}

	small := imaging.Grayscale(imaging.Resize(img, phashGridSize, phashGridSize, imaging.Lanczos))

	grid := make([][]float64, phashGridSize)
	for y := 0; y < phashGridSize; y++ {
		grid[y] = make([]float64, phashGridSize)
		for x := 0; x < phashGridSize; x++ {
			c := color.GrayModel.Convert(small.At(x, y)).(color.Gray)
			grid[y][x] = float64(c.Y)
		}
	}

	freq := dct2D(grid)

	// Median of the low-frequency block, excluding the DC term so a large
	// uniform brightness component doesn't dominate the threshold.
	coeffs := make([]float64, 0, phashBlockSize*phashBlockSize-1)
	for y := 0; y < phashBlockSize; y++ {
		for x := 0; x < phashBlockSize; x++ {
			if x == 0 && y == 0 {
				continue
			}
			coeffs = append(coeffs, freq[y][x])
		}
	}
	median := medianOf(coeffs)

	var hash uint64
	for y := 0; y < phashBlockSize; y++ {
		for x := 0; x < phashBlockSize; x++ {
			if freq[y][x] > median {
				hash |= 1 << uint(y*phashBlockSize+x)
			}
		}
	}
	return hash, nil
}

// dct2D applies the DCT-II along rows and then columns of a square grid.
func dct2D(grid [][]float64) [][]float64 {
	n := len(grid)
	dct := fourier.NewDCT(n)

	rows := make([][]float64, n)
	for y := 0; y < n; y++ {
		rows[y] = dct.Transform(nil, grid[y])
	}

	out := make([][]float64, n)
	for y := 0; y < n; y++ {
		out[y] = make([]float64, n)
	}
	col := make([]float64, n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			col[y] = rows[y][x]
		}
		transformed := dct.Transform(nil, col)
		for y := 0; y < n; y++ {
			out[y][x] = transformed[y]
		}
	}
	return out
}

func medianOf(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// HammingDistance counts the differing bits between two hashes.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// FormatPHash renders a hash in the persisted hex form.
func FormatPHash(hash uint64) string {
	return fmt.Sprintf("%016x", hash)
}

// ParsePHash parses the persisted hex form back to a hash.
func ParsePHash(s string) (uint64, error) {
	hash, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid perceptual hash '%s': %w", s, err)
	}
	return hash, nil
}
