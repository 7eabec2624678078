package media

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestImage saves a generated image and returns its path.
func writeTestImage(t *testing.T, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, imaging.Save(img, path))
	return path
}

func solidImage(w, h int, c color.NRGBA) image.Image {
	return imaging.New(w, h, c)
}

func gradientImage(w, h int) image.Image {
	img := imaging.New(w, h, color.NRGBA{0, 0, 0, 255})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x * 255) / w)
			img.Set(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	return img
}

func checkerImage(w, h, cell int) image.Image {
	img := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if ((x/cell)+(y/cell))%2 == 0 {
				img.Set(x, y, color.NRGBA{0, 0, 0, 255})
			}
		}
	}
	return img
}

func TestIdenticalContentSameHash(t *testing.T) {
	a := writeTestImage(t, "a.png", gradientImage(200, 150))
	b := writeTestImage(t, "b.png", gradientImage(200, 150))

	hashA, err := ComputePHash(a)
	require.NoError(t, err)
	hashB, err := ComputePHash(b)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
	assert.Equal(t, 0, HammingDistance(hashA, hashB))
}

func TestHashAgainstItselfIsZero(t *testing.T) {
	path := writeTestImage(t, "a.png", checkerImage(160, 160, 20))
	hash, err := ComputePHash(path)
	require.NoError(t, err)
	assert.Equal(t, 0, HammingDistance(hash, hash))
}

func TestSimilarImagesLowDistance(t *testing.T) {
	a := writeTestImage(t, "a.png", solidImage(200, 200, color.NRGBA{255, 0, 0, 255}))
	b := writeTestImage(t, "b.png", solidImage(200, 200, color.NRGBA{255, 16, 16, 255}))

	hashA, err := ComputePHash(a)
	require.NoError(t, err)
	hashB, err := ComputePHash(b)
	require.NoError(t, err)

	assert.LessOrEqual(t, HammingDistance(hashA, hashB), DefaultDuplicateThreshold)
}

func TestStructurallyDifferentImagesDiffer(t *testing.T) {
	a := writeTestImage(t, "a.png", gradientImage(200, 200))
	b := writeTestImage(t, "b.png", checkerImage(200, 200, 50))

	hashA, err := ComputePHash(a)
	require.NoError(t, err)
	hashB, err := ComputePHash(b)
	require.NoError(t, err)

	assert.NotEqual(t, hashA, hashB)
	assert.Greater(t, HammingDistance(hashA, hashB), 0)
}

func TestFormatParseRoundTrip(t *testing.T) {
	const hash = uint64(0xdeadbeefcafe0123)
	parsed, err := ParsePHash(FormatPHash(hash))
	require.NoError(t, err)
	assert.Equal(t, hash, parsed)
}

func TestParsePHashRejectsGarbage(t *testing.T) {
	_, err := ParsePHash("not-a-hash")
	assert.Error(t, err)
}

func TestIsLowResolution(t *testing.T) {
	assert.True(t, IsLowResolution(640, 480))
	assert.True(t, IsLowResolution(1920, 600))
	assert.False(t, IsLowResolution(1280, 720))
	assert.False(t, IsLowResolution(3840, 2160))
}

func TestComputePHashUnreadableFile(t *testing.T) {
	_, err := ComputePHash(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
