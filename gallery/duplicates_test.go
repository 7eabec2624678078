package gallery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/photoframebackend/media"
)

// hashAtDistance flips the lowest n bits of base.
func hashAtDistance(base uint64, n int) uint64 {
	var mask uint64
	for i := 0; i < n; i++ {
		mask |= 1 << uint(i)
	}
	return base ^ mask
}

func TestFindSimilarReturnsNearMatchesSorted(t *testing.T) {
	cat, _ := newTestCatalog(t)
	const base = uint64(0xa5a5a5a5a5a5a5a5)

	addImages(t, cat, "a.jpg", "b.jpg", "c.jpg")
	require.NoError(t, cat.SetImageHash("a.jpg", base))
	require.NoError(t, cat.SetImageHash("b.jpg", hashAtDistance(base, 8)))
	require.NoError(t, cat.SetImageHash("c.jpg", hashAtDistance(base, 40)))

	matches, err := cat.FindSimilar(base, media.DefaultDuplicateThreshold)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, Match{Filename: "a.jpg", Distance: 0}, matches[0])
	assert.Equal(t, Match{Filename: "b.jpg", Distance: 8}, matches[1])
}

func TestFindSimilarFarHashReturnsNothing(t *testing.T) {
	cat, _ := newTestCatalog(t)
	const base = uint64(0xffff0000ffff0000)

	addImages(t, cat, "a.jpg")
	require.NoError(t, cat.SetImageHash("a.jpg", base))

	matches, err := cat.FindSimilar(hashAtDistance(base, 40), media.DefaultDuplicateThreshold)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFindSimilarSkipsUnhashedImages(t *testing.T) {
	cat, _ := newTestCatalog(t)
	addImages(t, cat, "a.jpg", "b.jpg")
	require.NoError(t, cat.SetImageHash("a.jpg", 42))

	matches, err := cat.FindSimilar(42, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a.jpg", matches[0].Filename)
}

func TestFindSimilarThresholdZeroExactOnly(t *testing.T) {
	cat, _ := newTestCatalog(t)
	const base = uint64(0x0123456789abcdef)

	addImages(t, cat, "a.jpg", "b.jpg")
	require.NoError(t, cat.SetImageHash("a.jpg", base))
	require.NoError(t, cat.SetImageHash("b.jpg", hashAtDistance(base, 1)))

	matches, err := cat.FindSimilar(base, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Distance)
}

func TestSetImageHashIgnoresDeletedImage(t *testing.T) {
	cat, _ := newTestCatalog(t)
	assert.NoError(t, cat.SetImageHash("ghost.jpg", 99))
}

func TestBackfillHashesOnlyMissing(t *testing.T) {
	cat, _ := newTestCatalog(t)
	addImages(t, cat, "a.jpg", "b.jpg", "c.jpg")
	require.NoError(t, cat.SetImageHash("a.jpg", 1))

	var computed []string
	result, err := cat.BackfillHashes(func(path string) (uint64, error) {
		computed = append(computed, path)
		return 77, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, computed, 2)

	img, err := cat.GetImage("b.jpg")
	require.NoError(t, err)
	assert.Equal(t, media.FormatPHash(77), img.PHash)
}

func TestBackfillCountsFailuresWithoutAborting(t *testing.T) {
	cat, _ := newTestCatalog(t)
	addImages(t, cat, "bad.jpg", "good.jpg")

	result, err := cat.BackfillHashes(func(path string) (uint64, error) {
		if path == "/uploads/bad.jpg" {
			return 0, errors.New("unreadable")
		}
		return 5, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Failed)
}

func TestBackfillSkipsExisting(t *testing.T) {
	cat, _ := newTestCatalog(t)
	addImages(t, cat, "a.jpg")
	require.NoError(t, cat.SetImageHash("a.jpg", 1))

	result, err := cat.BackfillHashes(func(path string) (uint64, error) {
		t.Fatalf("compute should not be called for %s", path)
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Updated)
}
