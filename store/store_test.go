package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string         `json:"name"`
	Count int            `json:"count"`
	Tags  map[string]int `json:"tags"`
}

func newTestStore(t *testing.T) *Store[record] {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "record.json"), func() record {
		return record{Name: "default", Tags: map[string]int{}}
	})
}

func TestLoadMissingReturnsDefault(t *testing.T) {
	s := newTestStore(t)
	v, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "default", v.Name)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	want := record{Name: "photos", Count: 3, Tags: map[string]int{"a": 1, "b": 2}}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadCorruptFallsBackToDefault(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0644))

	v, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "default", v.Name)
}

func TestUpdateMutatorErrorLeavesFileUntouched(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(record{Name: "before", Tags: map[string]int{}}))

	err := s.Update(func(r *record) error {
		r.Name = "after"
		return os.ErrPermission
	})
	require.Error(t, err)

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "before", got.Name)
}

func TestUpdateConcurrentIncrements(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(record{Tags: map[string]int{}}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(func(r *record) error {
				r.Count++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 20, got.Count)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(record{Name: "x", Tags: map[string]int{}}))

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}
