package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/tapedeck/internal/domain"
)

func sampleRecords() map[int]domain.PlaylistRecord {
	return map[int]domain.PlaylistRecord{
		1: {ID: 1, Name: "Rock", IsDirectory: true, AudioItemIDs: []int{}, PlaylistIDs: []int{2}},
		2: {ID: 2, Name: "Classics", AudioItemIDs: []int{10, 11, 10}, PlaylistIDs: []int{}},
		7: {ID: 7, Name: "Jazz", AudioItemIDs: []int{12}, PlaylistIDs: []int{}},
	}
}

func TestPlaylistStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	s, err := NewPlaylistStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, dbFile), s.Path())

	empty, err := s.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.Persist(sampleRecords()))
	require.NoError(t, s.Close())

	reopened, err := NewPlaylistStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)
}

func TestPlaylistStore_PersistReplacesContent(t *testing.T) {
	dir := t.TempDir()
	s, err := NewPlaylistStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Persist(sampleRecords()))

	next := sampleRecords()
	delete(next, 7)
	rec := next[2]
	rec.Name = "Oldies"
	next[2] = rec
	require.NoError(t, s.Persist(next))
	require.NoError(t, s.Close())

	reopened, err := NewPlaylistStore(dir)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, next, got, "read back from disk")
}

func TestPlaylistStore_MemoryOnly(t *testing.T) {
	s, err := NewPlaylistStore("")
	require.NoError(t, err)
	assert.Empty(t, s.Path())

	require.NoError(t, s.Persist(sampleRecords()))
	got, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)

	assert.NoError(t, s.Close())
}

func TestPlaylistStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	s, err := NewPlaylistStore(dir)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, dbFile))
	assert.NoError(t, err)
}
