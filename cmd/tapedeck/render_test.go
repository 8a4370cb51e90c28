package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/tapedeck/internal/domain"
	"github.com/mmcdole/tapedeck/internal/hierarchy"
	"github.com/mmcdole/tapedeck/internal/log"
)

func newTestHierarchy(t *testing.T) *hierarchy.Hierarchy {
	t.Helper()
	h, err := hierarchy.New(context.Background(), nil, nil, log.NullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestRenderTree(t *testing.T) {
	h := newTestHierarchy(t)

	_, err := h.CreatePlaylistDirectory("Rock")
	require.NoError(t, err)
	_, err = h.CreatePlaylist("Classics", 1, 2)
	require.NoError(t, err)
	_, err = h.CreatePlaylist("Alt", 3)
	require.NoError(t, err)
	_, err = h.CreatePlaylist("Jazz", 4)
	require.NoError(t, err)

	_, err = h.AddPlaylistsToDirectoryByName([]string{"Classics", "Alt"}, "Rock")
	require.NoError(t, err)

	var buf bytes.Buffer
	renderTree(&buf, h, newStyles(false), 0)

	want := "" +
		"Jazz (1 item)\n" +
		"Rock/ (3 items)\n" +
		"├── Alt (1 item)\n" +
		"└── Classics (2 items)\n"
	assert.Equal(t, want, buf.String())
}

func TestRenderTree_Empty(t *testing.T) {
	var buf bytes.Buffer
	renderTree(&buf, newTestHierarchy(t), newStyles(false), 0)
	assert.Equal(t, "no playlists\n", buf.String())
}

func TestRenderList(t *testing.T) {
	h := newTestHierarchy(t)
	for _, name := range []string{"Road Trip", "Workout", "Rainy Day"} {
		_, err := h.CreatePlaylist(name, domain.AudioItemRef(len(name)))
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	renderList(&buf, h, "road", newStyles(false))
	assert.Equal(t, "   1  Road Trip (1 item)\n", buf.String())
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1", "20"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 20}, ids)

	_, err = parseIDs([]string{"x"})
	assert.Error(t, err)
}
