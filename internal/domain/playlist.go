package domain

import (
	"slices"
	"strings"
)

// AudioItemRef is an opaque reference to an item owned by the audio-item store.
type AudioItemRef int

// Playlist is a named, ordered collection of audio-item references that may
// also contain other playlists. A Playlist with IsDirectory set is a
// playlist directory.
//
// Playlists are owned by a hierarchy; the mutators below are only meant to be
// called on the hierarchy's working copy inside a repository batch.
type Playlist struct {
	id          int
	name        string
	isDirectory bool
	audioItems  []AudioItemRef
	children    []int // Set of child playlist ids, insertion ordered
}

// NewPlaylist creates a playlist. Ids are assigned by the hierarchy.
func NewPlaylist(id int, name string, isDirectory bool, items ...AudioItemRef) *Playlist {
	return &Playlist{
		id:          id,
		name:        name,
		isDirectory: isDirectory,
		audioItems:  slices.Clone(items),
	}
}

func (p *Playlist) ID() int           { return p.id }
func (p *Playlist) Name() string      { return p.name }
func (p *Playlist) IsDirectory() bool { return p.isDirectory }

// AudioItems returns a copy of the playlist's own items in playback order.
func (p *Playlist) AudioItems() []AudioItemRef { return slices.Clone(p.audioItems) }

// ChildPlaylists returns a copy of the child playlist ids.
func (p *Playlist) ChildPlaylists() []int { return slices.Clone(p.children) }

func (p *Playlist) NumAudioItems() int     { return len(p.audioItems) }
func (p *Playlist) NumChildPlaylists() int { return len(p.children) }

// HasChild reports whether id is one of the playlist's children.
func (p *Playlist) HasChild(id int) bool { return slices.Contains(p.children, id) }

// HasAudioItem reports whether ref appears at least once in the playlist.
func (p *Playlist) HasAudioItem(ref AudioItemRef) bool { return slices.Contains(p.audioItems, ref) }

// Clone returns an independent copy of the playlist.
func (p *Playlist) Clone() *Playlist {
	return &Playlist{
		id:          p.id,
		name:        p.name,
		isDirectory: p.isDirectory,
		audioItems:  slices.Clone(p.audioItems),
		children:    slices.Clone(p.children),
	}
}

// Equal reports whether two playlists hold the same state.
func (p *Playlist) Equal(o *Playlist) bool {
	return p.id == o.id &&
		p.name == o.name &&
		p.isDirectory == o.isDirectory &&
		slices.Equal(p.audioItems, o.audioItems) &&
		slices.Equal(p.children, o.children)
}

// Rename changes the playlist's name. Uniqueness is the hierarchy's concern.
func (p *Playlist) Rename(name string) bool {
	if p.name == name {
		return false
	}
	p.name = name
	return true
}

func (p *Playlist) SetIsDirectory(isDirectory bool) bool {
	if p.isDirectory == isDirectory {
		return false
	}
	p.isDirectory = isDirectory
	return true
}

// AddAudioItems appends every ref, duplicates included. It reports whether
// at least one ref was not already in the playlist.
func (p *Playlist) AddAudioItems(refs ...AudioItemRef) bool {
	added := false
	for _, ref := range refs {
		if !added && !p.HasAudioItem(ref) {
			added = true
		}
		p.audioItems = append(p.audioItems, ref)
	}
	return added
}

// RemoveAudioItems drops every occurrence of the given refs.
func (p *Playlist) RemoveAudioItems(refs ...AudioItemRef) bool {
	if len(refs) == 0 || len(p.audioItems) == 0 {
		return false
	}
	n := len(p.audioItems)
	p.audioItems = slices.DeleteFunc(p.audioItems, func(r AudioItemRef) bool {
		return slices.Contains(refs, r)
	})
	return len(p.audioItems) != n
}

// AddChildPlaylists adds ids not already present. Cycle checks happen in
// the hierarchy before this is called.
func (p *Playlist) AddChildPlaylists(ids ...int) bool {
	changed := false
	for _, id := range ids {
		if id == p.id || slices.Contains(p.children, id) {
			continue
		}
		p.children = append(p.children, id)
		changed = true
	}
	return changed
}

func (p *Playlist) RemoveChildPlaylists(ids ...int) bool {
	if len(ids) == 0 || len(p.children) == 0 {
		return false
	}
	n := len(p.children)
	p.children = slices.DeleteFunc(p.children, func(id int) bool {
		return slices.Contains(ids, id)
	})
	return len(p.children) != n
}

func (p *Playlist) ClearAudioItems() bool {
	if len(p.audioItems) == 0 {
		return false
	}
	p.audioItems = nil
	return true
}

func (p *Playlist) ClearChildPlaylists() bool {
	if len(p.children) == 0 {
		return false
	}
	p.children = nil
	return true
}

// ComparePlaylists orders playlists for display: by name, then by aggregate
// size (children plus recursive audio items), smaller first. aggregate
// returns the recursive item count of a playlist.
func ComparePlaylists(a, b *Playlist, aggregate func(*Playlist) int) int {
	if c := strings.Compare(a.name, b.name); c != 0 {
		return c
	}
	sa, sb := len(a.children), len(b.children)
	if aggregate != nil {
		sa += aggregate(a)
		sb += aggregate(b)
	}
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}
