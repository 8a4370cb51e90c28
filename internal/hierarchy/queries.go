package hierarchy

import (
	"iter"
	"slices"

	"github.com/mmcdole/tapedeck/internal/domain"
	"github.com/mmcdole/tapedeck/internal/repository"
	"github.com/mmcdole/tapedeck/internal/search"
)

type reader = repository.Reader[int, *domain.Playlist]

// FindByID returns a copy of the playlist with the given id.
func (h *Hierarchy) FindByID(id int) (*domain.Playlist, bool) {
	return h.repo.FindByID(id)
}

// FindByName returns a copy of the playlist with the given name.
func (h *Hierarchy) FindByName(name string) (*domain.Playlist, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	id, ok := h.names[name]
	if !ok {
		return nil, false
	}
	return h.repo.FindByID(id)
}

// FindParentPlaylist returns the first playlist, in insertion order, that
// holds p as a child.
func (h *Hierarchy) FindParentPlaylist(p *domain.Playlist) (*domain.Playlist, bool) {
	if p == nil {
		return nil, false
	}
	for parent := range h.repo.Search(func(q *domain.Playlist) bool { return q.HasChild(p.ID()) }) {
		return parent, true
	}
	return nil, false
}

// Parents returns every playlist holding id as a child, in insertion order.
func (h *Hierarchy) Parents(id int) []*domain.Playlist {
	return slices.Collect(h.repo.Search(func(q *domain.Playlist) bool { return q.HasChild(id) }))
}

// Roots returns the playlists that are nobody's child, in insertion order.
func (h *Hierarchy) Roots() []*domain.Playlist {
	var roots []*domain.Playlist
	h.repo.View(func(rd reader) {
		children := make(map[int]bool)
		rd.Range(func(p *domain.Playlist) bool {
			for _, id := range p.ChildPlaylists() {
				children[id] = true
			}
			return true
		})
		rd.Range(func(p *domain.Playlist) bool {
			if !children[p.ID()] {
				roots = append(roots, p.Clone())
			}
			return true
		})
	})
	return roots
}

// Search lazily yields copies of the playlists satisfying pred.
func (h *Hierarchy) Search(pred func(*domain.Playlist) bool) iter.Seq[*domain.Playlist] {
	return h.repo.Search(pred)
}

// Contains reports whether any playlist satisfies pred.
func (h *Hierarchy) Contains(pred func(*domain.Playlist) bool) bool {
	return h.repo.Contains(pred)
}

// RunForAll calls fn with a copy of every playlist in insertion order.
func (h *Hierarchy) RunForAll(fn func(*domain.Playlist)) {
	h.repo.RunForAll(fn)
}

// Playlists returns every playlist in display order: by name, then by
// aggregate size.
func (h *Hierarchy) Playlists() []*domain.Playlist {
	var (
		out   []*domain.Playlist
		sizes = make(map[int]int)
	)
	h.repo.View(func(rd reader) {
		h.withAggregator(rd, func(agg *aggregator) {
			rd.Range(func(p *domain.Playlist) bool {
				out = append(out, p.Clone())
				sizes[p.ID()] = len(agg.items(p.ID()))
				return true
			})
		})
	})
	aggregate := func(p *domain.Playlist) int { return sizes[p.ID()] }
	slices.SortStableFunc(out, func(a, b *domain.Playlist) int {
		return domain.ComparePlaylists(a, b, aggregate)
	})
	return out
}

// SearchByName ranks playlists whose names fuzzily match query, best first.
func (h *Hierarchy) SearchByName(query string) []*domain.Playlist {
	h.mu.RLock()
	names := make([]string, 0, len(h.names))
	for name := range h.names {
		names = append(names, name)
	}
	h.mu.RUnlock()

	var out []*domain.Playlist
	for _, name := range search.RankNames(query, names) {
		if p, ok := h.FindByName(name); ok {
			out = append(out, p)
		}
	}
	return out
}

// AudioItemsRecursive returns the playlist's own items followed by the
// recursive items of each child, in child order. Results are cached until
// the next committed change.
func (h *Hierarchy) AudioItemsRecursive(id int) ([]domain.AudioItemRef, bool) {
	var (
		items []domain.AudioItemRef
		found bool
	)
	h.repo.View(func(rd reader) {
		if _, found = rd.Get(id); !found {
			return
		}
		h.withAggregator(rd, func(agg *aggregator) {
			items = slices.Clone(agg.items(id))
		})
	})
	return items, found
}

// AudioItemsRecursiveByName is AudioItemsRecursive for a named playlist.
func (h *Hierarchy) AudioItemsRecursiveByName(name string) ([]domain.AudioItemRef, bool) {
	h.mu.RLock()
	id, ok := h.names[name]
	h.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return h.AudioItemsRecursive(id)
}

// withAggregator runs fn with an aggregator over the shared cache, dropping
// the cache first if the repository changed since it was filled.
func (h *Hierarchy) withAggregator(rd reader, fn func(agg *aggregator)) {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()
	if h.cacheVersion != rd.Version() {
		h.recursive = make(map[int][]domain.AudioItemRef)
		h.cacheVersion = rd.Version()
	}
	fn(newAggregator(rd.Get, h.recursive))
}

func (h *Hierarchy) Size() int { return h.repo.Size() }

func (h *Hierarchy) IsEmpty() bool { return h.repo.IsEmpty() }

// NumberOfPlaylists counts the playlists that are not directories.
func (h *Hierarchy) NumberOfPlaylists() int {
	return h.count(func(p *domain.Playlist) bool { return !p.IsDirectory() })
}

// NumberOfPlaylistDirectories counts the playlist directories.
func (h *Hierarchy) NumberOfPlaylistDirectories() int {
	return h.count(func(p *domain.Playlist) bool { return p.IsDirectory() })
}

func (h *Hierarchy) count(pred func(*domain.Playlist) bool) int {
	n := 0
	h.repo.View(func(rd reader) {
		rd.Range(func(p *domain.Playlist) bool {
			if pred(p) {
				n++
			}
			return true
		})
	})
	return n
}
