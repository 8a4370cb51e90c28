package hierarchy

import (
	"fmt"

	"github.com/mmcdole/tapedeck/internal/domain"
	"github.com/mmcdole/tapedeck/internal/repository"
)

type batch = repository.Batch[int, *domain.Playlist]

// CreatePlaylist creates a playlist with the given initial items.
func (h *Hierarchy) CreatePlaylist(name string, items ...domain.AudioItemRef) (*domain.Playlist, error) {
	return h.create(name, false, items)
}

// CreatePlaylistDirectory creates a playlist directory with the given
// initial items.
func (h *Hierarchy) CreatePlaylistDirectory(name string, items ...domain.AudioItemRef) (*domain.Playlist, error) {
	return h.create(name, true, items)
}

func (h *Hierarchy) create(name string, isDirectory bool, items []domain.AudioItemRef) (*domain.Playlist, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.names[name]; ok {
		return nil, fmt.Errorf("create %q: %w", name, domain.ErrNameConflict)
	}
	p := domain.NewPlaylist(h.ids.Next(), name, isDirectory, items...)
	if !h.repo.Add(p) {
		return nil, fmt.Errorf("create %q: id %d already taken: %w", name, p.ID(), domain.ErrIllegalState)
	}
	h.names[name] = p.ID()

	h.logger.Info("created playlist", "name", name, "id", p.ID(), "directory", isDirectory, "items", len(items))
	return p, nil
}

// RenamePlaylist renames a playlist, keeping names unique.
func (h *Hierarchy) RenamePlaylist(oldName, newName string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	id, ok := h.names[oldName]
	if !ok {
		return fmt.Errorf("rename %q: %w", oldName, domain.ErrNotFound)
	}
	if oldName == newName {
		return nil
	}
	if _, ok := h.names[newName]; ok {
		return fmt.Errorf("rename %q to %q: %w", oldName, newName, domain.ErrNameConflict)
	}
	h.repo.Update(id, func(p *domain.Playlist) bool { return p.Rename(newName) })
	delete(h.names, oldName)
	h.names[newName] = id

	h.logger.Info("renamed playlist", "id", id, "from", oldName, "to", newName)
	return nil
}

// SetDirectory flips the directory flag of the named playlist. It returns
// false if the playlist is absent or already has that flag.
func (h *Hierarchy) SetDirectory(name string, isDirectory bool) bool {
	return h.updateNamed(name, func(p *domain.Playlist) bool { return p.SetIsDirectory(isDirectory) })
}

// MovePlaylist detaches the named playlist from its current parents and
// makes it a child of destination. Both playlists must exist.
func (h *Hierarchy) MovePlaylist(name, destination string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	id, ok := h.names[name]
	if !ok {
		return fmt.Errorf("move %q: %w", name, domain.ErrNotFound)
	}
	destID, ok := h.names[destination]
	if !ok {
		return fmt.Errorf("move %q to %q: %w", name, destination, domain.ErrNotFound)
	}

	err := h.repo.Batch(func(b *batch) error {
		if wouldCycle(b.Get, destID, id) {
			return fmt.Errorf("move %q to %q: %w", name, destination, domain.ErrCycle)
		}
		for _, parent := range parentsOf(b, id) {
			if parent == destID {
				continue
			}
			b.Update(parent, func(p *domain.Playlist) bool { return p.RemoveChildPlaylists(id) })
		}
		b.Update(destID, func(p *domain.Playlist) bool { return p.AddChildPlaylists(id) })
		return nil
	})
	if err != nil {
		return err
	}

	h.logger.Info("moved playlist", "name", name, "destination", destination)
	return nil
}

// AddPlaylistsToDirectory adds the playlists with the given ids to the
// named directory. Absent ids are ignored; an absent directory is a no-op
// returning false. A change that would create a cycle fails with ErrCycle
// and changes nothing.
func (h *Hierarchy) AddPlaylistsToDirectory(ids []int, directory string) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.addChildren(ids, directory)
}

// AddPlaylistsToDirectoryByName is AddPlaylistsToDirectory with names.
func (h *Hierarchy) AddPlaylistsToDirectoryByName(names []string, directory string) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.addChildren(h.idsOf(names), directory)
}

// AddPlaylistToDirectory adds one named playlist to the named directory.
func (h *Hierarchy) AddPlaylistToDirectory(name, directory string) (bool, error) {
	return h.AddPlaylistsToDirectoryByName([]string{name}, directory)
}

// RemovePlaylistsFromDirectory detaches the given ids from the named
// directory. The playlists stay in the hierarchy.
func (h *Hierarchy) RemovePlaylistsFromDirectory(ids []int, directory string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.removeChildren(ids, directory)
}

// RemovePlaylistsFromDirectoryByName is RemovePlaylistsFromDirectory with names.
func (h *Hierarchy) RemovePlaylistsFromDirectoryByName(names []string, directory string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.removeChildren(h.idsOf(names), directory)
}

// RemovePlaylistFromDirectory detaches one named playlist from the named directory.
func (h *Hierarchy) RemovePlaylistFromDirectory(name, directory string) bool {
	return h.RemovePlaylistsFromDirectoryByName([]string{name}, directory)
}

func (h *Hierarchy) addChildren(ids []int, directory string) (bool, error) {
	dirID, ok := h.names[directory]
	if !ok {
		h.logger.Debug("ignoring add to missing directory", "directory", directory)
		return false, nil
	}

	var changed bool
	err := h.repo.Batch(func(b *batch) error {
		present := make([]int, 0, len(ids))
		for _, id := range ids {
			child, ok := b.Get(id)
			if !ok {
				continue
			}
			if wouldCycle(b.Get, dirID, id) {
				return fmt.Errorf("add %q to %q: %w", child.Name(), directory, domain.ErrCycle)
			}
			present = append(present, id)
		}
		changed = b.Update(dirID, func(p *domain.Playlist) bool { return p.AddChildPlaylists(present...) })
		return nil
	})
	if err != nil {
		return false, err
	}
	if changed {
		h.logger.Debug("added playlists to directory", "directory", directory, "ids", ids)
	}
	return changed, nil
}

func (h *Hierarchy) removeChildren(ids []int, directory string) bool {
	dirID, ok := h.names[directory]
	if !ok {
		h.logger.Debug("ignoring remove from missing directory", "directory", directory)
		return false
	}
	changed := h.repo.Update(dirID, func(p *domain.Playlist) bool { return p.RemoveChildPlaylists(ids...) })
	if changed {
		h.logger.Debug("removed playlists from directory", "directory", directory, "ids", ids)
	}
	return changed
}

// AddAudioItemsToPlaylist appends refs to the named playlist. It returns
// false without changing anything if the playlist is absent, and otherwise
// whether at least one ref was new to the playlist.
func (h *Hierarchy) AddAudioItemsToPlaylist(refs []domain.AudioItemRef, name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	id, ok := h.names[name]
	if !ok {
		h.logger.Debug("ignoring add to missing playlist", "playlist", name)
		return false
	}
	var added bool
	h.repo.Update(id, func(p *domain.Playlist) bool {
		added = p.AddAudioItems(refs...)
		return len(refs) > 0
	})
	return added
}

// RemoveAudioItemsFromPlaylist drops refs from the named playlist. It
// returns false if the playlist is absent or held none of them.
func (h *Hierarchy) RemoveAudioItemsFromPlaylist(refs []domain.AudioItemRef, name string) bool {
	return h.updateNamed(name, func(p *domain.Playlist) bool { return p.RemoveAudioItems(refs...) })
}

// ClearAudioItems empties the named playlist's own items.
func (h *Hierarchy) ClearAudioItems(name string) bool {
	return h.updateNamed(name, func(p *domain.Playlist) bool { return p.ClearAudioItems() })
}

// ClearChildPlaylists detaches every child of the named playlist.
func (h *Hierarchy) ClearChildPlaylists(name string) bool {
	return h.updateNamed(name, func(p *domain.Playlist) bool { return p.ClearChildPlaylists() })
}

// RemoveAudioItems drops refs from every playlist, for when audio items are
// deleted upstream. It returns the number of playlists changed.
func (h *Hierarchy) RemoveAudioItems(refs []domain.AudioItemRef) int {
	if len(refs) == 0 {
		return 0
	}
	n := 0
	h.repo.Batch(func(b *batch) error {
		b.Range(func(p *domain.Playlist) bool {
			if b.Update(p.ID(), func(p *domain.Playlist) bool { return p.RemoveAudioItems(refs...) }) {
				n++
			}
			return true
		})
		return nil
	})
	if n > 0 {
		h.logger.Info("purged audio items", "refs", len(refs), "playlists", n)
	}
	return n
}

// Remove deletes the playlist with the given id and detaches it from every
// parent. Its children stay in the hierarchy.
func (h *Hierarchy) Remove(id int) bool {
	return h.RemoveAll([]int{id}) == 1
}

// RemovePlaylist deletes the named playlist like Remove.
func (h *Hierarchy) RemovePlaylist(name string) bool {
	h.mu.RLock()
	id, ok := h.names[name]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return h.Remove(id)
}

// RemoveAll deletes every present id like Remove and returns how many
// playlists were deleted.
func (h *Hierarchy) RemoveAll(ids []int) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	var removed []*domain.Playlist
	h.repo.Batch(func(b *batch) error {
		for _, id := range ids {
			if _, ok := b.Get(id); !ok {
				continue
			}
			for _, parent := range parentsOf(b, id) {
				b.Update(parent, func(p *domain.Playlist) bool { return p.RemoveChildPlaylists(id) })
			}
			if p, ok := b.Remove(id); ok {
				removed = append(removed, p)
			}
		}
		return nil
	})

	for _, p := range removed {
		delete(h.names, p.Name())
		h.logger.Info("removed playlist", "name", p.Name(), "id", p.ID())
	}
	return len(removed)
}

// Clear removes every playlist.
func (h *Hierarchy) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.repo.Clear()
	h.names = make(map[string]int)
	h.logger.Info("cleared playlist hierarchy")
}

func (h *Hierarchy) updateNamed(name string, fn func(p *domain.Playlist) bool) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	id, ok := h.names[name]
	if !ok {
		h.logger.Debug("ignoring change to missing playlist", "playlist", name)
		return false
	}
	return h.repo.Update(id, fn)
}

// idsOf resolves names, skipping unknown ones. Callers hold h.mu.
func (h *Hierarchy) idsOf(names []string) []int {
	ids := make([]int, 0, len(names))
	for _, name := range names {
		if id, ok := h.names[name]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// parentsOf returns the ids of every playlist holding id as a child.
func parentsOf(b *batch, id int) []int {
	var parents []int
	b.Range(func(p *domain.Playlist) bool {
		if p.HasChild(id) {
			parents = append(parents, p.ID())
		}
		return true
	})
	return parents
}
