package domain

// PlaylistRecord is the persisted shape of a playlist.
type PlaylistRecord struct {
	ID           int    `json:"id"`
	IsDirectory  bool   `json:"isDirectory"`
	Name         string `json:"name"`
	AudioItemIDs []int  `json:"audioItemIds"`
	PlaylistIDs  []int  `json:"playlistIds"`
}

// Record converts the playlist to its persisted shape.
func (p *Playlist) Record() PlaylistRecord {
	rec := PlaylistRecord{
		ID:           p.id,
		IsDirectory:  p.isDirectory,
		Name:         p.name,
		AudioItemIDs: make([]int, len(p.audioItems)),
		PlaylistIDs:  make([]int, len(p.children)),
	}
	for i, ref := range p.audioItems {
		rec.AudioItemIDs[i] = int(ref)
	}
	copy(rec.PlaylistIDs, p.children)
	return rec
}

// FromRecord rebuilds a playlist from its persisted shape. refs are the
// resolved audio items of rec.AudioItemIDs, in the same order. Child ids are
// taken as they are; checking that they exist is the caller's concern.
func FromRecord(rec PlaylistRecord, refs []AudioItemRef) *Playlist {
	p := NewPlaylist(rec.ID, rec.Name, rec.IsDirectory, refs...)
	p.AddChildPlaylists(rec.PlaylistIDs...)
	return p
}

// Records converts a snapshot keyed by id to records keyed by id.
func Records(snapshot map[int]*Playlist) map[int]PlaylistRecord {
	out := make(map[int]PlaylistRecord, len(snapshot))
	for id, p := range snapshot {
		out[id] = p.Record()
	}
	return out
}
