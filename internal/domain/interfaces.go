package domain

import "context"

// AudioItemResolver looks up audio items owned by the audio-item store.
// Unknown ids return an error wrapping ErrAudioItemNotFound.
type AudioItemResolver interface {
	Resolve(ctx context.Context, id int) (AudioItemRef, error)
}

// AudioItemResolverFunc adapts a function to AudioItemResolver.
type AudioItemResolverFunc func(ctx context.Context, id int) (AudioItemRef, error)

func (f AudioItemResolverFunc) Resolve(ctx context.Context, id int) (AudioItemRef, error) {
	return f(ctx, id)
}

// PlaylistStore persists the full set of playlist records.
type PlaylistStore interface {
	// Snapshot returns every stored record keyed by id (empty if none)
	Snapshot() (map[int]PlaylistRecord, error)

	// Persist replaces the stored records with snapshot
	Persist(snapshot map[int]PlaylistRecord) error

	Close() error
}
