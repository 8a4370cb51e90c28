// Package hierarchy organizes playlists and playlist directories into a
// containment graph with globally unique names and no cycles.
package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/mmcdole/tapedeck/internal/domain"
	"github.com/mmcdole/tapedeck/internal/entity"
	"github.com/mmcdole/tapedeck/internal/repository"
)

// Repo is the repository type backing a hierarchy.
type Repo = repository.Repository[int, *domain.Playlist]

// Event is a playlist change notification.
type Event = entity.Event[int, *domain.Playlist]

// Hierarchy is a playlist repository that enforces unique names and
// acyclic containment. Containment is many-to-many: a playlist may be a
// child of several directories.
//
// Lock order is h.mu, then the repository lock.
type Hierarchy struct {
	mu    sync.RWMutex   // Guards names; held across repository batches
	names map[string]int // Playlist name -> id

	repo   *Repo
	ids    *entity.IDSequence
	logger *slog.Logger

	cacheMu      sync.Mutex
	cacheVersion uint64
	recursive    map[int][]domain.AudioItemRef
}

// New creates a hierarchy. store may be nil for a memory-only hierarchy.
// When store holds records, every audio item id is resolved through
// resolver and every child id must name a stored playlist; construction
// fails without producing a partially wired hierarchy otherwise.
func New(ctx context.Context, store domain.PlaylistStore, resolver domain.AudioItemResolver, logger *slog.Logger) (*Hierarchy, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var records map[int]domain.PlaylistRecord
	if store != nil {
		var err error
		records, err = store.Snapshot()
		if err != nil {
			return nil, fmt.Errorf("failed to read playlist snapshot: %w", err)
		}
	}
	if len(records) > 0 && resolver == nil {
		return nil, fmt.Errorf("%d stored playlists but no audio item resolver: %w", len(records), domain.ErrIllegalState)
	}

	opts := repository.Options[int, *domain.Playlist]{Logger: logger}
	if store != nil {
		opts.Persister = recordPersister{store: store}
	}
	repo, err := repository.New(opts)
	if err != nil {
		return nil, err
	}

	h := &Hierarchy{
		names:     make(map[string]int),
		repo:      repo,
		ids:       entity.NewIDSequence(1),
		logger:    logger,
		recursive: make(map[int][]domain.AudioItemRef),
	}

	if len(records) > 0 {
		if err := h.load(ctx, records, resolver); err != nil {
			repo.Close()
			return nil, err
		}
		logger.Info("loaded playlist hierarchy", "count", len(records))
	}
	return h, nil
}

// load wires stored records into the repository in two passes: audio
// items first, then child playlist ids are checked against the loaded set. Events stay muted until both passes
// have completed.
func (h *Hierarchy) load(ctx context.Context, records map[int]domain.PlaylistRecord, resolver domain.AudioItemResolver) error {
	return h.repo.Silently(func() error {
		ids := slices.Sorted(maps.Keys(records))
		playlists := make(map[int]*domain.Playlist, len(records))
		names := make(map[string]int, len(records))

		for _, id := range ids {
			rec := records[id]
			if rec.ID != id {
				return fmt.Errorf("record keyed %d carries id %d: %w", id, rec.ID, domain.ErrIllegalState)
			}
			if other, ok := names[rec.Name]; ok {
				return fmt.Errorf("playlists %d and %d are both named %q: %w", other, id, rec.Name, domain.ErrNameConflict)
			}
			names[rec.Name] = id

			refs := make([]domain.AudioItemRef, 0, len(rec.AudioItemIDs))
			for _, itemID := range rec.AudioItemIDs {
				ref, err := resolver.Resolve(ctx, itemID)
				if err != nil {
					if !errors.Is(err, domain.ErrAudioItemNotFound) {
						err = fmt.Errorf("%w: %w", domain.ErrAudioItemNotFound, err)
					}
					return fmt.Errorf("playlist %q: audio item %d: %w", rec.Name, itemID, err)
				}
				refs = append(refs, ref)
			}
			playlists[id] = domain.FromRecord(rec, refs)
		}

		for _, id := range ids {
			rec := records[id]
			for _, childID := range rec.PlaylistIDs {
				if _, ok := playlists[childID]; !ok {
					return fmt.Errorf("playlist %q: child %d: %w", rec.Name, childID, domain.ErrChildNotFound)
				}
				if childID == id {
					return fmt.Errorf("playlist %q lists itself as a child: %w", rec.Name, domain.ErrCycle)
				}
			}
		}

		get := func(id int) (*domain.Playlist, bool) {
			p, ok := playlists[id]
			return p, ok
		}
		for _, id := range ids {
			if findCycle(get, id) {
				return fmt.Errorf("playlist %q: %w", records[id].Name, domain.ErrCycle)
			}
		}

		loaded := make([]*domain.Playlist, 0, len(ids))
		for _, id := range ids {
			loaded = append(loaded, playlists[id])
			h.ids.Observe(id)
		}
		h.repo.Load(loaded)
		h.names = names
		return nil
	})
}

// Subscribe registers sub for the given event kinds.
func (h *Hierarchy) Subscribe(sub entity.Subscriber[int, *domain.Playlist], kinds ...entity.Kind) *entity.Subscription[int, *domain.Playlist] {
	return h.repo.Subscribe(sub, kinds...)
}

// SubscribeChan registers a channel-backed subscription.
func (h *Hierarchy) SubscribeChan(buffer int, kinds ...entity.Kind) (<-chan Event, *entity.Subscription[int, *domain.Playlist]) {
	return h.repo.SubscribeChan(buffer, kinds...)
}

// Announce publishes a READ event carrying every playlist.
func (h *Hierarchy) Announce() { h.repo.Announce() }

// Flush waits for pending persistence writes.
func (h *Hierarchy) Flush() error { return h.repo.Flush() }

// Close flushes pending writes and completes every subscription. The store
// passed to New stays open; it belongs to the caller.
func (h *Hierarchy) Close() error { return h.repo.Close() }

// Records returns the persisted shape of every playlist keyed by id.
func (h *Hierarchy) Records() map[int]domain.PlaylistRecord {
	return domain.Records(h.repo.Snapshot())
}

// NextID returns the id the next created playlist will receive.
func (h *Hierarchy) NextID() int { return h.ids.Peek() }

type recordPersister struct {
	store domain.PlaylistStore
}

func (p recordPersister) Persist(snapshot map[int]*domain.Playlist) error {
	return p.store.Persist(domain.Records(snapshot))
}
