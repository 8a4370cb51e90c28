// Package repository provides a keyed, in-memory entity collection that
// publishes change events and optionally persists every committed snapshot.
package repository

import (
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"

	"github.com/mmcdole/tapedeck/internal/entity"
)

// Persister receives the full collection after every committed mutation.
type Persister[K comparable, E any] interface {
	Persist(snapshot map[K]E) error
}

// Snapshotter is implemented by persisters that can restore a collection.
type Snapshotter[K comparable, E any] interface {
	Snapshot() (map[K]E, error)
}

// Options configures a Repository.
type Options[K comparable, E any] struct {
	// Persister is optional. If it also implements Snapshotter, the
	// repository starts with the snapshot's content.
	Persister Persister[K, E]
	Logger    *slog.Logger

	// Order sorts restored ids into insertion order. When nil, restored
	// entities follow the snapshot map's iteration order, which Go leaves
	// unspecified.
	Order func(a, b K) int
}

// Repository is a keyed collection of entities of one type.
//
// Stored entities are never modified in place: every update replaces the
// stored value with a modified clone, and every value handed out is a clone.
// A single RWMutex guards the collection so that a mutation and the events
// it publishes are observed atomically.
type Repository[K comparable, E entity.Entity[K, E]] struct {
	mu      sync.RWMutex
	items   map[K]E
	order   []K
	version uint64

	pub    *entity.Publisher[K, E]
	writer *writer[K, E]
	logger *slog.Logger
}

// New creates a repository.
func New[K comparable, E entity.Entity[K, E]](opts Options[K, E]) (*Repository[K, E], error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Repository[K, E]{
		items:  make(map[K]E),
		pub:    entity.NewPublisher[K, E](logger),
		logger: logger,
	}

	if opts.Persister != nil {
		if s, ok := opts.Persister.(Snapshotter[K, E]); ok {
			snapshot, err := s.Snapshot()
			if err != nil {
				return nil, fmt.Errorf("failed to restore snapshot: %w", err)
			}
			for id, e := range snapshot {
				r.items[id] = e.Clone()
				r.order = append(r.order, id)
			}
			if opts.Order != nil {
				slices.SortFunc(r.order, opts.Order)
			}
			logger.Debug("restored repository", "count", len(snapshot))
		}
		r.writer = newWriter(opts.Persister, logger)
	}

	return r, nil
}

// === Mutations ===

// Add inserts e. It reports false, changing nothing, if e's id is taken.
func (r *Repository[K, E]) Add(e E) bool {
	var added bool
	r.Batch(func(b *Batch[K, E]) error {
		added = b.Add(e)
		return nil
	})
	return added
}

// AddOrReplace inserts e or overwrites the entity with the same id.
func (r *Repository[K, E]) AddOrReplace(e E) {
	r.Batch(func(b *Batch[K, E]) error {
		b.AddOrReplace(e)
		return nil
	})
}

// AddOrReplaceAll is the batch form of AddOrReplace. One event is published
// per changed entity.
func (r *Repository[K, E]) AddOrReplaceAll(es []E) {
	r.Batch(func(b *Batch[K, E]) error {
		for _, e := range es {
			b.AddOrReplace(e)
		}
		return nil
	})
}

// Update applies fn to a working copy of the entity with the given id and
// commits it if fn reports a change. It returns false if id is absent or
// nothing changed.
func (r *Repository[K, E]) Update(id K, fn func(E) bool) bool {
	var changed bool
	r.Batch(func(b *Batch[K, E]) error {
		changed = b.Update(id, fn)
		return nil
	})
	return changed
}

// Remove deletes the entity with the given id, if present.
func (r *Repository[K, E]) Remove(id K) bool {
	var removed bool
	r.Batch(func(b *Batch[K, E]) error {
		_, removed = b.Remove(id)
		return nil
	})
	return removed
}

// RemoveAll deletes every present id, publishing one DELETE per entity.
func (r *Repository[K, E]) RemoveAll(ids []K) int {
	n := 0
	r.Batch(func(b *Batch[K, E]) error {
		for _, id := range ids {
			if _, ok := b.Remove(id); ok {
				n++
			}
		}
		return nil
	})
	return n
}

// Clear removes everything and publishes a single DELETE event.
func (r *Repository[K, E]) Clear() {
	r.Batch(func(b *Batch[K, E]) error {
		b.Clear()
		return nil
	})
}

// Batch runs fn with exclusive access and commits everything it staged as
// one unit: events are published in staging order and a single snapshot is
// persisted. If fn returns an error or panics, every staged change is rolled
// back and nothing is published.
func (r *Repository[K, E]) Batch(fn func(b *Batch[K, E]) error) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := &Batch[K, E]{r: r}
	defer func() {
		if p := recover(); p != nil {
			b.rollback()
			panic(p)
		}
	}()

	if err := fn(b); err != nil {
		b.rollback()
		return err
	}
	r.commit(b)
	return nil
}

// Load inserts entities without publishing events or persisting. It is
// meant for restoring state, not for changes.
func (r *Repository[K, E]) Load(es []E) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range es {
		id := e.ID()
		if _, ok := r.items[id]; !ok {
			r.order = append(r.order, id)
		}
		r.items[id] = e.Clone()
	}
	r.version++
}

func (r *Repository[K, E]) commit(b *Batch[K, E]) {
	if len(b.events) == 0 {
		return
	}
	r.version++
	for _, ev := range b.events {
		r.pub.Publish(ev)
	}
	if r.writer != nil {
		r.writer.submit(r.snapshotLocked())
	}
}

// === Reads ===

// FindByID returns a copy of the entity with the given id.
func (r *Repository[K, E]) FindByID(id K) (E, bool) {
	r.mu.RLock()
	e, ok := r.items[id]
	r.mu.RUnlock()
	if !ok {
		var zero E
		return zero, false
	}
	return e.Clone(), true
}

// Contains reports whether any entity satisfies pred.
func (r *Repository[K, E]) Contains(pred func(E) bool) bool {
	for range r.Search(pred) {
		return true
	}
	return false
}

// Search lazily yields copies of the entities satisfying pred, in insertion
// order. The sequence reflects the collection as of the moment iteration
// starts; stopping early skips the remaining work.
func (r *Repository[K, E]) Search(pred func(E) bool) iter.Seq[E] {
	return func(yield func(E) bool) {
		for _, e := range r.entries() {
			c := e.Clone()
			if pred != nil && !pred(c) {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// RunForAll calls fn with a copy of every entity in insertion order.
func (r *Repository[K, E]) RunForAll(fn func(E)) {
	for e := range r.Search(nil) {
		fn(e)
	}
}

// All returns copies of every entity in insertion order.
func (r *Repository[K, E]) All() []E {
	return slices.Collect(r.Search(nil))
}

// Snapshot returns copies of every entity keyed by id.
func (r *Repository[K, E]) Snapshot() map[K]E {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Repository[K, E]) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *Repository[K, E]) IsEmpty() bool { return r.Size() == 0 }

// Version increases with every committed change.
func (r *Repository[K, E]) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// View runs fn with shared access to the stored entities. fn must not
// modify them or call mutating methods of the repository.
func (r *Repository[K, E]) View(fn func(rd Reader[K, E])) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(Reader[K, E]{r: r})
}

// Reader is read access to the stored entities inside View.
type Reader[K comparable, E entity.Entity[K, E]] struct {
	r *Repository[K, E]
}

func (rd Reader[K, E]) Get(id K) (E, bool) {
	e, ok := rd.r.items[id]
	return e, ok
}

// Range calls fn for every entity in insertion order until fn returns false.
func (rd Reader[K, E]) Range(fn func(E) bool) {
	for _, id := range rd.r.order {
		if !fn(rd.r.items[id]) {
			return
		}
	}
}

func (rd Reader[K, E]) Len() int        { return len(rd.r.items) }
func (rd Reader[K, E]) Version() uint64 { return rd.r.version }

func (r *Repository[K, E]) entries() []E {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]E, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out
}

func (r *Repository[K, E]) snapshotLocked() map[K]E {
	snap := make(map[K]E, len(r.items))
	for id, e := range r.items {
		snap[id] = e.Clone()
	}
	return snap
}

// === Events ===

// Subscribe registers sub for the given event kinds.
func (r *Repository[K, E]) Subscribe(sub entity.Subscriber[K, E], kinds ...entity.Kind) *entity.Subscription[K, E] {
	return r.pub.Subscribe(sub, kinds...)
}

// SubscribeChan registers a channel-backed subscription.
func (r *Repository[K, E]) SubscribeChan(buffer int, kinds ...entity.Kind) (<-chan entity.Event[K, E], *entity.Subscription[K, E]) {
	return r.pub.SubscribeChan(buffer, kinds...)
}

// Announce publishes a READ event carrying every entity, letting new
// subscribers seed their view from the event stream.
func (r *Repository[K, E]) Announce() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.pub.Publish(entity.Event[K, E]{Kind: entity.KindRead, Entities: r.snapshotLocked()})
}

// Silently runs fn with event publication muted.
func (r *Repository[K, E]) Silently(fn func() error) error {
	r.pub.Mute()
	defer r.pub.Unmute()
	return fn()
}

// === Lifecycle ===

// Flush blocks until every committed snapshot has been handed to the
// persister and returns the most recent persistence error, if any.
func (r *Repository[K, E]) Flush() error {
	if r.writer == nil {
		return nil
	}
	return r.writer.flush()
}

// Close flushes pending writes, stops the writer and completes every
// subscription.
func (r *Repository[K, E]) Close() error {
	var err error
	if r.writer != nil {
		err = r.writer.close()
	}
	r.pub.Close()
	return err
}
