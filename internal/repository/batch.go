package repository

import (
	"slices"

	"github.com/mmcdole/tapedeck/internal/entity"
)

// Batch stages mutations inside Repository.Batch. Entities returned by Get
// and Range are the stored values and must not be modified; use Update.
type Batch[K comparable, E entity.Entity[K, E]] struct {
	r      *Repository[K, E]
	events []entity.Event[K, E]
	undo   []func()
}

// Get returns the stored entity with the given id, reflecting changes
// staged so far.
func (b *Batch[K, E]) Get(id K) (E, bool) {
	e, ok := b.r.items[id]
	return e, ok
}

// Range calls fn for every stored entity in insertion order until fn
// returns false.
func (b *Batch[K, E]) Range(fn func(E) bool) {
	for _, id := range slices.Clone(b.r.order) {
		if !fn(b.r.items[id]) {
			return
		}
	}
}

func (b *Batch[K, E]) Len() int { return len(b.r.items) }

func (b *Batch[K, E]) Add(e E) bool {
	id := e.ID()
	if _, ok := b.r.items[id]; ok {
		return false
	}
	b.insert(e.Clone())
	b.emit(entity.KindCreate, e, nil)
	return true
}

func (b *Batch[K, E]) AddOrReplace(e E) {
	id := e.ID()
	prev, ok := b.r.items[id]
	if !ok {
		b.insert(e.Clone())
		b.emit(entity.KindCreate, e, nil)
		return
	}
	b.replace(id, prev, e.Clone())
	b.emit(entity.KindUpdate, e, &prev)
}

// Update applies fn to a working copy of the stored entity and stages the
// copy if fn reports a change.
func (b *Batch[K, E]) Update(id K, fn func(E) bool) bool {
	prev, ok := b.r.items[id]
	if !ok {
		return false
	}
	next := prev.Clone()
	if !fn(next) {
		return false
	}
	b.replace(id, prev, next)
	b.emit(entity.KindUpdate, next, &prev)
	return true
}

func (b *Batch[K, E]) Remove(id K) (E, bool) {
	prev, ok := b.r.items[id]
	if !ok {
		var zero E
		return zero, false
	}
	idx := slices.Index(b.r.order, id)
	delete(b.r.items, id)
	b.r.order = slices.Delete(b.r.order, idx, idx+1)
	b.undo = append(b.undo, func() {
		b.r.items[id] = prev
		b.r.order = slices.Insert(b.r.order, idx, id)
	})
	b.emit(entity.KindDelete, prev, nil)
	return prev, true
}

// Clear removes every entity, staging a single DELETE event.
func (b *Batch[K, E]) Clear() {
	if len(b.r.items) == 0 {
		return
	}
	items, order := b.r.items, b.r.order
	removed := make(map[K]E, len(items))
	for id, e := range items {
		removed[id] = e.Clone()
	}
	b.r.items = make(map[K]E)
	b.r.order = nil
	b.undo = append(b.undo, func() {
		b.r.items, b.r.order = items, order
	})
	b.events = append(b.events, entity.Event[K, E]{Kind: entity.KindDelete, Entities: removed})
}

func (b *Batch[K, E]) insert(e E) {
	id := e.ID()
	b.r.items[id] = e
	b.r.order = append(b.r.order, id)
	b.undo = append(b.undo, func() {
		delete(b.r.items, id)
		if i := slices.Index(b.r.order, id); i >= 0 {
			b.r.order = slices.Delete(b.r.order, i, i+1)
		}
	})
}

func (b *Batch[K, E]) replace(id K, prev, next E) {
	b.r.items[id] = next
	b.undo = append(b.undo, func() { b.r.items[id] = prev })
}

func (b *Batch[K, E]) emit(kind entity.Kind, e E, prev *E) {
	id := e.ID()
	ev := entity.Event[K, E]{Kind: kind, Entities: map[K]E{id: e.Clone()}}
	if prev != nil {
		ev.Previous = map[K]E{id: (*prev).Clone()}
	}
	b.events = append(b.events, ev)
}

func (b *Batch[K, E]) rollback() {
	for i := len(b.undo) - 1; i >= 0; i-- {
		b.undo[i]()
	}
	b.undo = nil
	b.events = nil
}
