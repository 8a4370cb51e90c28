// Package catalog provides an in-memory audio item catalog that resolves
// audio item ids for a playlist hierarchy.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/mmcdole/tapedeck/internal/domain"
)

// Catalog is a fixed set of known audio item ids.
type Catalog struct {
	mu  sync.RWMutex
	ids map[int]struct{}
}

// New creates a catalog holding ids.
func New(ids ...int) *Catalog {
	c := &Catalog{ids: make(map[int]struct{}, len(ids))}
	c.Add(ids...)
	return c
}

// FromRecords creates a catalog holding every audio item id referenced by
// records, plus extra.
func FromRecords(records map[int]domain.PlaylistRecord, extra ...int) *Catalog {
	c := New(extra...)
	for _, rec := range records {
		c.Add(rec.AudioItemIDs...)
	}
	return c
}

// Add registers ids.
func (c *Catalog) Add(ids ...int) {
	c.mu.Lock()
	for _, id := range ids {
		c.ids[id] = struct{}{}
	}
	c.mu.Unlock()
}

// Resolve implements domain.AudioItemResolver.
func (c *Catalog) Resolve(ctx context.Context, id int) (domain.AudioItemRef, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.RLock()
	_, ok := c.ids[id]
	c.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("id %d: %w", id, domain.ErrAudioItemNotFound)
	}
	return domain.AudioItemRef(id), nil
}

// Len reports how many ids are known.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}
