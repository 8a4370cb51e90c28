package hierarchy

import (
	"github.com/mmcdole/tapedeck/internal/domain"
)

type getter func(id int) (*domain.Playlist, bool)

// reaches reports whether target is from itself or one of its descendants.
func reaches(get getter, from, target int) bool {
	seen := make(map[int]bool)
	stack := []int{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := get(id); ok {
			stack = append(stack, p.ChildPlaylists()...)
		}
	}
	return false
}

// findCycle reports whether id is one of its own descendants.
func findCycle(get getter, id int) bool {
	p, ok := get(id)
	if !ok {
		return false
	}
	for _, child := range p.ChildPlaylists() {
		if reaches(get, child, id) {
			return true
		}
	}
	return false
}

// wouldCycle reports whether making child a child of parent would create
// a cycle, which is the case when parent is child or one of its descendants.
func wouldCycle(get getter, parent, child int) bool {
	return reaches(get, child, parent)
}

// aggregator computes audioItemsRecursive with memoization: own items
// followed by each child's aggregation, in child order.
type aggregator struct {
	get      getter
	memo     map[int][]domain.AudioItemRef
	visiting map[int]bool
}

func newAggregator(get getter, memo map[int][]domain.AudioItemRef) *aggregator {
	if memo == nil {
		memo = make(map[int][]domain.AudioItemRef)
	}
	return &aggregator{get: get, memo: memo, visiting: make(map[int]bool)}
}

func (a *aggregator) items(id int) []domain.AudioItemRef {
	if items, ok := a.memo[id]; ok {
		return items
	}
	p, ok := a.get(id)
	if !ok || a.visiting[id] {
		return nil
	}
	a.visiting[id] = true
	items := p.AudioItems()
	for _, child := range p.ChildPlaylists() {
		items = append(items, a.items(child)...)
	}
	delete(a.visiting, id)
	a.memo[id] = items
	return items
}
