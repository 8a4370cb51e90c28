// Package entity defines identity and change notification for repository entities.
package entity

import (
	"sync"
)

// Entity is a record with a stable identifier that can produce an
// independent copy of itself.
type Entity[K comparable, E any] interface {
	ID() K
	Clone() E
}

// IDSequence hands out process-lifetime unique integer ids.
// Ids are never reused, even after the entity holding one is deleted.
type IDSequence struct {
	mu   sync.Mutex
	next int
}

// NewIDSequence creates a sequence whose first id is start.
func NewIDSequence(start int) *IDSequence {
	return &IDSequence{next: start}
}

// Next returns the next unused id.
func (s *IDSequence) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	return id
}

// Observe moves the sequence past id so restored entities keep their ids.
func (s *IDSequence) Observe(id int) {
	s.mu.Lock()
	if id >= s.next {
		s.next = id + 1
	}
	s.mu.Unlock()
}

// Peek returns the id the next call to Next will return.
func (s *IDSequence) Peek() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
