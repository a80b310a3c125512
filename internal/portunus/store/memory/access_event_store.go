package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// AccessEventStore keeps access events in insertion order behind a single
// mutex.  It is the default backend for dev and tests.
type AccessEventStore struct {
	mu     sync.Mutex
	events []types.AccessEvent
	index   map[int64]int      // id -> position in events
	retired map[int64]struct{} // removed or pruned ids
	nextID  int64
}

func NewAccessEventStore() *AccessEventStore {
	return &AccessEventStore{
		index:   make(map[int64]int),
		retired: make(map[int64]struct{}),
		nextID:  1,
	}
}

func (s *AccessEventStore) NextID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	return id, nil
}

func (s *AccessEventStore) Add(_ context.Context, ev types.AccessEvent) (types.AccessEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[ev.ID]; ok {
		return types.AccessEvent{}, fmt.Errorf("Add id=%d: %w", ev.ID, store.ErrDuplicateID)
	}
	if _, ok := s.retired[ev.ID]; ok {
		return types.AccessEvent{}, fmt.Errorf("Add id=%d: %w", ev.ID, store.ErrRetiredID)
	}
	s.index[ev.ID] = len(s.events)
	s.events = append(s.events, ev)

	// Keep NextID ahead of caller-chosen ids.
	if ev.ID >= s.nextID {
		s.nextID = ev.ID + 1
	}
	return ev, nil
}

func (s *AccessEventStore) GetByID(_ context.Context, id int64) (types.AccessEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return types.AccessEvent{}, store.ErrNotFound
	}
	return s.events[pos], nil
}

// ListAll returns a copy of all events in insertion order.
func (s *AccessEventStore) ListAll(_ context.Context) ([]types.AccessEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.AccessEvent, len(s.events))
	copy(out, s.events)
	return out, nil
}

func (s *AccessEventStore) Update(_ context.Context, ev types.AccessEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[ev.ID]
	if !ok {
		return false, nil
	}
	s.events[pos] = ev
	return true, nil
}

func (s *AccessEventStore) Remove(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return false, nil
	}
	s.events = append(s.events[:pos], s.events[pos+1:]...)
	s.retired[id] = struct{}{}
	s.reindexLocked()
	return true, nil
}

func (s *AccessEventStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var deleted int64
	for _, ev := range s.events {
		if ev.Timestamp.Before(cutoff) {
			s.retired[ev.ID] = struct{}{}
			deleted++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	if deleted > 0 {
		s.reindexLocked()
	}
	return deleted, nil
}

func (s *AccessEventStore) reindexLocked() {
	clear(s.index)
	for i, ev := range s.events {
		s.index[ev.ID] = i
	}
}
