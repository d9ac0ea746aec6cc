package broadcast

import (
	"sync"

	"github.com/google/uuid"
)

// recentSet remembers the last capacity event IDs in FIFO order.
type recentSet struct {
	mu    sync.Mutex
	ids   map[uuid.UUID]struct{}
	ring  []uuid.UUID
	next  int
	limit int
}

func newRecentSet(limit int) *recentSet {
	return &recentSet{
		ids:   make(map[uuid.UUID]struct{}, limit),
		ring:  make([]uuid.UUID, limit),
		limit: limit,
	}
}

// add records id and reports whether it was new.
func (s *recentSet) add(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	if old := s.ring[s.next]; old != uuid.Nil {
		delete(s.ids, old)
	}
	s.ring[s.next] = id
	s.ids[id] = struct{}{}
	s.next = (s.next + 1) % s.limit
	return true
}
