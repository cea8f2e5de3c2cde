package dispatch

import "sync"

// defaultSeenCap bounds the duplicate-suppression set. The original design
// grew without bound over process lifetime; evicting the oldest ids keeps
// memory flat while still catching the duplicates streams actually produce,
// which arrive close together.
const defaultSeenCap = 8192

// seenSet is a fixed-capacity set of event ids with FIFO eviction.
type seenSet struct {
	mu    sync.Mutex
	ids   map[string]struct{}
	order []string
	cap   int
}

func newSeenSet(capacity int) *seenSet {
	if capacity <= 0 {
		capacity = defaultSeenCap
	}
	return &seenSet{
		ids: make(map[string]struct{}, capacity),
		cap: capacity,
	}
}

// MarkSeen records an id, returning true if it was already present.
func (s *seenSet) MarkSeen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return true
	}
	if len(s.order) >= s.cap {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.ids, oldest)
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
	return false
}

// Len returns the current number of tracked ids.
func (s *seenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
