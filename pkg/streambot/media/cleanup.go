package media

import (
	"os"
	"path/filepath"
	"time"
)

// EnqueueDelete merges names into the deletion queue and attempts an
// immediate best-effort sweep. Anything that survives (permission errors,
// concurrent access) is retried on a fixed cadence until the queue drains;
// once the scratch directory is empty it is removed and the directory handle
// reset. At most one retry timer is pending per process.
func (s *Store) EnqueueDelete(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		if name != "" {
			s.pending[name] = struct{}{}
		}
	}
	s.attemptCleanupLocked()
}

// PendingDeletes returns the number of filenames still queued for removal.
func (s *Store) PendingDeletes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// retryCleanup is the timer callback. It disarms the timer and runs another
// sweep, which re-arms if work remains.
func (s *Store) retryCleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timerArmed = false
	s.attemptCleanupLocked()
}

// attemptCleanupLocked reconciles the queue against the real directory
// listing, deletes what it can, re-arms the timer while anything remains,
// and reclaims the directory once empty. Caller holds the lock.
func (s *Store) attemptCleanupLocked() {
	if s.dir == "" {
		// Nothing was ever fetched; queued names cannot exist.
		s.pending = make(map[string]struct{})
		return
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.pending = make(map[string]struct{})
			s.dir = ""
			return
		}
		s.logger.Warn("cleanup: listing scratch directory failed", "dir", s.dir, "error", err)
		s.armTimerLocked()
		return
	}

	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.Name()] = true
	}

	// Reconcile: names no longer on disk are dropped from the queue.
	for name := range s.pending {
		if !present[name] {
			delete(s.pending, name)
		}
	}

	// Best-effort delete of everything still queued.
	for name := range s.pending {
		path := filepath.Join(s.dir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("cleanup: delete failed, will retry", "file", name, "error", err)
			continue
		}
		delete(s.pending, name)
		delete(present, name)
	}

	if len(s.pending) > 0 {
		s.armTimerLocked()
		return
	}

	// Queue drained. Reclaim the directory when nothing else lives there.
	if len(present) == 0 {
		if err := os.Remove(s.dir); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("cleanup: removing scratch directory failed", "dir", s.dir, "error", err)
			s.armTimerLocked()
			return
		}
		s.logger.Debug("scratch directory reclaimed", "dir", s.dir)
		s.dir = ""
	}
}

// armTimerLocked schedules one retry, guaranteeing at most one pending
// timer. Caller holds the lock.
func (s *Store) armTimerLocked() {
	if s.timerArmed {
		return
	}
	s.timerArmed = true
	time.AfterFunc(s.retryInterval, s.retryCleanup)
}
