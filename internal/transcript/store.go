// Package transcript holds the reconciled view of one meeting's transcript:
// an ordered history of finalized segments plus the currently streaming
// interim segments.
package transcript

import (
	"sort"
	"sync"

	"transcript-sync-service/internal/models"
)

// Store owns the reconciled transcript for one viewing session.
// Thread-safe for concurrent access.
//
// Invariants:
//   - history never contains two entries with the same ID
//   - active never contains a final-status entry
//   - a given ID lives in at most one of {active, history}; finalization
//     moves it from active into history
//
// Applying the same final segment twice leaves history unchanged.
type Store struct {
	mu      sync.RWMutex
	history []models.TranscriptSegment
	active  map[string]models.TranscriptSegment
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		active: make(map[string]models.TranscriptSegment),
	}
}

// Apply merges one accepted segment update into the store.
//
// Final segments displace any interim state and any previously finalized
// entry with the same ID, then insert in history order (call time, then
// capture time, ties by arrival). Interim segments overwrite the active
// entry for their ID. An interim arriving after its ID was already
// finalized is stale and ignored.
func (s *Store) Apply(seg models.TranscriptSegment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seg.IsFinal() {
		delete(s.active, seg.ID)
		s.removeFromHistory(seg.ID)
		s.insertInOrder(seg)
		return
	}

	if s.historyIndex(seg.ID) >= 0 {
		return
	}
	seg.Status = models.StatusInterim
	s.active[seg.ID] = seg
}

// ReplaceAll installs a fresh snapshot, discarding all prior state.
// Used when a connection delivers initial_state. The snapshot is normalized
// to the store invariants: duplicate history IDs collapse to the first
// occurrence, final-status entries never enter the active map, and history
// is re-sorted into canonical order.
func (s *Store) ReplaceAll(history []models.TranscriptSegment, active map[string]models.TranscriptSegment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = s.history[:0]
	seen := make(map[string]bool, len(history))
	for _, seg := range history {
		if seg.ID == "" || seen[seg.ID] {
			continue
		}
		seen[seg.ID] = true
		seg.Status = models.StatusFinal
		s.history = append(s.history, seg)
	}
	sort.SliceStable(s.history, func(i, j int) bool {
		return segmentBefore(s.history[i], s.history[j])
	})

	s.active = make(map[string]models.TranscriptSegment, len(active))
	for id, seg := range active {
		if seg.IsFinal() || seen[id] {
			continue
		}
		if seg.ID == "" {
			seg.ID = id
		}
		seg.Status = models.StatusInterim
		s.active[id] = seg
	}
}

// Reset clears the store. Used when the viewer switches meetings.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.active = make(map[string]models.TranscriptSegment)
}

// History returns a copy of the finalized segments in order.
func (s *Store) History() []models.TranscriptSegment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TranscriptSegment, len(s.history))
	copy(out, s.history)
	return out
}

// Active returns a copy of the in-progress segments keyed by ID.
func (s *Store) Active() map[string]models.TranscriptSegment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.TranscriptSegment, len(s.active))
	for id, seg := range s.active {
		out[id] = seg
	}
	return out
}

// Snapshot returns copies of both history and active in one lock acquisition.
func (s *Store) Snapshot() ([]models.TranscriptSegment, map[string]models.TranscriptSegment) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make([]models.TranscriptSegment, len(s.history))
	copy(history, s.history)
	active := make(map[string]models.TranscriptSegment, len(s.active))
	for id, seg := range s.active {
		active[id] = seg
	}
	return history, active
}

// HistoryLen returns the number of finalized segments.
func (s *Store) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// ActiveLen returns the number of in-progress segments.
func (s *Store) ActiveLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// historyIndex returns the position of id in history, or -1.
// Caller must hold the lock.
func (s *Store) historyIndex(id string) int {
	for i, seg := range s.history {
		if seg.ID == id {
			return i
		}
	}
	return -1
}

// removeFromHistory deletes the entry with id, preserving order.
// Caller must hold the lock.
func (s *Store) removeFromHistory(id string) {
	if i := s.historyIndex(id); i >= 0 {
		s.history = append(s.history[:i], s.history[i+1:]...)
	}
}

// insertInOrder places seg at the first position where the existing entry
// sorts strictly after it, so equal keys keep arrival order.
// Caller must hold the lock.
func (s *Store) insertInOrder(seg models.TranscriptSegment) {
	i := sort.Search(len(s.history), func(i int) bool {
		return segmentBefore(seg, s.history[i])
	})
	s.history = append(s.history, models.TranscriptSegment{})
	copy(s.history[i+1:], s.history[i:])
	s.history[i] = seg
}

// segmentBefore orders segments by call time seconds, then capture time.
// Segments missing a capture time compare equal on that key.
func segmentBefore(a, b models.TranscriptSegment) bool {
	as, bs := a.CallTimeSeconds(), b.CallTimeSeconds()
	if as != bs {
		return as < bs
	}
	if a.CaptureTime != nil && b.CaptureTime != nil {
		return a.CaptureTime.Before(*b.CaptureTime)
	}
	return false
}
