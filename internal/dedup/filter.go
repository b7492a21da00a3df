// Package dedup recognizes repeated transcript deliveries using a bounded
// set of content fingerprints.
package dedup

import (
	"fmt"
	"strings"
	"sync"

	"lukechampine.com/blake3"

	"transcript-sync-service/internal/models"
)

// DefaultCapacity bounds the fingerprint set. When exceeded, the oldest
// half is evicted, an approximation of LRU that keeps bookkeeping cheap.
const DefaultCapacity = 1000

// Verdict is the outcome of checking one incoming segment.
type Verdict int

const (
	// Accepted - the segment carries new information.
	Accepted Verdict = iota
	// RejectedMissingFields - the segment lacks an ID or speaker.
	RejectedMissingFields
	// RejectedDuplicate - the fingerprint was seen before.
	RejectedDuplicate
)

// String returns the string representation of the verdict.
func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case RejectedMissingFields:
		return "missing_fields"
	case RejectedDuplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("unknown(%d)", v)
	}
}

// Filter decides whether an incoming segment update is new information or a
// repeat delivery. The fingerprint keys on (id, text length, speaker): a
// redelivered finalized fragment collides, while an edit or extension of the
// same utterance changes the text length and passes.
//
// Empty-text segments always pass. Interim "still speaking" placeholders
// must reach the store so consumers can show a live indicator.
//
// Thread-safe for concurrent access.
type Filter struct {
	mu       sync.Mutex
	capacity int
	seen     map[[32]byte]struct{}
	order    [][32]byte
}

// NewFilter creates a filter with the default capacity.
func NewFilter() *Filter {
	return NewFilterWithCapacity(DefaultCapacity)
}

// NewFilterWithCapacity creates a filter bounded to the given number of
// fingerprints. Capacities below one fall back to the default.
func NewFilterWithCapacity(capacity int) *Filter {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Filter{
		capacity: capacity,
		seen:     make(map[[32]byte]struct{}, capacity),
	}
}

// Check classifies one incoming segment and records its fingerprint when
// accepted.
func (f *Filter) Check(seg models.TranscriptSegment) Verdict {
	if seg.ID == "" || seg.Speaker == "" {
		return RejectedMissingFields
	}
	if strings.TrimSpace(seg.Text) == "" {
		return Accepted
	}

	key := Fingerprint(seg)

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, dup := f.seen[key]; dup {
		return RejectedDuplicate
	}

	f.seen[key] = struct{}{}
	f.order = append(f.order, key)
	if len(f.order) > f.capacity {
		f.evictOldestHalf()
	}
	return Accepted
}

// Accept reports whether the segment should be applied to the store.
func (f *Filter) Accept(seg models.TranscriptSegment) bool {
	return f.Check(seg) == Accepted
}

// Reset drops all fingerprints. A fresh initial_state snapshot invalidates
// prior fingerprints, so the session resets the filter before applying it.
func (f *Filter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = make(map[[32]byte]struct{}, f.capacity)
	f.order = f.order[:0]
}

// Len returns the number of fingerprints currently held.
func (f *Filter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

// evictOldestHalf drops the older half of the fingerprints in insertion
// order. Caller must hold the lock.
func (f *Filter) evictOldestHalf() {
	cut := len(f.order) / 2
	for _, key := range f.order[:cut] {
		delete(f.seen, key)
	}
	f.order = append(f.order[:0], f.order[cut:]...)
}

// Fingerprint derives the dedup key for a segment.
func Fingerprint(seg models.TranscriptSegment) [32]byte {
	h := blake3.New(32, nil)
	fmt.Fprintf(h, "%s|%d|%s", seg.ID, len(seg.Text), seg.Speaker)
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}
