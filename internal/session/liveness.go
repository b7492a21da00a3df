package session

import "sync"

// DefaultMaxMissedHeartbeats is how many unanswered probes are tolerated
// before the connection is considered silently dead.
const DefaultMaxMissedHeartbeats = 3

// livenessTracker counts outstanding heartbeat probes. Each probe sent
// increments the missed count; each acknowledgment resets it. The
// connection is declared dead once the count exceeds the threshold.
type livenessTracker struct {
	mu        sync.Mutex
	missed    int
	threshold int
}

func newLivenessTracker(threshold int) *livenessTracker {
	if threshold < 1 {
		threshold = DefaultMaxMissedHeartbeats
	}
	return &livenessTracker{threshold: threshold}
}

// Probe records an outgoing heartbeat and reports whether the missed count
// now exceeds the threshold.
func (t *livenessTracker) Probe() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.missed++
	return t.missed > t.threshold
}

// Ack records a heartbeat acknowledgment.
func (t *livenessTracker) Ack() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.missed = 0
}

// Missed returns the current count of unanswered probes.
func (t *livenessTracker) Missed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.missed
}

// Reset clears the counter. Called when a connection opens.
func (t *livenessTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.missed = 0
}
