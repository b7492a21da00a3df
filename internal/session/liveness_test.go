package session

import "testing"

func TestLivenessTracker_TriggersPastThreshold(t *testing.T) {
	tr := newLivenessTracker(3)

	// The first three unanswered probes are tolerated.
	for i := 1; i <= 3; i++ {
		if tr.Probe() {
			t.Fatalf("probe %d triggered, want tolerance up to threshold", i)
		}
	}
	if !tr.Probe() {
		t.Error("probe 4 did not trigger, want dead connection declared")
	}
}

func TestLivenessTracker_AckResetsCount(t *testing.T) {
	tr := newLivenessTracker(3)

	tr.Probe()
	tr.Probe()
	if got := tr.Missed(); got != 2 {
		t.Fatalf("Missed() = %d, want 2", got)
	}

	tr.Ack()
	if got := tr.Missed(); got != 0 {
		t.Errorf("Missed() after ack = %d, want 0", got)
	}

	// A full round of tolerance is available again.
	for i := 1; i <= 3; i++ {
		if tr.Probe() {
			t.Fatalf("probe %d after ack triggered, want tolerance restored", i)
		}
	}
}

func TestLivenessTracker_Reset(t *testing.T) {
	tr := newLivenessTracker(3)
	tr.Probe()
	tr.Probe()
	tr.Probe()

	tr.Reset()
	if got := tr.Missed(); got != 0 {
		t.Errorf("Missed() after reset = %d, want 0", got)
	}
}

func TestNewLivenessTracker_DefaultsInvalidThreshold(t *testing.T) {
	tr := newLivenessTracker(0)
	if tr.threshold != DefaultMaxMissedHeartbeats {
		t.Errorf("threshold = %d, want %d", tr.threshold, DefaultMaxMissedHeartbeats)
	}
}
