package session

import (
	"testing"
	"time"
)

func TestReconnectPolicy_Delay(t *testing.T) {
	p := DefaultReconnectPolicy()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second}, // 32s clamped to the cap
		{10, 30 * time.Second},
		{100, 30 * time.Second}, // shift overflow guard
		{-1, 1 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestReconnectPolicy_DelayNonDecreasing(t *testing.T) {
	p := DefaultReconnectPolicy()

	prev := time.Duration(0)
	for attempt := 0; attempt < 20; attempt++ {
		d := p.Delay(attempt)
		if d < prev {
			t.Fatalf("Delay(%d) = %v decreased from %v", attempt, d, prev)
		}
		if d > p.Cap {
			t.Fatalf("Delay(%d) = %v exceeds cap %v", attempt, d, p.Cap)
		}
		prev = d
	}
}

func TestReconnectPolicy_Exhausted(t *testing.T) {
	p := DefaultReconnectPolicy()

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if p.Exhausted(attempt) {
			t.Errorf("Exhausted(%d) = true, want false", attempt)
		}
	}
	if !p.Exhausted(p.MaxAttempts) {
		t.Errorf("Exhausted(%d) = false, want true", p.MaxAttempts)
	}
	if !p.Exhausted(p.MaxAttempts + 1) {
		t.Errorf("Exhausted(%d) = false, want true", p.MaxAttempts+1)
	}
}
