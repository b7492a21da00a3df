package session

import "time"

// ReconnectPolicy decides whether, when, and how many times the transport
// is re-established after an abnormal close. One canonical policy applies
// to every reconnect path; the attempt counter is owned by the Manager and
// reset whenever the connection intent is renewed.
type ReconnectPolicy struct {
	BaseDelay   time.Duration
	Cap         time.Duration
	MaxAttempts int
}

// DefaultReconnectPolicy returns the canonical backoff parameters.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		BaseDelay:   1 * time.Second,
		Cap:         30 * time.Second,
		MaxAttempts: 5,
	}
}

// Delay returns the backoff before the given zero-based attempt:
// min(BaseDelay * 2^attempt, Cap).
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Shifting past 30 bits would overflow any sane base delay.
	if attempt > 30 {
		return p.Cap
	}
	d := p.BaseDelay << uint(attempt)
	if d <= 0 || d > p.Cap {
		return p.Cap
	}
	return d
}

// Exhausted reports whether the zero-based attempt is past the budget.
func (p ReconnectPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}
