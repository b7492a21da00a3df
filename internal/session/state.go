// Package session manages the lifetime of the persistent meeting feed
// connection: dialing, liveness probing, reconnection, and routing of
// inbound frames into the transcript store.
package session

import "fmt"

// ConnectionState represents the lifecycle state of the managed connection.
type ConnectionState int

const (
	// StateDisconnected - no transport and no pending reconnect.
	StateDisconnected ConnectionState = iota
	// StateConnecting - a dial is in flight.
	StateConnecting
	// StateConnected - the transport is open and serving frames.
	StateConnected
	// StateReconnecting - the transport dropped abnormally and a retry
	// is scheduled.
	StateReconnecting
	// StateFailed - the reconnect budget is exhausted. Terminal until an
	// explicit retry resets the budget.
	StateFailed
)

// String returns the string representation of the state.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Live reports whether the state has, or is working toward, an open
// transport.
func (s ConnectionState) Live() bool {
	return s == StateConnecting || s == StateConnected || s == StateReconnecting
}
