package session

import "testing"

func TestConnectionState_String(t *testing.T) {
	tests := []struct {
		state ConnectionState
		want  string
	}{
		{StateDisconnected, "DISCONNECTED"},
		{StateConnecting, "CONNECTING"},
		{StateConnected, "CONNECTED"},
		{StateReconnecting, "RECONNECTING"},
		{StateFailed, "FAILED"},
		{ConnectionState(42), "UNKNOWN(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestConnectionState_Live(t *testing.T) {
	live := []ConnectionState{StateConnecting, StateConnected, StateReconnecting}
	for _, s := range live {
		if !s.Live() {
			t.Errorf("%s.Live() = false, want true", s)
		}
	}
	dead := []ConnectionState{StateDisconnected, StateFailed}
	for _, s := range dead {
		if s.Live() {
			t.Errorf("%s.Live() = true, want false", s)
		}
	}
}
