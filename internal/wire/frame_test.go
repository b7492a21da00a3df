package wire

import (
	"testing"

	"transcript-sync-service/internal/models"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		want    string
	}{
		{"heartbeat", `{"type":"heartbeat"}`, false, TypeHeartbeat},
		{"transcript update", `{"type":"transcript_update","data":{}}`, false, TypeTranscriptUpdate},
		{"missing type", `{"data":{}}`, true, ""},
		{"not json", `{nope`, true, ""},
		{"empty", ``, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Decode([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && env.Type != tt.want {
				t.Errorf("Type = %q, want %q", env.Type, tt.want)
			}
		})
	}
}

func TestEnvelope_SegmentUpdate_WrappedShape(t *testing.T) {
	raw := `{
		"type": "transcript_update",
		"data": {
			"segment": {"id": "u7", "speaker": "Alice", "text": "hello world", "call_time": "01:02"},
			"is_final": true
		}
	}`
	env, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	seg, err := env.SegmentUpdate()
	if err != nil {
		t.Fatalf("SegmentUpdate() error = %v", err)
	}
	if seg.ID != "u7" || seg.Speaker != "Alice" {
		t.Errorf("segment = %+v, want u7/Alice", seg)
	}
	if seg.Status != models.StatusFinal {
		t.Errorf("status = %s, want final (is_final wins)", seg.Status)
	}
}

func TestEnvelope_SegmentUpdate_WrappedInterim(t *testing.T) {
	raw := `{"type":"transcript","data":{"segment":{"id":"u8","speaker":"Bob","text":"so","call_time":"01:05","status":"final"},"is_final":false}}`
	env, _ := Decode([]byte(raw))

	seg, err := env.SegmentUpdate()
	if err != nil {
		t.Fatalf("SegmentUpdate() error = %v", err)
	}
	if seg.Status != models.StatusInterim {
		t.Errorf("status = %s, want interim (explicit is_final overrides)", seg.Status)
	}
}

func TestEnvelope_SegmentUpdate_FlatShape(t *testing.T) {
	raw := `{"type":"transcript_update","data":{"id":"u9","speaker":"Carol","text":"right","call_time":"02:10","status":"final"}}`
	env, _ := Decode([]byte(raw))

	seg, err := env.SegmentUpdate()
	if err != nil {
		t.Fatalf("SegmentUpdate() error = %v", err)
	}
	if seg.ID != "u9" || !seg.IsFinal() {
		t.Errorf("segment = %+v, want final u9", seg)
	}
}

func TestEnvelope_SegmentUpdate_FlatDefaultsToInterim(t *testing.T) {
	raw := `{"type":"transcript_update","data":{"id":"u10","speaker":"Dana","text":"um","call_time":"02:15"}}`
	env, _ := Decode([]byte(raw))

	seg, err := env.SegmentUpdate()
	if err != nil {
		t.Fatalf("SegmentUpdate() error = %v", err)
	}
	if seg.Status != models.StatusInterim {
		t.Errorf("status = %s, want interim default", seg.Status)
	}
}

func TestEnvelope_SegmentUpdate_NoPayload(t *testing.T) {
	env, _ := Decode([]byte(`{"type":"transcript_update"}`))
	if _, err := env.SegmentUpdate(); err == nil {
		t.Error("expected error for missing payload")
	}
}

func TestEnvelope_InitialState(t *testing.T) {
	raw := `{
		"type": "initial_state",
		"transcript": {
			"history": [
				{"id": "u1", "speaker": "Alice", "text": "hi", "call_time": "00:05", "status": "final"}
			],
			"active_segments": {
				"u2": {"id": "u2", "speaker": "Bob", "text": "so", "call_time": "00:09", "status": "interim"}
			}
		},
		"participants": {"current_participants": ["Alice", "Bob"]}
	}`
	env, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	state, err := env.InitialState()
	if err != nil {
		t.Fatalf("InitialState() error = %v", err)
	}
	if len(state.History) != 1 || state.History[0].ID != "u1" {
		t.Errorf("history = %+v, want single u1", state.History)
	}
	if len(state.Active) != 1 || state.Active["u2"].Speaker != "Bob" {
		t.Errorf("active = %+v, want u2 by Bob", state.Active)
	}
	if len(state.Participants) != 2 {
		t.Errorf("participants = %v, want 2", state.Participants)
	}
}

func TestEnvelope_InitialState_MissingTranscript(t *testing.T) {
	env, _ := Decode([]byte(`{"type":"initial_state"}`))
	if _, err := env.InitialState(); err == nil {
		t.Error("expected error for missing transcript payload")
	}
}

func TestEnvelope_ParticipantUpdate(t *testing.T) {
	env, _ := Decode([]byte(`{"type":"participant_update","data":{"participants":["Alice","Eve"]}}`))

	got, err := env.ParticipantUpdate()
	if err != nil {
		t.Fatalf("ParticipantUpdate() error = %v", err)
	}
	if len(got) != 2 || got[1] != "Eve" {
		t.Errorf("participants = %v, want [Alice Eve]", got)
	}
}

func TestOutboundFrames(t *testing.T) {
	if env, err := Decode(Heartbeat()); err != nil || env.Type != TypeHeartbeat {
		t.Errorf("Heartbeat() does not round-trip: type=%q err=%v", env.Type, err)
	}
	if env, err := Decode(HeartbeatAck()); err != nil || env.Type != TypeHeartbeatAck {
		t.Errorf("HeartbeatAck() does not round-trip: type=%q err=%v", env.Type, err)
	}
}
