// Package wire encodes and decodes the JSON frames exchanged over the
// persistent meeting feed connection.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"transcript-sync-service/internal/models"
)

// Inbound frame types.
const (
	TypeInitialState      = "initial_state"
	TypeTranscript        = "transcript"
	TypeTranscriptUpdate  = "transcript_update"
	TypeParticipantUpdate = "participant_update"
	TypeMeetingEnded      = "meeting_ended"
	TypeHeartbeat         = "heartbeat"
	TypeHeartbeatAck      = "heartbeat_ack"
)

// ErrNoPayload indicates a frame that carries no usable payload for the
// requested decode.
var ErrNoPayload = errors.New("frame has no payload")

// Envelope is the outer shape of every inbound frame. Payload fields are
// kept raw until the frame type is known.
type Envelope struct {
	Type         string          `json:"type"`
	Data         json.RawMessage `json:"data,omitempty"`
	Transcript   json.RawMessage `json:"transcript,omitempty"`
	Participants json.RawMessage `json:"participants,omitempty"`
	EndedAt      *time.Time      `json:"ended_at,omitempty"`
}

// Decode parses the outer envelope of an inbound frame.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode frame: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, errors.New("decode frame: missing type")
	}
	return env, nil
}

// InitialState is the full snapshot delivered when a connection opens.
type InitialState struct {
	History      []models.TranscriptSegment
	Active       map[string]models.TranscriptSegment
	Participants []string
}

// InitialState decodes an initial_state payload.
func (e Envelope) InitialState() (InitialState, error) {
	if len(e.Transcript) == 0 {
		return InitialState{}, fmt.Errorf("initial_state: %w", ErrNoPayload)
	}

	var t struct {
		History []models.TranscriptSegment          `json:"history"`
		Active  map[string]models.TranscriptSegment `json:"active_segments"`
	}
	if err := json.Unmarshal(e.Transcript, &t); err != nil {
		return InitialState{}, fmt.Errorf("initial_state transcript: %w", err)
	}

	state := InitialState{History: t.History, Active: t.Active}
	if len(e.Participants) > 0 {
		var p struct {
			Current []string `json:"current_participants"`
		}
		if err := json.Unmarshal(e.Participants, &p); err != nil {
			return InitialState{}, fmt.Errorf("initial_state participants: %w", err)
		}
		state.Participants = p.Current
	}
	return state, nil
}

// SegmentUpdate decodes a transcript / transcript_update payload. Two shapes
// coexist on the wire and both are accepted:
//
//	{"data": {"segment": {...}, "is_final": true}}
//	{"data": {<segment fields>}}
//
// A missing status on the flat shape defaults to interim.
func (e Envelope) SegmentUpdate() (models.TranscriptSegment, error) {
	if len(e.Data) == 0 {
		return models.TranscriptSegment{}, fmt.Errorf("segment update: %w", ErrNoPayload)
	}

	var wrapped struct {
		Segment *models.TranscriptSegment `json:"segment"`
		IsFinal *bool                     `json:"is_final"`
	}
	if err := json.Unmarshal(e.Data, &wrapped); err == nil && wrapped.Segment != nil {
		seg := *wrapped.Segment
		if wrapped.IsFinal != nil {
			if *wrapped.IsFinal {
				seg.Status = models.StatusFinal
			} else {
				seg.Status = models.StatusInterim
			}
		} else if seg.Status == "" {
			seg.Status = models.StatusInterim
		}
		return seg, nil
	}

	var seg models.TranscriptSegment
	if err := json.Unmarshal(e.Data, &seg); err != nil {
		return models.TranscriptSegment{}, fmt.Errorf("segment update: %w", err)
	}
	if seg.Status == "" {
		seg.Status = models.StatusInterim
	}
	return seg, nil
}

// ParticipantUpdate decodes a participant_update payload.
func (e Envelope) ParticipantUpdate() ([]string, error) {
	if len(e.Data) == 0 {
		return nil, fmt.Errorf("participant update: %w", ErrNoPayload)
	}
	var p struct {
		Participants []string `json:"participants"`
	}
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return nil, fmt.Errorf("participant update: %w", err)
	}
	return p.Participants, nil
}

// Heartbeat is the outbound liveness probe.
func Heartbeat() []byte {
	return []byte(`{"type":"heartbeat"}`)
}

// HeartbeatAck is the outbound reply to a server-initiated probe.
func HeartbeatAck() []byte {
	return []byte(`{"type":"heartbeat_ack"}`)
}
