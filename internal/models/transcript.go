// Package models defines the data structures for transcript synchronization.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SegmentStatus marks whether an utterance is still streaming or finalized.
type SegmentStatus string

const (
	// StatusInterim - segment is still being produced and may be revised.
	StatusInterim SegmentStatus = "interim"
	// StatusFinal - segment will not be revised further.
	StatusFinal SegmentStatus = "final"
)

// TranscriptSegment is one utterance fragment. The ID is stable across
// successive updates to the same logical utterance.
type TranscriptSegment struct {
	ID          string        `json:"id"`
	Speaker     string        `json:"speaker"`
	Text        string        `json:"text"`
	CallTime    string        `json:"call_time"`
	CaptureTime *time.Time    `json:"capture_time,omitempty"`
	Status      SegmentStatus `json:"status"`
}

// IsFinal reports whether the segment is finalized.
func (s TranscriptSegment) IsFinal() bool {
	return s.Status == StatusFinal
}

// CallTimeSeconds converts the meeting-relative call time marker
// (mm:ss or hh:mm:ss) into whole seconds. Malformed markers sort to zero.
func (s TranscriptSegment) CallTimeSeconds() int {
	secs, err := ParseCallTime(s.CallTime)
	if err != nil {
		return 0
	}
	return secs
}

// ParseCallTime parses a mm:ss or hh:mm:ss duration marker into seconds.
func ParseCallTime(marker string) (int, error) {
	parts := strings.Split(strings.TrimSpace(marker), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("call time %q: expected mm:ss or hh:mm:ss", marker)
	}

	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("call time %q: bad component %q", marker, p)
		}
		total = total*60 + n
	}
	return total, nil
}

// FormatCallTime renders seconds as mm:ss, or hh:mm:ss from one hour up.
func FormatCallTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
