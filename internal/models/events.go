package models

// SegmentInterim is the export payload for an accepted interim update.
type SegmentInterim struct {
	EventType string `json:"eventType"`
	MeetingID string `json:"meetingId"`
	ViewerID  string `json:"viewerId"`
	Timestamp int64  `json:"timestamp"`
	SegmentID string `json:"segmentId"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
}

// SegmentFinal is the export payload for a segment finalized into history.
type SegmentFinal struct {
	EventType   string `json:"eventType"`
	MeetingID   string `json:"meetingId"`
	ViewerID    string `json:"viewerId"`
	Timestamp   int64  `json:"timestamp"`
	SegmentID   string `json:"segmentId"`
	Speaker     string `json:"speaker"`
	Text        string `json:"text"`
	CallTime    string `json:"callTime"`
	CallTimeSec int    `json:"callTimeSec"`
}
