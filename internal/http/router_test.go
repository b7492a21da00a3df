package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"transcript-sync-service/internal/dedup"
	"transcript-sync-service/internal/events"
	"transcript-sync-service/internal/models"
	"transcript-sync-service/internal/session"
	"transcript-sync-service/internal/transcript"
)

func newTestRouter() (http.Handler, *transcript.Store) {
	store := transcript.NewStore()
	mgr := session.NewManager(session.Config{
		FeedURL:   "ws://localhost:0",
		MeetingID: "m-1",
		ViewerID:  "viewer@test",
	}, store, dedup.NewFilter(), events.New(&events.Config{Enabled: false}))
	return NewRouter(mgr, store), store
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	h, _ := newTestRouter()

	for _, path := range []string{"/v1/liveness", "/v1/readiness"} {
		if rec := get(t, h, path); rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestRouter_Transcript(t *testing.T) {
	h, store := newTestRouter()
	store.Apply(models.TranscriptSegment{
		ID: "u1", Speaker: "Alice", Text: "hello",
		CallTime: "00:05", Status: models.StatusFinal,
	})
	store.Apply(models.TranscriptSegment{
		ID: "u2", Speaker: "Bob", Text: "so",
		CallTime: "00:09", Status: models.StatusInterim,
	})

	rec := get(t, h, "/v1/transcript")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/transcript = %d, want 200", rec.Code)
	}

	var body struct {
		History []models.TranscriptSegment          `json:"history"`
		Active  map[string]models.TranscriptSegment `json:"active_segments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.History) != 1 || body.History[0].ID != "u1" {
		t.Errorf("history = %+v, want [u1]", body.History)
	}
	if len(body.Active) != 1 || body.Active["u2"].Speaker != "Bob" {
		t.Errorf("active = %+v, want u2 by Bob", body.Active)
	}
}

func TestRouter_Stats(t *testing.T) {
	h, store := newTestRouter()
	store.Apply(models.TranscriptSegment{
		ID: "u1", Speaker: "Alice", Text: "a longer opening remark",
		CallTime: "00:05", Status: models.StatusFinal,
	})
	store.Apply(models.TranscriptSegment{
		ID: "u2", Speaker: "Bob", Text: "ack",
		CallTime: "00:30", Status: models.StatusFinal,
	})

	rec := get(t, h, "/v1/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/stats = %d, want 200", rec.Code)
	}

	var body struct {
		SpeakerStats []struct {
			Speaker      string  `json:"speaker"`
			TotalSeconds float64 `json:"total_seconds"`
			Percent      int     `json:"percent"`
		} `json:"speaker_stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.SpeakerStats) != 2 {
		t.Fatalf("speaker stats = %+v, want 2 speakers", body.SpeakerStats)
	}
}

func TestRouter_Connection(t *testing.T) {
	h, _ := newTestRouter()

	rec := get(t, h, "/v1/connection")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/connection = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["state"] != "DISCONNECTED" {
		t.Errorf("state = %v, want DISCONNECTED before Connect", body["state"])
	}
}

func TestRouter_RetryAccepted(t *testing.T) {
	h, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/connection/retry", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Errorf("POST /v1/connection/retry = %d, want 202", rec.Code)
	}
}
