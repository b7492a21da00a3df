// feedserver simulates the meeting feed for local runs. It serves the
// websocket endpoint, sends an initial_state snapshot, then replays
// scripted utterances as progressive interim updates followed by exactly
// one final per utterance, and participates in the heartbeat protocol.
//
// The -drop-after flag closes the socket abnormally mid-stream, which is
// handy for exercising the viewer's reconnection path by hand.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"transcript-sync-service/internal/models"
	"transcript-sync-service/internal/wire"
)

// ScriptedUtterance is one utterance with progressive interim texts.
type ScriptedUtterance struct {
	Speaker  string
	Partials []string
	Final    string
}

// script is the replayed meeting. Each utterance produces len(Partials)
// interim updates and one final, all sharing a segment ID.
var script = []ScriptedUtterance{
	{
		Speaker:  "Alice",
		Partials: []string{"Okay let's", "Okay let's get", "Okay let's get started"},
		Final:    "Okay let's get started with the roadmap review",
	},
	{
		Speaker:  "Bob",
		Partials: []string{"I think", "I think the launch"},
		Final:    "I think the launch date is still realistic",
	},
	{
		Speaker:  "Alice",
		Partials: []string{"Agreed but", "Agreed but we need"},
		Final:    "Agreed but we need the QA signoff first",
	},
	{
		Speaker:  "Carol",
		Partials: []string{"QA is", "QA is on track"},
		Final:    "QA is on track for end of the week",
	},
}

var participants = []string{"Alice", "Bob", "Carol"}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	pace := flag.Duration("pace", 800*time.Millisecond, "delay between updates")
	dropAfter := flag.Int("drop-after", 0, "abnormally close after N updates (0 = never)")
	endMeeting := flag.Bool("end-meeting", false, "send meeting_ended after the script")
	flag.Parse()

	upgrader := websocket.Upgrader{}

	http.HandleFunc("/ws/meetings/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/transcript") {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade failed: %v", err)
			return
		}
		viewer := r.URL.Query().Get("viewer")
		log.Printf("viewer connected: %s (%s)", viewer, r.URL.Path)
		go answerFrames(conn)
		replay(conn, *pace, *dropAfter, *endMeeting)
	})

	log.Printf("feedserver listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

// answerFrames handles the inbound side: heartbeat probes get an ack.
func answerFrames(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := wire.Decode(raw)
		if err != nil {
			continue
		}
		if env.Type == wire.TypeHeartbeat {
			if err := conn.WriteMessage(websocket.TextMessage, wire.HeartbeatAck()); err != nil {
				return
			}
		}
	}
}

func replay(conn *websocket.Conn, pace time.Duration, dropAfter int, endMeeting bool) {
	send := func(v any) bool {
		payload, err := json.Marshal(v)
		if err != nil {
			log.Printf("marshal failed: %v", err)
			return false
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return false
		}
		return true
	}

	if !send(map[string]any{
		"type": wire.TypeInitialState,
		"transcript": map[string]any{
			"history":         []models.TranscriptSegment{},
			"active_segments": map[string]models.TranscriptSegment{},
		},
		"participants": map[string]any{
			"current_participants": participants,
		},
	}) {
		return
	}

	sent := 0
	callSec := 0
	for i, u := range script {
		id := fmt.Sprintf("seg-%d", i+1)
		for _, partial := range u.Partials {
			now := time.Now().UTC()
			if !send(map[string]any{
				"type": wire.TypeTranscriptUpdate,
				"data": map[string]any{
					"segment": models.TranscriptSegment{
						ID:          id,
						Speaker:     u.Speaker,
						Text:        partial,
						CallTime:    models.FormatCallTime(callSec),
						CaptureTime: &now,
					},
					"is_final": false,
				},
			}) {
				return
			}
			sent++
			if dropAfter > 0 && sent >= dropAfter {
				log.Printf("dropping connection abnormally after %d updates", sent)
				conn.Close()
				return
			}
			time.Sleep(pace)
		}

		// Alternate payload shapes so both decode paths stay exercised.
		now := time.Now().UTC()
		final := models.TranscriptSegment{
			ID:          id,
			Speaker:     u.Speaker,
			Text:        u.Final,
			CallTime:    models.FormatCallTime(callSec),
			CaptureTime: &now,
			Status:      models.StatusFinal,
		}
		var frame map[string]any
		if i%2 == 0 {
			frame = map[string]any{
				"type": wire.TypeTranscript,
				"data": map[string]any{"segment": final, "is_final": true},
			}
		} else {
			frame = map[string]any{"type": wire.TypeTranscript, "data": final}
		}
		if !send(frame) {
			return
		}
		sent++
		callSec += 4
		time.Sleep(pace)
	}

	if endMeeting {
		send(map[string]any{"type": wire.TypeMeetingEnded})
		time.Sleep(pace)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "meeting ended"))
		conn.Close()
		return
	}

	// Leave the connection open; answerFrames keeps serving heartbeats.
	log.Printf("script finished, connection stays open")
}
