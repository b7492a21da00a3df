// Package http exposes the reconciled transcript to display and analytics
// consumers over plain request/response endpoints.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"transcript-sync-service/internal/session"
	"transcript-sync-service/internal/stats"
	"transcript-sync-service/internal/transcript"
)

// NewRouter constructs the HTTP router for the service.
func NewRouter(mgr *session.Manager, store *transcript.Store) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/transcript", func(w http.ResponseWriter, _ *http.Request) {
			history, active := store.Snapshot()
			writeJSON(w, map[string]any{
				"history":         history,
				"active_segments": active,
			})
		})

		r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
			history, _ := store.Snapshot()
			writeJSON(w, stats.Estimate(stats.BlocksFromHistory(history)))
		})

		r.Get("/participants", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, map[string]any{
				"current_participants": mgr.Participants(),
			})
		})

		r.Get("/connection", func(w http.ResponseWriter, _ *http.Request) {
			resp := map[string]any{
				"state":          mgr.State().String(),
				"meeting_active": mgr.MeetingActive(),
			}
			if err := mgr.LastError(); err != nil {
				resp["error"] = err.Error()
			}
			writeJSON(w, resp)
		})

		r.Post("/connection/retry", func(w http.ResponseWriter, _ *http.Request) {
			mgr.Retry()
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"status": "retry scheduled"}`))
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}
