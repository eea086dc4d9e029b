package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"voice-quiz-service/internal/config"
)

// NewRouter mounts the turn API, the websocket endpoint and health checks.
func NewRouter(turns *TurnHandler, ws *WSHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Post("/v1/turns", turns.ServeTurn)
	if ws != nil {
		r.Get("/ws", ws.ServeWS)
	}
	return r
}

type errorPayload struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		config.WithContext(r.Context()).WithError(err).Warn("write response")
	}
}
