package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"voice-quiz-service/internal/config"
	"voice-quiz-service/internal/domain"
)

// TurnService is the quiz use case consumed by the transports.
type TurnService interface {
	HandleTurn(ctx context.Context, req domain.TurnRequest) (domain.Reply, error)
}

type TurnHandler struct {
	service TurnService
}

func NewTurnHandler(service TurnService) *TurnHandler {
	return &TurnHandler{service: service}
}

type turnRequest struct {
	UserID  string         `json:"userId"`
	Intent  string         `json:"intent"`
	Answer  string         `json:"answer"`
	Session domain.Payload `json:"session"`
}

// ServeTurn decodes one normalized voice request and runs it.
func (h *TurnHandler) ServeTurn(w http.ResponseWriter, r *http.Request) {
	log := config.WithContext(r.Context())

	var body turnRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.WithError(err).Warn("invalid turn body")
		writeJSON(w, r, http.StatusBadRequest, errorPayload{Message: "invalid request body"})
		return
	}

	req, err := toTurnRequest(body)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorPayload{Message: err.Error()})
		return
	}

	reply, err := h.service.HandleTurn(r.Context(), req)
	if err != nil {
		status, message := turnError(err)
		if status >= http.StatusInternalServerError {
			log.WithError(err).WithField("user_id", req.UserID).Error("turn failed")
		}
		writeJSON(w, r, status, errorPayload{Message: message})
		return
	}
	writeJSON(w, r, http.StatusOK, reply)
}

func toTurnRequest(body turnRequest) (domain.TurnRequest, error) {
	if body.UserID == "" {
		return domain.TurnRequest{}, domain.ErrMissingUser
	}
	intent, ok := domain.ParseIntent(body.Intent)
	if !ok {
		// An answer slot with no intent is an answer.
		if body.Intent != "" || body.Answer == "" {
			return domain.TurnRequest{}, domain.ErrUnknownIntent
		}
		intent = domain.IntentAnswer
	}
	return domain.TurnRequest{
		UserID:  body.UserID,
		Intent:  intent,
		Answer:  body.Answer,
		Session: body.Session,
	}, nil
}

// turnError maps turn failures to a status and a message safe to show.
func turnError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrMissingUser), errors.Is(err, domain.ErrUnknownIntent):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "session storage unavailable, please try again"
	default:
		return http.StatusInternalServerError, "something went wrong, please try again"
	}
}
