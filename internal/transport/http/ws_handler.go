package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"voice-quiz-service/internal/config"
)

// WSHandler runs quiz turns over a websocket: one inbound message, one turn.
type WSHandler struct {
	service  TurnService
	upgrader websocket.Upgrader
}

func NewWSHandler(service TurnService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wsTurnPayload struct {
	Intent string `json:"intent"`
	Answer string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type helloPayload struct {
	UserID string `json:"userId"`
}

// ServeWS upgrades the request and serves turns until the client leaves.
// Without a userId query parameter the connection gets a fresh anonymous id.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	log := config.WithContext(r.Context())

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = "anon-" + uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// single writer; gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Warn("ws write error")
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "hello", Payload: helloPayload{UserID: userID}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if inbound.Type != "turn" {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
			continue
		}

		var payload wsTurnPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid turn payload"}}
			continue
		}
		req, err := toTurnRequest(turnRequest{UserID: userID, Intent: payload.Intent, Answer: payload.Answer})
		if err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			continue
		}

		reply, err := h.service.HandleTurn(r.Context(), req)
		if err != nil {
			status, message := turnError(err)
			if status >= http.StatusInternalServerError {
				log.WithError(err).WithField("user_id", userID).Error("turn failed")
			}
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
			continue
		}
		send <- outboundMessage[any]{Type: "reply", Payload: reply}
	}

	close(send)
	<-writerDone
}
