package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"voice-quiz-service/internal/app"
	"voice-quiz-service/internal/domain"
	"voice-quiz-service/internal/infra/memory"
)

func sampleCatalog() []domain.Question {
	return []domain.Question{
		{ID: "q1", Text: "The sky is blue.", Kind: domain.KindBoolean, Answer: domain.LabelTrue},
		{
			ID:      "q2",
			Text:    "Pick the even number.",
			Kind:    domain.KindMultipleChoice,
			Choices: []domain.Choice{{Label: "A", Text: "three"}, {Label: "B", Text: "four"}},
			Answer:  "B",
		},
	}
}

func newTestService() *app.QuizService {
	log := logrus.New()
	log.SetOutput(io.Discard)
	banks := memory.NewBankCache(memory.NewStaticCatalogLoader(sampleCatalog()), 0)
	return app.NewQuizService(memory.NewSessionStore(), banks, app.Settings{Name: "Test Quiz"}, log)
}

type failingService struct {
	err error
}

func (f failingService) HandleTurn(context.Context, domain.TurnRequest) (domain.Reply, error) {
	return domain.Reply{}, f.err
}

func postTurn(t *testing.T, server *httptest.Server, body any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(server.URL+"/v1/turns", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp, out
}

func TestTurnEndpointPlaysQuiz(t *testing.T) {
	server := httptest.NewServer(NewRouter(NewTurnHandler(newTestService()), nil))
	defer server.Close()

	resp, out := postTurn(t, server, map[string]any{"userId": "u1", "intent": "LaunchRequest"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, out)
	}
	if out["phase"] != "awaiting_answer" {
		t.Fatalf("expected awaiting_answer, got %v", out["phase"])
	}
	if out["reprompt"] != "What do you think? Is it true or false?" {
		t.Fatalf("unexpected reprompt %v", out["reprompt"])
	}

	// an answer slot without an intent is treated as an answer
	resp, out = postTurn(t, server, map[string]any{"userId": "u1", "answer": "true"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, out)
	}
	lines, _ := out["speechLines"].([]any)
	if len(lines) == 0 || lines[0] != "That's correct!" {
		t.Fatalf("expected correct answer feedback, got %v", lines)
	}
	session, _ := out["session"].(map[string]any)
	if session["q"] != "q2" {
		t.Fatalf("expected q2 active, got %v", session)
	}

	resp, out = postTurn(t, server, map[string]any{"userId": "u1", "intent": "CardIntent"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if out["cardTitle"] != "Quiz results" {
		t.Fatalf("expected results card, got %v", out)
	}
}

func TestTurnEndpointRejectsBadRequests(t *testing.T) {
	server := httptest.NewServer(NewRouter(NewTurnHandler(newTestService()), nil))
	defer server.Close()

	cases := []map[string]any{
		{"intent": "launch"},
		{"userId": "u1", "intent": "dance"},
		{"userId": "u1"},
	}
	for _, body := range cases {
		resp, out := postTurn(t, server, body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for %v, got %d", body, resp.StatusCode)
		}
		if out["message"] == "" {
			t.Fatalf("expected error message for %v", body)
		}
	}

	resp, err := http.Post(server.URL+"/v1/turns", "application/json", bytes.NewBufferString("{"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestTurnEndpointMapsServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("load session: %w", domain.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{domain.ErrQuestionNotFound, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		server := httptest.NewServer(NewRouter(NewTurnHandler(failingService{err: tc.err}), nil))
		resp, out := postTurn(t, server, map[string]any{"userId": "u1", "intent": "launch"})
		server.Close()
		if resp.StatusCode != tc.status {
			t.Fatalf("expected %d for %v, got %d", tc.status, tc.err, resp.StatusCode)
		}
		if tc.status == http.StatusInternalServerError && out["message"] != "something went wrong, please try again" {
			t.Fatalf("expected a generic message for %v, got %v", tc.err, out["message"])
		}
	}
}

func TestHealthz(t *testing.T) {
	server := httptest.NewServer(NewRouter(NewTurnHandler(newTestService()), nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
