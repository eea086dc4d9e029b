package memory

import (
	"context"
	"fmt"
	"sync"

	"voice-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]storedSession
}

type storedSession struct {
	payload domain.Payload
	version int64
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]storedSession),
	}
}

func (s *SessionStore) Load(_ context.Context, userID string) (domain.Payload, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.sessions[userID]
	if !ok {
		return nil, 0, nil
	}
	return copyPayload(stored.payload), stored.version, nil
}

func (s *SessionStore) Save(_ context.Context, userID string, payload domain.Payload, expected int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.sessions[userID]
	if current.version != expected {
		return fmt.Errorf("%w: user %s at version %d, expected %d", domain.ErrSessionConflict, userID, current.version, expected)
	}
	s.sessions[userID] = storedSession{payload: copyPayload(payload), version: current.version + 1}
	return nil
}

// Delete forgets a user; retention is otherwise unbounded.
func (s *SessionStore) Delete(_ context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func copyPayload(p domain.Payload) domain.Payload {
	out := make(domain.Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
