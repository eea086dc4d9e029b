package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"voice-quiz-service/internal/domain"
)

// SessionStore persists session payloads keyed by user id (in-memory, Redis, SQL).
//
// Every stored payload carries a version. Save is a compare-and-set against
// the version returned by Load, which makes the store the mutual-exclusion
// point when several processes serve the same user.
type SessionStore interface {
	// Load returns the payload and its version. Version 0 means the user has
	// never been seen. A payload that cannot be decoded is returned empty,
	// with its version, and an error wrapping domain.ErrMalformedSession.
	Load(ctx context.Context, userID string) (domain.Payload, int64, error)
	// Save replaces the payload if the stored version still equals expected,
	// and fails with domain.ErrSessionConflict otherwise.
	Save(ctx context.Context, userID string, payload domain.Payload, expected int64) error
}

// BankSource hands out immutable question bank snapshots (from cache/backing store).
type BankSource interface {
	Bank(ctx context.Context) (*domain.QuestionBank, error)
}

// QuizService runs one quiz turn end to end: load, transition, save.
type QuizService struct {
	sessions SessionStore
	banks    BankSource
	settings Settings
	log      logrus.FieldLogger
	locks    *userLocks
}

func NewQuizService(store SessionStore, banks BankSource, settings Settings, log logrus.FieldLogger) *QuizService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &QuizService{
		sessions: store,
		banks:    banks,
		settings: settings.withDefaults(),
		log:      log,
		locks:    newUserLocks(),
	}
}

// HandleTurn executes a single turn for a user. Turns for the same user are
// serialized in process until the save completes; across processes the
// versioned save rejects the later of two overlapping turns. Errors are fatal
// for the turn and no reply should be sent for them.
func (s *QuizService) HandleTurn(ctx context.Context, req domain.TurnRequest) (domain.Reply, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.Reply{}, domain.ErrMissingUser
	}
	log := s.log.WithFields(logrus.Fields{"user_id": userID, "intent": req.Intent})

	unlock := s.locks.lock(userID)
	defer unlock()

	stored, version, err := s.sessions.Load(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrMalformedSession) {
			return domain.Reply{}, storeError("load", err)
		}
		log.WithError(err).Warn("stored session unreadable, starting from empty state")
	}
	found := version > 0
	payload := stored
	if !found {
		payload = req.Session
	}

	state, err := domain.FromPayload(payload)
	if err != nil {
		// Untrusted payloads degrade to whatever could be recovered.
		log.WithError(err).Warn("recovered malformed session payload")
	}

	bank, err := s.banks.Bank(ctx)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("load question bank: %w", err)
	}

	engine := NewEngine(bank, s.settings)
	turn, err := engine.Handle(state, Input{
		Intent:    req.Intent,
		Answer:    req.Answer,
		FirstTime: !found && len(req.Session) == 0,
	})
	if err != nil {
		return domain.Reply{}, err
	}

	if req.Intent == domain.IntentAnswer && state.ActiveQuestionID != "" {
		label, _ := turn.State.All.Get(state.ActiveQuestionID)
		q, _ := bank.Get(state.ActiveQuestionID)
		log.WithFields(logrus.Fields{
			"question_id": state.ActiveQuestionID,
			"label":       string(label),
			"correct":     q.IsCorrect(label),
		}).Info("answer recorded")
	}

	out := turn.State.ToPayload()
	if turn.Mutated || !found {
		if err := s.sessions.Save(ctx, userID, out, version); err != nil {
			if errors.Is(err, domain.ErrSessionConflict) {
				log.Warn("session changed by a concurrent turn, dropping this one")
			}
			return domain.Reply{}, storeError("save", err)
		}
	}

	if turn.Phase == domain.PhaseQuizComplete {
		if score, err := Score(bank, turn.State.Current); err == nil {
			log.WithFields(logrus.Fields{
				"score":    score,
				"answered": turn.State.Current.Len(),
			}).Info("playthrough complete")
		}
	}

	reply := domain.Reply{
		SpeechLines:      turn.Speech,
		Reprompt:         turn.Reprompt,
		ShouldEndSession: turn.EndSession,
		Session:          out,
		Phase:            turn.Phase,
	}
	if turn.Card != nil {
		reply.CardTitle = turn.Card.Title
		reply.CardBody = turn.Card.Body
	}
	return reply, nil
}

func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return fmt.Errorf("%s session: %w", op, err)
	}
	return fmt.Errorf("%s session: %w: %w", op, domain.ErrStoreUnavailable, err)
}
