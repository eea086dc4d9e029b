package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"voice-quiz-service/internal/domain"
	"voice-quiz-service/internal/infra/memory"
)

type staticBanks struct {
	bank *domain.QuestionBank
}

func (s staticBanks) Bank(context.Context) (*domain.QuestionBank, error) {
	return s.bank, nil
}

type failingStore struct {
	loadErr error
	saveErr error
}

func (f failingStore) Load(context.Context, string) (domain.Payload, int64, error) {
	return nil, 0, f.loadErr
}

func (f failingStore) Save(context.Context, string, domain.Payload, int64) error {
	return f.saveErr
}

// corruptStore reports an unreadable record the way the SQL stores do.
type corruptStore struct {
	*memory.SessionStore
}

func (c corruptStore) Load(ctx context.Context, userID string) (domain.Payload, int64, error) {
	_, version, err := c.SessionStore.Load(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return domain.Payload{}, version, fmt.Errorf("%w: user %s: bad row", domain.ErrMalformedSession, userID)
}

// slowStore widens the load/save window so overlapping turns would lose updates.
type slowStore struct {
	*memory.SessionStore
}

func (s slowStore) Load(ctx context.Context, userID string) (domain.Payload, int64, error) {
	time.Sleep(time.Millisecond)
	return s.SessionStore.Load(ctx, userID)
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestService(t *testing.T, store SessionStore, n int) *QuizService {
	t.Helper()
	return NewQuizService(store, staticBanks{bank: testBank(t, n)}, Settings{Name: "Civics Quiz"}, quietLogger())
}

func TestHandleTurnPlaysAndPersists(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	svc := newTestService(t, store, 3)

	reply, err := svc.HandleTurn(ctx, domain.TurnRequest{UserID: "u1", Intent: domain.IntentLaunch})
	require.NoError(t, err)
	assert.Contains(t, reply.SpeechLines, "Each quiz has 10 questions.", "first contact gets instructions")
	assert.Equal(t, domain.PhaseAwaitingAnswer, reply.Phase)
	assert.Equal(t, "q1", reply.Session[domain.PayloadActive])

	reply, err = svc.HandleTurn(ctx, domain.TurnRequest{UserID: "u1", Intent: domain.IntentAnswer, Answer: "true"})
	require.NoError(t, err)
	assert.Equal(t, msgCorrect, reply.SpeechLines[0])

	stored, version, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
	assert.Equal(t, `{"q1":"TRUE"}`, stored[domain.PayloadCurrent])
	assert.Equal(t, "q2", stored[domain.PayloadActive])

	reply, err = svc.HandleTurn(ctx, domain.TurnRequest{UserID: "u1", Intent: domain.IntentLaunch})
	require.NoError(t, err)
	assert.NotContains(t, reply.SpeechLines, "Each quiz has 10 questions.", "returning users skip instructions")
	assert.Equal(t, "q2", reply.Session[domain.PayloadActive], "answered questions are not offered again")
}

func TestHandleTurnPrefersStoredSession(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	require.NoError(t, store.Save(ctx, "u1", domain.Payload{
		domain.PayloadCurrent: "{}",
		domain.PayloadAll:     "{}",
		domain.PayloadActive:  "q2",
	}, 0))
	svc := newTestService(t, store, 3)

	reply, err := svc.HandleTurn(ctx, domain.TurnRequest{
		UserID:  "u1",
		Intent:  domain.IntentRepeat,
		Session: domain.Payload{domain.PayloadActive: "q3"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Question 2? A: Wrong. B: Right."}, reply.SpeechLines)
}

func TestHandleTurnSeedsFromRequestSession(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	svc := newTestService(t, store, 3)

	reply, err := svc.HandleTurn(ctx, domain.TurnRequest{
		UserID:  "u1",
		Intent:  domain.IntentRepeat,
		Session: domain.Payload{domain.PayloadActive: "q3", "locale": "en-US"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"True or false: Statement 3 is true."}, reply.SpeechLines)
	assert.Equal(t, "en-US", reply.Session["locale"], "unknown keys pass through")

	stored, version, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(1), version, "first contact is persisted")
	assert.Equal(t, "en-US", stored["locale"])
}

func TestHandleTurnRecoversMalformedSession(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	require.NoError(t, store.Save(ctx, "u1", domain.Payload{
		domain.PayloadCurrent: "{broken",
		domain.PayloadAll:     `{"q1":"TRUE"}`,
	}, 0))
	svc := newTestService(t, store, 3)

	reply, err := svc.HandleTurn(ctx, domain.TurnRequest{UserID: "u1", Intent: domain.IntentAnother})
	require.NoError(t, err)
	assert.Equal(t, "q2", reply.Session[domain.PayloadActive])
	assert.Equal(t, "{}", reply.Session[domain.PayloadCurrent])
}

func TestHandleTurnStoreFailures(t *testing.T) {
	ctx := context.Background()
	req := domain.TurnRequest{UserID: "u1", Intent: domain.IntentLaunch}

	svc := newTestService(t, failingStore{loadErr: errors.New("connection refused")}, 3)
	_, err := svc.HandleTurn(ctx, req)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	svc = newTestService(t, failingStore{saveErr: errors.New("read only")}, 3)
	_, err = svc.HandleTurn(ctx, req)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	svc = newTestService(t, failingStore{saveErr: fmt.Errorf("%w: user u1", domain.ErrSessionConflict)}, 3)
	_, err = svc.HandleTurn(ctx, req)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable, "a conflicting save is a store failure")
	assert.ErrorIs(t, err, domain.ErrSessionConflict)
}

func TestHandleTurnContinuesPastCorruptRecord(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewSessionStore()
	require.NoError(t, mem.Save(ctx, "u1", domain.Payload{domain.PayloadAll: `{"q1":"TRUE"}`}, 0))
	svc := newTestService(t, corruptStore{SessionStore: mem}, 3)

	reply, err := svc.HandleTurn(ctx, domain.TurnRequest{UserID: "u1", Intent: domain.IntentLaunch})
	require.NoError(t, err)
	assert.NotContains(t, reply.SpeechLines, "Each quiz has 10 questions.", "a known user is not first-time")
	assert.Equal(t, "q1", reply.Session[domain.PayloadActive], "unreadable record restarts from empty state")

	_, version, err := mem.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), version, "the corrupt record is replaced")
}

func TestHandleTurnRejectsBadRequests(t *testing.T) {
	svc := newTestService(t, memory.NewSessionStore(), 3)

	_, err := svc.HandleTurn(context.Background(), domain.TurnRequest{UserID: " ", Intent: domain.IntentLaunch})
	assert.ErrorIs(t, err, domain.ErrMissingUser)

	_, err = svc.HandleTurn(context.Background(), domain.TurnRequest{UserID: "u1", Intent: "dance"})
	assert.ErrorIs(t, err, domain.ErrUnknownIntent)
}

func TestHandleTurnSerializesPerUser(t *testing.T) {
	ctx := context.Background()
	store := slowStore{SessionStore: memory.NewSessionStore()}
	svc := newTestService(t, store, 12)

	_, err := svc.HandleTurn(ctx, domain.TurnRequest{UserID: "u1", Intent: domain.IntentLaunch})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.HandleTurn(ctx, domain.TurnRequest{UserID: "u1", Intent: domain.IntentAnswer, Answer: "a"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, _, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	state, err := domain.FromPayload(stored)
	require.NoError(t, err)
	assert.Equal(t, 5, state.Current.Len(), "no answer may be lost to a concurrent turn")
	assert.Equal(t, 0, svc.locks.size())
}

func TestUserLocksReleaseEntries(t *testing.T) {
	locks := newUserLocks()
	unlockA := locks.lock("a")
	unlockB := locks.lock("b")
	assert.Equal(t, 2, locks.size())

	unlockA()
	unlockB()
	assert.Equal(t, 0, locks.size())
}
