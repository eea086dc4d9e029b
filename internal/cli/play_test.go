package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"voice-quiz-service/internal/config"
	"voice-quiz-service/internal/domain"
)

type recordingRunner struct {
	requests []domain.TurnRequest
}

func (r *recordingRunner) HandleTurn(_ context.Context, req domain.TurnRequest) (domain.Reply, error) {
	r.requests = append(r.requests, req)
	return domain.Reply{SpeechLines: []string{"turn " + string(req.Intent)}}, nil
}

func TestLineToTurn(t *testing.T) {
	assert.Equal(t, domain.TurnRequest{UserID: "u", Intent: domain.IntentRepeat}, lineToTurn("u", "Repeat"))
	assert.Equal(t, domain.TurnRequest{UserID: "u", Intent: domain.IntentResults}, lineToTurn("u", "results"))
	assert.Equal(t, domain.TurnRequest{UserID: "u", Intent: domain.IntentAnswer, Answer: "b"}, lineToTurn("u", "b"))
	assert.Equal(t, domain.TurnRequest{UserID: "u", Intent: domain.IntentAnswer, Answer: "answer"}, lineToTurn("u", "answer"))
}

func TestPlayLoopStopsOnStop(t *testing.T) {
	runner := &recordingRunner{}
	var out bytes.Buffer

	err := playLoop(context.Background(), runner, "u1", strings.NewReader("a\n\nrepeat\nstop\nb\n"), &out)
	require.NoError(t, err)

	intents := make([]domain.Intent, 0, len(runner.requests))
	for _, req := range runner.requests {
		assert.Equal(t, "u1", req.UserID)
		intents = append(intents, req.Intent)
	}
	assert.Equal(t, []domain.Intent{domain.IntentLaunch, domain.IntentAnswer, domain.IntentRepeat, domain.IntentStop}, intents)
	assert.Contains(t, out.String(), "turn launch")
}

func TestPlayLoopAgainstDefaultRuntime(t *testing.T) {
	ctx := context.Background()
	rt, err := buildRuntime(ctx, config.Default())
	require.NoError(t, err)
	defer rt.Close()

	var out bytes.Buffer
	err = playLoop(ctx, rt.service, "cli-test", strings.NewReader("b\nresults\n"), &out)
	require.NoError(t, err)

	transcript := out.String()
	assert.Contains(t, transcript, "Welcome to Quiz for America.")
	assert.Contains(t, transcript, "How many amendments does the United States Constitution have?")
	assert.Contains(t, transcript, "That's correct!")
	assert.Contains(t, transcript, "--- Quiz results ---")
}
