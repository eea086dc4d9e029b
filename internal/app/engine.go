package app

import (
	"fmt"

	"voice-quiz-service/internal/domain"
)

// Turn is the outcome of one state transition.
type Turn struct {
	State domain.SessionState
	// Phase is the phase the turn ended the conversation in. It can differ
	// from State.Phase(): Start on an exhausted catalog reports QuizComplete
	// while the stored state, with no answers and nothing active, derives
	// NoActiveQuestion on the next turn.
	Phase      domain.Phase
	Speech     []string
	Reprompt   string
	Card       *Card
	EndSession bool
	// Mutated is set when State differs from the input and must be saved.
	Mutated bool
}

// Input is one turn's worth of user intent.
type Input struct {
	Intent domain.Intent
	Answer string
	// FirstTime is true when the store held no record for the user.
	FirstTime bool
}

// Engine runs the quiz state machine against one bank snapshot. It performs
// no I/O, so every transition is a pure function of its inputs.
type Engine struct {
	bank     *domain.QuestionBank
	settings Settings
}

func NewEngine(bank *domain.QuestionBank, settings Settings) *Engine {
	return &Engine{bank: bank, settings: settings.withDefaults()}
}

// Handle dispatches one intent.
func (e *Engine) Handle(state domain.SessionState, in Input) (Turn, error) {
	switch in.Intent {
	case domain.IntentLaunch:
		return e.Launch(state, in.FirstTime), nil
	case domain.IntentAnother:
		return e.Another(state), nil
	case domain.IntentAnswer:
		return e.Answer(state, in.Answer)
	case domain.IntentRepeat:
		return e.Repeat(state)
	case domain.IntentResults:
		return e.Summarize(state)
	case domain.IntentHelp:
		return e.Help(state), nil
	case domain.IntentStop:
		return e.Stop(state)
	default:
		return Turn{}, fmt.Errorf("%w: %q", domain.ErrUnknownIntent, in.Intent)
	}
}

// Launch greets the user and starts a playthrough.
func (e *Engine) Launch(state domain.SessionState, firstTime bool) Turn {
	turn := e.Start(state)
	turn.Speech = append(welcomeLines(e.settings, firstTime), turn.Speech...)
	return turn
}

// Another starts a new playthrough on request.
func (e *Engine) Another(state domain.SessionState) Turn {
	turn := e.Start(state)
	turn.Speech = append([]string{msgAnother}, turn.Speech...)
	return turn
}

// Start resets the playthrough and offers the first unseen question.
func (e *Engine) Start(state domain.SessionState) Turn {
	next := state.Clone()
	next.Current = domain.Answers{}
	next.ActiveQuestionID = ""

	q, ok := e.bank.Next(next.All)
	if !ok {
		return Turn{
			State:      next,
			Phase:      domain.PhaseQuizComplete,
			Speech:     withSignOff(e.settings, []string{msgExhausted}),
			EndSession: true,
			Mutated:    !next.Equal(state),
		}
	}

	next.ActiveQuestionID = q.ID
	return Turn{
		State:    next,
		Phase:    domain.PhaseAwaitingAnswer,
		Speech:   []string{msgFirstQuestion, q.Prompt()},
		Reprompt: reprompt(q),
		Mutated:  !next.Equal(state),
	}
}

// Repeat re-voices the active question without touching state.
func (e *Engine) Repeat(state domain.SessionState) (Turn, error) {
	switch state.Phase() {
	case domain.PhaseAwaitingAnswer:
		q, err := e.bank.Get(state.ActiveQuestionID)
		if err != nil {
			return Turn{}, err
		}
		return Turn{
			State:    state,
			Phase:    domain.PhaseAwaitingAnswer,
			Speech:   []string{q.Prompt()},
			Reprompt: reprompt(q),
		}, nil
	case domain.PhaseNoActiveQuestion, domain.PhaseQuizComplete:
		return Turn{
			State:  state,
			Phase:  state.Phase(),
			Speech: []string{msgNothingToRepeat},
		}, nil
	default:
		return Turn{}, fmt.Errorf("repeat: unhandled phase %s", state.Phase())
	}
}

// Answer records the answer to the active question, if any, then either
// ends the playthrough or moves on to the next unseen question.
func (e *Engine) Answer(state domain.SessionState, raw string) (Turn, error) {
	next := state.Clone()
	var speech []string

	switch state.Phase() {
	case domain.PhaseAwaitingAnswer:
		q, err := e.bank.Get(state.ActiveQuestionID)
		if err != nil {
			return Turn{}, err
		}
		label := q.NormalizeAnswer(raw)
		next.Current.Set(q.ID, label)
		next.All.Set(q.ID, label)
		next.ActiveQuestionID = ""

		if q.IsCorrect(label) {
			speech = append(speech, msgCorrect)
		} else {
			speech = append(speech, correctAnswerLine(q))
		}
		if q.Explanation != "" {
			speech = append(speech, q.Explanation)
		}
	case domain.PhaseNoActiveQuestion, domain.PhaseQuizComplete:
		// nothing to record; report standing below
	default:
		return Turn{}, fmt.Errorf("answer: unhandled phase %s", state.Phase())
	}

	answered := next.Current.Len()
	if answered >= e.settings.SessionLength {
		score, card, err := e.results(next.Current)
		if err != nil {
			return Turn{}, err
		}
		next.ActiveQuestionID = ""
		speech = append(speech, completedLines(score, answered)...)
		return Turn{
			State:      next,
			Phase:      domain.PhaseQuizComplete,
			Speech:     withSignOff(e.settings, speech),
			Card:       &card,
			EndSession: true,
			Mutated:    !next.Equal(state),
		}, nil
	}

	if q, ok := e.bank.Next(next.All); ok {
		next.ActiveQuestionID = q.ID
		speech = append(speech, questionNumberLine(answered+1), q.Prompt())
		return Turn{
			State:    next,
			Phase:    domain.PhaseAwaitingAnswer,
			Speech:   speech,
			Reprompt: reprompt(q),
			Mutated:  !next.Equal(state),
		}, nil
	}

	score, card, err := e.results(next.Current)
	if err != nil {
		return Turn{}, err
	}
	next.ActiveQuestionID = ""
	speech = append(speech, msgExhausted, scoreLine(score))
	return Turn{
		State:      next,
		Phase:      domain.PhaseQuizComplete,
		Speech:     withSignOff(e.settings, speech),
		Card:       &card,
		EndSession: true,
		Mutated:    !next.Equal(state),
	}, nil
}

// Summarize produces the results card for the current playthrough.
func (e *Engine) Summarize(state domain.SessionState) (Turn, error) {
	_, card, err := e.results(state.Current)
	if err != nil {
		return Turn{}, err
	}
	speech := msgResultsSent
	if state.Current.Len() == 0 {
		speech = msgNoResults
	}
	return Turn{
		State:      state,
		Phase:      state.Phase(),
		Speech:     []string{speech},
		Card:       &card,
		EndSession: state.Phase() != domain.PhaseAwaitingAnswer,
	}, nil
}

func (e *Engine) Help(state domain.SessionState) Turn {
	turn := Turn{
		State:  state,
		Phase:  state.Phase(),
		Speech: []string{msgHelp},
	}
	if state.Phase() == domain.PhaseAwaitingAnswer {
		if q, err := e.bank.Get(state.ActiveQuestionID); err == nil {
			turn.Reprompt = reprompt(q)
		}
	}
	return turn
}

// Stop closes the conversation with the score and the results card.
func (e *Engine) Stop(state domain.SessionState) (Turn, error) {
	score, card, err := e.results(state.Current)
	if err != nil {
		return Turn{}, err
	}
	return Turn{
		State:      state,
		Phase:      state.Phase(),
		Speech:     withSignOff(e.settings, closingLines(e.settings, score)),
		Card:       &card,
		EndSession: true,
	}, nil
}

// Score counts the answers matching each question's correct label.
func Score(bank *domain.QuestionBank, answers domain.Answers) (int, error) {
	score := 0
	for _, id := range answers.IDs() {
		q, err := bank.Get(id)
		if err != nil {
			return 0, err
		}
		label, _ := answers.Get(id)
		if q.IsCorrect(label) {
			score++
		}
	}
	return score, nil
}

func (e *Engine) results(answers domain.Answers) (int, Card, error) {
	entries := make([]cardEntry, 0, answers.Len())
	score := 0
	for _, id := range answers.IDs() {
		q, err := e.bank.Get(id)
		if err != nil {
			return 0, Card{}, err
		}
		label, _ := answers.Get(id)
		correct := q.IsCorrect(label)
		if correct {
			score++
		}
		entries = append(entries, cardEntry{question: q, correct: correct})
	}
	return score, renderCard(e.settings, entries, score), nil
}
