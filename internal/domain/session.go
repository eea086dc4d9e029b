package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Payload is the flat string map persisted per user and exchanged with the
// transport. Keys other than the reserved ones pass through untouched.
type Payload map[string]string

const (
	PayloadCurrent = "current"
	PayloadAll     = "all"
	PayloadActive  = "q"
)

// Phase is the conversational state implied by a SessionState.
type Phase int

const (
	PhaseNoActiveQuestion Phase = iota
	PhaseAwaitingAnswer
	PhaseQuizComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseNoActiveQuestion:
		return "no_active_question"
	case PhaseAwaitingAnswer:
		return "awaiting_answer"
	case PhaseQuizComplete:
		return "quiz_complete"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// SessionState is one user's quiz progress.
type SessionState struct {
	// Current holds the answers of the active playthrough.
	Current Answers
	// All accumulates answers across playthroughs and is never reset.
	All Answers
	// ActiveQuestionID is the question awaiting an answer, empty if none.
	ActiveQuestionID string
	// Extra carries transport-managed payload keys.
	Extra map[string]string
}

func (s SessionState) Phase() Phase {
	switch {
	case s.ActiveQuestionID != "":
		return PhaseAwaitingAnswer
	case s.Current.Len() > 0:
		return PhaseQuizComplete
	default:
		return PhaseNoActiveQuestion
	}
}

// Clone returns a deep copy so transitions never alias the caller's state.
func (s SessionState) Clone() SessionState {
	out := SessionState{
		Current:          s.Current.Clone(),
		All:              s.All.Clone(),
		ActiveQuestionID: s.ActiveQuestionID,
	}
	if s.Extra != nil {
		out.Extra = make(map[string]string, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Equal reports whether two states hold the same data.
func (s SessionState) Equal(other SessionState) bool {
	if s.ActiveQuestionID != other.ActiveQuestionID ||
		!s.Current.Equal(other.Current) ||
		!s.All.Equal(other.All) ||
		len(s.Extra) != len(other.Extra) {
		return false
	}
	for k, v := range s.Extra {
		if ov, ok := other.Extra[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// FromPayload rebuilds state from a stored payload. It always returns a
// usable state; a non-nil error wraps ErrMalformedSession and describes
// what was discarded or repaired.
func FromPayload(p Payload) (SessionState, error) {
	var state SessionState
	var problems []error

	for key, value := range p {
		switch key {
		case PayloadCurrent:
			if err := decodeAnswers(value, &state.Current); err != nil {
				problems = append(problems, fmt.Errorf("%s: %w", key, err))
			}
		case PayloadAll:
			if err := decodeAnswers(value, &state.All); err != nil {
				problems = append(problems, fmt.Errorf("%s: %w", key, err))
			}
		case PayloadActive:
			state.ActiveQuestionID = value
		default:
			if state.Extra == nil {
				state.Extra = make(map[string]string)
			}
			state.Extra[key] = value
		}
	}

	for _, id := range state.Current.IDs() {
		if !state.All.Has(id) {
			label, _ := state.Current.Get(id)
			state.All.Set(id, label)
			problems = append(problems, fmt.Errorf("answer %s missing from %s", id, PayloadAll))
		}
	}
	if state.ActiveQuestionID != "" && state.Current.Has(state.ActiveQuestionID) {
		problems = append(problems, fmt.Errorf("active question %s already answered", state.ActiveQuestionID))
		state.ActiveQuestionID = ""
	}

	if len(problems) > 0 {
		return state, fmt.Errorf("%w: %w", ErrMalformedSession, errors.Join(problems...))
	}
	return state, nil
}

// ToPayload serializes the state. Both answer maps are always present.
func (s SessionState) ToPayload() Payload {
	p := make(Payload, len(s.Extra)+3)
	for k, v := range s.Extra {
		p[k] = v
	}
	p[PayloadCurrent] = encodeAnswers(s.Current)
	p[PayloadAll] = encodeAnswers(s.All)
	if s.ActiveQuestionID != "" {
		p[PayloadActive] = s.ActiveQuestionID
	}
	return p
}

func decodeAnswers(raw string, into *Answers) error {
	if raw == "" {
		return nil
	}
	var a Answers
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return err
	}
	*into = a
	return nil
}

func encodeAnswers(a Answers) string {
	data, err := json.Marshal(a)
	if err != nil {
		// Answers.MarshalJSON only fails on unencodable strings, which Go strings never are.
		return "{}"
	}
	return string(data)
}
