package domain

import "strings"

// Intent names the action a turn asks for.
type Intent string

const (
	IntentLaunch  Intent = "launch"
	IntentAnother Intent = "another"
	IntentAnswer  Intent = "answer"
	IntentRepeat  Intent = "repeat"
	IntentResults Intent = "results"
	IntentHelp    Intent = "help"
	IntentStop    Intent = "stop"
)

// voice platform request and intent names
var intentAliases = map[string]Intent{
	"launchrequest":       IntentLaunch,
	"anotherintent":       IntentAnother,
	"answerintent":        IntentAnswer,
	"repeatintent":        IntentRepeat,
	"cardintent":          IntentResults,
	"amazon.helpintent":   IntentHelp,
	"amazon.stopintent":   IntentStop,
	"amazon.cancelintent": IntentStop,
	"amazon.repeatintent": IntentRepeat,
}

// ParseIntent accepts engine intent names and the voice platform names.
// The second result is false for unrecognised input.
func ParseIntent(raw string) (Intent, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	switch Intent(key) {
	case IntentLaunch, IntentAnother, IntentAnswer, IntentRepeat, IntentResults, IntentHelp, IntentStop:
		return Intent(key), true
	}
	intent, ok := intentAliases[key]
	return intent, ok
}

// TurnRequest is what a transport hands to the quiz service.
type TurnRequest struct {
	UserID string
	Intent Intent
	// Answer is the raw answer utterance, if any.
	Answer string
	// Session is the payload echoed by the transport; used only when the
	// store has no record for the user.
	Session Payload
}

// Reply is the normalized response handed back to the transport.
type Reply struct {
	SpeechLines      []string `json:"speechLines"`
	Reprompt         string   `json:"reprompt,omitempty"`
	CardTitle        string   `json:"cardTitle,omitempty"`
	CardBody         string   `json:"cardBody,omitempty"`
	ShouldEndSession bool     `json:"shouldEndSession"`
	Session          Payload  `json:"session"`
	// Phase describes how this turn ended, not the phase the stored session
	// will derive on the next turn.
	Phase Phase `json:"phase"`
}

// Speech joins the speech lines the way a voice transport would voice them.
func (r Reply) Speech() string {
	return strings.Join(r.SpeechLines, "\n")
}
