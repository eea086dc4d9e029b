package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind is the answer format of a question.
type Kind string

const (
	KindBoolean        Kind = "boolean"
	KindMultipleChoice Kind = "multiple_choice"
)

// Label is the canonical form of an answer: a letter, TRUE, FALSE or empty.
type Label string

const (
	LabelTrue    Label = "TRUE"
	LabelFalse   Label = "FALSE"
	LabelUnknown Label = ""
)

// Choice is one labelled option of a multiple choice question.
type Choice struct {
	Label Label  `json:"label" yaml:"label"`
	Text  string `json:"text" yaml:"text"`
}

// Question is an immutable catalog entry.
type Question struct {
	ID          string   `json:"id" yaml:"id"`
	Text        string   `json:"text" yaml:"text"`
	Kind        Kind     `json:"kind" yaml:"kind"`
	Choices     []Choice `json:"choices,omitempty" yaml:"choices,omitempty"`
	Answer      Label    `json:"answer" yaml:"answer"`
	Explanation string   `json:"explanation" yaml:"explanation"`
}

var dontKnow = map[string]struct{}{
	"i don't know":  {},
	"i dont know":   {},
	"i do not know": {},
	"don't know":    {},
	"dont know":     {},
}

func (q Question) IsBoolean() bool {
	return q.Kind == KindBoolean
}

// Labels returns the label set of the question in presentation order.
func (q Question) Labels() []Label {
	if q.IsBoolean() {
		return []Label{LabelTrue, LabelFalse}
	}
	labels := make([]Label, 0, len(q.Choices))
	for _, c := range q.Choices {
		labels = append(labels, c.Label)
	}
	return labels
}

// NormalizeAnswer maps a raw utterance to a label. It never rejects input:
// noisy or out-of-range answers produce a label that simply scores as wrong.
func (q Question) NormalizeAnswer(raw string) Label {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return LabelUnknown
	}
	if _, ok := dontKnow[strings.ToLower(trimmed)]; ok {
		return LabelUnknown
	}

	first, _ := utf8.DecodeRuneInString(trimmed)
	first = unicode.ToUpper(first)
	if q.IsBoolean() {
		if first == 'T' {
			return LabelTrue
		}
		return LabelFalse
	}
	return Label(string(first))
}

func (q Question) IsCorrect(label Label) bool {
	return label == q.Answer
}

// AnswerText is the human-readable form of the correct answer.
func (q Question) AnswerText() string {
	if q.IsBoolean() {
		return strings.ToLower(string(q.Answer))
	}
	if text, ok := q.choiceText(q.Answer); ok {
		return text
	}
	return string(q.Answer)
}

// Prompt renders the question and its choices for voicing.
func (q Question) Prompt() string {
	if q.IsBoolean() {
		return "True or false: " + q.Text
	}
	var b strings.Builder
	b.WriteString(q.Text)
	for _, c := range q.Choices {
		fmt.Fprintf(&b, " %s: %s.", c.Label, strings.TrimRight(c.Text, "."))
	}
	return b.String()
}

// ChoicesPhrase lists the accepted answers, e.g. "A, B, or C".
func (q Question) ChoicesPhrase() string {
	if q.IsBoolean() {
		return "true or false"
	}
	labels := q.Labels()
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return string(labels[0])
	case 2:
		return string(labels[0]) + " or " + string(labels[1])
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = string(l)
	}
	return strings.Join(parts[:len(parts)-1], ", ") + ", or " + parts[len(parts)-1]
}

// Validate checks the structural invariants of a catalog entry.
func (q Question) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidQuestion)
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: question %s has no text", ErrInvalidQuestion, q.ID)
	}

	switch q.Kind {
	case KindBoolean:
		if q.Answer != LabelTrue && q.Answer != LabelFalse {
			return fmt.Errorf("%w: question %s answer %q is not TRUE or FALSE", ErrInvalidQuestion, q.ID, q.Answer)
		}
		return nil
	case KindMultipleChoice:
	default:
		return fmt.Errorf("%w: question %s has unknown kind %q", ErrInvalidQuestion, q.ID, q.Kind)
	}

	if len(q.Choices) < 2 {
		return fmt.Errorf("%w: question %s needs at least two choices", ErrInvalidQuestion, q.ID)
	}
	seen := make(map[Label]struct{}, len(q.Choices))
	for _, c := range q.Choices {
		if utf8.RuneCountInString(string(c.Label)) != 1 || !unicode.IsUpper([]rune(string(c.Label))[0]) {
			return fmt.Errorf("%w: question %s has choice label %q, want a single uppercase letter", ErrInvalidQuestion, q.ID, c.Label)
		}
		if _, dup := seen[c.Label]; dup {
			return fmt.Errorf("%w: question %s repeats choice %s", ErrInvalidQuestion, q.ID, c.Label)
		}
		seen[c.Label] = struct{}{}
	}
	if _, ok := seen[q.Answer]; !ok {
		return fmt.Errorf("%w: question %s answer %q is not one of its choices", ErrInvalidQuestion, q.ID, q.Answer)
	}
	return nil
}

// canonical upper-cases labels so catalogs may be written in any case.
func (q Question) canonical() Question {
	q.Answer = Label(strings.ToUpper(strings.TrimSpace(string(q.Answer))))
	if len(q.Choices) > 0 {
		choices := make([]Choice, len(q.Choices))
		for i, c := range q.Choices {
			c.Label = Label(strings.ToUpper(strings.TrimSpace(string(c.Label))))
			choices[i] = c
		}
		q.Choices = choices
	}
	return q
}

func (q Question) choiceText(label Label) (string, bool) {
	for _, c := range q.Choices {
		if c.Label == label {
			return c.Text, true
		}
	}
	return "", false
}
