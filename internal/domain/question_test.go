package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func booleanQuestion() Question {
	return Question{
		ID:          "b1",
		Text:        "The sky is blue.",
		Kind:        KindBoolean,
		Answer:      LabelTrue,
		Explanation: "Rayleigh scattering.",
	}
}

func choiceQuestion() Question {
	return Question{
		ID:   "m1",
		Text: "What is 2 + 2?",
		Kind: KindMultipleChoice,
		Choices: []Choice{
			{Label: "A", Text: "3"},
			{Label: "B", Text: "4"},
			{Label: "C", Text: "5"},
		},
		Answer:      "B",
		Explanation: "Basic arithmetic.",
	}
}

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		name string
		q    Question
		raw  string
		want Label
	}{
		{"boolean true", booleanQuestion(), "true", LabelTrue},
		{"boolean upper T", booleanQuestion(), "TRUE", LabelTrue},
		{"boolean false", booleanQuestion(), "false", LabelFalse},
		{"boolean anything else", booleanQuestion(), "maybe", LabelFalse},
		{"boolean dont know", booleanQuestion(), "I don't know", LabelUnknown},
		{"boolean empty", booleanQuestion(), "   ", LabelUnknown},
		{"choice lower letter", choiceQuestion(), "b", "B"},
		{"choice word", choiceQuestion(), "bee", "B"},
		{"choice out of range", choiceQuestion(), "z", "Z"},
		{"choice dont know any case", choiceQuestion(), "i DON'T know", LabelUnknown},
		{"choice padded", choiceQuestion(), "  c ", "C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.NormalizeAnswer(tt.raw))
		})
	}
}

func TestIsCorrect(t *testing.T) {
	q := booleanQuestion()
	assert.True(t, q.IsCorrect(q.NormalizeAnswer("true")))
	assert.False(t, q.IsCorrect(q.NormalizeAnswer("I don't know")))
	assert.False(t, q.IsCorrect("true"), "labels are case-sensitive")

	mc := choiceQuestion()
	assert.True(t, mc.IsCorrect("B"))
	assert.False(t, mc.IsCorrect("Z"))
}

func TestAnswerTextAndPrompt(t *testing.T) {
	assert.Equal(t, "true", booleanQuestion().AnswerText())
	assert.Equal(t, "4", choiceQuestion().AnswerText())

	assert.Equal(t, "True or false: The sky is blue.", booleanQuestion().Prompt())
	assert.Equal(t, "What is 2 + 2? A: 3. B: 4. C: 5.", choiceQuestion().Prompt())

	assert.Equal(t, "true or false", booleanQuestion().ChoicesPhrase())
	assert.Equal(t, "A, B, or C", choiceQuestion().ChoicesPhrase())

	two := choiceQuestion()
	two.Choices = two.Choices[:2]
	assert.Equal(t, "A or B", two.ChoicesPhrase())
}

func TestValidate(t *testing.T) {
	require.NoError(t, booleanQuestion().Validate())
	require.NoError(t, choiceQuestion().Validate())

	tests := []struct {
		name   string
		mutate func(q *Question)
	}{
		{"empty id", func(q *Question) { q.ID = "" }},
		{"empty text", func(q *Question) { q.Text = " " }},
		{"unknown kind", func(q *Question) { q.Kind = "essay" }},
		{"answer not a choice", func(q *Question) { q.Answer = "D" }},
		{"duplicate label", func(q *Question) { q.Choices[1].Label = "A" }},
		{"long label", func(q *Question) { q.Choices[0].Label = "AA" }},
		{"single choice", func(q *Question) { q.Choices = q.Choices[:1]; q.Answer = "A" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := choiceQuestion()
			tt.mutate(&q)
			assert.ErrorIs(t, q.Validate(), ErrInvalidQuestion)
		})
	}

	b := booleanQuestion()
	b.Answer = "A"
	assert.ErrorIs(t, b.Validate(), ErrInvalidQuestion)
}
