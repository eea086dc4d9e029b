package app

import (
	"fmt"
	"strings"

	"voice-quiz-service/internal/domain"
)

// DefaultSessionLength is the number of answers that completes a playthrough.
const DefaultSessionLength = 10

// Settings holds the product-level knobs of the quiz.
type Settings struct {
	// SessionLength caps a playthrough independent of catalog size.
	SessionLength int
	// Name is voiced in the welcome and closing lines.
	Name string
	// SignOff is appended whenever a playthrough ends. Optional.
	SignOff string
	// Credits is appended to the results card. Optional.
	Credits string
}

func (s Settings) withDefaults() Settings {
	if s.SessionLength <= 0 {
		s.SessionLength = DefaultSessionLength
	}
	if s.Name == "" {
		s.Name = "the quiz"
	}
	return s
}

const (
	cardTitle          = "Quiz results"
	msgNoResults       = "No results for this session."
	msgCorrect         = "That's correct!"
	msgExhausted       = "That's all the questions I have for now."
	msgHelp            = "Say repeat to hear the question again, or stop to end."
	msgNothingToRepeat = "There's no question to repeat. Say another to start a new quiz."
	msgResultsSent     = "Your results have been sent to the app."
	msgFirstQuestion   = "First question:"
	msgAnother         = "Ok. Let's start another quiz."
	markCorrect        = "✔"
	markIncorrect      = "✗"
)

func welcomeLines(s Settings, firstTime bool) []string {
	lines := []string{fmt.Sprintf("Welcome to %s.", s.Name)}
	if firstTime {
		lines = append(lines,
			"I'll ask a multiple choice question.",
			"Say the letter matching your answer, or say repeat to hear the question again.",
			fmt.Sprintf("Each quiz has %d questions.", s.SessionLength),
			"Say stop to end the quiz early.",
		)
	}
	return lines
}

func reprompt(q domain.Question) string {
	return fmt.Sprintf("What do you think? Is it %s?", q.ChoicesPhrase())
}

func correctAnswerLine(q domain.Question) string {
	return fmt.Sprintf("The correct answer is %s.", q.AnswerText())
}

func questionNumberLine(n int) string {
	return fmt.Sprintf("Question %d.", n)
}

func scoreLine(score int) string {
	return fmt.Sprintf("You got %d correct.", score)
}

func completedLines(score, answered int) []string {
	return []string{
		fmt.Sprintf("Congratulations! You've answered %d questions.", answered),
		fmt.Sprintf("You got %d of %d correct.", score, answered),
		"Check your app for detailed results. To start another quiz, say another.",
	}
}

func closingLines(s Settings, score int) []string {
	lines := []string{fmt.Sprintf("Thanks for playing %s.", s.Name)}
	if score > 0 {
		lines = append(lines, fmt.Sprintf("You got %d %s correct. Check your app for detailed results.", score, plural(score, "question", "questions")))
	}
	return lines
}

func withSignOff(s Settings, lines []string) []string {
	if s.SignOff != "" {
		lines = append(lines, s.SignOff)
	}
	return lines
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Card is the written results summary.
type Card struct {
	Title string
	Body  string
}

type cardEntry struct {
	question domain.Question
	correct  bool
}

func renderCard(s Settings, entries []cardEntry, score int) Card {
	if len(entries) == 0 {
		return Card{Title: cardTitle, Body: msgNoResults}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You got %d of %d %s correct.\n", score, len(entries), plural(len(entries), "question", "questions"))
	for _, e := range entries {
		mark := markIncorrect
		if e.correct {
			mark = markCorrect
		}
		fmt.Fprintf(&b, "\n%s %s\nAnswer: %s\n", mark, e.question.Text, e.question.AnswerText())
		if e.question.Explanation != "" {
			b.WriteString(e.question.Explanation)
			b.WriteByte('\n')
		}
	}
	if s.Credits != "" {
		b.WriteByte('\n')
		b.WriteString(s.Credits)
	}
	return Card{Title: cardTitle, Body: strings.TrimRight(b.String(), "\n")}
}
