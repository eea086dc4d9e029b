package domain

import "fmt"

// QuestionBank is an immutable, ordered catalog of questions. It is safe for
// concurrent use by any number of readers.
type QuestionBank struct {
	questions []Question
	index     map[string]int
}

// NewQuestionBank validates the catalog and keeps its order.
func NewQuestionBank(questions []Question) (*QuestionBank, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyCatalog
	}
	bank := &QuestionBank{
		questions: make([]Question, 0, len(questions)),
		index:     make(map[string]int, len(questions)),
	}
	for _, q := range questions {
		q = q.canonical()
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if _, dup := bank.index[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidQuestion, q.ID)
		}
		bank.index[q.ID] = len(bank.questions)
		bank.questions = append(bank.questions, q)
	}
	return bank, nil
}

// Get returns the question with the given id.
func (b *QuestionBank) Get(id string) (Question, error) {
	i, ok := b.index[id]
	if !ok {
		return Question{}, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}
	return b.questions[i], nil
}

// Next returns the first question in catalog order that is not excluded.
func (b *QuestionBank) Next(excluded Exclusions) (Question, bool) {
	for _, q := range b.questions {
		if excluded != nil && excluded.Has(q.ID) {
			continue
		}
		return q, true
	}
	return Question{}, false
}

func (b *QuestionBank) Len() int {
	return len(b.questions)
}

// Questions returns a copy of the catalog.
func (b *QuestionBank) Questions() []Question {
	out := make([]Question, len(b.questions))
	copy(out, b.questions)
	return out
}
