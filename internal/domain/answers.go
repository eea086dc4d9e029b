package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Exclusions is the set of question ids that must not be offered again.
type Exclusions interface {
	Has(id string) bool
}

// IDSet is a plain exclusion set.
type IDSet map[string]struct{}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Answers maps question ids to submitted labels and remembers insertion
// order. The zero value is an empty mapping ready to use.
type Answers struct {
	order  []string
	labels map[string]Label
}

// Set records label for id. Re-answering keeps the original position.
func (a *Answers) Set(id string, label Label) {
	if a.labels == nil {
		a.labels = make(map[string]Label)
	}
	if _, ok := a.labels[id]; !ok {
		a.order = append(a.order, id)
	}
	a.labels[id] = label
}

func (a Answers) Get(id string) (Label, bool) {
	label, ok := a.labels[id]
	return label, ok
}

func (a Answers) Has(id string) bool {
	_, ok := a.labels[id]
	return ok
}

func (a Answers) Len() int {
	return len(a.order)
}

// IDs returns the answered ids in insertion order.
func (a Answers) IDs() []string {
	ids := make([]string, len(a.order))
	copy(ids, a.order)
	return ids
}

func (a Answers) Clone() Answers {
	var out Answers
	for _, id := range a.order {
		out.Set(id, a.labels[id])
	}
	return out
}

// Equal compares contents and order.
func (a Answers) Equal(other Answers) bool {
	if len(a.order) != len(other.order) {
		return false
	}
	for i, id := range a.order {
		if other.order[i] != id || other.labels[id] != a.labels[id] {
			return false
		}
	}
	return true
}

// MarshalJSON writes a JSON object whose keys follow insertion order.
func (a Answers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range a.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(string(a.labels[id]))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of string labels, keeping key order.
// A JSON null decodes to an empty mapping.
func (a *Answers) UnmarshalJSON(data []byte) error {
	*a = Answers{}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("answers: expected object, got %v", tok)
	}

	var out Answers
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("answers: unexpected key %v", keyTok)
		}
		var label string
		if err := dec.Decode(&label); err != nil {
			return fmt.Errorf("answers: value for %q: %w", key, err)
		}
		out.Set(key, Label(label))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("answers: trailing data")
	}
	*a = out
	return nil
}
