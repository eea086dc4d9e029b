package domain

import "errors"

var (
	// ErrQuestionNotFound is returned when a question id is not in the bank.
	// Ids only come from previously issued questions, so this is a data error.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidQuestion indicates a catalog entry failed validation.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrEmptyCatalog is returned when a loader produced no questions.
	ErrEmptyCatalog = errors.New("question catalog is empty")
	// ErrMalformedSession marks a stored payload that could not be parsed.
	// It is recovered locally by falling back to empty state.
	ErrMalformedSession = errors.New("malformed session payload")
	// ErrStoreUnavailable wraps load/save failures of the session store.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrSessionConflict is returned by a store when the session changed
	// between load and save. The turn is rejected, never retried on stale state.
	ErrSessionConflict = errors.New("session changed concurrently")
	// ErrUnknownIntent is returned for intents the engine does not handle.
	ErrUnknownIntent = errors.New("unknown intent")
	// ErrMissingUser is returned when a turn carries no user id.
	ErrMissingUser = errors.New("missing user id")
)
