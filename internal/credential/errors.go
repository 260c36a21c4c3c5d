package credential

import "errors"

var (
	// ErrKeyNotFound is returned by Lookup when nothing is stored for the domain.
	ErrKeyNotFound = errors.New("credential not found")

	// ErrInvalidInput is returned when an interactive line cannot be read.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoTerminal is returned when no controlling terminal is configured.
	ErrNoTerminal = errors.New("no controlling terminal")

	// ErrInterrupted is returned when a prompt is interrupted by a signal.
	ErrInterrupted = errors.New("prompt interrupted")
)

// QueryError reports a store failure during Lookup. It carries the store's
// description but not the store's error value, so callers only ever see
// this one type for lookup failures.
type QueryError struct {
	Message string
}

func (e *QueryError) Error() string {
	return "credential query failed: " + e.Message
}
