package engine

import "errors"

var (
	// ErrValidation rejects a turn before any side effect, e.g. a blank message.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration aborts a turn when no generation backend is available.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a conversation or agent the user does not own.
	ErrNotFound = errors.New("not found")
	// ErrAgentCall wraps a single agent's failed generation. It never aborts a turn.
	ErrAgentCall = errors.New("agent call failed")
)
