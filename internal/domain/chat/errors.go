package chat

import "errors"

var (
	// ErrValidation marks input rejected before any collaborator call
	ErrValidation = errors.New("invalid input")
	// ErrCollaboratorUnavailable marks a failed or timed out retrieval or
	// model call. The session is left as it was before the call.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrInconsistent marks session state that should be impossible. The
	// affected session is dropped.
	ErrInconsistent = errors.New("inconsistent session state")
)

// FallbackAnswer is returned to users whenever a turn fails
const FallbackAnswer = "I apologize, but I encountered an error processing your request. Please try again."
