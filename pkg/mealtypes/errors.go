package mealtypes

import "errors"

// Error taxonomy for the conversation core. Handlers convert
// ErrCollaboratorUnavailable into a user-safe apology at their boundary;
// ErrSessionNotFound triggers transparent session re-creation at the
// orchestrator boundary; neither is ever surfaced to the end user.
var (
	// ErrSessionNotFound means the session id is unknown or the session
	// expired and was evicted.
	ErrSessionNotFound = errors.New("session not found or expired")

	// ErrUserNotFound means no persisted user record matched the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrCollaboratorUnavailable means an external capability (LLM, user
	// store, recipe search) failed after its own retries.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

	// ErrMalformedExtraction means the structured block expected in an LLM
	// reply was missing or unparseable.
	ErrMalformedExtraction = errors.New("malformed extraction block")

	// ErrValidation means a profile field value fell outside its allowed
	// range. Merges reject the field, not the whole extraction.
	ErrValidation = errors.New("profile field validation failed")
)
