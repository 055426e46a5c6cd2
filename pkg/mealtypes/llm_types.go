// Package mealtypes defines the shared types for the mealmind conversation core.
// This file contains the collaborator capability surface: text generation,
// user storage, and recipe search. The core depends on these interfaces but
// does not own their implementations.
package mealtypes

import "context"

// Intent is the classified purpose of an incoming message.
type Intent string

const (
	// IntentMealRequest means the user is asking for a meal suggestion.
	IntentMealRequest Intent = "meal_request"
	// IntentNormalChat covers every other kind of conversation.
	IntentNormalChat Intent = "normal_chat"
	// IntentUnclear means the classifier output named neither label, or both.
	IntentUnclear Intent = "unclear"
)

// TextGenerator is the single LLM capability the core needs: an ordered list
// of messages in, text out. Implementations own retries and timeouts; an
// error returned here is treated as a hard failure for the turn.
type TextGenerator interface {
	// Generate sends the messages and returns the model's reply text.
	Generate(ctx context.Context, messages []Message) (string, error)

	// ProviderName returns the backing provider name (e.g. "openai").
	ProviderName() string

	// IsConfigured reports whether the generator can make requests.
	IsConfigured() bool
}

// UserStore provides access to persisted user records. Lookup by name is
// case-insensitive.
type UserStore interface {
	// FindByName returns the record whose name matches, ignoring case,
	// or ErrUserNotFound.
	FindByName(ctx context.Context, name string) (*UserRecord, error)

	// FindByID returns the record with the given id, or ErrUserNotFound.
	FindByID(ctx context.Context, id string) (*UserRecord, error)

	// Create persists a new record built from a completed draft and
	// returns its id.
	Create(ctx context.Context, profile ProfileDraft) (string, error)
}

// RecipeSearch is a best-effort recipe lookup capability. Failures degrade to
// an error string in the returned text, never an error.
type RecipeSearch interface {
	// Search looks up recipes matching the query, optionally scoped to a
	// cuisine.
	Search(ctx context.Context, query, cuisine string) string
}
