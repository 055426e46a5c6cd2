// Package mealtypes defines the shared types for the mealmind conversation core.
// This file contains conversation state, session, and message types used by the
// session store, the turn handlers, and the orchestrator.
package mealtypes

import "time"

// ConversationState identifies which phase of the dialogue a session is in.
// The orchestrator routes each incoming message based on this value.
type ConversationState string

const (
	// StateInitial is the only start state; new sessions begin here.
	StateInitial ConversationState = "initial"
	// StateIntentDetection is a transient state used while classifying intent.
	StateIntentDetection ConversationState = "intent_detection"
	// StateNormalChat handles general conversation.
	StateNormalChat ConversationState = "normal_chat"
	// StateProfileCollection gathers the user's dietary profile turn by turn.
	StateProfileCollection ConversationState = "profile_collection"
	// StateMealSuggestion produces a personalized meal recommendation.
	StateMealSuggestion ConversationState = "meal_suggestion"
	// StateSatisfactionCheck evaluates the user's reaction to a suggestion.
	StateSatisfactionCheck ConversationState = "satisfaction_check"
)

// SatisfactionLevel is the classified sentiment toward the last meal suggestion.
type SatisfactionLevel string

const (
	// SatisfactionUnknown means no satisfaction check has run yet.
	SatisfactionUnknown SatisfactionLevel = "unknown"
	// Satisfied means the user accepted the suggestion.
	Satisfied SatisfactionLevel = "satisfied"
	// NotSatisfied means the user rejected the suggestion.
	NotSatisfied SatisfactionLevel = "not_satisfied"
	// SatisfactionNeutral means sentiment was unclear or mixed.
	SatisfactionNeutral SatisfactionLevel = "neutral"
)

// Message represents a single message in the conversation history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Satisfaction records the outcome of the satisfaction check for one suggestion.
// WantsNew is nil until the follow-up classification has run.
type Satisfaction struct {
	Level    SatisfactionLevel `json:"level"`
	WantsNew *bool             `json:"wants_new,omitempty"`
}

// MealState tracks the most recent meal suggestion made in a session, so a
// retry after dissatisfaction can be steered away from repeating it.
type MealState struct {
	LastSuggestion string `json:"last_suggestion,omitempty"`
}

// Session is the per-conversation mutable state persisted across turns.
//
// Invariant: once Profile.IsComplete() is true or UserID is set, the router
// must never send the session back into StateProfileCollection.
type Session struct {
	ID           string            `json:"id"`
	State        ConversationState `json:"state"`
	UserID       string            `json:"user_id,omitempty"`
	Profile      ProfileDraft      `json:"profile"`
	Meal         MealState         `json:"meal"`
	Satisfaction Satisfaction      `json:"satisfaction"`
	History      []Message         `json:"history"`
	CreatedAt    time.Time         `json:"created_at"`
	LastAccessed time.Time         `json:"last_accessed"`
}

// RecentHistory returns up to the last n history entries in order.
func (s *Session) RecentHistory(n int) []Message {
	if n <= 0 || len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// SessionSummary is the read-only view of a session exposed to callers.
type SessionSummary struct {
	ID           string            `json:"id"`
	State        ConversationState `json:"state"`
	UserID       string            `json:"user_id,omitempty"`
	Profile      ProfileDraft      `json:"profile"`
	Satisfaction Satisfaction      `json:"satisfaction"`
	History      []Message         `json:"history"`
}
