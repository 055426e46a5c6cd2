// Package handlers implements the per-state turn logic: normal chat, profile
// collection, meal suggestion, and the satisfaction check. Each handler takes
// the session and the user message and returns a reply plus an optional state
// transition. Handlers never return errors to the caller; collaborator
// failures degrade to safe replies with the session left unchanged.
package handlers

import (
	"context"

	"mealmind/pkg/mealtypes"
)

// Result is a handler's outcome for one turn. An empty NextState means the
// session stays where it is.
type Result struct {
	Reply     string
	NextState mealtypes.ConversationState
}

// Handler implements the behavior of one conversation state.
type Handler interface {
	Handle(ctx context.Context, sess *mealtypes.Session, message string) Result
}

// apologyReply is the fixed fallback when a collaborator fails in a way no
// handler-specific degradation covers.
const apologyReply = "I'm sorry, I encountered an error. Please try again."
