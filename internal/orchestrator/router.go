// Package orchestrator routes each incoming message to the handler for the
// session's current state and applies the resulting transition. All state
// mutation for a turn happens under the session's lock, so concurrent turns
// on the same session serialize while other sessions proceed.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"mealmind/internal/handlers"
	"mealmind/internal/intent"
	"mealmind/internal/logger"
	"mealmind/internal/session"
	"mealmind/pkg/mealtypes"
)

// Router is the conversation state machine. Every transition is driven by the
// handler table below plus the intent classifier for fresh sessions.
type Router struct {
	sessions *session.Store
	intents  *intent.Classifier
	handlers map[mealtypes.ConversationState]handlers.Handler
	logger   *log.Logger
}

// NewRouter wires the orchestrator over its collaborators. The handler map
// must cover NormalChat, ProfileCollection, MealSuggestion, and
// SatisfactionCheck.
func NewRouter(sessions *session.Store, intents *intent.Classifier, table map[mealtypes.ConversationState]handlers.Handler) *Router {
	return &Router{
		sessions: sessions,
		intents:  intents,
		handlers: table,
		logger:   logger.NewStyledLogger("Router"),
	}
}

// ProcessTurn handles one user message end to end and returns the session id
// (fresh when the given one was empty or expired) and the reply text.
func (r *Router) ProcessTurn(ctx context.Context, sessionID, message string) (string, string) {
	sessionID = r.ensureSession(sessionID)

	var reply string
	err := r.sessions.WithSession(sessionID, func(sess *mealtypes.Session) error {
		appendHistory(sess, "user", message)

		state := r.selectState(ctx, sess, message)
		handler, ok := r.handlers[state]
		if !ok {
			r.logger.Error("No handler for state", "state", string(state), "session", sess.ID)
			reply = "I'm sorry, I encountered an error. Please try again."
			return nil
		}

		logger.TurnEvent(sess.ID, string(sess.State), string(state))
		res := handler.Handle(ctx, sess, message)

		sess.State = state
		if res.NextState != "" {
			sess.State = res.NextState
		}

		reply = res.Reply
		appendHistory(sess, "assistant", reply)
		return nil
	})
	if errors.Is(err, mealtypes.ErrSessionNotFound) {
		// The session expired between ensure and dispatch. Start over once
		// with a fresh session rather than failing the turn.
		return r.ProcessTurn(ctx, "", message)
	}

	return sessionID, reply
}

// ensureSession returns a live session id, creating a new session when the
// given id is empty, unknown, or expired.
func (r *Router) ensureSession(id string) string {
	if id != "" {
		if _, err := r.sessions.Get(id); err == nil {
			return id
		}
	}
	sess := r.sessions.Create()
	return sess.ID
}

// selectState picks the handler state for this turn. Sessions already in a
// handler state resume in place; everything else goes through intent
// classification. A session that belongs to a known user, or whose draft is
// complete, never re-enters profile collection.
func (r *Router) selectState(ctx context.Context, sess *mealtypes.Session, message string) mealtypes.ConversationState {
	state := sess.State
	switch state {
	case mealtypes.StateNormalChat,
		mealtypes.StateProfileCollection,
		mealtypes.StateMealSuggestion,
		mealtypes.StateSatisfactionCheck:
		// Resume in place.
	default:
		switch r.intents.Classify(ctx, message) {
		case mealtypes.IntentMealRequest:
			state = mealtypes.StateProfileCollection
		default:
			state = mealtypes.StateNormalChat
		}
	}

	if state == mealtypes.StateProfileCollection && profileResolved(sess) {
		r.logger.Debug("Profile already resolved, skipping collection", "session", sess.ID)
		return mealtypes.StateMealSuggestion
	}
	return state
}

func profileResolved(sess *mealtypes.Session) bool {
	return sess.UserID != "" || sess.Profile.IsComplete()
}

// appendHistory mirrors the store's history trimming for mutations made
// inside a WithSession callback.
func appendHistory(sess *mealtypes.Session, role, content string) {
	sess.History = append(sess.History, mealtypes.Message{Role: role, Content: content, Timestamp: time.Now()})
	if len(sess.History) > session.MaxHistory {
		sess.History = sess.History[len(sess.History)-session.MaxHistory:]
	}
}

// GetSessionSummary returns a read-only view of the session, or
// ErrSessionNotFound.
func (r *Router) GetSessionSummary(id string) (*mealtypes.SessionSummary, error) {
	sess, err := r.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return &mealtypes.SessionSummary{
		ID:           sess.ID,
		State:        sess.State,
		UserID:       sess.UserID,
		Profile:      sess.Profile,
		Satisfaction: sess.Satisfaction,
		History:      sess.History,
	}, nil
}

// ClearSession drops the session, reporting whether it existed.
func (r *Router) ClearSession(id string) bool {
	return r.sessions.Clear(id)
}
