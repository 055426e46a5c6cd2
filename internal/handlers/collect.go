package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"mealmind/internal/logger"
	"mealmind/internal/profile"
	"mealmind/pkg/mealtypes"
)

// CollectHandler runs onboarding: each turn it asks the LLM to extract
// profile fields from the message and merges them into the session draft.
// A recognized returning user skips the rest of collection entirely.
type CollectHandler struct {
	gen         mealtypes.TextGenerator
	users       mealtypes.UserStore
	instruction string
	logger      *log.Logger
}

// NewCollectHandler creates the profile-collection handler.
func NewCollectHandler(gen mealtypes.TextGenerator, users mealtypes.UserStore, instruction string) *CollectHandler {
	return &CollectHandler{
		gen:         gen,
		users:       users,
		instruction: instruction,
		logger:      logger.NewStyledLogger("CollectHandler"),
	}
}

// Handle extracts fields from the message and advances the draft. The state
// moves to meal suggestion only when a returning user is matched by name or
// the draft completes and is persisted.
func (h *CollectHandler) Handle(ctx context.Context, sess *mealtypes.Session, message string) Result {
	reply, err := h.gen.Generate(ctx, h.buildMessages(sess, message))
	if err != nil {
		h.logger.Warn("Profile extraction call failed", "error", err, "session", sess.ID)
		return Result{Reply: "I'm sorry, I'm having trouble right now. Could you tell me that again?"}
	}

	parsed, err := profile.ParseReply(reply)
	if err != nil {
		// No usable structured block. The draft stays untouched so a bad
		// extraction can never complete a profile.
		h.logger.Debug("Reply carried no extraction block", "session", sess.ID)
		if errors.Is(err, mealtypes.ErrMalformedExtraction) && strings.TrimSpace(parsed.Response) != "" {
			return Result{Reply: parsed.Response}
		}
		return Result{Reply: "Could you tell me a bit more about yourself? I'd like your name, age, height, weight, and favorite cuisine."}
	}

	// A first-seen name may belong to a user we already know.
	if parsed.Extraction.Name != nil && sess.Profile.Name == "" {
		name := strings.TrimSpace(*parsed.Extraction.Name)
		if name != "" {
			record, err := h.users.FindByName(ctx, name)
			switch {
			case err == nil:
				sess.Profile = record.Draft()
				sess.UserID = record.ID
				h.logger.Info("Returning user recognized", "session", sess.ID, "user_id", record.ID)
				return Result{
					Reply:     h.welcomeBack(record),
					NextState: mealtypes.StateMealSuggestion,
				}
			case errors.Is(err, mealtypes.ErrUserNotFound):
				// New user, keep collecting.
			default:
				h.logger.Warn("User lookup failed", "error", err, "session", sess.ID)
				return Result{Reply: apologyReply}
			}
		}
	}

	sess.Profile = profile.Merge(sess.Profile, parsed.Extraction)

	if sess.Profile.IsComplete() && sess.UserID == "" {
		id, err := h.users.Create(ctx, sess.Profile)
		if err != nil {
			h.logger.Error("Failed to persist new user", "error", err, "session", sess.ID)
			return Result{Reply: apologyReply}
		}
		sess.UserID = id
		h.logger.Info("New user persisted", "session", sess.ID, "user_id", id)
		return Result{
			Reply:     parsed.Response,
			NextState: mealtypes.StateMealSuggestion,
		}
	}

	return Result{Reply: parsed.Response}
}

func (h *CollectHandler) buildMessages(sess *mealtypes.Session, message string) []mealtypes.Message {
	draft, _ := json.Marshal(sess.Profile)
	prompt := fmt.Sprintf("Current profile draft: %s\nUser message: %s", draft, message)
	return []mealtypes.Message{
		{Role: "system", Content: h.instruction},
		{Role: "user", Content: prompt},
	}
}

func (h *CollectHandler) welcomeBack(record *mealtypes.UserRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Welcome back, %s! I remember your preferences", record.Name)
	if record.PrimaryCuisine != "" {
		fmt.Fprintf(&sb, ", including your love of %s cuisine", record.PrimaryCuisine)
	}
	sb.WriteString(". Let me suggest a meal for you.")
	return sb.String()
}
