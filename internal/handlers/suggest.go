package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"mealmind/internal/logger"
	"mealmind/pkg/mealtypes"
)

// truncate limit for the prior suggestion echoed back into the avoid clause.
const priorSuggestionExcerpt = 100

// SuggestHandler builds a personalized meal suggestion from the resolved
// profile, optionally enriched with live recipe search results.
type SuggestHandler struct {
	gen         mealtypes.TextGenerator
	users       mealtypes.UserStore
	recipes     mealtypes.RecipeSearch
	instruction string
	logger      *log.Logger
}

// NewSuggestHandler creates the meal-suggestion handler. recipes may be nil,
// in which case suggestions rely on the model alone.
func NewSuggestHandler(gen mealtypes.TextGenerator, users mealtypes.UserStore, recipes mealtypes.RecipeSearch, instruction string) *SuggestHandler {
	return &SuggestHandler{
		gen:         gen,
		users:       users,
		recipes:     recipes,
		instruction: instruction,
		logger:      logger.NewStyledLogger("SuggestHandler"),
	}
}

// Handle suggests a meal for the session's profile. The suggestion is stored
// on the session and the conversation moves on to the satisfaction check.
func (h *SuggestHandler) Handle(ctx context.Context, sess *mealtypes.Session, message string) Result {
	draft, ok := h.resolveProfile(ctx, sess)
	if !ok {
		return Result{Reply: "I need to collect your profile information first. Let me help you with that."}
	}

	messages := []mealtypes.Message{
		{Role: "system", Content: h.buildInstruction(ctx, draft, sess)},
		{Role: "user", Content: message},
	}

	reply, err := h.gen.Generate(ctx, messages)
	if err != nil || strings.TrimSpace(reply) == "" {
		h.logger.Warn("Meal suggestion call failed", "error", err, "session", sess.ID)
		return Result{Reply: "I'm sorry, I encountered an error while suggesting meals. Please try again."}
	}

	sess.Meal.LastSuggestion = reply
	sess.Satisfaction = mealtypes.Satisfaction{Level: mealtypes.SatisfactionUnknown}

	return Result{
		Reply:     reply,
		NextState: mealtypes.StateSatisfactionCheck,
	}
}

// resolveProfile prefers the persisted record over the session draft. A
// session with neither cannot be served here.
func (h *SuggestHandler) resolveProfile(ctx context.Context, sess *mealtypes.Session) (mealtypes.ProfileDraft, bool) {
	if sess.UserID != "" {
		record, err := h.users.FindByID(ctx, sess.UserID)
		if err == nil {
			return record.Draft(), true
		}
		h.logger.Warn("Stored profile lookup failed, trying session draft", "error", err, "session", sess.ID)
	}
	if sess.Profile.IsComplete() {
		return sess.Profile, true
	}
	return mealtypes.ProfileDraft{}, false
}

func (h *SuggestHandler) buildInstruction(ctx context.Context, draft mealtypes.ProfileDraft, sess *mealtypes.Session) string {
	var sb strings.Builder
	sb.WriteString(h.instruction)
	sb.WriteString("\n\nUSER PROFILE:\n")
	fmt.Fprintf(&sb, "- Name: %s\n- Age: %d\n", draft.Name, draft.Age)
	if v, ok := draft.BMI(); ok {
		fmt.Fprintf(&sb, "- BMI: %s (%s)\n", mealtypes.FormatBMI(v), mealtypes.BMICategory(v))
	}
	fmt.Fprintf(&sb, "- Primary cuisine: %s\n", draft.PrimaryCuisine)
	if draft.SecondaryCuisine != "" {
		fmt.Fprintf(&sb, "- Secondary cuisine: %s\n", draft.SecondaryCuisine)
	}
	if len(draft.Conditions) > 0 {
		sb.WriteString("- Medical conditions:\n")
		for _, c := range draft.Conditions {
			fmt.Fprintf(&sb, "  - %s (%s)\n", c.Condition, c.Intensity)
		}
	} else {
		sb.WriteString("- Medical conditions: none\n")
	}

	prior := sess.Meal.LastSuggestion
	if prior != "" && sess.Satisfaction.Level == mealtypes.NotSatisfied && wantsNew(sess.Satisfaction) {
		excerpt := prior
		if runes := []rune(excerpt); len(runes) > priorSuggestionExcerpt {
			excerpt = string(runes[:priorSuggestionExcerpt]) + "..."
		}
		sb.WriteString("\nIMPORTANT: The user was dissatisfied with the previous suggestion. Provide a DIFFERENT meal.\n")
		fmt.Fprintf(&sb, "Previous suggestion was: %s\n", excerpt)
		sb.WriteString("Suggest something different in cuisine, ingredients, or cooking style.\n")
	}

	if h.recipes != nil {
		query := "healthy " + string(mealtypes.Dinner) + " ideas"
		if results := h.recipes.Search(ctx, query, draft.PrimaryCuisine); results != "" {
			sb.WriteString("\nRECIPE SEARCH RESULTS:\n")
			sb.WriteString(results)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func wantsNew(s mealtypes.Satisfaction) bool {
	return s.WantsNew != nil && *s.WantsNew
}
