package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"mealmind/internal/logger"
	"mealmind/pkg/mealtypes"
)

var retryKeywords = []string{"try again", "different", "another", "new meal"}

var greetingKeywords = []string{"hello", "hi", "how are you", "what can you do"}

// ParseSentimentLabel converts raw classifier output into a satisfaction
// level. NOT_SATISFIED must be checked before SATISFIED: the former contains
// the latter as a substring.
func ParseSentimentLabel(raw string) mealtypes.SatisfactionLevel {
	s := strings.ToUpper(raw)
	switch {
	case strings.Contains(s, "NOT_SATISFIED"):
		return mealtypes.NotSatisfied
	case strings.Contains(s, "SATISFIED"):
		return mealtypes.Satisfied
	default:
		return mealtypes.SatisfactionNeutral
	}
}

// ParseWantsNewLabel reads a YES/NO classifier reply. Anything that does not
// clearly say yes counts as no.
func ParseWantsNewLabel(raw string) bool {
	return strings.Contains(strings.ToUpper(raw), "YES")
}

// RetryRequested reports whether the message explicitly asks for another
// suggestion.
func RetryRequested(message string) bool {
	return containsAny(strings.ToLower(message), retryKeywords)
}

// GreetingLike reports whether the message reads like a conversation opener
// rather than meal feedback.
func GreetingLike(message string) bool {
	return containsAny(strings.ToLower(message), greetingKeywords)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// MealTimeFor maps a wall-clock hour onto the nearest meal slot.
func MealTimeFor(t time.Time) mealtypes.MealTime {
	switch h := t.Hour(); {
	case h >= 5 && h < 11:
		return mealtypes.Breakfast
	case h >= 11 && h < 16:
		return mealtypes.Lunch
	case h >= 16 && h < 22:
		return mealtypes.Dinner
	default:
		return mealtypes.Snack
	}
}

var cookingTips = map[string]map[mealtypes.MealTime]string{
	"indian": {
		mealtypes.Breakfast: "Pro tip: Toast the spices lightly before adding to enhance their flavor!",
		mealtypes.Lunch:     "Pro tip: Let the chicken marinate for at least 30 minutes for maximum flavor absorption!",
		mealtypes.Dinner:    "Pro tip: Soak lentils overnight for faster cooking and better texture!",
	},
	"italian": {
		mealtypes.Breakfast: "Pro tip: Use fresh herbs for the best flavor in your morning dishes!",
		mealtypes.Lunch:     "Pro tip: Cook pasta al dente and finish it in the sauce for perfect texture!",
		mealtypes.Dinner:    "Pro tip: Let your sauce simmer slowly to develop rich, deep flavors!",
	},
	"chinese": {
		mealtypes.Breakfast: "Pro tip: High heat and quick cooking preserve the crisp texture of vegetables!",
		mealtypes.Lunch:     "Pro tip: Marinate proteins briefly before stir-frying for tender results!",
		mealtypes.Dinner:    "Pro tip: Add aromatics like ginger and garlic at the end to preserve their fragrance!",
	},
}

const defaultCookingTip = "Pro tip: Taste and adjust seasoning as you cook!"

// CookingTip returns a tip for the cuisine and meal slot, falling back to a
// generic one for cuisines the table does not cover.
func CookingTip(cuisine string, slot mealtypes.MealTime) string {
	if bySlot, ok := cookingTips[strings.ToLower(cuisine)]; ok {
		if tip, ok := bySlot[slot]; ok {
			return tip
		}
	}
	return defaultCookingTip
}

// SatisfactionHandler classifies the user's reaction to the last suggestion
// and routes the conversation accordingly. It makes at most two LLM calls
// per turn: one for sentiment, one (only after dissatisfaction) for whether
// the user wants another suggestion.
type SatisfactionHandler struct {
	gen             mealtypes.TextGenerator
	sentimentPrompt string
	wantsNewPrompt  string
	now             func() time.Time
	logger          *log.Logger
}

// NewSatisfactionHandler creates the satisfaction-check handler.
func NewSatisfactionHandler(gen mealtypes.TextGenerator, sentimentPrompt, wantsNewPrompt string) *SatisfactionHandler {
	return &SatisfactionHandler{
		gen:             gen,
		sentimentPrompt: sentimentPrompt,
		wantsNewPrompt:  wantsNewPrompt,
		now:             time.Now,
		logger:          logger.NewStyledLogger("SatisfactionHandler"),
	}
}

// SetClock replaces the wall clock used for cooking tips. Tests use this to
// pin the meal slot.
func (h *SatisfactionHandler) SetClock(now func() time.Time) {
	h.now = now
}

// Handle records the classified satisfaction on the session and applies the
// transition rules. A neutral reading without keyword hints leaves the state
// unchanged so the next message re-enters the same check.
func (h *SatisfactionHandler) Handle(ctx context.Context, sess *mealtypes.Session, message string) Result {
	level := h.classifySentiment(ctx, message)
	sess.Satisfaction = mealtypes.Satisfaction{Level: level}

	switch level {
	case mealtypes.Satisfied:
		cuisine := sess.Profile.PrimaryCuisine
		tip := CookingTip(cuisine, MealTimeFor(h.now()))
		return Result{
			Reply:     fmt.Sprintf("Wonderful! %s Enjoy your meal! Feel free to ask for more suggestions anytime.", tip),
			NextState: mealtypes.StateNormalChat,
		}

	case mealtypes.NotSatisfied:
		wants := h.classifyWantsNew(ctx, message)
		sess.Satisfaction.WantsNew = &wants
		if wants {
			return Result{
				Reply:     "I understand you're not satisfied with this suggestion. Let me find you something different!",
				NextState: mealtypes.StateMealSuggestion,
			}
		}
		return Result{
			Reply:     "No problem at all. I'm here whenever you'd like another meal idea or just want to chat.",
			NextState: mealtypes.StateNormalChat,
		}

	default:
		if RetryRequested(message) {
			return Result{
				Reply:     "Sure, let me suggest a different meal for you!",
				NextState: mealtypes.StateMealSuggestion,
			}
		}
		if GreetingLike(message) {
			return Result{
				Reply:     "Happy to chat! Let me know anytime you'd like another meal suggestion.",
				NextState: mealtypes.StateNormalChat,
			}
		}
		return Result{Reply: "Are you happy with this meal suggestion? I'd love to hear what you think."}
	}
}

func (h *SatisfactionHandler) classifySentiment(ctx context.Context, message string) mealtypes.SatisfactionLevel {
	prompt := fmt.Sprintf("%s\n\nUser message: %q", h.sentimentPrompt, message)
	raw, err := h.gen.Generate(ctx, []mealtypes.Message{{Role: "user", Content: prompt}})
	if err != nil {
		h.logger.Warn("Sentiment classification failed, defaulting to neutral", "error", err)
		return mealtypes.SatisfactionNeutral
	}
	return ParseSentimentLabel(raw)
}

func (h *SatisfactionHandler) classifyWantsNew(ctx context.Context, message string) bool {
	prompt := fmt.Sprintf("%s\n\nUser message: %q", h.wantsNewPrompt, message)
	raw, err := h.gen.Generate(ctx, []mealtypes.Message{{Role: "user", Content: prompt}})
	if err != nil {
		// Offering a fresh suggestion is the safer default.
		h.logger.Warn("Wants-new classification failed, defaulting to yes", "error", err)
		return true
	}
	return ParseWantsNewLabel(raw)
}
