// Package intent labels incoming messages as meal requests or general chat.
// The LLM call and the label parsing are separated so the parse logic is
// testable without any network.
package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"mealmind/internal/logger"
	"mealmind/pkg/mealtypes"
)

// ParseLabel converts raw classifier output into an intent. Matching is a
// case-insensitive substring check; a reply naming both labels, or neither,
// is unclear.
func ParseLabel(raw string) mealtypes.Intent {
	s := strings.ToLower(raw)
	hasMeal := strings.Contains(s, "meal_request")
	hasChat := strings.Contains(s, "normal_chat")
	switch {
	case hasMeal && !hasChat:
		return mealtypes.IntentMealRequest
	case hasChat && !hasMeal:
		return mealtypes.IntentNormalChat
	default:
		return mealtypes.IntentUnclear
	}
}

// Classifier wraps a text generator with the fixed intent instruction.
type Classifier struct {
	gen         mealtypes.TextGenerator
	instruction string
	logger      *log.Logger
}

// NewClassifier creates an intent classifier using the given generator and
// instruction text.
func NewClassifier(gen mealtypes.TextGenerator, instruction string) *Classifier {
	return &Classifier{
		gen:         gen,
		instruction: instruction,
		logger:      logger.NewStyledLogger("IntentClassifier"),
	}
}

// Classify labels a message as a meal request or normal chat. Any failure of
// the external call, and any unclear label, default to normal chat: never
// promise the meal flow on uncertain input.
func (c *Classifier) Classify(ctx context.Context, message string) mealtypes.Intent {
	prompt := fmt.Sprintf("%s\n\nUser message: %q", c.instruction, message)
	raw, err := c.gen.Generate(ctx, []mealtypes.Message{{Role: "user", Content: prompt}})
	if err != nil {
		c.logger.Warn("Intent classification failed, defaulting to normal chat", "error", err)
		return mealtypes.IntentNormalChat
	}

	label := ParseLabel(raw)
	if label == mealtypes.IntentUnclear {
		c.logger.Debug("Unclear intent label", "raw", raw)
		return mealtypes.IntentNormalChat
	}
	c.logger.Debug("Intent classified", "intent", string(label))
	return label
}
