package handlers

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"mealmind/internal/logger"
	"mealmind/pkg/mealtypes"
)

const chatHistoryWindow = 10

// cannedReply pairs trigger substrings with a fixed reply used when the LLM
// is unreachable.
type cannedReply struct {
	triggers []string
	reply    string
}

var cannedReplies = []cannedReply{
	{
		triggers: []string{"hello", "hi", "hey"},
		reply:    "Hello! I'm here to help you with meal recommendations and general conversation. How can I assist you today?",
	},
	{
		triggers: []string{"how are you"},
		reply:    "I'm doing well, thank you for asking! I'm ready to help you with meal suggestions or any other questions you might have.",
	},
	{
		triggers: []string{"weather", "temperature", "rain", "sunny"},
		reply:    "I don't have access to current weather information, but I'd be happy to help you with meal recommendations or other questions!",
	},
	{
		triggers: []string{"tell me about", "who are you", "what are you"},
		reply:    "I'm an AI assistant specialized in meal recommendations and general conversation. I can help you find perfect meals based on your preferences, dietary needs, and taste preferences. What would you like to know?",
	},
}

const genericCannedReply = "I'm here to help! Feel free to ask me about meal recommendations or anything else."

// FallbackReply picks a canned reply by substring match on the lower-cased
// message. It always returns something.
func FallbackReply(message string) string {
	lower := strings.ToLower(message)
	for _, c := range cannedReplies {
		for _, trigger := range c.triggers {
			if strings.Contains(lower, trigger) {
				return c.reply
			}
		}
	}
	return genericCannedReply
}

// ChatHandler produces free-form replies with a generic persona. It is the
// safe harbor state: anything that cannot be routed elsewhere lands here.
type ChatHandler struct {
	gen     mealtypes.TextGenerator
	persona string
	logger  *log.Logger
}

// NewChatHandler creates the normal-chat handler.
func NewChatHandler(gen mealtypes.TextGenerator, persona string) *ChatHandler {
	return &ChatHandler{
		gen:     gen,
		persona: persona,
		logger:  logger.NewStyledLogger("ChatHandler"),
	}
}

// Handle sends the recent conversation to the LLM under the persona prompt.
// On failure it degrades to a canned reply and never transitions.
func (h *ChatHandler) Handle(ctx context.Context, sess *mealtypes.Session, message string) Result {
	messages := []mealtypes.Message{{Role: "system", Content: h.persona}}
	history := sess.RecentHistory(chatHistoryWindow)
	// The router records the user turn before dispatching, so the current
	// message is usually the last history entry already.
	if n := len(history); n > 0 && history[n-1].Role == "user" && history[n-1].Content == message {
		history = history[:n-1]
	}
	messages = append(messages, history...)
	messages = append(messages, mealtypes.Message{Role: "user", Content: message})

	reply, err := h.gen.Generate(ctx, messages)
	if err != nil || strings.TrimSpace(reply) == "" {
		h.logger.Warn("Chat generation failed, using canned reply", "error", err, "session", sess.ID)
		return Result{Reply: FallbackReply(message)}
	}

	return Result{Reply: reply}
}
