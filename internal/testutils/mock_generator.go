package testutils

import (
	"context"
	"sync"

	"mealmind/pkg/mealtypes"
)

// MockGenerator is a scripted TextGenerator for tests. Each Generate call
// consumes the next queued reply; when the queue runs dry the last reply
// repeats. Set Err to make every call fail instead.
type MockGenerator struct {
	mu      sync.Mutex
	Replies []string
	Err     error
	Calls   [][]mealtypes.Message
	next    int
}

// NewMockGenerator returns a generator that replays the given replies in
// order.
func NewMockGenerator(replies ...string) *MockGenerator {
	return &MockGenerator{Replies: replies}
}

// Generate records the request and returns the next scripted reply.
func (m *MockGenerator) Generate(_ context.Context, messages []mealtypes.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]mealtypes.Message, len(messages))
	copy(copied, messages)
	m.Calls = append(m.Calls, copied)

	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Replies) == 0 {
		return "", nil
	}
	reply := m.Replies[min(m.next, len(m.Replies)-1)]
	m.next++
	return reply, nil
}

// ProviderName implements mealtypes.TextGenerator.
func (m *MockGenerator) ProviderName() string { return "mock" }

// IsConfigured implements mealtypes.TextGenerator.
func (m *MockGenerator) IsConfigured() bool { return true }

// CallCount returns how many Generate calls were recorded.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastPrompt returns the content of the final message of the last call, or
// the empty string when nothing was recorded.
func (m *MockGenerator) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return ""
	}
	last := m.Calls[len(m.Calls)-1]
	if len(last) == 0 {
		return ""
	}
	return last[len(last)-1].Content
}
