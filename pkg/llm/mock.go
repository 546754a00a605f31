package llm

import (
	"context"
	"sync"

	"github.com/quantchat/quantchat/pkg/chat"
)

var _ Gen = (*MockGen)(nil)

// MockGen is a Gen stub for tests. It records every window it receives and
// returns the configured response or error.
type MockGen struct {
	mu       sync.Mutex
	Response string
	Err      error
	Windows  [][]chat.Message
}

// GenerateContent records the window and returns the canned response.
func (m *MockGen) GenerateContent(_ context.Context, window []chat.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]chat.Message, len(window))
	copy(copied, window)
	m.Windows = append(m.Windows, copied)

	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// CallCount returns how many generations were requested.
func (m *MockGen) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Windows)
}

// LastWindow returns the most recent window, or nil if none were recorded.
func (m *MockGen) LastWindow() []chat.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Windows) == 0 {
		return nil
	}
	return m.Windows[len(m.Windows)-1]
}
