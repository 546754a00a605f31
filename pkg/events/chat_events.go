package events

// ChatStartedEvent is published when the handler agent begins processing a
// user turn.
type ChatStartedEvent struct {
	ConversationID string
	UserInput      string
}

// Topic returns the event topic for chat started events.
func (e ChatStartedEvent) Topic() string {
	return "chat.started"
}

// ChatResponseEvent is published when the handler agent produced a reply (or
// failed to). Subscribers use it for history retention and telemetry.
type ChatResponseEvent struct {
	ConversationID string
	UserInput      string
	Response       string
	Intent         string
	Error          error
}

// Topic returns the event topic for chat responses.
func (e ChatResponseEvent) Topic() string {
	return "chat.response"
}

// ContextOptimizedEvent reports the optimizer's stats side-channel after a
// window was bounded for a model call.
type ContextOptimizedEvent struct {
	ConversationID string
	TotalMessages  int
	TotalTokens    int
	Directives     int
	UserTurns      int
	AgentTurns     int
}

// Topic returns the event topic for context optimization reports.
func (e ContextOptimizedEvent) Topic() string {
	return "context.optimized"
}
