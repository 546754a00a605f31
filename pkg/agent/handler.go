package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantchat/quantchat/pkg/chat"
	"github.com/quantchat/quantchat/pkg/events"
	"github.com/quantchat/quantchat/pkg/llm"
	"github.com/quantchat/quantchat/pkg/logging"
	"github.com/quantchat/quantchat/pkg/session"
)

// Reply is the handler's answer to one user turn, with the IDs of the two
// entries it appended to the conversation.
type Reply struct {
	ConversationID string
	UserMessageID  string
	MessageID      string
	Content        string
	Intent         string
	Timestamp      time.Time
}

// Handler drives a user turn end to end: classify intent, persist the user
// message, assemble and bound the context window, call the model, persist and
// return the reply.
type Handler struct {
	gen       llm.Gen
	store     *session.Store
	optimizer *chat.Optimizer
	publisher events.Publisher
	logger    logging.Logger
}

// NewHandler wires the handler agent. A nil publisher disables telemetry
// events.
func NewHandler(gen llm.Gen, store *session.Store, optimizer *chat.Optimizer, publisher events.Publisher) *Handler {
	if publisher == nil {
		publisher = &events.NoOpPublisher{}
	}
	return &Handler{
		gen:       gen,
		store:     store,
		optimizer: optimizer,
		publisher: publisher,
		logger:    logging.NewComponentLogger("handler"),
	}
}

// ProcessMessage handles one user turn in the conversation. The user message
// is stored even when generation fails, so a retry sees the full history.
func (h *Handler) ProcessMessage(ctx context.Context, conversationID, userInput string) (Reply, error) {
	if userInput == "" {
		return Reply{}, errors.New("empty user input")
	}

	started := events.ChatStartedEvent{ConversationID: conversationID, UserInput: userInput}
	h.publisher.Publish(started.Topic(), started)

	intent := ClassifyIntent(userInput)
	h.logger.Debug("classified intent", "conversation_id", conversationID, "intent", intent)

	userEntry, err := h.store.AppendEntry(conversationID, chat.RoleUser, userInput, string(intent))
	if err != nil {
		return Reply{}, fmt.Errorf("storing user message: %w", err)
	}

	window := h.buildWindow(conversationID, intent)

	content, err := h.gen.GenerateContent(ctx, window)
	if err != nil {
		h.publishResponse(conversationID, userInput, "", intent, err)
		return Reply{}, fmt.Errorf("generating response: %w", err)
	}

	agentEntry, err := h.store.AppendEntry(conversationID, chat.RoleAgent, content, string(intent))
	if err != nil {
		return Reply{}, fmt.Errorf("storing response: %w", err)
	}

	h.publishResponse(conversationID, userInput, content, intent, nil)

	return Reply{
		ConversationID: conversationID,
		UserMessageID:  userEntry.ID,
		MessageID:      agentEntry.ID,
		Content:        content,
		Intent:         string(intent),
		Timestamp:      agentEntry.Timestamp,
	}, nil
}

// buildWindow assembles directive plus history and bounds it to the
// configured limits, reporting the optimized window's stats as telemetry.
func (h *Handler) buildWindow(conversationID string, intent Intent) []chat.Message {
	messages := make([]chat.Message, 0, 1)
	messages = append(messages, chat.Message{Role: chat.RoleDirective, Content: intent.Directive()})
	messages = append(messages, h.store.History(conversationID)...)

	window := h.optimizer.Optimize(chat.NewWindow(messages))

	stats := h.optimizer.Stats(window)
	h.publisher.Publish(events.ContextOptimizedEvent{}.Topic(), events.ContextOptimizedEvent{
		ConversationID: conversationID,
		TotalMessages:  stats.TotalMessages,
		TotalTokens:    stats.TotalTokens,
		Directives:     stats.Directives,
		UserTurns:      stats.UserTurns,
		AgentTurns:     stats.AgentTurns,
	})
	h.logger.Debug("window optimized",
		"conversation_id", conversationID,
		"messages", stats.TotalMessages,
		"tokens", stats.TotalTokens,
	)
	return window
}

func (h *Handler) publishResponse(conversationID, userInput, response string, intent Intent, err error) {
	event := events.ChatResponseEvent{
		ConversationID: conversationID,
		UserInput:      userInput,
		Response:       response,
		Intent:         string(intent),
		Error:          err,
	}
	h.publisher.Publish(event.Topic(), event)
}
