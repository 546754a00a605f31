package main

import (
	"fmt"

	"github.com/quantchat/quantchat/pkg/agent"
	"github.com/quantchat/quantchat/pkg/chat"
	"github.com/quantchat/quantchat/pkg/config"
	"github.com/quantchat/quantchat/pkg/events"
	"github.com/quantchat/quantchat/pkg/llm"
	"github.com/quantchat/quantchat/pkg/logging"
	"github.com/quantchat/quantchat/pkg/marketdata"
	"github.com/quantchat/quantchat/pkg/session"
)

// service is the wired application: every command builds one and picks the
// pieces it needs.
type service struct {
	cfg     *config.Config
	store   *session.Store
	bus     *events.InMemoryBus
	handler *agent.Handler
	data    *agent.DataAgent
	logger  logging.Logger
}

func buildService() (*service, error) {
	logger := logging.NewDefaultLogger()
	if verbose {
		logger = logging.NewVerboseLogger()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	counter, err := chat.NewTiktokenCounter()
	if err != nil {
		logger.Warn("tiktoken unavailable, using approximate token counting", "error", err)
		counter = nil
	}

	window := cfg.WindowFor("handler_agent")
	optimizer, err := chat.NewOptimizer(chat.Limits{
		MaxMessages: window.MaxMessages,
		MaxTokens:   window.MaxTokens,
	}, counter)
	if err != nil {
		return nil, fmt.Errorf("building optimizer: %w", err)
	}

	model, err := cfg.ModelFor("handler_agent")
	if err != nil {
		return nil, err
	}
	gen, err := llm.NewOpenAIClient(model)
	if err != nil {
		return nil, err
	}

	// the data agent falls back to the handler model when it has no
	// configuration of its own
	dataModel, err := cfg.ModelFor("data_service_agent")
	if err != nil {
		dataModel = model
	}
	dataGen, err := llm.NewOpenAIClient(dataModel)
	if err != nil {
		return nil, err
	}

	store := session.NewStore()
	bus := events.NewEventBus()
	quotes := marketdata.NewClient(cfg.TushareToken)
	if !quotes.Available() {
		logger.Warn("no tushare token configured, data agent runs without live quotes")
	}

	return &service{
		cfg:     cfg,
		store:   store,
		bus:     bus,
		handler: agent.NewHandler(gen, store, optimizer, bus),
		data:    agent.NewDataAgent(dataGen, quotes, cfg.PromptFor("data_service_agent")),
		logger:  logger,
	}, nil
}

// subscribeTelemetry logs chat and optimizer events from the bus.
func (s *service) subscribeTelemetry() {
	s.bus.Subscribe(events.ChatResponseEvent{}.Topic(), func(event any) {
		e, ok := event.(events.ChatResponseEvent)
		if !ok {
			return
		}
		if e.Error != nil {
			s.logger.Error("chat turn failed", "conversation_id", e.ConversationID, "error", e.Error)
			return
		}
		s.logger.Info("chat turn completed",
			"conversation_id", e.ConversationID,
			"intent", e.Intent,
			"response_chars", len(e.Response),
		)
	})

	s.bus.Subscribe(events.ContextOptimizedEvent{}.Topic(), func(event any) {
		e, ok := event.(events.ContextOptimizedEvent)
		if !ok {
			return
		}
		s.logger.Debug("context window optimized",
			"conversation_id", e.ConversationID,
			"messages", e.TotalMessages,
			"tokens", e.TotalTokens,
			"user_turns", e.UserTurns,
			"agent_turns", e.AgentTurns,
		)
	})
}
