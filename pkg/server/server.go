package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/quantchat/quantchat/pkg/agent"
	"github.com/quantchat/quantchat/pkg/logging"
	"github.com/quantchat/quantchat/pkg/session"
)

// ChatAgent handles one user turn end to end.
type ChatAgent interface {
	ProcessMessage(ctx context.Context, conversationID, userInput string) (agent.Reply, error)
}

// DataService serves data-centric instructions.
type DataService interface {
	ProcessDataRequest(ctx context.Context, conversationID, request string) (agent.DataResult, error)
	ClearCache(conversationID string) int
	CacheStats() map[string]any
}

// Server exposes the chat service over HTTP.
type Server struct {
	store  *session.Store
	chat   ChatAgent
	data   DataService
	logger logging.Logger
	router chi.Router
}

// New builds the HTTP server. data may be nil; the data endpoints then
// respond 503.
func New(store *session.Store, chatAgent ChatAgent, data DataService) *Server {
	s := &Server{
		store:  store,
		chat:   chatAgent,
		data:   data,
		logger: logging.NewComponentLogger("server"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(120 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/conversations/create", s.handleCreateConversation)
		r.Get("/conversations/list", s.handleListConversations)
		r.Get("/conversations/{conversationID}/messages", s.handleConversationMessages)
		r.Delete("/conversations/{conversationID}", s.handleDeleteConversation)

		r.Post("/messages/send", s.handleSendMessage)
		r.Get("/messages/{messageID}/status", s.handleMessageStatus)

		r.Post("/data/request", s.handleDataRequest)
		r.Delete("/data/cache/{conversationID}", s.handleClearCache)
		r.Get("/data/cache/stats", s.handleCacheStats)
	})

	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the server until the context is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
