package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quantchat/quantchat/pkg/chat"
	"github.com/quantchat/quantchat/pkg/session"
)

type conversationDTO struct {
	ConversationID  string  `json:"conversation_id"`
	Title           string  `json:"title"`
	CreatedAt       string  `json:"created_at"`
	MessageCount    int     `json:"message_count"`
	LastMessageTime *string `json:"last_message_time"`
}

type messageDTO struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp"`
	Intent         string `json:"intent,omitempty"`
}

func toConversationDTO(conv session.Conversation) conversationDTO {
	dto := conversationDTO{
		ConversationID: conv.ID,
		Title:          conv.Title,
		CreatedAt:      conv.CreatedAt.Format(time.RFC3339),
		MessageCount:   conv.MessageCount,
	}
	if !conv.LastMessageAt.IsZero() {
		last := conv.LastMessageAt.Format(time.RFC3339)
		dto.LastMessageTime = &last
	}
	return dto
}

func toMessageDTO(entry session.Entry) messageDTO {
	return messageDTO{
		MessageID:      entry.ID,
		ConversationID: entry.ConversationID,
		Role:           apiRole(entry.Role),
		Content:        entry.Content,
		Timestamp:      entry.Timestamp.Format(time.RFC3339),
		Intent:         entry.Intent,
	}
}

// apiRole maps internal roles onto the wire names chat clients expect.
func apiRole(role chat.Role) string {
	switch role {
	case chat.RoleAgent:
		return "assistant"
	case chat.RoleDirective:
		return "system"
	default:
		return "user"
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	// an empty body is fine; the title is optional
	_ = json.NewDecoder(r.Body).Decode(&body)

	if body.Title == "" {
		body.Title = fmt.Sprintf("New conversation %s", time.Now().Format("01-02 15:04"))
	}

	conv := s.store.CreateConversation(body.Title)
	s.writeJSON(w, http.StatusOK, toConversationDTO(conv))
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	conversations := s.store.ListConversations()
	dtos := make([]conversationDTO, 0, len(conversations))
	for _, conv := range conversations {
		dtos = append(dtos, toConversationDTO(conv))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"conversations": dtos})
}

func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	entries, err := s.store.Entries(conversationID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	dtos := make([]messageDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, toMessageDTO(entry))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"messages":        dtos,
	})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	if !s.store.DeleteConversation(conversationID) {
		s.writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if s.data != nil {
		s.data.ClearCache(conversationID)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ConversationID string `json:"conversation_id"`
		Message        string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.ConversationID == "" || body.Message == "" {
		s.writeError(w, http.StatusBadRequest, "conversation_id and message are required")
		return
	}
	if _, ok := s.store.GetConversation(body.ConversationID); !ok {
		s.writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	reply, err := s.chat.ProcessMessage(r.Context(), body.ConversationID, body.Message)
	if err != nil {
		s.logger.Error("processing message", "conversation_id", body.ConversationID, "error", err)
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"success":         false,
			"error":           fmt.Sprintf("AI service unavailable: %v", err),
			"conversation_id": body.ConversationID,
		})
		return
	}

	aiEntry, _ := s.store.GetEntry(reply.MessageID)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"conversation_id": reply.ConversationID,
		"user_message_id": reply.UserMessageID,
		"ai_message_id":   reply.MessageID,
		"ai_response":     toMessageDTO(aiEntry),
	})
}

func (s *Server) handleMessageStatus(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")

	entry, ok := s.store.GetEntry(messageID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "message not found")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"message_id": entry.ID,
		"status":     "completed",
		"progress":   100,
	})
}

func (s *Server) handleDataRequest(w http.ResponseWriter, r *http.Request) {
	if s.data == nil {
		s.writeError(w, http.StatusServiceUnavailable, "data service not configured")
		return
	}

	var body struct {
		ConversationID string `json:"conversation_id"`
		Request        string `json:"request"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Request == "" {
		s.writeError(w, http.StatusBadRequest, "request is required")
		return
	}

	result, err := s.data.ProcessDataRequest(r.Context(), body.ConversationID, body.Request)
	if err != nil {
		s.logger.Error("processing data request", "error", err)
		s.writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("data service unavailable: %v", err))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"content":   result.Content,
		"ts_code":   result.TSCode,
		"cached":    result.Cached,
		"timestamp": result.Timestamp.Format(time.RFC3339),
	})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if s.data == nil {
		s.writeError(w, http.StatusServiceUnavailable, "data service not configured")
		return
	}

	conversationID := chi.URLParam(r, "conversationID")
	removed := s.data.ClearCache(conversationID)
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "removed": removed})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.data == nil {
		s.writeError(w, http.StatusServiceUnavailable, "data service not configured")
		return
	}
	s.writeJSON(w, http.StatusOK, s.data.CacheStats())
}
