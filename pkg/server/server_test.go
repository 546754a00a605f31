package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantchat/quantchat/pkg/agent"
	"github.com/quantchat/quantchat/pkg/chat"
	"github.com/quantchat/quantchat/pkg/llm"
	"github.com/quantchat/quantchat/pkg/session"
)

func newTestServer(t *testing.T, gen llm.Gen) (*Server, *session.Store) {
	t.Helper()
	store := session.NewStore()
	optimizer, err := chat.NewOptimizer(chat.Limits{MaxMessages: 500, MaxTokens: 50000}, nil)
	require.NoError(t, err)
	handler := agent.NewHandler(gen, store, optimizer, nil)
	dataAgent := agent.NewDataAgent(gen, nil, "data directive")
	return New(store, handler, dataAgent), store
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, &llm.MockGen{Response: "ok"})

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestServer_CreateAndListConversations(t *testing.T) {
	srv, _ := newTestServer(t, &llm.MockGen{Response: "ok"})

	rec := doJSON(t, srv, http.MethodPost, "/api/conversations/create", map[string]string{"title": "my chat"})
	require.Equal(t, http.StatusOK, rec.Code)
	created := decode(t, rec)
	assert.Equal(t, "my chat", created["title"])
	assert.NotEmpty(t, created["conversation_id"])
	assert.Nil(t, created["last_message_time"])

	rec = doJSON(t, srv, http.MethodGet, "/api/conversations/list", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)["conversations"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "my chat", list[0].(map[string]any)["title"])
}

func TestServer_CreateConversationDefaultTitle(t *testing.T) {
	srv, _ := newTestServer(t, &llm.MockGen{Response: "ok"})

	rec := doJSON(t, srv, http.MethodPost, "/api/conversations/create", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec)["title"], "New conversation")
}

func TestServer_SendMessage(t *testing.T) {
	srv, store := newTestServer(t, &llm.MockGen{Response: "Kweichow Moutai remains the sector leader."})
	conv := store.CreateConversation("t")

	rec := doJSON(t, srv, http.MethodPost, "/api/messages/send", map[string]string{
		"conversation_id": conv.ID,
		"message":         "analysis of 600519 please",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	assert.Equal(t, true, payload["success"])
	assert.NotEmpty(t, payload["user_message_id"])
	assert.NotEmpty(t, payload["ai_message_id"])

	aiResponse := payload["ai_response"].(map[string]any)
	assert.Equal(t, "assistant", aiResponse["role"])
	assert.Equal(t, "Kweichow Moutai remains the sector leader.", aiResponse["content"])
	assert.Equal(t, "investment_analysis", aiResponse["intent"])
}

func TestServer_SendMessageValidation(t *testing.T) {
	srv, store := newTestServer(t, &llm.MockGen{Response: "ok"})
	conv := store.CreateConversation("t")

	rec := doJSON(t, srv, http.MethodPost, "/api/messages/send", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/messages/send", map[string]string{"conversation_id": conv.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/messages/send", map[string]string{
		"conversation_id": "missing",
		"message":         "hi",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_SendMessageModelFailure(t *testing.T) {
	srv, store := newTestServer(t, &llm.MockGen{Err: errors.New("gateway timeout")})
	conv := store.CreateConversation("t")

	rec := doJSON(t, srv, http.MethodPost, "/api/messages/send", map[string]string{
		"conversation_id": conv.ID,
		"message":         "hello",
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	payload := decode(t, rec)
	assert.Equal(t, false, payload["success"])
	assert.Contains(t, payload["error"], "AI service unavailable")
}

func TestServer_ConversationMessages(t *testing.T) {
	srv, store := newTestServer(t, &llm.MockGen{Response: "reply"})
	conv := store.CreateConversation("t")

	doJSON(t, srv, http.MethodPost, "/api/messages/send", map[string]string{
		"conversation_id": conv.ID,
		"message":         "question",
	})

	rec := doJSON(t, srv, http.MethodGet, "/api/conversations/"+conv.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	messages := decode(t, rec)["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", messages[1].(map[string]any)["role"])

	rec = doJSON(t, srv, http.MethodGet, "/api/conversations/missing/messages", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_DeleteConversation(t *testing.T) {
	srv, store := newTestServer(t, &llm.MockGen{Response: "ok"})
	conv := store.CreateConversation("t")

	rec := doJSON(t, srv, http.MethodDelete, "/api/conversations/"+conv.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])

	rec = doJSON(t, srv, http.MethodDelete, "/api/conversations/"+conv.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_MessageStatus(t *testing.T) {
	srv, store := newTestServer(t, &llm.MockGen{Response: "reply"})
	conv := store.CreateConversation("t")

	send := decode(t, doJSON(t, srv, http.MethodPost, "/api/messages/send", map[string]string{
		"conversation_id": conv.ID,
		"message":         "question",
	}))

	rec := doJSON(t, srv, http.MethodGet, "/api/messages/"+send["ai_message_id"].(string)+"/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", decode(t, rec)["status"])

	rec = doJSON(t, srv, http.MethodGet, "/api/messages/missing/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_DataRequest(t *testing.T) {
	srv, _ := newTestServer(t, &llm.MockGen{Response: "data summary"})

	rec := doJSON(t, srv, http.MethodPost, "/api/data/request", map[string]string{
		"conversation_id": "c1",
		"request":         "quotes for 600519",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	assert.Equal(t, "data summary", payload["content"])
	assert.Equal(t, false, payload["cached"])

	// same request again hits the cache
	rec = doJSON(t, srv, http.MethodPost, "/api/data/request", map[string]string{
		"conversation_id": "c1",
		"request":         "quotes for 600519",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["cached"])

	rec = doJSON(t, srv, http.MethodPost, "/api/data/request", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CacheEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &llm.MockGen{Response: "data summary"})

	doJSON(t, srv, http.MethodPost, "/api/data/request", map[string]string{
		"conversation_id": "c1",
		"request":         "r1",
	})

	rec := doJSON(t, srv, http.MethodGet, "/api/data/cache/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["cache_count"])

	rec = doJSON(t, srv, http.MethodDelete, "/api/data/cache/c1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["removed"])
}
