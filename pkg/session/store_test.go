package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantchat/quantchat/pkg/chat"
)

func TestStore_CreateAndGetConversation(t *testing.T) {
	store := NewStore()

	conv := store.CreateConversation("portfolio review")
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, "portfolio review", conv.Title)
	assert.Equal(t, 0, conv.MessageCount)
	assert.False(t, conv.CreatedAt.IsZero())

	got, ok := store.GetConversation(conv.ID)
	require.True(t, ok)
	assert.Equal(t, conv.ID, got.ID)

	_, ok = store.GetConversation("missing")
	assert.False(t, ok)
}

func TestStore_ListConversationsNewestFirst(t *testing.T) {
	store := NewStore()

	first := store.CreateConversation("first")
	second := store.CreateConversation("second")
	third := store.CreateConversation("third")

	list := store.ListConversations()
	require.Len(t, list, 3)
	assert.Equal(t, third.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
	assert.Equal(t, first.ID, list[2].ID)
}

func TestStore_AppendEntryUpdatesHeader(t *testing.T) {
	store := NewStore()
	conv := store.CreateConversation("t")

	entry, err := store.AppendEntry(conv.ID, chat.RoleUser, "analyze 600519", "investment")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, conv.ID, entry.ConversationID)
	assert.Equal(t, chat.RoleUser, entry.Role)
	assert.Equal(t, "investment", entry.Intent)

	header, ok := store.GetConversation(conv.ID)
	require.True(t, ok)
	assert.Equal(t, 1, header.MessageCount)
	assert.WithinDuration(t, time.Now(), header.LastMessageAt, time.Minute)

	_, err = store.AppendEntry("missing", chat.RoleUser, "hi", "")
	assert.Error(t, err)
}

func TestStore_EntriesAndGetEntry(t *testing.T) {
	store := NewStore()
	conv := store.CreateConversation("t")

	user, err := store.AppendEntry(conv.ID, chat.RoleUser, "question", "")
	require.NoError(t, err)
	agent, err := store.AppendEntry(conv.ID, chat.RoleAgent, "answer", "")
	require.NoError(t, err)

	entries, err := store.Entries(conv.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, user.ID, entries[0].ID)
	assert.Equal(t, agent.ID, entries[1].ID)

	got, ok := store.GetEntry(agent.ID)
	require.True(t, ok)
	assert.Equal(t, "answer", got.Content)

	_, err = store.Entries("missing")
	assert.Error(t, err)
}

func TestStore_HistoryMapsRolesInOrder(t *testing.T) {
	store := NewStore()
	conv := store.CreateConversation("t")

	_, err := store.AppendEntry(conv.ID, chat.RoleUser, "what is drawdown?", "")
	require.NoError(t, err)
	_, err = store.AppendEntry(conv.ID, chat.RoleAgent, "peak-to-trough decline", "")
	require.NoError(t, err)

	history := store.History(conv.ID)
	require.Len(t, history, 2)
	assert.Equal(t, chat.Message{Role: chat.RoleUser, Content: "what is drawdown?"}, history[0])
	assert.Equal(t, chat.Message{Role: chat.RoleAgent, Content: "peak-to-trough decline"}, history[1])

	assert.Empty(t, store.History("missing"))
}

func TestStore_DeleteConversation(t *testing.T) {
	store := NewStore()
	conv := store.CreateConversation("t")
	entry, err := store.AppendEntry(conv.ID, chat.RoleUser, "bye", "")
	require.NoError(t, err)

	require.True(t, store.DeleteConversation(conv.ID))
	_, ok := store.GetConversation(conv.ID)
	assert.False(t, ok)
	_, ok = store.GetEntry(entry.ID)
	assert.False(t, ok)

	assert.False(t, store.DeleteConversation(conv.ID))
}
