package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantchat/quantchat/pkg/chat"
)

// Conversation is the durable header for one chat thread.
type Conversation struct {
	ID            string
	Title         string
	CreatedAt     time.Time
	MessageCount  int
	LastMessageAt time.Time
}

// Entry is one stored message inside a conversation. Entries are the durable
// history; per-turn context windows are assembled from them and never stored
// back.
type Entry struct {
	ID             string
	ConversationID string
	Role           chat.Role
	Content        string
	Intent         string
	Timestamp      time.Time
}

// Store keeps conversations and their messages in memory, guarded for
// concurrent HTTP handlers.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	entries       map[string][]Entry
	entryIndex    map[string]Entry
	creationSeq   map[string]int
	nextSeq       int
	now           func() time.Time
}

// NewStore creates an empty conversation store.
func NewStore() *Store {
	return &Store{
		conversations: make(map[string]*Conversation),
		entries:       make(map[string][]Entry),
		entryIndex:    make(map[string]Entry),
		creationSeq:   make(map[string]int),
		now:           time.Now,
	}
}

// CreateConversation registers a new conversation and returns its header.
func (s *Store) CreateConversation(title string) Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := &Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: s.now(),
	}
	s.conversations[conv.ID] = conv
	s.creationSeq[conv.ID] = s.nextSeq
	s.nextSeq++
	return *conv
}

// GetConversation returns a conversation header by ID.
func (s *Store) GetConversation(id string) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return Conversation{}, false
	}
	return *conv, true
}

// ListConversations returns all conversations, newest first.
func (s *Store) ListConversations() []Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		list = append(list, *conv)
	}
	sort.Slice(list, func(i, j int) bool {
		return s.creationSeq[list[i].ID] > s.creationSeq[list[j].ID]
	})
	return list
}

// DeleteConversation removes a conversation and all of its messages.
func (s *Store) DeleteConversation(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return false
	}
	for _, entry := range s.entries[id] {
		delete(s.entryIndex, entry.ID)
	}
	delete(s.conversations, id)
	delete(s.entries, id)
	delete(s.creationSeq, id)
	return true
}

// AppendEntry stores a message at the end of a conversation.
func (s *Store) AppendEntry(conversationID string, role chat.Role, content, intent string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return Entry{}, fmt.Errorf("conversation %s not found", conversationID)
	}

	entry := Entry{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Intent:         intent,
		Timestamp:      s.now(),
	}
	s.entries[conversationID] = append(s.entries[conversationID], entry)
	s.entryIndex[entry.ID] = entry
	conv.MessageCount++
	conv.LastMessageAt = entry.Timestamp
	return entry, nil
}

// Entries returns a conversation's messages in chronological order.
func (s *Store) Entries(conversationID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, fmt.Errorf("conversation %s not found", conversationID)
	}
	entries := make([]Entry, len(s.entries[conversationID]))
	copy(entries, s.entries[conversationID])
	return entries, nil
}

// GetEntry looks up a single message by ID.
func (s *Store) GetEntry(messageID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entryIndex[messageID]
	return entry, ok
}

// History maps a conversation's stored messages into a chronological slice
// ready for window assembly. Unknown conversations yield an empty history;
// a fresh thread is not an error.
func (s *Store) History(conversationID string) []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.entries[conversationID]
	history := make([]chat.Message, 0, len(stored))
	for _, entry := range stored {
		history = append(history, chat.Message{
			Role:    entry.Role,
			Content: entry.Content,
		})
	}
	return history
}
