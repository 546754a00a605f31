package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

const defaultCacheCapacity = 256

// RequestCache remembers data-agent results per conversation so repeated
// requests inside a session skip the model and the data fetch. Eviction is
// FIFO once the capacity is reached.
type RequestCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]DataResult
	order    []string
}

// NewRequestCache builds a cache; capacity <= 0 selects the default.
func NewRequestCache(capacity int) *RequestCache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &RequestCache{
		capacity: capacity,
		entries:  make(map[string]DataResult),
	}
}

func cacheKey(conversationID, request string) string {
	sum := sha256.Sum256([]byte(request))
	return conversationID + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached result for a request within a conversation.
func (c *RequestCache) Get(conversationID, request string) (DataResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, ok := c.entries[cacheKey(conversationID, request)]
	return result, ok
}

// Put stores a result, evicting the oldest entry when full.
func (c *RequestCache) Put(conversationID, request string, result DataResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(conversationID, request)
	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = result
}

// Clear drops every cached result in place and returns how many were
// removed. Resetting in place keeps concurrent readers on the same cache.
func (c *RequestCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := len(c.entries)
	c.entries = make(map[string]DataResult)
	c.order = c.order[:0]
	return removed
}

// InvalidateConversation drops all cached results for one conversation.
// Returns how many entries were removed.
func (c *RequestCache) InvalidateConversation(conversationID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := conversationID + ":"
	kept := c.order[:0]
	removed := 0
	for _, key := range c.order {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
			removed++
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept
	return removed
}

// Len returns the number of cached results.
func (c *RequestCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
