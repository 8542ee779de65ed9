// Package cache holds the client's bounded in-memory message cache.
// Nothing is persisted; evicted messages are simply refetched over REST
// when needed.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Gael-devv/voltgo/internal/api"
)

// DefaultMaxMessages bounds the cache when no size is configured.
const DefaultMaxMessages = 1000

// Messages is a fixed-capacity, least-recently-used message store keyed by
// message ID. Safe for concurrent use.
type Messages struct {
	store *lru.Cache[string, api.Message]
}

// NewMessages creates a cache with the given capacity; non-positive sizes
// fall back to DefaultMaxMessages.
func NewMessages(size int) *Messages {
	if size <= 0 {
		size = DefaultMaxMessages
	}
	store, _ := lru.New[string, api.Message](size)
	return &Messages{store: store}
}

// Insert stores or refreshes a message.
func (m *Messages) Insert(msg api.Message) {
	if msg.ID == "" {
		return
	}
	m.store.Add(msg.ID, msg)
}

// Get returns a cached message by ID.
func (m *Messages) Get(id string) (api.Message, bool) {
	return m.store.Get(id)
}

// Remove drops a message, if cached.
func (m *Messages) Remove(id string) {
	m.store.Remove(id)
}

// Len returns the number of cached messages.
func (m *Messages) Len() int {
	return m.store.Len()
}
