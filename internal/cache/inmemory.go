package cache

import (
	"container/list"
	"context"
	"sync"

	"github.com/opsloom/opsloom/internal/suid"
)

const defaultCapacity = 100

// InMemoryCache is a capacity-bounded in-process conversation store.
//
// Entries across the whole key space share one capacity; on overflow the
// entry least recently inserted or appended-to is evicted. The map and the
// recency list are guarded by a single mutex so they can never drift apart.
type InMemoryCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently touched
	hits     uint64
	misses   uint64
	onEvict  func(userID, conversationID string)
}

type memoryEntry struct {
	userID         string
	conversationID string
	turns          []Turn
}

// NewInMemoryCache creates a store holding at most capacity entries.
func NewInMemoryCache(capacity int) *InMemoryCache {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &InMemoryCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// SetEvictHook registers a callback invoked after an entry is evicted.
// Used for metrics; the hook runs outside the cache lock.
func (c *InMemoryCache) SetEvictHook(hook func(userID, conversationID string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = hook
}

func (c *InMemoryCache) Get(_ context.Context, userID, conversationID string) ([]Turn, error) {
	if err := validateKey(userID, conversationID); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[compositeKey(userID, conversationID)]
	if !ok {
		c.misses++
		return nil, ErrNotFound
	}
	c.hits++

	entry := elem.Value.(*memoryEntry)
	out := make([]Turn, len(entry.turns))
	copy(out, entry.turns)
	return out, nil
}

func (c *InMemoryCache) InsertOrAppend(_ context.Context, userID, conversationID string, turns []Turn) error {
	if err := validateKey(userID, conversationID); err != nil {
		return err
	}

	var evicted []*memoryEntry

	c.mu.Lock()
	key := compositeKey(userID, conversationID)
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.turns = append(entry.turns, turns...)
		c.order.MoveToFront(elem)
	} else {
		entry := &memoryEntry{
			userID:         userID,
			conversationID: conversationID,
			turns:          append([]Turn(nil), turns...),
		}
		c.entries[key] = c.order.PushFront(entry)
		for len(c.entries) > c.capacity {
			oldest := c.order.Back()
			if oldest == nil {
				break
			}
			old := oldest.Value.(*memoryEntry)
			c.order.Remove(oldest)
			delete(c.entries, compositeKey(old.userID, old.conversationID))
			evicted = append(evicted, old)
		}
	}
	hook := c.onEvict
	c.mu.Unlock()

	if hook != nil {
		for _, e := range evicted {
			hook(e.userID, e.conversationID)
		}
	}
	return nil
}

func (c *InMemoryCache) Stats(_ context.Context) (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses}, nil
}

func (c *InMemoryCache) Close() error { return nil }

// Len reports the number of entries currently held.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func compositeKey(userID, conversationID string) string {
	return userID + ":" + conversationID
}

func validateKey(userID, conversationID string) error {
	if err := suid.Validate(suid.AxisUser, userID); err != nil {
		return err
	}
	return suid.Validate(suid.AxisConversation, conversationID)
}
