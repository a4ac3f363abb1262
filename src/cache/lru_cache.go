package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
)

// DefaultCapacity is the number of summaries kept when no capacity is configured.
const DefaultCapacity = 2048

// ErrInvalidCapacity is returned when a cache is constructed with a non-positive capacity.
var ErrInvalidCapacity = errors.New("cache: capacity must be positive")

// SummaryCache is a thread-safe LRU mapping flattened text to its summary.
// Keys are HashKey(text), so equal content always shares one entry.
// Entries never expire; they leave only through eviction or Clear.
type SummaryCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	lru      *list.List
}

type entry struct {
	key     string
	summary string
}

// NewSummaryCache creates a cache holding at most capacity summaries.
func NewSummaryCache(capacity int) (*SummaryCache, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &SummaryCache{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		lru:      list.New(),
	}, nil
}

// HashKey returns the hex sha256 digest of text.
func HashKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Get returns the summary stored for text and marks it most recently used.
func (c *SummaryCache) Get(text string) (string, bool) {
	key := HashKey(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return "", false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*entry).summary, true
}

// Put stores summary for text as the most recently used entry, evicting
// from the least recently used end until the cache is within capacity.
func (c *SummaryCache) Put(text, summary string) {
	key := HashKey(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*entry).summary = summary
		c.lru.MoveToFront(elem)
		return
	}

	c.items[key] = c.lru.PushFront(&entry{key: key, summary: summary})

	for c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.lru.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).key)
	}
}

// Clear removes all entries from the cache.
func (c *SummaryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, c.capacity)
	c.lru.Init()
}

// Len returns the number of cached summaries.
func (c *SummaryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Capacity returns the configured maximum number of entries.
func (c *SummaryCache) Capacity() int {
	return c.capacity
}
