package embedding

import (
	"container/list"
	"sync"
)

// EmbeddingCache is a fixed-capacity least-recently-used map from text to vector.
// Vectors are copied on the way in and out so callers may mutate what they hold.
type EmbeddingCache struct {
	mu      sync.Mutex
	limit   int
	order   *list.List // front is most recent
	entries map[string]*list.Element
}

type cached struct {
	text string
	vec  []float32
}

// NewEmbeddingCache returns a cache holding at most capacity vectors (minimum 1).
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{
		limit:   max(capacity, 1),
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Get looks up text and marks it as recently used.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[text]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return clone(el.Value.(*cached).vec), true
}

// Set stores vec under text, evicting the least recently used entry when full.
func (c *EmbeddingCache) Set(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[text]; ok {
		el.Value.(*cached).vec = clone(vec)
		c.order.MoveToFront(el)
		return
	}
	c.entries[text] = c.order.PushFront(&cached{text: text, vec: clone(vec)})
	for c.order.Len() > c.limit {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.entries, last.Value.(*cached).text)
	}
}

func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func clone(v []float32) []float32 {
	return append([]float32(nil), v...)
}
