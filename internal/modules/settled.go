package modules

import (
	"container/list"
	"sync"
	"time"
)

type settledItem struct {
	id        string
	pending   *Pending
	expiresAt time.Time
	size      int
}

// settledCache keeps loaded modules for a while so repeated loads of the
// same id do not regenerate. Entries expire after ttl and the least recently
// loaded ones are evicted beyond maxEntries or maxBytes of generated text.
type settledCache struct {
	mu         sync.Mutex
	ll         *list.List
	items      map[string]*list.Element
	maxEntries int
	maxBytes   int
	totalBytes int
	ttl        time.Duration
	now        func() time.Time
}

func newSettledCache(maxEntries, maxBytes int, ttl time.Duration) *settledCache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &settledCache{
		ll:         list.New(),
		items:      make(map[string]*list.Element),
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		ttl:        ttl,
		now:        time.Now,
	}
}

func (c *settledCache) get(id string) (*Pending, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ele, ok := c.items[id]
	if !ok {
		return nil, false
	}
	it := ele.Value.(*settledItem)
	if c.now().After(it.expiresAt) {
		c.removeElement(ele)
		return nil, false
	}
	c.ll.MoveToFront(ele)
	return it.pending, true
}

func (c *settledCache) put(p *Pending) {
	size := 0
	if p.out != nil {
		size = len(p.out.Text)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, ok := c.items[p.id]; ok {
		it := ele.Value.(*settledItem)
		c.totalBytes += size - it.size
		it.pending = p
		it.size = size
		it.expiresAt = c.now().Add(c.ttl)
		c.ll.MoveToFront(ele)
		c.evictLocked()
		return
	}
	ele := c.ll.PushFront(&settledItem{id: p.id, pending: p, size: size, expiresAt: c.now().Add(c.ttl)})
	c.items[p.id] = ele
	c.totalBytes += size
	c.evictLocked()
}

func (c *settledCache) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.items[id]; ok {
		c.removeElement(ele)
	}
}

func (c *settledCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *settledCache) evictLocked() {
	for c.ll.Len() > 0 {
		if c.ll.Len() <= c.maxEntries && (c.maxBytes <= 0 || c.totalBytes <= c.maxBytes) {
			return
		}
		c.removeElement(c.ll.Back())
	}
}

func (c *settledCache) removeElement(ele *list.Element) {
	c.ll.Remove(ele)
	it := ele.Value.(*settledItem)
	delete(c.items, it.id)
	c.totalBytes -= it.size
	if c.totalBytes < 0 {
		c.totalBytes = 0
	}
}
