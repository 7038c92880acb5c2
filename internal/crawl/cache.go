package crawl

import (
	"container/list"
	"sync"
	"time"
)

// pageCache is a small LRU of fetched page bodies so a URL referenced by
// multiple targets is fetched once per run.
type pageCache struct {
	mu      sync.Mutex
	store   map[string]*list.Element
	lruList *list.List
	maxSize int
	ttl     time.Duration
}

type pageEntry struct {
	key       string
	html      string
	expiresAt time.Time
}

func newPageCache(maxEntries int, ttl time.Duration) *pageCache {
	if maxEntries <= 0 {
		maxEntries = 128
	}
	return &pageCache{
		store:   make(map[string]*list.Element),
		lruList: list.New(),
		maxSize: maxEntries,
		ttl:     ttl,
	}
}

func (c *pageCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.store[key]
	if !ok {
		return "", false
	}
	entry := el.Value.(*pageEntry)
	if time.Now().After(entry.expiresAt) {
		c.lruList.Remove(el)
		delete(c.store, key)
		return "", false
	}
	c.lruList.MoveToFront(el)
	return entry.html, true
}

func (c *pageCache) set(key, html string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.store[key]; ok {
		entry := el.Value.(*pageEntry)
		entry.html = html
		entry.expiresAt = time.Now().Add(c.ttl)
		c.lruList.MoveToFront(el)
		return
	}

	el := c.lruList.PushFront(&pageEntry{key: key, html: html, expiresAt: time.Now().Add(c.ttl)})
	c.store[key] = el

	for c.lruList.Len() > c.maxSize {
		oldest := c.lruList.Back()
		if oldest == nil {
			break
		}
		c.lruList.Remove(oldest)
		delete(c.store, oldest.Value.(*pageEntry).key)
	}
}
