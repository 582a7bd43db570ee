// Package rescache caches completed answers keyed by normalized
// question, project root, and threshold. Repeating a question inside
// the TTL returns the cached answer instead of re-running the
// cascade. Entries expire lazily on read and eagerly via a background
// sweeper; a filesystem watcher can invalidate a project's entries
// when its files change.
package rescache

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"scout/internal/logging"
	"scout/internal/research"
)

// DefaultTTL is how long an answer stays valid.
const DefaultTTL = 5 * time.Minute

type entry struct {
	answer  *research.Answer
	expires time.Time
	root    string
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
}

// Cache is a TTL answer cache. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	hits    int64
	misses  int64

	watchers []*fsnotify.Watcher
	stop     chan struct{}
	stopOnce sync.Once
}

// NewCache builds a cache and starts its sweeper. Call Close when
// done.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Get returns a copy of the cached answer for the question, if one is
// present and fresh. Callers may mutate the returned answer freely.
func (c *Cache) Get(q research.Question) (*research.Answer, bool) {
	key := q.CacheKey()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && time.Now().After(e.expires) {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		c.misses++
		logging.Audit().CacheEvent(logging.AuditCacheMiss, key)
		return nil, false
	}

	c.hits++
	logging.Audit().CacheEvent(logging.AuditCacheHit, key)
	logging.CacheDebug("hit %s", key)
	return e.answer.Clone(), true
}

// Put stores a copy of the answer under the question's key,
// overwriting any previous entry.
func (c *Cache) Put(q research.Question, a *research.Answer) {
	if a == nil {
		return
	}
	key := q.CacheKey()

	c.mu.Lock()
	c.entries[key] = entry{
		answer:  a.Clone(),
		expires: time.Now().Add(c.ttl),
		root:    q.ProjectRoot,
	}
	c.mu.Unlock()

	logging.CacheDebug("stored %s (ttl %s)", key, c.ttl)
}

// Stats returns entry and hit/miss counts.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}

// Clear drops every entry.
func (c *Cache) Clear() int {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	logging.Cache("cleared %d entries", n)
	return n
}

// InvalidateProject drops every entry recorded for the given project
// root.
func (c *Cache) InvalidateProject(root string) int {
	c.mu.Lock()
	n := 0
	for key, e := range c.entries {
		if e.root == root {
			delete(c.entries, key)
			logging.Audit().CacheEvent(logging.AuditCacheEvict, key)
			n++
		}
	}
	c.mu.Unlock()

	if n > 0 {
		logging.Cache("invalidated %d entries for %s", n, root)
	}
	return n
}

// Close stops the sweeper and any project watchers.
func (c *Cache) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
		c.mu.Lock()
		watchers := c.watchers
		c.watchers = nil
		c.mu.Unlock()
		for _, w := range watchers {
			w.Close()
		}
	})
}

func (c *Cache) sweep() {
	interval := c.ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache) evictExpired() {
	now := time.Now()
	c.mu.Lock()
	for key, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, key)
			logging.Audit().CacheEvent(logging.AuditCacheEvict, key)
		}
	}
	c.mu.Unlock()
}
