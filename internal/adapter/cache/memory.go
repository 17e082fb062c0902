package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"currency-converter/internal/domain/model"
	"currency-converter/pkg/logger"
)

// Event names passed to an Observer.
const (
	EventHit      = "hit"
	EventMiss     = "miss"
	EventExpired  = "expired"
	EventEviction = "eviction"
)

type Observer func(cache, event string)

type Option func(*options)

type options struct {
	now      func() time.Time
	observer Observer
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithObserver(observer Observer) Option {
	return func(o *options) { o.observer = observer }
}

type cacheEntry[T any] struct {
	key        string
	value      T
	insertedAt time.Time
}

// MemoryCache is a TTL cache bounded by maxSize. When full, the entry that was
// inserted least recently is evicted. The insertion list is ordered by
// insertedAt, so the front is always the oldest entry.
type MemoryCache[T any] struct {
	name     string
	cacheMap map[string]*list.Element
	order    *list.List
	mutex    sync.RWMutex
	cacheTTL time.Duration
	maxSize  int
	now      func() time.Time
	observer Observer
	log      *logger.Logger

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewMemoryCache builds an empty cache. maxSize <= 0 means unbounded.
func NewMemoryCache[T any](name string, cacheTTL time.Duration, maxSize int, log *logger.Logger, opts ...Option) *MemoryCache[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &MemoryCache[T]{
		name:     name,
		cacheMap: make(map[string]*list.Element),
		order:    list.New(),
		cacheTTL: cacheTTL,
		maxSize:  maxSize,
		now:      o.now,
		observer: o.observer,
		log:      log.With("cache", name),
	}
}

func (c *MemoryCache[T]) expired(e *cacheEntry[T], now time.Time) bool {
	return now.Sub(e.insertedAt) > c.cacheTTL
}

func (c *MemoryCache[T]) Get(key string) (T, bool) {
	var zero T
	now := c.now()

	c.mutex.RLock()
	elem, found := c.cacheMap[key]
	if !found {
		c.mutex.RUnlock()
		c.record(EventMiss)
		c.log.Debug("Cache miss", "key", key)
		return zero, false
	}

	e := elem.Value.(*cacheEntry[T])
	if !c.expired(e, now) {
		value := e.value
		c.mutex.RUnlock()
		c.record(EventHit)
		c.log.Debug("Cache hit", "key", key)
		return value, true
	}
	c.mutex.RUnlock()

	c.mutex.Lock()
	// Another writer may have replaced the entry in between.
	if current, ok := c.cacheMap[key]; ok && current == elem && c.expired(e, now) {
		c.removeElement(elem)
	}
	c.mutex.Unlock()

	c.record(EventExpired)
	c.record(EventMiss)
	c.log.Debug("Cache entry expired", "key", key)
	return zero, false
}

func (c *MemoryCache[T]) Set(key string, value T) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Read under the lock so list order follows insertion time.
	now := c.now()

	if elem, exists := c.cacheMap[key]; exists {
		e := elem.Value.(*cacheEntry[T])
		e.value = value
		e.insertedAt = now
		c.order.MoveToBack(elem)
		c.log.Debug("Cache set", "key", key, "replaced", true)
		return
	}

	if c.maxSize > 0 && len(c.cacheMap) >= c.maxSize {
		if oldest := c.order.Front(); oldest != nil {
			evicted := oldest.Value.(*cacheEntry[T]).key
			c.removeElement(oldest)
			c.evictions.Add(1)
			c.record(EventEviction)
			c.log.Debug("Cache full, evicted oldest entry", "key", evicted, "max_size", c.maxSize)
		}
	}

	c.cacheMap[key] = c.order.PushBack(&cacheEntry[T]{key: key, value: value, insertedAt: now})
	c.log.Debug("Cache set", "key", key)
}

func (c *MemoryCache[T]) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if elem, ok := c.cacheMap[key]; ok {
		c.removeElement(elem)
	}
}

// ClearExpired drops every expired entry and returns how many were removed.
func (c *MemoryCache[T]) ClearExpired() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()

	removed := 0
	for elem := c.order.Front(); elem != nil; {
		e := elem.Value.(*cacheEntry[T])
		if !c.expired(e, now) {
			break
		}
		next := elem.Next()
		c.removeElement(elem)
		removed++
		elem = next
	}

	if removed > 0 {
		c.log.Info("Cleared expired cache entries", "count", removed)
	}
	return removed
}

func (c *MemoryCache[T]) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cacheMap)
}

func (c *MemoryCache[T]) Stats() model.CacheStats {
	hits, misses := c.hits.Load(), c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return model.CacheStats{
		Name:      c.name,
		Size:      c.Len(),
		MaxSize:   c.maxSize,
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		HitRate:   hitRate,
	}
}

// removeElement must be called with the write lock held.
func (c *MemoryCache[T]) removeElement(elem *list.Element) {
	e := c.order.Remove(elem).(*cacheEntry[T])
	delete(c.cacheMap, e.key)
}

func (c *MemoryCache[T]) record(event string) {
	switch event {
	case EventHit:
		c.hits.Add(1)
	case EventMiss:
		c.misses.Add(1)
	}
	if c.observer != nil {
		c.observer(c.name, event)
	}
}
