package memory

import (
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/kitbuilder587/imgsearch/internal/cache"
)

const DefaultSweepThreshold = 100

type item struct {
	value     interface{}
	expiresAt time.Time
}

// Cache - in-memory кеш с TTL. Фонового таймера нет: просроченные записи
// удаляются лениво на Get, а Set делает полную зачистку когда размер
// переваливает за sweepThreshold.
type Cache struct {
	mu             sync.RWMutex
	items          map[string]item
	sweepThreshold int
}

func New() *Cache {
	return NewWithThreshold(DefaultSweepThreshold)
}

func NewWithThreshold(threshold int) *Cache {
	if threshold <= 0 {
		threshold = DefaultSweepThreshold
	}
	return &Cache{
		items:          make(map[string]item),
		sweepThreshold: threshold,
	}
}

func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(it.expiresAt) {
		c.mu.Lock()
		// перепроверяем под write-lock, запись могли успеть перезаписать
		if cur, ok := c.items[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return it.value, true
}

func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	c.items[key] = item{value: value, expiresAt: time.Now().Add(ttl)}
	if len(c.items) > c.sweepThreshold {
		c.removeExpiredLocked()
	}
	c.mu.Unlock()
	return nil
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *Cache) Invalidate(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.items {
		if re.MatchString(k) {
			delete(c.items, k)
			removed++
		}
	}
	return removed, nil
}

func (c *Cache) Stats() cache.Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return cache.Stats{Size: len(c.items), Keys: keys}
}

func (c *Cache) removeExpiredLocked() {
	now := time.Now()
	for k, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, k)
		}
	}
}
