// Package rawcache хранит сырые bulk-выборки провайдера по ключу
// (query, orientation), чтобы все страницы одного запроса обслуживались
// одним апстрим-фетчем. Кеш принадлежит своему провайдеру, снаружи в него
// никто не пишет.
package rawcache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kitbuilder587/imgsearch/internal/domain"
)

const DefaultTTL = 7 * 24 * time.Hour

// RawResultSet - отфильтрованный bulk-фетч. После создания только читается.
type RawResultSet struct {
	Results       []domain.ImageResult
	Total         int
	Query         string
	Orientation   domain.Orientation
	FetchedAt     time.Time
	FetchDuration time.Duration
}

type FetchFunc func(ctx context.Context) (*RawResultSet, error)

type Cache struct {
	mu    sync.RWMutex
	sets  map[string]*RawResultSet
	ttl   time.Duration
	group singleflight.Group
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		sets: make(map[string]*RawResultSet),
		ttl:  ttl,
	}
}

func Key(query string, orientation domain.Orientation) string {
	return strings.ToLower(query) + "|" + string(orientation)
}

// flight несёт результат singleflight-вызова вместе с признаком того,
// откуда он взялся: из кеша или из апстрима
type flight struct {
	set *RawResultSet
	hit bool
}

// GetOrFetch возвращает живой набор или выполняет fetch. Конкурентные
// промахи по одному ключу схлопываются в один апстрим-вызов (singleflight).
// Второе возвращаемое значение - true только при попадании в кеш; все,
// кто дождался общего апстрим-фетча, получают false.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc) (*RawResultSet, bool, error) {
	if set, ok := c.lookup(key); ok {
		return set, true, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// под singleflight перепроверяем: победитель гонки мог уже записать
		if set, ok := c.lookup(key); ok {
			return &flight{set: set, hit: true}, nil
		}

		set, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.sets[key] = set
		c.mu.Unlock()
		return &flight{set: set}, nil
	})
	if err != nil {
		return nil, false, err
	}

	f := v.(*flight)
	return f.set, f.hit, nil
}

func (c *Cache) lookup(key string) (*RawResultSet, bool) {
	c.mu.RLock()
	set, ok := c.sets[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Since(set.FetchedAt) > c.ttl {
		// ленивое вытеснение по TTL
		c.mu.Lock()
		if cur, ok := c.sets[key]; ok && time.Since(cur.FetchedAt) > c.ttl {
			delete(c.sets, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return set, true
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sets)
}

func (c *Cache) Purge() {
	c.mu.Lock()
	c.sets = make(map[string]*RawResultSet)
	c.mu.Unlock()
}
