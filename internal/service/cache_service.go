package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ignatzorin/freelance-market/internal/events"
	"github.com/ignatzorin/freelance-market/internal/models"
)

const orderListPrefix = "orders:list:"

// CacheService in-memory кеш с TTL и инвалидацией по префиксу.
type CacheService struct {
	mu    sync.RWMutex
	cache map[string]*cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// NewCacheService создаёт кеш; фоновая очистка живёт, пока жив ctx.
func NewCacheService(ctx context.Context, ttl time.Duration) *CacheService {
	cs := &CacheService{
		cache: make(map[string]*cacheEntry),
		ttl:   ttl,
	}
	go cs.cleanup(ctx)
	return cs
}

func (cs *CacheService) Get(key string) (interface{}, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entry, exists := cs.cache[key]
	if !exists || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

func (cs *CacheService) Set(key string, value interface{}, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache[key] = &cacheEntry{
		data:      value,
		expiresAt: time.Now().Add(ttl),
	}
}

func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.cache, key)
}

// InvalidateByPrefix удаляет все ключи с префиксом.
func (cs *CacheService) InvalidateByPrefix(prefix string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for key := range cs.cache {
		if strings.HasPrefix(key, prefix) {
			delete(cs.cache, key)
		}
	}
}

// Name и Deliver позволяют подключить кеш к диспетчеру событий:
// изменение заказа или его откликов сбрасывает закешированные списки,
// в них лежат статус и bids_count.
func (cs *CacheService) Name() string { return "list-cache" }

func (cs *CacheService) Deliver(_ context.Context, event events.Event) error {
	switch event.Type {
	case events.TypeOrderUpdated, events.TypeBidStatusChanged:
		cs.InvalidateByPrefix(orderListPrefix)
	}
	return nil
}

// GetOrSet возвращает значение из кеша или вычисляет и сохраняет его.
func (cs *CacheService) GetOrSet(key string, fn func() (interface{}, error)) (interface{}, error) {
	if value, found := cs.Get(key); found {
		return value, nil
	}

	value, err := fn()
	if err != nil {
		return nil, err
	}
	if cs.ttl > 0 {
		cs.Set(key, value, cs.ttl)
	}
	return value, nil
}

func (cs *CacheService) cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cs.mu.Lock()
			now := time.Now()
			for key, entry := range cs.cache {
				if now.After(entry.expiresAt) {
					delete(cs.cache, key)
				}
			}
			cs.mu.Unlock()
		}
	}
}

// OrderListCacheKey ключ страницы публичного списка заказов.
func OrderListCacheKey(f models.OrderFilter) string {
	category := ""
	if f.CategoryID != nil {
		category = f.CategoryID.String()
	}
	return fmt.Sprintf("%s%s:%s:%s:%s:%d:%d", orderListPrefix, f.Status, category, f.Skill, f.Search, f.Limit, f.Offset)
}
