package utils

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
)

// CacheItem 包装缓存数据和过期时间
type CacheItem[V any] struct {
	Data      V
	ExpiresAt time.Time
}

// TTLCache 带过期时间的本地 LRU 缓存
type TTLCache[V any] struct {
	lruCache *lru.Cache[string, CacheItem[V]]
	ttl      time.Duration
	clock    clockwork.Clock
}

// NewTTLCache 创建容量为 size 的缓存，默认过期时间为 ttl
func NewTTLCache[V any](size int, ttl time.Duration, clock clockwork.Clock) (*TTLCache[V], error) {
	l, err := lru.New[string, CacheItem[V]](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TTLCache[V]{lruCache: l, ttl: ttl, clock: clock}, nil
}

// Set 使用默认 TTL 设置缓存
func (c *TTLCache[V]) Set(key string, data V) {
	c.SetWithTTL(key, data, c.ttl)
}

func (c *TTLCache[V]) SetWithTTL(key string, data V, ttl time.Duration) {
	c.lruCache.Add(key, CacheItem[V]{
		Data:      data,
		ExpiresAt: c.clock.Now().Add(ttl),
	})
}

// Get 获取缓存，不存在或已过期时返回 false
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	val, ok := c.lruCache.Get(key)
	if !ok {
		return zero, false
	}

	// 检查过期
	if !c.clock.Now().Before(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return zero, false
	}

	return val.Data, true
}

// Delete 删除指定缓存
func (c *TTLCache[V]) Delete(key string) {
	c.lruCache.Remove(key)
}

func (c *TTLCache[V]) Purge() {
	c.lruCache.Purge()
}

func (c *TTLCache[V]) Len() int {
	return c.lruCache.Len()
}
