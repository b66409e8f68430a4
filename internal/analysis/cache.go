package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"socialpulse/internal/utils"
)

// Cache 按内容哈希缓存原始分数
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool, error)
	Set(ctx context.Context, key string, r *Result) error
}

// MemoryCache is a bounded in-process cache with TTL.
type MemoryCache struct {
	c *utils.TTLCache[Result]
}

func NewMemoryCache(size int, ttl time.Duration, clock clockwork.Clock) (*MemoryCache, error) {
	c, err := utils.NewTTLCache[Result](size, ttl, clock)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{c: c}, nil
}

func (m *MemoryCache) Get(_ context.Context, key string) (*Result, bool, error) {
	r, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	return cloneResult(&r), true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, r *Result) error {
	m.c.Set(key, *cloneResult(r))
	return nil
}

// RedisCache 多实例共享的缓存
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, prefix: "analysis:"}
}

func (r *RedisCache) Get(ctx context.Context, key string) (*Result, bool, error) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var res Result
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, false, fmt.Errorf("decode cached analysis: %w", err)
	}
	return &res, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, res *Result) error {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+key, b, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func cloneResult(r *Result) *Result {
	out := &Result{Primary: r.Primary, Cached: r.Cached}
	if r.Emotions != nil {
		out.Emotions = make(EmotionScores, len(r.Emotions))
		for k, v := range r.Emotions {
			out.Emotions[k] = v
		}
	}
	if r.Moderation != nil {
		out.Moderation = make(ModerationScores, len(r.Moderation))
		for k, v := range r.Moderation {
			out.Moderation[k] = v
		}
	}
	return out
}
