package analysis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheStoresRawVectors(t *testing.T) {
	c, err := NewMemoryCache(4, time.Minute, nil)
	require.NoError(t, err)

	in := &Result{
		Emotions:   EmotionScores{"angry": 0.4},
		Moderation: ModerationScores{"identity_attack": 0.79},
	}
	require.NoError(t, c.Set(context.Background(), CacheKey("t"), in))
	in.Moderation["identity_attack"] = 0.99

	got, ok, err := c.Get(context.Background(), CacheKey("t"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.79, got.Moderation["identity_attack"])

	_, ok, err = c.Get(context.Background(), CacheKey("other"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheKeyIsContentHash(t *testing.T) {
	assert.Equal(t, CacheKey("abc"), CacheKey("abc"))
	assert.NotEqual(t, CacheKey("abc"), CacheKey("abd"))
	assert.Len(t, CacheKey(""), 64)
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	c := NewRedisCache(client, time.Minute)
	key := CacheKey(uuid.NewString())

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, &Result{Emotions: EmotionScores{"sad": 0.5}, Moderation: ModerationScores{}}))
	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.5, got.Emotions["sad"])
	client.Del(ctx, "analysis:"+key)
}
