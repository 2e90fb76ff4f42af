package core

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*CatalogCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCatalogCache(client, time.Minute), mr
}

func TestCatalogCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, ok := cache.GetMovies(ctx)
	assert.False(t, ok, "empty cache should miss")

	movies := []Movie{sampleMovie("Heat", "Crime", "Michael Mann")}
	cache.SetMovies(ctx, movies)

	got, ok := cache.GetMovies(ctx)
	require.True(t, ok)
	assert.Equal(t, movies, got)
}

func TestCatalogCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	cache.SetMovies(ctx, []Movie{sampleMovie("Heat", "Crime", "Michael Mann")})
	cache.Invalidate(ctx)

	_, ok := cache.GetMovies(ctx)
	assert.False(t, ok)
}

func TestCatalogCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.SetMovies(ctx, []Movie{sampleMovie("Heat", "Crime", "Michael Mann")})
	mr.FastForward(2 * time.Minute)

	_, ok := cache.GetMovies(ctx)
	assert.False(t, ok)
}

func TestCatalogCacheCorruptEntryIsAMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	require.NoError(t, mr.Set(CatalogCacheKey, "{not-json"))

	_, ok := cache.GetMovies(context.Background())
	assert.False(t, ok)
}

func TestCatalogCacheNilClientDegradesToMiss(t *testing.T) {
	cache := NewCatalogCache(nil, time.Minute)
	ctx := context.Background()

	_, ok := cache.GetMovies(ctx)
	assert.False(t, ok)
	// writes and invalidation must not panic either
	cache.SetMovies(ctx, []Movie{sampleMovie("Heat", "Crime", "Michael Mann")})
	cache.Invalidate(ctx)
}
