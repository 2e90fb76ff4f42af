package core

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// CatalogCacheKey holds the JSON-encoded movie list served by GET /movies.
const CatalogCacheKey = "catalog:movies"

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// CatalogCache is a read-through cache in front of the movie list. The
// cache being unreachable is never an error for callers: reads fall
// back to the database and writes are best effort.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CatalogCache{client: client, ttl: ttl}
}

// GetMovies returns the cached movie list, or (nil, false) on a miss.
func (c *CatalogCache) GetMovies(ctx context.Context) ([]Movie, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, CatalogCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("cache: get %s failed: %v", CatalogCacheKey, err)
		}
		return nil, false
	}
	var movies []Movie
	if err := json.Unmarshal(raw, &movies); err != nil {
		// A corrupt entry behaves like a miss and gets overwritten.
		log.Printf("cache: corrupt entry at %s: %v", CatalogCacheKey, err)
		return nil, false
	}
	return movies, true
}

// SetMovies stores the movie list with the configured TTL.
func (c *CatalogCache) SetMovies(ctx context.Context, movies []Movie) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(movies)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, CatalogCacheKey, raw, c.ttl).Err(); err != nil {
		log.Printf("cache: set %s failed: %v", CatalogCacheKey, err)
	}
}

// Invalidate drops the cached list; called after catalog imports.
func (c *CatalogCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, CatalogCacheKey).Err(); err != nil {
		log.Printf("cache: invalidate %s failed: %v", CatalogCacheKey, err)
	}
}
