package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"karigar-market/internal/models"

	"github.com/redis/go-redis/v9"
)

const openPostingsKey = "postings:open:front"

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// PostingCache is a best-effort read cache for the unfiltered first page
// of the public open-postings feed, the hottest query in the app. A nil
// *PostingCache is valid and caches nothing, so the engine runs without
// redis in development and tests.
type PostingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPostingCache(rdb *redis.Client, ttl time.Duration) *PostingCache {
	return &PostingCache{rdb: rdb, ttl: ttl}
}

// GetFrontPage returns the cached feed and whether it was present.
// Any redis failure reads as a miss.
func (c *PostingCache) GetFrontPage(ctx context.Context) ([]models.Posting, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}

	raw, err := c.rdb.Get(ctx, openPostingsKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("posting cache read failed: %v", err)
		}
		return nil, false
	}

	var postings []models.Posting
	if err := json.Unmarshal(raw, &postings); err != nil {
		log.Printf("posting cache decode failed: %v", err)
		return nil, false
	}
	return postings, true
}

// SetFrontPage stores the feed with the configured TTL.
func (c *PostingCache) SetFrontPage(ctx context.Context, postings []models.Posting) {
	if c == nil || c.rdb == nil {
		return
	}

	raw, err := json.Marshal(postings)
	if err != nil {
		log.Printf("posting cache encode failed: %v", err)
		return
	}
	if err := c.rdb.Set(ctx, openPostingsKey, raw, c.ttl).Err(); err != nil {
		log.Printf("posting cache write failed: %v", err)
	}
}

// Invalidate drops the cached feed. Called whenever a posting is
// created or closed so readers never see a stale status for longer than
// one request.
func (c *PostingCache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, openPostingsKey).Err(); err != nil {
		log.Printf("posting cache invalidate failed: %v", err)
	}
}
