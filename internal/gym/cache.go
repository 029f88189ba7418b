package gym

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fitclub/internal/logger"
	"fitclub/internal/metrics"
)

const (
	searchVersionKey = "gyms:search:version"
	searchKeyPrefix  = "gyms:search"
	cacheName        = "gym_search"
)

type cachedPage struct {
	Gyms  []Gym `json:"gyms"`
	Total int   `json:"total"`
}

// SearchCache is a read-through cache of search results. Entries are keyed
// by a version counter, so Invalidate drops every cached page at once and
// stale keys expire on their own.
type SearchCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewSearchCache(rdb redis.Cmdable, ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SearchCache{rdb: rdb, ttl: ttl}
}

func (c *SearchCache) version(ctx context.Context) (string, error) {
	v, err := c.rdb.Get(ctx, searchVersionKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return v, err
}

func searchKey(version string, f SearchFilter) string {
	raw := fmt.Sprintf("q=%s|city=%s|category=%s|page=%d|size=%d", f.Query, f.City, f.Category, f.Page, f.PageSize)
	return fmt.Sprintf("%s:v%s:%x", searchKeyPrefix, version, sha1.Sum([]byte(raw)))
}

// Get also returns the version the lookup ran under. Set must be given that
// version, so a page loaded before an Invalidate is never stored as current.
// The version is empty when the cache is unavailable.
func (c *SearchCache) Get(ctx context.Context, f SearchFilter) ([]Gym, int, string, bool) {
	version, err := c.version(ctx)
	if err != nil {
		logger.Warn("Gym cache unavailable", "error", err)
		return nil, 0, "", false
	}

	data, err := c.rdb.Get(ctx, searchKey(version, f)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("Gym cache read failed", "error", err)
		}
		metrics.RecordCacheLookup(cacheName, false)
		return nil, 0, version, false
	}

	var page cachedPage
	if err := json.Unmarshal(data, &page); err != nil {
		metrics.RecordCacheLookup(cacheName, false)
		return nil, 0, version, false
	}

	metrics.RecordCacheLookup(cacheName, true)
	return page.Gyms, page.Total, version, true
}

func (c *SearchCache) Set(ctx context.Context, version string, f SearchFilter, gyms []Gym, total int) {
	if version == "" {
		return
	}

	data, err := json.Marshal(cachedPage{Gyms: gyms, Total: total})
	if err != nil {
		return
	}

	if err := c.rdb.Set(ctx, searchKey(version, f), data, c.ttl).Err(); err != nil {
		logger.Warn("Gym cache write failed", "error", err)
	}
}

func (c *SearchCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, searchVersionKey).Err(); err != nil {
		logger.Warn("Gym cache invalidation failed", "error", err)
	}
}
