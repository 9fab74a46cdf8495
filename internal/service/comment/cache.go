package comment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"claim-comments/internal/domain"
	"claim-comments/internal/metrics"
)

// listCache keeps rendered listing pages in redis. A nil client disables
// it, and redis failures degrade to cache misses.
//
// Every page key embeds the claim's generation. Writes bump the generation
// after they commit, so a page rendered from an older snapshot can only be
// stored under a key that is no longer read.
type listCache struct {
	redis   *redis.Client
	ttl     time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
}

func generationKey(claimID string) string {
	return fmt.Sprintf("comments:%s:gen", claimID)
}

func cacheKey(claimID string, gen int64, p domain.PaginationParams, topLevel bool) string {
	return fmt.Sprintf("comments:%s:gen:%d:page:%d:size:%d:top:%t", claimID, gen, p.Page, p.PageSize, topLevel)
}

// pageKey returns the key for a listing page, or false when the cache is
// disabled or the generation cannot be read.
func (c *listCache) pageKey(ctx context.Context, claimID string, p domain.PaginationParams, topLevel bool) (string, bool) {
	if c.redis == nil {
		return "", false
	}
	gen, err := c.redis.Get(ctx, generationKey(claimID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Debug("list cache generation read failed", zap.String("claim_id", claimID), zap.Error(err))
		c.metrics.RecordListCache(false)
		return "", false
	}
	return cacheKey(claimID, gen, p, topLevel), true
}

func (c *listCache) get(ctx context.Context, key string) (domain.Page[domain.Comment], bool) {
	var page domain.Page[domain.Comment]

	cached, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug("list cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.metrics.RecordListCache(false)
		return page, false
	}
	if err := json.Unmarshal([]byte(cached), &page); err != nil {
		c.metrics.RecordListCache(false)
		return page, false
	}

	c.metrics.RecordListCache(true)
	return page, true
}

func (c *listCache) set(ctx context.Context, key string, page domain.Page[domain.Comment]) {
	if data, err := json.Marshal(page); err == nil {
		_ = c.redis.Set(ctx, key, data, c.ttl).Err()
	}
}

// invalidate moves the given claims to a new generation. It runs on a
// context detached from the caller so a committed write always retires the
// old pages.
func (c *listCache) invalidate(ctx context.Context, claimIDs ...string) {
	if c.redis == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, claimID := range claimIDs {
		if err := c.redis.Incr(ctx, generationKey(claimID)).Err(); err != nil {
			c.log.Warn("list cache invalidation failed", zap.String("claim_id", claimID), zap.Error(err))
		}
	}
}
