package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"predictions/domain/entities"
	"predictions/domain/interfaces"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const leaderboardCacheKey = "predictions:leaderboard:pages"

// RedisLeaderboardCache keeps rendered leaderboard pages in one Redis hash so
// a settlement can drop every page with a single DEL
type RedisLeaderboardCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisLeaderboardCache creates a new leaderboard cache
func NewRedisLeaderboardCache(rdb *redis.Client, ttl time.Duration) *RedisLeaderboardCache {
	return &RedisLeaderboardCache{rdb: rdb, ttl: ttl}
}

func pageField(page, limit int) string {
	return fmt.Sprintf("%d:%d", page, limit)
}

// Get returns a cached page. Redis failures count as a miss.
func (c *RedisLeaderboardCache) Get(ctx context.Context, page, limit int) (*entities.LeaderboardPage, bool) {
	data, err := c.rdb.HGet(ctx, leaderboardCacheKey, pageField(page, limit)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).Warn("Leaderboard cache read failed")
		}
		return nil, false
	}

	var cached entities.LeaderboardPage
	if err := json.Unmarshal(data, &cached); err != nil {
		log.WithError(err).Warn("Discarding undecodable leaderboard cache entry")
		return nil, false
	}
	if cached.Users == nil {
		cached.Users = []entities.LeaderboardEntry{}
	}
	return &cached, true
}

// Set stores a page. The hash expires ttl after the first write following an invalidation.
func (c *RedisLeaderboardCache) Set(ctx context.Context, page *entities.LeaderboardPage) {
	data, err := json.Marshal(page)
	if err != nil {
		log.WithError(err).Warn("Failed to encode leaderboard page")
		return
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, leaderboardCacheKey, pageField(page.Page, page.Limit), data)
	pipe.ExpireNX(ctx, leaderboardCacheKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		log.WithError(err).Warn("Leaderboard cache write failed")
	}
}

// Invalidate drops every cached page
func (c *RedisLeaderboardCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Del(ctx, leaderboardCacheKey).Err(); err != nil {
		return fmt.Errorf("redis: invalidate leaderboard: %w", err)
	}
	return nil
}

var _ interfaces.LeaderboardCache = (*RedisLeaderboardCache)(nil)
