package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/skillswap-backend/internal/models"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached profiles
	CacheKeyPrefix = "cache:user:"
	// DefaultCacheTTL bounds how stale a public profile can be after a
	// write on another instance.
	DefaultCacheTTL = 10 * time.Minute
)

// ProfileCache caches public profiles by durable id.
type ProfileCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProfileCache(rdb *redis.Client, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ProfileCache{rdb: rdb, ttl: ttl}
}

// Get returns (nil, false) on a miss. Redis errors count as misses.
func (c *ProfileCache) Get(ctx context.Context, id string) (*models.User, bool) {
	val, err := c.rdb.Get(ctx, CacheKeyPrefix+id).Bytes()
	if err != nil {
		return nil, false
	}
	var user models.User
	if err := json.Unmarshal(val, &user); err != nil {
		return nil, false
	}
	return &user, true
}

func (c *ProfileCache) Set(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, CacheKeyPrefix+user.ID.Hex(), data, c.ttl).Err()
}

func (c *ProfileCache) Delete(ctx context.Context, id string) error {
	err := c.rdb.Del(ctx, CacheKeyPrefix+id).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
