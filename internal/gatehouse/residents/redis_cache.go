package residents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
)

const keyPrefix = "gatehouse:resident:"

// RedisCache is a read-through cache in front of a slower Directory.  Redis
// failures degrade to a direct lookup; they never fail the caller.
type RedisCache struct {
	client *redis.Client
	next   Directory
	ttl    time.Duration
	log    logger.Logger
}

func NewRedisCache(client *redis.Client, next Directory, ttl time.Duration, log logger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{client: client, next: next, ttl: ttl, log: log}
}

// NewRedisClient accepts either a redis:// URL or a bare host:port.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (c *RedisCache) ResolveResident(ctx context.Context, id string) (types.Resident, error) {
	id = strings.TrimSpace(id)
	key := keyPrefix + id

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var r types.Resident
		if jerr := json.Unmarshal(raw, &r); jerr == nil {
			return r, nil
		}
		c.log.Warn("discarding corrupt resident cache entry", "resident_id", id)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("resident cache read failed", "resident_id", id, "error", err)
	}

	r, err := c.next.ResolveResident(ctx, id)
	if err != nil {
		return types.Resident{}, err
	}

	if b, jerr := json.Marshal(r); jerr == nil {
		if serr := c.client.Set(ctx, key, b, c.ttl).Err(); serr != nil {
			c.log.Warn("resident cache write failed", "resident_id", id, "error", serr)
		}
	}
	return r, nil
}

// Invalidate drops a cached resident after the member roll changes.
func (c *RedisCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, keyPrefix+strings.TrimSpace(id)).Err()
}
