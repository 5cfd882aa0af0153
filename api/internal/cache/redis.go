package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"chess-moves/api/internal/moves/types"
)

const defaultTTL = 24 * time.Hour

// ResultCache keeps validated MoveResults in redis as JSON with a TTL.
type ResultCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ResultCache{rdb: rdb, ttl: ttl}
}

// Open parses a redis:// URL and pings the server.
func Open(ctx context.Context, url string, ttl time.Duration) (*ResultCache, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, ttl), nil
}

func (c *ResultCache) Get(ctx context.Context, key string) (types.MoveResult, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.MoveResult{}, false, nil
	}
	if err != nil {
		return types.MoveResult{}, false, err
	}
	// битую запись считаем промахом и удаляем
	res, err := types.ParseMoveResult(string(raw))
	if err != nil {
		_ = c.rdb.Del(ctx, key).Err()
		return types.MoveResult{}, false, nil
	}
	return res, true, nil
}

func (c *ResultCache) Set(ctx context.Context, key string, res types.MoveResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

func (c *ResultCache) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func (c *ResultCache) Close() error { return c.rdb.Close() }
