// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"roof-report-service/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// DefaultPoolSize applies when redis.pool_size is unset.
const DefaultPoolSize = 10

// RedisClient backs the photo URL cache and report id reservations.
type RedisClient struct {
	Client *redis.Client
}

// NewRedis builds the client without dialing; callers Ping before use.
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     poolSize,
		MinIdleConns: 2,
	})

	return &RedisClient{Client: rdb}, nil
}

// Cmdable is the command surface shared by the cache and the id reservations.
func (c *RedisClient) Cmdable() redis.Cmdable {
	return c.Client
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}
