package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sales-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const statsVersionKey = "sales:stats:version"

type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient creates a new Redis client used as the statistics cache
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetStatistics returns a cached statistics result for the given window key,
// or false when absent.
func (c *Client) GetStatistics(ctx context.Context, windowKey string) (*models.SalesStatistics, bool, error) {
	key, err := c.statsKey(ctx, windowKey)
	if err != nil {
		return nil, false, err
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var stats models.SalesStatistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached statistics: %w", err)
	}
	return &stats, true, nil
}

// SetStatistics caches a statistics result under the current version.
func (c *Client) SetStatistics(ctx context.Context, windowKey string, stats *models.SalesStatistics) error {
	key, err := c.statsKey(ctx, windowKey)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode statistics: %w", err)
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

// BumpStatsVersion invalidates all cached statistics. Called after any sale
// mutation commits; stale entries under old versions expire via TTL.
func (c *Client) BumpStatsVersion(ctx context.Context) error {
	return c.rdb.Incr(ctx, statsVersionKey).Err()
}

// Cache keys embed a version counter so invalidation is a single INCR
// instead of a scan over every cached window.
func (c *Client) statsKey(ctx context.Context, windowKey string) (string, error) {
	version, err := c.rdb.Get(ctx, statsVersionKey).Int64()
	if err == redis.Nil {
		version = 0
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("sales:stats:%d:%s", version, windowKey), nil
}
