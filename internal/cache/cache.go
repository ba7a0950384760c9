package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"medfetch/internal/types"
)

// ErrCacheMiss is returned when a URL has no cached metadata
var ErrCacheMiss = fmt.Errorf("cache miss")

// MetadataCache stores extractor metadata per URL in Redis so repeat
// extract and info requests skip the yt-dlp invocation
type MetadataCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewMetadataCache creates a metadata cache on the given Redis instance.
// Cache entries live in DB 1; DB 0 belongs to the job queue.
func NewMetadataCache(redisAddr, password string, ttl time.Duration, logger *zap.Logger) (*MetadataCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		Password:     password,
		DB:           1,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	logger.Info("Metadata cache initialized",
		zap.String("redis_addr", redisAddr),
		zap.Duration("ttl", ttl),
	)

	return &MetadataCache{
		client: client,
		logger: logger,
		ttl:    ttl,
	}, nil
}

// key hashes the URL so arbitrary user input never lands raw in Redis
func (c *MetadataCache) key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "meta:" + hex.EncodeToString(hash[:])
}

// GetMetadata returns cached metadata for a URL or ErrCacheMiss
func (c *MetadataCache) GetMetadata(ctx context.Context, url string) (*types.MediaMetadata, error) {
	data, err := c.client.Get(ctx, c.key(url)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		c.logger.Warn("Failed to get cached metadata",
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, err
	}

	var metadata types.MediaMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		c.logger.Warn("Failed to unmarshal cached metadata",
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, err
	}

	return &metadata, nil
}

// SetMetadata caches metadata for a URL with the configured TTL
func (c *MetadataCache) SetMetadata(ctx context.Context, url string, metadata *types.MediaMetadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := c.client.Set(ctx, c.key(url), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache metadata",
			zap.String("url", url),
			zap.Error(err),
		)
		return err
	}

	c.logger.Debug("Metadata cached", zap.String("url", url))
	return nil
}

// Invalidate drops the cached metadata for a URL
func (c *MetadataCache) Invalidate(ctx context.Context, url string) error {
	return c.client.Del(ctx, c.key(url)).Err()
}

// Close closes the Redis connection
func (c *MetadataCache) Close() error {
	return c.client.Close()
}
