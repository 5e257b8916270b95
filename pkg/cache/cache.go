package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"catalog-aggregator-api/internal/models"
)

const keyPrefix = "products:"

// Config is read from the environment with the REDIS_ prefix. An empty URL
// disables caching.
type Config struct {
	URL         string
	DB          int           `default:"0"`
	CacheTTL    time.Duration `split_words:"true" default:"10m"`
	DialTimeout time.Duration `split_words:"true" default:"5s"`
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to redis. It returns nil when caching is disabled
// or the server cannot be reached; a nil cache reports itself unavailable.
func NewRedisCache(ctx context.Context, cfg Config, logger logrus.FieldLogger) *RedisCache {
	if cfg.URL == "" {
		logger.Info("redis url not set, response cache disabled")
		return nil
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		logger.WithError(err).Error("failed to parse redis url")
		return nil
	}
	opt.DB = cfg.DB
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Error("redis connection failed, response cache disabled")
		client.Close()
		return nil
	}

	logger.WithFields(logrus.Fields{"db": cfg.DB, "ttl": cfg.CacheTTL.String()}).Info("redis connected")

	return NewWithClient(client, cfg.CacheTTL)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) IsAvailable() bool {
	return r != nil && r.client != nil
}

// GenerateProductsKey identifies one evaluation. The catalog generation
// and the evaluation day are part of the key, so a refresh or a date
// change never serves stale results.
func (r *RedisCache) GenerateProductsKey(catalog models.CatalogInfo, q models.Query, day models.Date) string {
	key := fmt.Sprintf("%s%s:g%d:d%s:p%d:s%d", keyPrefix, url.QueryEscape(catalog.ID), catalog.Generation, day, q.Page, q.Size)

	if q.Brand != "" {
		key += ":b" + url.QueryEscape(q.Brand)
	}
	if q.Filter != "" {
		key += ":f" + url.QueryEscape(q.Filter)
	}
	if q.Sort != "" {
		key += ":o" + url.QueryEscape(q.Sort)
	}

	return key
}

func (r *RedisCache) GetProducts(ctx context.Context, key string) (*models.ProductsResponse, error) {
	if !r.IsAvailable() {
		return nil, errors.New("redis client not available")
	}

	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var response models.ProductsResponse
	if err := json.Unmarshal(val, &response); err != nil {
		return nil, fmt.Errorf("decode cached response: %w", err)
	}

	return &response, nil
}

func (r *RedisCache) SetProducts(ctx context.Context, key string, response *models.ProductsResponse) error {
	if !r.IsAvailable() {
		return errors.New("redis client not available")
	}

	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r *RedisCache) Close() error {
	if !r.IsAvailable() {
		return nil
	}
	return r.client.Close()
}

func (r *RedisCache) GetStats(ctx context.Context) map[string]interface{} {
	if !r.IsAvailable() {
		return map[string]interface{}{
			"status": "unavailable",
		}
	}

	return map[string]interface{}{
		"status":      "connected",
		"ttl_seconds": int(r.ttl.Seconds()),
		"keys":        len(r.GetAllKeys(ctx)),
		"memory_info": r.client.Info(ctx, "memory").Val(),
	}
}

func (r *RedisCache) GetAllKeys(ctx context.Context) []string {
	if !r.IsAvailable() {
		return []string{}
	}

	var keys []string
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return []string{}
	}
	return keys
}

// FlushCache removes cached responses only, leaving other keys in the
// database alone.
func (r *RedisCache) FlushCache(ctx context.Context) (int, error) {
	if !r.IsAvailable() {
		return 0, errors.New("redis client not available")
	}

	keys := r.GetAllKeys(ctx)
	if len(keys) == 0 {
		return 0, nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("redis del: %w", err)
	}
	return len(keys), nil
}

func (r *RedisCache) GetKeyTTL(ctx context.Context, key string) time.Duration {
	if !r.IsAvailable() {
		return 0
	}
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0
	}
	return ttl
}
