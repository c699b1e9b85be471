package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/voxel-level/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisCache кеш чанков в Redis, общий для нескольких узлов API
type RedisCache struct {
	client      *redis.Client
	cfg         Config
	invalidator Invalidator
	counters
}

// NewRedisCache подключается к Redis и проверяет соединение.
// invalidator может быть nil.
func NewRedisCache(cfg Config, invalidator Invalidator) (*RedisCache, error) {
	cfg.applyDefaults()

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisURL,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	logging.GetCacheLogger().Info("Redis кеш чанков подключён: %s (TTL %v)", cfg.RedisURL, cfg.TTL)
	return &RedisCache{client: rdb, cfg: cfg, invalidator: invalidator}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		r.hits.Add(1)
		return val, nil
	}

	r.misses.Add(1)
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	logging.GetCacheLogger().Error("Redis Get %s: %v", key, err)
	return nil, fmt.Errorf("redis get: %w", err)
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, r.cfg.TTL).Err(); err != nil {
		logging.GetCacheLogger().Error("Redis Set %s: %v", key, err)
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Invalidate удаляет ключ из Redis. Redis общий, но локальные кеши
// других узлов узнают об изменении только через invalidator.
func (r *RedisCache) Invalidate(ctx context.Context, key string) error {
	if err := r.Delete(ctx, key); err != nil {
		return err
	}
	r.invalidations.Add(1)
	return publish(ctx, r.invalidator, key)
}

func (r *RedisCache) Metrics() Metrics {
	return r.snapshot()
}

// Close закрывает соединение с Redis и invalidator
func (r *RedisCache) Close() error {
	if r.invalidator != nil {
		if err := r.invalidator.Close(); err != nil {
			logging.GetCacheLogger().Warn("Ошибка закрытия invalidator: %v", err)
		}
	}
	if err := r.client.Close(); err != nil {
		logging.GetCacheLogger().Error("Ошибка закрытия Redis: %v", err)
		return err
	}
	logging.GetCacheLogger().Info("Redis кеш чанков закрыт")
	return nil
}
