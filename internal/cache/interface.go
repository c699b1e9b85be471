// Package cache кеширует закодированные чанки, которые отдаёт HTTP API.
//
// Ключ чанка включает идентификатор уровня, поэтому несколько уровней
// могут делить один Redis. При записи вокселя чанк инвалидируется
// локально и, если задан Invalidator, на всех остальных узлах.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/voxel-level/internal/vec"
	"github.com/google/uuid"
)

// ChunkCache хранилище закодированных чанков
type ChunkCache interface {
	// Get возвращает значение по ключу или ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение с TTL из конфигурации
	Set(ctx context.Context, key string, value []byte) error

	// Delete удаляет ключ только на этом узле
	Delete(ctx context.Context, key string) error

	// Invalidate удаляет ключ и рассылает уведомление остальным узлам
	Invalidate(ctx context.Context, key string) error

	// Metrics возвращает снимок счётчиков
	Metrics() Metrics

	Close() error
}

// Invalidator рассылает и принимает уведомления об инвалидации
type Invalidator interface {
	PublishInvalidation(ctx context.Context, key string) error
	SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error
	Close() error
}

// InvalidationHandler обрабатывает уведомление об инвалидации ключа
type InvalidationHandler func(key string) error

// Config настройки кеша
type Config struct {
	RedisURL      string        `yaml:"redis_url"` // Пустая строка означает кеш в памяти
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
	MaxBytes      int64         `yaml:"max_bytes"` // Предел кеша в памяти

	NATSURL string `yaml:"nats_url"` // Пустая строка отключает рассылку инвалидаций
	Subject string `yaml:"subject"`
}

// Значения по умолчанию
const (
	DefaultTTL      = 5 * time.Minute
	DefaultMaxBytes = 64 << 20
	DefaultSubject  = "voxel.chunks.invalidate"
)

func (c *Config) applyDefaults() {
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.MaxBytes == 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.Subject == "" {
		c.Subject = DefaultSubject
	}
}

// ErrCacheMiss ключ отсутствует в кеше
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss проверяет, является ли ошибка промахом кеша
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// ChunkKey ключ закодированного чанка уровня
func ChunkKey(level uuid.UUID, chunk vec.Vec3) string {
	return fmt.Sprintf("chunk:%s:%d:%d:%d", level, chunk.X, chunk.Y, chunk.Z)
}

// Metrics счётчики кеша
type Metrics struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	HitRatio      float64 `json:"hit_ratio"`
	Invalidations int64   `json:"invalidations"`
}

// counters общие счётчики реализаций
type counters struct {
	hits          atomic.Int64
	misses        atomic.Int64
	invalidations atomic.Int64
}

func (c *counters) snapshot() Metrics {
	m := Metrics{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Invalidations: c.invalidations.Load(),
	}
	if total := m.Hits + m.Misses; total > 0 {
		m.HitRatio = float64(m.Hits) / float64(total)
	}
	return m
}

// New создаёт кеш по конфигурации: Redis, если задан redis_url, иначе в памяти.
// Если задан nats_url, инвалидации рассылаются через NATS, а чужие
// уведомления удаляют ключи из локального кеша.
func New(ctx context.Context, cfg Config, nodeID string) (ChunkCache, error) {
	cfg.applyDefaults()

	var inv *NATSInvalidator
	if cfg.NATSURL != "" {
		var err error
		inv, err = NewNATSInvalidator(&InvalidatorConfig{NATSURL: cfg.NATSURL, Subject: cfg.Subject}, nodeID)
		if err != nil {
			return nil, err
		}
	}

	var (
		c   ChunkCache
		err error
	)
	if cfg.RedisURL != "" {
		c, err = NewRedisCache(cfg, invalidatorOrNil(inv))
	} else {
		c, err = NewMemoryCache(cfg, invalidatorOrNil(inv))
	}
	if err != nil {
		if inv != nil {
			_ = inv.Close()
		}
		return nil, err
	}

	if inv != nil {
		err := inv.SubscribeInvalidations(ctx, func(key string) error {
			return c.Delete(context.Background(), key)
		})
		if err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	return c, nil
}

// invalidatorOrNil не даёт nil-указателю превратиться в ненулевой интерфейс
func invalidatorOrNil(inv *NATSInvalidator) Invalidator {
	if inv == nil {
		return nil
	}
	return inv
}

// publish рассылает инвалидацию, если задан invalidator
func publish(ctx context.Context, inv Invalidator, key string) error {
	if inv == nil {
		return nil
	}
	return inv.PublishInvalidation(ctx, key)
}
