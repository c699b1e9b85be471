package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// MemoryCache кеш чанков в памяти процесса на ristretto
type MemoryCache struct {
	cache       *ristretto.Cache
	cfg         Config
	invalidator Invalidator
	counters
}

// NewMemoryCache создаёт кеш в памяти. invalidator может быть nil.
func NewMemoryCache(cfg Config, invalidator Invalidator) (*MemoryCache, error) {
	cfg.applyDefaults()

	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     cfg.MaxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось создать кеш в памяти: %w", err)
	}
	return &MemoryCache{cache: rc, cfg: cfg, invalidator: invalidator}, nil
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		m.misses.Add(1)
		return nil, ErrCacheMiss
	}
	m.hits.Add(1)
	return v.([]byte), nil
}

// Set сохраняет копию значения. Запись становится видимой сразу после возврата.
func (m *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	stored := append([]byte(nil), value...)
	m.cache.SetWithTTL(key, stored, int64(len(stored)), m.cfg.TTL)
	m.cache.Wait()
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.cache.Del(key)
	return nil
}

func (m *MemoryCache) Invalidate(ctx context.Context, key string) error {
	m.cache.Del(key)
	m.invalidations.Add(1)
	return publish(ctx, m.invalidator, key)
}

func (m *MemoryCache) Metrics() Metrics {
	return m.snapshot()
}

// Close освобождает кеш и закрывает invalidator
func (m *MemoryCache) Close() error {
	m.cache.Close()
	if m.invalidator != nil {
		return m.invalidator.Close()
	}
	return nil
}
