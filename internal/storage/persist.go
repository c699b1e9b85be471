package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/annel0/voxel-level/internal/logging"
	"github.com/annel0/voxel-level/internal/observability"
	"github.com/annel0/voxel-level/internal/voxel"
	"github.com/annel0/voxel-level/internal/world"
	"github.com/annel0/voxel-level/internal/world/block"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
)

var persistDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "voxel_level",
	Name:      "persist_seconds",
	Help:      "Длительность сохранения и загрузки уровня.",
	Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
}, []string{"op"})

func init() {
	prometheus.MustRegister(persistDuration)
}

// IsCompressed сообщает, сжимается ли файл по этому пути
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, CompressedSuffix)
}

// SaveLevel сохраняет уровень в файл. Запись атомарна: данные пишутся
// во временный файл рядом с path и переименовываются поверх него.
// Пути с расширением .zst сжимаются zstd.
func SaveLevel[V voxel.Voxel[R], R voxel.Registry[R]](ctx context.Context, path string, lvl *world.Level[V, R]) (err error) {
	start := time.Now()
	_, span := observability.StartSpan(ctx, "level.save")
	span.SetAttributes(
		attribute.String("level.path", path),
		attribute.String("level.id", lvl.ID().String()),
		attribute.Int("level.chunks", lvl.ChunkCount()),
	)
	defer func() {
		observability.EndSpan(span, err)
		persistDuration.WithLabelValues("save").Observe(time.Since(start).Seconds())
	}()

	data, err := EncodeLevel(lvl)
	if err != nil {
		return err
	}
	if IsCompressed(path) {
		data = compress(data)
	}

	if err := writeFileAtomic(path, data); err != nil {
		return err
	}

	logging.GetStorageLogger().Info("💾 Уровень %s сохранён в %s (%d байт, %s)", lvl.ID(), path, len(data), time.Since(start))
	return nil
}

// LoadLevel загружает уровень из файла, накладывая реестр файла на registry
func LoadLevel[V voxel.Voxel[R], R voxel.Registry[R]](ctx context.Context, path string, registry R) (lvl *world.Level[V, R], err error) {
	start := time.Now()
	_, span := observability.StartSpan(ctx, "level.load")
	span.SetAttributes(attribute.String("level.path", path))
	defer func() {
		observability.EndSpan(span, err)
		persistDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения уровня %s: %w", path, err)
	}
	if IsCompressed(path) {
		if data, err = decompress(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	lvl, err = DecodeLevel[V](data, registry)
	if err != nil {
		logging.GetStorageLogger().Warn("⚠️ Не удалось загрузить уровень %s: %v", path, err)
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	span.SetAttributes(attribute.String("level.id", lvl.ID().String()))
	logging.GetStorageLogger().Info("📂 Уровень %s загружен из %s (%d чанков, %s)", lvl.ID(), path, lvl.ChunkCount(), time.Since(start))
	return lvl, nil
}

// LoadBlockLevel загружает уровень со встроенными блоками
func LoadBlockLevel(ctx context.Context, path string) (*world.BlockLevel, error) {
	return LoadLevel[block.BlockData](ctx, path, block.NewRegistry())
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ошибка создания директории %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // после Rename файла уже нет

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка записи %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка синхронизации %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("ошибка переименования в %s: %w", path, err)
	}
	return nil
}
