package storage

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/annel0/voxel-level/internal/voxel"
	"github.com/annel0/voxel-level/internal/world"
	"github.com/annel0/voxel-level/internal/world/block"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// ErrChecksumMismatch возвращается, если секция чанков не совпадает с контрольной суммой
var ErrChecksumMismatch = errors.New("контрольная сумма чанков не совпадает")

// levelFile текстовое представление уровня: зеркало плюс контрольная сумма
type levelFile[V voxel.Voxel[R], R voxel.Registry[R]] struct {
	Checksum string `yaml:"checksum"`

	world.Snapshot[V, R] `yaml:",inline"`
}

// chunksChecksum BLAKE3 от YAML-представления секции чанков
func chunksChecksum[V comparable](chunks []voxel.RawChunk[V]) (string, error) {
	data, err := yaml.Marshal(chunks)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации чанков: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// EncodeLevel сериализует уровень в YAML
func EncodeLevel[V voxel.Voxel[R], R voxel.Registry[R]](lvl *world.Level[V, R]) ([]byte, error) {
	file := levelFile[V, R]{Snapshot: lvl.Snapshot()}

	sum, err := chunksChecksum(file.Chunks)
	if err != nil {
		return nil, err
	}
	file.Checksum = sum

	data, err := yaml.Marshal(&file)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации уровня: %w", err)
	}
	return data, nil
}

// DecodeLevel восстанавливает уровень из YAML. Реестр файла накладывается
// на registry, поэтому блоки, отсутствующие в файле, берутся из него.
// Любая ошибка разбора возвращается, частично восстановленных уровней не бывает.
func DecodeLevel[V voxel.Voxel[R], R voxel.Registry[R]](data []byte, registry R) (*world.Level[V, R], error) {
	var file levelFile[V, R]
	file.Registry = registry.Clone()

	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("ошибка разбора уровня: %w", err)
	}

	if file.Checksum != "" {
		sum, err := chunksChecksum(file.Chunks)
		if err != nil {
			return nil, err
		}
		if sum != file.Checksum {
			return nil, fmt.Errorf("%w: ожидалось %s, получено %s", ErrChecksumMismatch, file.Checksum, sum)
		}
	}

	lvl, err := world.FromSnapshot(file.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("ошибка восстановления уровня: %w", err)
	}
	return lvl, nil
}

// DecodeBlockLevel восстанавливает уровень со встроенными блоками
func DecodeBlockLevel(data []byte) (*world.BlockLevel, error) {
	return DecodeLevel[block.BlockData](data, block.NewRegistry())
}
