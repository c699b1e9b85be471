package world

import (
	"encoding/base64"
	"fmt"

	"github.com/annel0/voxel-level/internal/vec"
	"github.com/annel0/voxel-level/internal/voxel"
	"github.com/google/uuid"
)

// Snapshot сериализуемое зеркало уровня.
// Существует только на время сохранения/загрузки и не хранится в Level.
type Snapshot[V voxel.Voxel[R], R voxel.Registry[R]] struct {
	ID        string              `yaml:"id" json:"id"`
	LevelSize vec.Vec3            `yaml:"level_size" json:"level_size"`
	Chunks    []voxel.RawChunk[V] `yaml:"chunks" json:"chunks"` // В порядке Linearize
	Assets    AssetRegistry       `yaml:"asset_registry" json:"asset_registry"`
	Atlas     string              `yaml:"texture_atlas" json:"texture_atlas"` // base64
	Registry  R                   `yaml:"block_registry" json:"block_registry"`
}

// Snapshot переводит все чанки в сырую форму и собирает зеркало уровня
func (l *Level[V, R]) Snapshot() Snapshot[V, R] {
	chunks := make([]voxel.RawChunk[V], len(l.chunks))
	for i := range l.chunks {
		chunks[i] = l.chunks[i].ToRaw()
	}

	assets := AssetRegistry{
		TextureUVs:  make(map[string]FaceUVs, len(l.assets.TextureUVs)),
		TextureSize: l.assets.TextureSize,
	}
	for k, v := range l.assets.TextureUVs {
		assets.TextureUVs[k] = v
	}

	return Snapshot[V, R]{
		ID:        l.id.String(),
		LevelSize: l.size,
		Chunks:    chunks,
		Assets:    assets,
		Atlas:     base64.StdEncoding.EncodeToString(l.atlas),
		Registry:  l.registry.Clone(),
	}
}

// FromSnapshot восстанавливает уровень из зеркала. Уровень либо
// восстанавливается целиком, либо возвращается ошибка.
func FromSnapshot[V voxel.Voxel[R], R voxel.Registry[R]](snap Snapshot[V, R]) (*Level[V, R], error) {
	count, err := CountChunks(snap.LevelSize)
	if err != nil {
		return nil, err
	}
	if len(snap.Chunks) != count {
		return nil, fmt.Errorf("ожидалось %d чанков, получено %d", count, len(snap.Chunks))
	}

	lvl, err := NewLevel[V](snap.LevelSize, snap.Registry)
	if err != nil {
		return nil, err
	}

	if snap.ID != "" {
		id, err := uuid.Parse(snap.ID)
		if err != nil {
			return nil, fmt.Errorf("некорректный идентификатор уровня %q: %w", snap.ID, err)
		}
		lvl.id = id
	}

	for i, raw := range snap.Chunks {
		chunk, err := voxel.FromRaw(raw)
		if err != nil {
			return nil, fmt.Errorf("чанк %v: %w", Delinearize(lvl.size, i), err)
		}
		lvl.chunks[i] = *chunk
	}

	atlas, err := base64.StdEncoding.DecodeString(snap.Atlas)
	if err != nil {
		return nil, fmt.Errorf("некорректный атлас текстур: %w", err)
	}
	if len(atlas) > 0 {
		lvl.atlas = atlas
	}

	lvl.assets = snap.Assets
	if lvl.assets.TextureUVs == nil {
		lvl.assets.TextureUVs = make(map[string]FaceUVs)
	}
	return lvl, nil
}
