package voxel

import (
	"errors"
	"fmt"
)

// ErrBadRawChunk возвращается, если сырые данные чанка не удаётся восстановить
var ErrBadRawChunk = errors.New("повреждённые данные чанка")

// RawChunk сериализуемая, независимая от реестра форма чанка
type RawChunk[V comparable] struct {
	Palette []V    `yaml:"palette" json:"palette"`
	Voxels  string `yaml:"voxels" json:"voxels"`
}

// ToRaw переводит чанк в сырую форму. Палитра уплотняется:
// остаются только используемые значения в порядке первого появления.
func (c *Chunk[V]) ToRaw() RawChunk[V] {
	var zero V
	if c.indices == nil {
		first := zero
		if len(c.palette) > 0 {
			first = c.palette[0]
		}
		ids := make([]uint16, ChunkVolume)
		return RawChunk[V]{Palette: []V{first}, Voxels: EncodeRLE(ids)}
	}

	ids := make([]uint16, ChunkVolume)
	palette := c.remap(ids)
	return RawChunk[V]{Palette: palette, Voxels: EncodeRLE(ids)}
}

// FromRaw восстанавливает чанк из сырой формы
func FromRaw[V comparable](raw RawChunk[V]) (*Chunk[V], error) {
	if len(raw.Palette) == 0 {
		return nil, fmt.Errorf("%w: пустая палитра", ErrBadRawChunk)
	}
	ids, err := DecodeRLE(raw.Voxels, ChunkVolume)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRawChunk, err)
	}
	if len(ids) != ChunkVolume {
		return nil, fmt.Errorf("%w: ожидалось %d вокселей, получено %d", ErrBadRawChunk, ChunkVolume, len(ids))
	}

	uniform := true
	for _, id := range ids {
		if int(id) >= len(raw.Palette) {
			return nil, fmt.Errorf("%w: индекс %d вне палитры из %d элементов", ErrBadRawChunk, id, len(raw.Palette))
		}
		if id != ids[0] {
			uniform = false
		}
	}

	c := &Chunk[V]{palette: append([]V(nil), raw.Palette...)}
	if uniform {
		// Весь чанк заполнен одним значением: ставим его первым в палитре
		c.palette = []V{raw.Palette[ids[0]]}
		return c, nil
	}
	c.indices = ids
	return c, nil
}
