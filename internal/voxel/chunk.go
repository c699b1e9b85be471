package voxel

import "github.com/annel0/voxel-level/internal/vec"

// Chunk хранит ChunkVolume вокселей через палитру.
//
// Нулевое значение Chunk корректно и эквивалентно чанку, заполненному
// значением V по умолчанию. Массив индексов выделяется при первой записи
// значения, отличного от palette[0].
type Chunk[V comparable] struct {
	palette []V
	indices []uint16
	lookup  map[V]uint16 // Строится лениво по palette
}

// MaxPalette предельный размер палитры, адресуемый индексом uint16
const MaxPalette = 1 << 16

// NewChunk создаёт пустой чанк
func NewChunk[V comparable]() *Chunk[V] {
	return &Chunk[V]{}
}

// Get возвращает воксель по относительным координатам.
// Для координат вне чанка возвращается значение по умолчанию.
func (c *Chunk[V]) Get(rel vec.Vec3) V {
	var zero V
	if !InChunk(rel) || len(c.palette) == 0 {
		return zero
	}
	if c.indices == nil {
		return c.palette[0]
	}
	return c.palette[c.indices[LocalIndex(rel)]]
}

// Set записывает воксель по относительным координатам.
// Координаты вне чанка игнорируются. Возвращает false, если значение
// не поместилось в палитру.
func (c *Chunk[V]) Set(rel vec.Vec3, v V) bool {
	if !InChunk(rel) {
		return false
	}
	if len(c.palette) == 0 {
		var zero V
		c.palette = append(c.palette, zero)
	}

	idx, ok := c.paletteIndex(v)
	if !ok {
		return false
	}
	if c.indices == nil {
		if idx == 0 {
			return true
		}
		c.indices = make([]uint16, ChunkVolume)
	}
	c.indices[LocalIndex(rel)] = idx
	return true
}

// paletteIndex возвращает индекс значения в палитре, добавляя его при необходимости.
// Заполненная палитра сначала уплотняется до используемых значений.
func (c *Chunk[V]) paletteIndex(v V) (uint16, bool) {
	if c.lookup == nil {
		c.rebuildLookup()
	}
	if idx, ok := c.lookup[v]; ok {
		return idx, true
	}

	if len(c.palette) >= MaxPalette {
		c.compact()
		if len(c.palette) >= MaxPalette {
			return 0, false
		}
	}
	c.palette = append(c.palette, v)
	idx := uint16(len(c.palette) - 1)
	c.lookup[v] = idx
	return idx, true
}

// compact оставляет в палитре только значения, на которые ссылаются индексы
func (c *Chunk[V]) compact() {
	if c.indices == nil {
		c.palette = c.palette[:1]
	} else {
		c.palette = c.remap(c.indices)
	}
	c.rebuildLookup()
}

// remap записывает в dst индексы по уплотнённой палитре и возвращает её.
// Значения идут в порядке первого появления. dst может совпадать с c.indices.
func (c *Chunk[V]) remap(dst []uint16) []V {
	table := make(map[uint16]uint16)
	palette := make([]V, 0, 16)
	for i, old := range c.indices {
		idx, ok := table[old]
		if !ok {
			idx = uint16(len(palette))
			table[old] = idx
			palette = append(palette, c.palette[old])
		}
		dst[i] = idx
	}
	return palette
}

func (c *Chunk[V]) rebuildLookup() {
	c.lookup = make(map[V]uint16, len(c.palette))
	for i, p := range c.palette {
		if _, dup := c.lookup[p]; !dup {
			c.lookup[p] = uint16(i)
		}
	}
}

// PaletteLen возвращает текущий размер палитры
func (c *Chunk[V]) PaletteLen() int {
	return len(c.palette)
}

// IsUniform возвращает true, если все воксели чанка одинаковы
func (c *Chunk[V]) IsUniform() bool {
	if c.indices == nil {
		return true
	}
	first := c.indices[0]
	for _, i := range c.indices[1:] {
		if i != first {
			return false
		}
	}
	return true
}

// Clone создаёт независимую копию чанка
func (c *Chunk[V]) Clone() *Chunk[V] {
	out := &Chunk[V]{}
	if c.palette != nil {
		out.palette = append([]V(nil), c.palette...)
	}
	if c.indices != nil {
		out.indices = append([]uint16(nil), c.indices...)
	}
	return out
}
