package world

import (
	"errors"
	"fmt"

	"github.com/annel0/voxel-level/internal/vec"
	"github.com/annel0/voxel-level/internal/voxel"
	"github.com/annel0/voxel-level/internal/world/block"
	"github.com/google/uuid"
)

// ErrInvalidSize возвращается при попытке создать уровень с неположительным
// или слишком большим размером
var ErrInvalidSize = errors.New("недопустимый размер уровня")

// MaxChunks предельное количество чанков в одном уровне
const MaxChunks = 1 << 20

// Level ограниченная трёхмерная сетка чанков.
//
// Все чанки создаются при конструировании и хранятся в плотном массиве,
// индекс которого равен Linearize(size, chunk). Размер уровня не меняется.
// Level не синхронизирован: одновременная запись из нескольких горутин
// должна сериализоваться вызывающей стороной.
type Level[V voxel.Voxel[R], R voxel.Registry[R]] struct {
	id       uuid.UUID
	size     vec.Vec3 // Размер уровня в чанках
	chunks   []voxel.Chunk[V]
	registry R
	assets   AssetRegistry
	atlas    []byte
}

// BlockLevel уровень со встроенным типом блоков
type BlockLevel = Level[block.BlockData, *block.Registry]

// BlockChunk чанк уровня BlockLevel
type BlockChunk = voxel.Chunk[block.BlockData]

// NewLevel создаёт уровень заданного размера (в чанках)
func NewLevel[V voxel.Voxel[R], R voxel.Registry[R]](size vec.Vec3, registry R) (*Level[V, R], error) {
	count, err := CountChunks(size)
	if err != nil {
		return nil, err
	}

	return &Level[V, R]{
		id:       uuid.New(),
		size:     size,
		chunks:   make([]voxel.Chunk[V], count),
		registry: registry,
		assets:   NewAssetRegistry(),
	}, nil
}

// CountChunks возвращает количество чанков уровня размера size.
// Каждая ось должна быть положительной, произведение не больше MaxChunks.
func CountChunks(size vec.Vec3) (int, error) {
	count := 1
	for _, axis := range [3]int{size.X, size.Y, size.Z} {
		if axis <= 0 || axis > MaxChunks/count {
			return 0, fmt.Errorf("%w: %v", ErrInvalidSize, size)
		}
		count *= axis
	}
	return count, nil
}

// NewBlockLevel создаёт уровень со встроенным реестром блоков
func NewBlockLevel(size vec.Vec3) (*BlockLevel, error) {
	return NewLevel[block.BlockData](size, block.NewRegistry())
}

// ID возвращает идентификатор уровня
func (l *Level[V, R]) ID() uuid.UUID {
	return l.id
}

// Size возвращает размер уровня в чанках
func (l *Level[V, R]) Size() vec.Vec3 {
	return l.size
}

// WorldSize возвращает размер уровня в вокселях
func (l *Level[V, R]) WorldSize() vec.Vec3 {
	return l.size.Scale(voxel.ChunkSize)
}

// ChunkCount возвращает количество чанков
func (l *Level[V, R]) ChunkCount() int {
	return len(l.chunks)
}

// Registry возвращает реестр блоков уровня
func (l *Level[V, R]) Registry() R {
	return l.registry
}

// Assets возвращает реестр текстур
func (l *Level[V, R]) Assets() *AssetRegistry {
	return &l.assets
}

// Atlas возвращает пиксели атласа текстур (может быть nil)
func (l *Level[V, R]) Atlas() []byte {
	return l.atlas
}

// InBounds проверяет, что координаты чанка лежат внутри уровня
func (l *Level[V, R]) InBounds(chunk vec.Vec3) bool {
	if chunk.X < 0 || chunk.X >= l.size.X ||
		chunk.Y < 0 || chunk.Y >= l.size.Y ||
		chunk.Z < 0 || chunk.Z >= l.size.Z {
		return false
	}
	return Linearize(l.size, chunk) < len(l.chunks)
}

// GetChunk возвращает чанк по его координатам
func (l *Level[V, R]) GetChunk(chunk vec.Vec3) (*voxel.Chunk[V], bool) {
	if !l.InBounds(chunk) {
		return nil, false
	}
	return &l.chunks[Linearize(l.size, chunk)], true
}

// ChunkAt возвращает чанк по индексу плоского массива
func (l *Level[V, R]) ChunkAt(index int) (*voxel.Chunk[V], bool) {
	if index < 0 || index >= len(l.chunks) {
		return nil, false
	}
	return &l.chunks[index], true
}

// ForEachChunk обходит чанки в порядке Linearize
func (l *Level[V, R]) ForEachChunk(fn func(coords vec.Vec3, chunk *voxel.Chunk[V])) {
	for i := range l.chunks {
		fn(Delinearize(l.size, i), &l.chunks[i])
	}
}

// GetVoxel возвращает воксель по мировым координатам.
// Вне пределов уровня возвращает false.
func (l *Level[V, R]) GetVoxel(world vec.Vec3) (V, bool) {
	chunk, ok := l.GetChunk(ToChunk(world))
	if !ok {
		var zero V
		return zero, false
	}
	return chunk.Get(ToRelative(world)), true
}

// SetVoxel записывает воксель по мировым координатам.
// Запись вне пределов уровня молча отбрасывается: уровень не расширяется.
func (l *Level[V, R]) SetVoxel(world vec.Vec3, v V) bool {
	chunk, ok := l.GetChunk(ToChunk(world))
	if !ok {
		writesDropped.Inc()
		return false
	}
	return chunk.Set(ToRelative(world), v)
}

// IsSolid возвращает true, если воксель существует и не пуст
func (l *Level[V, R]) IsSolid(world vec.Vec3) bool {
	v, ok := l.GetVoxel(world)
	return ok && !v.IsEmpty(l.registry)
}
