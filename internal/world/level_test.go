package world

import (
	"testing"

	"github.com/annel0/voxel-level/internal/vec"
	"github.com/annel0/voxel-level/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLevel(t *testing.T, size vec.Vec3) *BlockLevel {
	t.Helper()
	lvl, err := NewBlockLevel(size)
	require.NoError(t, err)
	return lvl
}

func TestNewLevel(t *testing.T) {
	lvl := newTestLevel(t, vec.New(2, 3, 4))

	assert.Equal(t, 24, lvl.ChunkCount(), "все чанки должны создаваться сразу")
	assert.Equal(t, vec.New(64, 96, 128), lvl.WorldSize())
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", lvl.ID().String())
	assert.NotNil(t, lvl.Registry())
}

func TestNewLevelInvalidSize(t *testing.T) {
	sizes := []vec.Vec3{
		vec.New(0, 1, 1), vec.New(1, -1, 1), vec.New(1, 1, 0),
		vec.New(MaxChunks, 2, 1),
		vec.New(3037000500, 3037000500, 2), // переполнение int
	}
	for _, size := range sizes {
		_, err := NewBlockLevel(size)
		assert.ErrorIs(t, err, ErrInvalidSize, "размер %v должен отклоняться", size)
	}
}

func TestCountChunks(t *testing.T) {
	n, err := CountChunks(vec.New(2, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, 24, n)

	n, err = CountChunks(vec.New(MaxChunks, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, MaxChunks, n)

	_, err = CountChunks(vec.New(-3037000500, -3037000500, 1))
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestLevelSetGetVoxel(t *testing.T) {
	lvl := newTestLevel(t, vec.New(2, 2, 2))
	pos := vec.New(40, 5, 63)

	v, ok := lvl.GetVoxel(pos)
	require.True(t, ok)
	assert.True(t, v.IsAir(), "новый уровень должен быть пустым")

	assert.True(t, lvl.SetVoxel(pos, block.Stone))
	v, ok = lvl.GetVoxel(pos)
	require.True(t, ok)
	assert.Equal(t, block.Stone, v)

	// Запись попала в нужный чанк
	chunk, ok := lvl.GetChunk(vec.New(1, 0, 1))
	require.True(t, ok)
	assert.Equal(t, block.Stone, chunk.Get(vec.New(8, 5, 31)))
}

func TestLevelOutOfRange(t *testing.T) {
	lvl := newTestLevel(t, vec.New(2, 2, 1))

	for _, pos := range []vec.Vec3{
		vec.New(-1, 0, 0),
		vec.New(0, -1, 0),
		vec.New(64, 0, 0), // чанк (2,0,0): индекс 2 существует, но ось X вне уровня
		vec.New(0, 0, 32),
	} {
		assert.False(t, lvl.SetVoxel(pos, block.Stone), "запись в %v должна отбрасываться", pos)
		_, ok := lvl.GetVoxel(pos)
		assert.False(t, ok, "воксель %v должен отсутствовать", pos)
	}

	// Ни один чанк не изменился
	lvl.ForEachChunk(func(coords vec.Vec3, chunk *BlockChunk) {
		assert.True(t, chunk.IsUniform(), "чанк %v не должен изменяться", coords)
	})
	assert.Equal(t, vec.New(2, 2, 1), lvl.Size(), "уровень не должен расширяться")
}

func TestLevelChunkAt(t *testing.T) {
	lvl := newTestLevel(t, vec.New(2, 2, 2))
	lvl.SetVoxel(vec.New(32, 32, 0), block.Dirt)

	chunk, ok := lvl.ChunkAt(Linearize(lvl.Size(), vec.New(1, 1, 0)))
	require.True(t, ok)
	assert.Equal(t, block.Dirt, chunk.Get(vec.New(0, 0, 0)))

	_, ok = lvl.ChunkAt(-1)
	assert.False(t, ok)
	_, ok = lvl.ChunkAt(lvl.ChunkCount())
	assert.False(t, ok)
}

func TestLevelIsSolid(t *testing.T) {
	lvl := newTestLevel(t, vec.New(1, 1, 1))
	lvl.SetVoxel(vec.New(1, 1, 1), block.Stone)
	lvl.SetVoxel(vec.New(2, 2, 2), block.New("mod:unknown"))

	assert.True(t, lvl.IsSolid(vec.New(1, 1, 1)))
	assert.True(t, lvl.IsSolid(vec.New(2, 2, 2)), "неизвестный блок не считается пустым")
	assert.False(t, lvl.IsSolid(vec.New(0, 0, 0)))
	assert.False(t, lvl.IsSolid(vec.New(-5, 0, 0)))
}
