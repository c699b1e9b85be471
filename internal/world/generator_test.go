package world

import (
	"testing"

	"github.com/annel0/voxel-level/internal/vec"
	"github.com/annel0/voxel-level/internal/world/block"
	"github.com/stretchr/testify/assert"
)

func TestGeneratorDeterministic(t *testing.T) {
	a := newTestLevel(t, vec.New(2, 1, 2))
	b := newTestLevel(t, vec.New(2, 1, 2))

	na := NewGenerator(12345, a.WorldSize().Y).Fill(a)
	nb := NewGenerator(12345, b.WorldSize().Y).Fill(b)

	assert.Greater(t, na, 0, "генератор должен заполнить уровень")
	assert.Equal(t, na, nb)
	assert.Equal(t, a.Snapshot().Chunks, b.Snapshot().Chunks, "одинаковый сид даёт одинаковый ландшафт")
}

func TestGeneratorColumns(t *testing.T) {
	lvl := newTestLevel(t, vec.New(1, 1, 1))
	gen := NewGenerator(7, lvl.WorldSize().Y)
	gen.Fill(lvl)

	for _, col := range []vec.Vec3{vec.New(0, 0, 0), vec.New(13, 0, 21), vec.New(31, 0, 31)} {
		h := gen.HeightAt(col.X, col.Z)
		assert.GreaterOrEqual(t, h, gen.BaseHeight)

		bottom, _ := lvl.GetVoxel(vec.New(col.X, 0, col.Z))
		assert.Equal(t, block.Stone, bottom, "в основании столбца камень")

		if h < lvl.WorldSize().Y-1 {
			above, _ := lvl.GetVoxel(vec.New(col.X, h+1, col.Z))
			if h+1 <= gen.SeaLevel {
				assert.Equal(t, block.Water, above)
			} else {
				assert.True(t, above.IsAir())
			}
		}
	}
}
