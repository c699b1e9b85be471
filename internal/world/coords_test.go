package world

import (
	"testing"

	"github.com/annel0/voxel-level/internal/vec"
	"github.com/annel0/voxel-level/internal/voxel"
	"github.com/stretchr/testify/assert"
)

func TestToChunkAndRelative(t *testing.T) {
	tests := []struct {
		world    int
		chunk    int
		relative int
	}{
		{0, 0, 0},
		{31, 0, 31},
		{32, 1, 0},
		{-1, -1, 31},
		{-32, -1, 0},
		{-33, -2, 31},
	}

	for _, tt := range tests {
		w := vec.Splat(tt.world)
		assert.Equal(t, vec.Splat(tt.chunk), ToChunk(w), "чанк для %d", tt.world)
		assert.Equal(t, vec.Splat(tt.relative), ToRelative(w), "относительная позиция для %d", tt.world)
	}
}

func TestToWorldRoundTrip(t *testing.T) {
	for x := -70; x <= 70; x += 7 {
		for y := -40; y <= 40; y += 9 {
			w := vec.New(x, y, -x)
			rel := ToRelative(w)

			assert.Equal(t, w, ToWorld(ToChunk(w), rel), "ToWorld должен восстанавливать %v", w)
			assert.True(t, voxel.InChunk(rel), "относительная позиция %v должна лежать в чанке", rel)
		}
	}
}

func TestLinearizeRoundTrip(t *testing.T) {
	size := vec.New(3, 4, 5)
	seen := make(map[int]bool)

	for z := 0; z < size.Z; z++ {
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				c := vec.New(x, y, z)
				idx := Linearize(size, c)

				assert.False(t, seen[idx], "индекс %d повторяется", idx)
				seen[idx] = true
				assert.Equal(t, c, Delinearize(size, idx))
			}
		}
	}
	assert.Len(t, seen, size.Volume())

	// x меняется быстрее всего
	assert.Equal(t, 1, Linearize(size, vec.New(1, 0, 0)))
	assert.Equal(t, 3, Linearize(size, vec.New(0, 1, 0)))
	assert.Equal(t, 12, Linearize(size, vec.New(0, 0, 1)))
}
