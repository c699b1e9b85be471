package world

import (
	"github.com/annel0/voxel-level/internal/vec"
	"github.com/annel0/voxel-level/internal/voxel"
)

// NeighborCount количество соседей чанка в 26-связной окрестности
const NeighborCount = 26

// Neighbor позиция соседнего чанка. Present == false означает отсутствие соседа.
type Neighbor struct {
	Coord   vec.Vec3
	Present bool
}

// neighborOffsets смещения соседей: z меняется медленнее всего, затем y, затем x.
var neighborOffsets = func() [NeighborCount]vec.Vec3 {
	var out [NeighborCount]vec.Vec3
	i := 0
	for z := -1; z <= 1; z++ {
		for y := -1; y <= 1; y++ {
			for x := -1; x <= 1; x++ {
				if x == 0 && y == 0 && z == 0 {
					continue
				}
				out[i] = vec.Vec3{X: x, Y: y, Z: z}
				i++
			}
		}
	}
	return out
}()

// NeighborOffsets возвращает таблицу смещений в порядке обхода
func NeighborOffsets() [NeighborCount]vec.Vec3 {
	return neighborOffsets
}

// neighbor разрешает один кандидат. Сначала отсекаются отрицательные
// координаты, затем проверяются границы хранилища через GetChunk.
// Эти проверки намеренно не объединены в одну.
func (l *Level[V, R]) neighbor(candidate vec.Vec3) (*voxel.Chunk[V], bool) {
	if candidate.AnyNegative() {
		return nil, false
	}
	return l.GetChunk(candidate)
}

// NeighborPositions возвращает координаты 26 соседей чанка
func (l *Level[V, R]) NeighborPositions(chunk vec.Vec3) [NeighborCount]Neighbor {
	var out [NeighborCount]Neighbor
	for i, off := range neighborOffsets {
		candidate := chunk.Add(off)
		out[i].Coord = candidate
		_, out[i].Present = l.neighbor(candidate)
	}
	return out
}

// NeighborChunks возвращает копии 26 соседних чанков.
// На месте отсутствующих соседей стоят пустые чанки.
func (l *Level[V, R]) NeighborChunks(chunk vec.Vec3) [NeighborCount]*voxel.Chunk[V] {
	var out [NeighborCount]*voxel.Chunk[V]
	for i, off := range neighborOffsets {
		if c, ok := l.neighbor(chunk.Add(off)); ok {
			out[i] = c.Clone()
		} else {
			out[i] = voxel.NewChunk[V]()
		}
	}
	return out
}
