package world

import (
	"math"

	"github.com/annel0/voxel-level/internal/util"
	"github.com/annel0/voxel-level/internal/vec"
	"github.com/annel0/voxel-level/internal/world/block"
)

// Константы генерации по умолчанию
const (
	DefaultNoiseScale = 0.02 // Сглаженность ландшафта
	DirtDepth         = 3    // Толщина слоя земли под травой
)

// Generator заполняет уровень ландшафтом по карте высот из шума Перлина.
// Ось Y направлена вверх. Для одного сида результат всегда одинаков.
type Generator struct {
	Seed       int64   // Сид для генерации шума
	NoiseScale float64 // Масштаб шума по горизонтали
	BaseHeight int     // Минимальная высота поверхности
	Amplitude  int     // Разброс высоты над BaseHeight
	SeaLevel   int     // До этой высоты пустоты заполняются водой

	noise *util.Noise
}

// NewGenerator создаёт генератор с параметрами, подобранными под высоту уровня
func NewGenerator(seed int64, worldHeight int) *Generator {
	return &Generator{
		Seed:       seed,
		NoiseScale: DefaultNoiseScale,
		BaseHeight: worldHeight / 4,
		Amplitude:  worldHeight / 2,
		SeaLevel:   worldHeight / 3,
	}
}

// HeightAt возвращает высоту поверхности в столбце (x, z)
func (g *Generator) HeightAt(x, z int) int {
	if g.noise == nil || g.noise.Seed() != g.Seed {
		g.noise = util.NewNoise(g.Seed)
	}
	n := g.noise.Noise2D(float64(x)*g.NoiseScale, float64(z)*g.NoiseScale)
	return g.BaseHeight + int(math.Round(n*float64(g.Amplitude)))
}

// Fill записывает ландшафт во все столбцы уровня и возвращает
// количество непустых вокселей
func (g *Generator) Fill(lvl *BlockLevel) int {
	size := lvl.WorldSize()
	written := 0

	for z := 0; z < size.Z; z++ {
		for x := 0; x < size.X; x++ {
			height := g.HeightAt(x, z)
			top := height
			if g.SeaLevel > top {
				top = g.SeaLevel
			}
			if top >= size.Y {
				top = size.Y - 1
			}

			for y := 0; y <= top; y++ {
				b := g.blockAt(y, height)
				if b.IsAir() {
					continue
				}
				lvl.SetVoxel(vec.Vec3{X: x, Y: y, Z: z}, b)
				written++
			}
		}
	}
	return written
}

// blockAt выбирает блок для высоты y в столбце с поверхностью height
func (g *Generator) blockAt(y, height int) block.BlockData {
	switch {
	case y > height:
		if y <= g.SeaLevel {
			return block.Water
		}
		return block.Air
	case y == height:
		if height < g.SeaLevel {
			return block.Sand
		}
		return block.Grass
	case y > height-DirtDepth:
		return block.Dirt
	default:
		return block.Stone
	}
}
