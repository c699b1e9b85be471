package world

import (
	"math"

	"github.com/annel0/voxel-level/internal/vec"
	"github.com/go-gl/mathgl/mgl32"
)

// RaycastHit результат трассировки луча
type RaycastHit struct {
	Voxel    vec.Vec3   // Мировые координаты вокселя
	Chunk    vec.Vec3   // Координаты чанка
	Relative vec.Vec3   // Координаты внутри чанка
	Normal   mgl32.Vec3 // Нормаль грани, через которую луч вошёл в воксель
	Distance float32    // Расстояние от начала луча до этой грани
}

// Raycast проходит луч по сетке вокселей (инкрементальный обход, DDA)
// и возвращает первый воксель, для которого occupied вернул true.
//
// direction может быть ненормированным. radius задаётся в мировых единицах.
// Отсутствие попадания не является ошибкой.
func Raycast(origin, direction mgl32.Vec3, radius float32, occupied func(vec.Vec3) bool) (RaycastHit, bool) {
	if direction == (mgl32.Vec3{}) {
		return RaycastHit{}, false
	}

	var (
		step    [3]int
		tMax    [3]float32
		tDelta  [3]float32
		current [3]int
		face    mgl32.Vec3
	)
	for axis := 0; axis < 3; axis++ {
		d := direction[axis]
		step[axis] = sign(d)
		tMax[axis] = intbound(origin[axis], d)
		if d == 0 {
			tDelta[axis] = float32(math.Inf(1))
		} else {
			tDelta[axis] = float32(step[axis]) / d
		}
		current[axis] = int(math.Floor(float64(origin[axis])))
	}

	// Параметр t измеряется в длинах direction, а не в мировых единицах
	length := direction.Len()
	radius /= length

	limit := iterationLimit(radius)
	var lastMax float32
	for counter := 0; counter <= limit; counter++ {
		pos := vec.Vec3{X: current[0], Y: current[1], Z: current[2]}
		if occupied(pos) {
			return RaycastHit{
				Voxel:    pos,
				Chunk:    ToChunk(pos),
				Relative: ToRelative(pos),
				Normal:   face,
				Distance: lastMax * length,
			}, true
		}

		axis := nextAxis(tMax)
		if tMax[axis] > radius {
			break
		}
		lastMax = tMax[axis]
		current[axis] += step[axis]
		tMax[axis] += tDelta[axis]
		face = mgl32.Vec3{}
		face[axis] = float32(-step[axis])
	}
	return RaycastHit{}, false
}

// Raycast трассирует луч по непустым вокселям уровня
func (l *Level[V, R]) Raycast(origin, direction mgl32.Vec3, radius float32) (RaycastHit, bool) {
	hit, ok := Raycast(origin, direction, radius, l.IsSolid)
	if ok {
		raycasts.WithLabelValues("hit").Inc()
	} else {
		raycasts.WithLabelValues("miss").Inc()
	}
	return hit, ok
}

// nextAxis выбирает ось с наименьшим tMax. При равенстве x побеждает y и z,
// y побеждает z.
func nextAxis(tMax [3]float32) int {
	switch {
	case tMax[0] <= tMax[1] && tMax[0] <= tMax[2]:
		return 0
	case tMax[1] <= tMax[2]:
		return 1
	default:
		return 2
	}
}

// iterationLimit ограничивает число шагов величиной radius*4 на случай,
// если tMax перестанет строго возрастать из-за погрешностей float.
// На скользящих лучах это может дать ложный промах.
func iterationLimit(radius float32) int {
	r := float64(radius) * 4
	switch {
	case math.IsNaN(r) || r <= 0:
		return 0
	case r >= math.MaxInt32:
		return math.MaxInt32
	default:
		return int(r)
	}
}

// intbound возвращает параметр t первого пересечения целочисленной границы
// для координаты s, движущейся со скоростью ds.
func intbound(s, ds float32) float32 {
	if ds == 0 {
		return float32(math.Inf(1))
	}
	if ds < 0 {
		s, ds = -s, -ds
	}
	return (1 - fract(s)) / ds
}

// fract евклидова дробная часть, всегда в [0, 1)
func fract(s float32) float32 {
	return s - float32(math.Floor(float64(s)))
}

func sign(v float32) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
