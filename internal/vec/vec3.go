package vec

import "fmt"

// Vec3 представляет трехмерный вектор с целочисленными координатами.
// Используется для мировых координат вокселей, координат чанков
// и относительных координат внутри чанка.
type Vec3 struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
	Z int `yaml:"z" json:"z"`
}

// New создаёт Vec3 из трёх компонент
func New(x, y, z int) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Splat создаёт Vec3 с одинаковыми компонентами
func Splat(v int) Vec3 {
	return Vec3{X: v, Y: v, Z: v}
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Scale умножает все компоненты на скаляр
func (v Vec3) Scale(k int) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Volume возвращает произведение компонент
func (v Vec3) Volume() int {
	return v.X * v.Y * v.Z
}

// AnyNegative возвращает true, если хотя бы одна компонента отрицательна
func (v Vec3) AnyNegative() bool {
	return v.X < 0 || v.Y < 0 || v.Z < 0
}

// DistanceSquared возвращает квадрат расстояния до другого вектора
func (v Vec3) DistanceSquared(other Vec3) int {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}

// String возвращает строковое представление вектора
func (v Vec3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}

// FloorDiv делит с округлением к минус бесконечности (b > 0)
func FloorDiv(a, b int) int {
	q := a / b
	if r := a % b; r < 0 {
		q--
	}
	return q
}

// Mod возвращает евклидов остаток, всегда в диапазоне [0, b) (b > 0)
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
