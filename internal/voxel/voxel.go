// Package voxel описывает контракт данных вокселя и хранилище одного чанка.
//
// Уровень (world.Level) ничего не знает о конкретном типе блока: ему нужен
// лишь тип V, удовлетворяющий Voxel[R], и реестр R, который задаёт семантику
// "пустоты" вокселя.
package voxel

import "github.com/annel0/voxel-level/internal/vec"

const (
	// ChunkSize длина ребра чанка в вокселях
	ChunkSize = 32
	// ChunkVolume количество вокселей в одном чанке
	ChunkVolume = ChunkSize * ChunkSize * ChunkSize
)

// Voxel ограничение для типа данных вокселя.
// Значение по умолчанию (нулевое значение типа) считается содержимым пустого чанка.
type Voxel[R any] interface {
	comparable
	// IsEmpty сообщает, пуст ли воксель с точки зрения реестра
	IsEmpty(registry R) bool
}

// Registry ограничение для реестра блоков
type Registry[R any] interface {
	Clone() R
}

// InChunk проверяет, что относительная координата лежит внутри чанка
func InChunk(rel vec.Vec3) bool {
	return rel.X >= 0 && rel.X < ChunkSize &&
		rel.Y >= 0 && rel.Y < ChunkSize &&
		rel.Z >= 0 && rel.Z < ChunkSize
}

// LocalIndex переводит относительную координату в индекс внутри чанка.
// Порядок: x меняется быстрее всего, затем y, затем z.
func LocalIndex(rel vec.Vec3) int {
	return rel.X + rel.Y*ChunkSize + rel.Z*ChunkSize*ChunkSize
}

// LocalPos обратное преобразование к LocalIndex
func LocalPos(index int) vec.Vec3 {
	return vec.Vec3{
		X: index % ChunkSize,
		Y: (index / ChunkSize) % ChunkSize,
		Z: index / (ChunkSize * ChunkSize),
	}
}
