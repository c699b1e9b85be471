package world

import (
	"github.com/annel0/voxel-level/internal/vec"
	"github.com/annel0/voxel-level/internal/voxel"
)

// Преобразования координат. Функции чистые и не проверяют границы уровня:
// проверка выполняется хранилищем чанков (Level).

// ToChunk возвращает координаты чанка, содержащего мировой воксель.
// Деление округляется к минус бесконечности, поэтому (-1) попадает в чанк -1.
func ToChunk(world vec.Vec3) vec.Vec3 {
	return vec.Vec3{
		X: vec.FloorDiv(world.X, voxel.ChunkSize),
		Y: vec.FloorDiv(world.Y, voxel.ChunkSize),
		Z: vec.FloorDiv(world.Z, voxel.ChunkSize),
	}
}

// ToRelative возвращает координаты вокселя внутри чанка, всегда в [0, ChunkSize)
func ToRelative(world vec.Vec3) vec.Vec3 {
	return vec.Vec3{
		X: vec.Mod(world.X, voxel.ChunkSize),
		Y: vec.Mod(world.Y, voxel.ChunkSize),
		Z: vec.Mod(world.Z, voxel.ChunkSize),
	}
}

// ToWorld собирает мировую координату из координат чанка и относительной позиции
func ToWorld(chunk, relative vec.Vec3) vec.Vec3 {
	return chunk.Scale(voxel.ChunkSize).Add(relative)
}

// Linearize переводит координаты чанка в индекс плоского массива.
// Порядок осей: x меняется быстрее всего, затем y, затем z.
func Linearize(size, chunk vec.Vec3) int {
	return chunk.X + chunk.Y*size.X + chunk.Z*size.X*size.Y
}

// Delinearize обратное преобразование к Linearize
func Delinearize(size vec.Vec3, index int) vec.Vec3 {
	layer := size.X * size.Y
	return vec.Vec3{
		X: index % size.X,
		Y: (index % layer) / size.X,
		Z: index / layer,
	}
}
