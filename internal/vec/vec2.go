package vec

import "math"

// ChunkWidth - ширина (и высота) чанка в тайлах
const ChunkWidth = 32

// Vec2 представляет 2D координаты: мировые (тайл) или координаты чанка
type Vec2 struct {
	X, Y int
}

// ToChunkCoord переводит мировую координату в координату чанка.
// Деление округляется вниз, а не к нулю: -1 -> -1, -33 -> -2, 31 -> 0, 32 -> 1.
func ToChunkCoord(worldCoord int) int {
	q := worldCoord / ChunkWidth
	if worldCoord%ChunkWidth != 0 && worldCoord < 0 {
		q--
	}
	return q
}

// ToLocalCoord возвращает смещение внутри чанка, всегда в диапазоне [0, ChunkWidth)
func ToLocalCoord(worldCoord int) int {
	m := worldCoord % ChunkWidth
	if m < 0 {
		m += ChunkWidth
	}
	return m
}

// ToChunkCoords преобразует глобальные координаты в координаты чанка
func (v Vec2) ToChunkCoords() Vec2 {
	return Vec2{X: ToChunkCoord(v.X), Y: ToChunkCoord(v.Y)}
}

// LocalInChunk возвращает локальные координаты внутри чанка
func (v Vec2) LocalInChunk() Vec2 {
	return Vec2{X: ToLocalCoord(v.X), Y: ToLocalCoord(v.Y)}
}

// ChunkOrigin возвращает мировую координату левого верхнего тайла чанка с координатами v
func (v Vec2) ChunkOrigin() Vec2 {
	return Vec2{X: v.X * ChunkWidth, Y: v.Y * ChunkWidth}
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Incremented возвращает координату, сдвинутую на n тайлов в направлении o.
// Отрицательное n сдвигает в обратную сторону.
func (v Vec2) Incremented(o Orientation, n int) Vec2 {
	switch o {
	case Up:
		v.Y -= n
	case Right:
		v.X += n
	case Down:
		v.Y += n
	case Left:
		v.X -= n
	}
	return v
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
