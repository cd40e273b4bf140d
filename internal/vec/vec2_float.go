package vec

import "math"

// Vec2Float представляет 2D координаты с плавающей точкой (позиции внутри тайла, рука манипулятора)
type Vec2Float struct {
	X, Y float64
}

// ToVec2 преобразует в целочисленные координаты тайла (с округлением вниз)
func (v Vec2Float) ToVec2() Vec2 {
	return Vec2{X: int(math.Floor(v.X)), Y: int(math.Floor(v.Y))}
}

// FromVec2 создает Vec2Float из Vec2
func FromVec2(v Vec2) Vec2Float {
	return Vec2Float{X: float64(v.X), Y: float64(v.Y)}
}

// Add складывает два вектора
func (v Vec2Float) Add(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X + other.X, Y: v.Y + other.Y}
}

// Mul умножает вектор на скаляр
func (v Vec2Float) Mul(scalar float64) Vec2Float {
	return Vec2Float{X: v.X * scalar, Y: v.Y * scalar}
}

// Direction возвращает единичный вектор направления o (ось Y направлена вниз)
func Direction(o Orientation) Vec2Float {
	switch o {
	case Up:
		return Vec2Float{X: 0, Y: -1}
	case Right:
		return Vec2Float{X: 1, Y: 0}
	case Down:
		return Vec2Float{X: 0, Y: 1}
	case Left:
		return Vec2Float{X: -1, Y: 0}
	default:
		return Vec2Float{}
	}
}
