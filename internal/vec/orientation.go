package vec

import "fmt"

// Orientation - направление размещённого объекта
type Orientation uint8

const (
	Up Orientation = iota
	Right
	Down
	Left

	OrientationCount
)

// String возвращает строковое представление направления
func (o Orientation) String() string {
	switch o {
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

// Opposite возвращает противоположное направление
func (o Orientation) Opposite() Orientation {
	return (o + 2) % OrientationCount
}

// Valid сообщает, является ли значение одним из четырёх направлений
func (o Orientation) Valid() bool {
	return o < OrientationCount
}

// ParseOrientation разбирает имя направления ("up", "right", "down", "left")
func ParseOrientation(s string) (Orientation, error) {
	for o := Up; o < OrientationCount; o++ {
		if o.String() == s {
			return o, nil
		}
	}
	return Up, fmt.Errorf("неизвестное направление %q", s)
}
