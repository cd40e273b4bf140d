package proto

import "fmt"

// Category - вид прототипа. Поведение объекта выбирается по категории,
// а не по конкретному типу.
type Category uint8

const (
	CategoryTile Category = iota
	CategoryResource
	CategoryItem
	CategorySprite
	CategoryContainer
	CategoryTransportBelt
	CategoryInserter
	CategoryMiningDrill

	categoryCount
)

var categoryNames = [categoryCount]string{
	CategoryTile:          "tile",
	CategoryResource:      "resource",
	CategoryItem:          "item",
	CategorySprite:        "sprite",
	CategoryContainer:     "container",
	CategoryTransportBelt: "transport_belt",
	CategoryInserter:      "inserter",
	CategoryMiningDrill:   "mining_drill",
}

// String возвращает имя категории в том виде, в котором оно записывается в YAML
func (c Category) String() string {
	if c >= categoryCount {
		return fmt.Sprintf("category(%d)", uint8(c))
	}
	return categoryNames[c]
}

// IsEntity сообщает, размещается ли прототип этой категории на слое сущностей
func (c Category) IsEntity() bool {
	switch c {
	case CategoryContainer, CategoryTransportBelt, CategoryInserter, CategoryMiningDrill:
		return true
	default:
		return false
	}
}

// ParseCategory разбирает имя категории
func ParseCategory(s string) (Category, error) {
	for c := Category(0); c < categoryCount; c++ {
		if categoryNames[c] == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("неизвестная категория прототипа %q", s)
}
