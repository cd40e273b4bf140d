package world

import (
	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world/proto"
)

// ChunkArea - число тайлов в чанке
const ChunkArea = vec.ChunkWidth * vec.ChunkWidth

// ChunkObjectLayer - объект, не привязанный к сетке тайлов (отладочная подсветка и т.п.)
type ChunkObjectLayer struct {
	Prototype proto.Prototype
	Position  vec.Vec2Float // мировая позиция левого верхнего угла
	Width     float64
	Height    float64
}

// ChunkStructLayer - логическая структура чанка, например участок ленты
type ChunkStructLayer struct {
	Prototype proto.Prototype
	Coord     vec.Vec2 // мировая координата тайла структуры
	Segment   *proto.TransportSegment
}

// Chunk представляет участок мира размером 32x32 тайла
type Chunk struct {
	coords vec.Vec2 // Координаты чанка в мире
	tiles  [ChunkArea]ChunkTile

	objects [ObjectLayerCount][]ChunkObjectLayer
	structs [StructLayerCount][]ChunkStructLayer
	logic   [LogicGroupCount][]LayerRef
}

// NewChunk создаёт пустой чанк с указанными координатами
func NewChunk(coords vec.Vec2) *Chunk {
	return &Chunk{coords: coords}
}

// Coords возвращает координаты чанка
func (c *Chunk) Coords() vec.Vec2 {
	return c.coords
}

// GetTile возвращает тайл по локальным координатам
func (c *Chunk) GetTile(local vec.Vec2) *ChunkTile {
	return &c.tiles[local.Y*vec.ChunkWidth+local.X]
}

// TileAt возвращает тайл по индексу в массиве (построчно)
func (c *Chunk) TileAt(index int) *ChunkTile {
	return &c.tiles[index]
}

// Objects возвращает объекты группы
func (c *Chunk) Objects(group ObjectLayer) []ChunkObjectLayer {
	return c.objects[group]
}

// AddObject добавляет объект в группу
func (c *Chunk) AddObject(group ObjectLayer, obj ChunkObjectLayer) {
	c.objects[group] = append(c.objects[group], obj)
}

// RemoveObject удаляет объекты группы, для которых match вернул true. Порядок не сохраняется.
func (c *Chunk) RemoveObject(group ObjectLayer, match func(*ChunkObjectLayer) bool) int {
	list := c.objects[group]
	removed := 0
	for i := 0; i < len(list); {
		if match(&list[i]) {
			list[i] = list[len(list)-1]
			list = list[:len(list)-1]
			removed++
			continue
		}
		i++
	}
	c.objects[group] = list
	return removed
}

// Structs возвращает структуры группы
func (c *Chunk) Structs(group StructLayer) []ChunkStructLayer {
	return c.structs[group]
}

// AddStruct добавляет структуру в группу
func (c *Chunk) AddStruct(group StructLayer, s ChunkStructLayer) {
	c.structs[group] = append(c.structs[group], s)
}

// RemoveStruct удаляет структуру с мировой координатой coord
func (c *Chunk) RemoveStruct(group StructLayer, coord vec.Vec2) bool {
	list := c.structs[group]
	for i := range list {
		if list[i].Coord == coord {
			c.structs[group] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// LogicEntries возвращает слои группы, требующие обработки каждый тик
func (c *Chunk) LogicEntries(group LogicGroup) []LayerRef {
	return c.logic[group]
}

func (c *Chunk) addLogic(group LogicGroup, ref LayerRef) bool {
	for _, r := range c.logic[group] {
		if r == ref {
			return false
		}
	}
	c.logic[group] = append(c.logic[group], ref)
	return true
}

func (c *Chunk) removeLogic(group LogicGroup, ref LayerRef) bool {
	list := c.logic[group]
	for i, r := range list {
		if r == ref {
			c.logic[group] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// hasLogic сообщает, есть ли в чанке хоть один слой с логикой
func (c *Chunk) hasLogic() bool {
	for g := range c.logic {
		if len(c.logic[g]) > 0 {
			return true
		}
	}
	return false
}

// occupiedCoords возвращает мировые координаты непустых тайлов слоя layer
func (c *Chunk) occupiedCoords(layer TileLayer) []vec.Vec2 {
	var coords []vec.Vec2
	for i := range c.tiles {
		if c.tiles[i].Layer(layer).Empty() {
			continue
		}
		ref := LayerRef{Chunk: c.coords, Tile: uint16(i), Layer: layer}
		coords = append(coords, ref.WorldCoord())
	}
	return coords
}

// Release освобождает данные всех слоев и побочные списки
func (c *Chunk) Release() {
	for i := range c.tiles {
		c.tiles[i].Clear()
	}
	c.objects = [ObjectLayerCount][]ChunkObjectLayer{}
	c.structs = [StructLayerCount][]ChunkStructLayer{}
	c.logic = [LogicGroupCount][]LayerRef{}
}
