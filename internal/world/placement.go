package world

import (
	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world/proto"
)

// PlacementLocationValid проверяет, можно ли разместить постройку width x height
// с левым верхним углом anchor: все тайлы существуют, под ними суша, слой
// построек свободен
func (w *World) PlacementLocationValid(width, height int, anchor vec.Vec2) bool {
	return w.placementValid(LayerEntity, width, height, anchor)
}

func (w *World) placementValid(layer TileLayer, width, height int, anchor vec.Vec2) bool {
	if width <= 0 || height <= 0 || width*height > MaxFootprintTiles {
		return false
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			tile := w.GetTile(vec.Vec2{X: anchor.X + x, Y: anchor.Y + y})
			if tile == nil {
				return false
			}

			base, ok := tile.Prototype(LayerBase).(*proto.Tile)
			if !ok || base.IsWater {
				return false
			}
			if !tile.Layer(layer).Empty() {
				return false
			}
		}
	}
	return true
}

// PlaceAtCoords размещает прототип на слое layer во всех тайлах области.
// Сначала проверяется вся область: при отказе ни один тайл не меняется.
// Тайлы нумеруются построчно начиная с 0 у anchor; тайл 0 владеет
// размерами, остальные ссылаются на него.
func (w *World) PlaceAtCoords(layer TileLayer, p proto.Prototype, width, height int, anchor vec.Vec2) bool {
	if p == nil || !w.placementValid(layer, width, height, anchor) {
		return false
	}

	if width == 1 && height == 1 {
		w.GetLayer(anchor, layer).SetPrototype(p)
		return true
	}

	topLeftRef := RefAt(anchor, layer)
	index := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			l := w.GetLayer(vec.Vec2{X: anchor.X + x, Y: anchor.Y + y}, layer)
			l.SetPrototype(p)
			l.SetMultiTileIndex(uint8(index))
			if index == 0 {
				l.InitFootprint(width, height)
			} else {
				l.LinkToTopLeft(topLeftRef)
			}
			index++
		}
	}
	return true
}

// RemoveAtCoords очищает объект на слое layer, которому принадлежит тайл wc.
// Удаление с любого тайла многотайлового объекта очищает все его тайлы.
func (w *World) RemoveAtCoords(layer TileLayer, wc vec.Vec2) bool {
	l := w.GetLayer(wc, layer)
	if l == nil || l.Empty() {
		return false
	}

	fp, ok := l.GetFootprint(w)
	if !ok {
		l.Clear()
		return true
	}

	index := int(l.MultiTileIndex())
	anchor := vec.Vec2{X: wc.X - index%fp.Span, Y: wc.Y - index/fp.Span}

	for y := 0; y < fp.Height; y++ {
		for x := 0; x < fp.Span; x++ {
			if t := w.GetLayer(vec.Vec2{X: anchor.X + x, Y: anchor.Y + y}, layer); t != nil {
				t.Clear()
			}
		}
	}
	return true
}
