package world

import "github.com/annel0/factory-world/internal/world/proto"

// ChunkTile - одна клетка мира с фиксированным набором слоев
type ChunkTile struct {
	layers [TileLayerCount]ChunkTileLayer
}

// Layer возвращает слой тайла
func (t *ChunkTile) Layer(l TileLayer) *ChunkTileLayer {
	return &t.layers[l]
}

// Prototype возвращает прототип слоя l или nil
func (t *ChunkTile) Prototype(l TileLayer) proto.Prototype {
	return t.layers[l].prototype
}

// Clear очищает все слои тайла
func (t *ChunkTile) Clear() {
	for i := range t.layers {
		t.layers[i].Clear()
	}
}
