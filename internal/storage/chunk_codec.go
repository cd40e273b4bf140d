package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world"
	"github.com/annel0/factory-world/internal/world/proto"
)

// layerRecord - непустой слой тайла
type layerRecord struct {
	Tile      uint16          `json:"tile"`
	Layer     world.TileLayer `json:"layer"`
	Category  string          `json:"category"`
	Prototype string          `json:"prototype"`
	Data      json.RawMessage `json:"data,omitempty"`

	MultiTileIndex uint8            `json:"multi_tile_index,omitempty"`
	Footprint      *world.Footprint `json:"footprint,omitempty"`
	TopLeft        *world.LayerRef  `json:"top_left,omitempty"`
}

// objectRecord - объект вне сетки тайлов
type objectRecord struct {
	Group     world.ObjectLayer `json:"group"`
	Category  string            `json:"category"`
	Prototype string            `json:"prototype"`
	Position  vec.Vec2Float     `json:"position"`
	Width     float64           `json:"width"`
	Height    float64           `json:"height"`
}

// chunkRecord - сохраняемое состояние чанка. Структуры лент и реестр логики
// не сохраняются: их восстанавливает логика после загрузки.
type chunkRecord struct {
	Coords  vec.Vec2       `json:"coords"`
	Layers  []layerRecord  `json:"layers"`
	Objects []objectRecord `json:"objects,omitempty"`
}

// encodeChunk строит запись чанка
func encodeChunk(w *world.World, chunk *world.Chunk) (*chunkRecord, error) {
	rec := &chunkRecord{Coords: chunk.Coords()}

	for i := 0; i < world.ChunkArea; i++ {
		tile := chunk.TileAt(i)
		for layer := world.TileLayer(0); layer < world.TileLayerCount; layer++ {
			l := tile.Layer(layer)
			if l.Empty() {
				continue
			}

			lr := layerRecord{
				Tile:           uint16(i),
				Layer:          layer,
				Category:       l.Prototype().Category().String(),
				Prototype:      l.Prototype().Name(),
				MultiTileIndex: l.MultiTileIndex(),
			}
			if l.IsTopLeftOfFootprint() {
				fp, _ := l.GetFootprint(w)
				lr.Footprint = &fp
			} else if ref, ok := l.TopLeftRef(); ok {
				lr.TopLeft = &ref
			}

			if d := l.UniqueData(); d != nil {
				data, err := d.Serialize()
				if err != nil {
					return nil, fmt.Errorf("чанк %v, тайл %d, слой %s: %w", rec.Coords, i, layer, err)
				}
				lr.Data = data
			}
			rec.Layers = append(rec.Layers, lr)
		}
	}

	for group := world.ObjectLayer(0); group < world.ObjectLayerCount; group++ {
		for _, obj := range chunk.Objects(group) {
			if obj.Prototype == nil {
				continue
			}
			rec.Objects = append(rec.Objects, objectRecord{
				Group:     group,
				Category:  obj.Prototype.Category().String(),
				Prototype: obj.Prototype.Name(),
				Position:  obj.Position,
				Width:     obj.Width,
				Height:    obj.Height,
			})
		}
	}
	return rec, nil
}

func lookupPrototype(reg *proto.Registry, category, name string) (proto.Prototype, error) {
	c, err := proto.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	return reg.Lookup(c, name)
}

// decodeChunk создаёт чанк в w из записи. Существующий чанк заменяется.
func decodeChunk(w *world.World, reg *proto.Registry, rec *chunkRecord) error {
	chunk := w.AddChunk(rec.Coords)

	for _, lr := range rec.Layers {
		if int(lr.Tile) >= world.ChunkArea || lr.Layer >= world.TileLayerCount {
			return fmt.Errorf("чанк %v: неверный слой %d/%d", rec.Coords, lr.Tile, lr.Layer)
		}
		if err := validateFootprint(&lr); err != nil {
			return fmt.Errorf("чанк %v, тайл %d: %w", rec.Coords, lr.Tile, err)
		}
		p, err := lookupPrototype(reg, lr.Category, lr.Prototype)
		if err != nil {
			return fmt.Errorf("чанк %v, тайл %d: %w", rec.Coords, lr.Tile, err)
		}

		l := chunk.TileAt(int(lr.Tile)).Layer(lr.Layer)
		l.SetPrototype(p)
		l.SetMultiTileIndex(lr.MultiTileIndex)
		switch {
		case lr.Footprint != nil:
			l.InitFootprint(lr.Footprint.Span, lr.Footprint.Height)
		case lr.TopLeft != nil:
			l.LinkToTopLeft(*lr.TopLeft)
		}

		if len(lr.Data) > 0 {
			data, err := p.DeserializeUniqueData(lr.Data, reg)
			if err != nil {
				return fmt.Errorf("чанк %v, тайл %d: %w", rec.Coords, lr.Tile, err)
			}
			l.SetUniqueData(data)
		}
	}

	for _, obj := range rec.Objects {
		if obj.Group >= world.ObjectLayerCount {
			return fmt.Errorf("чанк %v: неверная группа объектов %d", rec.Coords, obj.Group)
		}
		p, err := lookupPrototype(reg, obj.Category, obj.Prototype)
		if err != nil {
			return fmt.Errorf("чанк %v, объект: %w", rec.Coords, err)
		}
		chunk.AddObject(obj.Group, world.ChunkObjectLayer{
			Prototype: p,
			Position:  obj.Position,
			Width:     obj.Width,
			Height:    obj.Height,
		})
	}
	return nil
}

// validateFootprint проверяет согласованность многотайловых полей записи
func validateFootprint(lr *layerRecord) error {
	switch {
	case lr.Footprint != nil && lr.TopLeft != nil:
		return errors.New("слой одновременно владеет размерами и ссылается на левый верхний тайл")
	case lr.Footprint != nil:
		fp := lr.Footprint
		if lr.MultiTileIndex != 0 {
			return fmt.Errorf("размеры у тайла с индексом %d", lr.MultiTileIndex)
		}
		if fp.Span <= 0 || fp.Height <= 0 || fp.Span*fp.Height > world.MaxFootprintTiles {
			return fmt.Errorf("неверный размер объекта %dx%d", fp.Span, fp.Height)
		}
	case lr.TopLeft != nil:
		if lr.MultiTileIndex == 0 {
			return errors.New("ссылка на левый верхний тайл у тайла с индексом 0")
		}
	case lr.MultiTileIndex != 0:
		return fmt.Errorf("тайл с индексом %d без ссылки на левый верхний тайл", lr.MultiTileIndex)
	}
	return nil
}
