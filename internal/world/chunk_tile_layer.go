package world

import (
	"fmt"

	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world/proto"
)

// MaxFootprintTiles - предел числа тайлов одного многотайлового объекта
// (индекс тайла хранится в uint8)
const MaxFootprintTiles = 256

// Footprint - размеры многотайлового объекта
type Footprint struct {
	Span   int `json:"span"`
	Height int `json:"height"`
}

// LayerRef - слабая ссылка на слой тайла: координата чанка, индекс тайла и слой.
// Разрешается через World при каждом обращении и никогда не владеет слоем.
type LayerRef struct {
	Chunk vec.Vec2  `json:"chunk"`
	Tile  uint16    `json:"tile"`
	Layer TileLayer `json:"layer"`
}

// RefAt строит ссылку на слой тайла с мировой координатой wc
func RefAt(wc vec.Vec2, layer TileLayer) LayerRef {
	local := wc.LocalInChunk()
	return LayerRef{
		Chunk: wc.ToChunkCoords(),
		Tile:  uint16(local.Y*vec.ChunkWidth + local.X),
		Layer: layer,
	}
}

// WorldCoord возвращает мировую координату тайла, на который указывает ссылка
func (r LayerRef) WorldCoord() vec.Vec2 {
	return r.Chunk.ChunkOrigin().Add(vec.Vec2{
		X: int(r.Tile) % vec.ChunkWidth,
		Y: int(r.Tile) / vec.ChunkWidth,
	})
}

// LayerResolver разрешает слабые ссылки на слои
type LayerResolver interface {
	ResolveLayer(ref LayerRef) *ChunkTileLayer
}

// ChunkTileLayer - один слот тайла: ссылка на прототип и собственные данные объекта.
//
// Многотайловое состояние - ровно одно из трёх:
//   - левый верхний тайл: индекс 0, владеет Footprint;
//   - прочий тайл: индекс != 0, хранит ссылку на левый верхний;
//   - не часть многотайлового объекта: индекс 0, ни Footprint, ни ссылки.
type ChunkTileLayer struct {
	prototype  proto.Prototype
	uniqueData proto.UniqueData

	multiTileIndex uint8
	footprint      *Footprint
	topLeft        *LayerRef
}

// Prototype возвращает прототип слоя или nil
func (l *ChunkTileLayer) Prototype() proto.Prototype {
	return l.prototype
}

// SetPrototype задаёт прототип слоя
func (l *ChunkTileLayer) SetPrototype(p proto.Prototype) {
	l.prototype = p
}

// UniqueData возвращает данные объекта или nil
func (l *ChunkTileLayer) UniqueData() proto.UniqueData {
	return l.uniqueData
}

// SetUniqueData передаёт данные во владение слоя; прежние данные освобождаются
func (l *ChunkTileLayer) SetUniqueData(d proto.UniqueData) {
	if l.uniqueData != nil && l.uniqueData != d {
		l.uniqueData.Destroy()
	}
	l.uniqueData = d
}

// Empty сообщает, пуст ли слой
func (l *ChunkTileLayer) Empty() bool {
	return l.prototype == nil
}

// MultiTileIndex возвращает индекс тайла внутри многотайлового объекта (построчно)
func (l *ChunkTileLayer) MultiTileIndex() uint8 {
	return l.multiTileIndex
}

// SetMultiTileIndex задаёт индекс тайла. Вызывается до InitFootprint/LinkToTopLeft.
func (l *ChunkTileLayer) SetMultiTileIndex(i uint8) {
	l.multiTileIndex = i
}

// InitFootprint создаёт запись размеров. Допустимо только для индекса 0.
func (l *ChunkTileLayer) InitFootprint(span, height int) {
	if l.multiTileIndex != 0 {
		panic(fmt.Sprintf("InitFootprint на тайле с индексом %d", l.multiTileIndex))
	}
	if span <= 0 || height <= 0 || span*height > MaxFootprintTiles {
		panic(fmt.Sprintf("неверный размер объекта %dx%d", span, height))
	}
	l.footprint = &Footprint{Span: span, Height: height}
}

// LinkToTopLeft связывает тайл с левым верхним тайлом. Допустимо только для индекса != 0.
func (l *ChunkTileLayer) LinkToTopLeft(ref LayerRef) {
	if l.multiTileIndex == 0 {
		panic("LinkToTopLeft на тайле с индексом 0")
	}
	l.topLeft = &ref
}

// IsPartOfFootprint сообщает, входит ли слой в многотайловый объект
func (l *ChunkTileLayer) IsPartOfFootprint() bool {
	return l.footprint != nil || l.topLeft != nil
}

// IsTopLeftOfFootprint сообщает, является ли слой левым верхним тайлом объекта
func (l *ChunkTileLayer) IsTopLeftOfFootprint() bool {
	return l.multiTileIndex == 0 && l.footprint != nil
}

// TopLeftRef возвращает ссылку на левый верхний тайл для прочих тайлов объекта
func (l *ChunkTileLayer) TopLeftRef() (LayerRef, bool) {
	if l.topLeft == nil {
		return LayerRef{}, false
	}
	return *l.topLeft, true
}

// GetFootprint возвращает размеры объекта. Левый верхний тайл отдаёт свою
// запись, прочие разрешают ссылку через resolver. Ссылка должна указывать
// прямо на левый верхний тайл: цепочки не поддерживаются.
func (l *ChunkTileLayer) GetFootprint(resolver LayerResolver) (Footprint, bool) {
	if l.footprint != nil {
		return *l.footprint, true
	}
	if l.topLeft == nil {
		return Footprint{}, false
	}

	tl := resolver.ResolveLayer(*l.topLeft)
	if tl == nil {
		return Footprint{}, false
	}
	if !tl.IsTopLeftOfFootprint() {
		panic(fmt.Sprintf("ссылка %+v указывает не на левый верхний тайл", *l.topLeft))
	}
	return *tl.footprint, true
}

// Clear освобождает данные объекта и запись размеров и сбрасывает слой в пустое состояние
func (l *ChunkTileLayer) Clear() {
	if l.uniqueData != nil {
		l.uniqueData.Destroy()
	}
	*l = ChunkTileLayer{}
}

// Clone возвращает копию слоя. Данные объекта копируются через их Clone.
// Копия не левого верхнего тайла не может восстановить ссылку на свой левый
// верхний тайл и становится обычным слоем; связь восстанавливает вызывающий.
func (l *ChunkTileLayer) Clone() ChunkTileLayer {
	c := ChunkTileLayer{prototype: l.prototype}
	if l.uniqueData != nil {
		c.uniqueData = l.uniqueData.Clone()
	}
	if l.IsTopLeftOfFootprint() {
		fp := *l.footprint
		c.footprint = &fp
	}
	return c
}
