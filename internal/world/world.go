package world

import (
	"sort"

	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world/deferral"
	"github.com/annel0/factory-world/internal/world/proto"
	"github.com/google/uuid"
)

// World хранит чанки мира, реестр чанков с логикой и единый таймер отложенных вызовов.
// Не потокобезопасен: все изменения выполняются в одном проходе тика.
type World struct {
	ID uuid.UUID

	chunks      map[vec.Vec2]*Chunk
	logicChunks []*Chunk // порядок добавления, каждый чанк не больше одного раза

	DeferralTimer *deferral.Timer
	Dispatcher    *UpdateDispatcher

	gameTick uint64
}

// NewWorld создаёт пустой мир с новым идентификатором
func NewWorld() *World {
	return &World{
		ID:            uuid.New(),
		chunks:        make(map[vec.Vec2]*Chunk),
		DeferralTimer: deferral.NewTimer(),
		Dispatcher:    NewUpdateDispatcher(),
	}
}

// GameTick возвращает текущий игровой тик
func (w *World) GameTick() uint64 {
	return w.gameTick
}

// SetGameTick задаёт игровой тик (при загрузке мира)
func (w *World) SetGameTick(tick uint64) {
	w.gameTick = tick
}

// AdvanceTick увеличивает игровой тик и возвращает новое значение
func (w *World) AdvanceTick() uint64 {
	w.gameTick++
	return w.gameTick
}

// AddChunk создаёт чанк с координатами c. Существующий чанк заменяется,
// его данные освобождаются.
func (w *World) AddChunk(c vec.Vec2) *Chunk {
	if old, ok := w.chunks[c]; ok {
		w.releaseChunk(old)
	}
	chunk := NewChunk(c)
	w.chunks[c] = chunk
	return chunk
}

// GetChunk возвращает чанк или nil, если он не создан
func (w *World) GetChunk(c vec.Vec2) *Chunk {
	return w.chunks[c]
}

// EmplaceChunk возвращает чанк, создавая его при отсутствии
func (w *World) EmplaceChunk(c vec.Vec2) *Chunk {
	if chunk, ok := w.chunks[c]; ok {
		return chunk
	}
	chunk := NewChunk(c)
	w.chunks[c] = chunk
	return chunk
}

// DeleteChunk удаляет чанк и освобождает его данные
func (w *World) DeleteChunk(c vec.Vec2) bool {
	chunk, ok := w.chunks[c]
	if !ok {
		return false
	}
	w.releaseChunk(chunk)
	delete(w.chunks, c)
	return true
}

// releaseChunk освобождает чанк и сообщает соседям из других чанков
// об исчезновении каждого занятого тайла слоя построек
func (w *World) releaseChunk(chunk *Chunk) {
	occupied := chunk.occupiedCoords(LayerEntity)

	cc := chunk.Coords()
	w.Dispatcher.UnregisterReceivers(func(receive vec.Vec2) bool {
		return receive.ToChunkCoords() == cc
	})
	w.dropLogicChunk(chunk)
	chunk.Release()

	for _, wc := range occupied {
		w.Dispatcher.Dispatch(wc, UpdateRemove)
	}
}

// Clear удаляет все чанки, реестр логики, подписки и отложенные вызовы.
// Игровой тик не сбрасывается.
func (w *World) Clear() {
	for _, chunk := range w.chunks {
		chunk.Release()
	}
	w.chunks = make(map[vec.Vec2]*Chunk)
	w.logicChunks = nil
	w.DeferralTimer.Clear()
	w.Dispatcher.Clear()
}

// ChunkCount возвращает число чанков
func (w *World) ChunkCount() int {
	return len(w.chunks)
}

// ChunkCoords возвращает координаты всех чанков, упорядоченные по Y, затем по X
func (w *World) ChunkCoords() []vec.Vec2 {
	coords := make([]vec.Vec2, 0, len(w.chunks))
	for c := range w.chunks {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Y != coords[j].Y {
			return coords[i].Y < coords[j].Y
		}
		return coords[i].X < coords[j].X
	})
	return coords
}

// GetTile возвращает тайл по мировой координате или nil, если чанк не создан
func (w *World) GetTile(wc vec.Vec2) *ChunkTile {
	chunk := w.chunks[wc.ToChunkCoords()]
	if chunk == nil {
		return nil
	}
	return chunk.GetTile(wc.LocalInChunk())
}

// GetLayer возвращает слой тайла по мировой координате или nil
func (w *World) GetLayer(wc vec.Vec2, layer TileLayer) *ChunkTileLayer {
	tile := w.GetTile(wc)
	if tile == nil {
		return nil
	}
	return tile.Layer(layer)
}

// ResolveLayer разрешает слабую ссылку на слой; nil - чанк удалён
func (w *World) ResolveLayer(ref LayerRef) *ChunkTileLayer {
	chunk := w.chunks[ref.Chunk]
	if chunk == nil || int(ref.Tile) >= ChunkArea || ref.Layer >= TileLayerCount {
		return nil
	}
	return chunk.TileAt(int(ref.Tile)).Layer(ref.Layer)
}

// TopLeftCoord возвращает мировую координату левого верхнего тайла объекта,
// которому принадлежит слой в wc. Для однотайловых объектов это сам wc.
func (w *World) TopLeftCoord(wc vec.Vec2, layer TileLayer) (vec.Vec2, bool) {
	l := w.GetLayer(wc, layer)
	if l == nil || l.Empty() {
		return wc, false
	}
	if ref, ok := l.TopLeftRef(); ok {
		return ref.WorldCoord(), true
	}
	return wc, true
}

// TopLeftLayer возвращает слой левого верхнего тайла объекта в wc или nil
func (w *World) TopLeftLayer(wc vec.Vec2, layer TileLayer) *ChunkTileLayer {
	l := w.GetLayer(wc, layer)
	if l == nil {
		return nil
	}
	if ref, ok := l.TopLeftRef(); ok {
		return w.ResolveLayer(ref)
	}
	return l
}

// EntityAt возвращает прототип и данные постройки в wc.
// Для многотайловых построек данные берутся из левого верхнего тайла.
func (w *World) EntityAt(wc vec.Vec2) (proto.Prototype, proto.UniqueData) {
	l := w.TopLeftLayer(wc, LayerEntity)
	if l == nil || l.Empty() {
		return nil, nil
	}
	return l.Prototype(), l.UniqueData()
}

// LogicRegister добавляет слой в группу логики своего чанка.
// Чанк попадает в реестр чанков с логикой, если его там ещё нет.
func (w *World) LogicRegister(group LogicGroup, wc vec.Vec2, layer TileLayer) bool {
	chunk := w.chunks[wc.ToChunkCoords()]
	if chunk == nil {
		return false
	}
	if !chunk.addLogic(group, RefAt(wc, layer)) {
		return false
	}
	for _, c := range w.logicChunks {
		if c == chunk {
			return true
		}
	}
	w.logicChunks = append(w.logicChunks, chunk)
	return true
}

// LogicRemove удаляет слой из группы логики. Чанк без логики покидает реестр.
func (w *World) LogicRemove(group LogicGroup, wc vec.Vec2, layer TileLayer) bool {
	chunk := w.chunks[wc.ToChunkCoords()]
	if chunk == nil {
		return false
	}
	if !chunk.removeLogic(group, RefAt(wc, layer)) {
		return false
	}
	if !chunk.hasLogic() {
		w.dropLogicChunk(chunk)
	}
	return true
}

// IsLogicRegistered сообщает, зарегистрирован ли слой в группе логики
func (w *World) IsLogicRegistered(group LogicGroup, wc vec.Vec2, layer TileLayer) bool {
	chunk := w.chunks[wc.ToChunkCoords()]
	if chunk == nil {
		return false
	}
	ref := RefAt(wc, layer)
	for _, r := range chunk.LogicEntries(group) {
		if r == ref {
			return true
		}
	}
	return false
}

// LogicChunks возвращает чанки с логикой в порядке добавления
func (w *World) LogicChunks() []*Chunk {
	return w.logicChunks
}

func (w *World) dropLogicChunk(chunk *Chunk) {
	for i, c := range w.logicChunks {
		if c == chunk {
			w.logicChunks = append(w.logicChunks[:i], w.logicChunks[i+1:]...)
			return
		}
	}
}
