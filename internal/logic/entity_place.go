package logic

import (
	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world"
	"github.com/annel0/factory-world/internal/world/proto"
)

// PlaceEntity ставит постройку p с левым верхним углом wc и направлением o.
// Создаёт данные постройки, выполняет её подключение к соседям и уведомляет
// подписчиков всех занятых тайлов.
func (m *Manager) PlaceEntity(p proto.Prototype, wc vec.Vec2, o vec.Orientation) bool {
	if p == nil || !p.Category().IsEntity() || !o.Valid() {
		return false
	}

	width, height := p.TileWidth(), p.TileHeight()
	if drill, ok := p.(*proto.MiningDrill); ok && !m.hasResourceInArea(drill, wc) {
		return false
	}
	if !m.world.PlaceAtCoords(world.LayerEntity, p, width, height, wc) {
		return false
	}

	data := p.NewUniqueData(o)
	m.world.GetLayer(wc, world.LayerEntity).SetUniqueData(data)

	switch p.Category() {
	case proto.CategoryInserter:
		m.inserterBuild(wc, p.(*proto.Inserter), data.(*proto.InserterData))
	case proto.CategoryTransportBelt:
		m.beltBuild(wc, p.(*proto.TransportBelt), data.(*proto.BeltData))
	case proto.CategoryMiningDrill:
		m.drillBuild(wc, p.(*proto.MiningDrill), data.(*proto.DrillData))
	}

	m.logger.Debug("построен %s в %v (%s)", p.Name(), wc, o)
	m.dispatchFootprint(wc, width, height, world.UpdatePlace)
	return true
}

// RemoveEntity удаляет постройку, которой принадлежит тайл wc
func (m *Manager) RemoveEntity(wc vec.Vec2) bool {
	tl, ok := m.world.TopLeftCoord(wc, world.LayerEntity)
	if !ok {
		return false
	}
	p, data := m.world.EntityAt(tl)
	if p == nil {
		return false
	}

	if data != nil {
		switch p.Category() {
		case proto.CategoryInserter:
			m.inserterRemove(tl, p.(*proto.Inserter), data.(*proto.InserterData))
		case proto.CategoryTransportBelt:
			m.beltRemove(tl)
		case proto.CategoryMiningDrill:
			m.drillRemove(tl, p.(*proto.MiningDrill), data.(*proto.DrillData))
		}
	}

	if !m.world.RemoveAtCoords(world.LayerEntity, tl) {
		return false
	}

	m.logger.Debug("удалён %s в %v", p.Name(), tl)
	m.dispatchFootprint(tl, p.TileWidth(), p.TileHeight(), world.UpdateRemove)
	return true
}

func (m *Manager) dispatchFootprint(anchor vec.Vec2, width, height int, t world.UpdateType) {
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			m.world.Dispatcher.Dispatch(vec.Vec2{X: anchor.X + x, Y: anchor.Y + y}, t)
		}
	}
}
