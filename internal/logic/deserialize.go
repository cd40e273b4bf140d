package logic

import (
	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world"
	"github.com/annel0/factory-world/internal/world/proto"
)

// OnDeserialize восстанавливает связи, которые не сохраняются вместе с миром:
// привязки сторон выгрузки и захвата, подписки на соседей, реестр логики и
// структуры лент. Вызывается после загрузки всех чанков и таймера.
func (m *Manager) OnDeserialize() {
	for _, c := range m.world.ChunkCoords() {
		chunk := m.world.GetChunk(c)
		for i := 0; i < world.ChunkArea; i++ {
			l := chunk.TileAt(i).Layer(world.LayerEntity)
			if l.Empty() || (l.IsPartOfFootprint() && !l.IsTopLeftOfFootprint()) {
				continue
			}
			wc := world.LayerRef{Chunk: c, Tile: uint16(i), Layer: world.LayerEntity}.WorldCoord()
			m.restoreEntity(wc, l.Prototype(), l.UniqueData())
		}
	}
	m.logger.Info("логика восстановлена: %d чанков с логикой, %d отложенных вызовов",
		len(m.world.LogicChunks()), m.world.DeferralTimer.Pending())
}

func (m *Manager) restoreEntity(wc vec.Vec2, p proto.Prototype, data proto.UniqueData) {
	if data == nil {
		return
	}

	switch p.Category() {
	case proto.CategoryInserter:
		m.inserterBuild(wc, p.(*proto.Inserter), data.(*proto.InserterData))

	case proto.CategoryTransportBelt:
		m.beltBuild(wc, p.(*proto.TransportBelt), data.(*proto.BeltData))

	case proto.CategoryMiningDrill:
		drill, d := p.(*proto.MiningDrill), data.(*proto.DrillData)
		out := drill.OutputCoord(wc, d.Orientation)
		m.world.Dispatcher.Register(wc, out, m)
		d.Output.Initialize(m.world, out)
		// Отложенный вызов восстановлен вместе с таймером
		m.drillScheduleMining(wc, d)
	}
}
