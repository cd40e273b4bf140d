package logic

import (
	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world"
	"github.com/annel0/factory-world/internal/world/proto"
)

// beltBuild добавляет сегмент ленты в структуры чанка и регистрирует его логику
func (m *Manager) beltBuild(coord vec.Vec2, p *proto.TransportBelt, d *proto.BeltData) {
	chunk := m.world.GetChunk(coord.ToChunkCoords())
	chunk.AddStruct(world.StructLayerTransportLine, world.ChunkStructLayer{
		Prototype: p,
		Coord:     coord,
		Segment:   d.Segment,
	})
	m.world.LogicRegister(world.LogicGroupTransportBelt, coord, world.LayerEntity)
}

func (m *Manager) beltRemove(coord vec.Vec2) {
	if chunk := m.world.GetChunk(coord.ToChunkCoords()); chunk != nil {
		chunk.RemoveStruct(world.StructLayerTransportLine, coord)
	}
	m.world.LogicRemove(world.LogicGroupTransportBelt, coord, world.LayerEntity)
}

// nextSegment возвращает сегмент ленты, в который уходят предметы с конца s
func (m *Manager) nextSegment(s *world.ChunkStructLayer) *proto.TransportSegment {
	_, data := m.world.EntityAt(s.Coord.Incremented(s.Segment.Direction, 1))
	next, ok := data.(*proto.BeltData)
	if !ok || next.Segment == nil {
		return nil
	}
	return next.Segment
}

// TransportBeltUpdate продвигает предметы на всех лентах чанков с логикой.
// Возвращает число обновлённых сегментов.
func (m *Manager) TransportBeltUpdate() int {
	n := 0
	for _, chunk := range m.world.LogicChunks() {
		structs := chunk.Structs(world.StructLayerTransportLine)
		for i := range structs {
			s := &structs[i]
			belt, ok := s.Prototype.(*proto.TransportBelt)
			if !ok || s.Segment == nil {
				continue
			}
			s.Segment.Update(belt.SegmentSpeed(), m.nextSegment(s))
			n++
		}
	}
	return n
}
