package logic

import (
	"testing"

	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world"
	"github.com/annel0/factory-world/internal/world/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testGrass    = proto.NewTile("grass", false)
	testIron     = proto.NewItem("iron-ore", 50)
	testChest    = proto.NewContainer("chest", 16)
	testBelt     = proto.NewTransportBelt("transport-belt", 0.05)
	testInserter = proto.NewInserter("inserter", 2.1, 1)
	testDrill    = proto.NewMiningDrill("drill", 2, 2, 0)
	testOre      = proto.NewResource("iron-ore", testIron, 0.5)
)

// newTestManager создаёт мир из одного чанка (0,0), покрытого травой
func newTestManager(t *testing.T) *Manager {
	t.Helper()

	w := world.NewWorld()
	chunk := w.AddChunk(vec.Vec2{})
	for i := 0; i < world.ChunkArea; i++ {
		chunk.TileAt(i).Layer(world.LayerBase).SetPrototype(testGrass)
	}
	return NewManager(w, proto.NewRegistry())
}

func placeChest(t *testing.T, m *Manager, wc vec.Vec2, items uint16) *proto.ContainerData {
	t.Helper()

	require.True(t, m.PlaceEntity(testChest, wc, vec.Up))
	_, data := m.World().EntityAt(wc)
	chest := data.(*proto.ContainerData)
	if items > 0 {
		left := chest.Inventory.AddStack(proto.ItemStack{Item: testIron, Count: items})
		require.Zero(t, left)
	}
	return chest
}

func inserterAt(m *Manager, wc vec.Vec2) *proto.InserterData {
	_, data := m.World().EntityAt(wc)
	return data.(*proto.InserterData)
}

func tick(m *Manager, n int) {
	for i := 0; i < n; i++ {
		m.Update()
	}
}

func TestInserterFullCycle(t *testing.T) {
	m := newTestManager(t)
	a := placeChest(t, m, vec.Vec2{X: 5, Y: 5}, 10)
	b := placeChest(t, m, vec.Vec2{X: 7, Y: 5}, 10)

	coord := vec.Vec2{X: 6, Y: 5}
	require.True(t, m.PlaceEntity(testInserter, coord, vec.Right))
	require.True(t, m.World().IsLogicRegistered(world.LogicGroupInserter, coord, world.LayerEntity))

	require.Equal(t, uint64(86), testInserter.TicksToDropoff())
	d := inserterAt(m, coord)

	tick(m, 86)
	assert.Equal(t, 9, a.Inventory.Count(testIron))
	assert.Equal(t, 10, b.Inventory.Count(testIron))
	assert.Equal(t, proto.InserterStatusDropoff, d.Status)

	tick(m, 86)
	assert.Equal(t, 9, a.Inventory.Count(testIron))
	assert.Equal(t, 11, b.Inventory.Count(testIron))
	assert.Equal(t, proto.InserterStatusPickup, d.Status)
	assert.True(t, d.HeldItem.Empty())
}

func TestInserterOppositeBeltInsertsNothing(t *testing.T) {
	for o := vec.Orientation(0); o < vec.OrientationCount; o++ {
		m := newTestManager(t)
		coord := vec.Vec2{X: 10, Y: 10}

		a := placeChest(t, m, testInserter.PickupCoord(coord, o), 10)
		require.True(t, m.PlaceEntity(testInserter, coord, o))
		dropoff := testInserter.DropoffCoord(coord, o)
		require.True(t, m.PlaceEntity(testBelt, dropoff, o.Opposite()))

		tick(m, 300)

		_, data := m.World().EntityAt(dropoff)
		assert.Equal(t, 0, data.(*proto.BeltData).Segment.ItemCount(), "направление %s", o)
		assert.Equal(t, 10, a.Inventory.Count(testIron), "направление %s", o)
	}
}

func TestInserterPutsItemOnBelt(t *testing.T) {
	m := newTestManager(t)
	coord := vec.Vec2{X: 10, Y: 10}

	placeChest(t, m, vec.Vec2{X: 10, Y: 11}, 5)
	require.True(t, m.PlaceEntity(testInserter, coord, vec.Up))
	require.True(t, m.PlaceEntity(testBelt, vec.Vec2{X: 10, Y: 9}, vec.Right))

	tick(m, 87)

	_, data := m.World().EntityAt(vec.Vec2{X: 10, Y: 9})
	seg := data.(*proto.BeltData).Segment
	assert.Equal(t, 1, seg.ItemCount())
	assert.Len(t, seg.Right.Items, 1, "лента вправо, манипулятор вверх: правая полоса")
}

func TestInserterLosesNeighbour(t *testing.T) {
	m := newTestManager(t)
	coord := vec.Vec2{X: 6, Y: 5}
	placeChest(t, m, vec.Vec2{X: 5, Y: 5}, 10)

	require.True(t, m.PlaceEntity(testInserter, coord, vec.Right))
	assert.False(t, m.World().IsLogicRegistered(world.LogicGroupInserter, coord, world.LayerEntity), "нет приёмника")

	placeChest(t, m, vec.Vec2{X: 7, Y: 5}, 0)
	assert.True(t, m.World().IsLogicRegistered(world.LogicGroupInserter, coord, world.LayerEntity))

	require.True(t, m.RemoveEntity(vec.Vec2{X: 5, Y: 5}))
	d := inserterAt(m, coord)
	assert.False(t, d.Pickup.IsInitialized())
	assert.True(t, d.DropOff.IsInitialized())
	assert.False(t, m.World().IsLogicRegistered(world.LogicGroupInserter, coord, world.LayerEntity))
	assert.Empty(t, m.World().LogicChunks())
}

func TestDeleteChunkUnbindsNeighbours(t *testing.T) {
	m := newTestManager(t)
	east := m.World().AddChunk(vec.Vec2{X: 1, Y: 0})
	for i := 0; i < world.ChunkArea; i++ {
		east.TileAt(i).Layer(world.LayerBase).SetPrototype(testGrass)
	}

	a := placeChest(t, m, vec.Vec2{X: 30, Y: 5}, 10)
	placeChest(t, m, vec.Vec2{X: 32, Y: 5}, 0)
	coord := vec.Vec2{X: 31, Y: 5}
	require.True(t, m.PlaceEntity(testInserter, coord, vec.Right))
	require.True(t, m.World().IsLogicRegistered(world.LogicGroupInserter, coord, world.LayerEntity))

	require.True(t, m.World().DeleteChunk(vec.Vec2{X: 1, Y: 0}))

	d := inserterAt(m, coord)
	assert.True(t, d.Pickup.IsInitialized())
	assert.False(t, d.DropOff.IsInitialized(), "приёмник удалён вместе с чанком")
	assert.Nil(t, d.DropOff.Target())
	assert.False(t, m.World().IsLogicRegistered(world.LogicGroupInserter, coord, world.LayerEntity))
	assert.Empty(t, m.World().LogicChunks())

	tick(m, 1000)
	assert.Equal(t, 10, a.Inventory.Count(testIron))
	assert.True(t, d.HeldItem.Empty())
}

func TestDeleteChunkDropsItsSubscriptions(t *testing.T) {
	m := newTestManager(t)
	placeChest(t, m, vec.Vec2{X: 5, Y: 5}, 10)
	placeChest(t, m, vec.Vec2{X: 7, Y: 5}, 0)
	require.True(t, m.PlaceEntity(testInserter, vec.Vec2{X: 6, Y: 5}, vec.Right))
	require.Equal(t, 2, m.World().Dispatcher.Len())

	require.True(t, m.World().DeleteChunk(vec.Vec2{}))
	assert.Zero(t, m.World().Dispatcher.Len())
	assert.Empty(t, m.World().LogicChunks())
}

func TestInserterKeepsItemWhenDropoffLost(t *testing.T) {
	m := newTestManager(t)
	coord := vec.Vec2{X: 6, Y: 5}
	a := placeChest(t, m, vec.Vec2{X: 5, Y: 5}, 10)
	placeChest(t, m, vec.Vec2{X: 7, Y: 5}, 10)
	require.True(t, m.PlaceEntity(testInserter, coord, vec.Right))

	tick(m, 1)
	d := inserterAt(m, coord)
	require.Equal(t, proto.InserterStatusDropoff, d.Status)
	require.True(t, m.RemoveEntity(vec.Vec2{X: 7, Y: 5}))

	// Отложенная выгрузка срабатывает без приёмника: предмет остаётся в руке
	tick(m, 99)
	assert.Equal(t, proto.InserterStatusPickup, d.Status)
	assert.Equal(t, proto.MinInserterDegree, d.RotationDegree)
	assert.False(t, d.HeldItem.Empty())
	assert.Equal(t, 9, a.Inventory.Count(testIron))

	// Новый приёмник получает предмет без повторного извлечения
	b := placeChest(t, m, vec.Vec2{X: 7, Y: 5}, 0)
	tick(m, 173)
	assert.Equal(t, 9, a.Inventory.Count(testIron))
	assert.Equal(t, 1, b.Inventory.Count(testIron))
	assert.True(t, d.HeldItem.Empty())
}

func TestRemoveInserterCancelsDropoff(t *testing.T) {
	m := newTestManager(t)
	coord := vec.Vec2{X: 6, Y: 5}
	placeChest(t, m, vec.Vec2{X: 5, Y: 5}, 10)
	placeChest(t, m, vec.Vec2{X: 7, Y: 5}, 0)
	require.True(t, m.PlaceEntity(testInserter, coord, vec.Right))

	tick(m, 1)
	require.Equal(t, 1, m.World().DeferralTimer.Pending())

	require.True(t, m.RemoveEntity(coord))
	assert.Equal(t, 0, m.World().DeferralTimer.Pending())
	assert.Equal(t, 0, m.World().Dispatcher.Len())
	assert.NotPanics(t, func() { tick(m, 100) })
}

func TestInserterArmGeometry(t *testing.T) {
	assert.InDelta(t, 0.436764281, GetInserterArmOffset(160, 1), 1e-6)
	assert.InDelta(t, 0.0, GetInserterArmOffset(180, 1), 1e-9)
	assert.InDelta(t, 1.2, GetInserterArmLength(0, 1), 1e-9)
	assert.InDelta(t, 2.2, GetInserterArmLength(180, 2), 1e-9)

	pos := InserterArmPosition(vec.Vec2{}, vec.Right, proto.MinInserterDegree, 1)
	assert.InDelta(t, 1.7, pos.X, 1e-9)
	assert.InDelta(t, 0.5, pos.Y, 1e-9)

	pos = InserterArmPosition(vec.Vec2{}, vec.Right, proto.MaxInserterDegree, 1)
	assert.InDelta(t, -0.7, pos.X, 1e-9)
	assert.InDelta(t, 0.5, pos.Y, 1e-9)
}

func placeOre(m *Manager, wc vec.Vec2, amount uint32) {
	l := m.World().GetLayer(wc, world.LayerResource)
	l.SetPrototype(testOre)
	l.SetUniqueData(&proto.ResourceData{Amount: amount})
}

func TestDrillRequiresResource(t *testing.T) {
	m := newTestManager(t)
	assert.False(t, m.PlaceEntity(testDrill, vec.Vec2{X: 10, Y: 10}, vec.Right))

	placeOre(m, vec.Vec2{X: 11, Y: 11}, 5)
	assert.True(t, m.PlaceEntity(testDrill, vec.Vec2{X: 10, Y: 10}, vec.Right))
	assert.Equal(t, 0, m.World().DeferralTimer.Pending(), "нет приёмника, добыча не запускается")

	placeChest(t, m, vec.Vec2{X: 12, Y: 11}, 0)
	assert.Equal(t, 1, m.World().DeferralTimer.Pending())

	require.True(t, m.RemoveEntity(vec.Vec2{X: 12, Y: 11}))
	assert.Equal(t, 0, m.World().DeferralTimer.Pending())
}

func TestDrillOutputsIntoContainer(t *testing.T) {
	m := newTestManager(t)
	placeOre(m, vec.Vec2{X: 10, Y: 10}, 2)
	placeOre(m, vec.Vec2{X: 11, Y: 10}, 5)
	chest := placeChest(t, m, vec.Vec2{X: 12, Y: 11}, 0)

	require.True(t, m.PlaceEntity(testDrill, vec.Vec2{X: 10, Y: 10}, vec.Right))
	require.Equal(t, uint64(30), testDrill.MiningTicks(testOre))

	tick(m, 29)
	assert.Equal(t, 0, chest.Inventory.Count(testIron))
	tick(m, 1)
	assert.Equal(t, 1, chest.Inventory.Count(testIron))

	tick(m, 30)
	assert.Equal(t, 2, chest.Inventory.Count(testIron))
	assert.Nil(t, m.World().GetLayer(vec.Vec2{X: 10, Y: 10}, world.LayerResource).Prototype(), "залежь исчерпана")

	_, data := m.World().EntityAt(vec.Vec2{X: 11, Y: 11})
	assert.Equal(t, vec.Vec2{X: 11, Y: 10}, data.(*proto.DrillData).ResourceCoord)

	tick(m, 30)
	assert.Equal(t, 3, chest.Inventory.Count(testIron))
}

func TestRemoveDrillFromAnyTile(t *testing.T) {
	m := newTestManager(t)
	placeOre(m, vec.Vec2{X: 10, Y: 10}, 5)
	placeChest(t, m, vec.Vec2{X: 12, Y: 11}, 0)
	require.True(t, m.PlaceEntity(testDrill, vec.Vec2{X: 10, Y: 10}, vec.Right))

	require.True(t, m.RemoveEntity(vec.Vec2{X: 11, Y: 11}))
	assert.Equal(t, 0, m.World().DeferralTimer.Pending())
	assert.True(t, m.World().GetLayer(vec.Vec2{X: 10, Y: 10}, world.LayerEntity).Empty())
	assert.False(t, m.RemoveEntity(vec.Vec2{X: 11, Y: 11}))
}

func TestBeltMovesItemToNextBelt(t *testing.T) {
	m := newTestManager(t)
	first, second := vec.Vec2{X: 2, Y: 2}, vec.Vec2{X: 3, Y: 2}
	require.True(t, m.PlaceEntity(testBelt, first, vec.Right))
	require.True(t, m.PlaceEntity(testBelt, second, vec.Right))

	_, d1 := m.World().EntityAt(first)
	_, d2 := m.World().EntityAt(second)
	seg1, seg2 := d1.(*proto.BeltData).Segment, d2.(*proto.BeltData).Segment
	require.True(t, seg1.TryInsertItem(true, proto.InsertionOffset, testIron))

	stats := m.Update()
	assert.Equal(t, 2, stats.Belts)
	assert.Equal(t, 1, stats.LogicChunks)

	tick(m, 9)
	assert.Equal(t, 0, seg1.ItemCount())
	assert.Equal(t, 1, seg2.ItemCount())

	// Лента обрывается: предмет ждёт в конце
	tick(m, 100)
	require.Len(t, seg2.Left.Items, 1)
	assert.Equal(t, int32(proto.SegmentLength), seg2.Left.Items[0].Pos)

	require.True(t, m.RemoveEntity(first))
	assert.Len(t, m.World().GetChunk(vec.Vec2{}).Structs(world.StructLayerTransportLine), 1)
}

func TestPlaceEntityRejectsNonEntities(t *testing.T) {
	m := newTestManager(t)
	assert.False(t, m.PlaceEntity(testGrass, vec.Vec2{X: 1, Y: 1}, vec.Up))
	assert.False(t, m.PlaceEntity(testChest, vec.Vec2{X: 1, Y: 1}, vec.OrientationCount))
	assert.False(t, m.PlaceEntity(testChest, vec.Vec2{X: 100, Y: 1}, vec.Up), "чанк не создан")
	assert.False(t, m.RemoveEntity(vec.Vec2{X: 1, Y: 1}))
}

func TestResolveDeferral(t *testing.T) {
	m := newTestManager(t)
	for _, key := range []string{DeferralKeyInserterDropoff, DeferralKeyDrillMine} {
		cb, ok := m.ResolveDeferral(key)
		require.True(t, ok)
		assert.Equal(t, key, cb.DeferralKey())
	}
	_, ok := m.ResolveDeferral("unknown")
	assert.False(t, ok)
}

func TestOnDeserializeRebuildsLinks(t *testing.T) {
	m := newTestManager(t)
	coord := vec.Vec2{X: 6, Y: 5}
	placeChest(t, m, vec.Vec2{X: 5, Y: 5}, 10)
	placeChest(t, m, vec.Vec2{X: 7, Y: 5}, 0)
	require.True(t, m.PlaceEntity(testInserter, coord, vec.Right))
	require.True(t, m.PlaceEntity(testBelt, vec.Vec2{X: 1, Y: 1}, vec.Down))

	// Имитация загрузки: связи, не входящие в сохранение, потеряны
	w := m.World()
	w.LogicRemove(world.LogicGroupInserter, coord, world.LayerEntity)
	w.LogicRemove(world.LogicGroupTransportBelt, vec.Vec2{X: 1, Y: 1}, world.LayerEntity)
	w.GetChunk(vec.Vec2{}).RemoveStruct(world.StructLayerTransportLine, vec.Vec2{X: 1, Y: 1})
	w.Dispatcher.Clear()
	d := inserterAt(m, coord)
	d.Pickup.Uninitialize()
	d.DropOff.Uninitialize()

	m.OnDeserialize()

	assert.True(t, d.Pickup.IsInitialized())
	assert.True(t, d.DropOff.IsInitialized())
	assert.True(t, w.IsLogicRegistered(world.LogicGroupInserter, coord, world.LayerEntity))
	assert.True(t, w.IsLogicRegistered(world.LogicGroupTransportBelt, vec.Vec2{X: 1, Y: 1}, world.LayerEntity))
	assert.Len(t, w.GetChunk(vec.Vec2{}).Structs(world.StructLayerTransportLine), 1)
	assert.Equal(t, 2, w.Dispatcher.Len())
}
