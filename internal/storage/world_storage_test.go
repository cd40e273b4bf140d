package storage

import (
	"os"
	"testing"

	"github.com/annel0/factory-world/internal/logic"
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

func testRegistry() *proto.Registry {
	reg := proto.NewRegistry()
	for _, p := range []proto.Prototype{testGrass, testIron, testChest, testBelt, testInserter, testDrill, testOre} {
		reg.MustRegister(p)
	}
	return reg
}

func setupTestStorage(t *testing.T) (*WorldStorage, string) {
	// Создаем временную директорию для тестов
	tempDir, err := os.MkdirTemp("", "world-storage-test")
	require.NoError(t, err)

	storage, err := NewWorldStorage(tempDir)
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Не удалось создать хранилище: %v", err)
	}

	return storage, tempDir
}

func cleanupTestStorage(storage *WorldStorage, tempDir string) {
	if storage != nil {
		storage.Close()
	}
	if tempDir != "" {
		os.RemoveAll(tempDir)
	}
}

// newTestWorld создаёт мир из чанков coords, покрытых травой
func newTestWorld(coords ...vec.Vec2) *world.World {
	w := world.NewWorld()
	for _, c := range coords {
		chunk := w.AddChunk(c)
		for i := 0; i < world.ChunkArea; i++ {
			chunk.TileAt(i).Layer(world.LayerBase).SetPrototype(testGrass)
		}
	}
	return w
}

func placeChest(t *testing.T, m *logic.Manager, wc vec.Vec2, items uint16) {
	t.Helper()

	require.True(t, m.PlaceEntity(testChest, wc, vec.Up))
	if items > 0 {
		_, data := m.World().EntityAt(wc)
		left := data.(*proto.ContainerData).Inventory.AddStack(proto.ItemStack{Item: testIron, Count: items})
		require.Zero(t, left)
	}
}

func chestCount(t *testing.T, w *world.World, wc vec.Vec2) int {
	t.Helper()

	_, data := w.EntityAt(wc)
	chest, ok := data.(*proto.ContainerData)
	require.True(t, ok, "нет сундука в %v", wc)
	return chest.Inventory.Count(testIron)
}

func placeOre(w *world.World, wc vec.Vec2, amount uint32) {
	l := w.GetLayer(wc, world.LayerResource)
	l.SetPrototype(testOre)
	l.SetUniqueData(&proto.ResourceData{Amount: amount})
}

func tick(m *logic.Manager, n int) {
	for i := 0; i < n; i++ {
		m.Update()
	}
}

// buildFactory строит мир с манипулятором между сундуками, буром и лентой
func buildFactory(t *testing.T, reg *proto.Registry) *logic.Manager {
	t.Helper()

	m := logic.NewManager(newTestWorld(vec.Vec2{}, vec.Vec2{X: 1}), reg)

	placeChest(t, m, vec.Vec2{X: 5, Y: 5}, 10)
	placeChest(t, m, vec.Vec2{X: 7, Y: 5}, 10)
	require.True(t, m.PlaceEntity(testInserter, vec.Vec2{X: 6, Y: 5}, vec.Right))

	placeOre(m.World(), vec.Vec2{X: 10, Y: 10}, 2)
	placeChest(t, m, vec.Vec2{X: 12, Y: 11}, 0)
	require.True(t, m.PlaceEntity(testDrill, vec.Vec2{X: 10, Y: 10}, vec.Right))

	require.True(t, m.PlaceEntity(testBelt, vec.Vec2{X: 40, Y: 3}, vec.Down))
	_, data := m.World().EntityAt(vec.Vec2{X: 40, Y: 3})
	require.True(t, data.(*proto.BeltData).Segment.TryInsertItem(true, 0, testIron))
	return m
}

func TestSaveLoadContinuesSimulation(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)

	reg := testRegistry()
	m := buildFactory(t, reg)
	tick(m, 40)

	require.Equal(t, 9, chestCount(t, m.World(), vec.Vec2{X: 5, Y: 5}))
	require.Equal(t, 1, chestCount(t, m.World(), vec.Vec2{X: 12, Y: 11}))
	require.Equal(t, 2, m.World().DeferralTimer.Pending())

	res, err := storage.SaveWorld(m.World())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Meta.Chunks)
	assert.Equal(t, uint64(40), res.Meta.GameTick)
	assert.Positive(t, res.Bytes)

	w2 := world.NewWorld()
	m2 := logic.NewManager(w2, reg)
	meta, err := storage.LoadWorld(w2, reg, m2.ResolveDeferral)
	require.NoError(t, err)
	m2.OnDeserialize()

	assert.Equal(t, m.World().ID, meta.ID)
	assert.Equal(t, m.World().ID, w2.ID)
	assert.Equal(t, uint64(40), w2.GameTick())
	assert.Equal(t, 2, w2.ChunkCount())
	assert.Equal(t, 2, w2.DeferralTimer.Pending())

	// Многотайловый бур связан с левым верхним тайлом
	tl, ok := w2.TopLeftCoord(vec.Vec2{X: 11, Y: 11}, world.LayerEntity)
	require.True(t, ok)
	assert.Equal(t, vec.Vec2{X: 10, Y: 10}, tl)

	_, data := w2.EntityAt(vec.Vec2{X: 6, Y: 5})
	ins := data.(*proto.InserterData)
	assert.Equal(t, proto.InserterStatusDropoff, ins.Status)
	assert.Equal(t, testIron, ins.HeldItem.Item)
	assert.True(t, ins.DropOff.IsInitialized())
	assert.True(t, ins.Pickup.IsInitialized())
	assert.True(t, w2.IsLogicRegistered(world.LogicGroupInserter, vec.Vec2{X: 6, Y: 5}, world.LayerEntity))
	assert.True(t, w2.IsLogicRegistered(world.LogicGroupTransportBelt, vec.Vec2{X: 40, Y: 3}, world.LayerEntity))

	_, data = w2.EntityAt(vec.Vec2{X: 40, Y: 3})
	assert.Equal(t, 1, data.(*proto.BeltData).Segment.ItemCount())

	// Выгрузка манипулятора назначена на тик 87, вторая добыча на тик 60
	tick(m2, 20)
	assert.Equal(t, 2, chestCount(t, w2, vec.Vec2{X: 12, Y: 11}))
	assert.True(t, w2.GetLayer(vec.Vec2{X: 10, Y: 10}, world.LayerResource).Empty(), "залежь исчерпана")

	tick(m2, 26)
	assert.Equal(t, 10, chestCount(t, w2, vec.Vec2{X: 7, Y: 5}))
	tick(m2, 1)
	assert.Equal(t, 11, chestCount(t, w2, vec.Vec2{X: 7, Y: 5}))
	assert.True(t, ins.HeldItem.Empty())

	// Бур можно снять с любого тайла после загрузки
	require.True(t, m2.RemoveEntity(vec.Vec2{X: 11, Y: 10}))
	assert.Nil(t, w2.GetLayer(vec.Vec2{X: 10, Y: 10}, world.LayerEntity).Prototype())
}

func TestSaveRemovesDeletedChunks(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)

	w := newTestWorld(vec.Vec2{}, vec.Vec2{X: 1}, vec.Vec2{X: -1, Y: 2})
	res, err := storage.SaveWorld(w)
	require.NoError(t, err)
	assert.Zero(t, res.Removed)

	coords, err := storage.ChunkCoords()
	require.NoError(t, err)
	assert.ElementsMatch(t, []vec.Vec2{{}, {X: 1}, {X: -1, Y: 2}}, coords)

	require.True(t, w.DeleteChunk(vec.Vec2{X: -1, Y: 2}))
	res, err = storage.SaveWorld(w)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)

	coords, err = storage.ChunkCoords()
	require.NoError(t, err)
	assert.ElementsMatch(t, []vec.Vec2{{}, {X: 1}}, coords)

	loaded := world.NewWorld()
	_, err = storage.LoadWorld(loaded, testRegistry(), logic.NewManager(loaded, nil).ResolveDeferral)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.ChunkCount())
	assert.Equal(t, testGrass, loaded.GetLayer(vec.Vec2{X: 33, Y: 31}, world.LayerBase).Prototype())
}

func TestLoadReplacesWorldContents(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)

	saved := newTestWorld(vec.Vec2{})
	saved.SetGameTick(7)
	_, err := storage.SaveWorld(saved)
	require.NoError(t, err)

	target := newTestWorld(vec.Vec2{X: 5, Y: 5}, vec.Vec2{X: 6, Y: 5})
	target.SetGameTick(1000)
	_, err = storage.LoadWorld(target, testRegistry(), logic.NewManager(target, nil).ResolveDeferral)
	require.NoError(t, err)

	assert.Equal(t, []vec.Vec2{{}}, target.ChunkCoords())
	assert.Equal(t, uint64(7), target.GameTick())
	assert.Equal(t, saved.ID, target.ID)
}

func TestLoadUnknownPrototypeFails(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)

	_, err := storage.SaveWorld(newTestWorld(vec.Vec2{}))
	require.NoError(t, err)

	// В реестре нет травы
	w := world.NewWorld()
	_, err = storage.LoadWorld(w, proto.NewRegistry(), logic.NewManager(w, nil).ResolveDeferral)
	require.ErrorIs(t, err, proto.ErrUnknownPrototype)
	assert.Zero(t, w.ChunkCount(), "частично загруженный мир очищается")
}

func TestWorldNotFound(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)

	_, err := storage.ReadMeta()
	assert.ErrorIs(t, err, ErrWorldNotFound)

	w := world.NewWorld()
	_, err = storage.LoadWorld(w, testRegistry(), logic.NewManager(w, nil).ResolveDeferral)
	assert.ErrorIs(t, err, ErrWorldNotFound)
}

func TestClosedStorage(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)

	require.NoError(t, storage.Close())
	require.NoError(t, storage.Close(), "повторное закрытие")

	_, err := storage.SaveWorld(world.NewWorld())
	assert.ErrorIs(t, err, ErrStorageClosed)
	_, err = storage.ReadMeta()
	assert.ErrorIs(t, err, ErrStorageClosed)
	_, err = storage.ChunkCoords()
	assert.ErrorIs(t, err, ErrStorageClosed)
}

func TestChunkKeyRoundTrip(t *testing.T) {
	for _, c := range []vec.Vec2{{}, {X: -3, Y: 17}, {X: 100000, Y: -100000}} {
		got, err := parseChunkKey(chunkKey(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := parseChunkKey([]byte("chunk:abc"))
	assert.Error(t, err)
}

func TestDecodeRejectsBrokenFootprint(t *testing.T) {
	reg := testRegistry()
	w := world.NewWorld()

	rec := &chunkRecord{Layers: []layerRecord{{
		Tile:      0,
		Layer:     world.LayerEntity,
		Category:  proto.CategoryMiningDrill.String(),
		Prototype: testDrill.Name(),
		Footprint: &world.Footprint{Span: 0, Height: 2},
	}}}
	assert.Error(t, decodeChunk(w, reg, rec))

	rec.Layers[0].Footprint = nil
	rec.Layers[0].TopLeft = &world.LayerRef{Layer: world.LayerEntity}
	assert.Error(t, decodeChunk(w, reg, rec), "ссылка без индекса в многотайловом объекте")

	rec.Layers[0].TopLeft = nil
	rec.Layers[0].MultiTileIndex = 3
	assert.Error(t, decodeChunk(w, reg, rec), "индекс без ссылки на левый верхний тайл")
}
