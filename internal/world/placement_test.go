package world

import (
	"testing"

	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world/deferral"
	"github.com/annel0/factory-world/internal/world/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testGrass = proto.NewTile("grass", false)
	testWater = proto.NewTile("water", true)
)

// newTestWorld создаёт мир из одного чанка (0,0), покрытого травой
func newTestWorld() *World {
	w := NewWorld()
	chunk := w.AddChunk(vec.Vec2{})
	for i := 0; i < ChunkArea; i++ {
		chunk.TileAt(i).Layer(LayerBase).SetPrototype(testGrass)
	}
	return w
}

type noopCallback struct{}

func (noopCallback) DeferralKey() string                   { return "noop" }
func (noopCallback) OnDeferTimeElapsed(deferral.Target) {}

func deferralTarget(wc vec.Vec2) deferral.Target {
	return deferral.Target{Coord: wc, Layer: uint8(LayerEntity)}
}

func TestPlaceMultiTileAssignsIndices(t *testing.T) {
	w := newTestWorld()
	p := proto.NewMiningDrill("drill", 3, 2, 0)
	anchor := vec.Vec2{X: 2, Y: 5}

	require.True(t, w.PlaceAtCoords(LayerEntity, p, 3, 2, anchor))

	index := 0
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			l := w.GetLayer(vec.Vec2{X: anchor.X + x, Y: anchor.Y + y}, LayerEntity)
			assert.Equal(t, p, l.Prototype())
			assert.Equal(t, uint8(index), l.MultiTileIndex())
			assert.True(t, l.IsPartOfFootprint())
			assert.Equal(t, index == 0, l.IsTopLeftOfFootprint())

			fp, ok := l.GetFootprint(w)
			require.True(t, ok)
			assert.Equal(t, Footprint{Span: 3, Height: 2}, fp)
			index++
		}
	}
}

func TestPlaceRejectedLeavesTilesUnchanged(t *testing.T) {
	w := newTestWorld()
	p := proto.NewMiningDrill("drill", 2, 2, 0)
	blocker := proto.NewContainer("chest", 1)

	// Занятый тайл в правом нижнем углу области
	require.True(t, w.PlaceAtCoords(LayerEntity, blocker, 1, 1, vec.Vec2{X: 6, Y: 6}))
	assert.False(t, w.PlacementLocationValid(2, 2, vec.Vec2{X: 5, Y: 5}))
	assert.False(t, w.PlaceAtCoords(LayerEntity, p, 2, 2, vec.Vec2{X: 5, Y: 5}))

	for _, c := range []vec.Vec2{{X: 5, Y: 5}, {X: 6, Y: 5}, {X: 5, Y: 6}} {
		l := w.GetLayer(c, LayerEntity)
		assert.True(t, l.Empty(), "тайл %v", c)
		assert.False(t, l.IsPartOfFootprint())
	}

	// После устранения помехи размещение проходит
	require.True(t, w.RemoveAtCoords(LayerEntity, vec.Vec2{X: 6, Y: 6}))
	assert.True(t, w.PlaceAtCoords(LayerEntity, p, 2, 2, vec.Vec2{X: 5, Y: 5}))
}

func TestPlacementRejectsWaterAndMissingChunks(t *testing.T) {
	w := newTestWorld()
	w.GetLayer(vec.Vec2{X: 1, Y: 1}, LayerBase).SetPrototype(testWater)

	assert.False(t, w.PlacementLocationValid(2, 2, vec.Vec2{X: 0, Y: 0}))
	assert.False(t, w.PlacementLocationValid(2, 1, vec.Vec2{X: 31, Y: 0}), "правый тайл в несозданном чанке")
	assert.False(t, w.PlacementLocationValid(0, 1, vec.Vec2{X: 3, Y: 3}))
	assert.True(t, w.PlacementLocationValid(2, 2, vec.Vec2{X: 2, Y: 2}))
}

func TestRemoveFromAnyTileClearsFootprint(t *testing.T) {
	p := proto.NewMiningDrill("drill", 3, 3, 0)
	anchor := vec.Vec2{X: 10, Y: 10}

	for dy := 0; dy < 3; dy++ {
		for dx := 0; dx < 3; dx++ {
			w := newTestWorld()
			require.True(t, w.PlaceAtCoords(LayerEntity, p, 3, 3, anchor))

			destroyed := 0
			w.GetLayer(anchor, LayerEntity).SetUniqueData(destroyCounter{destroyed: &destroyed})

			require.True(t, w.RemoveAtCoords(LayerEntity, vec.Vec2{X: anchor.X + dx, Y: anchor.Y + dy}))
			assert.Equal(t, 1, destroyed)

			for y := 0; y < 3; y++ {
				for x := 0; x < 3; x++ {
					l := w.GetLayer(vec.Vec2{X: anchor.X + x, Y: anchor.Y + y}, LayerEntity)
					assert.True(t, l.Empty())
					assert.False(t, l.IsPartOfFootprint())
					assert.Equal(t, uint8(0), l.MultiTileIndex())
				}
			}
		}
	}
}

func TestRemoveEmptyLayer(t *testing.T) {
	w := newTestWorld()
	assert.False(t, w.RemoveAtCoords(LayerEntity, vec.Vec2{X: 1, Y: 1}))
	assert.False(t, w.RemoveAtCoords(LayerEntity, vec.Vec2{X: 100, Y: 1}))
}

func TestFootprintWrongStatePanics(t *testing.T) {
	var l ChunkTileLayer
	assert.Panics(t, func() { l.LinkToTopLeft(LayerRef{}) })

	l.SetMultiTileIndex(3)
	assert.Panics(t, func() { l.InitFootprint(2, 2) })

	// Ссылка на тайл, не являющийся левым верхним
	w := newTestWorld()
	l.LinkToTopLeft(RefAt(vec.Vec2{X: 1}, LayerEntity))
	assert.Panics(t, func() { l.GetFootprint(w) })
}

func TestLayerClone(t *testing.T) {
	w := newTestWorld()
	p := proto.NewMiningDrill("drill", 2, 2, 0)
	anchor := vec.Vec2{X: 3, Y: 3}
	require.True(t, w.PlaceAtCoords(LayerEntity, p, 2, 2, anchor))

	data := proto.NewDrillData(vec.Left)
	w.GetLayer(anchor, LayerEntity).SetUniqueData(data)

	topLeft := w.GetLayer(anchor, LayerEntity).Clone()
	assert.True(t, topLeft.IsTopLeftOfFootprint())
	assert.NotSame(t, data, topLeft.UniqueData())
	assert.Equal(t, vec.Left, topLeft.UniqueData().(*proto.DrillData).Orientation)

	other := w.GetLayer(vec.Vec2{X: 4, Y: 4}, LayerEntity).Clone()
	assert.Equal(t, p, other.Prototype())
	assert.False(t, other.IsPartOfFootprint(), "копия не левого верхнего тайла теряет связь")
	assert.Equal(t, uint8(0), other.MultiTileIndex())
}

func TestSetUniqueDataReleasesPrevious(t *testing.T) {
	var l ChunkTileLayer
	first, second := 0, 0

	l.SetUniqueData(destroyCounter{destroyed: &first})
	l.SetUniqueData(destroyCounter{destroyed: &second})
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)

	l.Clear()
	assert.Equal(t, 1, second)
	assert.Nil(t, l.UniqueData())
}
