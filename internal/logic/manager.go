package logic

import (
	"github.com/annel0/factory-world/internal/logging"
	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world"
	"github.com/annel0/factory-world/internal/world/deferral"
	"github.com/annel0/factory-world/internal/world/proto"
)

// Ключи отложенных вызовов. Сохраняются вместе с миром, менять нельзя.
const (
	DeferralKeyInserterDropoff = "inserter.dropoff"
	DeferralKeyDrillMine       = "drill.mine"
)

// TickStats - итоги одного тика
type TickStats struct {
	Tick           uint64
	DeferralsFired int
	Inserters      int
	Belts          int
	LogicChunks    int
}

// Manager выполняет игровую логику над миром: размещение и удаление
// построек, обновление манипуляторов и лент, обработку отложенных вызовов.
// Как и World, используется из одной горутины.
type Manager struct {
	world    *world.World
	registry *proto.Registry
	logger   *logging.Logger

	inserterDropoff inserterDropoffCallback
	drillMine       drillMineCallback
}

// NewManager создаёт менеджер логики для мира w
func NewManager(w *world.World, reg *proto.Registry) *Manager {
	m := &Manager{
		world:    w,
		registry: reg,
		logger:   logging.GetLogicLogger(),
	}
	m.inserterDropoff = inserterDropoffCallback{m: m}
	m.drillMine = drillMineCallback{m: m}
	return m
}

// World возвращает мир, которым управляет менеджер
func (m *Manager) World() *world.World {
	return m.world
}

// Registry возвращает реестр прототипов
func (m *Manager) Registry() *proto.Registry {
	return m.registry
}

// ResolveDeferral сопоставляет сохранённый ключ с обработчиком.
// Используется при восстановлении таймера после загрузки.
func (m *Manager) ResolveDeferral(key string) (deferral.Callback, bool) {
	switch key {
	case DeferralKeyInserterDropoff:
		return m.inserterDropoff, true
	case DeferralKeyDrillMine:
		return m.drillMine, true
	default:
		return nil, false
	}
}

// Update выполняет один игровой тик: сдвигает счётчик тиков, вызывает
// наступившие отложенные вызовы, затем обновляет манипуляторы и ленты
func (m *Manager) Update() TickStats {
	tick := m.world.AdvanceTick()

	stats := TickStats{Tick: tick}
	stats.DeferralsFired = m.world.DeferralTimer.Update(tick)
	stats.Inserters = m.InserterLogicUpdate()
	stats.Belts = m.TransportBeltUpdate()
	stats.LogicChunks = len(m.world.LogicChunks())
	return stats
}

// OnTileUpdate реализует world.UpdateListener: сосед постройки в receive
// изменился. Обработка выбирается по категории постройки.
func (m *Manager) OnTileUpdate(emit, receive vec.Vec2, t world.UpdateType) {
	p, data := m.world.EntityAt(receive)
	if p == nil || data == nil {
		m.logger.Warn("уведомление %s от %v для пустого тайла %v", t, emit, receive)
		return
	}

	switch p.Category() {
	case proto.CategoryInserter:
		m.inserterNeighbourUpdate(emit, receive, p.(*proto.Inserter), data.(*proto.InserterData))
	case proto.CategoryMiningDrill:
		m.drillNeighbourUpdate(emit, receive, p.(*proto.MiningDrill), data.(*proto.DrillData))
	}
}

func entityTarget(tl vec.Vec2) deferral.Target {
	return deferral.Target{Coord: tl, Layer: uint8(world.LayerEntity)}
}

// entityAt возвращает постройку, адресованную отложенным вызовом
func (m *Manager) entityAt(t deferral.Target) (proto.Prototype, proto.UniqueData) {
	if world.TileLayer(t.Layer) != world.LayerEntity {
		return nil, nil
	}
	return m.world.EntityAt(t.Coord)
}
