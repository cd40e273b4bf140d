package logic

import (
	"math"

	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world"
	"github.com/annel0/factory-world/internal/world/deferral"
	"github.com/annel0/factory-world/internal/world/proto"
)

const (
	inserterCenterOffset = 0.5 // от края тайла до оси манипулятора
	inserterArmTileGap   = 0.3 // недолёт руки до края тайла цели
)

func inserterArmReach(reach int) float64 {
	return inserterCenterOffset + float64(reach) - inserterArmTileGap
}

// GetInserterArmOffset возвращает поперечное смещение конца руки от оси
// манипулятора при угле degree (в градусах)
func GetInserterArmOffset(degree float64, reach int) float64 {
	return math.Abs(inserterArmReach(reach) * math.Tan(degree*math.Pi/180))
}

// GetInserterArmLength возвращает длину руки, при которой её конец лежит на
// линии цели при угле degree
func GetInserterArmLength(degree float64, reach int) float64 {
	return math.Abs(inserterArmReach(reach) / math.Cos(degree*math.Pi/180))
}

// InserterArmPosition возвращает мировую позицию конца руки манипулятора в
// тайле coord. При 0° рука у приёмника, при 180° у источника.
func InserterArmPosition(coord vec.Vec2, o vec.Orientation, degree proto.RotationDegree, reach int) vec.Vec2Float {
	rad := degree.Degrees() * math.Pi / 180
	armReach := inserterArmReach(reach)

	center := vec.FromVec2(coord).Add(vec.Vec2Float{X: inserterCenterOffset, Y: inserterCenterOffset})
	along := vec.Direction(o).Mul(armReach * math.Cos(rad))
	across := vec.Direction((o + 1) % vec.OrientationCount).Mul(armReach * math.Sin(rad))
	return center.Add(along).Add(across)
}

type inserterDropoffCallback struct {
	m *Manager
}

func (c inserterDropoffCallback) DeferralKey() string {
	return DeferralKeyInserterDropoff
}

func (c inserterDropoffCallback) OnDeferTimeElapsed(target deferral.Target) {
	c.m.inserterDropoffElapsed(target)
}

// inserterBuild подписывает манипулятор на изменения источника и приёмника
// и привязывает обе стороны
func (m *Manager) inserterBuild(coord vec.Vec2, p *proto.Inserter, d *proto.InserterData) {
	m.world.Dispatcher.Register(coord, p.PickupCoord(coord, d.Orientation), m)
	m.world.Dispatcher.Register(coord, p.DropoffCoord(coord, d.Orientation), m)

	d.Pickup.Initialize(m.world, p.PickupCoord(coord, d.Orientation))
	d.DropOff.Initialize(m.world, p.DropoffCoord(coord, d.Orientation))
	m.inserterUpdateRegistration(coord, d)
}

func (m *Manager) inserterRemove(coord vec.Vec2, p *proto.Inserter, d *proto.InserterData) {
	m.world.Dispatcher.Unregister(coord, p.PickupCoord(coord, d.Orientation))
	m.world.Dispatcher.Unregister(coord, p.DropoffCoord(coord, d.Orientation))
	m.world.LogicRemove(world.LogicGroupInserter, coord, world.LayerEntity)
	m.world.DeferralTimer.RemoveDeferralEntry(&d.DeferralEntry)
}

// inserterNeighbourUpdate перепривязывает сторону, тайл которой изменился.
// Манипулятор работает, только пока привязаны обе стороны.
func (m *Manager) inserterNeighbourUpdate(emit, coord vec.Vec2, p *proto.Inserter, d *proto.InserterData) {
	switch emit {
	case p.PickupCoord(coord, d.Orientation):
		d.Pickup.Initialize(m.world, emit)
	case p.DropoffCoord(coord, d.Orientation):
		d.DropOff.Initialize(m.world, emit)
	default:
		return
	}
	m.inserterUpdateRegistration(coord, d)
}

func (m *Manager) inserterUpdateRegistration(coord vec.Vec2, d *proto.InserterData) {
	if d.Pickup.IsInitialized() && d.DropOff.IsInitialized() {
		m.world.LogicRegister(world.LogicGroupInserter, coord, world.LayerEntity)
		return
	}
	m.world.LogicRemove(world.LogicGroupInserter, coord, world.LayerEntity)
}

// InserterLogicUpdate обновляет все зарегистрированные манипуляторы.
// Возвращает число обновлённых.
func (m *Manager) InserterLogicUpdate() int {
	n := 0
	for _, chunk := range m.world.LogicChunks() {
		for _, ref := range chunk.LogicEntries(world.LogicGroupInserter) {
			l := m.world.ResolveLayer(ref)
			if l == nil {
				continue
			}
			p, ok := l.Prototype().(*proto.Inserter)
			if !ok {
				continue
			}
			d, ok := l.UniqueData().(*proto.InserterData)
			if !ok {
				continue
			}
			m.inserterUpdate(ref.WorldCoord(), p, d)
			n++
		}
	}
	return n
}

func (m *Manager) inserterUpdate(coord vec.Vec2, p *proto.Inserter, d *proto.InserterData) {
	switch d.Status {
	case proto.InserterStatusPickup:
		if d.RotationDegree == proto.MaxInserterDegree {
			m.inserterTryPickup(coord, p, d)
			return
		}
		d.RotationDegree = min(d.RotationDegree+p.RotationSpeed, proto.MaxInserterDegree)

	case proto.InserterStatusDropoff:
		// Выгрузка выполняется отложенным вызовом, здесь только поворот руки
		d.RotationDegree = max(d.RotationDegree-p.RotationSpeed, proto.MinInserterDegree)
	}
}

// inserterTryPickup берёт предмет из источника, если приёмник его примет.
// Предмет, оставшийся в руке после неудачной выгрузки, уносится повторно
// без нового извлечения.
func (m *Manager) inserterTryPickup(coord vec.Vec2, p *proto.Inserter, d *proto.InserterData) {
	if !d.HeldItem.Empty() {
		if d.DropOff.CanDropOff(d.HeldItem.Item) {
			m.inserterStartDropoff(coord, p, d)
		}
		return
	}

	item := d.Pickup.GetPickup(d.RotationDegree)
	if item == nil || !d.DropOff.CanDropOff(item) {
		return
	}

	stack, ok := d.Pickup.Pickup(d.RotationDegree, 1)
	if !ok || stack.Empty() {
		return
	}
	d.HeldItem = stack
	m.inserterStartDropoff(coord, p, d)
}

func (m *Manager) inserterStartDropoff(coord vec.Vec2, p *proto.Inserter, d *proto.InserterData) {
	d.Status = proto.InserterStatusDropoff
	d.DeferralEntry = m.world.DeferralTimer.RegisterFromTick(m.inserterDropoff, entityTarget(coord), p.TicksToDropoff())
}

// inserterDropoffElapsed - рука дошла до приёмника. Возврат к источнику
// происходит независимо от результата выгрузки.
func (m *Manager) inserterDropoffElapsed(target deferral.Target) {
	_, data := m.entityAt(target)
	d, ok := data.(*proto.InserterData)
	if !ok {
		m.logger.Warn("отложенная выгрузка для %v: манипулятор не найден", target.Coord)
		return
	}

	d.DeferralEntry.Invalidate()
	if d.DropOff.IsInitialized() && !d.HeldItem.Empty() {
		if d.DropOff.DropOff(d.HeldItem) {
			d.HeldItem = proto.ItemStack{}
		} else {
			m.logger.Trace("манипулятор %v: приёмник не принял %s", target.Coord, d.HeldItem)
		}
	}

	d.Status = proto.InserterStatusPickup
	d.RotationDegree = proto.MinInserterDegree
}
