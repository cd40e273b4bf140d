package logic

import (
	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world"
	"github.com/annel0/factory-world/internal/world/deferral"
	"github.com/annel0/factory-world/internal/world/proto"
)

// drillRetryTicks - задержка повторной выгрузки, если приёмник был полон
const drillRetryTicks = 1

type drillMineCallback struct {
	m *Manager
}

func (c drillMineCallback) DeferralKey() string {
	return DeferralKeyDrillMine
}

func (c drillMineCallback) OnDeferTimeElapsed(target deferral.Target) {
	c.m.drillMineElapsed(target)
}

// resourceAt возвращает залежь в wc с ненулевым запасом
func (m *Manager) resourceAt(wc vec.Vec2) (*proto.Resource, *proto.ResourceData) {
	l := m.world.GetLayer(wc, world.LayerResource)
	if l == nil {
		return nil, nil
	}
	res, ok := l.Prototype().(*proto.Resource)
	if !ok {
		return nil, nil
	}
	data, ok := l.UniqueData().(*proto.ResourceData)
	if !ok || data.Amount == 0 {
		return nil, nil
	}
	return res, data
}

// findResource ищет первую залежь в области добычи, построчно от левого верхнего угла
func (m *Manager) findResource(p *proto.MiningDrill, tl vec.Vec2) (*proto.Resource, vec.Vec2, bool) {
	origin, width, height := p.MiningArea(tl)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			wc := vec.Vec2{X: origin.X + x, Y: origin.Y + y}
			if res, _ := m.resourceAt(wc); res != nil {
				return res, wc, true
			}
		}
	}
	return nil, vec.Vec2{}, false
}

func (m *Manager) hasResourceInArea(p *proto.MiningDrill, tl vec.Vec2) bool {
	_, _, ok := m.findResource(p, tl)
	return ok
}

// selectResource выбирает залежь для добычи. false - ресурсов в области не осталось.
func (m *Manager) selectResource(tl vec.Vec2, p *proto.MiningDrill, d *proto.DrillData) bool {
	res, wc, ok := m.findResource(p, tl)
	if !ok {
		d.OutputItem = nil
		d.MiningTicks = 0
		return false
	}
	d.OutputItem = res.Item
	d.ResourceCoord = wc
	d.MiningTicks = p.MiningTicks(res)
	return true
}

func (m *Manager) drillBuild(tl vec.Vec2, p *proto.MiningDrill, d *proto.DrillData) {
	m.selectResource(tl, p, d)

	out := p.OutputCoord(tl, d.Orientation)
	m.world.Dispatcher.Register(tl, out, m)
	d.Output.Initialize(m.world, out)
	m.drillScheduleMining(tl, d)
}

func (m *Manager) drillRemove(tl vec.Vec2, p *proto.MiningDrill, d *proto.DrillData) {
	m.world.Dispatcher.Unregister(tl, p.OutputCoord(tl, d.Orientation))
	m.world.DeferralTimer.RemoveDeferralEntry(&d.DeferralEntry)
}

// drillScheduleMining запускает цикл добычи, если есть что добывать и куда выгружать
func (m *Manager) drillScheduleMining(tl vec.Vec2, d *proto.DrillData) {
	if d.DeferralEntry.Valid() || !d.Output.IsInitialized() || d.OutputItem == nil {
		return
	}
	d.DeferralEntry = m.world.DeferralTimer.RegisterFromTick(m.drillMine, entityTarget(tl), d.MiningTicks)
}

// drillNeighbourUpdate перепривязывает выгрузку бура. Без приёмника
// добыча останавливается.
func (m *Manager) drillNeighbourUpdate(emit, tl vec.Vec2, p *proto.MiningDrill, d *proto.DrillData) {
	if emit != p.OutputCoord(tl, d.Orientation) {
		return
	}

	if !d.Output.Initialize(m.world, emit) {
		m.world.DeferralTimer.RemoveDeferralEntry(&d.DeferralEntry)
		return
	}
	if d.OutputItem == nil {
		m.selectResource(tl, p, d)
	}
	m.drillScheduleMining(tl, d)
}

// drillMineElapsed выгружает добытый предмет и вычитает его из залежи
func (m *Manager) drillMineElapsed(target deferral.Target) {
	p, data := m.entityAt(target)
	drill, ok := p.(*proto.MiningDrill)
	if !ok {
		m.logger.Warn("отложенная добыча для %v: бур не найден", target.Coord)
		return
	}
	d := data.(*proto.DrillData)
	tl := target.Coord

	d.DeferralEntry.Invalidate()
	if !d.Output.IsInitialized() {
		return
	}

	// Залежь могла исчезнуть, пока шла добыча
	res, rd := m.resourceAt(d.ResourceCoord)
	if res == nil || res.Item != d.OutputItem {
		if !m.selectResource(tl, drill, d) {
			m.logger.Debug("бур %v: ресурсы исчерпаны", tl)
			return
		}
		_, rd = m.resourceAt(d.ResourceCoord)
	}

	if !d.Output.DropOff(proto.ItemStack{Item: d.OutputItem, Count: 1}) {
		d.DeferralEntry = m.world.DeferralTimer.RegisterFromTick(m.drillMine, target, drillRetryTicks)
		return
	}

	rd.Amount--
	if rd.Amount == 0 {
		m.world.GetLayer(d.ResourceCoord, world.LayerResource).Clear()
		if !m.selectResource(tl, drill, d) {
			m.logger.Debug("бур %v: ресурсы исчерпаны", tl)
			return
		}
	}
	m.drillScheduleMining(tl, d)
}
