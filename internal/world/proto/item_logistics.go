package proto

import (
	"fmt"

	"github.com/annel0/factory-world/internal/vec"
)

// EntityReader даёт доступ к объекту на слое сущностей. Для многотайловых
// объектов возвращаются данные левого верхнего тайла.
type EntityReader interface {
	EntityAt(coord vec.Vec2) (Prototype, UniqueData)
}

// InsertFunc кладёт стек в target. orientation - направление, в котором
// движется предмет. При dryRun состояние target не меняется.
type InsertFunc func(stack ItemStack, target UniqueData, orientation vec.Orientation, dryRun bool) bool

// PickupFunc забирает до amount предметов из target. При dryRun возвращает
// то, что было бы забрано, не меняя target.
type PickupFunc func(target UniqueData, orientation vec.Orientation, amount uint16, dryRun bool) (ItemStack, bool)

// CanAcceptItem возвращает функцию вставки для объекта в coord или nil,
// если объект не принимает предметы
func CanAcceptItem(r EntityReader, coord vec.Vec2) InsertFunc {
	p, data := r.EntityAt(coord)
	if p == nil || data == nil {
		return nil
	}

	switch p.Category() {
	case CategoryContainer:
		return insertContainer
	case CategoryTransportBelt:
		return insertTransportBelt
	default:
		return nil
	}
}

// CanPickupItem возвращает функцию извлечения для объекта в coord или nil
func CanPickupItem(r EntityReader, coord vec.Vec2) PickupFunc {
	p, data := r.EntityAt(coord)
	if p == nil || data == nil {
		return nil
	}

	switch p.Category() {
	case CategoryContainer:
		return pickupContainer
	case CategoryTransportBelt:
		return pickupTransportBelt
	default:
		return nil
	}
}

func insertContainer(stack ItemStack, target UniqueData, _ vec.Orientation, dryRun bool) bool {
	data := target.(*ContainerData)
	if !data.Inventory.CanAddStack(stack) {
		return false
	}
	if !dryRun {
		data.Inventory.AddStack(stack)
	}
	return true
}

// beltLane выбирает полосу ленты для предмета, который манипулятор с
// направлением orientation кладёт на ленту с направлением belt.
// ok == false: манипулятор смотрит навстречу ленте, вставка запрещена.
func beltLane(belt, orientation vec.Orientation) (left bool, ok bool) {
	switch belt {
	case vec.Up:
		switch orientation {
		case vec.Right:
			return true, true
		case vec.Down:
			return false, false
		}
	case vec.Right:
		switch orientation {
		case vec.Down:
			return true, true
		case vec.Left:
			return false, false
		}
	case vec.Down:
		switch orientation {
		case vec.Left:
			return true, true
		case vec.Up:
			return false, false
		}
	case vec.Left:
		switch orientation {
		case vec.Up:
			return true, true
		case vec.Right:
			return false, false
		}
	default:
		panic(fmt.Sprintf("неверное направление ленты %d", belt))
	}
	return false, true
}

func insertTransportBelt(stack ItemStack, target UniqueData, orientation vec.Orientation, dryRun bool) bool {
	if stack.Count != 1 {
		panic(fmt.Sprintf("на ленту кладётся по одному предмету, получено %d", stack.Count))
	}

	seg := target.(*BeltData).Segment
	left, ok := beltLane(seg.Direction, orientation)
	if !ok {
		return false
	}
	if dryRun {
		return seg.CanInsert(left, InsertionOffset)
	}
	return seg.TryInsertItem(left, InsertionOffset, stack.Item)
}

func pickupContainer(target UniqueData, _ vec.Orientation, amount uint16, dryRun bool) (ItemStack, bool) {
	inv := target.(*ContainerData).Inventory
	if dryRun {
		item := inv.First()
		if item == nil {
			return ItemStack{}, false
		}
		return ItemStack{Item: item, Count: min(amount, uint16(inv.Count(item)))}, true
	}
	return inv.RemoveFirst(amount)
}

// С ленты манипулятор снимает один передний предмет, сначала с левой полосы
func pickupTransportBelt(target UniqueData, _ vec.Orientation, _ uint16, dryRun bool) (ItemStack, bool) {
	seg := target.(*BeltData).Segment
	for _, left := range [2]bool{true, false} {
		lane := seg.Lane(left)
		item := lane.PeekFront(PickupOffset)
		if item == nil {
			continue
		}
		if !dryRun {
			lane.TryPopItem(PickupOffset)
		}
		return ItemStack{Item: item, Count: 1}, true
	}
	return ItemStack{}, false
}

// ItemDropOff - сторона выгрузки: привязывает источник к объекту-приёмнику.
// Приёмник не знает, что к нему обращаются; функция вставки выбирается один
// раз при инициализации.
type ItemDropOff struct {
	orientation vec.Orientation
	target      UniqueData
	coord       vec.Vec2
	insert      InsertFunc
}

// NewItemDropOff создаёт неинициализированную сторону выгрузки
func NewItemDropOff(orientation vec.Orientation) ItemDropOff {
	return ItemDropOff{orientation: orientation}
}

// Initialize привязывается к объекту в coord. Вызывается каждый раз, когда
// соседство устанавливается заново. false - объект не принимает предметы.
func (d *ItemDropOff) Initialize(r EntityReader, coord vec.Vec2) bool {
	fn := CanAcceptItem(r, coord)
	if fn == nil {
		d.Uninitialize()
		return false
	}
	_, data := r.EntityAt(coord)
	d.target, d.coord, d.insert = data, coord, fn
	return true
}

func (d *ItemDropOff) IsInitialized() bool {
	return d.insert != nil
}

// Uninitialize отвязывается от приёмника после потери соседа
func (d *ItemDropOff) Uninitialize() {
	d.target, d.insert = nil, nil
}

// Orientation возвращает направление движения предметов
func (d *ItemDropOff) Orientation() vec.Orientation {
	return d.orientation
}

// SetOrientation меняет направление; привязка к приёмнику сохраняется
func (d *ItemDropOff) SetOrientation(o vec.Orientation) {
	d.orientation = o
}

// Coord возвращает координату приёмника
func (d *ItemDropOff) Coord() vec.Vec2 {
	return d.coord
}

// Target возвращает данные приёмника или nil
func (d *ItemDropOff) Target() UniqueData {
	return d.target
}

// DropOff кладёт стек в приёмник. Вызов без инициализации - ошибка программы.
func (d *ItemDropOff) DropOff(stack ItemStack) bool {
	if !d.IsInitialized() {
		panic("DropOff на неинициализированной стороне выгрузки")
	}
	return d.insert(stack, d.target, d.orientation, false)
}

// CanDropOff проверяет, примет ли приёмник один предмет item
func (d *ItemDropOff) CanDropOff(item *Item) bool {
	if !d.IsInitialized() || item == nil {
		return false
	}
	return d.insert(ItemStack{Item: item, Count: 1}, d.target, d.orientation, true)
}

// InserterPickup - сторона захвата манипулятора. Предметы забираются только
// когда рука полностью повёрнута к источнику.
type InserterPickup struct {
	orientation vec.Orientation
	target      UniqueData
	coord       vec.Vec2
	pickup      PickupFunc
}

// NewInserterPickup создаёт неинициализированную сторону захвата
func NewInserterPickup(orientation vec.Orientation) InserterPickup {
	return InserterPickup{orientation: orientation}
}

// Initialize привязывается к источнику в coord. false - из объекта нельзя брать предметы.
func (p *InserterPickup) Initialize(r EntityReader, coord vec.Vec2) bool {
	fn := CanPickupItem(r, coord)
	if fn == nil {
		p.Uninitialize()
		return false
	}
	_, data := r.EntityAt(coord)
	p.target, p.coord, p.pickup = data, coord, fn
	return true
}

func (p *InserterPickup) IsInitialized() bool {
	return p.pickup != nil
}

// Uninitialize отвязывается от источника после потери соседа
func (p *InserterPickup) Uninitialize() {
	p.target, p.pickup = nil, nil
}

// Coord возвращает координату источника
func (p *InserterPickup) Coord() vec.Vec2 {
	return p.coord
}

// Target возвращает данные источника или nil
func (p *InserterPickup) Target() UniqueData {
	return p.target
}

// GetPickup возвращает предмет, который будет взят, или nil.
// Для любого угла, кроме MaxInserterDegree, возвращает nil.
func (p *InserterPickup) GetPickup(degree RotationDegree) *Item {
	if !p.IsInitialized() || degree != MaxInserterDegree {
		return nil
	}
	stack, ok := p.pickup(p.target, p.orientation, 1, true)
	if !ok {
		return nil
	}
	return stack.Item
}

// Pickup забирает до amount предметов. Для любого угла, кроме
// MaxInserterDegree, ничего не делает и возвращает false.
func (p *InserterPickup) Pickup(degree RotationDegree, amount uint16) (ItemStack, bool) {
	if !p.IsInitialized() || degree != MaxInserterDegree {
		return ItemStack{}, false
	}
	return p.pickup(p.target, p.orientation, amount, false)
}
