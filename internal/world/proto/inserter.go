package proto

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world/deferral"
)

// RotationDegree - угол руки манипулятора в тысячных долях градуса.
// Целое представление даёт точное сравнение с крайними положениями.
type RotationDegree int32

const rotationScale = 1000

const (
	// MinInserterDegree - рука повёрнута к приёмнику
	MinInserterDegree RotationDegree = 0
	// MaxInserterDegree - рука повёрнута к источнику
	MaxInserterDegree RotationDegree = 180 * rotationScale
)

// ToRotationDegree переводит градусы в RotationDegree
func ToRotationDegree(degrees float64) RotationDegree {
	return RotationDegree(math.Round(degrees * rotationScale))
}

// Degrees возвращает угол в градусах
func (d RotationDegree) Degrees() float64 {
	return float64(d) / rotationScale
}

// InserterStatus - фаза цикла манипулятора
type InserterStatus uint8

const (
	InserterStatusPickup InserterStatus = iota
	InserterStatusDropoff
)

func (s InserterStatus) String() string {
	switch s {
	case InserterStatusPickup:
		return "pickup"
	case InserterStatusDropoff:
		return "dropoff"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Inserter - прототип манипулятора
type Inserter struct {
	Base
	RotationSpeed RotationDegree // поворот за тик
	TileReach     int
}

// NewInserter создаёт прототип манипулятора; rotationSpeed в градусах за тик
func NewInserter(name string, rotationSpeed float64, tileReach int) *Inserter {
	return &Inserter{
		Base:          Base{ProtoName: name, ProtoCategory: CategoryInserter},
		RotationSpeed: ToRotationDegree(rotationSpeed),
		TileReach:     tileReach,
	}
}

// DropoffCoord возвращает координату приёмника манипулятора в coord
func (p *Inserter) DropoffCoord(coord vec.Vec2, o vec.Orientation) vec.Vec2 {
	return coord.Incremented(o, p.TileReach)
}

// PickupCoord возвращает координату источника манипулятора в coord
func (p *Inserter) PickupCoord(coord vec.Vec2, o vec.Orientation) vec.Vec2 {
	return coord.Incremented(o, -p.TileReach)
}

// TicksToDropoff - число тиков поворота от источника до приёмника
func (p *Inserter) TicksToDropoff() uint64 {
	if p.RotationSpeed <= 0 {
		panic(fmt.Sprintf("inserter %s: скорость поворота должна быть положительной", p.ProtoName))
	}
	span := int64(MaxInserterDegree - MinInserterDegree)
	speed := int64(p.RotationSpeed)
	return uint64((span + speed - 1) / speed)
}

// InserterData - состояние конкретного манипулятора
type InserterData struct {
	Orientation    vec.Orientation
	RotationDegree RotationDegree
	Status         InserterStatus
	HeldItem       ItemStack

	DropOff ItemDropOff
	Pickup  InserterPickup

	// Отложенный вызов выгрузки, действителен в фазе dropoff
	DeferralEntry deferral.Entry
}

// NewInserterData создаёт данные манипулятора в исходном положении: рука у источника
func NewInserterData(o vec.Orientation) *InserterData {
	return &InserterData{
		Orientation:    o,
		RotationDegree: MaxInserterDegree,
		Status:         InserterStatusPickup,
		DropOff:        NewItemDropOff(o),
		Pickup:         NewInserterPickup(o),
	}
}

// Clone копирует состояние руки. Привязки к соседям и отложенный вызов не
// копируются: копия ещё не размещена в мире.
func (d *InserterData) Clone() UniqueData {
	c := NewInserterData(d.Orientation)
	c.RotationDegree = d.RotationDegree
	c.Status = d.Status
	c.HeldItem = d.HeldItem
	return c
}

type inserterRecord struct {
	Orientation    vec.Orientation `json:"orientation"`
	RotationDegree RotationDegree  `json:"rotation_degree"`
	Status         InserterStatus  `json:"status"`
	HeldItem       StackRecord     `json:"held_item"`
	DeferralEntry  deferral.Entry  `json:"deferral"`
}

func (d *InserterData) Serialize() ([]byte, error) {
	return json.Marshal(inserterRecord{
		Orientation:    d.Orientation,
		RotationDegree: d.RotationDegree,
		Status:         d.Status,
		HeldItem:       d.HeldItem.Record(),
		DeferralEntry:  d.DeferralEntry,
	})
}

func (d *InserterData) Destroy() {
	d.DropOff.Uninitialize()
	d.Pickup.Uninitialize()
}

func (p *Inserter) NewUniqueData(o vec.Orientation) UniqueData {
	return NewInserterData(o)
}

func (p *Inserter) DeserializeUniqueData(data []byte, reg *Registry) (UniqueData, error) {
	var rec inserterRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("inserter %s: %w", p.ProtoName, err)
	}
	held, err := reg.ResolveStack(rec.HeldItem)
	if err != nil {
		return nil, fmt.Errorf("inserter %s: %w", p.ProtoName, err)
	}

	d := NewInserterData(rec.Orientation)
	d.RotationDegree = rec.RotationDegree
	d.Status = rec.Status
	d.HeldItem = held
	d.DeferralEntry = rec.DeferralEntry
	return d, nil
}
