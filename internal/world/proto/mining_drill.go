package proto

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world/deferral"
)

// TicksPerSecond - число игровых тиков в секунде игрового времени
const TicksPerSecond = 60

// MiningDrill - прототип бура. Бур занимает TileWidth x TileHeight тайлов и
// добывает ресурсы в области, расширенной на MiningRadius со всех сторон.
type MiningDrill struct {
	Base
	MiningRadius int
	MiningSpeed  float64

	// ResourceOutput - смещение тайла выгрузки от левого верхнего угла для каждого направления
	ResourceOutput [vec.OrientationCount]vec.Vec2
}

// NewMiningDrill создаёт прототип бура с выгрузкой по центру соответствующей стороны
func NewMiningDrill(name string, width, height, miningRadius int) *MiningDrill {
	d := &MiningDrill{
		Base:         Base{ProtoName: name, ProtoCategory: CategoryMiningDrill, Width: width, Height: height},
		MiningRadius: miningRadius,
		MiningSpeed:  1,
	}
	d.ResourceOutput = DefaultResourceOutput(d.TileWidth(), d.TileHeight())
	return d
}

// DefaultResourceOutput возвращает тайлы выгрузки посередине каждой стороны.
// Для бура 3x3: вверх (1,-1), вправо (3,1), вниз (1,3), влево (-1,1).
func DefaultResourceOutput(width, height int) [vec.OrientationCount]vec.Vec2 {
	return [vec.OrientationCount]vec.Vec2{
		vec.Up:    {X: width / 2, Y: -1},
		vec.Right: {X: width, Y: height / 2},
		vec.Down:  {X: width / 2, Y: height},
		vec.Left:  {X: -1, Y: height / 2},
	}
}

// OutputCoord возвращает координату выгрузки для бура с левым верхним углом topLeft
func (p *MiningDrill) OutputCoord(topLeft vec.Vec2, o vec.Orientation) vec.Vec2 {
	return topLeft.Add(p.ResourceOutput[o])
}

// MiningArea возвращает левый верхний угол и размеры области добычи
func (p *MiningDrill) MiningArea(topLeft vec.Vec2) (vec.Vec2, int, int) {
	origin := vec.Vec2{X: topLeft.X - p.MiningRadius, Y: topLeft.Y - p.MiningRadius}
	return origin, p.TileWidth() + 2*p.MiningRadius, p.TileHeight() + 2*p.MiningRadius
}

// MiningTicks - число тиков добычи одного предмета ресурса r
func (p *MiningDrill) MiningTicks(r *Resource) uint64 {
	speed := p.MiningSpeed
	if speed <= 0 {
		speed = 1
	}
	ticks := math.Ceil(r.PickupTime * TicksPerSecond / speed)
	if ticks < 1 {
		return 1
	}
	return uint64(ticks)
}

// DrillData - состояние конкретного бура
type DrillData struct {
	Orientation   vec.Orientation
	Output        ItemDropOff
	OutputItem    *Item
	ResourceCoord vec.Vec2 // залежь, из которой добывается OutputItem
	MiningTicks   uint64

	DeferralEntry deferral.Entry
}

// NewDrillData создаёт данные бура без выбранной залежи
func NewDrillData(o vec.Orientation) *DrillData {
	return &DrillData{Orientation: o, Output: NewItemDropOff(o)}
}

func (d *DrillData) Clone() UniqueData {
	c := NewDrillData(d.Orientation)
	c.OutputItem = d.OutputItem
	c.ResourceCoord = d.ResourceCoord
	c.MiningTicks = d.MiningTicks
	return c
}

type drillRecord struct {
	Orientation   vec.Orientation `json:"orientation"`
	OutputItem    string          `json:"output_item,omitempty"`
	ResourceCoord vec.Vec2        `json:"resource_coord"`
	MiningTicks   uint64          `json:"mining_ticks"`
	DeferralEntry deferral.Entry  `json:"deferral"`
}

func (d *DrillData) Serialize() ([]byte, error) {
	return json.Marshal(drillRecord{
		Orientation:   d.Orientation,
		OutputItem:    itemName(d.OutputItem),
		ResourceCoord: d.ResourceCoord,
		MiningTicks:   d.MiningTicks,
		DeferralEntry: d.DeferralEntry,
	})
}

func (d *DrillData) Destroy() {
	d.Output.Uninitialize()
}

func (p *MiningDrill) NewUniqueData(o vec.Orientation) UniqueData {
	return NewDrillData(o)
}

func (p *MiningDrill) DeserializeUniqueData(data []byte, reg *Registry) (UniqueData, error) {
	var rec drillRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("mining drill %s: %w", p.ProtoName, err)
	}
	item, err := reg.ResolveItem(rec.OutputItem)
	if err != nil {
		return nil, fmt.Errorf("mining drill %s: %w", p.ProtoName, err)
	}

	d := NewDrillData(rec.Orientation)
	d.OutputItem = item
	d.ResourceCoord = rec.ResourceCoord
	d.MiningTicks = rec.MiningTicks
	d.DeferralEntry = rec.DeferralEntry
	return d, nil
}
