package proto

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/annel0/factory-world/internal/vec"
)

// TransportBelt - прототип конвейерной ленты
type TransportBelt struct {
	Base
	Speed float64 // тайлов за тик
}

// NewTransportBelt создаёт прототип ленты
func NewTransportBelt(name string, speed float64) *TransportBelt {
	return &TransportBelt{Base: Base{ProtoName: name, ProtoCategory: CategoryTransportBelt}, Speed: speed}
}

// SegmentSpeed возвращает скорость в единицах позиции сегмента
func (b *TransportBelt) SegmentSpeed() int32 {
	return int32(math.Round(b.Speed * SegmentLength))
}

// BeltData - состояние конкретной ленты
type BeltData struct {
	Segment *TransportSegment
}

func (d *BeltData) Clone() UniqueData {
	return &BeltData{Segment: d.Segment.Clone()}
}

func (d *BeltData) Serialize() ([]byte, error) {
	return json.Marshal(segmentRecord{
		Direction: d.Segment.Direction,
		Left:      laneRecords(&d.Segment.Left),
		Right:     laneRecords(&d.Segment.Right),
	})
}

func (d *BeltData) Destroy() {
	d.Segment = nil
}

func (b *TransportBelt) NewUniqueData(o vec.Orientation) UniqueData {
	return &BeltData{Segment: &TransportSegment{Direction: o}}
}

func (b *TransportBelt) DeserializeUniqueData(data []byte, reg *Registry) (UniqueData, error) {
	var rec segmentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("transport belt %s: %w", b.ProtoName, err)
	}
	if !rec.Direction.Valid() {
		return nil, fmt.Errorf("transport belt %s: неверное направление %d", b.ProtoName, rec.Direction)
	}

	seg := &TransportSegment{Direction: rec.Direction}
	var err error
	if seg.Left, err = resolveLane(reg, rec.Left); err != nil {
		return nil, err
	}
	if seg.Right, err = resolveLane(reg, rec.Right); err != nil {
		return nil, err
	}
	return &BeltData{Segment: seg}, nil
}
