package proto

import (
	"fmt"
	"sort"

	"github.com/annel0/factory-world/internal/vec"
)

// Позиции на ленте хранятся в тысячных долях тайла, чтобы движение было
// детерминированным и не накапливало ошибку округления.
const (
	SegmentLength = 1000 // длина однотайлового сегмента
	ItemSpacing   = 250  // минимальное расстояние между предметами одной полосы
	ItemWidth     = 250

	// InsertionOffset - точка, в которую манипулятор кладёт предмет (середина тайла)
	InsertionOffset = SegmentLength / 2
	// PickupOffset - предметы начиная с этой позиции доступны манипулятору
	PickupOffset = InsertionOffset - ItemWidth/2
)

// LaneItem - предмет на полосе и его расстояние от начала сегмента
type LaneItem struct {
	Item *Item
	Pos  int32
}

// TransportLane - одна полоса ленты. Предметы упорядочены от конца сегмента
// к началу: Items[0] ближе всех к выходу.
type TransportLane struct {
	Items []LaneItem
}

// CanInsert проверяет, можно ли положить предмет на позицию pos
func (l *TransportLane) CanInsert(pos int32) bool {
	if pos < 0 || pos > SegmentLength {
		return false
	}
	for _, it := range l.Items {
		d := it.Pos - pos
		if d < 0 {
			d = -d
		}
		if d < ItemSpacing {
			return false
		}
	}
	return true
}

// TryInsertItem кладёт предмет на позицию pos, сохраняя порядок полосы
func (l *TransportLane) TryInsertItem(pos int32, item *Item) bool {
	if item == nil || !l.CanInsert(pos) {
		return false
	}
	i := sort.Search(len(l.Items), func(i int) bool { return l.Items[i].Pos < pos })
	l.Items = append(l.Items, LaneItem{})
	copy(l.Items[i+1:], l.Items[i:])
	l.Items[i] = LaneItem{Item: item, Pos: pos}
	return true
}

// PeekFront возвращает ближайший к выходу предмет, если он дошёл до from
func (l *TransportLane) PeekFront(from int32) *Item {
	if len(l.Items) == 0 || l.Items[0].Pos < from {
		return nil
	}
	return l.Items[0].Item
}

// TryPopItem снимает ближайший к выходу предмет, если он дошёл до from
func (l *TransportLane) TryPopItem(from int32) *Item {
	item := l.PeekFront(from)
	if item == nil {
		return nil
	}
	l.Items = l.Items[1:]
	return item
}

// update сдвигает предметы на speed. Передний предмет, дошедший до конца,
// отдаётся в out; если out отказал, предмет ждёт в конце сегмента.
func (l *TransportLane) update(speed int32, out func(item *Item, overflow int32) bool) {
	limit := int32(SegmentLength)
	kept := l.Items[:0]
	for _, it := range l.Items {
		pos := it.Pos + speed
		if len(kept) == 0 && pos >= SegmentLength && out != nil && out(it.Item, pos-SegmentLength) {
			continue
		}
		if pos > limit {
			pos = limit
		}
		if pos < it.Pos {
			pos = it.Pos
		}
		it.Pos = pos
		kept = append(kept, it)
		limit = pos - ItemSpacing
	}
	l.Items = kept
}

// TransportSegment - однотайловый участок ленты с двумя полосами
type TransportSegment struct {
	Direction vec.Orientation
	Left      TransportLane
	Right     TransportLane
}

// Lane возвращает левую или правую полосу
func (s *TransportSegment) Lane(left bool) *TransportLane {
	if left {
		return &s.Left
	}
	return &s.Right
}

// CanInsert проверяет, свободна ли позиция pos на полосе
func (s *TransportSegment) CanInsert(left bool, pos int32) bool {
	return s.Lane(left).CanInsert(pos)
}

// TryInsertItem кладёт предмет на полосу
func (s *TransportSegment) TryInsertItem(left bool, pos int32, item *Item) bool {
	return s.Lane(left).TryInsertItem(pos, item)
}

// TryPopItem снимает передний предмет полосы
func (s *TransportSegment) TryPopItem(left bool, from int32) *Item {
	return s.Lane(left).TryPopItem(from)
}

// Update продвигает обе полосы на speed за тик. next - сегмент, в который
// уходят предметы с конца ленты (nil - лента обрывается). Полосы передаются
// в одноимённые полосы следующего сегмента.
func (s *TransportSegment) Update(speed int32, next *TransportSegment) {
	for _, left := range [2]bool{true, false} {
		var out func(*Item, int32) bool
		if next != nil {
			target := next.Lane(left)
			out = func(item *Item, overflow int32) bool {
				return target.TryInsertItem(overflow, item)
			}
		}
		s.Lane(left).update(speed, out)
	}
}

// ItemCount возвращает общее число предметов на обеих полосах
func (s *TransportSegment) ItemCount() int {
	return len(s.Left.Items) + len(s.Right.Items)
}

// Clone возвращает независимую копию сегмента
func (s *TransportSegment) Clone() *TransportSegment {
	c := &TransportSegment{Direction: s.Direction}
	c.Left.Items = append([]LaneItem(nil), s.Left.Items...)
	c.Right.Items = append([]LaneItem(nil), s.Right.Items...)
	return c
}

type laneItemRecord struct {
	Item string `json:"item"`
	Pos  int32  `json:"pos"`
}

type segmentRecord struct {
	Direction vec.Orientation  `json:"direction"`
	Left      []laneItemRecord `json:"left,omitempty"`
	Right     []laneItemRecord `json:"right,omitempty"`
}

func laneRecords(l *TransportLane) []laneItemRecord {
	recs := make([]laneItemRecord, len(l.Items))
	for i, it := range l.Items {
		recs[i] = laneItemRecord{Item: it.Item.Name(), Pos: it.Pos}
	}
	return recs
}

func resolveLane(reg *Registry, recs []laneItemRecord) (TransportLane, error) {
	lane := TransportLane{Items: make([]LaneItem, 0, len(recs))}
	for _, rec := range recs {
		item := reg.Item(rec.Item)
		if item == nil {
			return TransportLane{}, fmt.Errorf("%w: item/%s", ErrUnknownPrototype, rec.Item)
		}
		lane.Items = append(lane.Items, LaneItem{Item: item, Pos: rec.Pos})
	}
	return lane, nil
}
