package deferral

import (
	"fmt"
	"sort"
)

// SnapshotSlot - сериализуемое представление одного слота корзины.
// Пустой Key означает отменённый вызов: слот сохраняется, чтобы индексы
// дескрипторов, хранящихся в данных объектов, остались верными после загрузки.
type SnapshotSlot struct {
	Key    string `json:"key,omitempty"`
	Target Target `json:"target"`
}

// SnapshotBucket - корзина вызовов одного тика
type SnapshotBucket struct {
	DueTick uint64         `json:"due_tick"`
	Slots   []SnapshotSlot `json:"slots"`
}

// Snapshot - состояние таймера для сохранения
type Snapshot struct {
	LastTick uint64           `json:"last_tick"`
	Buckets  []SnapshotBucket `json:"buckets"`
}

// Snapshot возвращает состояние таймера, корзины упорядочены по тику
func (t *Timer) Snapshot() Snapshot {
	snap := Snapshot{LastTick: t.lastTick}
	for dueTick, bucket := range t.callbacks {
		sb := SnapshotBucket{DueTick: dueTick, Slots: make([]SnapshotSlot, len(bucket))}
		for i, s := range bucket {
			sb.Slots[i].Target = s.target
			if s.callback != nil {
				sb.Slots[i].Key = s.callback.DeferralKey()
			}
		}
		snap.Buckets = append(snap.Buckets, sb)
	}
	sort.Slice(snap.Buckets, func(i, j int) bool {
		return snap.Buckets[i].DueTick < snap.Buckets[j].DueTick
	})
	return snap
}

// Restore заменяет состояние таймера снимком. resolve сопоставляет ключ обработчика
// с его реализацией; неизвестный ключ - ошибка, а не молчаливая потеря вызова.
func (t *Timer) Restore(snap Snapshot, resolve func(key string) (Callback, bool)) error {
	callbacks := make(map[uint64][]slot, len(snap.Buckets))
	for _, sb := range snap.Buckets {
		if sb.DueTick <= snap.LastTick {
			return fmt.Errorf("deferral: корзина тика %d не позже последнего тика %d", sb.DueTick, snap.LastTick)
		}
		bucket := make([]slot, len(sb.Slots))
		for i, ss := range sb.Slots {
			bucket[i].target = ss.Target
			if ss.Key == "" {
				continue
			}
			cb, ok := resolve(ss.Key)
			if !ok {
				return fmt.Errorf("deferral: неизвестный обработчик %q", ss.Key)
			}
			bucket[i].callback = cb
		}
		callbacks[sb.DueTick] = bucket
	}

	t.callbacks = callbacks
	t.lastTick = snap.LastTick
	return nil
}
