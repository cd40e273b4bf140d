package deferral

import (
	"fmt"
	"sort"

	"github.com/annel0/factory-world/internal/vec"
)

// Target - переносимая ссылка на объект, которому адресован отложенный вызов.
// Хранит мировую координату и слой тайла, а не указатель, поэтому переживает
// сохранение и загрузку мира.
type Target struct {
	Coord vec.Vec2 `json:"coord"`
	Layer uint8    `json:"layer"`
}

// Callback вызывается при наступлении запланированного тика.
// DeferralKey должен быть стабильным: по нему обработчик восстанавливается после загрузки.
type Callback interface {
	DeferralKey() string
	OnDeferTimeElapsed(target Target)
}

// Entry - дескриптор зарегистрированного вызова, нужен для отмены.
// Индекс 0 зарезервирован как недействительный, поэтому нулевое значение Entry
// всегда безопасно отличимо от настоящего.
type Entry struct {
	DueTick       uint64 `json:"due_tick"`
	CallbackIndex int    `json:"callback_index"`
}

// Valid сообщает, ссылается ли дескриптор на зарегистрированный вызов
func (e Entry) Valid() bool {
	return e.CallbackIndex != 0
}

// Invalidate обнуляет дескриптор
func (e *Entry) Invalidate() {
	e.CallbackIndex = 0
}

type slot struct {
	callback Callback // nil - вызов отменён
	target   Target
}

// Timer хранит отложенные вызовы, сгруппированные по тику исполнения
type Timer struct {
	callbacks map[uint64][]slot
	lastTick  uint64
}

// NewTimer создаёт пустой таймер
func NewTimer() *Timer {
	return &Timer{callbacks: make(map[uint64][]slot)}
}

// LastTick возвращает последний обработанный тик
func (t *Timer) LastTick() uint64 {
	return t.lastTick
}

// Update вызывает все отложенные вызовы с тиком исполнения <= tick.
// Пропущенные тики догоняются: каждая корзина срабатывает ровно один раз,
// в порядке возрастания тиков, после чего удаляется.
func (t *Timer) Update(tick uint64) int {
	if tick < t.lastTick {
		panic(fmt.Sprintf("deferral: тик %d меньше уже обработанного %d", tick, t.lastTick))
	}
	t.lastTick = tick

	due := make([]uint64, 0, len(t.callbacks))
	for dueTick := range t.callbacks {
		if dueTick <= tick {
			due = append(due, dueTick)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i] < due[j] })

	fired := 0
	for _, dueTick := range due {
		bucket := t.callbacks[dueTick]
		// Корзина удаляется до вызовов: обработчик может зарегистрировать новый
		// вызов, и он не должен попасть в уже обрабатываемую корзину.
		delete(t.callbacks, dueTick)

		for _, s := range bucket {
			if s.callback == nil {
				continue
			}
			s.callback.OnDeferTimeElapsed(s.target)
			fired++
		}
	}
	return fired
}

// RegisterAtTick регистрирует вызов на абсолютный тик dueTick
func (t *Timer) RegisterAtTick(cb Callback, target Target, dueTick uint64) Entry {
	if cb == nil {
		panic("deferral: nil callback")
	}
	if dueTick <= t.lastTick {
		panic(fmt.Sprintf("deferral: тик %d уже обработан (последний %d)", dueTick, t.lastTick))
	}

	bucket := append(t.callbacks[dueTick], slot{callback: cb, target: target})
	t.callbacks[dueTick] = bucket

	// Индекс на единицу больше позиции в корзине, 0 остаётся недействительным
	return Entry{DueTick: dueTick, CallbackIndex: len(bucket)}
}

// RegisterFromTick регистрирует вызов через elapse тиков после последнего обработанного
func (t *Timer) RegisterFromTick(cb Callback, target Target, elapse uint64) Entry {
	if elapse == 0 {
		panic("deferral: elapse должен быть больше 0")
	}
	return t.RegisterAtTick(cb, target, t.lastTick+elapse)
}

// RemoveDeferral отменяет вызов. Слот не удаляется, а помечается пустым,
// поэтому индексы остальных дескрипторов этой корзины остаются верными.
// Недействительный или уже сработавший дескриптор игнорируется.
func (t *Timer) RemoveDeferral(entry Entry) {
	if !entry.Valid() {
		return
	}

	bucket, ok := t.callbacks[entry.DueTick]
	if !ok {
		return
	}

	idx := entry.CallbackIndex - 1
	if idx < 0 || idx >= len(bucket) {
		panic(fmt.Sprintf("deferral: индекс %d вне корзины тика %d (размер %d)",
			entry.CallbackIndex, entry.DueTick, len(bucket)))
	}
	bucket[idx].callback = nil
}

// RemoveDeferralEntry отменяет вызов и обнуляет дескриптор вызывающей стороны
func (t *Timer) RemoveDeferralEntry(entry *Entry) {
	if entry == nil || !entry.Valid() {
		return
	}
	t.RemoveDeferral(*entry)
	entry.Invalidate()
}

// TicksRemaining возвращает число тиков до срабатывания вызова.
// false - дескриптор недействителен, вызов уже сработал или отменён.
func (t *Timer) TicksRemaining(entry Entry) (uint64, bool) {
	if !entry.Valid() {
		return 0, false
	}
	bucket, ok := t.callbacks[entry.DueTick]
	if !ok || entry.CallbackIndex > len(bucket) || bucket[entry.CallbackIndex-1].callback == nil {
		return 0, false
	}
	return entry.DueTick - t.lastTick, true
}

// Pending возвращает число живых (не отменённых) вызовов
func (t *Timer) Pending() int {
	n := 0
	for _, bucket := range t.callbacks {
		for _, s := range bucket {
			if s.callback != nil {
				n++
			}
		}
	}
	return n
}

// Clear удаляет все вызовы, не сбрасывая счётчик тиков
func (t *Timer) Clear() {
	t.callbacks = make(map[uint64][]slot)
}
