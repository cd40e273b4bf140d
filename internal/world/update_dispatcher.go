package world

import "github.com/annel0/factory-world/internal/vec"

// UpdateType - вид изменения тайла
type UpdateType uint8

const (
	UpdatePlace UpdateType = iota
	UpdateRemove
)

func (t UpdateType) String() string {
	if t == UpdateRemove {
		return "remove"
	}
	return "place"
}

// UpdateListener получает уведомления об изменении тайла emit,
// на который подписан объект в receive
type UpdateListener interface {
	OnTileUpdate(emit, receive vec.Vec2, t UpdateType)
}

type listenerEntry struct {
	receive  vec.Vec2
	listener UpdateListener
}

// UpdateDispatcher рассылает уведомления об изменении тайлов соседям
type UpdateDispatcher struct {
	listeners map[vec.Vec2][]listenerEntry
}

// NewUpdateDispatcher создаёт пустой диспетчер
func NewUpdateDispatcher() *UpdateDispatcher {
	return &UpdateDispatcher{listeners: make(map[vec.Vec2][]listenerEntry)}
}

// Register подписывает объект в receive на изменения тайла emit.
// Повторная подписка той же пары заменяет слушателя.
func (d *UpdateDispatcher) Register(receive, emit vec.Vec2, l UpdateListener) {
	list := d.listeners[emit]
	for i := range list {
		if list[i].receive == receive {
			list[i].listener = l
			return
		}
	}
	d.listeners[emit] = append(list, listenerEntry{receive: receive, listener: l})
}

// Unregister снимает подписку receive на emit
func (d *UpdateDispatcher) Unregister(receive, emit vec.Vec2) bool {
	list := d.listeners[emit]
	for i := range list {
		if list[i].receive != receive {
			continue
		}
		list = append(list[:i], list[i+1:]...)
		if len(list) == 0 {
			delete(d.listeners, emit)
		} else {
			d.listeners[emit] = list
		}
		return true
	}
	return false
}

// UnregisterReceivers снимает все подписки объектов, для которых match вернул true.
// Возвращает число снятых подписок.
func (d *UpdateDispatcher) UnregisterReceivers(match func(receive vec.Vec2) bool) int {
	n := 0
	for emit, list := range d.listeners {
		kept := list[:0]
		for _, e := range list {
			if match(e.receive) {
				n++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(d.listeners, emit)
		} else {
			d.listeners[emit] = kept
		}
	}
	return n
}

// Dispatch уведомляет всех подписчиков тайла emit. Возвращает число уведомлённых.
func (d *UpdateDispatcher) Dispatch(emit vec.Vec2, t UpdateType) int {
	list := d.listeners[emit]
	if len(list) == 0 {
		return 0
	}
	// Слушатель может менять подписки во время рассылки
	snapshot := append([]listenerEntry(nil), list...)
	for _, e := range snapshot {
		e.listener.OnTileUpdate(emit, e.receive, t)
	}
	return len(snapshot)
}

// Len возвращает число подписок
func (d *UpdateDispatcher) Len() int {
	n := 0
	for _, list := range d.listeners {
		n += len(list)
	}
	return n
}

// Clear снимает все подписки
func (d *UpdateDispatcher) Clear() {
	d.listeners = make(map[vec.Vec2][]listenerEntry)
}
