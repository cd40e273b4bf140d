package proto

import "fmt"

// DefaultStackSize - размер стека, если в описании предмета он не задан
const DefaultStackSize = 50

// Item - прототип предмета
type Item struct {
	Base
	StackSize uint16
}

// NewItem создаёт прототип предмета
func NewItem(name string, stackSize uint16) *Item {
	if stackSize == 0 {
		stackSize = DefaultStackSize
	}
	return &Item{Base: Base{ProtoName: name, ProtoCategory: CategoryItem}, StackSize: stackSize}
}

// ItemStack - предмет и количество. Пустой стек: Item == nil, Count == 0.
type ItemStack struct {
	Item  *Item
	Count uint16
}

// Empty сообщает, пуст ли стек
func (s ItemStack) Empty() bool {
	return s.Item == nil || s.Count == 0
}

func (s ItemStack) String() string {
	if s.Empty() {
		return "<empty>"
	}
	return fmt.Sprintf("%s x%d", s.Item.Name(), s.Count)
}

// StackRecord - сериализуемая форма стека: предмет хранится по имени
type StackRecord struct {
	Item  string `json:"item,omitempty"`
	Count uint16 `json:"count,omitempty"`
}

// Record переводит стек в сериализуемую форму
func (s ItemStack) Record() StackRecord {
	if s.Empty() {
		return StackRecord{}
	}
	return StackRecord{Item: s.Item.Name(), Count: s.Count}
}

// ResolveStack восстанавливает стек по записи
func (r *Registry) ResolveStack(rec StackRecord) (ItemStack, error) {
	if rec.Item == "" || rec.Count == 0 {
		return ItemStack{}, nil
	}
	item := r.Item(rec.Item)
	if item == nil {
		return ItemStack{}, fmt.Errorf("%w: item/%s", ErrUnknownPrototype, rec.Item)
	}
	return ItemStack{Item: item, Count: rec.Count}, nil
}

// ResolveItem восстанавливает ссылку на предмет по имени; пустое имя - nil без ошибки
func (r *Registry) ResolveItem(name string) (*Item, error) {
	if name == "" {
		return nil, nil
	}
	item := r.Item(name)
	if item == nil {
		return nil, fmt.Errorf("%w: item/%s", ErrUnknownPrototype, name)
	}
	return item, nil
}

func itemName(item *Item) string {
	if item == nil {
		return ""
	}
	return item.Name()
}
