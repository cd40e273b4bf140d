package proto

// Inventory - инвентарь фиксированного размера. Каждый слот хранит не больше
// StackSize предметов одного вида.
type Inventory []ItemStack

// NewInventory создаёт пустой инвентарь на size слотов
func NewInventory(size int) Inventory {
	return make(Inventory, size)
}

// CanAddStack проверяет, поместится ли стек целиком
func (inv Inventory) CanAddStack(stack ItemStack) bool {
	if stack.Empty() {
		return true
	}

	free := 0
	for _, slot := range inv {
		switch {
		case slot.Empty():
			free += int(stack.Item.StackSize)
		case slot.Item == stack.Item:
			free += int(stack.Item.StackSize) - int(slot.Count)
		}
		if free >= int(stack.Count) {
			return true
		}
	}
	return false
}

// AddStack раскладывает стек по слотам: сначала дополняет слоты с тем же
// предметом, затем занимает пустые. Возвращает число не поместившихся предметов.
func (inv Inventory) AddStack(stack ItemStack) uint16 {
	if stack.Empty() {
		return 0
	}
	remaining := stack.Count
	limit := stack.Item.StackSize

	for i := range inv {
		if remaining == 0 {
			return 0
		}
		if inv[i].Item != stack.Item || inv[i].Count >= limit {
			continue
		}
		n := min(limit-inv[i].Count, remaining)
		inv[i].Count += n
		remaining -= n
	}

	for i := range inv {
		if remaining == 0 {
			return 0
		}
		if !inv[i].Empty() {
			continue
		}
		n := min(limit, remaining)
		inv[i] = ItemStack{Item: stack.Item, Count: n}
		remaining -= n
	}
	return remaining
}

// First возвращает предмет первого непустого слота или nil
func (inv Inventory) First() *Item {
	for _, slot := range inv {
		if !slot.Empty() {
			return slot.Item
		}
	}
	return nil
}

// RemoveFirst забирает до amount предметов из первого непустого слота
func (inv Inventory) RemoveFirst(amount uint16) (ItemStack, bool) {
	if amount == 0 {
		return ItemStack{}, false
	}
	for i := range inv {
		if inv[i].Empty() {
			continue
		}
		n := min(amount, inv[i].Count)
		taken := ItemStack{Item: inv[i].Item, Count: n}
		inv[i].Count -= n
		if inv[i].Count == 0 {
			inv[i] = ItemStack{}
		}
		return taken, true
	}
	return ItemStack{}, false
}

// Count возвращает общее количество предмета item во всех слотах
func (inv Inventory) Count(item *Item) int {
	total := 0
	for _, slot := range inv {
		if slot.Item == item {
			total += int(slot.Count)
		}
	}
	return total
}

// Clone возвращает копию инвентаря
func (inv Inventory) Clone() Inventory {
	c := make(Inventory, len(inv))
	copy(c, inv)
	return c
}

// Records переводит инвентарь в сериализуемую форму
func (inv Inventory) Records() []StackRecord {
	recs := make([]StackRecord, len(inv))
	for i, slot := range inv {
		recs[i] = slot.Record()
	}
	return recs
}

// ResolveInventory восстанавливает инвентарь из записей
func (r *Registry) ResolveInventory(recs []StackRecord) (Inventory, error) {
	inv := make(Inventory, len(recs))
	for i, rec := range recs {
		stack, err := r.ResolveStack(rec)
		if err != nil {
			return nil, err
		}
		inv[i] = stack
	}
	return inv, nil
}
