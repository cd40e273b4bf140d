package proto

import (
	"encoding/json"

	"github.com/annel0/factory-world/internal/vec"
)

// Tile - прототип базового тайла (земля, вода)
type Tile struct {
	Base
	IsWater bool
}

// NewTile создаёт прототип тайла
func NewTile(name string, isWater bool) *Tile {
	return &Tile{Base: Base{ProtoName: name, ProtoCategory: CategoryTile}, IsWater: isWater}
}

// Sprite - описание изображения. Отрисовка вне этого модуля, прототип только хранит путь.
type Sprite struct {
	Base
	Path   string
	Frames int
}

// NewSprite создаёт прототип спрайта
func NewSprite(name, path string, frames int) *Sprite {
	return &Sprite{Base: Base{ProtoName: name, ProtoCategory: CategorySprite}, Path: path, Frames: frames}
}

// DefaultResourceAmount - запас залежи, если он не задан
const DefaultResourceAmount = 1000

// Resource - залежь на слое ресурсов
type Resource struct {
	Base
	Item          *Item
	PickupTime    float64 // секунды на добычу одного предмета
	DefaultAmount uint32
}

// NewResource создаёт прототип ресурса, добываемого как item
func NewResource(name string, item *Item, pickupTime float64) *Resource {
	return &Resource{
		Base:          Base{ProtoName: name, ProtoCategory: CategoryResource},
		Item:          item,
		PickupTime:    pickupTime,
		DefaultAmount: DefaultResourceAmount,
	}
}

// ResourceData - оставшийся запас конкретной залежи
type ResourceData struct {
	Amount uint32 `json:"amount"`
}

func (d *ResourceData) Clone() UniqueData {
	c := *d
	return &c
}

func (d *ResourceData) Serialize() ([]byte, error) {
	return json.Marshal(d)
}

func (d *ResourceData) Destroy() {}

func (r *Resource) NewUniqueData(vec.Orientation) UniqueData {
	return &ResourceData{Amount: r.DefaultAmount}
}

func (r *Resource) DeserializeUniqueData(data []byte, _ *Registry) (UniqueData, error) {
	d := &ResourceData{}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, err
	}
	return d, nil
}
