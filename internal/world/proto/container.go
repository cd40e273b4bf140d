package proto

import (
	"encoding/json"
	"fmt"

	"github.com/annel0/factory-world/internal/vec"
)

// Container - сундук с инвентарём
type Container struct {
	Base
	Size int // число слотов
}

// NewContainer создаёт прототип контейнера
func NewContainer(name string, size int) *Container {
	return &Container{Base: Base{ProtoName: name, ProtoCategory: CategoryContainer}, Size: size}
}

// ContainerData - содержимое конкретного контейнера
type ContainerData struct {
	Inventory Inventory
}

func (d *ContainerData) Clone() UniqueData {
	return &ContainerData{Inventory: d.Inventory.Clone()}
}

type containerRecord struct {
	Inventory []StackRecord `json:"inventory"`
}

func (d *ContainerData) Serialize() ([]byte, error) {
	return json.Marshal(containerRecord{Inventory: d.Inventory.Records()})
}

func (d *ContainerData) Destroy() {
	d.Inventory = nil
}

func (c *Container) NewUniqueData(vec.Orientation) UniqueData {
	return &ContainerData{Inventory: NewInventory(c.Size)}
}

func (c *Container) DeserializeUniqueData(data []byte, reg *Registry) (UniqueData, error) {
	var rec containerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("container %s: %w", c.ProtoName, err)
	}
	inv, err := reg.ResolveInventory(rec.Inventory)
	if err != nil {
		return nil, fmt.Errorf("container %s: %w", c.ProtoName, err)
	}
	// Размер прототипа мог измениться между сохранениями
	if len(inv) < c.Size {
		inv = append(inv, NewInventory(c.Size-len(inv))...)
	}
	return &ContainerData{Inventory: inv}, nil
}
