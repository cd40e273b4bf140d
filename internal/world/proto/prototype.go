package proto

import (
	"errors"
	"fmt"

	"github.com/annel0/factory-world/internal/vec"
)

// ErrUnknownPrototype возвращается, когда прототип не найден в реестре
var ErrUnknownPrototype = errors.New("неизвестный прототип")

// UniqueData - данные конкретного размещённого объекта.
// Принадлежат слою тайла; прототип только создаёт и восстанавливает их.
type UniqueData interface {
	// Clone возвращает независимую копию данных
	Clone() UniqueData
	// Serialize кодирует данные для сохранения мира
	Serialize() ([]byte, error)
	// Destroy освобождает ресурсы; вызывается при замене или очистке слоя
	Destroy()
}

// Prototype - общее неизменяемое описание вида объекта. Ссылки на прототипы
// действительны всё время жизни реестра.
type Prototype interface {
	Name() string
	Category() Category
	TileWidth() int
	TileHeight() int

	// NewUniqueData создаёт данные для только что размещённого объекта.
	// nil - у вида нет собственных данных.
	NewUniqueData(orientation vec.Orientation) UniqueData

	// DeserializeUniqueData восстанавливает данные, записанные Serialize
	DeserializeUniqueData(data []byte, reg *Registry) (UniqueData, error)
}

// Base содержит поля, общие для всех прототипов
type Base struct {
	ProtoName     string
	ProtoCategory Category
	Width         int
	Height        int
}

func (b *Base) Name() string       { return b.ProtoName }
func (b *Base) Category() Category { return b.ProtoCategory }

// TileWidth возвращает ширину объекта в тайлах (по умолчанию 1)
func (b *Base) TileWidth() int {
	if b.Width <= 0 {
		return 1
	}
	return b.Width
}

// TileHeight возвращает высоту объекта в тайлах (по умолчанию 1)
func (b *Base) TileHeight() int {
	if b.Height <= 0 {
		return 1
	}
	return b.Height
}

func (b *Base) NewUniqueData(vec.Orientation) UniqueData { return nil }

func (b *Base) DeserializeUniqueData(data []byte, _ *Registry) (UniqueData, error) {
	if len(data) != 0 {
		return nil, fmt.Errorf("прототип %s не хранит данных объекта", b.ProtoName)
	}
	return nil, nil
}

// Registry хранит прототипы, сгруппированные по категории
type Registry struct {
	protos map[Category]map[string]Prototype
	order  []Prototype
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{protos: make(map[Category]map[string]Prototype)}
}

// Register добавляет прототип. Имя должно быть уникальным внутри категории.
func (r *Registry) Register(p Prototype) error {
	if p == nil || p.Name() == "" {
		return errors.New("прототип без имени")
	}

	byName, ok := r.protos[p.Category()]
	if !ok {
		byName = make(map[string]Prototype)
		r.protos[p.Category()] = byName
	}
	if _, exists := byName[p.Name()]; exists {
		return fmt.Errorf("прототип %s/%s уже зарегистрирован", p.Category(), p.Name())
	}

	byName[p.Name()] = p
	r.order = append(r.order, p)
	return nil
}

// MustRegister - Register, паникующий при ошибке. Удобен для тестов и встроенных прототипов.
func (r *Registry) MustRegister(p Prototype) Prototype {
	if err := r.Register(p); err != nil {
		panic(err)
	}
	return p
}

// Get возвращает прототип или nil, если его нет
func (r *Registry) Get(c Category, name string) Prototype {
	return r.protos[c][name]
}

// Lookup - Get с ошибкой вместо nil
func (r *Registry) Lookup(c Category, name string) (Prototype, error) {
	p := r.Get(c, name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownPrototype, c, name)
	}
	return p, nil
}

// Item возвращает прототип предмета или nil
func (r *Registry) Item(name string) *Item {
	item, _ := r.Get(CategoryItem, name).(*Item)
	return item
}

// All возвращает прототипы в порядке регистрации
func (r *Registry) All() []Prototype {
	return r.order
}

// Len возвращает число зарегистрированных прототипов
func (r *Registry) Len() int {
	return len(r.order)
}
