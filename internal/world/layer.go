package world

// TileLayer определяет смысловой слой внутри тайла.
//
// 0 – LayerBase: земля/вода;
// 1 – LayerResource: залежи ресурсов;
// 2 – LayerEntity: размещённые постройки (сундуки, ленты, манипуляторы, буры);
// 3 – LayerOverlay: надписи и подсветка поверх построек.
type TileLayer uint8

const (
	LayerBase TileLayer = iota
	LayerResource
	LayerEntity
	LayerOverlay

	TileLayerCount // всегда последний: количество слоев
)

func (l TileLayer) String() string {
	switch l {
	case LayerBase:
		return "base"
	case LayerResource:
		return "resource"
	case LayerEntity:
		return "entity"
	case LayerOverlay:
		return "overlay"
	default:
		return "unknown"
	}
}

// ObjectLayer группирует свободно расположенные объекты чанка
type ObjectLayer uint8

const (
	ObjectLayerDebugOverlay ObjectLayer = iota

	ObjectLayerCount
)

// StructLayer группирует логические структуры чанка
type StructLayer uint8

const (
	StructLayerTransportLine StructLayer = iota

	StructLayerCount
)

// LogicGroup - вид объектов, требующих обработки каждый тик
type LogicGroup uint8

const (
	LogicGroupInserter LogicGroup = iota
	LogicGroupTransportBelt

	LogicGroupCount
)
