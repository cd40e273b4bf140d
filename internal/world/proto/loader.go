package proto

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/annel0/factory-world/internal/vec"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed prototypes.schema.json
var schemaSource string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func prototypeSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString("prototypes.schema.json", schemaSource)
	})
	return compiledSchema, schemaErr
}

// Описание прототипов в YAML
type prototypeFile struct {
	Items []struct {
		Name      string `yaml:"name"`
		StackSize uint16 `yaml:"stack_size"`
	} `yaml:"items"`
	Tiles []struct {
		Name    string `yaml:"name"`
		IsWater bool   `yaml:"is_water"`
	} `yaml:"tiles"`
	Sprites []struct {
		Name   string `yaml:"name"`
		Path   string `yaml:"path"`
		Frames int    `yaml:"frames"`
	} `yaml:"sprites"`
	Resources []struct {
		Name       string  `yaml:"name"`
		Item       string  `yaml:"item"`
		PickupTime float64 `yaml:"pickup_time"`
		Amount     uint32  `yaml:"amount"`
	} `yaml:"resources"`
	Containers []struct {
		Name string `yaml:"name"`
		Size int    `yaml:"size"`
	} `yaml:"containers"`
	TransportBelts []struct {
		Name  string  `yaml:"name"`
		Speed float64 `yaml:"speed"`
	} `yaml:"transport_belts"`
	Inserters []struct {
		Name          string  `yaml:"name"`
		RotationSpeed float64 `yaml:"rotation_speed"`
		TileReach     int     `yaml:"tile_reach"`
	} `yaml:"inserters"`
	MiningDrills []struct {
		Name           string           `yaml:"name"`
		Width          int              `yaml:"width"`
		Height         int              `yaml:"height"`
		MiningRadius   int              `yaml:"mining_radius"`
		MiningSpeed    float64          `yaml:"mining_speed"`
		ResourceOutput map[string][]int `yaml:"resource_output"`
	} `yaml:"mining_drills"`
}

// LoadFile читает описание прототипов из YAML-файла
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл прототипов: %w", err)
	}
	defer f.Close()

	reg, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// Load читает описание прототипов, проверяет его схемой и заполняет новый реестр
func Load(r io.Reader) (*Registry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать прототипы: %w", err)
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	var file prototypeFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("не удалось разобрать прототипы: %w", err)
	}

	reg := NewRegistry()
	if err := file.register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// validate проверяет документ JSON-схемой. YAML сначала переводится в
// JSON-совместимые значения, которые ожидает валидатор.
func validate(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("не удалось разобрать прототипы: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	asJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("прототипы не переводятся в JSON: %w", err)
	}
	var v any
	if err := json.Unmarshal(asJSON, &v); err != nil {
		return fmt.Errorf("прототипы не переводятся в JSON: %w", err)
	}

	schema, err := prototypeSchema()
	if err != nil {
		return fmt.Errorf("ошибка схемы прототипов: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("прототипы не соответствуют схеме: %w", err)
	}
	return nil
}

func (f *prototypeFile) register(reg *Registry) error {
	for _, it := range f.Items {
		if err := reg.Register(NewItem(it.Name, it.StackSize)); err != nil {
			return err
		}
	}
	for _, t := range f.Tiles {
		if err := reg.Register(NewTile(t.Name, t.IsWater)); err != nil {
			return err
		}
	}
	for _, s := range f.Sprites {
		if err := reg.Register(NewSprite(s.Name, s.Path, s.Frames)); err != nil {
			return err
		}
	}
	for _, r := range f.Resources {
		item := reg.Item(r.Item)
		if item == nil {
			return fmt.Errorf("ресурс %s: %w: item/%s", r.Name, ErrUnknownPrototype, r.Item)
		}
		res := NewResource(r.Name, item, r.PickupTime)
		if r.Amount > 0 {
			res.DefaultAmount = r.Amount
		}
		if err := reg.Register(res); err != nil {
			return err
		}
	}
	for _, c := range f.Containers {
		if err := reg.Register(NewContainer(c.Name, c.Size)); err != nil {
			return err
		}
	}
	for _, b := range f.TransportBelts {
		if err := reg.Register(NewTransportBelt(b.Name, b.Speed)); err != nil {
			return err
		}
	}
	for _, in := range f.Inserters {
		if err := reg.Register(NewInserter(in.Name, in.RotationSpeed, in.TileReach)); err != nil {
			return err
		}
	}
	for _, d := range f.MiningDrills {
		drill := NewMiningDrill(d.Name, d.Width, d.Height, d.MiningRadius)
		if d.MiningSpeed > 0 {
			drill.MiningSpeed = d.MiningSpeed
		}
		for name, off := range d.ResourceOutput {
			o, err := vec.ParseOrientation(name)
			if err != nil {
				return fmt.Errorf("бур %s: %w", d.Name, err)
			}
			drill.ResourceOutput[o] = vec.Vec2{X: off[0], Y: off[1]}
		}
		if err := reg.Register(drill); err != nil {
			return err
		}
	}
	return nil
}
