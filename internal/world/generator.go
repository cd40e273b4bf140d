package world

import (
	"fmt"

	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world/proto"
	"github.com/aquilax/go-perlin"
)

// Пороги высоты для генерации
const (
	DeepWaterMax    = 0.20 // Ниже - глубокая вода
	ShallowWaterMax = 0.30 // Ниже - мелководье
	SandMax         = 0.35 // Ниже - песчаный берег
)

// GeneratorTiles - имена прототипов, которыми генератор заполняет мир
type GeneratorTiles struct {
	DeepWater string
	Water     string
	Sand      string
	Grass     string
	Resources []string // залежи, перебираются по значению шума ресурсов
}

// DefaultGeneratorTiles соответствует data/prototypes.yaml
func DefaultGeneratorTiles() GeneratorTiles {
	return GeneratorTiles{
		DeepWater: "deep-water",
		Water:     "water",
		Sand:      "sand",
		Grass:     "grass",
		Resources: []string{"iron-ore", "copper-ore", "coal", "stone"},
	}
}

// Generator заполняет чанки базовыми тайлами и залежами по шуму Перлина
type Generator struct {
	Seed           int64
	NoiseScale     float64 // Масштаб шума высоты
	ResourceScale  float64 // Масштаб шума ресурсов
	ResourceCutoff float64 // Залежь появляется при значении шума выше порога

	height   *perlin.Perlin
	resource *perlin.Perlin

	deepWater, water, sand, grass *proto.Tile
	resources                     []*proto.Resource
}

// NewGenerator создаёт генератор. Все прототипы тайлов должны быть в реестре.
func NewGenerator(seed int64, reg *proto.Registry, tiles GeneratorTiles) (*Generator, error) {
	g := &Generator{
		Seed:           seed,
		NoiseScale:     0.05,
		ResourceScale:  0.08,
		ResourceCutoff: 0.72,
		height:         perlin.NewPerlin(2.0, 2.0, 3, seed),
		resource:       perlin.NewPerlin(2.0, 2.0, 2, seed+1),
	}

	var err error
	if g.deepWater, err = lookupTile(reg, tiles.DeepWater); err != nil {
		return nil, err
	}
	if g.water, err = lookupTile(reg, tiles.Water); err != nil {
		return nil, err
	}
	if g.sand, err = lookupTile(reg, tiles.Sand); err != nil {
		return nil, err
	}
	if g.grass, err = lookupTile(reg, tiles.Grass); err != nil {
		return nil, err
	}
	for _, name := range tiles.Resources {
		p, err := reg.Lookup(proto.CategoryResource, name)
		if err != nil {
			return nil, fmt.Errorf("генератор: %w", err)
		}
		g.resources = append(g.resources, p.(*proto.Resource))
	}
	return g, nil
}

func lookupTile(reg *proto.Registry, name string) (*proto.Tile, error) {
	p, err := reg.Lookup(proto.CategoryTile, name)
	if err != nil {
		return nil, fmt.Errorf("генератор: %w", err)
	}
	return p.(*proto.Tile), nil
}

// noise01 переводит значение шума из [-1, 1] в [0, 1]
func noise01(p *perlin.Perlin, x, y float64) float64 {
	return (p.Noise2D(x, y) + 1.0) / 2.0
}

// GenerateChunk заполняет чанк c мира. Уже существующий чанк не перегенерируется.
func (g *Generator) GenerateChunk(w *World, c vec.Vec2) *Chunk {
	if chunk := w.GetChunk(c); chunk != nil {
		return chunk
	}
	chunk := w.EmplaceChunk(c)
	origin := c.ChunkOrigin()

	for y := 0; y < vec.ChunkWidth; y++ {
		for x := 0; x < vec.ChunkWidth; x++ {
			globalX := float64(origin.X + x)
			globalY := float64(origin.Y + y)

			h := noise01(g.height, globalX*g.NoiseScale, globalY*g.NoiseScale)
			tile := chunk.GetTile(vec.Vec2{X: x, Y: y})
			base := g.baseFor(h)
			tile.Layer(LayerBase).SetPrototype(base)

			if base.IsWater || len(g.resources) == 0 {
				continue
			}

			r := noise01(g.resource, globalX*g.ResourceScale, globalY*g.ResourceScale)
			if r < g.ResourceCutoff {
				continue
			}
			res := g.resourceAt(globalX, globalY)
			layer := tile.Layer(LayerResource)
			layer.SetPrototype(res)
			layer.SetUniqueData(res.NewUniqueData(vec.Up))
		}
	}
	return chunk
}

// GenerateArea генерирует квадрат чанков радиуса radius вокруг center
func (g *Generator) GenerateArea(w *World, center vec.Vec2, radius int) int {
	generated := 0
	for y := center.Y - radius; y <= center.Y+radius; y++ {
		for x := center.X - radius; x <= center.X+radius; x++ {
			c := vec.Vec2{X: x, Y: y}
			if w.GetChunk(c) != nil {
				continue
			}
			g.GenerateChunk(w, c)
			generated++
		}
	}
	return generated
}

// resourceAt выбирает вид залежи по крупномасштабному шуму, чтобы соседние
// тайлы одного пятна получали одинаковый ресурс
func (g *Generator) resourceAt(x, y float64) *proto.Resource {
	scale := g.ResourceScale / 4
	v := noise01(g.resource, x*scale+1000, y*scale+1000)
	idx := int(v * float64(len(g.resources)))
	if idx >= len(g.resources) {
		idx = len(g.resources) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return g.resources[idx]
}

func (g *Generator) baseFor(h float64) *proto.Tile {
	switch {
	case h < DeepWaterMax:
		return g.deepWater
	case h < ShallowWaterMax:
		return g.water
	case h < SandMax:
		return g.sand
	default:
		return g.grass
	}
}
