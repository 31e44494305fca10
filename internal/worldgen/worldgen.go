// Package worldgen содержит генераторы содержимого новых чанков.
package worldgen

import (
	"fmt"
	"math"

	"github.com/annel0/sandworld/internal/util"
	"github.com/annel0/sandworld/internal/vec"
	"github.com/annel0/sandworld/internal/world"
	"github.com/annel0/sandworld/internal/world/block"
)

// resolve находит индексы типов по именам
func resolve(w *world.World, names ...string) ([]uint16, error) {
	out := make([]uint16, len(names))
	for k, name := range names {
		idx, ok := w.TypeIndex(name)
		if !ok {
			return nil, fmt.Errorf("генератор: неизвестный тип %q", name)
		}
		out[k] = idx
	}
	return out, nil
}

// Fill заполняет чанк одним типом
type Fill struct {
	Type string
	idx  uint16
}

// NewFill создаёт генератор, заполняющий чанк типом name
func NewFill(name string) *Fill {
	return &Fill{Type: name}
}

func (g *Fill) Init(w *world.World) error {
	idx, err := resolve(w, g.Type)
	if err != nil {
		return err
	}
	g.idx = idx[0]
	return nil
}

func (g *Fill) Generate(_ *world.World, _ vec.Vec2, c *world.Chunk) {
	c.Fill(g.idx)
}

// Checker заполняет каждый чанк одним из четырёх типов по шахматному
// узору из координат чанка
type Checker struct {
	Stone, Water, Air, Gravel string

	stone, water, air, gravel uint16
}

// NewChecker создаёт шахматный генератор на стандартных типах
func NewChecker() *Checker {
	return &Checker{Stone: block.Stone, Water: block.Water, Air: block.Air, Gravel: block.Gravel}
}

func (g *Checker) Init(w *world.World) error {
	idx, err := resolve(w, g.Stone, g.Water, g.Air, g.Gravel)
	if err != nil {
		return err
	}
	g.stone, g.water, g.air, g.gravel = idx[0], idx[1], idx[2], idx[3]
	return nil
}

func (g *Checker) Generate(_ *world.World, coord vec.Vec2, c *world.Chunk) {
	c.Fill(g.TypeFor(coord))
}

// TypeFor возвращает тип, которым заполняется чанк coord
func (g *Checker) TypeFor(coord vec.Vec2) uint16 {
	x, y := coord.X, coord.Y
	if (x&1)^(y&1) != 0 {
		if (y&2)^(x&2) != 0 {
			return g.stone
		}
		return g.water
	}
	if (y&5)^(x&3) != 0 {
		return g.air
	}
	return g.gravel
}

// Terrain строит профиль местности по одномерному шуму Перлина: над линией
// высоты воздух (или вода ниже уровня моря), под ней корка и камень.
type Terrain struct {
	Seed       int64
	NoiseScale float64 // Масштаб шума по горизонтали
	BaseHeight int     // Средняя высота поверхности
	Amplitude  int     // Разброс высоты
	SeaLevel   int     // Ниже этой высоты пустоты заливаются водой
	CrustDepth int     // Толщина верхнего слоя

	Air, Water, Dirt, Sand, Stone string

	noise                         *util.Noise
	air, water, dirt, sand, stone uint16
}

// NewTerrain создаёт генератор местности с параметрами по умолчанию
func NewTerrain(seed int64) *Terrain {
	return &Terrain{
		Seed:       seed,
		NoiseScale: 0.02,
		BaseHeight: 0,
		Amplitude:  48,
		SeaLevel:   -8,
		CrustDepth: 4,
		Air:        block.Air,
		Water:      block.Water,
		Dirt:       block.Dirt,
		Sand:       block.Sand,
		Stone:      block.Stone,
	}
}

func (g *Terrain) Init(w *world.World) error {
	idx, err := resolve(w, g.Air, g.Water, g.Dirt, g.Sand, g.Stone)
	if err != nil {
		return err
	}
	g.air, g.water, g.dirt, g.sand, g.stone = idx[0], idx[1], idx[2], idx[3], idx[4]
	g.noise = util.NewNoise(g.Seed)
	return nil
}

// Height возвращает высоту поверхности в глобальном столбце x
func (g *Terrain) Height(x int) int {
	v := g.noise.Noise1D(float64(x) * g.NoiseScale)
	return g.BaseHeight + int(math.Round((v-0.5)*2*float64(g.Amplitude)))
}

// TypeAt возвращает тип глобальной ячейки (x, y) при высоте столбца h
func (g *Terrain) TypeAt(y, h int) uint16 {
	switch {
	case y > h:
		if y <= g.SeaLevel {
			return g.water
		}
		return g.air
	case y > h-g.CrustDepth:
		// берег и дно водоёмов песчаные
		if h <= g.SeaLevel+1 {
			return g.sand
		}
		return g.dirt
	default:
		return g.stone
	}
}

func (g *Terrain) Generate(_ *world.World, coord vec.Vec2, c *world.Chunk) {
	size := c.Size()
	baseX, baseY := coord.X*size, coord.Y*size
	for x := 0; x < size; x++ {
		h := g.Height(baseX + x)
		for y := 0; y < size; y++ {
			c.SetCurrentType(c.Index(x, y), g.TypeAt(baseY+y, h))
		}
	}
}

// New возвращает генератор по имени из конфигурации: fill:<тип>, checker, terrain
func New(name string, seed int64) (world.Generator, error) {
	switch {
	case name == "" || name == "terrain":
		return NewTerrain(seed), nil
	case name == "checker":
		return NewChecker(), nil
	case len(name) > 5 && name[:5] == "fill:":
		return NewFill(name[5:]), nil
	default:
		return nil, fmt.Errorf("неизвестный генератор %q", name)
	}
}

var (
	_ world.Generator = (*Fill)(nil)
	_ world.Generator = (*Checker)(nil)
	_ world.Generator = (*Terrain)(nil)
)
