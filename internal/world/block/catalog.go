package block

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/annel0/sandworld/internal/world"
)

// Catalog описание набора типов в YAML
type Catalog struct {
	// IncludeStandard добавляет стандартные типы перед типами каталога
	IncludeStandard bool      `yaml:"include_standard"`
	Types           []TypeDef `yaml:"types"`
}

// TypeDef описание одного типа
type TypeDef struct {
	Name        string             `yaml:"name"`
	Color       string             `yaml:"color"`
	Emission    string             `yaml:"emission"`
	Opacity     []float32          `yaml:"opacity"`
	Density     int                `yaml:"density"`
	Tags        []string           `yaml:"tags"`
	Numbers     map[string]float64 `yaml:"numbers"`
	Behavior    string             `yaml:"behavior"`
	FlowChance  float64            `yaml:"flow_chance"`
	Transitions []Transition       `yaml:"transitions"`
}

// Transition случайный тик: превращение при соседстве с тегом
type Transition struct {
	WhenAdjacentTag string  `yaml:"when_adjacent_tag"`
	Become          string  `yaml:"become"`
	Chance          float64 `yaml:"chance"`
	Diagonal        bool    `yaml:"diagonal"` // учитывать и диагональных соседей
}

// ParseCatalog разбирает каталог из YAML
func ParseCatalog(r io.Reader) (*Catalog, error) {
	var cat Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("разбор каталога: %w", err)
	}
	return &cat, nil
}

// LoadCatalog читает каталог из файла
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("открытие каталога %s: %w", path, err)
	}
	defer f.Close()
	return ParseCatalog(f)
}

// Build превращает каталог в типы блоков. Имена в transitions разрешаются
// позже, во время Init мира, поэтому могут ссылаться на любой тип каталога.
func (cat *Catalog) Build() ([]*world.BlockType, error) {
	var out []*world.BlockType
	if cat.IncludeStandard {
		out = append(out, Standard()...)
	}
	var errs []error
	for _, def := range cat.Types {
		bt, err := def.Build()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, bt)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Build создаёт тип блока по описанию
func (def TypeDef) Build() (*world.BlockType, error) {
	if def.Name == "" {
		return nil, errors.New("тип без имени")
	}
	bt := &world.BlockType{
		Name:    def.Name,
		Tags:    def.Tags,
		Numbers: def.Numbers,
	}
	var err error
	if def.Color != "" {
		if bt.Color, err = world.ParseHexColor(def.Color); err != nil {
			return nil, fmt.Errorf("тип %q: color: %w", def.Name, err)
		}
	}
	if def.Emission != "" {
		if bt.Emission, err = world.ParseHexColor(def.Emission); err != nil {
			return nil, fmt.Errorf("тип %q: emission: %w", def.Name, err)
		}
	}
	switch len(def.Opacity) {
	case 0:
	case 1:
		bt.Opacity = [3]float32{def.Opacity[0], def.Opacity[0], def.Opacity[0]}
	case 3:
		bt.Opacity = [3]float32{def.Opacity[0], def.Opacity[1], def.Opacity[2]}
	default:
		return nil, fmt.Errorf("тип %q: opacity должна содержать 1 или 3 значения", def.Name)
	}
	if def.Density > 0 {
		bt.Density = world.ConstDensity(def.Density)
	}

	name := def.Behavior
	if name == "" {
		name = "static"
	}
	factory, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("тип %q: %w", def.Name, unknownBehavior(name))
	}
	bt.TickGen = factory(def)

	if len(def.Transitions) > 0 {
		bt.RandomTickGen = transitionsGen(def.Transitions)
	}
	return bt, nil
}

func transitionsGen(defs []Transition) world.TickBehaviorGen {
	ts := make([]transition, 0, len(defs))
	for _, d := range defs {
		chance := d.Chance
		if chance <= 0 {
			chance = 1
		}
		ts = append(ts, transition{tag: d.WhenAdjacentTag, become: d.Become, chance: chance, diagonal: d.Diagonal})
	}
	return firstTransition(ts...)
}
