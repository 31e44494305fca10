package block

import (
	"github.com/annel0/sandworld/internal/physics"
	"github.com/annel0/sandworld/internal/world"
)

// Имена стандартных типов
const (
	Air       = "Air"
	Stone     = "Stone"
	Barrier   = "Barrier"
	Sand      = "Sand"
	Gravel    = "Gravel"
	Dirt      = "Dirt"
	Mud       = "Mud"
	WetSand   = "Wet Sand"
	Glass     = "Glass"
	Lamp      = "Lamp"
	Hotstone  = "Hotstone"
	Coldstone = "Coldstone"
	Water     = "Water"
	Steam     = "Steam"
	Lava      = "Lava"
	Acid      = "Acid"
)

// AcidResistance числовое свойство: 1 означает полную стойкость
const AcidResistance = "acid-resistance"

var clear99 = [3]float32{0.99, 0.99, 0.99}

// Standard возвращает новый набор стандартных типов. Каждый вызов создаёт
// свежие экземпляры: тип можно зарегистрировать только в одном мире.
func Standard() []*world.BlockType {
	return []*world.BlockType{
		{
			Name:    Air,
			Color:   world.MustHex("#eeeeee"),
			Density: world.ConstDensity(10),
			Opacity: clear99,
			Tags:    []string{"replaceable", "breathable", "fluid", "gas"},
			Numbers: map[string]float64{AcidResistance: 1},
			TickGen: func(*world.World) world.TickBehavior { return physics.Flow(1, nil) },
		},
		{
			Name:          Stone,
			Color:         world.MustHex("#787878"),
			Density:       world.ConstDensity(200),
			Tags:          []string{"solid", "stable", "unbreathable", "earth", "stone-based", "meltable"},
			Numbers:       map[string]float64{AcidResistance: 0.9},
			RandomTickGen: becomeWhenAdjacent("melter", Lava),
		},
		{
			Name:    Barrier,
			Color:   world.MustHex("#e55"),
			Density: world.ConstDensity(250),
			Tags:    []string{"solid", "stable", "unbreathable", "invincible"},
			Numbers: map[string]float64{AcidResistance: 1},
		},
		{
			Name:    Sand,
			Color:   world.MustHex("#f0d422"),
			Density: world.ConstDensity(150),
			Tags:    []string{"solid", "unstable", "unbreathable", "falling", "cascading", "sandy", "earth", "meltable"},
			Numbers: map[string]float64{AcidResistance: 0.6},
			TickGen: func(*world.World) world.TickBehavior { return physics.Cascade(nil) },
			RandomTickGen: firstTransition(
				transition{tag: "melter", become: Glass, chance: 1},
				transition{tag: "hydrating", become: WetSand, chance: 1},
			),
		},
		{
			Name:          Gravel,
			Color:         world.MustHex("#5a5452"),
			Density:       world.ConstDensity(150),
			Tags:          []string{"solid", "unstable", "unbreathable", "falling", "crumbling", "stone-based", "earth", "meltable"},
			Numbers:       map[string]float64{AcidResistance: 0.8},
			TickGen:       func(*world.World) world.TickBehavior { return physics.Crumble(nil) },
			RandomTickGen: becomeWhenAdjacent("melter", Lava),
		},
		{
			Name:          Dirt,
			Color:         world.MustHex("#7E572E"),
			Density:       world.ConstDensity(150),
			Tags:          []string{"solid", "unstable", "unbreathable", "falling", "crumbling", "soil", "earth"},
			TickGen:       func(*world.World) world.TickBehavior { return physics.Crumble(nil) },
			RandomTickGen: becomeWhenAdjacent("hydrating", Mud),
		},
		{
			Name:    Mud,
			Color:   world.MustHex("#472f18"),
			Density: world.ConstDensity(150),
			Tags:    []string{"solid", "unstable", "unbreathable", "falling", "soil", "earth", "wet"},
			TickGen: dryOut(Dirt),
		},
		{
			Name:    WetSand,
			Color:   world.MustHex("#978157"),
			Density: world.ConstDensity(150),
			Tags:    []string{"solid", "unstable", "unbreathable", "falling", "sandy", "earth", "wet"},
			Numbers: map[string]float64{AcidResistance: 0.5},
			TickGen: dryOut(Sand),
		},
		{
			Name:    Glass,
			Color:   world.MustHex("#e9f3f5"),
			Density: world.ConstDensity(200),
			Opacity: clear99,
			Tags:    []string{"solid", "stable", "unbreathable"},
			Numbers: map[string]float64{AcidResistance: 1},
		},
		{
			Name:     Lamp,
			Color:    world.MustHex("#ffffdf"),
			Density:  world.ConstDensity(200),
			Opacity:  clear99,
			Emission: world.MustHex("#eeeeee"),
			Tags:     []string{"solid", "stable", "unbreathable"},
			Numbers:  map[string]float64{AcidResistance: 1},
		},
		{
			Name:     Hotstone,
			Color:    world.MustHex("#8a4b45"),
			Density:  world.ConstDensity(200),
			Emission: world.MustHex("#ff6020"),
			Tags:     []string{"solid", "stable", "unbreathable", "hot", "boiler", "melter"},
			Numbers:  map[string]float64{AcidResistance: 0.8},
		},
		{
			Name:     Coldstone,
			Color:    world.MustHex("#456d8a"),
			Density:  world.ConstDensity(200),
			Emission: world.MustHex("#2080ff"),
			Tags:     []string{"solid", "stable", "unbreathable", "cold", "freezer"},
			Numbers:  map[string]float64{AcidResistance: 0.8},
		},
		{
			Name:          Water,
			Color:         world.MustHex("#408cff"),
			Density:       world.ConstDensity(100),
			Opacity:       [3]float32{0.9, 0.96, 0.99},
			Tags:          []string{"fluid", "liquid", "unbreathable", "falling", "unstable", "wet", "hydrating", "boilable"},
			TickGen:       waterTick,
			RandomTickGen: chanceWhenAdjacent("hot", 0.05, Steam),
		},
		{
			Name:          Steam,
			Color:         world.MustHex("#e3e3e3"),
			Density:       world.ConstDensity(5),
			Tags:          []string{"fluid", "gas", "unbreathable", "rising", "unstable", "wet", "hot"},
			TickGen:       steamTick,
			RandomTickGen: condense,
		},
		{
			Name:          Lava,
			Color:         world.MustHex("#ff3500"),
			Emission:      world.MustHex("#ffd0a3"),
			Density:       world.ConstDensity(150),
			Tags:          []string{"fluid", "liquid", "unbreathable", "falling", "unstable", "stone-based", "hot", "boiler", "melter"},
			Numbers:       map[string]float64{AcidResistance: 0.9},
			TickGen:       lavaTick,
			RandomTickGen: lavaCool,
		},
		{
			Name:          Acid,
			Color:         world.MustHex("#26d15f"),
			Emission:      world.MustHex("#60ff20"),
			Density:       world.ConstDensity(120),
			Tags:          []string{"fluid", "unbreathable", "liquid", "falling", "unstable"},
			Numbers:       map[string]float64{AcidResistance: 1},
			TickGen:       acidTick,
			RandomTickGen: func(*world.World) world.TickBehavior { return (*world.World).QueueBlock },
		},
	}
}
