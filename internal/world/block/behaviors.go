package block

import (
	"github.com/annel0/sandworld/internal/physics"
	"github.com/annel0/sandworld/internal/world"
)

// transition превращение в тип become, если рядом есть тег.
// diagonal расширяет соседство до 8 клеток.
type transition struct {
	tag      string
	become   string
	chance   float64
	diagonal bool
}

func (t transition) matches(w *world.World, c *world.Chunk, i int) bool {
	if t.diagonal {
		return physics.AnyNeighborHasTag(w, c, i, t.tag)
	}
	return physics.AnyAdjacentHasTag(w, c, i, t.tag)
}

// firstTransition применяет первое подходящее превращение из списка
func firstTransition(ts ...transition) world.TickBehaviorGen {
	return func(w *world.World) world.TickBehavior {
		targets := make([]uint16, len(ts))
		for k, t := range ts {
			targets[k] = w.TypeIndexOr(t.become)
		}
		return func(w *world.World, c *world.Chunk, i int) {
			for k, t := range ts {
				if !t.matches(w, c, i) {
					continue
				}
				if t.chance < 1 && !physics.Chance(w, t.chance) {
					return
				}
				w.TryMutateType(c, i, targets[k], false)
				return
			}
		}
	}
}

func becomeWhenAdjacent(tag, become string) world.TickBehaviorGen {
	return firstTransition(transition{tag: tag, become: become, chance: 1})
}

// chanceWhenAdjacent превращение с вероятностью p при соседстве с тегом
func chanceWhenAdjacent(tag string, p float64, become string) world.TickBehaviorGen {
	return firstTransition(transition{tag: tag, become: become, chance: p})
}

// dryOut высыхание рядом с горячим, иначе падение
func dryOut(become string) world.TickBehaviorGen {
	return func(w *world.World) world.TickBehavior {
		target := w.TypeIndexOr(become)
		fall := physics.Fall(nil)
		return func(w *world.World, c *world.Chunk, i int) {
			if physics.AnyAdjacentHasTag(w, c, i, "hot") {
				w.TryMutateType(c, i, target, false)
				return
			}
			fall(w, c, i)
		}
	}
}

func waterTick(w *world.World) world.TickBehavior {
	steam := w.TypeIndexOr(Steam)
	flow := physics.Flow(0.8, nil)
	return func(w *world.World, c *world.Chunk, i int) {
		if physics.AnyAdjacentHasTag(w, c, i, "boiler") {
			w.TryMutateType(c, i, steam, false)
			return
		}
		flow(w, c, i)
	}
}

func steamTick(w *world.World) world.TickBehavior {
	water := w.TypeIndexOr(Water)
	flow := physics.Flow(1, nil)
	return func(w *world.World, c *world.Chunk, i int) {
		if physics.AnyAdjacentHasTag(w, c, i, "cold") {
			w.TryMutateType(c, i, water, false)
			return
		}
		flow(w, c, i)
	}
}

// condense пар без сильного нагрева иногда конденсируется
func condense(w *world.World) world.TickBehavior {
	water := w.TypeIndexOr(Water)
	return func(w *world.World, c *world.Chunk, i int) {
		if !physics.AnyAdjacentHasTag(w, c, i, "boiler") && physics.Chance(w, 0.05) {
			w.TryMutateType(c, i, water, false)
		}
	}
}

func lavaTick(w *world.World) world.TickBehavior {
	stone := w.TypeIndexOr(Stone)
	flow := physics.Flow(0.02, nil)
	return func(w *world.World, c *world.Chunk, i int) {
		if physics.AnyAdjacentHasTag(w, c, i, "freezer") {
			w.TryMutateType(c, i, stone, false)
			return
		}
		if physics.Chance(w, 0.05) && physics.AnyAdjacentHasTag(w, c, i, "wet") {
			w.TryMutateType(c, i, stone, false)
			return
		}
		flow(w, c, i)
	}
}

// lavaCool лава, не окружённая плавящими блоками, иногда остывает
func lavaCool(w *world.World) world.TickBehavior {
	stone := w.TypeIndexOr(Stone)
	return func(w *world.World, c *world.Chunk, i int) {
		if !physics.Chance(w, 0.2) {
			return
		}
		all := true
		physics.ForEachAdjacent(c, i, func(n *world.Chunk, j int) {
			if !w.HasTag(n, j, "melter") {
				all = false
			}
		})
		if !all {
			w.TryMutateType(c, i, stone, false)
		}
	}
}

// acidTick растворяет соседей с вероятностью по их кислотостойкости
func acidTick(w *world.World) world.TickBehavior {
	air := w.TypeIndexOr(Air)
	flow := physics.Flow(0.8, nil)
	return func(w *world.World, c *world.Chunk, i int) {
		x, y := c.XY(i)
		dissolved := false
		c.ForEachNeighbor(x, y, func(n *world.Chunk, j int) {
			if dissolved {
				return
			}
			bt := w.TypeOf(n, j)
			if bt.HasTag("invincible") {
				return
			}
			res, ok := bt.Number(AcidResistance)
			if !ok {
				res = 0.3
			}
			if res >= 1 {
				return
			}
			if r := w.RandomFloat(); r*r > res {
				w.TrySetType(n, j, air, false)
			}
			if physics.Chance(w, 0.1) {
				w.TrySetType(c, i, air, false)
				dissolved = true
			}
		}, false)
		if !dissolved {
			flow(w, c, i)
		}
	}
}
