package physics

import (
	"github.com/annel0/sandworld/internal/vec"
	"github.com/annel0/sandworld/internal/world"
)

// Fall падение на одну ячейку вниз
func Fall(fallback world.TickBehavior) world.TickBehavior {
	return Displace1(vec.OffDown, fallback)
}

// Crumble падает вниз, иначе осыпается по случайно выбранной диагонали
func Crumble(fallback world.TickBehavior) world.TickBehavior {
	left := Displace2(vec.OffLeft, vec.OffDownLeft, fallback)
	right := Displace2(vec.OffRight, vec.OffDownRight, fallback)
	return Fall(func(w *world.World, c *world.Chunk, i int) {
		if w.RandomFloat() > 0.5 {
			left(w, c, i)
		} else {
			right(w, c, i)
		}
	})
}

// Cascade как Crumble, но перед отказом пробует обе диагонали
func Cascade(fallback world.TickBehavior) world.TickBehavior {
	leftFirst := Displace2(vec.OffLeft, vec.OffDownLeft, Displace2(vec.OffRight, vec.OffDownRight, fallback))
	rightFirst := Displace2(vec.OffRight, vec.OffDownRight, Displace2(vec.OffLeft, vec.OffDownLeft, fallback))
	return Fall(func(w *world.World, c *world.Chunk, i int) {
		if w.RandomFloat() > 0.5 {
			leftFirst(w, c, i)
		} else {
			rightFirst(w, c, i)
		}
	})
}

// Flow как Cascade, затем с вероятностью moveChance сдвиг по горизонтали
// (случайная сторона первой). Иначе ячейка снова ставится в очередь, чтобы
// жидкость в покое продолжала проверять окружение.
func Flow(moveChance float64, fallback world.TickBehavior) world.TickBehavior {
	leftFirst := Displace1(vec.OffLeft, Displace1(vec.OffRight, fallback))
	rightFirst := Displace1(vec.OffRight, Displace1(vec.OffLeft, fallback))
	return Cascade(func(w *world.World, c *world.Chunk, i int) {
		if w.RandomFloat() > moveChance {
			w.QueueBlock(c, i)
			return
		}
		if w.RandomFloat() > 0.5 {
			leftFirst(w, c, i)
		} else {
			rightFirst(w, c, i)
		}
	})
}
