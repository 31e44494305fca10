// Package physics содержит обобщённые алгоритмы вытеснения по плотности,
// из которых собираются поведения конкретных типов блоков.
package physics

import (
	"github.com/annel0/sandworld/internal/vec"
	"github.com/annel0/sandworld/internal/world"
)

// canEnter проверяет цель хопа: чанк загружен, ячейка не заблокирована,
// плотность строго меньше плотности источника
func canEnter(w *world.World, c *world.Chunk, i, dx, dy, selfDensity int) (world.Ref, bool) {
	n, j, ok := c.NearIndexI(i, dx, dy)
	if !ok || n.Locked(j) || w.DensityOf(n, j) >= selfDensity {
		return world.Ref{}, false
	}
	return world.Ref{Chunk: n, Index: j}, true
}

func runFallback(fallback world.TickBehavior, w *world.World, c *world.Chunk, i int) {
	if fallback != nil {
		fallback(w, c, i)
	}
}

// DisplaceN пытается провести ячейку через цепочку смещений (каждое относительно
// исходной ячейки). Либо вся цепочка сдвигается, либо выполняется fallback.
//
// При успехе ячейка оказывается в последней цели, а каждая цель сдвигается
// на один хоп назад: источник получает старую запись первой цели и т.д.
func DisplaceN(offsets []vec.Vec2, fallback world.TickBehavior) world.TickBehavior {
	return func(w *world.World, c *world.Chunk, i int) {
		selfDensity := w.DensityOf(c, i)
		chain := make([]world.Ref, 0, len(offsets)+1)
		chain = append(chain, world.Ref{Chunk: c, Index: i})

		for _, off := range offsets {
			target, ok := canEnter(w, c, i, off.X, off.Y, selfDensity)
			if !ok {
				runFallback(fallback, w, c, i)
				return
			}
			chain = append(chain, target)
		}

		if !w.Claim(chain...) {
			runFallback(fallback, w, c, i)
			return
		}

		// все чтения идут из current, поэтому порядок записей не важен
		for k := 0; k < len(chain)-1; k++ {
			w.SetBlockData(chain[k].Chunk, chain[k].Index, chain[k+1].Cell())
		}
		last := chain[len(chain)-1]
		w.SetBlockData(last.Chunk, last.Index, c.Cell(i))
	}
}

// Displace1 частный случай DisplaceN для одного хопа (обмен)
func Displace1(offset vec.Vec2, fallback world.TickBehavior) world.TickBehavior {
	return func(w *world.World, c *world.Chunk, i int) {
		target, ok := canEnter(w, c, i, offset.X, offset.Y, w.DensityOf(c, i))
		if !ok {
			runFallback(fallback, w, c, i)
			return
		}
		self := world.Ref{Chunk: c, Index: i}
		if !w.Claim(self, target) {
			runFallback(fallback, w, c, i)
			return
		}

		w.SetBlockData(target.Chunk, target.Index, self.Cell())
		w.SetBlockData(c, i, target.Cell())
	}
}

// Displace2 частный случай DisplaceN для двух хопов
func Displace2(offset1, offset2 vec.Vec2, fallback world.TickBehavior) world.TickBehavior {
	return func(w *world.World, c *world.Chunk, i int) {
		selfDensity := w.DensityOf(c, i)
		t1, ok := canEnter(w, c, i, offset1.X, offset1.Y, selfDensity)
		if !ok {
			runFallback(fallback, w, c, i)
			return
		}
		t2, ok := canEnter(w, c, i, offset2.X, offset2.Y, selfDensity)
		if !ok {
			runFallback(fallback, w, c, i)
			return
		}
		self := world.Ref{Chunk: c, Index: i}
		if !w.Claim(self, t1, t2) {
			runFallback(fallback, w, c, i)
			return
		}

		w.SetBlockData(t2.Chunk, t2.Index, self.Cell())
		w.SetBlockData(t1.Chunk, t1.Index, t2.Cell())
		w.SetBlockData(c, i, t1.Cell())
	}
}
