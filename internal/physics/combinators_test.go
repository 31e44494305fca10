package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/sandworld/internal/world"
)

func TestCrumble_SlidesDiagonally(t *testing.T) {
	w := newWorld(t, world.Options{Seed: 11}, Crumble(nil))
	c := load(t, w, 0, 0)
	for x := 0; x < c.Size(); x++ {
		place(w, c, x, 0, "floor")
	}
	// mover стоит на другом mover, вниз пути нет, обе диагонали свободны
	place(w, c, 8, 1, "mover")
	top := place(w, c, 8, 2, "mover")
	w.QueueBlock(c, top)

	tick(t, w, 1)
	mover := w.TypeIndexOr("mover")
	left, right := c.TypeAt(c.Index(7, 1)), c.TypeAt(c.Index(9, 1))
	assert.True(t, left == mover || right == mover, "Ячейка должна осыпаться по диагонали")
	assert.NotEqual(t, left, right, "Осыпание только в одну сторону")
	assert.Equal(t, w.TypeIndexOr("air"), c.TypeAt(top))
}

func TestCascade_TriesBothDiagonals(t *testing.T) {
	for seed := int64(0); seed < 8; seed++ {
		w := newWorld(t, world.Options{Seed: seed}, Cascade(nil))
		c := load(t, w, 0, 0)
		for x := 0; x < c.Size(); x++ {
			place(w, c, x, 0, "floor")
		}
		place(w, c, 8, 1, "mover")
		place(w, c, 7, 1, "floor") // левая диагональ закрыта
		top := place(w, c, 8, 2, "mover")
		w.QueueBlock(c, top)

		tick(t, w, 1)
		assert.Equal(t, w.TypeIndexOr("mover"), c.TypeAt(c.Index(9, 1)), "seed=%d: ожидался сдвиг вправо-вниз", seed)
	}
}

func TestFlow_SpreadsAndRequeues(t *testing.T) {
	w := newWorld(t, world.Options{Seed: 5}, Flow(1, nil))
	c := load(t, w, 0, 0)
	for x := 0; x < c.Size(); x++ {
		place(w, c, x, 0, "floor")
		place(w, c, x, 1, "floor")
	}
	src := place(w, c, 8, 2, "mover")
	w.QueueBlock(c, src)

	tick(t, w, 1)
	mover := w.TypeIndexOr("mover")
	moved := c.TypeAt(c.Index(7, 2)) == mover || c.TypeAt(c.Index(9, 2)) == mover
	assert.True(t, moved, "При moveChance=1 жидкость сдвигается по горизонтали")

	// жидкость, которой некуда течь, остаётся в очереди
	w2 := newWorld(t, world.Options{Seed: 5}, Flow(0, nil))
	c2 := load(t, w2, 0, 0)
	i := place(w2, c2, 3, 0, "mover")
	w2.QueueBlock(c2, i)
	for k := 0; k < 3; k++ {
		tick(t, w2, 1)
		assert.True(t, c2.PendingTick(), "Тик %d: ячейка должна переставляться в очередь", k)
	}
}
