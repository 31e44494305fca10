package physics

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/sandworld/internal/vec"
	"github.com/annel0/sandworld/internal/world"
)

type fillGen struct{ idx uint16 }

func (g *fillGen) Init(w *world.World) error {
	g.idx = w.TypeIndexOr("air")
	return nil
}

func (g *fillGen) Generate(_ *world.World, _ vec.Vec2, c *world.Chunk) { c.Fill(g.idx) }

// newWorld мир 16x16 с типами разной плотности; behavior назначается "mover"
func newWorld(t *testing.T, opts world.Options, behavior world.TickBehavior) *world.World {
	t.Helper()
	opts.ChunkBitShift = 4
	opts.Generator = &fillGen{}
	w := world.New(opts)
	require.NoError(t, w.RegisterBlockTypes(
		&world.BlockType{Name: "air", Density: world.ConstDensity(10)},
		&world.BlockType{Name: "water", Density: world.ConstDensity(100)},
		&world.BlockType{Name: "floor", Density: world.ConstDensity(200)},
		&world.BlockType{Name: "mover", Density: world.ConstDensity(150),
			TickGen: func(*world.World) world.TickBehavior { return behavior }},
	))
	require.NoError(t, w.Init())
	return w
}

func load(t *testing.T, w *world.World, x, y int) *world.Chunk {
	t.Helper()
	c, err := w.RequestChunkLoad(x, y)
	require.NoError(t, err)
	return c
}

func place(w *world.World, c *world.Chunk, x, y int, name string) int {
	i := c.Index(x, y)
	c.SetCurrentType(i, w.TypeIndexOr(name))
	return i
}

func tick(t *testing.T, w *world.World, n int) {
	t.Helper()
	for k := 0; k < n; k++ {
		_, err := w.PerformGlobalTick()
		require.NoError(t, err)
	}
}

func cellsOf(c *world.Chunk, idx ...int) []world.Cell {
	out := make([]world.Cell, len(idx))
	for k, i := range idx {
		out[k] = c.Cell(i)
	}
	return out
}

func sorted(cs []world.Cell) []world.Cell {
	out := append([]world.Cell(nil), cs...)
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

func TestDisplaceN_RotatesChain(t *testing.T) {
	// цепочка: вправо, вправо-вниз, вниз
	offsets := []vec.Vec2{{X: 1, Y: 0}, {X: 1, Y: -1}, {X: 0, Y: -1}}
	w := newWorld(t, world.Options{}, DisplaceN(offsets, nil))
	c := load(t, w, 0, 0)

	src := place(w, c, 5, 5, "mover")
	t1 := place(w, c, 6, 5, "water")
	t2 := place(w, c, 6, 4, "air")
	t3 := place(w, c, 5, 4, "water")
	chain := []int{src, t1, t2, t3}
	before := cellsOf(c, chain...)
	w.QueueBlock(c, src)

	tick(t, w, 1)
	after := cellsOf(c, chain...)

	assert.Equal(t, sorted(before), sorted(after), "Мультимножество записей цепочки сохраняется")
	assert.Equal(t, before[0], after[3], "Ячейка оказывается в последней цели")
	assert.Equal(t, before[1], after[0], "Источник получает запись первой цели")
	assert.Equal(t, before[2], after[1])
	assert.Equal(t, before[3], after[2])
}

func TestDisplaceN_AllOrNothing(t *testing.T) {
	offsets := []vec.Vec2{{X: 1, Y: 0}, {X: 2, Y: 0}}
	var fallbackCalls int
	fb := func(*world.World, *world.Chunk, int) { fallbackCalls++ }
	w := newWorld(t, world.Options{}, DisplaceN(offsets, fb))
	c := load(t, w, 0, 0)

	src := place(w, c, 3, 3, "mover")
	place(w, c, 4, 3, "air")
	place(w, c, 5, 3, "floor") // вторая цель плотнее
	before := c.CopyCells()
	w.QueueBlock(c, src)

	tick(t, w, 1)
	assert.Equal(t, 1, fallbackCalls)
	assert.Equal(t, before, c.CopyCells(), "Частичный сдвиг недопустим")
}

func TestFall_DensityOrdering(t *testing.T) {
	w := newWorld(t, world.Options{}, Fall(nil))
	c := load(t, w, 0, 0)

	onFloor := place(w, c, 2, 8, "mover")
	place(w, c, 2, 7, "floor")
	onAir := place(w, c, 9, 8, "mover")
	w.QueueBlock(c, onFloor)
	w.QueueBlock(c, onAir)

	tick(t, w, 1)
	assert.Equal(t, w.TypeIndexOr("mover"), c.TypeAt(onFloor), "150 над 200 не меняются местами")
	assert.Equal(t, w.TypeIndexOr("mover"), c.TypeAt(c.Index(9, 7)), "150 над 10 падает")
	assert.Equal(t, w.TypeIndexOr("air"), c.TypeAt(onAir))
}

func TestFall_EqualDensityDoesNotSwap(t *testing.T) {
	w := newWorld(t, world.Options{}, Fall(nil))
	c := load(t, w, 0, 0)
	top := place(w, c, 4, 4, "mover")
	place(w, c, 4, 3, "mover")
	before := c.CopyCells()
	w.QueueBlock(c, top)

	tick(t, w, 1)
	assert.Equal(t, before, c.CopyCells())
}

func TestFall_ColumnScenario(t *testing.T) {
	w := newWorld(t, world.Options{RandomTicksPerChunk: 64}, Fall(nil))
	c := load(t, w, 0, 0)
	for x := 0; x < c.Size(); x++ {
		for y := 0; y < c.Size(); y++ {
			place(w, c, x, y, "floor")
		}
	}
	for y := 1; y <= 5; y++ {
		place(w, c, 7, y, "air")
	}
	src := place(w, c, 7, 6, "mover")
	w.QueueBlock(c, src)

	tick(t, w, 5)
	assert.Equal(t, w.TypeIndexOr("mover"), c.TypeAt(c.Index(7, 1)), "Ячейка должна дойти до дна столба")
	for y := 2; y <= 6; y++ {
		assert.Equal(t, w.TypeIndexOr("air"), c.TypeAt(c.Index(7, y)), "y=%d", y)
	}
}

func TestDisplace_LockedTargetRunsFallback(t *testing.T) {
	var fallback int
	w := newWorld(t, world.Options{}, Fall(func(*world.World, *world.Chunk, int) { fallback++ }))
	c := load(t, w, 0, 0)
	src := place(w, c, 3, 5, "mover")
	below := c.Index(3, 4)
	w.QueueBlock(c, src)
	// правка применяется раньше поведений и блокирует ячейку под mover
	w.PushClientBlockChangeRequest(c, below, w.TypeIndexOr("air"))

	tick(t, w, 1)
	assert.Equal(t, 1, fallback, "Заблокированная цель должна приводить к fallback")
	assert.Equal(t, w.TypeIndexOr("mover"), c.TypeAt(src))

	tick(t, w, 1)
	assert.Equal(t, w.TypeIndexOr("mover"), c.TypeAt(below), "В следующем тике ячейка уже свободна")
}

func TestFall_CrossChunkParallelMatchesSequential(t *testing.T) {
	run := func(parallelism int) ([]world.Cell, []world.Cell) {
		w := newWorld(t, world.Options{Parallelism: parallelism, Seed: 3}, Fall(nil))
		upper := load(t, w, 0, 1)
		lower := load(t, w, 0, 0)
		for x := 0; x < lower.Size(); x++ {
			place(w, lower, x, 0, "floor")
		}
		for x := 4; x < 12; x += 2 {
			w.QueueBlock(upper, place(w, upper, x, 1, "mover"))
			w.QueueBlock(lower, place(w, lower, x+1, 3, "mover"))
		}
		tick(t, w, 40)
		return upper.CopyCells(), lower.CopyCells()
	}

	u1, l1 := run(1)
	u4, l4 := run(4)
	assert.Equal(t, u1, u4, "Верхний чанк должен совпасть")
	assert.Equal(t, l1, l4, "Нижний чанк должен совпасть")
}
