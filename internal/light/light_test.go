package light

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/sandworld/internal/vec"
	"github.com/annel0/sandworld/internal/world"
)

type darkGen struct{ idx uint16 }

func (g *darkGen) Init(w *world.World) error {
	g.idx = w.TypeIndexOr("clear")
	return nil
}

func (g *darkGen) Generate(_ *world.World, _ vec.Vec2, c *world.Chunk) { c.Fill(g.idx) }

func newLitWorld(t *testing.T) *world.World {
	t.Helper()
	w := world.New(world.Options{ChunkBitShift: 3, Generator: &darkGen{}})
	require.NoError(t, w.RegisterBlockTypes(
		&world.BlockType{Name: "clear", Opacity: [3]float32{0.5, 0.5, 0.5}},
		&world.BlockType{Name: "lamp", Emission: world.RGB{R: 200, G: 100, B: 40}},
		&world.BlockType{Name: "wall"},
	))
	require.NoError(t, w.Init())
	return w
}

func channels(v uint32) [3]uint32 {
	r, g, b := Unpack(v)
	return [3]uint32{r, g, b}
}

func TestPackRoundTrip(t *testing.T) {
	assert.Equal(t, [3]uint32{1, 2, 3}, channels(Pack(1, 2, 3)))
}

func TestLightFloorIsEmission(t *testing.T) {
	w := newLitWorld(t)
	c, err := w.RequestChunkLoad(0, 0)
	require.NoError(t, err)
	lamp := c.Index(4, 4)
	c.SetCurrentType(lamp, w.TypeIndexOr("lamp"))

	require.NoError(t, NewEngine(1, 1).Run(w, c))
	for i := 0; i < c.Len(); i++ {
		em := w.TypeOf(c, i).Emission
		got := channels(c.Light()[i])
		assert.GreaterOrEqual(t, got[0], uint32(em.R))
		assert.GreaterOrEqual(t, got[1], uint32(em.G))
		assert.GreaterOrEqual(t, got[2], uint32(em.B))
	}
	assert.Equal(t, [3]uint32{200, 100, 40}, channels(c.Light()[lamp]))
}

func TestLightTravelsOneCellPerPass(t *testing.T) {
	w := newLitWorld(t)
	c, err := w.RequestChunkLoad(0, 0)
	require.NoError(t, err)
	c.SetCurrentType(c.Index(4, 4), w.TypeIndexOr("lamp"))

	require.NoError(t, NewEngine(2, 1).Run(w, c))
	assert.Equal(t, [3]uint32{100, 50, 20}, channels(c.Light()[c.Index(5, 4)]), "Сосед получает ослабленный свет")
	assert.Equal(t, [3]uint32{0, 0, 0}, channels(c.Light()[c.Index(6, 4)]), "За два прохода свет проходит одну клетку")

	require.NoError(t, NewEngine(1, 1).Run(w, c))
	assert.Equal(t, [3]uint32{50, 25, 10}, channels(c.Light()[c.Index(6, 4)]))
}

func TestOpaqueBlocksLight(t *testing.T) {
	w := newLitWorld(t)
	c, err := w.RequestChunkLoad(0, 0)
	require.NoError(t, err)
	c.SetCurrentType(c.Index(1, 1), w.TypeIndexOr("lamp"))
	wall := c.Index(2, 1)
	c.SetCurrentType(wall, w.TypeIndexOr("wall"))

	require.NoError(t, NewEngine(4, 1).Run(w, c))
	assert.Zero(t, c.Light()[wall], "Непрозрачный блок не принимает свет")
}

func TestLightCrossesChunkEdge(t *testing.T) {
	w := newLitWorld(t)
	left, err := w.RequestChunkLoad(0, 0)
	require.NoError(t, err)
	right, err := w.RequestChunkLoad(1, 0)
	require.NoError(t, err)
	left.SetCurrentType(left.Index(left.Size()-1, 3), w.TypeIndexOr("lamp"))

	e := NewEngine(1, 1)
	require.NoError(t, e.Run(w, left))
	require.NoError(t, e.Run(w, right))
	assert.Equal(t, [3]uint32{100, 50, 20}, channels(right.Light()[right.Index(0, 3)]), "Свет соседнего чанка берётся из снимка края")
}

func TestParallelPassMatchesSequential(t *testing.T) {
	build := func(workers int) []uint32 {
		w := newLitWorld(t)
		c, err := w.RequestChunkLoad(0, 0)
		require.NoError(t, err)
		c.SetCurrentType(c.Index(2, 5), w.TypeIndexOr("lamp"))
		c.SetCurrentType(c.Index(6, 1), w.TypeIndexOr("lamp"))
		c.SetCurrentType(c.Index(4, 4), w.TypeIndexOr("wall"))
		require.NoError(t, NewEngine(6, workers).Run(w, c))
		return c.CopyLight()
	}
	assert.Equal(t, build(1), build(3))
}

func TestRunAllCountsFailures(t *testing.T) {
	w := newLitWorld(t)
	_, err := w.RequestChunkLoad(0, 0)
	require.NoError(t, err)
	c, err := w.RequestChunkLoad(0, 1)
	require.NoError(t, err)
	// тип вне реестра приводит к панике внутри прохода
	c.SetCurrentCell(0, world.MakeCell(500, 0))

	changed, failed := NewEngine(1, 1).RunAll(w)
	assert.Equal(t, 1, failed)
	assert.Empty(t, changed, "Упавший чанк не считается изменённым")
}

func TestRunAllReportsChangedChunks(t *testing.T) {
	w := newLitWorld(t)
	lit, err := w.RequestChunkLoad(0, 0)
	require.NoError(t, err)
	_, err = w.RequestChunkLoad(5, 5)
	require.NoError(t, err)
	lit.SetCurrentType(lit.Index(3, 3), w.TypeIndexOr("lamp"))

	e := NewEngine(16, 1)
	changed, failed := e.RunAll(w)
	assert.Zero(t, failed)
	assert.Equal(t, []*world.Chunk{lit}, changed, "Тёмный чанк не меняется")

	changed, _ = e.RunAll(w)
	assert.Empty(t, changed, "Сошедшийся свет не даёт изменений")
}
