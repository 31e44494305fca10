package app

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/sandworld/internal/light"
	"github.com/annel0/sandworld/internal/metrics"
	"github.com/annel0/sandworld/internal/vec"
	"github.com/annel0/sandworld/internal/world"
	"github.com/annel0/sandworld/internal/world/block"
	"github.com/annel0/sandworld/internal/worldgen"
)

func newRunner(t *testing.T, gen world.Generator, opts RunnerOptions) *Runner {
	t.Helper()
	return newRunnerWith(t, world.Options{Generator: gen}, opts)
}

func newRunnerWith(t *testing.T, wopts world.Options, opts RunnerOptions) *Runner {
	t.Helper()
	wopts.ChunkBitShift = 4
	wopts.Seed = 1
	w := world.New(wopts)
	require.NoError(t, w.RegisterBlockTypes(block.Standard()...))
	require.NoError(t, w.Init())
	return NewRunner(w, opts)
}

type snapshots struct {
	got []world.ChunkSnapshot
}

func (s *snapshots) SendChunkData(snap world.ChunkSnapshot) { s.got = append(s.got, snap) }

func (s *snapshots) last() world.ChunkSnapshot { return s.got[len(s.got)-1] }

// presetCache отдаёт заранее заданный снимок при загрузке
type presetCache struct {
	snap world.ChunkSnapshot
}

func (c *presetCache) Save(world.ChunkSnapshot) error { return nil }
func (c *presetCache) Load(coord vec.Vec2) (world.ChunkSnapshot, bool, error) {
	return c.snap, coord == c.snap.Coord, nil
}

func TestRunner_StepAndEdit(t *testing.T) {
	r := newRunner(t, worldgen.NewFill(block.Air), RunnerOptions{})
	ctx := context.Background()
	require.NoError(t, r.RequestChunkLoad(-1, 0))

	require.NoError(t, r.PushEdit(-3, 5, block.Stone))
	stats, err := r.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Tick)
	assert.Equal(t, 1, stats.Edits)

	snap, ok := r.Snapshot(-1, 0)
	require.True(t, ok)
	// глобальная x=-3 в чанке -1 размера 16 это локальная 13
	assert.Equal(t, block.Stone, r.BlockTypes()[snap.Cells[5*16+13].Type()].Name)
	assert.Equal(t, uint64(1), r.Stats().Last.Tick)
}

func TestRunner_PushEditErrors(t *testing.T) {
	r := newRunner(t, worldgen.NewFill(block.Air), RunnerOptions{})
	require.NoError(t, r.RequestChunkLoad(0, 0))

	assert.ErrorIs(t, r.PushEdit(1, 1, "Unobtainium"), ErrUnknownBlockType)
	assert.ErrorIs(t, r.PushEdit(100, 1, block.Sand), ErrChunkNotLoaded)
}

func TestRunner_SkipsWhenBusy(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewTickMetrics("test", reg)
	r := newRunner(t, worldgen.NewFill(block.Air), RunnerOptions{Metrics: m})

	r.busy.Store(true)
	_, err := r.Step(context.Background())
	assert.ErrorIs(t, err, ErrTickInProgress)
	r.busy.Store(false)

	_, err = r.Step(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), r.Stats().Skipped)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkippedTicks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ticks))
}

func TestRunner_LightOnLoadAndPeriodic(t *testing.T) {
	eng := light.NewEngine(2, 1)
	r := newRunner(t, worldgen.NewFill(block.Lamp), RunnerOptions{Light: eng, LightEveryTicks: 2})
	require.NoError(t, r.RequestChunkLoad(0, 0))

	snap, ok := r.Snapshot(0, 0)
	require.True(t, ok)
	assert.Equal(t, light.Pack(0xee, 0xee, 0xee), snap.Light[0], "Свет нового чанка рассчитывается при загрузке")

	for k := 0; k < 4; k++ {
		_, err := r.Step(context.Background())
		require.NoError(t, err)
	}
	assert.Zero(t, r.Stats().LightFailures)
}

func TestRunner_LoadPublishesLitChunk(t *testing.T) {
	rec := &snapshots{}
	r := newRunnerWith(t, world.Options{Generator: worldgen.NewFill(block.Lamp), Handler: rec},
		RunnerOptions{Light: light.NewEngine(2, 1)})
	require.NoError(t, r.RequestChunkLoad(0, 0))

	require.Len(t, rec.got, 1)
	assert.Equal(t, light.Pack(0xee, 0xee, 0xee), rec.got[0].Light[0], "Первый снимок уже содержит свет")
}

func TestRunner_PeriodicLightIsPublished(t *testing.T) {
	rec := &snapshots{}
	r := newRunnerWith(t, world.Options{Generator: worldgen.NewFill(block.Air), Handler: rec},
		RunnerOptions{Light: light.NewEngine(2, 1), LightEveryTicks: 1})
	require.NoError(t, r.RequestChunkLoad(0, 0))
	require.NoError(t, r.PushEdit(4, 4, block.Lamp))

	_, err := r.Step(context.Background())
	require.NoError(t, err)
	lamp := 4*16 + 4
	assert.Equal(t, light.Pack(0xee, 0xee, 0xee), rec.last().Light[lamp], "Пересчитанный свет должен дойти до обработчика")

	// чанк с сошедшимся светом и без очереди больше не публикуется
	for k := 0; k < 20; k++ {
		_, err = r.Step(context.Background())
		require.NoError(t, err)
	}
	published := len(rec.got)
	_, err = r.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, published, len(rec.got))
}

func TestRunner_RestoredChunkKeepsItsLight(t *testing.T) {
	size := 16 * 16
	snap := world.ChunkSnapshot{Coord: vec.Vec2{X: 2, Y: 0}, Shift: 4, Cells: make([]world.Cell, size), Light: make([]uint32, size)}
	snap.Light[7] = light.Pack(1, 2, 3)
	r := newRunnerWith(t, world.Options{Generator: worldgen.NewFill(block.Lamp), Cache: &presetCache{snap: snap}},
		RunnerOptions{Light: light.NewEngine(2, 1)})

	require.NoError(t, r.RequestChunkLoad(2, 0))
	got, ok := r.Snapshot(2, 0)
	require.True(t, ok)
	assert.Equal(t, light.Pack(1, 2, 3), got.Light[7], "Свет из кэша не пересчитывается при загрузке")
}

func TestRunner_RefCountedLoads(t *testing.T) {
	r := newRunner(t, worldgen.NewFill(block.Air), RunnerOptions{})
	require.NoError(t, r.LoadArea(0, 0, 1))
	assert.Equal(t, 9, r.Stats().LoadedChunks)

	require.NoError(t, r.RequestChunkLoad(0, 0))
	require.NoError(t, r.RequestChunkUnload(0, 0))
	_, ok := r.Snapshot(0, 0)
	assert.True(t, ok, "Чанк держится вторым запросом")

	require.NoError(t, r.RequestChunkUnload(0, 0))
	_, ok = r.Snapshot(0, 0)
	assert.False(t, ok)
	assert.ErrorIs(t, r.RequestChunkUnload(0, 0), world.ErrUnloadWithoutLoad)
}

func TestRunner_StartStop(t *testing.T) {
	r := newRunner(t, worldgen.NewFill(block.Air), RunnerOptions{TickInterval: time.Millisecond})
	require.NoError(t, r.RequestChunkLoad(0, 0))

	require.NoError(t, r.Start(context.Background()))
	assert.ErrorIs(t, r.Start(context.Background()), ErrRunnerStarted)
	require.Eventually(t, func() bool { return r.Stats().Tick >= 3 }, 2*time.Second, time.Millisecond)
	assert.True(t, r.Stats().Running)

	r.Stop()
	assert.False(t, r.Stats().Running)
	tick := r.Stats().Tick
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, tick, r.Stats().Tick, "После Stop тики не выполняются")
}

func TestRunner_BlockTypes(t *testing.T) {
	r := newRunner(t, worldgen.NewFill(block.Air), RunnerOptions{})
	types := r.BlockTypes()
	require.Greater(t, len(types), 1)
	assert.Equal(t, "missing", types[0].Name)
	for _, bt := range types {
		if bt.Name == block.Hotstone {
			assert.Equal(t, "#ff6020", bt.Emission)
		}
	}
}
