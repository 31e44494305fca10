package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/sandworld/internal/light"
	"github.com/annel0/sandworld/internal/logging"
	"github.com/annel0/sandworld/internal/metrics"
	"github.com/annel0/sandworld/internal/observability"
	"github.com/annel0/sandworld/internal/vec"
	"github.com/annel0/sandworld/internal/world"
)

var (
	// ErrTickInProgress предыдущий тик ещё выполняется
	ErrTickInProgress = errors.New("тик уже выполняется")
	// ErrUnknownBlockType тип блока с таким именем не зарегистрирован
	ErrUnknownBlockType = errors.New("неизвестный тип блока")
	// ErrChunkNotLoaded чанк не загружен
	ErrChunkNotLoaded = errors.New("чанк не загружен")
	// ErrRunnerStarted повторный запуск цикла
	ErrRunnerStarted = errors.New("цикл симуляции уже запущен")
)

// RunnerOptions параметры цикла симуляции
type RunnerOptions struct {
	TickInterval    time.Duration
	LightEveryTicks int           // 0 отключает периодический пересчёт света
	Light           *light.Engine // nil отключает свет
	Metrics         *metrics.TickMetrics
	Logger          *logging.Logger
}

// RunnerStats состояние для API
type RunnerStats struct {
	Tick          uint64          `json:"tick"`
	LoadedChunks  int             `json:"loaded_chunks"`
	ChunkSize     int             `json:"chunk_size"`
	BlockTypes    int             `json:"block_types"`
	Skipped       uint64          `json:"skipped_ticks"`
	LightFailures uint64          `json:"light_failures"`
	Running       bool            `json:"running"`
	Last          world.TickStats `json:"last"`
}

// Runner владеет миром: все обращения к World идут под одним мьютексом,
// тики выполняются с фиксированной частотой в отдельной горутине.
type Runner struct {
	mu    sync.Mutex
	world *world.World
	opts  RunnerOptions

	tracer trace.Tracer
	log    *logging.Logger

	busy          atomic.Bool
	skipped       atomic.Uint64
	lightFailures atomic.Uint64
	running       atomic.Bool

	statsMu sync.RWMutex
	last    world.TickStats

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner создаёт цикл для инициализированного мира
func NewRunner(w *world.World, opts RunnerOptions) *Runner {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 50 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetWorldLogger()
	}
	r := &Runner{
		world:  w,
		opts:   opts,
		tracer: observability.Tracer(),
		log:    opts.Logger,
	}
	if opts.Light != nil {
		w.SetOnChunkLoaded(r.lightLoadedChunk)
	}
	return r
}

// Start запускает тики с частотой TickInterval до Stop или отмены ctx
func (r *Runner) Start(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrRunnerStarted
	}
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.running.Store(false)

		ticker := time.NewTicker(r.opts.TickInterval)
		defer ticker.Stop()
		last := time.Now()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				// Ticker отбрасывает срабатывания, пока получатель занят
				if missed := int64(now.Sub(last)/r.opts.TickInterval) - 1; missed > 0 {
					r.skipped.Add(uint64(missed))
				}
				last = now
				if _, err := r.Step(ctx); err != nil && !errors.Is(err, ErrTickInProgress) {
					r.log.Error("Ошибка тика: %v", err)
				}
			}
		}
	}()
	r.log.Info("Цикл симуляции запущен, интервал %s", r.opts.TickInterval)
	return nil
}

// Stop останавливает цикл и дожидается завершения текущего тика
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// Step выполняет один тик. Если предыдущий ещё идёт, тик пропускается.
func (r *Runner) Step(ctx context.Context) (world.TickStats, error) {
	if !r.busy.CompareAndSwap(false, true) {
		r.skipped.Add(1)
		if r.opts.Metrics != nil {
			r.opts.Metrics.SkippedTicks.Inc()
		}
		return world.TickStats{}, ErrTickInProgress
	}
	defer r.busy.Store(false)

	_, span := r.tracer.Start(ctx, "world.tick")
	defer span.End()

	r.mu.Lock()
	stats, err := r.world.PerformGlobalTick()
	if err == nil && r.opts.Light != nil && r.opts.LightEveryTicks > 0 && stats.Tick%uint64(r.opts.LightEveryTicks) == 0 {
		r.runLight(ctx)
	}
	r.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}

	span.SetAttributes(
		attribute.Int64("tick", int64(stats.Tick)),
		attribute.Int("chunks.loaded", stats.LoadedChunks),
		attribute.Int("chunks.pending", stats.PendingChunks),
		attribute.Int("ticks.block", stats.BlockTicks),
		attribute.Int("behavior.failures", stats.BehaviorFailures),
	)
	if r.opts.Metrics != nil {
		r.opts.Metrics.Observe(stats)
	}
	r.statsMu.Lock()
	r.last = stats
	r.statsMu.Unlock()
	return stats, nil
}

// runLight пересчитывает свет во всех чанках. Вызывается под r.mu.
func (r *Runner) runLight(ctx context.Context) {
	_, span := r.tracer.Start(ctx, "light.pass")
	defer span.End()

	start := time.Now()
	changed, failed := r.opts.Light.RunAll(r.world)
	// тик уже опубликовал эти чанки со старым светом
	for _, c := range changed {
		r.world.Publish(c)
	}
	span.SetAttributes(attribute.Int("light.changed", len(changed)))
	if failed > 0 {
		r.lightFailures.Add(uint64(failed))
		span.SetAttributes(attribute.Int("light.failures", failed))
	}
	if r.opts.Metrics != nil {
		r.opts.Metrics.LightDuration.Observe(time.Since(start).Seconds())
		r.opts.Metrics.LightFailures.Add(float64(failed))
	}
}

// RequestChunkLoad загружает чанк (со счётчиком ссылок)
func (r *Runner) RequestChunkLoad(x, y int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.world.RequestChunkLoad(x, y)
	return err
}

// lightLoadedChunk считает свет сгенерированного чанка до его первой
// публикации. Восстановленный из кэша чанк приходит со своим светом.
func (r *Runner) lightLoadedChunk(c *world.Chunk, restored bool) {
	if restored {
		return
	}
	if err := r.opts.Light.Run(r.world, c); err != nil {
		r.lightFailures.Add(1)
		if r.opts.Metrics != nil {
			r.opts.Metrics.LightFailures.Inc()
		}
		r.log.Warn("Свет для чанка %s не рассчитан: %v", c.Coord, err)
	}
}

// RequestChunkUnload снимает один запрос загрузки
func (r *Runner) RequestChunkUnload(x, y int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.world.RequestChunkUnload(x, y)
}

// LoadArea загружает квадрат чанков радиуса radius вокруг (cx, cy)
func (r *Runner) LoadArea(cx, cy, radius int) error {
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			if err := r.RequestChunkLoad(x, y); err != nil {
				return fmt.Errorf("чанк %d:%d: %w", x, y, err)
			}
		}
	}
	return nil
}

// PushEdit ставит внешнюю правку в глобальной ячейке. Правка применяется в
// начале следующего тика.
func (r *Runner) PushEdit(globalX, globalY int, typeName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.world.TypeIndex(typeName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBlockType, typeName)
	}
	global := vec.Vec2{X: globalX, Y: globalY}
	c, i, ok := r.world.Locate(global)
	if !ok {
		return fmt.Errorf("%w: ячейка %s", ErrChunkNotLoaded, global)
	}
	r.world.PushClientBlockChangeRequest(c, i, idx)
	return nil
}

// Snapshot возвращает копию состояния загруженного чанка
func (r *Runner) Snapshot(x, y int) (world.ChunkSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.world.Snapshot(x, y)
}

// BlockTypeInfo описание типа для API
type BlockTypeInfo struct {
	Index    uint16   `json:"index"`
	Name     string   `json:"name"`
	Color    string   `json:"color"`
	Emission string   `json:"emission"`
	Tags     []string `json:"tags"`
}

// BlockTypes возвращает зарегистрированные типы
func (r *Runner) BlockTypes() []BlockTypeInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := r.world.BlockTypes()
	out := make([]BlockTypeInfo, len(types))
	for k, bt := range types {
		out[k] = BlockTypeInfo{
			Index:    bt.Index(),
			Name:     bt.Name,
			Color:    hex(bt.Color),
			Emission: hex(bt.Emission),
			Tags:     bt.Tags,
		}
	}
	return out
}

func hex(c world.RGB) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Stats возвращает сводку по миру и циклу
func (r *Runner) Stats() RunnerStats {
	r.mu.Lock()
	s := RunnerStats{
		Tick:         r.world.Time(),
		LoadedChunks: r.world.LoadedCount(),
		ChunkSize:    r.world.ChunkSize(),
		BlockTypes:   r.world.BlockTypeCount(),
	}
	r.mu.Unlock()

	s.Skipped = r.skipped.Load()
	s.LightFailures = r.lightFailures.Load()
	s.Running = r.running.Load()
	r.statsMu.RLock()
	s.Last = r.last
	r.statsMu.RUnlock()
	return s
}
