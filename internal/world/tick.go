package world

import (
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/annel0/sandworld/internal/vec"
)

// TickStats итог одного глобального тика
type TickStats struct {
	Tick             uint64        `json:"tick"`
	LoadedChunks     int           `json:"loaded_chunks"`
	PendingChunks    int           `json:"pending_chunks"`
	ResetChunks      int           `json:"reset_chunks"`
	Edits            int           `json:"edits"`
	RandomTicks      int           `json:"random_ticks"`
	BlockTicks       int           `json:"block_ticks"`
	Published        int           `json:"published"`
	BehaviorFailures int           `json:"behavior_failures"`
	Duration         time.Duration `json:"duration_ns"`
}

// PerformGlobalTick выполняет один шаг симуляции. Фазы строго упорядочены:
//
//  1. сбор чанков с очередью и перемешивание их порядка
//  2. resetNexts для всех чанков, в которые может прийти запись
//  3. внешние правки (принудительно)
//  4. случайные тики по всем загруженным чанкам
//  5. основные тики по очередям
//  6. applyNexts (глобальная точка фиксации)
//  7. публикация снимков
//  8. смена очередей
//  9. инкремент счётчика тиков
func (w *World) PerformGlobalTick() (TickStats, error) {
	var stats TickStats
	if !w.initialized {
		return stats, ErrNotInitialized
	}
	start := time.Now()

	w.ticking = true
	w.failureCount = 0
	clear(w.failedTypes)

	// 1
	pending := w.collectPending()
	w.rng.Shuffle(len(pending), func(a, b int) { pending[a], pending[b] = pending[b], pending[a] })
	for _, c := range pending {
		c.activatePending()
	}

	// 2
	resetSet := w.resetSet(pending)
	for _, c := range resetSet {
		c.resetNexts()
	}

	// 3
	for _, c := range pending {
		for _, e := range c.edits {
			w.TrySetType(c, e.Index, e.Type, true)
		}
		stats.Edits += len(c.edits)
		c.edits = c.edits[:0]
	}

	// 4
	stats.RandomTicks = w.randomTicks()

	// 5
	blockTicks, err := w.mainTicks(pending)
	stats.BlockTicks = blockTicks
	if err != nil {
		w.ticking = false
		return stats, fmt.Errorf("основная фаза тика %d: %w", w.time, err)
	}

	// 6
	for _, c := range resetSet {
		c.applyNexts()
	}

	// 7
	isPending := make(map[*Chunk]struct{}, len(pending))
	for _, c := range pending {
		isPending[c] = struct{}{}
	}
	for _, c := range resetSet {
		_, wasPending := isPending[c]
		changed := c.dirty.Load()
		if changed {
			c.needsSaving = true
		}
		if wasPending || changed {
			w.Publish(c)
			stats.Published++
		}
	}

	// 8
	for _, c := range pending {
		c.swapQueues()
	}
	w.queuedMu.Lock()
	for _, c := range w.queuedChunks {
		if _, done := isPending[c]; !done {
			c.swapQueues()
		}
	}
	w.queuedChunks = w.queuedChunks[:0]
	w.queuedMu.Unlock()

	// 9
	w.time++
	w.ticking = false
	w.flushDeferredUnloads()

	stats.Tick = w.time
	stats.LoadedChunks = len(w.chunks)
	stats.PendingChunks = len(pending)
	stats.ResetChunks = len(resetSet)
	stats.BehaviorFailures = w.failureCount
	stats.Duration = time.Since(start)
	return stats, nil
}

// collectPending возвращает чанки с непустой очередью или правками в
// детерминированном порядке (до перемешивания)
func (w *World) collectPending() []*Chunk {
	var out []*Chunk
	for _, c := range w.chunks {
		if c.pendingTick || len(c.edits) > 0 {
			out = append(out, c)
		}
	}
	sortChunks(out)
	return out
}

// resetSet все чанки, в которые возможна запись в этом тике: при случайных
// тиках это все загруженные, иначе чанки с очередью и их загруженные соседи.
func (w *World) resetSet(pending []*Chunk) []*Chunk {
	if w.opts.RandomTicksPerChunk > 0 {
		return w.LoadedChunks()
	}
	seen := make(map[*Chunk]struct{}, len(pending)*3)
	var out []*Chunk
	for _, c := range pending {
		for _, n := range c.neighbors {
			if n == nil {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	sortChunks(out)
	return out
}

// randomTicks выбирает RandomTicksPerChunk равномерных индексов из [0, size²)
// в каждом загруженном чанке
func (w *World) randomTicks() int {
	n := w.opts.RandomTicksPerChunk
	if n == 0 || len(w.chunks) == 0 {
		return 0
	}
	loaded := w.LoadedChunks()
	w.rng.Shuffle(len(loaded), func(a, b int) { loaded[a], loaded[b] = loaded[b], loaded[a] })

	count := 0
	for _, c := range loaded {
		cells := c.Len()
		for k := 0; k < n; k++ {
			i := w.rng.Intn(cells)
			if c.Locked(i) {
				continue
			}
			w.runBehavior(c, i, true)
			count++
		}
	}
	return count
}

// mainTicks выполняет поведения ячеек из очередей. Порядок ячеек в каждой
// очереди перемешивается заранее, последовательно, чтобы поток RNG не зависел
// от параллелизма.
func (w *World) mainTicks(pending []*Chunk) (int, error) {
	for _, c := range pending {
		list := c.pending
		w.rng.Shuffle(len(list), func(a, b int) { list[a], list[b] = list[b], list[a] })
	}

	if w.opts.Parallelism <= 1 || len(pending) < 2 {
		count := 0
		for _, c := range pending {
			count += w.tickChunk(c)
		}
		return count, nil
	}

	var total atomic.Int64
	var g errgroup.Group
	g.SetLimit(w.opts.Parallelism)
	for _, c := range pending {
		c := c
		g.Go(func() error {
			total.Add(int64(w.tickChunk(c)))
			return nil
		})
	}
	err := g.Wait()
	return int(total.Load()), err
}

func (w *World) tickChunk(c *Chunk) int {
	count := 0
	for _, i := range c.pending {
		if c.Locked(i) {
			continue
		}
		w.runBehavior(c, i, false)
		count++
	}
	return count
}

// runBehavior вызывает поведение ячейки. Паника одного типа не должна
// останавливать мир: она логируется и учитывается в статистике.
func (w *World) runBehavior(c *Chunk, i int, random bool) {
	bt := w.TypeOf(c, i)
	defer func() {
		if r := recover(); r != nil {
			w.recordFailure(bt, c, i, r)
		}
	}()
	if random {
		bt.OnRandomTick(w, c, i)
	} else {
		bt.OnTick(w, c, i)
	}
}

func (w *World) recordFailure(bt *BlockType, c *Chunk, i int, r interface{}) {
	w.failMu.Lock()
	defer w.failMu.Unlock()
	w.failureCount++
	if _, logged := w.failedTypes[bt.index]; logged {
		return
	}
	w.failedTypes[bt.index] = struct{}{}
	w.log.Error("Паника в поведении %q (чанк %s, ячейка %s, тик %d): %v",
		bt.Name, c.Coord, vec.FromIndex(i, c.shift), w.time, r)
}

func (w *World) flushDeferredUnloads() {
	if len(w.deferredUnloads) == 0 {
		return
	}
	for _, coord := range w.deferredUnloads {
		// чанк могли снова запросить до конца тика
		if w.refs[coord] == 0 {
			w.unloadChunk(coord)
		}
	}
	w.deferredUnloads = w.deferredUnloads[:0]
}
