package world

import (
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/sandworld/internal/logging"
	"github.com/annel0/sandworld/internal/vec"
)

// Options параметры мира
type Options struct {
	ChunkBitShift       uint // 6 -> чанки 64x64
	RandomTicksPerChunk int  // 0 отключает случайные тики
	Parallelism         int  // >1 включает параллельную основную фазу
	Seed                int64

	Generator Generator
	Handler   ChunkHandler
	Cache     ChunkCache

	// OnChunkLoaded вызывается после создания чанка и связывания соседей,
	// до первой публикации. restored означает восстановление из Cache.
	OnChunkLoaded func(c *Chunk, restored bool)

	Logger *logging.Logger
}

// DefaultOptions возвращает параметры по умолчанию
func DefaultOptions() Options {
	return Options{
		ChunkBitShift:       6,
		RandomTicksPerChunk: 64,
		Parallelism:         1,
	}
}

// World владеет чанками, реестром типов, счётчиком тиков и RNG.
// World не потокобезопасен: внешние вызовы должен сериализовать владелец
// (см. app.Runner). Параллелизм есть только внутри PerformGlobalTick.
type World struct {
	opts  Options
	shift uint
	size  int

	types     []*BlockType
	typeIndex map[string]uint16

	chunks map[vec.Vec2]*Chunk
	refs   map[vec.Vec2]int

	generator   Generator
	initialized bool
	ticking     bool
	time        uint64
	rng         *Rand

	// чанки, получившие записи в pendingNext за текущий тик
	queuedMu     sync.Mutex
	queuedChunks []*Chunk

	deferredUnloads []vec.Vec2

	failMu       sync.Mutex
	failedTypes  map[uint16]struct{}
	failureCount int

	log *logging.Logger
}

// New создаёт мир. Тип с индексом 0 ("missing") регистрируется сразу.
func New(opts Options) *World {
	if opts.ChunkBitShift == 0 {
		opts.ChunkBitShift = 6
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	if opts.RandomTicksPerChunk < 0 {
		opts.RandomTicksPerChunk = 0
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetWorldLogger()
	}

	w := &World{
		opts:        opts,
		shift:       opts.ChunkBitShift,
		size:        1 << opts.ChunkBitShift,
		typeIndex:   make(map[string]uint16),
		chunks:      make(map[vec.Vec2]*Chunk),
		refs:        make(map[vec.Vec2]int),
		generator:   opts.Generator,
		rng:         NewRand(opts.Seed),
		failedTypes: make(map[uint16]struct{}),
		log:         opts.Logger,
	}
	if w.generator == nil {
		w.generator = missingGenerator{}
	}
	// missing всегда первый, ошибки здесь невозможны
	_, _ = w.RegisterBlockType(newMissingType())
	return w
}

// Init инициализирует все типы блоков и генератор. Повторный вызов ничего не делает.
func (w *World) Init() error {
	if w.initialized {
		return nil
	}
	for _, bt := range w.types {
		if err := bt.Init(w); err != nil {
			return err
		}
	}
	if err := w.generator.Init(w); err != nil {
		return fmt.Errorf("инициализация генератора: %w", err)
	}
	w.initialized = true
	w.log.Info("Мир инициализирован: %d типов блоков, чанк %dx%d", len(w.types), w.size, w.size)
	return nil
}

// Initialized сообщает, был ли вызван Init
func (w *World) Initialized() bool { return w.initialized }

// Time возвращает номер текущего тика
func (w *World) Time() uint64 { return w.time }

// ChunkSize возвращает длину стороны чанка
func (w *World) ChunkSize() int { return w.size }

// ChunkShift возвращает log2 размера чанка
func (w *World) ChunkShift() uint { return w.shift }

// Options возвращает параметры мира
func (w *World) Options() Options { return w.opts }

// SetHandler заменяет получателя обновлений чанков
func (w *World) SetHandler(h ChunkHandler) { w.opts.Handler = h }

// SetOnChunkLoaded заменяет обработчик загрузки чанка
func (w *World) SetOnChunkLoaded(fn func(c *Chunk, restored bool)) { w.opts.OnChunkLoaded = fn }

// RandomFloat возвращает число в [0, 1)
func (w *World) RandomFloat() float64 { return w.rng.Float64() }

// Chunk возвращает загруженный чанк
func (w *World) Chunk(x, y int) (*Chunk, bool) {
	c, ok := w.chunks[vec.Vec2{X: x, Y: y}]
	return c, ok
}

// IsChunkLoaded сообщает, загружен ли чанк
func (w *World) IsChunkLoaded(x, y int) bool {
	_, ok := w.chunks[vec.Vec2{X: x, Y: y}]
	return ok
}

// LoadedChunks возвращает загруженные чанки, упорядоченные по координатам
func (w *World) LoadedChunks() []*Chunk {
	out := make([]*Chunk, 0, len(w.chunks))
	for _, c := range w.chunks {
		out = append(out, c)
	}
	sortChunks(out)
	return out
}

// LoadedCount возвращает число загруженных чанков
func (w *World) LoadedCount() int { return len(w.chunks) }

// LoadRequests возвращает счётчик запросов загрузки чанка
func (w *World) LoadRequests(x, y int) int {
	return w.refs[vec.Vec2{X: x, Y: y}]
}

// Locate возвращает чанк и индекс для глобальной координаты ячейки
func (w *World) Locate(global vec.Vec2) (*Chunk, int, bool) {
	c, ok := w.chunks[global.ToChunkCoords(w.shift)]
	if !ok {
		return nil, 0, false
	}
	return c, global.LocalIndex(w.shift), true
}

// RequestChunkLoad увеличивает счётчик запросов; при переходе 0->1 создаёт чанк
func (w *World) RequestChunkLoad(x, y int) (*Chunk, error) {
	if !w.initialized {
		return nil, ErrNotInitialized
	}
	coord := vec.Vec2{X: x, Y: y}
	w.refs[coord]++
	return w.AcquireChunk(x, y)
}

// RequestChunkUnload уменьшает счётчик; при переходе 1->0 выгружает чанк.
// Во время тика выгрузка откладывается до конца тика.
func (w *World) RequestChunkUnload(x, y int) error {
	coord := vec.Vec2{X: x, Y: y}
	count := w.refs[coord]
	if count <= 0 {
		return fmt.Errorf("чанк %s: %w", coord, ErrUnloadWithoutLoad)
	}
	if count > 1 {
		w.refs[coord] = count - 1
		return nil
	}

	delete(w.refs, coord)
	if w.ticking {
		w.deferredUnloads = append(w.deferredUnloads, coord)
		return nil
	}
	w.unloadChunk(coord)
	return nil
}

// AcquireChunk возвращает загруженный чанк или создаёт его
func (w *World) AcquireChunk(x, y int) (*Chunk, error) {
	if !w.initialized {
		return nil, ErrNotInitialized
	}
	coord := vec.Vec2{X: x, Y: y}
	if c, ok := w.chunks[coord]; ok {
		return c, nil
	}

	c := NewChunk(coord, w.shift)
	restored := w.restoreChunk(c)
	if !restored {
		w.generator.Generate(w, coord, c)
		w.seedIDs(c)
	}
	w.chunks[coord] = c

	for slot := 0; slot < vec.NeighborSlots; slot++ {
		if slot == vec.Center {
			continue
		}
		if n, ok := w.chunks[coord.Add(vec.Offsets[slot])]; ok {
			c.linkNeighbor(slot, n)
		}
	}

	logging.LogChunkLoad(x, y, restored)
	if w.opts.OnChunkLoaded != nil {
		w.opts.OnChunkLoaded(c, restored)
	}
	w.Publish(c)
	return c, nil
}

// restoreChunk загружает чанк из кэша. false, если записи нет или она не подходит.
func (w *World) restoreChunk(c *Chunk) bool {
	if w.opts.Cache == nil {
		return false
	}
	snap, ok, err := w.opts.Cache.Load(c.Coord)
	if err != nil {
		w.log.Warn("Не удалось прочитать чанк %s из кэша: %v", c.Coord, err)
		return false
	}
	if !ok {
		return false
	}
	if len(snap.Cells) != c.Len() {
		w.log.Warn("Чанк %s в кэше имеет %d ячеек вместо %d, генерируем заново", c.Coord, len(snap.Cells), c.Len())
		return false
	}
	copy(c.cells, snap.Cells)
	if len(snap.Light) == c.Len() {
		copy(c.light, snap.Light)
	}
	for _, i := range snap.Pending {
		if i >= 0 && i < c.Len() {
			w.QueueBlock(c, i)
		}
	}
	c.needsSaving = true
	return true
}

// seedIDs заполняет decorrelation id детерминированно от координат чанка
func (w *World) seedIDs(c *Chunk) {
	r := mix32(uint32(int32(c.Coord.X)), uint32(int32(c.Coord.Y)))
	for i := range c.cells {
		r = mix32(r, uint32(i))
		c.cells[i] = c.cells[i].WithID(uint8(r))
	}
}

func (w *World) unloadChunk(coord vec.Vec2) {
	c, ok := w.chunks[coord]
	if !ok {
		return
	}
	c.unlinkNeighbors()
	delete(w.chunks, coord)

	saved := false
	if c.needsSaving && w.opts.Cache != nil {
		if err := w.opts.Cache.Save(w.snapshot(c)); err != nil {
			w.log.Error("Не удалось сохранить чанк %s: %v", coord, err)
		} else {
			saved = true
		}
	}
	logging.LogChunkUnload(coord.X, coord.Y, saved)
}

// PushClientBlockChangeRequest ставит внешнюю правку в очередь чанка.
// Правка применяется принудительно в начале следующего тика; соседей
// ставит в очередь уже сама запись, на тик после неё.
func (w *World) PushClientBlockChangeRequest(c *Chunk, i int, typeIndex uint16) {
	c.edits = append(c.edits, Edit{Index: i, Type: typeIndex})
}

// Snapshot возвращает копию состояния загруженного чанка
func (w *World) Snapshot(x, y int) (ChunkSnapshot, bool) {
	c, ok := w.Chunk(x, y)
	if !ok {
		return ChunkSnapshot{}, false
	}
	return w.snapshot(c), true
}

func (w *World) snapshot(c *Chunk) ChunkSnapshot {
	pending := make([]int, len(c.pending))
	copy(pending, c.pending)
	return ChunkSnapshot{
		Coord:   c.Coord,
		Tick:    w.time,
		Shift:   w.shift,
		Cells:   c.CopyCells(),
		Light:   c.CopyLight(),
		Pending: pending,
	}
}

// Publish отправляет снимок чанка обработчику. Очередь в снимок не входит:
// внутри тика она ещё не переключена на следующий.
func (w *World) Publish(c *Chunk) {
	if w.opts.Handler == nil {
		return
	}
	s := w.snapshot(c)
	s.Pending = nil
	w.opts.Handler.SendChunkData(s)
}

func sortChunks(cs []*Chunk) {
	sort.Slice(cs, func(a, b int) bool {
		if cs[a].Coord.Y != cs[b].Coord.Y {
			return cs[a].Coord.Y < cs[b].Coord.Y
		}
		return cs[a].Coord.X < cs[b].Coord.X
	})
}
