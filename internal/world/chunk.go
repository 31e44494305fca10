package world

import (
	"sync"
	"sync/atomic"

	"github.com/annel0/sandworld/internal/vec"
)

// Edit внешний запрос на изменение ячейки, применяется в начале следующего тика
type Edit struct {
	Index int
	Type  uint16
}

// Chunk представляет квадратный участок мира размером 2^shift x 2^shift ячеек.
//
// "current" авторитетный буфер, его читают все поведения. "next" цель записи
// во время тика. Между тиками next не используется.
type Chunk struct {
	Coord vec.Vec2 // Координаты чанка в мире

	shift uint
	size  int
	mask  int

	cells []Cell   // current
	next  []Cell   // next
	flags []uint32 // FlagPendingTick | FlagLocked, доступ атомарный
	light []uint32 // r | g<<8 | b<<16

	// Очередь ячеек на тик. pending обрабатывается в текущем тике,
	// pendingNext накапливает ячейки на следующий.
	pending     []int
	pendingNext []int
	queueMu     sync.Mutex
	pendingTick bool
	queued      atomic.Bool // в pendingNext есть записи за этот тик

	edits []Edit

	// Соседи по слотам vec.Slot(dx, dy). Слот vec.Center указывает на сам чанк.
	// Ссылки не владеющие, меняются только World при загрузке/выгрузке.
	neighbors [vec.NeighborSlots]*Chunk

	dirty       atomic.Bool // next отличался от current хотя бы в одной записи
	needsSaving bool
}

// NewChunk создаёт пустой чанк (все ячейки типа 0)
func NewChunk(coord vec.Vec2, shift uint) *Chunk {
	size := 1 << shift
	n := size * size
	c := &Chunk{
		Coord: coord,
		shift: shift,
		size:  size,
		mask:  size - 1,
		cells: make([]Cell, n),
		next:  make([]Cell, n),
		flags: make([]uint32, n),
		light: make([]uint32, n),
	}
	c.neighbors[vec.Center] = c
	return c
}

// Size возвращает длину стороны чанка
func (c *Chunk) Size() int { return c.size }

// Len возвращает число ячеек
func (c *Chunk) Len() int { return len(c.cells) }

// Shift возвращает log2 размера стороны
func (c *Chunk) Shift() uint { return c.shift }

// Index возвращает линейный индекс локальной координаты
func (c *Chunk) Index(x, y int) int {
	return x | (y << c.shift)
}

// XY восстанавливает локальные координаты по индексу
func (c *Chunk) XY(i int) (int, int) {
	return i & c.mask, i >> c.shift
}

// Cell читает ячейку из current
func (c *Chunk) Cell(i int) Cell {
	return c.cells[i]
}

// TypeAt возвращает индекс типа ячейки из current
func (c *Chunk) TypeAt(i int) uint16 {
	return c.cells[i].Type()
}

// IDAt возвращает decorrelation id ячейки
func (c *Chunk) IDAt(i int) uint8 {
	return c.cells[i].ID()
}

// Flags возвращает флаги ячейки
func (c *Chunk) Flags(i int) uint32 {
	return atomic.LoadUint32(&c.flags[i])
}

// Locked сообщает, была ли ячейка уже записана в этом тике
func (c *Chunk) Locked(i int) bool {
	return c.Flags(i)&FlagLocked != 0
}

// PendingTick сообщает, есть ли у чанка ячейки в очереди
func (c *Chunk) PendingTick() bool {
	return c.pendingTick
}

// PendingCount возвращает длину активной очереди
func (c *Chunk) PendingCount() int {
	return len(c.pending)
}

// NeedsSaving сообщает, менялся ли чанк симуляцией после загрузки
func (c *Chunk) NeedsSaving() bool {
	return c.needsSaving
}

// Neighbor возвращает соседа в слоте или nil, если он не загружен
func (c *Chunk) Neighbor(slot int) *Chunk {
	return c.neighbors[slot]
}

// NearIndex разрешает локальную координату, которая может выходить за пределы
// чанка не более чем на его размер, в пару (чанк, индекс). ok=false, если
// нужный сосед не загружен.
func (c *Chunk) NearIndex(x, y int) (*Chunk, int, bool) {
	cx := 1
	if x < 0 {
		cx = 0
	} else if x >= c.size {
		cx = 2
	}
	cy := 1
	if y < 0 {
		cy = 0
	} else if y >= c.size {
		cy = 2
	}

	n := c.neighbors[cx+cy*3]
	if n == nil {
		return nil, 0, false
	}
	return n, (x & c.mask) | ((y & c.mask) << c.shift), true
}

// NearIndexI то же, что NearIndex, но относительно ячейки i
func (c *Chunk) NearIndexI(i, dx, dy int) (*Chunk, int, bool) {
	return c.NearIndex((i&c.mask)+dx, (i>>c.shift)+dy)
}

// ForEachNeighbor вызывает fn для 8 соседей ячейки (x, y) и, при useCenter,
// для самой ячейки. Незагруженные соседи пропускаются.
func (c *Chunk) ForEachNeighbor(x, y int, fn func(n *Chunk, i int), useCenter bool) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if !useCenter && dx == 0 && dy == 0 {
				continue
			}
			if n, j, ok := c.NearIndex(x+dx, y+dy); ok {
				fn(n, j)
			}
		}
	}
}

// SetCurrentType пишет тип прямо в current, сохраняя id.
// Только для генерации мира и восстановления из кэша.
func (c *Chunk) SetCurrentType(i int, typeIndex uint16) {
	c.cells[i] = c.cells[i].WithType(typeIndex)
}

// SetCurrentCell пишет запись целиком в current. Только для генерации.
func (c *Chunk) SetCurrentCell(i int, cell Cell) {
	c.cells[i] = cell
}

// Fill заполняет current одним типом
func (c *Chunk) Fill(typeIndex uint16) {
	for i := range c.cells {
		c.cells[i] = c.cells[i].WithType(typeIndex)
	}
}

// CopyCells возвращает копию current
func (c *Chunk) CopyCells() []Cell {
	out := make([]Cell, len(c.cells))
	copy(out, c.cells)
	return out
}

// Light возвращает буфер освещения. Буфер заменяется целиком, не изменять.
func (c *Chunk) Light() []uint32 {
	return c.light
}

// SetLight атомарно для наблюдателей подменяет буфер освещения
func (c *Chunk) SetLight(buf []uint32) {
	if len(buf) == len(c.light) {
		c.light = buf
	}
}

// CopyLight возвращает копию буфера освещения
func (c *Chunk) CopyLight() []uint32 {
	out := make([]uint32, len(c.light))
	copy(out, c.light)
	return out
}

// resetNexts снимает LOCKED и копирует current -> next.
// FlagPendingTick не трогаем: он отражает членство в очереди.
func (c *Chunk) resetNexts() {
	for i := range c.flags {
		c.flags[i] &^= FlagLocked
	}
	copy(c.next, c.cells)
	c.dirty.Store(false)
}

// applyNexts копирует next -> current. Вызывается только в глобальной точке фиксации.
func (c *Chunk) applyNexts() {
	copy(c.cells, c.next)
}

// setNext пишет запись в next; ячейка должна быть уже заблокирована вызывающим
func (c *Chunk) setNext(i int, cell Cell) {
	c.next[i] = cell
	if cell != c.cells[i] {
		c.dirty.Store(true)
	}
}

// tryLock атомарно ставит LOCKED. false, если ячейка уже заблокирована.
func (c *Chunk) tryLock(i int) bool {
	for {
		old := atomic.LoadUint32(&c.flags[i])
		if old&FlagLocked != 0 {
			return false
		}
		if atomic.CompareAndSwapUint32(&c.flags[i], old, old|FlagLocked) {
			return true
		}
	}
}

func (c *Chunk) forceLock(i int) {
	atomic.OrUint32(&c.flags[i], FlagLocked)
}

func (c *Chunk) unlock(i int) {
	atomic.AndUint32(&c.flags[i], ^FlagLocked)
}

// markPending ставит FlagPendingTick и возвращает true, если флага не было
func (c *Chunk) markPending(i int) bool {
	return atomic.OrUint32(&c.flags[i], FlagPendingTick)&FlagPendingTick == 0
}

// activatePending снимает FlagPendingTick с ячеек активной очереди:
// с этого момента повторная постановка попадает в pendingNext.
func (c *Chunk) activatePending() {
	for _, i := range c.pending {
		c.flags[i] &^= FlagPendingTick
	}
}

// swapQueues делает pendingNext активной очередью
func (c *Chunk) swapQueues() {
	c.pending, c.pendingNext = c.pendingNext, c.pending[:0]
	c.pendingTick = len(c.pending) > 0
	c.queued.Store(false)
}

// linkNeighbor связывает два чанка в обе стороны. slot задан относительно c.
func (c *Chunk) linkNeighbor(slot int, n *Chunk) {
	c.neighbors[slot] = n
	n.neighbors[vec.Opposite(slot)] = c
}

// unlinkNeighbors удаляет все обратные ссылки соседей на c
func (c *Chunk) unlinkNeighbors() {
	for slot, n := range c.neighbors {
		if slot == vec.Center || n == nil {
			continue
		}
		n.neighbors[vec.Opposite(slot)] = nil
		c.neighbors[slot] = nil
	}
}
