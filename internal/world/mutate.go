package world

// Ref ссылка на ячейку конкретного чанка
type Ref struct {
	Chunk *Chunk
	Index int
}

// Cell читает ячейку из current
func (r Ref) Cell() Cell {
	return r.Chunk.cells[r.Index]
}

// Примитивы изменения ниже работают только внутри тика, между resetNexts и
// applyNexts: вне тика resetNexts затрёт next.

// TrySetType записывает новый тип и новый decorrelation id. Без force ничего
// не делает для уже заблокированной ячейки. Возвращает true при записи.
func (w *World) TrySetType(c *Chunk, i int, typeIndex uint16, force bool) bool {
	if !w.lock(c, i, force) {
		return false
	}
	id := uint8(mix32(w.rng.Uint32(), uint32(i)+uint32(w.time)))
	c.setNext(i, MakeCell(typeIndex, id))
	w.QueueNeighbors(c, i, true)
	return true
}

// TryMutateType меняет тип, сохраняя decorrelation id
func (w *World) TryMutateType(c *Chunk, i int, typeIndex uint16, force bool) bool {
	if !w.lock(c, i, force) {
		return false
	}
	c.setNext(i, c.cells[i].WithType(typeIndex))
	w.QueueNeighbors(c, i, true)
	return true
}

// SetBlockData безусловно перезаписывает запись в next и блокирует ячейку
func (w *World) SetBlockData(c *Chunk, i int, cell Cell) {
	c.forceLock(i)
	c.setNext(i, cell)
	w.QueueNeighbors(c, i, true)
}

// Claim атомарно блокирует все ячейки цепочки. Если хотя бы одна уже
// заблокирована, снимает захваченные и возвращает false.
func (w *World) Claim(refs ...Ref) bool {
	for k, r := range refs {
		if !r.Chunk.tryLock(r.Index) {
			for _, done := range refs[:k] {
				done.Chunk.unlock(done.Index)
			}
			return false
		}
	}
	return true
}

func (w *World) lock(c *Chunk, i int, force bool) bool {
	if force {
		c.forceLock(i)
		return true
	}
	return c.tryLock(i)
}

// QueueBlock ставит ячейку в очередь на тик. Повторная постановка в том же
// цикле ничего не делает. Вне тика ячейка попадает в очередь ближайшего тика,
// внутри тика в очередь следующего.
func (w *World) QueueBlock(c *Chunk, i int) {
	if !c.markPending(i) {
		return
	}
	if !w.ticking {
		c.pending = append(c.pending, i)
		c.pendingTick = true
		return
	}

	c.queueMu.Lock()
	c.pendingNext = append(c.pendingNext, i)
	c.queueMu.Unlock()

	if c.queued.CompareAndSwap(false, true) {
		w.queuedMu.Lock()
		w.queuedChunks = append(w.queuedChunks, c)
		w.queuedMu.Unlock()
	}
}

// QueueNeighbors ставит в очередь 8 соседей ячейки и, при enqueueSelf, её саму
func (w *World) QueueNeighbors(c *Chunk, i int, enqueueSelf bool) {
	x, y := c.XY(i)
	c.ForEachNeighbor(x, y, w.QueueBlock, enqueueSelf)
}
