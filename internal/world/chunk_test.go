package world

import (
	"testing"

	"github.com/annel0/sandworld/internal/vec"
)

func TestCellPacking(t *testing.T) {
	c := MakeCell(513, 200)
	if c.Type() != 513 || c.ID() != 200 {
		t.Fatalf("Ожидались тип 513 и id 200, получено %d и %d", c.Type(), c.ID())
	}
	m := c.WithType(7)
	if m.Type() != 7 || m.ID() != 200 {
		t.Errorf("WithType не должен менять id: %d/%d", m.Type(), m.ID())
	}
	if c.WithID(3).Type() != 513 {
		t.Errorf("WithID не должен менять тип")
	}
}

func TestChunkNearIndexInside(t *testing.T) {
	c := NewChunk(vec.Vec2{}, 4)
	n, j, ok := c.NearIndexI(c.Index(3, 3), 1, -1)
	if !ok || n != c {
		t.Fatalf("Ожидался тот же чанк")
	}
	if j != c.Index(4, 2) {
		t.Errorf("Ожидался индекс %d, получен %d", c.Index(4, 2), j)
	}

	if _, _, ok := c.NearIndex(-1, 0); ok {
		t.Errorf("Сосед слева не загружен, ожидался ok=false")
	}
}

func TestChunkForEachNeighborSkipsMissing(t *testing.T) {
	c := NewChunk(vec.Vec2{}, 4)

	count := 0
	c.ForEachNeighbor(0, 0, func(*Chunk, int) { count++ }, true)
	// угол без соседей: сама ячейка и 3 внутренних соседа
	if count != 4 {
		t.Errorf("Ожидалось 4 вызова, получено %d", count)
	}

	count = 0
	c.ForEachNeighbor(5, 5, func(*Chunk, int) { count++ }, false)
	if count != 8 {
		t.Errorf("Ожидалось 8 вызовов, получено %d", count)
	}
}

func TestChunkLinkAndUnlink(t *testing.T) {
	a := NewChunk(vec.Vec2{X: 0, Y: 0}, 4)
	b := NewChunk(vec.Vec2{X: 1, Y: 0}, 4)
	a.linkNeighbor(vec.Right, b)

	if b.Neighbor(vec.Left) != a {
		t.Fatalf("Обратная ссылка не установлена")
	}

	n, j, ok := a.NearIndex(16, 3)
	if !ok || n != b || j != b.Index(0, 3) {
		t.Errorf("Ожидалась ячейка (0,3) соседа справа")
	}

	a.unlinkNeighbors()
	if b.Neighbor(vec.Left) != nil || a.Neighbor(vec.Right) != nil {
		t.Errorf("После отвязки ссылок остаться не должно")
	}
	if a.Neighbor(vec.Center) != a {
		t.Errorf("Центральный слот должен указывать на сам чанк")
	}
}

func TestChunkLocking(t *testing.T) {
	c := NewChunk(vec.Vec2{}, 2)
	if !c.tryLock(5) {
		t.Fatalf("Первая блокировка должна пройти")
	}
	if c.tryLock(5) {
		t.Errorf("Повторная блокировка должна провалиться")
	}
	c.unlock(5)
	if c.Locked(5) {
		t.Errorf("Ячейка должна быть разблокирована")
	}

	c.markPending(5)
	c.forceLock(5)
	c.resetNexts()
	if c.Locked(5) {
		t.Errorf("resetNexts должен снимать LOCKED")
	}
	if c.Flags(5)&FlagPendingTick == 0 {
		t.Errorf("resetNexts не должен снимать PENDING_TICK")
	}
}

func TestChunkNextIsolation(t *testing.T) {
	c := NewChunk(vec.Vec2{}, 2)
	c.SetCurrentType(1, 9)
	c.resetNexts()
	c.setNext(1, MakeCell(3, 0))

	if c.TypeAt(1) != 9 {
		t.Errorf("Запись в next не должна быть видна в current до applyNexts")
	}
	c.applyNexts()
	if c.TypeAt(1) != 3 {
		t.Errorf("Ожидался тип 3 после applyNexts, получен %d", c.TypeAt(1))
	}
}
