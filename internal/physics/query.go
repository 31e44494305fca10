package physics

import (
	"github.com/annel0/sandworld/internal/vec"
	"github.com/annel0/sandworld/internal/world"
)

// Ортогональные соседи
var adjacentOffsets = [4]vec.Vec2{vec.OffUp, vec.OffDown, vec.OffLeft, vec.OffRight}

// ForEachAdjacent вызывает fn для загруженных ортогональных соседей ячейки
func ForEachAdjacent(c *world.Chunk, i int, fn func(n *world.Chunk, j int)) {
	for _, off := range adjacentOffsets {
		if n, j, ok := c.NearIndexI(i, off.X, off.Y); ok {
			fn(n, j)
		}
	}
}

// AnyAdjacentHasTag проверяет тег у ортогональных соседей
func AnyAdjacentHasTag(w *world.World, c *world.Chunk, i int, tag string) bool {
	for _, off := range adjacentOffsets {
		if n, j, ok := c.NearIndexI(i, off.X, off.Y); ok && w.HasTag(n, j, tag) {
			return true
		}
	}
	return false
}

// AnyNeighborHasTag проверяет тег у всех 8 соседей
func AnyNeighborHasTag(w *world.World, c *world.Chunk, i int, tag string) bool {
	found := false
	x, y := c.XY(i)
	c.ForEachNeighbor(x, y, func(n *world.Chunk, j int) {
		if !found && w.HasTag(n, j, tag) {
			found = true
		}
	}, false)
	return found
}

// Chance возвращает true с вероятностью p
func Chance(w *world.World, p float64) bool {
	return w.RandomFloat() < p
}
