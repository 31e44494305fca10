package vec

import (
	"fmt"
)

// Vec2 представляет 2D целочисленные координаты (глобальные, чанковые или локальные).
// Ось Y направлена вверх: "вниз" означает уменьшение Y.
type Vec2 struct {
	X, Y int
}

// Направления соседей. Индекс слота соседа = (dx+1) + (dy+1)*3,
// центр (сам чанк/блок) всегда имеет индекс 4.
const (
	DownLeft  = 0
	Down      = 1
	DownRight = 2
	Left      = 3
	Center    = 4
	Right     = 5
	UpLeft    = 6
	Up        = 7
	UpRight   = 8

	NeighborSlots = 9
)

// Offsets содержит смещения для каждого слота соседа.
var Offsets = [NeighborSlots]Vec2{
	{X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
	{X: -1, Y: 0}, {X: 0, Y: 0}, {X: 1, Y: 0},
	{X: -1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 1},
}

// Часто используемые относительные смещения.
var (
	OffDown      = Vec2{X: 0, Y: -1}
	OffUp        = Vec2{X: 0, Y: 1}
	OffLeft      = Vec2{X: -1, Y: 0}
	OffRight     = Vec2{X: 1, Y: 0}
	OffDownLeft  = Vec2{X: -1, Y: -1}
	OffDownRight = Vec2{X: 1, Y: -1}
)

// Slot возвращает индекс слота соседа для смещения в диапазоне [-1, 1].
func Slot(dx, dy int) int {
	return (dx + 1) + (dy+1)*3
}

// Opposite возвращает слот, зеркальный данному.
func Opposite(slot int) int {
	return 8 - slot
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// ToChunkCoords преобразует глобальные координаты в координаты чанка.
// Арифметический сдвиг даёт деление с округлением вниз и для отрицательных значений.
func (v Vec2) ToChunkCoords(shift uint) Vec2 {
	return Vec2{X: v.X >> shift, Y: v.Y >> shift}
}

// LocalInChunk возвращает локальные координаты внутри чанка
func (v Vec2) LocalInChunk(shift uint) Vec2 {
	mask := (1 << shift) - 1
	return Vec2{X: v.X & mask, Y: v.Y & mask}
}

// LocalIndex возвращает линейный индекс x | (y << shift) внутри чанка
func (v Vec2) LocalIndex(shift uint) int {
	l := v.LocalInChunk(shift)
	return l.X | (l.Y << shift)
}

// FromIndex восстанавливает локальные координаты по линейному индексу
func FromIndex(i int, shift uint) Vec2 {
	mask := (1 << shift) - 1
	return Vec2{X: i & mask, Y: i >> shift}
}

// Global возвращает глобальные координаты ячейки с индексом i в чанке v
func (v Vec2) Global(i int, shift uint) Vec2 {
	l := FromIndex(i, shift)
	return Vec2{X: v.X<<shift + l.X, Y: v.Y<<shift + l.Y}
}

// String нужен для логов и ключей хранилищ
func (v Vec2) String() string {
	return fmt.Sprintf("%d:%d", v.X, v.Y)
}
