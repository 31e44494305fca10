package world

// Cell упакованная запись ячейки:
//
//	биты 0-15  индекс типа блока
//	биты 16-23 decorrelation id (псевдослучайный байт для вариаций отрисовки)
//	биты 24-31 зарезервированы
type Cell uint32

const (
	cellTypeMask = 0x0000ffff
	cellIDShift  = 16
	cellIDMask   = 0x00ff0000

	// MaxBlockTypes ограничено шириной поля типа
	MaxBlockTypes = 1 << 16
)

// Флаги ячейки, хранятся отдельно от Cell и меняются атомарно
const (
	FlagPendingTick uint32 = 1 << 0
	FlagLocked      uint32 = 1 << 1
)

// MakeCell собирает запись из типа и id
func MakeCell(typeIndex uint16, id uint8) Cell {
	return Cell(uint32(typeIndex) | uint32(id)<<cellIDShift)
}

// Type возвращает индекс типа блока
func (c Cell) Type() uint16 {
	return uint16(c & cellTypeMask)
}

// ID возвращает decorrelation id
func (c Cell) ID() uint8 {
	return uint8((c & cellIDMask) >> cellIDShift)
}

// WithType заменяет тип, сохраняя id и остальные биты
func (c Cell) WithType(typeIndex uint16) Cell {
	return (c &^ cellTypeMask) | Cell(typeIndex)
}

// WithID заменяет id
func (c Cell) WithID(id uint8) Cell {
	return (c &^ cellIDMask) | Cell(uint32(id)<<cellIDShift)
}

// mix32 перемешивает два значения в одно (финализатор murmur3)
func mix32(a, b uint32) uint32 {
	h := a ^ (b * 0x9e3779b9)
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}
