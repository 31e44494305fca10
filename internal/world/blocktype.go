package world

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// TickBehavior поведение ячейки при обычном или случайном тике.
// Может вызывать только примитивы изменения World и читающие методы Chunk.
type TickBehavior func(w *World, c *Chunk, i int)

// DensityFunc задаёт плотность ячейки для попарных сравнений
type DensityFunc func(w *World, c *Chunk, i int) int

// TickBehaviorGen строит поведение на этапе Init, когда все типы уже
// зарегистрированы и их индексы можно найти по имени.
type TickBehaviorGen func(w *World) TickBehavior

// Behavior набор возможностей типа блока, которыми пользуется планировщик
type Behavior interface {
	OnTick(w *World, c *Chunk, i int)
	OnRandomTick(w *World, c *Chunk, i int)
	DensityOf(w *World, c *Chunk, i int) int
}

// DefaultDensity плотность типа без DensityFunc
const DefaultDensity = 255

// ConstDensity возвращает постоянную плотность
func ConstDensity(d int) DensityFunc {
	return func(*World, *Chunk, int) int { return d }
}

// Static поведение "ничего не делать"
func Static(*World, *Chunk, int) {}

// RGB цвет или излучение, 0..255 на канал
type RGB struct {
	R, G, B uint8
}

// ParseHexColor разбирает "#rrggbb" или "#rgb"
func ParseHexColor(s string) (RGB, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	var v uint32
	if _, err := fmt.Sscanf(s, "%x", &v); err != nil {
		return RGB{}, fmt.Errorf("некорректный цвет %q: %w", s, err)
	}
	switch len(s) {
	case 6:
		return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
	case 3:
		r, g, b := uint8(v>>8&0xf), uint8(v>>4&0xf), uint8(v&0xf)
		return RGB{R: r<<4 | r, G: g<<4 | g, B: b<<4 | b}, nil
	default:
		return RGB{}, fmt.Errorf("некорректный цвет %q", s)
	}
}

// MustHex как ParseHexColor, но паникует. Для статических каталогов.
func MustHex(s string) RGB {
	c, err := ParseHexColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

type blockTypeState int32

const (
	stateUnregistered blockTypeState = iota
	stateRegistered
	stateInitialized
)

// BlockType неизменяемое описание типа блока. Поля заполняются до регистрации,
// поведения строятся один раз в Init.
type BlockType struct {
	Name     string
	Color    RGB
	Emission RGB
	Opacity  [3]float32 // доля света, которую ячейка передаёт дальше
	Tags     []string
	Numbers  map[string]float64

	Density       DensityFunc
	TickGen       TickBehaviorGen
	RandomTickGen TickBehaviorGen

	index        uint16
	state        atomic.Int32
	tagSet       map[string]struct{}
	onTick       TickBehavior
	onRandomTick TickBehavior
}

// Index возвращает индекс типа в реестре мира
func (bt *BlockType) Index() uint16 {
	return bt.index
}

// HasTag проверяет наличие тега
func (bt *BlockType) HasTag(tag string) bool {
	_, ok := bt.tagSet[tag]
	return ok
}

// Number возвращает числовое свойство типа
func (bt *BlockType) Number(name string) (float64, bool) {
	v, ok := bt.Numbers[name]
	return v, ok
}

// Initialized сообщает, прошёл ли тип Init
func (bt *BlockType) Initialized() bool {
	return blockTypeState(bt.state.Load()) == stateInitialized
}

// Init строит поведения. Повторный вызов возвращает ErrBlockTypeInitialized.
func (bt *BlockType) Init(w *World) error {
	if !bt.state.CompareAndSwap(int32(stateRegistered), int32(stateInitialized)) {
		if blockTypeState(bt.state.Load()) == stateInitialized {
			return fmt.Errorf("%s: %w", bt.Name, ErrBlockTypeInitialized)
		}
		return fmt.Errorf("%s: %w", bt.Name, ErrBlockTypeUnregistered)
	}

	bt.onTick = Static
	bt.onRandomTick = Static
	if bt.TickGen != nil {
		if b := bt.TickGen(w); b != nil {
			bt.onTick = b
		}
	}
	if bt.RandomTickGen != nil {
		if b := bt.RandomTickGen(w); b != nil {
			bt.onRandomTick = b
		}
	}
	if bt.Density == nil {
		bt.Density = ConstDensity(DefaultDensity)
	}
	return nil
}

// OnTick выполняет обычный тик
func (bt *BlockType) OnTick(w *World, c *Chunk, i int) {
	bt.onTick(w, c, i)
}

// OnRandomTick выполняет случайный тик
func (bt *BlockType) OnRandomTick(w *World, c *Chunk, i int) {
	bt.onRandomTick(w, c, i)
}

// DensityOf возвращает плотность ячейки этого типа
func (bt *BlockType) DensityOf(w *World, c *Chunk, i int) int {
	return bt.Density(w, c, i)
}

var _ Behavior = (*BlockType)(nil)

// newMissingType тип с индексом 0, заполняет незаданные ячейки
func newMissingType() *BlockType {
	return &BlockType{
		Name:  "missing",
		Color: RGB{R: 255, B: 255},
	}
}

// RegisterBlockType добавляет тип в реестр и возвращает его индекс.
func (w *World) RegisterBlockType(bt *BlockType) (uint16, error) {
	if w.initialized {
		return 0, fmt.Errorf("регистрация %s: %w", bt.Name, ErrWorldInitialized)
	}
	if _, exists := w.typeIndex[bt.Name]; exists {
		return 0, fmt.Errorf("регистрация %s: %w", bt.Name, ErrBlockTypeNameTaken)
	}
	if len(w.types) >= MaxBlockTypes {
		return 0, ErrTooManyBlockTypes
	}
	if !bt.state.CompareAndSwap(int32(stateUnregistered), int32(stateRegistered)) {
		return 0, fmt.Errorf("регистрация %s: %w", bt.Name, ErrBlockTypeRegistered)
	}

	bt.index = uint16(len(w.types))
	bt.tagSet = make(map[string]struct{}, len(bt.Tags))
	for _, tag := range bt.Tags {
		bt.tagSet[tag] = struct{}{}
	}
	w.types = append(w.types, bt)
	w.typeIndex[bt.Name] = bt.index
	return bt.index, nil
}

// RegisterBlockTypes регистрирует несколько типов по порядку
func (w *World) RegisterBlockTypes(types ...*BlockType) error {
	for _, bt := range types {
		if _, err := w.RegisterBlockType(bt); err != nil {
			return err
		}
	}
	return nil
}

// TypeIndex ищет индекс типа по имени
func (w *World) TypeIndex(name string) (uint16, bool) {
	idx, ok := w.typeIndex[name]
	return idx, ok
}

// TypeIndexOr ищет индекс типа по имени, возвращая 0 (missing), если имени нет
func (w *World) TypeIndexOr(name string) uint16 {
	return w.typeIndex[name]
}

// BlockType возвращает тип по индексу. Неизвестный индекс даёт missing.
func (w *World) BlockType(index uint16) *BlockType {
	if int(index) >= len(w.types) {
		return w.types[0]
	}
	return w.types[index]
}

// BlockTypeCount возвращает число зарегистрированных типов
func (w *World) BlockTypeCount() int {
	return len(w.types)
}

// BlockTypes возвращает копию реестра в порядке индексов
func (w *World) BlockTypes() []*BlockType {
	out := make([]*BlockType, len(w.types))
	copy(out, w.types)
	return out
}

// BlockTypeNames возвращает имена типов в алфавитном порядке
func (w *World) BlockTypeNames() []string {
	names := make([]string, 0, len(w.typeIndex))
	for name := range w.typeIndex {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TypeOf возвращает тип ячейки
func (w *World) TypeOf(c *Chunk, i int) *BlockType {
	return w.BlockType(c.TypeAt(i))
}

// DensityOf возвращает плотность ячейки
func (w *World) DensityOf(c *Chunk, i int) int {
	return w.TypeOf(c, i).DensityOf(w, c, i)
}

// HasTag проверяет тег типа ячейки
func (w *World) HasTag(c *Chunk, i int, tag string) bool {
	return w.TypeOf(c, i).HasTag(tag)
}
