package world

import "github.com/annel0/sandworld/internal/vec"

// ChunkSnapshot полный снимок чанка. Срезы являются копиями.
type ChunkSnapshot struct {
	Coord   vec.Vec2
	Tick    uint64
	Shift   uint
	Cells   []Cell
	Light   []uint32
	Pending []int // активная очередь; используется при восстановлении из кэша
}

// ChunkHandler получает авторитетные снимки обновлённых чанков
type ChunkHandler interface {
	// SendChunkData вызывается при создании чанка и раз в тик для каждого активного чанка
	SendChunkData(s ChunkSnapshot)
}

// ChunkHandlerFunc адаптер функции к ChunkHandler
type ChunkHandlerFunc func(s ChunkSnapshot)

// SendChunkData вызывает f(s)
func (f ChunkHandlerFunc) SendChunkData(s ChunkSnapshot) { f(s) }

// Generator заполняет current только что созданного чанка
type Generator interface {
	// Init вызывается из World.Init после инициализации типов блоков
	Init(w *World) error
	// Generate вызывается ровно один раз при первом создании чанка
	Generate(w *World, coord vec.Vec2, c *Chunk)
}

// ChunkCache хранит выгруженные чанки для мгновенной повторной загрузки
type ChunkCache interface {
	Save(s ChunkSnapshot) error
	Load(coord vec.Vec2) (ChunkSnapshot, bool, error)
}

// missingGenerator оставляет чанк заполненным типом 0
type missingGenerator struct{}

func (missingGenerator) Init(*World) error                 { return nil }
func (missingGenerator) Generate(*World, vec.Vec2, *Chunk) {}
