package eventbus

import (
	"context"
	"strconv"
	"time"

	"github.com/annel0/sandworld/internal/logging"
	"github.com/annel0/sandworld/internal/protocol"
	"github.com/annel0/sandworld/internal/world"
)

// Ключи метаданных обновления чанка
const (
	MetaChunkX = "x"
	MetaChunkY = "y"
	MetaTick   = "tick"
)

// ChunkPublisher адаптирует EventBus к world.ChunkHandler: каждый снимок
// кодируется и публикуется как событие ChunkUpdate.
type ChunkPublisher struct {
	bus     EventBus
	codec   *protocol.Codec
	source  string
	timeout time.Duration
	log     *logging.Logger
}

// NewChunkPublisher создаёт издателя снимков
func NewChunkPublisher(bus EventBus, codec *protocol.Codec, source string) *ChunkPublisher {
	return &ChunkPublisher{
		bus:     bus,
		codec:   codec,
		source:  source,
		timeout: time.Second,
		log:     logging.GetComponentLogger("EventBus"),
	}
}

// ChunkEnvelope упаковывает снимок в событие
func ChunkEnvelope(codec *protocol.Codec, source string, s world.ChunkSnapshot) *Envelope {
	ev := NewEnvelope(source, EventChunkUpdate, codec.Marshal(s))
	ev.Metadata[MetaChunkX] = strconv.Itoa(s.Coord.X)
	ev.Metadata[MetaChunkY] = strconv.Itoa(s.Coord.Y)
	ev.Metadata[MetaTick] = strconv.FormatUint(s.Tick, 10)
	return ev
}

// SendChunkData публикует снимок. Ошибки шины логируются: тик мира не
// должен останавливаться из-за транспорта.
func (p *ChunkPublisher) SendChunkData(s world.ChunkSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.bus.Publish(ctx, ChunkEnvelope(p.codec, p.source, s)); err != nil {
		p.log.Warn("Не удалось опубликовать чанк %s: %v", s.Coord, err)
	}
}

// Multi рассылает снимки нескольким обработчикам по порядку
type Multi []world.ChunkHandler

// SendChunkData вызывает все обработчики
func (m Multi) SendChunkData(s world.ChunkSnapshot) {
	for _, h := range m {
		h.SendChunkData(s)
	}
}

var (
	_ world.ChunkHandler = (*ChunkPublisher)(nil)
	_ world.ChunkHandler = Multi(nil)
)
