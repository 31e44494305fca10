package protocol

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/annel0/sandworld/internal/world"
)

// Первый байт кадра указывает на сжатие
const (
	frameRaw  byte = 0
	frameZstd byte = 1
)

// Codec упаковывает снимки чанков в кадры, опционально сжатые zstd.
// Безопасен для конкурентного использования.
type Codec struct {
	compress bool
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

// NewCodec создаёт кодек. Декодер понимает оба вида кадров независимо от compress.
func NewCodec(compress bool) (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Codec{compress: compress, enc: enc, dec: dec}, nil
}

// Marshal кодирует снимок в кадр
func (c *Codec) Marshal(s world.ChunkSnapshot) []byte {
	raw := EncodeChunk(s)
	if !c.compress {
		return append([]byte{frameRaw}, raw...)
	}
	out := make([]byte, 1, len(raw)/4+16)
	out[0] = frameZstd
	return c.enc.EncodeAll(raw, out)
}

// Unmarshal разбирает кадр
func (c *Codec) Unmarshal(frame []byte) (world.ChunkSnapshot, error) {
	if len(frame) == 0 {
		return world.ChunkSnapshot{}, fmt.Errorf("%w: пустой кадр", ErrMalformed)
	}
	switch frame[0] {
	case frameRaw:
		return DecodeChunk(frame[1:])
	case frameZstd:
		raw, err := c.dec.DecodeAll(frame[1:], nil)
		if err != nil {
			return world.ChunkSnapshot{}, fmt.Errorf("%w: zstd: %v", ErrMalformed, err)
		}
		return DecodeChunk(raw)
	default:
		return world.ChunkSnapshot{}, fmt.Errorf("%w: неизвестный тип кадра %d", ErrMalformed, frame[0])
	}
}

// Close освобождает ресурсы zstd
func (c *Codec) Close() {
	c.enc.Close()
	c.dec.Close()
}
