package protocol

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/annel0/sandworld/internal/vec"
	"github.com/annel0/sandworld/internal/world"
)

// Номера полей снимка чанка в protobuf-совместимой записи
const (
	fieldX       protowire.Number = 1
	fieldY       protowire.Number = 2
	fieldTick    protowire.Number = 3
	fieldShift   protowire.Number = 4
	fieldCells   protowire.Number = 5
	fieldLight   protowire.Number = 6
	fieldPending protowire.Number = 7
)

// MaxChunkShift ограничивает размер декодируемого чанка
const MaxChunkShift = 10

// ErrMalformed возвращается для повреждённых данных
var ErrMalformed = errors.New("повреждённый снимок чанка")

// EncodeChunk сериализует снимок в wire-формат protobuf. Координаты
// кодируются как sint64, массивы упакованы (packed repeated).
func EncodeChunk(s world.ChunkSnapshot) []byte {
	b := make([]byte, 0, 16+len(s.Cells)*5+len(s.Light)*4)
	b = protowire.AppendTag(b, fieldX, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(s.Coord.X)))
	b = protowire.AppendTag(b, fieldY, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(s.Coord.Y)))
	b = protowire.AppendTag(b, fieldTick, protowire.VarintType)
	b = protowire.AppendVarint(b, s.Tick)
	b = protowire.AppendTag(b, fieldShift, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Shift))

	b = appendPacked(b, fieldCells, len(s.Cells), func(k int) uint64 { return uint64(s.Cells[k]) })
	b = appendPacked(b, fieldLight, len(s.Light), func(k int) uint64 { return uint64(s.Light[k]) })
	b = appendPacked(b, fieldPending, len(s.Pending), func(k int) uint64 { return uint64(s.Pending[k]) })
	return b
}

func appendPacked(b []byte, num protowire.Number, n int, at func(k int) uint64) []byte {
	if n == 0 {
		return b
	}
	size := 0
	for k := 0; k < n; k++ {
		size += protowire.SizeVarint(at(k))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(size))
	for k := 0; k < n; k++ {
		b = protowire.AppendVarint(b, at(k))
	}
	return b
}

// DecodeChunk разбирает результат EncodeChunk. Неизвестные поля пропускаются.
func DecodeChunk(b []byte) (world.ChunkSnapshot, error) {
	var s world.ChunkSnapshot
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return s, fmt.Errorf("%w: тег: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && num <= fieldShift:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return s, fmt.Errorf("%w: поле %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldX:
				s.Coord.X = int(protowire.DecodeZigZag(v))
			case fieldY:
				s.Coord.Y = int(protowire.DecodeZigZag(v))
			case fieldTick:
				s.Tick = v
			case fieldShift:
				if v > MaxChunkShift {
					return s, fmt.Errorf("%w: shift %d", ErrMalformed, v)
				}
				s.Shift = uint(v)
			}

		case typ == protowire.BytesType && num >= fieldCells && num <= fieldPending:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return s, fmt.Errorf("%w: поле %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
			vals, err := consumePacked(packed)
			if err != nil {
				return s, fmt.Errorf("%w: поле %d: %v", ErrMalformed, num, err)
			}
			if num != fieldPending {
				if k, ok := wider32(vals); ok {
					return s, fmt.Errorf("%w: поле %d: значение %d шире 32 бит", ErrMalformed, num, vals[k])
				}
			}
			switch num {
			case fieldCells:
				s.Cells = make([]world.Cell, len(vals))
				for k, v := range vals {
					s.Cells[k] = world.Cell(v)
				}
			case fieldLight:
				s.Light = make([]uint32, len(vals))
				for k, v := range vals {
					s.Light[k] = uint32(v)
				}
			case fieldPending:
				s.Pending = make([]int, len(vals))
				for k, v := range vals {
					s.Pending[k] = int(v)
				}
			}

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return s, fmt.Errorf("%w: поле %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if err := validate(s); err != nil {
		return s, err
	}
	return s, nil
}

// wider32 возвращает индекс первого значения, не помещающегося в uint32
func wider32(vals []uint64) (int, bool) {
	for k, v := range vals {
		if v > math.MaxUint32 {
			return k, true
		}
	}
	return 0, false
}

func consumePacked(b []byte) ([]uint64, error) {
	var out []uint64
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, v)
		b = b[n:]
	}
	return out, nil
}

func validate(s world.ChunkSnapshot) error {
	cells := 1 << (2 * s.Shift)
	if len(s.Cells) != 0 && len(s.Cells) != cells {
		return fmt.Errorf("%w: %d ячеек при shift %d", ErrMalformed, len(s.Cells), s.Shift)
	}
	if len(s.Light) != 0 && len(s.Light) != cells {
		return fmt.Errorf("%w: %d значений света при shift %d", ErrMalformed, len(s.Light), s.Shift)
	}
	for _, i := range s.Pending {
		if i < 0 || i >= cells {
			return fmt.Errorf("%w: индекс очереди %d вне чанка", ErrMalformed, i)
		}
	}
	return nil
}

// ChunkKey строковый ключ чанка для хранилищ и топиков, "x:y"
func ChunkKey(coord vec.Vec2) string {
	return coord.String()
}
