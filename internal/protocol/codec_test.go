package protocol

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/sandworld/internal/vec"
	"github.com/annel0/sandworld/internal/world"
)

func sampleSnapshot() world.ChunkSnapshot {
	const shift = 3
	n := 1 << (2 * shift)
	s := world.ChunkSnapshot{
		Coord:   vec.Vec2{X: -3, Y: 7},
		Tick:    12345,
		Shift:   shift,
		Cells:   make([]world.Cell, n),
		Light:   make([]uint32, n),
		Pending: []int{0, 5, n - 1},
	}
	for i := range s.Cells {
		s.Cells[i] = world.MakeCell(uint16(i%5), uint8(i*37))
		s.Light[i] = uint32(i) * 0x010203
	}
	return s
}

func TestEncodeDecodeChunk(t *testing.T) {
	s := sampleSnapshot()
	got, err := DecodeChunk(EncodeChunk(s))
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestDecodeChunk_EmptyArrays(t *testing.T) {
	s := world.ChunkSnapshot{Coord: vec.Vec2{X: 1}, Shift: 2}
	got, err := DecodeChunk(EncodeChunk(s))
	require.NoError(t, err)
	assert.Equal(t, s.Coord, got.Coord)
	assert.Empty(t, got.Cells)
}

func TestDecodeChunk_Malformed(t *testing.T) {
	b := EncodeChunk(sampleSnapshot())
	_, err := DecodeChunk(b[:len(b)-3])
	assert.ErrorIs(t, err, ErrMalformed, "Обрезанные данные")

	bad := sampleSnapshot()
	bad.Pending = []int{1 << 10}
	_, err = DecodeChunk(EncodeChunk(bad))
	assert.ErrorIs(t, err, ErrMalformed, "Индекс очереди вне чанка")

	short := sampleSnapshot()
	short.Cells = short.Cells[:10]
	_, err = DecodeChunk(EncodeChunk(short))
	assert.ErrorIs(t, err, ErrMalformed, "Число ячеек не совпадает с shift")
}

func TestDecodeChunk_RejectsWideValues(t *testing.T) {
	head := EncodeChunk(world.ChunkSnapshot{Shift: 1})
	wide := []uint64{1 << 40, 0, 0, 0}

	cells := appendPacked(append([]byte(nil), head...), fieldCells, len(wide), func(k int) uint64 { return wide[k] })
	_, err := DecodeChunk(cells)
	assert.ErrorIs(t, err, ErrMalformed, "Ячейка шире 32 бит")

	lightVals := appendPacked(append([]byte(nil), head...), fieldLight, len(wide), func(k int) uint64 { return wide[k] })
	_, err = DecodeChunk(lightVals)
	assert.ErrorIs(t, err, ErrMalformed, "Свет шире 32 бит")

	ok := []uint64{math.MaxUint32, 0, 0, 0}
	got, err := DecodeChunk(appendPacked(append([]byte(nil), head...), fieldLight, len(ok), func(k int) uint64 { return ok[k] }))
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), got.Light[0])
}

func TestCodecFrames(t *testing.T) {
	s := sampleSnapshot()
	for _, compress := range []bool{false, true} {
		c, err := NewCodec(compress)
		require.NoError(t, err)

		frame := c.Marshal(s)
		got, err := c.Unmarshal(frame)
		require.NoError(t, err)
		assert.Equal(t, s, got, "compress=%v", compress)
		c.Close()
	}
}

func TestCodec_ReadsOtherMode(t *testing.T) {
	plain, err := NewCodec(false)
	require.NoError(t, err)
	defer plain.Close()
	packed, err := NewCodec(true)
	require.NoError(t, err)
	defer packed.Close()

	got, err := plain.Unmarshal(packed.Marshal(sampleSnapshot()))
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), got)

	_, err = plain.Unmarshal([]byte{9, 1, 2})
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = plain.Unmarshal(nil)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCodec_CompressesUniformChunk(t *testing.T) {
	s := world.ChunkSnapshot{Shift: 6, Cells: make([]world.Cell, 1<<12)}
	c, err := NewCodec(true)
	require.NoError(t, err)
	defer c.Close()
	assert.Less(t, len(c.Marshal(s)), len(EncodeChunk(s))/4)
}
