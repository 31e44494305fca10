// Package light реализует итеративное распространение света по чанкам.
package light

import (
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/annel0/sandworld/internal/logging"
	"github.com/annel0/sandworld/internal/vec"
	"github.com/annel0/sandworld/internal/world"
)

// Pack упаковывает каналы в r | g<<8 | b<<16
func Pack(r, g, b uint32) uint32 {
	return r | g<<8 | b<<16
}

// Unpack возвращает каналы упакованного значения
func Unpack(v uint32) (r, g, b uint32) {
	return v & 0xff, (v >> 8) & 0xff, (v >> 16) & 0xff
}

// factor излучение и прозрачность одного типа
type factor struct {
	emission [3]uint32
	opacity  [3]float32
}

// Engine выполняет релаксацию освещения. Каждый проход сдвигает свет не
// больше чем на одну ячейку.
type Engine struct {
	Passes  int // проходов за вызов
	Workers int // горутин на проход; <=1 последовательно

	log *logging.Logger
}

// NewEngine создаёт движок с заданным числом проходов
func NewEngine(passes, workers int) *Engine {
	return &Engine{Passes: passes, Workers: workers, log: logging.GetLightLogger()}
}

// edges снимок граничных значений света 4 ортогональных соседей.
// Отсутствующий сосед даёт нули.
type edges struct {
	up, down, left, right []uint32
}

func snapshotEdges(c *world.Chunk) edges {
	size := c.Size()
	e := edges{
		up:    make([]uint32, size),
		down:  make([]uint32, size),
		left:  make([]uint32, size),
		right: make([]uint32, size),
	}
	if n := c.Neighbor(vec.Up); n != nil {
		l := n.Light()
		for x := 0; x < size; x++ {
			e.up[x] = l[n.Index(x, 0)]
		}
	}
	if n := c.Neighbor(vec.Down); n != nil {
		l := n.Light()
		for x := 0; x < size; x++ {
			e.down[x] = l[n.Index(x, size-1)]
		}
	}
	if n := c.Neighbor(vec.Left); n != nil {
		l := n.Light()
		for y := 0; y < size; y++ {
			e.left[y] = l[n.Index(size-1, y)]
		}
	}
	if n := c.Neighbor(vec.Right); n != nil {
		l := n.Light()
		for y := 0; y < size; y++ {
			e.right[y] = l[n.Index(0, y)]
		}
	}
	return e
}

func buildFactors(w *world.World) []factor {
	types := w.BlockTypes()
	out := make([]factor, len(types))
	for k, bt := range types {
		out[k] = factor{
			emission: [3]uint32{uint32(bt.Emission.R), uint32(bt.Emission.G), uint32(bt.Emission.B)},
			opacity:  bt.Opacity,
		}
	}
	return out
}

// Run выполняет Passes проходов для одного чанка и подменяет его буфер света
func (e *Engine) Run(w *world.World, c *world.Chunk) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("расчёт света чанка %s: %v", c.Coord, r)
		}
	}()
	_, err = e.run(buildFactors(w), c)
	return err
}

// RunAll выполняет расчёт для всех загруженных чанков и возвращает чанки,
// у которых изменился буфер света. Ошибка одного чанка логируется и не
// прерывает остальные.
func (e *Engine) RunAll(w *world.World) (changed []*world.Chunk, failed int) {
	factors := buildFactors(w)
	for _, c := range w.LoadedChunks() {
		ok, err := e.safeRun(factors, c)
		if err != nil {
			failed++
			e.logger().Warn("%v", err)
			continue
		}
		if ok {
			changed = append(changed, c)
		}
	}
	return changed, failed
}

func (e *Engine) safeRun(factors []factor, c *world.Chunk) (changed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("расчёт света чанка %s: %v", c.Coord, r)
		}
	}()
	return e.run(factors, c)
}

func (e *Engine) logger() *logging.Logger {
	if e.log == nil {
		e.log = logging.GetLightLogger()
	}
	return e.log
}

// run возвращает true, если новый буфер отличается от прежнего
func (e *Engine) run(factors []factor, c *world.Chunk) (bool, error) {
	passes := e.Passes
	if passes <= 0 {
		return false, nil
	}
	edge := snapshotEdges(c)

	src := c.CopyLight()
	dst := make([]uint32, len(src))
	for p := 0; p < passes; p++ {
		if err := e.pass(factors, c, edge, src, dst); err != nil {
			return false, err
		}
		src, dst = dst, src
	}
	if slices.Equal(src, c.Light()) {
		return false, nil
	}
	c.SetLight(src)
	return true, nil
}

// pass вычисляет dst по src. Каждая ячейка зависит только от src,
// поэтому строки считаются независимо.
func (e *Engine) pass(factors []factor, c *world.Chunk, edge edges, src, dst []uint32) error {
	size := c.Size()
	if e.Workers <= 1 {
		for y := 0; y < size; y++ {
			relaxRow(factors, c, edge, src, dst, y)
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(e.Workers)
	rows := (size + e.Workers - 1) / e.Workers
	for from := 0; from < size; from += rows {
		from, to := from, min(from+rows, size)
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("строки %d..%d: %v", from, to-1, r)
				}
			}()
			for y := from; y < to; y++ {
				relaxRow(factors, c, edge, src, dst, y)
			}
			return nil
		})
	}
	return g.Wait()
}

func relaxRow(factors []factor, c *world.Chunk, edge edges, src, dst []uint32, y int) {
	size := c.Size()
	for x := 0; x < size; x++ {
		var up, down, left, right uint32
		if y+1 < size {
			up = src[c.Index(x, y+1)]
		} else {
			up = edge.up[x]
		}
		if y > 0 {
			down = src[c.Index(x, y-1)]
		} else {
			down = edge.down[x]
		}
		if x > 0 {
			left = src[c.Index(x-1, y)]
		} else {
			left = edge.left[y]
		}
		if x+1 < size {
			right = src[c.Index(x+1, y)]
		} else {
			right = edge.right[y]
		}

		i := c.Index(x, y)
		f := factors[c.TypeAt(i)]
		var out [3]uint32
		for ch := 0; ch < 3; ch++ {
			shift := uint(ch * 8)
			brightest := max((up>>shift)&0xff, (down>>shift)&0xff, (left>>shift)&0xff, (right>>shift)&0xff)
			spread := uint32(f.opacity[ch] * float32(brightest))
			out[ch] = max(f.emission[ch], min(spread, 0xff))
		}
		dst[i] = Pack(out[0], out[1], out[2])
	}
}
