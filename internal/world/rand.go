package world

import (
	"math/rand"
	"sync"
)

// Rand источник случайности, принадлежащий конкретному миру.
// Доступ защищён мьютексом: в параллельной фазе тика поведения
// вызываются из нескольких горутин.
type Rand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRand создаёт детерминированный генератор
func NewRand(seed int64) *Rand {
	return &Rand{rnd: rand.New(rand.NewSource(seed))}
}

// Float64 возвращает число в [0, 1)
func (r *Rand) Float64() float64 {
	r.mu.Lock()
	v := r.rnd.Float64()
	r.mu.Unlock()
	return v
}

// Intn возвращает число в [0, n)
func (r *Rand) Intn(n int) int {
	r.mu.Lock()
	v := r.rnd.Intn(n)
	r.mu.Unlock()
	return v
}

// Uint32 возвращает случайные 32 бита
func (r *Rand) Uint32() uint32 {
	r.mu.Lock()
	v := r.rnd.Uint32()
	r.mu.Unlock()
	return v
}

// Shuffle перемешивает срез индексов на месте
func (r *Rand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	r.rnd.Shuffle(n, swap)
	r.mu.Unlock()
}
