package util

import (
	"github.com/aquilax/go-perlin"
)

// Параметры шума по умолчанию
const (
	NoiseAlpha   = 2.0 // Сглаживание шума
	NoiseBeta    = 2.0 // Частота шума
	NoiseOctaves = 3   // Количество октав
)

// Noise генератор шума Перлина со своим сидом. Каждый генератор мира держит
// собственный экземпляр, поэтому миры с разными сидами не влияют друг на друга.
type Noise struct {
	seed   int64
	perlin *perlin.Perlin
}

// NewNoise создаёт генератор шума для сида
func NewNoise(seed int64) *Noise {
	return &Noise{
		seed:   seed,
		perlin: perlin.NewPerlin(NoiseAlpha, NoiseBeta, NoiseOctaves, seed),
	}
}

// Seed возвращает сид генератора
func (n *Noise) Seed() int64 { return n.seed }

// Noise1D возвращает значение шума от 0 до 1
func (n *Noise) Noise1D(x float64) float64 {
	return normalize(n.perlin.Noise1D(x))
}

// Noise2D возвращает значение шума от 0 до 1
func (n *Noise) Noise2D(x, y float64) float64 {
	return normalize(n.perlin.Noise2D(x, y))
}

func normalize(v float64) float64 {
	v = (v + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
