package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoiseDeterministic(t *testing.T) {
	a, b := NewNoise(42), NewNoise(42)
	for i := 0; i < 50; i++ {
		x := float64(i) * 0.13
		assert.Equal(t, a.Noise2D(x, -x), b.Noise2D(x, -x))
		assert.Equal(t, a.Noise1D(x), b.Noise1D(x))
	}
}

func TestNoiseRange(t *testing.T) {
	n := NewNoise(7)
	for i := -100; i < 100; i++ {
		v := n.Noise1D(float64(i) * 0.07)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.Equal(t, int64(7), n.Seed())
}
