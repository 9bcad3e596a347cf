package datasets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoonsShape(t *testing.T) {
	examples, meta := Moons(MoonsConfig{Examples: 200, Noise: 0.1, Seed: 3})
	require.Len(t, examples, 200)

	labels := map[float64]int{}
	for _, ex := range examples {
		require.Len(t, ex.Features, 2)
		labels[ex.Target]++
	}
	assert.Equal(t, map[float64]int{0: 100, 1: 100}, labels)

	n, _ := meta.Int("num_examples")
	assert.Equal(t, 200, n)
	features, _ := meta.Int("num_features")
	assert.Equal(t, 2, features)
	classes, _ := meta.Int("num_classes")
	assert.Equal(t, 2, classes)
}

func TestMoonsDeterministicPerSeed(t *testing.T) {
	a, _ := Moons(MoonsConfig{Examples: 50, Noise: 0.05, Seed: 9})
	b, _ := Moons(MoonsConfig{Examples: 50, Noise: 0.05, Seed: 9})
	assert.Equal(t, a, b)

	c, _ := Moons(MoonsConfig{Examples: 50, Noise: 0.05, Seed: 10})
	assert.NotEqual(t, a, c)
}

func TestMoonsCleanWithoutNoise(t *testing.T) {
	examples, _ := Moons(MoonsConfig{Examples: 40, Seed: 1})
	for _, ex := range examples {
		x, y := ex.Features[0], ex.Features[1]
		if ex.Target == 0 {
			// Points on the unit half circle centered at the origin.
			assert.InDelta(t, 1.0, x*x+y*y, 1e-9)
		} else {
			dx, dy := x-1, y-0.5
			assert.InDelta(t, 1.0, dx*dx+dy*dy, 1e-9)
		}
	}
}
