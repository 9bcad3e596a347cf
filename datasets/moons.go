package datasets

import (
	"math"
	"math/rand"

	"github.com/emberml/ember"
)

// MoonsConfig holds configuration options for the Moons generator.
type MoonsConfig struct {
	// Examples is the total number of examples to generate.
	Examples int

	// Noise is the standard deviation of the gaussian noise added to each
	// coordinate. Zero produces two clean half circles.
	Noise float64

	// Seed seeds the generator.
	Seed int64
}

// Moons generates the classic two-moons toy dataset: two interleaving half
// circles in two dimensions, labeled 0 and 1. It is linearly inseparable, so
// it exercises non-linear models while staying small enough for tests.
//
// The returned Meta carries num_examples, num_features and num_classes so
// models can size themselves from it.
func Moons(cfg MoonsConfig) ([]Example, ember.Meta) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	examples := make([]Example, cfg.Examples)

	for i := range examples {
		t := rng.Float64() * math.Pi
		var x, y float64
		label := float64(i % 2)
		if label == 0 {
			x, y = math.Cos(t), math.Sin(t)
		} else {
			x, y = 1-math.Cos(t), 0.5-math.Sin(t)
		}
		examples[i] = Example{
			Features: []float64{
				x + rng.NormFloat64()*cfg.Noise,
				y + rng.NormFloat64()*cfg.Noise,
			},
			Target: label,
		}
	}

	meta := ember.Meta{
		"num_examples": cfg.Examples,
		"num_features": 2,
		"num_classes":  2,
	}
	return examples, meta
}
