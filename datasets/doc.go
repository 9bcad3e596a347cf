// Package datasets provides Dataset implementations for the ember engine.
//
// # Overview
//
//   - Memory: an in-memory dataset that batches a slice of examples and
//     reshuffles on every epoch.
//   - Prefetch: a wrapper that reads batches ahead of the loop on a
//     background goroutine, so the process function never waits on slow
//     sources.
//   - Moons: a synthetic two-class dataset generator for examples and tests.
//
// # Quick Start
//
//	examples, meta := datasets.Moons(datasets.MoonsConfig{Examples: 2000, Noise: 0.1, Seed: 7})
//	ds := datasets.NewMemory(examples, datasets.MemoryConfig{BatchSize: 64, Shuffle: true, Seed: 7})
//	trainer.Run(ctx, datasets.NewPrefetch[[]datasets.Example](ds, 2), cfg)
//
// Datasets report metadata (example count, feature shape) through an
// ember.Meta map so models can size themselves before training starts.
package datasets
