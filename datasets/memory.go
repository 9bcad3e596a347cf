package datasets

import (
	"context"
	"io"
	"math/rand"

	"github.com/emberml/ember"
)

// DefaultBatchSize is used when MemoryConfig.BatchSize is zero.
const DefaultBatchSize = 32

// Example is a single supervised example: a feature vector and its target.
// It is the element type the bundled models and generators agree on; Memory
// itself is generic and works with any element type.
type Example struct {
	Features []float64
	Target   float64
}

// MemoryConfig holds configuration options for a Memory dataset.
type MemoryConfig struct {
	// BatchSize is the number of examples per batch.
	// Defaults to DefaultBatchSize.
	BatchSize int

	// Shuffle reshuffles the example order on every epoch.
	Shuffle bool

	// Seed seeds the shuffle order. Runs with the same seed see the same
	// sequence of epochs.
	Seed int64

	// DropLast drops the final partial batch when the example count is not
	// divisible by BatchSize.
	DropLast bool
}

// Memory is an in-memory Dataset that yields batches of a fixed size from a
// slice of examples. Each epoch visits every example once; with Shuffle set,
// each epoch visits them in a new order.
type Memory[E any] struct {
	examples []E
	cfg      MemoryConfig
	rng      *rand.Rand
}

// Compile-time check that Memory implements ember.Dataset.
var _ ember.Dataset[[]Example] = (*Memory[Example])(nil)

// NewMemory creates a Memory dataset over examples.
func NewMemory[E any](examples []E, cfg MemoryConfig) *Memory[E] {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Memory[E]{
		examples: examples,
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Len returns the number of batches one epoch yields.
func (d *Memory[E]) Len() int {
	n := len(d.examples) / d.cfg.BatchSize
	if !d.cfg.DropLast && len(d.examples)%d.cfg.BatchSize != 0 {
		n++
	}
	return n
}

// Meta returns the dataset metadata: example count and batch size.
func (d *Memory[E]) Meta() ember.Meta {
	return ember.Meta{
		"num_examples": len(d.examples),
		"batch_size":   d.cfg.BatchSize,
	}
}

// Iterate begins a pass over the examples, reshuffling when configured.
func (d *Memory[E]) Iterate(ctx context.Context) (ember.Iterator[[]E], error) {
	order := make([]int, len(d.examples))
	for i := range order {
		order[i] = i
	}
	if d.cfg.Shuffle {
		d.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return &memoryIterator[E]{dataset: d, order: order}, nil
}

type memoryIterator[E any] struct {
	dataset *Memory[E]
	order   []int
	pos     int
}

func (it *memoryIterator[E]) Next(ctx context.Context) ([]E, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	remaining := len(it.order) - it.pos
	if remaining == 0 {
		return nil, io.EOF
	}

	size := it.dataset.cfg.BatchSize
	if remaining < size {
		if it.dataset.cfg.DropLast {
			return nil, io.EOF
		}
		size = remaining
	}

	batch := make([]E, size)
	for i := 0; i < size; i++ {
		batch[i] = it.dataset.examples[it.order[it.pos+i]]
	}
	it.pos += size
	return batch, nil
}

func (it *memoryIterator[E]) Close() error {
	return nil
}
