package datasets

import (
	"context"
	"io"
	"sync"

	"github.com/emberml/ember"
)

// DefaultPrefetchDepth is used when the requested prefetch depth is not
// positive.
const DefaultPrefetchDepth = 1

// Prefetch wraps a Dataset so that batches are produced on a background
// goroutine, up to depth batches ahead of the consuming loop. Use it when
// batch construction is expensive (decoding, augmentation, remote reads) and
// should overlap with the process function.
type Prefetch[B any] struct {
	inner ember.Dataset[B]
	depth int
}

// Compile-time check that Prefetch implements ember.Dataset.
var _ ember.Dataset[[]Example] = (*Prefetch[[]Example])(nil)

// NewPrefetch creates a Prefetch reading up to depth batches ahead.
func NewPrefetch[B any](inner ember.Dataset[B], depth int) *Prefetch[B] {
	if depth <= 0 {
		depth = DefaultPrefetchDepth
	}
	return &Prefetch[B]{inner: inner, depth: depth}
}

// Len returns the inner dataset's length.
func (d *Prefetch[B]) Len() int {
	return d.inner.Len()
}

// Iterate starts the background producer for one epoch.
func (d *Prefetch[B]) Iterate(ctx context.Context) (ember.Iterator[B], error) {
	inner, err := d.inner.Iterate(ctx)
	if err != nil {
		return nil, err
	}

	it := &prefetchIterator[B]{
		inner:   inner,
		results: make(chan prefetchResult[B], d.depth),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go it.produce(ctx)
	return it, nil
}

type prefetchResult[B any] struct {
	batch B
	err   error
}

type prefetchIterator[B any] struct {
	inner     ember.Iterator[B]
	results   chan prefetchResult[B]
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// produce pulls batches from the inner iterator until it fails, the epoch
// ends, or Close is called. The final error (including io.EOF) is delivered
// through the results channel before it closes.
func (it *prefetchIterator[B]) produce(ctx context.Context) {
	defer close(it.done)
	defer close(it.results)

	for {
		batch, err := it.inner.Next(ctx)
		select {
		case it.results <- prefetchResult[B]{batch: batch, err: err}:
		case <-it.stop:
			return
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (it *prefetchIterator[B]) Next(ctx context.Context) (B, error) {
	var zero B
	select {
	case res, ok := <-it.results:
		if !ok {
			// The producer already delivered its final error and exited.
			if err := ctx.Err(); err != nil {
				return zero, err
			}
			return zero, io.EOF
		}
		return res.batch, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (it *prefetchIterator[B]) Close() error {
	it.closeOnce.Do(func() {
		close(it.stop)
	})
	<-it.done
	return it.inner.Close()
}
