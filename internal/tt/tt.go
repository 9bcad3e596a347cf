// Package tt provides shared test helpers: an event recorder, in-memory
// datasets, and event assertion utilities.
package tt

import (
	"context"
	"errors"
	"io"

	"github.com/emberml/ember"
)

// -----------------------------------------------------------------------------
// Event Recorder
// -----------------------------------------------------------------------------

// Recorder implements every handler interface and records each event it
// receives, in dispatch order.
type Recorder[B any] struct {
	Events []ember.Event
}

func NewRecorder[B any]() *Recorder[B] {
	return &Recorder[B]{}
}

func (r *Recorder[B]) record(event ember.Event) {
	r.Events = append(r.Events, event)
}

func (r *Recorder[B]) OnStarted(e *ember.Engine[B], event *ember.StartedEvent) {
	r.record(event)
}

func (r *Recorder[B]) OnCompleted(e *ember.Engine[B], event *ember.CompletedEvent) {
	r.record(event)
}

func (r *Recorder[B]) OnEpochStarted(e *ember.Engine[B], event *ember.EpochStartedEvent) {
	r.record(event)
}

func (r *Recorder[B]) OnEpochCompleted(e *ember.Engine[B], event *ember.EpochCompletedEvent) {
	r.record(event)
}

func (r *Recorder[B]) OnIterationStarted(e *ember.Engine[B], event *ember.IterationStartedEvent) {
	r.record(event)
}

func (r *Recorder[B]) OnIterationCompleted(
	e *ember.Engine[B],
	event *ember.IterationCompletedEvent,
) {
	r.record(event)
}

func (r *Recorder[B]) OnException(e *ember.Engine[B], event *ember.ExceptionEvent) {
	r.record(event)
}

func (r *Recorder[B]) OnCustomEvent(e *ember.Engine[B], event *ember.CustomEvent) {
	r.record(event)
}

// Names returns the recorded event names, in order.
func (r *Recorder[B]) Names() []ember.EventName {
	names := make([]ember.EventName, len(r.Events))
	for i, event := range r.Events {
		names[i] = event.Name()
	}
	return names
}

// Count returns the number of recorded events with the given name.
func (r *Recorder[B]) Count(name ember.EventName) int {
	n := 0
	for _, event := range r.Events {
		if event.Name() == name {
			n++
		}
	}
	return n
}

// Compile-time checks that Recorder implements all handler interfaces.
var (
	_ ember.StartedHandler[int]            = (*Recorder[int])(nil)
	_ ember.CompletedHandler[int]          = (*Recorder[int])(nil)
	_ ember.EpochStartedHandler[int]       = (*Recorder[int])(nil)
	_ ember.EpochCompletedHandler[int]     = (*Recorder[int])(nil)
	_ ember.IterationStartedHandler[int]   = (*Recorder[int])(nil)
	_ ember.IterationCompletedHandler[int] = (*Recorder[int])(nil)
	_ ember.ExceptionHandler[int]          = (*Recorder[int])(nil)
	_ ember.CustomHandler[int]             = (*Recorder[int])(nil)
)

// -----------------------------------------------------------------------------
// Datasets
// -----------------------------------------------------------------------------

// Batches is an in-memory dataset yielding the given batches in order, every
// epoch.
type Batches[B any] struct {
	Items []B
}

func NewBatches[B any](items ...B) *Batches[B] {
	return &Batches[B]{Items: items}
}

func (d *Batches[B]) Len() int {
	return len(d.Items)
}

func (d *Batches[B]) Iterate(ctx context.Context) (ember.Iterator[B], error) {
	return &batchesIterator[B]{items: d.Items}, nil
}

type batchesIterator[B any] struct {
	items []B
	pos   int
}

func (it *batchesIterator[B]) Next(ctx context.Context) (B, error) {
	var zero B
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if it.pos >= len(it.items) {
		return zero, io.EOF
	}
	batch := it.items[it.pos]
	it.pos++
	return batch, nil
}

func (it *batchesIterator[B]) Close() error {
	return nil
}

// FailingDataset yields FailAfter batches and then an error from Next.
// FailAfter zero makes Iterate itself fail.
type FailingDataset[B any] struct {
	Items     []B
	FailAfter int
	Err       error
}

func (d *FailingDataset[B]) Len() int {
	return len(d.Items)
}

func (d *FailingDataset[B]) Iterate(ctx context.Context) (ember.Iterator[B], error) {
	if d.FailAfter == 0 {
		return nil, d.failure()
	}
	return &failingIterator[B]{items: d.Items, failAfter: d.FailAfter, err: d.failure()}, nil
}

func (d *FailingDataset[B]) failure() error {
	if d.Err != nil {
		return d.Err
	}
	return errors.New("dataset failure")
}

type failingIterator[B any] struct {
	items     []B
	failAfter int
	err       error
	pos       int
}

func (it *failingIterator[B]) Next(ctx context.Context) (B, error) {
	var zero B
	if it.pos >= it.failAfter {
		return zero, it.err
	}
	if it.pos >= len(it.items) {
		return zero, io.EOF
	}
	batch := it.items[it.pos]
	it.pos++
	return batch, nil
}

func (it *failingIterator[B]) Close() error {
	return nil
}

var (
	_ ember.Dataset[int] = (*Batches[int])(nil)
	_ ember.Dataset[int] = (*FailingDataset[int])(nil)
)
