package ember

import "context"

// Meta carries dataset metadata that models can use to size themselves, e.g.
// the number of features or classes. It is produced by dataset constructors
// and consumed by MetadataReceiver implementations before the model is built.
type Meta map[string]any

// Int returns the metadata value under key as an int.
func (m Meta) Int(key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Float returns the metadata value under key as a float64.
func (m Meta) Float(key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Dataset is a collection of batches allowing repeated iteration. The engine
// requests a fresh Iterator for every epoch.
type Dataset[B any] interface {
	// Len returns the number of batches one epoch yields, or -1 when the
	// length is unknown (e.g. streaming sources).
	Len() int

	// Iterate begins a pass over the dataset. Implementations that shuffle
	// should reshuffle on every call.
	Iterate(ctx context.Context) (Iterator[B], error)
}

// Iterator yields the batches of a single epoch.
type Iterator[B any] interface {
	// Next returns the next batch. It returns io.EOF after the last batch.
	Next(ctx context.Context) (B, error)

	// Close releases resources held by the iterator. The engine closes the
	// iterator at the end of every epoch, including aborted ones.
	Close() error
}
