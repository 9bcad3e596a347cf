package ember

import "sync"

// Metrics contains counters and gauges for tracking values produced during a
// run. Process functions and handlers write to it; callbacks such as early
// stopping, the history recorder, and the Prometheus exporter read from it.
//
// # Counters vs Gauges
//
// Counters are monotonically increasing (only go up). Use them for totals
// such as examples processed or batches skipped.
//
// Gauges can go up and down (via IncrGauge, SetGauge, ResetGauge). Use gauges
// for values that fluctuate, such as the running loss or a validation
// accuracy recomputed each epoch.
//
// # Keys
//
// Keys are free-form strings. The convention is "phase:name", e.g.
// "train:loss" or "eval:accuracy", mirroring the event naming scheme.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Metrics struct {
	mu       sync.RWMutex
	counters map[string]int64
	gauges   map[string]float64
}

// NewMetrics creates an empty Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
	}
}

// IncrCounter increments a counter by delta. Creates the counter if it
// doesn't exist. Panics if delta is negative (counters only go up).
func (m *Metrics) IncrCounter(key string, delta int64) {
	if delta < 0 {
		panic("ember: IncrCounter called with negative delta")
	}
	m.mu.Lock()
	m.counters[key] += delta
	m.mu.Unlock()
}

// Counter returns the current value of a counter, or 0 if not set.
func (m *Metrics) Counter(key string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[key]
}

// IncrGauge increments a gauge by delta (positive or negative).
// Creates the gauge if it doesn't exist.
func (m *Metrics) IncrGauge(key string, delta float64) {
	m.mu.Lock()
	m.gauges[key] += delta
	m.mu.Unlock()
}

// SetGauge sets a gauge to a specific value.
func (m *Metrics) SetGauge(key string, value float64) {
	m.mu.Lock()
	m.gauges[key] = value
	m.mu.Unlock()
}

// Gauge returns the current value of a gauge and whether it has been set.
func (m *Metrics) Gauge(key string) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.gauges[key]
	return v, ok
}

// ResetGauge sets a gauge to 0.
func (m *Metrics) ResetGauge(key string) {
	m.mu.Lock()
	m.gauges[key] = 0
	m.mu.Unlock()
}

// Counters returns a copy of all counters.
func (m *Metrics) Counters() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		result[k] = v
	}
	return result
}

// Gauges returns a copy of all gauges.
func (m *Metrics) Gauges() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]float64, len(m.gauges))
	for k, v := range m.gauges {
		result[k] = v
	}
	return result
}
