package ember

import "time"

// Clock provides the engine's time source. Injecting a Clock makes
// time-dependent behavior (durations in events, the TimeLimit callback)
// testable without sleeping.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is the standard Clock backed by the system time.
type SystemClock struct{}

// NewSystemClock creates a new SystemClock.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns the current system time.
func (*SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock is a Clock that returns a controllable time.
// Useful for testing time-dependent functionality.
type FixedClock struct {
	now time.Time
}

// NewFixedClock creates a FixedClock pinned to t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{now: t}
}

// Now returns the pinned time.
func (c *FixedClock) Now() time.Time {
	return c.now
}

// Set pins the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.now = t
}

// Advance moves the pinned time forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// Compile-time checks that both clocks implement Clock.
var (
	_ Clock = (*SystemClock)(nil)
	_ Clock = (*FixedClock)(nil)
)
