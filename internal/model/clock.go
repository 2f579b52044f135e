package model

import "time"

// Clock is an injectable wall-clock source. Tests swap in a fixed or
// step-controlled implementation to drive deterministic event ordering.
type Clock interface {
	NowMillis() int64
}

// SystemClock is the production Clock, backed by time.Now.
type SystemClock struct{}

// NowMillis returns the current wall-clock time in milliseconds since the
// Unix epoch.
func (SystemClock) NowMillis() int64 {
	return time.Now().UnixMilli()
}

// FixedClock is a test Clock that always returns the same instant unless
// advanced explicitly.
type FixedClock struct {
	millis int64
}

// NewFixedClock returns a FixedClock starting at the given instant.
func NewFixedClock(startMillis int64) *FixedClock {
	return &FixedClock{millis: startMillis}
}

// NowMillis implements Clock.
func (c *FixedClock) NowMillis() int64 {
	return c.millis
}

// Advance moves the clock forward by delta milliseconds and returns the
// new instant.
func (c *FixedClock) Advance(delta int64) int64 {
	c.millis += delta
	return c.millis
}

// Set pins the clock to an explicit instant.
func (c *FixedClock) Set(millis int64) {
	c.millis = millis
}
