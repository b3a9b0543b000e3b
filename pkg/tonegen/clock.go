// ABOUTME: Sample clock and wall clock abstractions
// ABOUTME: SampleClock counts frames; Clock lets tests replace real timers
package tonegen

import "time"

// SampleClock counts frames produced. It only ever moves forward by one.
type SampleClock struct {
	n float64
}

// Advance moves the clock forward one frame and returns the new value
func (c *SampleClock) Advance() float64 {
	c.n++
	return c.n
}

// Value returns the number of frames produced so far
func (c *SampleClock) Value() float64 {
	return c.n
}

// Clock supplies wall time to the driver
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the real-time Clock
type SystemClock struct{}

func (SystemClock) Now() time.Time                         { return time.Now() }
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
