package clock

import "time"

// FakeClock is a Clock pinned to a fixed instant, used by tests that assert
// audit timestamps. It normalizes to UTC the same way SystemClock does.
type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Set repins the clock to a new instant.
func (c *FakeClock) Set(t time.Time) {
	c.now = t.UTC()
}

// Advance moves the clock forward (or backward, with a negative duration).
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
