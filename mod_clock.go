package spincube

import (
	"time"
)

// Clock is a monotonic session clock. Elapsed is sampled once per frame in
// Prelude, so every system of a frame sees the same value. The clock starts on
// its first sample, which reads 0; window and device setup done after install
// does not count as animation time.
type Clock struct {
	Start   time.Time
	Elapsed float64 // seconds since Start

	started bool
	now     func() time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewSteppedClock advances by a fixed step on every sample after the first;
// used for headless runs and tests where frame timing must be deterministic.
func NewSteppedClock(step time.Duration) *Clock {
	current := time.Unix(0, 0)
	return &Clock{
		now: func() time.Time {
			current = current.Add(step)
			return current
		},
	}
}

// Started reports whether the clock has been sampled.
func (c *Clock) Started() bool {
	return c.started
}

// Sample reads the clock and stores the elapsed seconds.
func (c *Clock) Sample() float64 {
	now := c.now()
	if !c.started {
		c.Start = now
		c.started = true
	}
	// time.Time.Sub uses the monotonic reading when present
	c.Elapsed = now.Sub(c.Start).Seconds()
	return c.Elapsed
}

type ClockModule struct {
	// Step switches to a stepped clock when non-zero.
	Step time.Duration
}

func (mod ClockModule) Install(app *App, cmd *Commands) {
	clock := NewClock()
	if mod.Step > 0 {
		clock = NewSteppedClock(mod.Step)
	}
	cmd.AddResources(clock)
	app.UseSystem(
		System(clockSystem).
			InStage(Prelude),
	)
}

func clockSystem(clock *Clock) {
	clock.Sample()
}
