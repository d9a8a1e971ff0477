package spincube

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSteppedClock(t *testing.T) {
	c := NewSteppedClock(100 * time.Millisecond)
	assert.False(t, c.Started())
	assert.Zero(t, c.Sample(), "first sample starts the clock")
	assert.True(t, c.Started())
	assert.InDelta(t, 0.1, c.Sample(), 1e-9)
	assert.InDelta(t, 0.2, c.Sample(), 1e-9)
	assert.InDelta(t, 0.2, c.Elapsed, 1e-9)
}

func TestClockIsMonotonic(t *testing.T) {
	c := NewClock()
	prev := c.Sample()
	assert.Zero(t, prev)
	for i := 0; i < 100; i++ {
		next := c.Sample()
		assert.GreaterOrEqual(t, next, prev)
		prev = next
	}
}

func TestClock_StartsOnFirstSample(t *testing.T) {
	c := NewClock()
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, c.Sample())
	assert.Less(t, c.Sample(), 0.05)
}

func TestClockModule_SamplesOncePerFrame(t *testing.T) {
	app := NewApp().UseModules(ClockModule{Step: time.Second})
	var seen []float64
	app.UseSystem(System(func(c *Clock) { seen = append(seen, c.Elapsed) }))
	app.UseSystem(System(func(c *Clock) { seen = append(seen, c.Elapsed) }).InStage(Finale))

	app.Step()
	app.Step()
	app.Step()
	assert.Equal(t, []float64{0, 0, 1, 1, 2, 2}, seen)
}

func TestClockModule_SetupTimeDoesNotSpin(t *testing.T) {
	app := NewApp().UseModules(ClockModule{}, ParamsModule{}, SceneModule{Variant: VariantWireframe, Width: 160, Height: 120}, AnimationModule{})
	// slow window and device setup happens between install and the first frame
	time.Sleep(200 * time.Millisecond)
	app.Step()

	driver := Resource[AnimationDriver](app)
	require.NotNil(t, driver)
	assert.Zero(t, driver.CurrentRotationY)
	assert.Zero(t, Resource[Scene](app).Mesh.Rotation.Y())

	time.Sleep(20 * time.Millisecond)
	app.Step()
	assert.Greater(t, driver.CurrentRotationY, 0.0)
	assert.Less(t, driver.CurrentRotationY, math.Pi/2)
}
