package spincube

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func nan() float64 { return math.NaN() }

func TestSpinIncrement(t *testing.T) {
	assert.InDelta(t, math.Pi/2, SpinIncrement(2, 1), 1e-12)
	assert.InDelta(t, math.Pi/12, SpinIncrement(6, 0.5), 1e-12)
	assert.Equal(t, 0.0, SpinIncrement(5, 0))
}

func TestSpinIncrementFiniteOverSpeedRange(t *testing.T) {
	for speed := SpinSpeedMin; speed <= SpinSpeedMax; speed += SpinSpeedStep {
		for _, delta := range []float64{0, 0.001, 1.0 / 60, 0.5, 3} {
			inc := SpinIncrement(speed, delta)
			assert.False(t, math.IsInf(inc, 0) || math.IsNaN(inc), "speed %v delta %v", speed, delta)
			assert.GreaterOrEqual(t, inc, 0.0)
		}
	}
}

func TestSpinIncrementZeroSpeedPanics(t *testing.T) {
	assert.PanicsWithValue(t, ErrZeroSpinSpeed, func() {
		SpinIncrement(0, 1)
	})
}

func TestAnimationDriver_Advance(t *testing.T) {
	params := NewParams()
	mesh := NewMesh(BoxGeometry(1, 1, 1, 1, 1, 1), &Material{})
	d := &AnimationDriver{}

	delta := d.Advance(1, params, mesh)
	assert.Equal(t, 1.0, delta)
	assert.InDelta(t, math.Pi/2, d.CurrentRotationY, 1e-9)
	assert.InDelta(t, math.Pi/2, float64(mesh.Rotation.Y()), 1e-6)

	params.SetSpinSpeed(6)
	d.Advance(1.5, params, mesh)
	assert.InDelta(t, math.Pi/2+math.Pi/12, d.CurrentRotationY, 1e-9)
}

func TestAnimationDriver_PauseKeepsRotation(t *testing.T) {
	params := NewParams()
	mesh := NewMesh(BoxGeometry(1, 1, 1, 1, 1, 1), &Material{})
	d := &AnimationDriver{}

	d.Advance(1, params, mesh)
	stopped := d.CurrentRotationY

	params.Spinning = false
	d.Advance(2, params, mesh)
	d.Advance(5, params, mesh)
	assert.Equal(t, stopped, d.CurrentRotationY)
	assert.InDelta(t, stopped, float64(mesh.Rotation.Y()), 1e-6)

	// resuming continues from the stored angle; the paused time is not replayed
	params.Spinning = true
	d.Advance(6, params, mesh)
	assert.InDelta(t, stopped+math.Pi/2, d.CurrentRotationY, 1e-9)
}

func TestAnimationDriver_PausedLeavesMeshAlone(t *testing.T) {
	params := NewParams()
	params.Spinning = false
	mesh := NewMesh(BoxGeometry(1, 1, 1, 1, 1, 1), &Material{})
	mesh.Rotation[1] = 1.25

	(&AnimationDriver{}).Advance(1, params, mesh)
	assert.Equal(t, float32(1.25), mesh.Rotation.Y())
}
