package spincube

import (
	"errors"
	"math"
)

var ErrZeroSpinSpeed = errors.New("spin speed must be non-zero")

// AnimationDriver owns the spin state of the demo cube. CurrentRotationY is
// kept across pauses so resuming continues from where the cube stopped.
type AnimationDriver struct {
	PreviousTime     float64
	CurrentRotationY float64
}

// SpinIncrement is the rotation, in radians, for delta seconds at speed. A
// higher speed value spins slower: one half turn takes speed seconds.
func SpinIncrement(speed, delta float64) float64 {
	if speed == 0 {
		panic(ErrZeroSpinSpeed)
	}
	return math.Pi / speed * delta
}

// Advance consumes the clock sample for this frame and, while spinning,
// writes the accumulated rotation into the mesh's Y rotation.
func (d *AnimationDriver) Advance(elapsed float64, params *Params, mesh *Mesh) float64 {
	delta := elapsed - d.PreviousTime
	d.PreviousTime = elapsed

	if params.Spinning {
		d.CurrentRotationY += SpinIncrement(params.SpinSpeed, delta)
		if mesh != nil {
			mesh.Rotation[1] = float32(d.CurrentRotationY)
		}
	}
	return delta
}

// AnimationModule runs the spin step in PostUpdate, after tweens have moved
// the mesh in Update.
type AnimationModule struct{}

func (AnimationModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&AnimationDriver{})
	app.UseSystem(
		System(spinSystem).
			InStage(PostUpdate),
	)
}

func spinSystem(clock *Clock, driver *AnimationDriver, params *Params, scene *Scene) {
	driver.Advance(clock.Elapsed, params, scene.Mesh)
}
