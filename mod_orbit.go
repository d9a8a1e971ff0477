package spincube

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const orbitEPS = 1e-6

// OrbitControls orbits the camera around Camera.Target. Input adds to a
// pending delta; Update applies it once per frame. With damping on, only a
// fraction of the delta is applied and the rest decays over later frames, so
// Update must run every frame.
type OrbitControls struct {
	Camera *Camera

	Enabled       bool
	EnableDamping bool
	DampingFactor float64
	RotateSpeed   float64
	ZoomSpeed     float64
	MinDistance   float64
	MaxDistance   float64

	thetaDelta float64
	phiDelta   float64
	scale      float64
}

func NewOrbitControls(camera *Camera) *OrbitControls {
	return &OrbitControls{
		Camera:        camera,
		Enabled:       true,
		EnableDamping: true,
		DampingFactor: 0.05,
		RotateSpeed:   1,
		ZoomSpeed:     1,
		MaxDistance:   math.Inf(1),
		scale:         1,
	}
}

// RotateLeft turns the camera around the vertical axis by angle radians.
func (c *OrbitControls) RotateLeft(angle float64) {
	c.thetaDelta -= angle
}

// RotateUp tilts the camera toward the pole by angle radians.
func (c *OrbitControls) RotateUp(angle float64) {
	c.phiDelta -= angle
}

// Drag converts a pointer movement in pixels into a rotation. A drag across
// the full viewport height is one full turn.
func (c *OrbitControls) Drag(dx, dy float64, viewportHeight int) {
	if viewportHeight <= 0 {
		return
	}
	h := float64(viewportHeight)
	c.RotateLeft(2 * math.Pi * dx / h * c.RotateSpeed)
	c.RotateUp(2 * math.Pi * dy / h * c.RotateSpeed)
}

func (c *OrbitControls) zoomScale() float64 {
	return math.Pow(0.95, c.ZoomSpeed)
}

// Dolly moves the camera toward the target for positive steps and away for
// negative ones.
func (c *OrbitControls) Dolly(steps float64) {
	if steps == 0 {
		return
	}
	c.scale *= math.Pow(c.zoomScale(), steps)
}

// Pending reports whether some rotation is still waiting to be applied.
func (c *OrbitControls) Pending() bool {
	return math.Abs(c.thetaDelta) > orbitEPS || math.Abs(c.phiDelta) > orbitEPS || math.Abs(c.scale-1) > orbitEPS
}

// Update applies the pending movement and reports whether the camera moved.
func (c *OrbitControls) Update() bool {
	if c.Camera == nil {
		return false
	}
	target := c.Camera.Target
	offset := c.Camera.Position.Sub(target)

	radius := float64(offset.Len())
	if radius < orbitEPS {
		return false
	}
	theta := math.Atan2(float64(offset.X()), float64(offset.Z()))
	phi := math.Acos(float64(mgl32.Clamp(offset.Y()/float32(radius), -1, 1)))

	if c.EnableDamping {
		theta += c.thetaDelta * c.DampingFactor
		phi += c.phiDelta * c.DampingFactor
	} else {
		theta += c.thetaDelta
		phi += c.phiDelta
	}
	phi = math.Max(orbitEPS, math.Min(math.Pi-orbitEPS, phi))

	radius *= c.scale
	radius = math.Max(c.MinDistance, math.Min(c.MaxDistance, radius))

	sinPhiR := math.Sin(phi) * radius
	next := target.Add(mgl32.Vec3{
		float32(sinPhiR * math.Sin(theta)),
		float32(math.Cos(phi) * radius),
		float32(sinPhiR * math.Cos(theta)),
	})

	if c.EnableDamping {
		c.thetaDelta *= 1 - c.DampingFactor
		c.phiDelta *= 1 - c.DampingFactor
	} else {
		c.thetaDelta, c.phiDelta = 0, 0
	}
	c.scale = 1

	moved := next.Sub(c.Camera.Position).Len() > orbitEPS
	c.Camera.Position = next
	return moved
}

// OrbitControlsModule attaches orbit controls to the scene camera. It needs
// the scene to be installed first.
type OrbitControlsModule struct {
	DisableDamping bool
}

func (mod OrbitControlsModule) Install(app *App, cmd *Commands) {
	scene := Resource[Scene](app)
	if scene == nil {
		panic("OrbitControlsModule requires SceneModule")
	}
	controls := NewOrbitControls(scene.Camera)
	controls.EnableDamping = !mod.DisableDamping
	cmd.AddResources(controls)

	app.UseSystem(
		System(orbitInputSystem).
			InStage(PreUpdate),
	)
	app.UseSystem(
		System(orbitControlsSystem).
			InStage(PostRender),
	)
}

func orbitInputSystem(input *Input, viewport *Viewport, controls *OrbitControls) {
	if !controls.Enabled {
		return
	}
	if input.Pressed[MouseButtonLeft] && !input.JustPressed[MouseButtonLeft] {
		controls.Drag(input.MouseDeltaX, input.MouseDeltaY, viewport.Height)
	}
	controls.Dolly(input.ScrollY)
}

func orbitControlsSystem(controls *OrbitControls) {
	controls.Update()
}
