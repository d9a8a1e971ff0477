package spincube

import "math"

// MaxPixelRatio caps the device pixel ratio used for the render target.
const MaxPixelRatio = 2.0

// RenderTarget is the part of a renderer that follows the viewport.
type RenderTarget interface {
	SetSize(width, height int)
	SetPixelRatio(ratio float64)
}

// Viewport keeps the camera and the render target in step with the display.
type Viewport struct {
	Width      int
	Height     int
	PixelRatio float64
}

// Resize applies a new display size. Zero sizes (a minimized window) are
// ignored and the previous size is kept. Repeating a call with the same
// arguments leaves every observable value unchanged.
func (v *Viewport) Resize(width, height int, devicePixelRatio float64, camera *Camera, target RenderTarget) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	ratio := devicePixelRatio
	if math.IsNaN(ratio) || ratio <= 0 {
		ratio = 1
	}
	ratio = min(ratio, MaxPixelRatio)

	v.Width = width
	v.Height = height
	v.PixelRatio = ratio

	if camera != nil {
		camera.SetAspect(float32(width) / float32(height))
		camera.UpdateProjectionMatrix()
	}
	if target != nil {
		target.SetSize(width, height)
		target.SetPixelRatio(ratio)
	}
	return true
}

// DrawingBufferSize is the size in device pixels.
func (v *Viewport) DrawingBufferSize() (int, int) {
	return int(math.Floor(float64(v.Width) * v.PixelRatio)), int(math.Floor(float64(v.Height) * v.PixelRatio))
}

type ViewportModule struct{}

func (ViewportModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Viewport{PixelRatio: 1})
	app.UseSystem(
		System(viewportSystem).
			InStage(PreUpdate),
	)
}

func viewportSystem(input *Input, screen *Screen, viewport *Viewport, scene *Scene, slot *RendererSlot, cmd *Commands) {
	if !input.Resized {
		return
	}
	w, h := screen.Display.Size()
	var target RenderTarget
	if slot.Renderer != nil {
		target = slot.Renderer
	}
	if viewport.Resize(w, h, screen.Display.PixelRatio(), scene.Camera, target) {
		cmd.Logger().Debugf("Viewport %dx%d @%.2f", viewport.Width, viewport.Height, viewport.PixelRatio)
	}
}
