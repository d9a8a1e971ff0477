package spincube

// HeadlessDisplay is a fixed size Display with no window behind it. Tests and
// snapshot runs drive it directly.
type HeadlessDisplay struct {
	Width  int
	Height int
	Ratio  float64

	fullscreen bool
	closed     bool
}

func NewHeadlessDisplay(width, height int) *HeadlessDisplay {
	return &HeadlessDisplay{Width: width, Height: height, Ratio: 1}
}

func (d *HeadlessDisplay) Size() (int, int) {
	return d.Width, d.Height
}

func (d *HeadlessDisplay) PixelRatio() float64 {
	return d.Ratio
}

func (d *HeadlessDisplay) Fullscreen() bool {
	return d.fullscreen
}

func (d *HeadlessDisplay) SetFullscreen(on bool) {
	d.fullscreen = on
}

func (d *HeadlessDisplay) ShouldClose() bool {
	return d.closed
}

func (d *HeadlessDisplay) Close() {
	d.closed = true
}

// Resize changes the size; the next frame picks it up through Input.Resized.
func (d *HeadlessDisplay) Resize(width, height int, input *Input) {
	d.Width, d.Height = width, height
	if input != nil {
		input.RequestResize()
	}
}

// HeadlessModule installs a HeadlessDisplay as the Screen. With Frames > 0 the
// app quits after that many frames.
type HeadlessModule struct {
	Width  int
	Height int
	Frames uint64
}

type frameLimit struct {
	frames uint64
}

func (mod HeadlessModule) Install(app *App, cmd *Commands) {
	width, height := mod.Width, mod.Height
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 600
	}
	display := NewHeadlessDisplay(width, height)
	cmd.AddResources(display, &Screen{Display: display})
	cmd.Logger().Infof("Headless display %dx%d", width, height)

	if mod.Frames > 0 {
		cmd.AddResources(&frameLimit{frames: mod.Frames})
		app.UseSystem(
			System(frameLimitSystem).
				InStage(Finale),
		)
	}
}

func frameLimitSystem(limit *frameLimit, cmd *Commands) {
	// Frame counts completed frames; this one finishes after Finale
	if cmd.Frame()+1 >= limit.frames {
		cmd.Quit()
	}
}
