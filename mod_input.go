package spincube

import (
	"strings"
	"time"
)

const (
	KeyA int = iota
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	KeySpace
	KeyEnter
	KeyEscape
	KeyTab
	KeyRight
	KeyLeft
	KeyDown
	KeyUp
	KeyShift
	MouseButtonLeft
	MouseButtonRight
	MouseButtonMiddle

	keyCount
)

// DoubleClickInterval is the longest gap between two left presses that still
// counts as a double-click.
const DoubleClickInterval = 300 * time.Millisecond

// Display is the drawing surface the app runs on.
type Display interface {
	Size() (width, height int)
	PixelRatio() float64
	Fullscreen() bool
	SetFullscreen(on bool)
	ShouldClose() bool
}

// inputPoller is implemented by displays that deliver input events.
type inputPoller interface {
	PollInput(input *Input)
}

// Screen holds the active display as a resource.
type Screen struct {
	Display Display
}

type Input struct {
	Pressed      [keyCount]bool
	JustPressed  [keyCount]bool
	JustReleased [keyCount]bool

	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64
	ScrollY                  float64

	DoubleClicked bool
	Resized       bool

	// Now defaults to time.Now; replaced in tests.
	Now func() time.Time

	lastClick   time.Time
	forceResize bool
	cursorSeen  bool
}

func NewInput() *Input {
	return &Input{Now: time.Now, forceResize: true}
}

// BeginFrame clears the per-frame edges before new events are applied.
func (in *Input) BeginFrame() {
	for i := range in.JustPressed {
		in.JustPressed[i] = false
		in.JustReleased[i] = false
	}
	in.MouseDeltaX, in.MouseDeltaY = 0, 0
	in.ScrollY = 0
	in.DoubleClicked = false
	in.Resized = in.forceResize
	in.forceResize = false
}

// RequestResize makes the next frame behave as if the display was resized.
func (in *Input) RequestResize() {
	in.forceResize = true
}

// SetKey records the state of a key or mouse button.
func (in *Input) SetKey(key int, down bool) {
	if key < 0 || key >= keyCount {
		return
	}
	if down {
		if !in.Pressed[key] {
			in.JustPressed[key] = true
			if key == MouseButtonLeft {
				in.registerClick()
			}
		}
		in.Pressed[key] = true
	} else {
		if in.Pressed[key] {
			in.JustReleased[key] = true
		}
		in.Pressed[key] = false
	}
}

func (in *Input) registerClick() {
	now := time.Now()
	if in.Now != nil {
		now = in.Now()
	}
	if !in.lastClick.IsZero() && now.Sub(in.lastClick) <= DoubleClickInterval {
		in.DoubleClicked = true
		// a third click starts a new pair
		in.lastClick = time.Time{}
		return
	}
	in.lastClick = now
}

func (in *Input) MoveCursor(x, y float64) {
	if in.cursorSeen {
		in.MouseDeltaX += x - in.MouseX
		in.MouseDeltaY += y - in.MouseY
	}
	in.MouseX, in.MouseY = x, y
	in.cursorSeen = true
}

func (in *Input) Scroll(dy float64) {
	in.ScrollY += dy
}

// KeyFromName maps a single letter ("g") or a key name ("space", "tab") to a key.
func KeyFromName(name string) (int, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if len(n) == 1 && n[0] >= 'a' && n[0] <= 'z' {
		return KeyA + int(n[0]-'a'), true
	}
	switch n {
	case "space":
		return KeySpace, true
	case "enter":
		return KeyEnter, true
	case "escape", "esc":
		return KeyEscape, true
	case "tab":
		return KeyTab, true
	}
	return 0, false
}

type InputModule struct{}

func (mod InputModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewInput())
	app.UseSystem(
		System(inputSystem).
			InStage(PreUpdate),
	)
	app.UseSystem(
		System(fullscreenSystem).
			InStage(PreUpdate),
	)
	app.UseSystem(
		System(displayCloseSystem).
			InStage(Finale),
	)
}

func inputSystem(input *Input, screen *Screen) {
	input.BeginFrame()
	if p, ok := screen.Display.(inputPoller); ok {
		p.PollInput(input)
	}
}

// ToggleFullscreen flips the display between windowed and fullscreen.
func ToggleFullscreen(d Display) bool {
	on := !d.Fullscreen()
	d.SetFullscreen(on)
	return on
}

func fullscreenSystem(input *Input, screen *Screen, cmd *Commands) {
	if input.DoubleClicked {
		on := ToggleFullscreen(screen.Display)
		cmd.Logger().Debugf("Fullscreen: %t", on)
	} else if input.JustPressed[KeyEscape] && screen.Display.Fullscreen() {
		screen.Display.SetFullscreen(false)
	}
}

func displayCloseSystem(screen *Screen, cmd *Commands) {
	if screen.Display.ShouldClose() {
		cmd.Quit()
	}
}
