package spincube

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// WindowState is the GLFW backed Display. GLFW must be driven from the main
// OS thread; cmd/spincube locks it in init.
type WindowState struct {
	windowGlfw *glfw.Window
	title      string

	// windowed geometry restored when leaving fullscreen
	windowedX, windowedY int
	windowedW, windowedH int

	// filled by callbacks during glfw.PollEvents
	scrollY float64
	resized bool
}

func createWindowState(width int, height int, title string) (*WindowState, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // wgpu owns the surface, no GL context
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}

	s := &WindowState{
		windowGlfw: win,
		title:      title,
		windowedW:  width,
		windowedH:  height,
	}
	s.windowedX, s.windowedY = win.GetPos()

	win.SetSizeCallback(func(w *glfw.Window, width, height int) {
		s.resized = true
	})
	win.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		s.resized = true
	})
	win.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		s.scrollY += yoff
	})
	return s, nil
}

func (s *WindowState) Size() (int, int) {
	return s.windowGlfw.GetSize()
}

// PixelRatio is framebuffer pixels per window unit (2 on most HiDPI screens).
func (s *WindowState) PixelRatio() float64 {
	w, _ := s.windowGlfw.GetSize()
	fbw, _ := s.windowGlfw.GetFramebufferSize()
	if w <= 0 || fbw <= 0 {
		return 1
	}
	return float64(fbw) / float64(w)
}

func (s *WindowState) Fullscreen() bool {
	return s.windowGlfw.GetMonitor() != nil
}

func (s *WindowState) SetFullscreen(on bool) {
	if on == s.Fullscreen() {
		return
	}
	if on {
		s.windowedX, s.windowedY = s.windowGlfw.GetPos()
		s.windowedW, s.windowedH = s.windowGlfw.GetSize()
		monitor := glfw.GetPrimaryMonitor()
		if monitor == nil {
			return
		}
		mode := monitor.GetVideoMode()
		s.windowGlfw.SetMonitor(monitor, 0, 0, mode.Width, mode.Height, mode.RefreshRate)
	} else {
		s.windowGlfw.SetMonitor(nil, s.windowedX, s.windowedY, s.windowedW, s.windowedH, 0)
	}
	s.resized = true
}

func (s *WindowState) ShouldClose() bool {
	return s.windowGlfw.ShouldClose()
}

func (s *WindowState) SetTitle(title string) {
	s.title = title
	s.windowGlfw.SetTitle(title)
}

func (s *WindowState) PollInput(input *Input) {
	glfw.PollEvents()

	for key, glfwKey := range keyToGlfw {
		switch s.windowGlfw.GetKey(glfwKey) {
		case glfw.Press:
			input.SetKey(key, true)
		case glfw.Release:
			input.SetKey(key, false)
		}
	}

	for btn, glfwBtn := range mouseToGlfw {
		input.SetKey(btn, s.windowGlfw.GetMouseButton(glfwBtn) == glfw.Press)
	}

	input.MoveCursor(s.windowGlfw.GetCursorPos())
	input.Scroll(s.scrollY)
	s.scrollY = 0

	if s.resized {
		input.Resized = true
		s.resized = false
	}
}

func (s *WindowState) Destroy() {
	s.windowGlfw.Destroy()
	glfw.Terminate()
}

// PlatformWindowModule creates the GLFW window and exposes it as the Screen.
type PlatformWindowModule struct {
	Width      int
	Height     int
	Title      string
	Fullscreen bool
}

// NewPlatformWindow fills in defaults for zero values.
func NewPlatformWindow(width, height int, title string) *PlatformWindowModule {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if title == "" {
		title = "spincube"
	}
	return &PlatformWindowModule{
		Width:  width,
		Height: height,
		Title:  title,
	}
}

func (m PlatformWindowModule) Install(app *App, cmd *Commands) {
	ws, err := createWindowState(m.Width, m.Height, m.Title)
	if err != nil {
		panic(err)
	}
	if m.Fullscreen {
		ws.SetFullscreen(true)
	}
	cmd.AddResources(ws, &Screen{Display: ws})
	cmd.Logger().Infof("Created window (%dx%d) '%s'", m.Width, m.Height, m.Title)
}

var keyToGlfw = map[int]glfw.Key{
	KeyA:      glfw.KeyA,
	KeyB:      glfw.KeyB,
	KeyC:      glfw.KeyC,
	KeyD:      glfw.KeyD,
	KeyE:      glfw.KeyE,
	KeyF:      glfw.KeyF,
	KeyG:      glfw.KeyG,
	KeyH:      glfw.KeyH,
	KeyI:      glfw.KeyI,
	KeyJ:      glfw.KeyJ,
	KeyK:      glfw.KeyK,
	KeyL:      glfw.KeyL,
	KeyM:      glfw.KeyM,
	KeyN:      glfw.KeyN,
	KeyO:      glfw.KeyO,
	KeyP:      glfw.KeyP,
	KeyQ:      glfw.KeyQ,
	KeyR:      glfw.KeyR,
	KeyS:      glfw.KeyS,
	KeyT:      glfw.KeyT,
	KeyU:      glfw.KeyU,
	KeyV:      glfw.KeyV,
	KeyW:      glfw.KeyW,
	KeyX:      glfw.KeyX,
	KeyY:      glfw.KeyY,
	KeyZ:      glfw.KeyZ,
	KeySpace:  glfw.KeySpace,
	KeyEnter:  glfw.KeyEnter,
	KeyEscape: glfw.KeyEscape,
	KeyTab:    glfw.KeyTab,
	KeyRight:  glfw.KeyRight,
	KeyLeft:   glfw.KeyLeft,
	KeyDown:   glfw.KeyDown,
	KeyUp:     glfw.KeyUp,
	KeyShift:  glfw.KeyLeftShift,
}

var mouseToGlfw = map[int]glfw.MouseButton{
	MouseButtonLeft:   glfw.MouseButtonLeft,
	MouseButtonRight:  glfw.MouseButtonRight,
	MouseButtonMiddle: glfw.MouseButtonMiddle,
}
