package spincube

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultPanelTitle  = "Debug UI"
	DefaultPanelWidth  = 300
	DefaultPanelToggle = "g"

	panelRowHeight = 18
	panelPadding   = 6
	colorHueStep   = 30.0
)

// Control is one row of the debug panel.
type Control interface {
	Label() string
	Value() string
	// Nudge moves the value one step in dir (-1 or +1).
	Nudge(dir int)
	// Activate runs an action or flips a toggle.
	Activate()
}

// NumberBinding reads and writes a numeric property.
type NumberBinding struct {
	Get func() float64
	Set func(float64)
}

func Float32Ref(p *float32) NumberBinding {
	return NumberBinding{
		Get: func() float64 { return float64(*p) },
		Set: func(v float64) { *p = float32(v) },
	}
}

func Float64Ref(p *float64) NumberBinding {
	return NumberBinding{
		Get: func() float64 { return *p },
		Set: func(v float64) { *p = v },
	}
}

// NumberControl is a slider limited to [Min, Max] on a Step grid.
type NumberControl struct {
	Name     string
	Min      float64
	Max      float64
	Step     float64
	Binding  NumberBinding
	OnChange func(float64)
}

func (c *NumberControl) Label() string { return c.Name }

func (c *NumberControl) Value() string {
	decimals := 0
	if c.Step > 0 && c.Step < 1 {
		decimals = int(math.Ceil(-math.Log10(c.Step)))
	}
	return strconv.FormatFloat(c.Binding.Get(), 'f', decimals, 64)
}

// SetValue stores v after clamping and quantizing it.
func (c *NumberControl) SetValue(v float64) float64 {
	v = clampStep(v, c.Min, c.Max, c.Step)
	c.Binding.Set(v)
	if c.OnChange != nil {
		c.OnChange(v)
	}
	return v
}

func (c *NumberControl) Nudge(dir int) {
	c.SetValue(c.Binding.Get() + float64(dir)*c.Step)
}

func (c *NumberControl) Activate() {}

type BoolControl struct {
	Name     string
	Ref      *bool
	OnChange func(bool)
}

func (c *BoolControl) Label() string { return c.Name }

func (c *BoolControl) Value() string {
	if *c.Ref {
		return "[x]"
	}
	return "[ ]"
}

func (c *BoolControl) Nudge(dir int) { c.Activate() }

func (c *BoolControl) Activate() {
	*c.Ref = !*c.Ref
	if c.OnChange != nil {
		c.OnChange(*c.Ref)
	}
}

// ColorControl edits a hex color. Nudging rotates the hue.
type ColorControl struct {
	Name     string
	Get      func() string
	Set      func(string) error
	OnChange func(string)
}

func (c *ColorControl) Label() string { return c.Name }

func (c *ColorControl) Value() string { return c.Get() }

// SetValue stores hex and notifies OnChange. Invalid colors are rejected and
// leave the old value in place.
func (c *ColorControl) SetValue(hex string) error {
	if err := c.Set(hex); err != nil {
		return err
	}
	if c.OnChange != nil {
		c.OnChange(c.Get())
	}
	return nil
}

func (c *ColorControl) Nudge(dir int) {
	cur, err := ParseHexColor(c.Get())
	if err != nil {
		return
	}
	h, s, v := cur.Hsv()
	h = math.Mod(h+float64(dir)*colorHueStep+360, 360)
	_ = c.SetValue(colorful.Hsv(h, s, v).Clamped().Hex())
}

func (c *ColorControl) Activate() {}

// ActionControl runs a zero-argument procedure when activated.
type ActionControl struct {
	Name string
	Do   func()
}

func (c *ActionControl) Label() string { return c.Name }

func (c *ActionControl) Value() string { return ">" }

func (c *ActionControl) Nudge(dir int) {}

func (c *ActionControl) Activate() {
	if c.Do != nil {
		c.Do()
	}
}

type Folder struct {
	Name     string
	Controls []Control
}

func (f *Folder) Add(c Control) Control {
	f.Controls = append(f.Controls, c)
	return c
}

// Panel is the in-window debug panel. It keeps no state between sessions.
type Panel struct {
	Title     string
	Width     int
	Hidden    bool
	ToggleKey int

	Folders []*Folder

	selected int

	// rasterized overlay, rebuilt when the rendered text changes
	image   *image.RGBA
	lines   []string
	version uint64
}

func NewPanel(title string, width int) *Panel {
	if width <= 0 {
		width = DefaultPanelWidth
	}
	return &Panel{
		Title:     title,
		Width:     width,
		ToggleKey: KeyG,
	}
}

func (p *Panel) AddFolder(name string) *Folder {
	f := &Folder{Name: name}
	p.Folders = append(p.Folders, f)
	return f
}

// Toggle flips visibility and reports whether the panel is now shown.
func (p *Panel) Toggle() bool {
	p.Hidden = !p.Hidden
	return !p.Hidden
}

func (p *Panel) Visible() bool {
	return !p.Hidden
}

// Controls lists every control in display order.
func (p *Panel) Controls() []Control {
	var all []Control
	for _, f := range p.Folders {
		all = append(all, f.Controls...)
	}
	return all
}

// Find returns the first control with the given label.
func (p *Panel) Find(label string) Control {
	for _, c := range p.Controls() {
		if c.Label() == label {
			return c
		}
	}
	return nil
}

func (p *Panel) Selected() Control {
	all := p.Controls()
	if len(all) == 0 {
		return nil
	}
	return all[p.selected]
}

func (p *Panel) Select(dir int) {
	n := len(p.Controls())
	if n == 0 {
		return
	}
	p.selected = ((p.selected+dir)%n + n) % n
}

// HandleInput applies the frame's key presses. The toggle key works while
// hidden; navigation only while shown.
func (p *Panel) HandleInput(input *Input) {
	if input.JustPressed[p.ToggleKey] {
		p.Toggle()
	}
	if p.Hidden {
		return
	}
	switch {
	case input.JustPressed[KeyUp]:
		p.Select(-1)
	case input.JustPressed[KeyDown]:
		p.Select(1)
	case input.JustPressed[KeyLeft]:
		if c := p.Selected(); c != nil {
			c.Nudge(-1)
		}
	case input.JustPressed[KeyRight]:
		if c := p.Selected(); c != nil {
			c.Nudge(1)
		}
	case input.JustPressed[KeyEnter], input.JustPressed[KeySpace]:
		if c := p.Selected(); c != nil {
			c.Activate()
		}
	}
}

func (p *Panel) textLines() []string {
	lines := []string{p.Title}
	sel := p.Selected()
	for _, f := range p.Folders {
		lines = append(lines, "v "+f.Name)
		for _, c := range f.Controls {
			marker := "  "
			if c == sel {
				marker = "> "
			}
			lines = append(lines, marker+c.Label()+"\t"+c.Value())
		}
	}
	return lines
}

// Overlay returns the rasterized panel and its version, or nil while hidden.
// The version changes whenever the image is redrawn.
func (p *Panel) Overlay() (*image.RGBA, uint64) {
	if p.Hidden {
		return nil, p.version
	}
	lines := p.textLines()
	if p.image == nil || !slices.Equal(lines, p.lines) {
		p.image = p.rasterize(lines)
		p.lines = lines
		p.version++
	}
	return p.image, p.version
}

var (
	panelBackground = color.RGBA{0x1f, 0x1f, 0x1f, 0xe6}
	panelHeader     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	panelSelected   = color.RGBA{0x3a, 0x3a, 0x3a, 0xff}
	panelText       = color.RGBA{0xeb, 0xeb, 0xeb, 0xff}
	panelValue      = color.RGBA{0x2c, 0xc9, 0xff, 0xff}
)

func (p *Panel) rasterize(lines []string) *image.RGBA {
	h := len(lines)*panelRowHeight + panelPadding
	img := image.NewRGBA(image.Rect(0, 0, p.Width, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(panelBackground), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, p.Width, panelRowHeight), image.NewUniform(panelHeader), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Face: face}
	ascent := face.Metrics().Ascent.Ceil()

	for i, line := range lines {
		top := i * panelRowHeight
		baseline := top + (panelRowHeight-face.Height)/2 + ascent
		if strings.HasPrefix(line, "> ") {
			draw.Draw(img, image.Rect(0, top, p.Width, top+panelRowHeight), image.NewUniform(panelSelected), image.Point{}, draw.Src)
		}
		label, value, hasValue := strings.Cut(line, "\t")

		d.Src = image.NewUniform(panelText)
		d.Dot = fixed.P(panelPadding, baseline)
		d.DrawString(label)

		if hasValue {
			d.Src = image.NewUniform(panelValue)
			if sw, ok := swatchColor(value); ok {
				sx := p.Width - panelPadding - 12
				draw.Draw(img, image.Rect(sx, top+3, sx+12, top+panelRowHeight-3), image.NewUniform(sw), image.Point{}, draw.Src)
				value = ""
			}
			w := font.MeasureString(face, value).Ceil()
			d.Dot = fixed.P(p.Width-panelPadding-w, baseline)
			d.DrawString(value)
		}
	}
	return img
}

func swatchColor(value string) (color.RGBA, bool) {
	if !strings.HasPrefix(value, "#") {
		return color.RGBA{}, false
	}
	c, err := ParseHexColor(value)
	if err != nil {
		return color.RGBA{}, false
	}
	r, g, b := c.RGB255()
	return color.RGBA{r, g, b, 0xff}, true
}

// DebugPanelModule builds the three-folder panel over the parameter store and
// the scene. Install it after the scene and the spin actions.
type DebugPanelModule struct {
	Title     string
	Width     int
	ToggleKey string
	Hidden    bool
}

func (mod DebugPanelModule) Install(app *App, cmd *Commands) {
	params := Resource[Params](app)
	scene := Resource[Scene](app)
	if params == nil || scene == nil {
		panic("DebugPanelModule requires ParamsModule and SceneModule")
	}
	title := mod.Title
	if title == "" {
		title = DefaultPanelTitle
	}
	panel := NewPanel(title, mod.Width)
	panel.Hidden = mod.Hidden
	if mod.ToggleKey != "" {
		key, ok := KeyFromName(mod.ToggleKey)
		if !ok {
			panic(fmt.Sprintf("unknown panel toggle key %q", mod.ToggleKey))
		}
		panel.ToggleKey = key
	}
	BuildDebugPanel(panel, params, scene, cmd.Logger().With("panel"))
	cmd.AddResources(panel)

	app.UseSystem(
		System(panelInputSystem).
			InStage(PreUpdate),
	)
}

// BuildDebugPanel adds the Axes, Spins and Other folders.
func BuildDebugPanel(panel *Panel, params *Params, scene *Scene, log Logger) {
	mesh := scene.Mesh
	material := mesh.Material

	axes := panel.AddFolder("Axes")
	axes.Add(&NumberControl{Name: "x axis", Min: -3, Max: 3, Step: 0.01, Binding: Float32Ref(&mesh.Position[0])})
	axes.Add(&NumberControl{Name: "y axis", Min: -3, Max: 3, Step: 0.01, Binding: Float32Ref(&mesh.Position[1])})
	axes.Add(&NumberControl{Name: "z axis", Min: -3, Max: 1, Step: 0.01, Binding: Float32Ref(&mesh.Position[2])})

	invoke := func(name string) func() {
		return func() {
			if err := params.Invoke(name); err != nil {
				log.Warnf("Panel action: %v", err)
			}
		}
	}
	spins := panel.AddFolder("Spins")
	spins.Add(&ActionControl{Name: "spin x", Do: invoke("spinX")})
	spins.Add(&ActionControl{Name: "spin y", Do: invoke("spinY")})
	spins.Add(&ActionControl{Name: "spin z", Do: invoke("spinZ")})
	spins.Add(&ActionControl{Name: "rotate y", Do: invoke("rotateY")})
	spins.Add(&BoolControl{Name: "spinning", Ref: &params.Spinning})
	spins.Add(&NumberControl{
		Name: "spin speed",
		Min:  SpinSpeedMin,
		Max:  SpinSpeedMax,
		Step: SpinSpeedStep,
		Binding: NumberBinding{
			Get: func() float64 { return params.SpinSpeed },
			Set: func(v float64) { params.SetSpinSpeed(v) },
		},
	})

	other := panel.AddFolder("Other")
	other.Add(&BoolControl{Name: "wireframe", Ref: &material.Wireframe})
	other.Add(&ColorControl{
		Name: "color",
		Get:  func() string { return params.Color },
		Set:  params.SetColor,
		OnChange: func(hex string) {
			if err := material.SetColorHex(hex); err != nil {
				log.Warnf("Material color: %v", err)
			}
		},
	})
}

func panelInputSystem(input *Input, panel *Panel, cmd *Commands) {
	wasHidden := panel.Hidden
	panel.HandleInput(input)
	if wasHidden != panel.Hidden {
		cmd.Logger().With("panel").Debugf("Panel visible: %t", panel.Visible())
	}
}
