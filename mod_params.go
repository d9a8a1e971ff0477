package spincube

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	SpinSpeedMin  = 1.0
	SpinSpeedMax  = 12.0
	SpinSpeedStep = 1.0

	DefaultColor     = "#ff0000"
	DefaultSpinSpeed = 2.0
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidColor  = errors.New("invalid color")
)

// Params is the parameter store shared by the debug panel and the animation
// driver. Actions are invoked, never polled.
type Params struct {
	Color     string
	Spinning  bool
	SpinSpeed float64

	actions     map[string]func()
	actionOrder []string
}

func NewParams() *Params {
	return &Params{
		Color:     DefaultColor,
		Spinning:  true,
		SpinSpeed: DefaultSpinSpeed,
		actions:   make(map[string]func()),
	}
}

// SetSpinSpeed clamps v into [SpinSpeedMin, SpinSpeedMax] on the step grid
// and returns the stored value.
func (p *Params) SetSpinSpeed(v float64) float64 {
	p.SpinSpeed = clampStep(v, SpinSpeedMin, SpinSpeedMax, SpinSpeedStep)
	return p.SpinSpeed
}

// SetColor accepts "#rgb" or "#rrggbb" and stores the long lowercase form.
func (p *Params) SetColor(hex string) error {
	c, err := ParseHexColor(hex)
	if err != nil {
		return err
	}
	p.Color = c.Hex()
	return nil
}

func (p *Params) AddAction(name string, fn func()) {
	if _, ok := p.actions[name]; !ok {
		p.actionOrder = append(p.actionOrder, name)
	}
	p.actions[name] = fn
}

func (p *Params) Invoke(name string) error {
	fn, ok := p.actions[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	fn()
	return nil
}

// Actions lists action names in registration order.
func (p *Params) Actions() []string {
	return append([]string(nil), p.actionOrder...)
}

// ParseHexColor parses a CSS style hex color, expanding the 3-digit form.
func ParseHexColor(hex string) (colorful.Color, error) {
	s := strings.TrimSpace(hex)
	if len(s) == 4 && s[0] == '#' {
		s = string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("%w %q: %v", ErrInvalidColor, hex, err)
	}
	return c, nil
}

// clampStep limits v to [min, max] and snaps it to the nearest multiple of
// step counted from min. A non-positive step only clamps.
func clampStep(v, min, max, step float64) float64 {
	if math.IsNaN(v) {
		return min
	}
	if step > 0 {
		v = min + math.Round((v-min)/step)*step
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

type ParamsModule struct{}

func (ParamsModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewParams())
}
