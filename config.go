package spincube

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("invalid config")

type WindowConfig struct {
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Title      string `toml:"title"`
	Fullscreen bool   `toml:"fullscreen"`
}

type AssetsConfig struct {
	Dir     string `toml:"dir"`
	Watch   bool   `toml:"watch"`
	Workers int    `toml:"workers"`
}

type PanelConfig struct {
	Title     string `toml:"title"`
	Width     int    `toml:"width"`
	ToggleKey string `toml:"toggle_key"`
	Hidden    bool   `toml:"hidden"`
}

type LogConfig struct {
	Prefix string `toml:"prefix"`
	Debug  bool   `toml:"debug"`
}

// HeadlessConfig drives runs without a window. StepMs advances the clock by a
// fixed amount per frame; zero uses the wall clock.
type HeadlessConfig struct {
	Enabled bool   `toml:"enabled"`
	Frames  uint64 `toml:"frames"`
	StepMs  int    `toml:"step_ms"`
	Output  string `toml:"output"`
}

func (h HeadlessConfig) Step() time.Duration {
	return time.Duration(h.StepMs) * time.Millisecond
}

type Config struct {
	Renderer string         `toml:"renderer"`
	Variant  string         `toml:"variant"`
	Damping  bool           `toml:"damping"`
	Window   WindowConfig   `toml:"window"`
	Assets   AssetsConfig   `toml:"assets"`
	Panel    PanelConfig    `toml:"panel"`
	Log      LogConfig      `toml:"log"`
	Headless HeadlessConfig `toml:"headless"`
}

func DefaultConfig() Config {
	return Config{
		Renderer: string(RendererWGPU),
		Variant:  string(VariantWireframe),
		Damping:  true,
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "spincube",
		},
		Assets: AssetsConfig{
			Dir:     "static/textures",
			Workers: 2,
		},
		Panel: PanelConfig{
			Title:     DefaultPanelTitle,
			Width:     DefaultPanelWidth,
			ToggleKey: DefaultPanelToggle,
		},
		Log: LogConfig{
			Prefix: "spincube",
		},
		Headless: HeadlessConfig{
			Frames: 60,
			StepMs: 16,
		},
	}
}

// LoadConfig reads a TOML file over DefaultConfig. Keys missing from the file
// keep their defaults; unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := DecodeConfig(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// DecodeConfig decodes TOML onto cfg and validates the result.
func DecodeConfig(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strict.String())
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("%w: line %d column %d: %v", ErrInvalidConfig, row, col, derr)
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg.Validate()
}

// Encode renders the config as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

func (c Config) Validate() error {
	var errs []error
	if _, err := ParseRendererName(c.Renderer); err != nil {
		errs = append(errs, err)
	}
	if !Variant(c.Variant).Valid() {
		errs = append(errs, fmt.Errorf("unknown variant %q", c.Variant))
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Panel.Width <= 0 {
		errs = append(errs, fmt.Errorf("panel width %d", c.Panel.Width))
	}
	if _, ok := KeyFromName(c.Panel.ToggleKey); !ok {
		errs = append(errs, fmt.Errorf("panel toggle key %q", c.Panel.ToggleKey))
	}
	if c.Assets.Workers < 0 {
		errs = append(errs, fmt.Errorf("asset workers %d", c.Assets.Workers))
	}
	if c.Headless.StepMs < 0 {
		errs = append(errs, fmt.Errorf("headless step %dms", c.Headless.StepMs))
	}
	// a headless display never closes, so the frame limit is the only way out
	if c.Headless.Enabled && c.Headless.Frames == 0 {
		errs = append(errs, errors.New("headless frames must be > 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// RendererName is the renderer to install. Headless runs have no surface, so
// they always use the software renderer.
func (c Config) RendererName() RendererName {
	if c.Headless.Enabled {
		return RendererSoftware
	}
	name, err := ParseRendererName(c.Renderer)
	if err != nil {
		return RendererWGPU
	}
	return name
}

// Modules returns the modules for cfg in install order. The renderer is
// installed separately with App.UseRenderer.
func (c Config) Modules() (before []Module, after []Module) {
	clock := ClockModule{}
	if c.Headless.Enabled {
		clock.Step = c.Headless.Step()
	}
	before = []Module{
		LoggingModule{Prefix: c.Log.Prefix, Debug: c.Log.Debug},
		clock,
		InputModule{},
	}
	if c.Headless.Enabled {
		before = append(before, HeadlessModule{Width: c.Window.Width, Height: c.Window.Height, Frames: c.Headless.Frames})
	} else {
		window := NewPlatformWindow(c.Window.Width, c.Window.Height, c.Window.Title)
		window.Fullscreen = c.Window.Fullscreen
		before = append(before, *window)
	}
	before = append(before, ParamsModule{})
	if Variant(c.Variant) == VariantTextured {
		before = append(before, AssetServerModule{Workers: c.Assets.Workers, Watch: c.Assets.Watch})
	}
	before = append(before,
		SceneModule{Variant: Variant(c.Variant), TextureDir: c.Assets.Dir, Width: c.Window.Width, Height: c.Window.Height},
		ViewportModule{},
	)

	after = []Module{
		SpinActionsModule{},
		AnimationModule{},
		OrbitControlsModule{DisableDamping: !c.Damping},
		DebugPanelModule{Title: c.Panel.Title, Width: c.Panel.Width, ToggleKey: c.Panel.ToggleKey, Hidden: c.Panel.Hidden},
	}
	return before, after
}

// BuildApp installs every module for cfg, the renderer included.
func BuildApp(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	name := cfg.RendererName()
	renderer, err := RendererModuleFor(name)
	if err != nil {
		return nil, err
	}
	before, after := cfg.Modules()
	app := NewApp().UseModules(before...)
	app.UseRenderer(name, renderer)
	app.UseModules(after...)
	return app, nil
}

// Shutdown releases the renderer, the loaders and the window, in that order.
func (app *App) Shutdown() {
	if slot := Resource[RendererSlot](app); slot != nil && slot.Renderer != nil {
		slot.Renderer.Close()
	}
	if assets := Resource[AssetServer](app); assets != nil {
		assets.Close()
	}
	if window := Resource[WindowState](app); window != nil {
		window.Destroy()
	}
}
