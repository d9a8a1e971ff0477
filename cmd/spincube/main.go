package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/gekko3d/spincube"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "TOML config file")
	renderer := flag.String("renderer", "", "renderer: wgpu or software (headless always uses software)")
	variant := flag.String("variant", "", "cube variant: wireframe or textured")
	textures := flag.String("textures", "", "texture directory for the textured variant")
	watch := flag.Bool("watch", false, "reload textures when their files change")
	headless := flag.Bool("headless", false, "render without a window (software renderer)")
	frames := flag.Uint64("frames", 0, "frames to render in headless mode (> 0)")
	out := flag.String("out", "", "write the last headless frame as PNG")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg := spincube.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = spincube.LoadConfig(*configPath); err != nil {
			return err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "renderer":
			cfg.Renderer = *renderer
		case "variant":
			cfg.Variant = *variant
		case "textures":
			cfg.Assets.Dir = *textures
		case "watch":
			cfg.Assets.Watch = *watch
		case "headless":
			cfg.Headless.Enabled = *headless
		case "frames":
			cfg.Headless.Frames = *frames
		case "out":
			cfg.Headless.Output = *out
		case "debug":
			cfg.Log.Debug = *debug
		}
	})

	app, err := spincube.BuildApp(cfg)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	app.Run()

	if cfg.Headless.Enabled && cfg.Headless.Output != "" {
		slot := spincube.Resource[spincube.RendererSlot](app)
		sw, ok := slot.Renderer.(*spincube.SoftwareRenderer)
		if !ok {
			return fmt.Errorf("snapshot needs the software renderer, have %s", slot.Name)
		}
		if err := sw.SavePNG(cfg.Headless.Output); err != nil {
			return err
		}
		app.Logger().Infof("Saved %s", cfg.Headless.Output)
	}
	return nil
}
