package spincube

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

// RendererName identifies a concrete renderer module.
type RendererName string

const (
	RendererWGPU     RendererName = "wgpu"
	RendererSoftware RendererName = "software"
)

var ErrUnknownRenderer = errors.New("unknown renderer")

func ParseRendererName(s string) (RendererName, error) {
	switch name := RendererName(strings.ToLower(strings.TrimSpace(s))); name {
	case RendererWGPU, RendererSoftware:
		return name, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownRenderer, s)
}

// TextureSource resolves texture assets for a renderer.
type TextureSource interface {
	Texture(id AssetId) (*TextureAsset, bool)
}

// Overlay is a 2D image drawn over the top right corner of the scene.
type Overlay interface {
	// Overlay returns the current image, or nil if nothing should be drawn,
	// and a version that changes with the image.
	Overlay() (*image.RGBA, uint64)
}

// Renderer draws the scene. textures and overlay may be nil.
type Renderer interface {
	RenderTarget
	Render(scene *Scene, textures TextureSource, overlay Overlay) error
	Close()
}

// UseRenderer installs exactly one renderer module and schedules the render
// system. A failed frame is logged and then panics.
// Usage:
//
//	app.UseRenderer(RendererSoftware, SoftwareRendererModule{})
func (app *App) UseRenderer(name RendererName, mod Module) *App {
	ensureSingleRenderer(app, name)
	app.Logger().Infof("Renderer selected: %s", name)
	app.UseModules(mod)
	app.UseSystem(
		System(func(slot *RendererSlot, scene *Scene, cmd *Commands) {
			renderFrame(app, slot, scene, cmd.Logger().With("render"))
		}).
			InStage(Render),
	)
	return app
}

func renderFrame(app *App, slot *RendererSlot, scene *Scene, log Logger) {
	if slot.Renderer == nil {
		return
	}
	var textures TextureSource
	if assets := Resource[AssetServer](app); assets != nil {
		textures = assets
	}
	var overlay Overlay
	if panel := Resource[Panel](app); panel != nil {
		overlay = panel
	}
	if err := slot.Renderer.Render(scene, textures, overlay); err != nil {
		log.Errorf("Render %s: %v", slot.Name, err)
		panic(fmt.Errorf("render %s: %w", slot.Name, err))
	}
}

// RendererModuleFor returns the module that creates the named renderer.
func RendererModuleFor(name RendererName) (Module, error) {
	switch name {
	case RendererWGPU:
		return WgpuRendererModule{}, nil
	case RendererSoftware:
		return SoftwareRendererModule{}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownRenderer, name)
}
