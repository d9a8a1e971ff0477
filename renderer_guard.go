package spincube

import (
	"fmt"
)

// RendererSlot holds the one renderer of the App. Name is set as soon as a
// renderer module is selected; Renderer once it has been created.
type RendererSlot struct {
	Name     RendererName
	Renderer Renderer
}

// ensureSingleRenderer enforces a single renderer per App. Selecting a
// different renderer after one was installed panics.
func ensureSingleRenderer(app *App, name RendererName) *RendererSlot {
	if app == nil {
		panic("ensureSingleRenderer: app is nil")
	}
	if slot := Resource[RendererSlot](app); slot != nil {
		if slot.Name != name {
			app.Logger().Errorf("Multiple renderers installed: %s and %s", slot.Name, name)
			panic(fmt.Sprintf("Multiple renderers installed: %s and %s", slot.Name, name))
		}
		return slot
	}
	slot := &RendererSlot{Name: name}
	app.addResources(slot)
	return slot
}
