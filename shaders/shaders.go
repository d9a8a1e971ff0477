package shaders

import (
	_ "embed"
)

//go:embed cube.wgsl
var CubeWGSL string

//go:embed overlay.wgsl
var OverlayWGSL string
