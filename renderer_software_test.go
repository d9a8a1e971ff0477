package spincube

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/fogleman/fauxgl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScene(wireframe bool) *Scene {
	material := &Material{Color: mgl32.Vec3{1, 0, 0}, Wireframe: wireframe}
	camera := NewPerspectiveCamera(CameraFov, 1, CameraNear, CameraFar)
	camera.Position = mgl32.Vec3{0, 0, 2}
	return &Scene{
		Mesh:   NewMesh(BoxGeometry(1, 1, 1, 2, 2, 2), material),
		Camera: camera,
	}
}

func countReddish(img *image.RGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if c.R > 128 && c.G < 64 && c.B < 64 {
				n++
			}
		}
	}
	return n
}

func TestSoftwareRenderer_Solid(t *testing.T) {
	r := NewSoftwareRenderer()
	r.SetSize(64, 64)
	require.NoError(t, r.Render(newTestScene(false), nil, nil))

	frame := r.Frame()
	require.NotNil(t, frame)
	assert.Equal(t, image.Rect(0, 0, 64, 64), frame.Bounds())
	c := frame.RGBAAt(32, 32)
	assert.Greater(t, c.R, uint8(200), "cube covers the center, got %v", c)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, frame.RGBAAt(0, 0), "background in the corner")
}

func TestSoftwareRenderer_Wireframe(t *testing.T) {
	r := NewSoftwareRenderer()
	r.SetSize(96, 96)
	scene := newTestScene(true)
	require.NoError(t, r.Render(scene, nil, nil))

	edges := countReddish(r.Frame())
	assert.Greater(t, edges, 0)
	assert.Less(t, edges, 96*96/2, "wireframe leaves the faces empty")

	scene.Mesh.Material.Wireframe = false
	require.NoError(t, r.Render(scene, nil, nil))
	assert.Greater(t, countReddish(r.Frame()), edges)
}

func TestSoftwareRenderer_PixelRatio(t *testing.T) {
	r := NewSoftwareRenderer()
	r.SetSize(40, 30)
	r.SetPixelRatio(2)
	require.NoError(t, r.Render(newTestScene(true), nil, nil))

	w, h := r.BufferSize()
	assert.Equal(t, 80, w)
	assert.Equal(t, 60, h)
	assert.Equal(t, image.Rect(0, 0, 80, 60), r.Frame().Bounds())
}

func TestSoftwareRenderer_ZeroSize(t *testing.T) {
	r := NewSoftwareRenderer()
	assert.ErrorIs(t, r.Render(newTestScene(true), nil, nil), errNoRenderTarget)
}

func TestSoftwareRenderer_Overlay(t *testing.T) {
	panel := NewPanel(DefaultPanelTitle, 40)
	panel.AddFolder("Axes")

	r := NewSoftwareRenderer()
	r.SetSize(100, 100)
	require.NoError(t, r.Render(newTestScene(true), nil, panel))
	assert.Equal(t, panelHeader, r.Frame().RGBAAt(99, 1), "panel header in the top right corner")
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, r.Frame().RGBAAt(0, 1))

	panel.Toggle()
	require.NoError(t, r.Render(newTestScene(true), nil, panel))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, r.Frame().RGBAAt(99, 1), "hidden panel is not drawn")
}

type staticTextures map[AssetId]*TextureAsset

func (s staticTextures) Texture(id AssetId) (*TextureAsset, bool) {
	tex, ok := s[id]
	return tex, ok
}

func TestSoftwareRenderer_ColorMap(t *testing.T) {
	green := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range green.Pix {
		green.Pix[i] = 0xff
		if i%4 == 0 || i%4 == 2 {
			green.Pix[i] = 0
		}
	}
	textures := staticTextures{"color": {Image: green, Repeat: [2]float32{1, 1}, Version: 1}}

	scene := newTestScene(false)
	scene.Mesh.Material.Color = mgl32.Vec3{1, 1, 1}
	scene.Mesh.Material.Maps.Color = "color"

	r := NewSoftwareRenderer()
	r.SetSize(32, 32)
	require.NoError(t, r.Render(scene, textures, nil))
	c := r.Frame().RGBAAt(16, 16)
	assert.Greater(t, c.G, uint8(200))
	assert.Less(t, c.R, uint8(30))
}

func uniformImage(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestSoftwareRenderer_TransparentTexelsAreDiscarded(t *testing.T) {
	scene := newTestScene(false)
	scene.Mesh.Material.Transparent = true
	scene.Mesh.Material.Maps.Alpha = "alpha"

	hidden := staticTextures{"alpha": {Image: uniformImage(color.RGBA{0, 0, 0, 255}), Repeat: [2]float32{1, 1}, Version: 1}}
	r := NewSoftwareRenderer()
	r.SetSize(32, 32)
	require.NoError(t, r.Render(scene, hidden, nil))
	assert.Zero(t, countReddish(r.Frame()))
	for i, z := range r.ctx.DepthBuffer {
		require.Equal(t, math.MaxFloat64, z, "depth written at %d", i)
	}

	opaque := staticTextures{"alpha": {Image: uniformImage(color.RGBA{255, 255, 255, 255}), Repeat: [2]float32{1, 1}, Version: 2}}
	require.NoError(t, r.Render(scene, opaque, nil))
	assert.Greater(t, countReddish(r.Frame()), 0)
}

func TestCubeShader_ZeroAlphaDiscards(t *testing.T) {
	shader := &cubeShader{
		Color:    fauxgl.Color{R: 1, A: 1},
		AlphaMap: fauxgl.NewImageTexture(uniformImage(color.RGBA{0, 0, 0, 255})),
		Repeat:   [2]float64{1, 1},
	}
	assert.Equal(t, fauxgl.Discard, shader.Fragment(fauxgl.Vertex{}))

	shader.AlphaMap = fauxgl.NewImageTexture(uniformImage(color.RGBA{255, 255, 255, 255}))
	assert.InDelta(t, 1.0, shader.Fragment(fauxgl.Vertex{}).A, 1e-9)
}

func TestSoftwareRenderer_SavePNG(t *testing.T) {
	r := NewSoftwareRenderer()
	path := filepath.Join(t.TempDir(), "frame.png")
	assert.Error(t, r.SavePNG(path), "nothing rendered yet")

	r.SetSize(16, 16)
	require.NoError(t, r.Render(newTestScene(true), nil, nil))
	require.NoError(t, r.SavePNG(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	r.Close()
}

func TestFauxglMatrixMatchesMgl(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3DZ(0.3))
	f := fauxglMatrix(m)
	assert.InDelta(t, float64(m.At(0, 3)), f.X03, 1e-6)
	assert.InDelta(t, float64(m.At(1, 0)), f.X10, 1e-6)
	assert.InDelta(t, 3, f.X23, 1e-6)
}
