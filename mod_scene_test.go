package spincube

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMesh_ModelMatrix(t *testing.T) {
	mesh := NewMesh(BoxGeometry(1, 1, 1, 1, 1, 1), &Material{})
	assert.True(t, mesh.ModelMatrix().ApproxEqual(mgl32.Ident4()))

	mesh.Position = mgl32.Vec3{1, 2, 3}
	mesh.Rotation = mgl32.Vec3{0, mgl32.DegToRad(90), 0}
	p := mesh.ModelMatrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1})

	// +x turns to -z around Y, then moves by Position
	assert.True(t, p.Vec3().ApproxEqualThreshold(mgl32.Vec3{1, 2, 2}, 1e-5), "got %v", p)
}

func TestCamera_ProjectionFollowsAspect(t *testing.T) {
	c := NewPerspectiveCamera(CameraFov, 1, CameraNear, CameraFar)
	square := c.Projection()

	c.SetAspect(2)
	assert.True(t, c.ProjectionDirty())
	wide := c.Projection()
	assert.False(t, c.ProjectionDirty())

	assert.InDelta(t, square[0]/2, wide[0], 1e-6)
	assert.Equal(t, square[5], wide[5])
}

func TestMaterial_SetColorHex(t *testing.T) {
	m := &Material{}
	require.NoError(t, m.SetColorHex("#ff0000"))
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, m.Color)

	assert.ErrorIs(t, m.SetColorHex("nope"), ErrInvalidColor)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, m.Color)
}

func TestSceneModule_Wireframe(t *testing.T) {
	app := NewApp().UseModules(ParamsModule{}, SceneModule{Width: 800, Height: 600})

	scene := Resource[Scene](app)
	require.NotNil(t, scene)
	assert.Equal(t, VariantWireframe, *Resource[Variant](app))

	mat := scene.Mesh.Material
	assert.True(t, mat.Wireframe)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, mat.Color)
	assert.False(t, mat.Maps.Any())

	cam := scene.Camera
	assert.Equal(t, mgl32.Vec3{0, 0, 2}, cam.Position)
	assert.Equal(t, float32(CameraFov), cam.Fov)
	assert.InDelta(t, 800.0/600.0, cam.Aspect, 1e-6)
	assert.Len(t, scene.Mesh.Geometry.Vertices, 54)
}

func TestSceneModule_Textured(t *testing.T) {
	app := NewApp().UseModules(ParamsModule{}, AssetServerModule{Workers: 1})
	assets := Resource[AssetServer](app)
	defer assets.Close()

	app.UseModules(SceneModule{Variant: VariantTextured, TextureDir: t.TempDir()})

	mat := Resource[Scene](app).Mesh.Material
	assert.False(t, mat.Wireframe)
	assert.True(t, mat.Transparent)
	assert.True(t, mat.Maps.Any())
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, mat.Color)
	assert.Equal(t, "#ffffff", Resource[Params](app).Color)

	color, ok := assets.Texture(mat.Maps.Color)
	require.True(t, ok)
	assert.Equal(t, ColorSpaceSRGB, color.ColorSpace)
	assert.Equal(t, WrapRepeat, color.Wrap)
	assert.Equal(t, [2]float32{2, 3}, color.Repeat)
}

func TestSceneModule_Requirements(t *testing.T) {
	assert.Panics(t, func() {
		NewApp().UseModules(SceneModule{})
	})
	assert.Panics(t, func() {
		NewApp().UseModules(ParamsModule{}, SceneModule{Variant: VariantTextured})
	})
	assert.Panics(t, func() {
		NewApp().UseModules(ParamsModule{}, SceneModule{Variant: "solid"})
	})
}
