package spincube

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

type Variant string

const (
	VariantWireframe Variant = "wireframe"
	VariantTextured  Variant = "textured"
)

func (v Variant) Valid() bool {
	return v == VariantWireframe || v == VariantTextured
}

// MaterialMaps holds the optional texture slots of a material. An empty
// AssetId means the slot is unused.
type MaterialMaps struct {
	Color            AssetId
	Alpha            AssetId
	Height           AssetId
	Normal           AssetId
	AmbientOcclusion AssetId
	Metalness        AssetId
	Roughness        AssetId
}

func (m MaterialMaps) Any() bool {
	return m != MaterialMaps{}
}

type Material struct {
	Color       mgl32.Vec3 // RGB 0..1
	Wireframe   bool
	Transparent bool
	Maps        MaterialMaps
}

// SetColorHex sets Color from a "#rrggbb" string.
func (m *Material) SetColorHex(hex string) error {
	c, err := ParseHexColor(hex)
	if err != nil {
		return err
	}
	m.Color = mgl32.Vec3{float32(c.R), float32(c.G), float32(c.B)}
	return nil
}

// Mesh is the one renderable object of the scene.
type Mesh struct {
	Geometry *Geometry
	Material *Material
	Position mgl32.Vec3
	Rotation mgl32.Vec3 // Euler angles, XYZ order, radians
	Scale    mgl32.Vec3
}

func NewMesh(geometry *Geometry, material *Material) *Mesh {
	return &Mesh{
		Geometry: geometry,
		Material: material,
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// ModelMatrix is T * Rx * Ry * Rz * S.
func (m *Mesh) ModelMatrix() mgl32.Mat4 {
	rotate := mgl32.HomogRotate3DX(m.Rotation.X()).
		Mul4(mgl32.HomogRotate3DY(m.Rotation.Y())).
		Mul4(mgl32.HomogRotate3DZ(m.Rotation.Z()))
	return mgl32.Translate3D(m.Position.X(), m.Position.Y(), m.Position.Z()).
		Mul4(rotate).
		Mul4(mgl32.Scale3D(m.Scale.X(), m.Scale.Y(), m.Scale.Z()))
}

// Camera is a perspective camera. Changing Fov, Aspect, Near or Far requires
// UpdateProjectionMatrix (or a later Projection call) to take effect.
type Camera struct {
	Fov    float32 // vertical, degrees
	Aspect float32
	Near   float32
	Far    float32

	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3

	projection      mgl32.Mat4
	projectionDirty bool
}

func NewPerspectiveCamera(fov, aspect, near, far float32) *Camera {
	c := &Camera{
		Fov:    fov,
		Aspect: aspect,
		Near:   near,
		Far:    far,
		Up:     mgl32.Vec3{0, 1, 0},
	}
	c.UpdateProjectionMatrix()
	return c
}

func (c *Camera) SetAspect(aspect float32) {
	c.Aspect = aspect
	c.projectionDirty = true
}

func (c *Camera) ProjectionDirty() bool {
	return c.projectionDirty
}

func (c *Camera) UpdateProjectionMatrix() {
	c.projection = mgl32.Perspective(mgl32.DegToRad(c.Fov), c.Aspect, c.Near, c.Far)
	c.projectionDirty = false
}

func (c *Camera) Projection() mgl32.Mat4 {
	if c.projectionDirty {
		c.UpdateProjectionMatrix()
	}
	return c.projection
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.Projection().Mul4(c.View())
}

// Scene is the scene graph root: one mesh and one camera.
type Scene struct {
	Mesh       *Mesh
	Camera     *Camera
	Background mgl32.Vec3
}

const (
	CameraFov  = 75
	CameraNear = 0.1
	CameraFar  = 100
)

// SceneModule builds the demo cube for the given variant. The textured variant
// expects an AssetServer resource to already be installed.
type SceneModule struct {
	Variant    Variant
	TextureDir string
	Width      int
	Height     int
}

func (mod SceneModule) Install(app *App, cmd *Commands) {
	variant := mod.Variant
	if variant == "" {
		variant = VariantWireframe
	}
	if !variant.Valid() {
		panic(fmt.Sprintf("unknown scene variant %q", variant))
	}

	params := Resource[Params](app)
	if params == nil {
		panic("SceneModule requires ParamsModule")
	}

	material := &Material{}
	switch variant {
	case VariantWireframe:
		material.Wireframe = true
	case VariantTextured:
		assets := Resource[AssetServer](app)
		if assets == nil {
			panic("textured scene requires AssetServerModule")
		}
		// the color map carries the look; keep the tint neutral
		params.Color = "#ffffff"
		material.Transparent = true
		material.Maps = LoadDoorTextures(assets, mod.TextureDir)
	}
	if err := material.SetColorHex(params.Color); err != nil {
		panic(err)
	}

	aspect := float32(1)
	if mod.Width > 0 && mod.Height > 0 {
		aspect = float32(mod.Width) / float32(mod.Height)
	}
	camera := NewPerspectiveCamera(CameraFov, aspect, CameraNear, CameraFar)
	camera.Position = mgl32.Vec3{0, 0, 2}

	scene := &Scene{
		Mesh:   NewMesh(BoxGeometry(1, 1, 1, 2, 2, 2), material),
		Camera: camera,
	}
	cmd.AddResources(scene, &variant)
	cmd.Logger().Infof("Scene ready (%s cube, %d vertices)", variant, len(scene.Mesh.Geometry.Vertices))
}
