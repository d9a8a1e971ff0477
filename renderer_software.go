package spincube

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/fogleman/fauxgl"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
)

var errNoRenderTarget = errors.New("render target has no size")

// SoftwareRenderer rasterizes the scene on the CPU with fauxgl. It needs no
// window or GPU and is used for headless runs and snapshots.
type SoftwareRenderer struct {
	width  int
	height int
	ratio  float64

	ctx   *fauxgl.Context
	frame *image.RGBA

	geometry  *Geometry
	triangles *fauxgl.Mesh
	lines     *fauxgl.Mesh

	textures map[AssetId]softwareTexture
}

type softwareTexture struct {
	version uint
	texture fauxgl.Texture
}

func NewSoftwareRenderer() *SoftwareRenderer {
	return &SoftwareRenderer{
		ratio:    1,
		textures: make(map[AssetId]softwareTexture),
	}
}

func (r *SoftwareRenderer) SetSize(width, height int) {
	r.width, r.height = width, height
}

func (r *SoftwareRenderer) SetPixelRatio(ratio float64) {
	r.ratio = ratio
}

// BufferSize is the size of the rendered image in device pixels.
func (r *SoftwareRenderer) BufferSize() (int, int) {
	return int(math.Floor(float64(r.width) * r.ratio)), int(math.Floor(float64(r.height) * r.ratio))
}

// Frame returns the last rendered image.
func (r *SoftwareRenderer) Frame() *image.RGBA {
	return r.frame
}

func (r *SoftwareRenderer) Render(scene *Scene, textures TextureSource, overlay Overlay) error {
	w, h := r.BufferSize()
	if w <= 0 || h <= 0 {
		return errNoRenderTarget
	}
	if r.ctx == nil || r.ctx.Width != w || r.ctx.Height != h {
		r.ctx = fauxgl.NewContext(w, h)
		r.frame = image.NewRGBA(image.Rect(0, 0, w, h))
	} else {
		r.ctx.ClearDepthBuffer()
	}
	bg := scene.Background
	r.ctx.ClearColorBufferWith(fauxgl.Color{R: float64(bg[0]), G: float64(bg[1]), B: float64(bg[2]), A: 1})

	if mesh := scene.Mesh; mesh != nil && mesh.Geometry != nil && mesh.Material != nil {
		if err := r.drawMesh(scene.Camera, mesh, textures); err != nil {
			return err
		}
	}

	draw.Draw(r.frame, r.frame.Bounds(), r.ctx.Image(), image.Point{}, draw.Src)
	if overlay != nil {
		if img, _ := overlay.Overlay(); img != nil {
			compositeOverlay(r.frame, img, r.ratio)
		}
	}
	return nil
}

func (r *SoftwareRenderer) drawMesh(camera *Camera, mesh *Mesh, textures TextureSource) error {
	if camera == nil {
		return errors.New("scene has no camera")
	}
	if r.geometry != mesh.Geometry {
		r.triangles, r.lines = fauxglMeshes(mesh.Geometry)
		r.geometry = mesh.Geometry
	}

	material := mesh.Material
	shader := &cubeShader{
		Matrix: fauxglMatrix(camera.ViewProjection().Mul4(mesh.ModelMatrix())),
		Color:  fauxgl.Color{R: float64(material.Color[0]), G: float64(material.Color[1]), B: float64(material.Color[2]), A: 1},
		Repeat: [2]float64{1, 1},
	}
	if textures != nil && material.Maps.Any() {
		if tex, ok := textures.Texture(material.Maps.Color); ok {
			shader.ColorMap = r.texture(material.Maps.Color, tex)
			shader.Repeat = [2]float64{float64(tex.Repeat[0]), float64(tex.Repeat[1])}
			shader.RepeatWrap = tex.Wrap == WrapRepeat
		}
		if material.Transparent {
			if tex, ok := textures.Texture(material.Maps.Alpha); ok {
				shader.AlphaMap = r.texture(material.Maps.Alpha, tex)
			}
		}
	}
	r.ctx.Shader = shader

	if material.Wireframe {
		r.ctx.Cull = fauxgl.CullNone
		r.ctx.DrawMesh(r.lines)
		return nil
	}
	r.ctx.Cull = fauxgl.CullBack
	r.ctx.DrawMesh(r.triangles)
	return nil
}

func (r *SoftwareRenderer) texture(id AssetId, asset *TextureAsset) fauxgl.Texture {
	cached, ok := r.textures[id]
	if !ok || cached.version != asset.Version {
		cached = softwareTexture{version: asset.Version, texture: fauxgl.NewImageTexture(asset.Image)}
		r.textures[id] = cached
	}
	return cached.texture
}

// SavePNG writes the last rendered frame.
func (r *SoftwareRenderer) SavePNG(path string) error {
	if r.frame == nil {
		return errors.New("nothing rendered yet")
	}
	if err := fauxgl.SavePNG(path, r.frame); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (r *SoftwareRenderer) Close() {
	r.ctx = nil
	r.triangles, r.lines = nil, nil
	clear(r.textures)
}

// cubeShader draws the mesh with a flat tint, an optional color map scaled by
// Repeat and an optional alpha map read from its green channel.
type cubeShader struct {
	Matrix     fauxgl.Matrix
	Color      fauxgl.Color
	ColorMap   fauxgl.Texture
	AlphaMap   fauxgl.Texture
	Repeat     [2]float64
	RepeatWrap bool
}

func (s *cubeShader) Vertex(v fauxgl.Vertex) fauxgl.Vertex {
	v.Output = s.Matrix.MulPositionW(v.Position)
	return v
}

func (s *cubeShader) Fragment(v fauxgl.Vertex) fauxgl.Color {
	c := s.Color
	if s.ColorMap != nil {
		u, w := v.Texture.X*s.Repeat[0], v.Texture.Y*s.Repeat[1]
		if !s.RepeatWrap {
			u, w = clamp01(u), clamp01(w)
		}
		t := s.ColorMap.BilinearSample(u, w)
		c = fauxgl.Color{R: c.R * t.R, G: c.G * t.G, B: c.B * t.B, A: 1}
	}
	if s.AlphaMap != nil {
		c.A = s.AlphaMap.BilinearSample(v.Texture.X, v.Texture.Y).G
		// transparent texels neither blend nor write depth
		if c.A <= 0 {
			return fauxgl.Discard
		}
	}
	return c
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func fauxglMeshes(g *Geometry) (triangles *fauxgl.Mesh, lines *fauxgl.Mesh) {
	vertex := func(i uint16) fauxgl.Vertex {
		src := g.Vertices[i]
		return fauxgl.Vertex{
			Position: fauxgl.Vector{X: float64(src.Position[0]), Y: float64(src.Position[1]), Z: float64(src.Position[2])},
			Normal:   fauxgl.Vector{X: float64(src.Normal[0]), Y: float64(src.Normal[1]), Z: float64(src.Normal[2])},
			Texture:  fauxgl.Vector{X: float64(src.UV[0]), Y: float64(src.UV[1])},
			Color:    fauxgl.Gray(1),
		}
	}

	tris := make([]*fauxgl.Triangle, 0, len(g.Indices)/3)
	for i := 0; i+2 < len(g.Indices); i += 3 {
		tris = append(tris, &fauxgl.Triangle{V1: vertex(g.Indices[i]), V2: vertex(g.Indices[i+1]), V3: vertex(g.Indices[i+2])})
	}
	segs := make([]*fauxgl.Line, 0, len(g.Edges)/2)
	for i := 0; i+1 < len(g.Edges); i += 2 {
		segs = append(segs, &fauxgl.Line{V1: vertex(g.Edges[i]), V2: vertex(g.Edges[i+1])})
	}
	return fauxgl.NewTriangleMesh(tris), fauxgl.NewLineMesh(segs)
}

// fauxglMatrix converts a column-major mgl32 matrix into fauxgl's row-major one.
func fauxglMatrix(m mgl32.Mat4) fauxgl.Matrix {
	at := func(row, col int) float64 { return float64(m.At(row, col)) }
	return fauxgl.Matrix{
		X00: at(0, 0), X01: at(0, 1), X02: at(0, 2), X03: at(0, 3),
		X10: at(1, 0), X11: at(1, 1), X12: at(1, 2), X13: at(1, 3),
		X20: at(2, 0), X21: at(2, 1), X22: at(2, 2), X23: at(2, 3),
		X30: at(3, 0), X31: at(3, 1), X32: at(3, 2), X33: at(3, 3),
	}
}

// compositeOverlay draws img over the top right corner of dst, scaled by the
// pixel ratio.
func compositeOverlay(dst *image.RGBA, img *image.RGBA, ratio float64) {
	w := int(math.Round(float64(img.Bounds().Dx()) * ratio))
	h := int(math.Round(float64(img.Bounds().Dy()) * ratio))
	right := dst.Bounds().Max.X
	target := image.Rect(right-w, 0, right, h)
	rect := target.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	if w == img.Bounds().Dx() {
		draw.Draw(dst, rect, img, rect.Min.Sub(target.Min), draw.Over)
		return
	}
	draw.ApproxBiLinear.Scale(dst, target, img, img.Bounds(), draw.Over, nil)
}

type SoftwareRendererModule struct{}

func (SoftwareRendererModule) Install(app *App, cmd *Commands) {
	slot := ensureSingleRenderer(app, RendererSoftware)
	slot.Renderer = NewSoftwareRenderer()
}
