package spincube

import (
	"fmt"
	"image"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/gekko3d/spincube/shaders"
)

type cubeUniforms struct {
	MVP   mgl32.Mat4
	Color [4]float32
	Maps  [4]float32 // repeat u, repeat v, color map on, alpha map on
}

// glToWgpuClip remaps clip space depth from [-w, w] to [0, w].
var glToWgpuClip = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

type overlayUniforms struct {
	Rect [4]float32 // left, top, right, bottom in clip space
}

// WgpuRenderer draws into the window surface. Textures are uploaded lazily and
// re-uploaded when their asset version changes.
type WgpuRenderer struct {
	gpu    *GpuState
	width  int
	height int
	ratio  float64

	depth *gpuTexture

	trianglePipeline *wgpu.RenderPipeline
	linePipeline     *wgpu.RenderPipeline
	overlayPipeline  *wgpu.RenderPipeline

	geometry  *Geometry
	vertexBuf *wgpu.Buffer
	indexBuf  *wgpu.Buffer
	edgeBuf   *wgpu.Buffer

	uniformBuf *wgpu.Buffer
	white      *gpuTexture
	sampler    *wgpu.Sampler
	wrap       WrapMode
	maps       [2]boundTexture // color, alpha

	// auto layouts differ per pipeline, so each gets its own group
	bindGroup     *wgpu.BindGroup
	lineBindGroup *wgpu.BindGroup

	overlayUniformBuf *wgpu.Buffer
	overlaySampler    *wgpu.Sampler
	overlayTex        *gpuTexture
	overlayVersion    uint64
	overlayBindGroup  *wgpu.BindGroup
}

type boundTexture struct {
	id  AssetId
	tex *gpuTexture
}

func NewWgpuRenderer(window *WindowState) (*WgpuRenderer, error) {
	w, h := window.windowGlfw.GetFramebufferSize()
	gpu, err := createGpuState(window, w, h)
	if err != nil {
		return nil, err
	}
	r := &WgpuRenderer{gpu: gpu, ratio: 1}
	if err := r.init(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *WgpuRenderer) init() error {
	var err error
	r.trianglePipeline, err = createRenderPipeline("Cube", shaders.CubeWGSL, pipelineOptions{
		topology:   wgpu.PrimitiveTopologyTriangleList,
		cullMode:   wgpu.CullModeBack,
		blend:      true,
		depthTest:  true,
		vertexType: Vertex{},
	}, r.gpu)
	if err != nil {
		return err
	}
	r.linePipeline, err = createRenderPipeline("CubeWireframe", shaders.CubeWGSL, pipelineOptions{
		topology:   wgpu.PrimitiveTopologyLineList,
		cullMode:   wgpu.CullModeNone,
		blend:      true,
		depthTest:  true,
		vertexType: Vertex{},
	}, r.gpu)
	if err != nil {
		return err
	}
	r.overlayPipeline, err = createRenderPipeline("Overlay", shaders.OverlayWGSL, pipelineOptions{
		topology: wgpu.PrimitiveTopologyTriangleList,
		cullMode: wgpu.CullModeNone,
		blend:    true,
	}, r.gpu)
	if err != nil {
		return err
	}

	r.uniformBuf, err = createBuffer("Uniforms", cubeUniforms{}, r.gpu, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	r.overlayUniformBuf, err = createBuffer("OverlayUniforms", overlayUniforms{}, r.gpu, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	r.white, err = createTextureFromImage("White", placeholderImage(), wgpu.TextureFormatRGBA8Unorm, r.gpu)
	if err != nil {
		return err
	}
	r.overlaySampler, err = createSampler(WrapClampToEdge, r.gpu)
	return err
}

func (r *WgpuRenderer) SetSize(width, height int) {
	r.width, r.height = width, height
}

func (r *WgpuRenderer) SetPixelRatio(ratio float64) {
	r.ratio = ratio
}

func (r *WgpuRenderer) bufferSize() (int, int) {
	return int(math.Floor(float64(r.width) * r.ratio)), int(math.Floor(float64(r.height) * r.ratio))
}

func (r *WgpuRenderer) Render(scene *Scene, textures TextureSource, overlay Overlay) error {
	w, h := r.bufferSize()
	if w <= 0 || h <= 0 {
		// minimized
		return nil
	}
	r.gpu.resize(w, h)
	if err := r.ensureDepth(uint32(w), uint32(h)); err != nil {
		return err
	}

	mesh := scene.Mesh
	drawMesh := mesh != nil && mesh.Geometry != nil && mesh.Material != nil && scene.Camera != nil
	if drawMesh {
		if err := r.prepareMesh(scene.Camera, mesh, textures); err != nil {
			return err
		}
	}
	drawOverlay := false
	if overlay != nil {
		img, version := overlay.Overlay()
		if img != nil {
			if err := r.prepareOverlay(img, version, w, h); err != nil {
				return err
			}
			drawOverlay = true
		}
	}

	nextTexture, err := r.gpu.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("surface view: %w", err)
	}
	defer view.Release()

	encoder, err := r.gpu.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("command encoder: %w", err)
	}
	defer encoder.Release()

	bg := r.outputColor(scene.Background)
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: float64(bg[0]), G: float64(bg[1]), B: float64(bg[2]), A: 1},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            r.depth.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})

	if drawMesh {
		pass.SetVertexBuffer(0, r.vertexBuf, 0, wgpu.WholeSize)
		if mesh.Material.Wireframe {
			pass.SetPipeline(r.linePipeline)
			pass.SetBindGroup(0, r.lineBindGroup, nil)
			pass.SetIndexBuffer(r.edgeBuf, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
			pass.DrawIndexed(uint32(len(mesh.Geometry.Edges)), 1, 0, 0, 0)
		} else {
			pass.SetPipeline(r.trianglePipeline)
			pass.SetBindGroup(0, r.bindGroup, nil)
			pass.SetIndexBuffer(r.indexBuf, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
			pass.DrawIndexed(uint32(len(mesh.Geometry.Indices)), 1, 0, 0, 0)
		}
	}
	if drawOverlay {
		pass.SetPipeline(r.overlayPipeline)
		pass.SetBindGroup(0, r.overlayBindGroup, nil)
		pass.Draw(6, 1, 0, 0)
	}
	if err := pass.End(); err != nil {
		return fmt.Errorf("render pass: %w", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	defer cmd.Release()
	r.gpu.queue.Submit(cmd)
	r.gpu.surface.Present()
	return nil
}

// outputColor converts an sRGB color for the surface. sRGB surfaces expect
// linear values and encode on write.
func (r *WgpuRenderer) outputColor(c mgl32.Vec3) mgl32.Vec3 {
	if !isSrgbFormat(r.gpu.surfaceConfig.Format) {
		return c
	}
	lr, lg, lb := colorful.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2])}.LinearRgb()
	return mgl32.Vec3{float32(lr), float32(lg), float32(lb)}
}

func (r *WgpuRenderer) ensureDepth(w, h uint32) error {
	if r.depth != nil {
		if r.depth.width == w && r.depth.height == h {
			return nil
		}
		r.depth.release()
		r.depth = nil
	}
	depth, err := createDepthTexture(w, h, r.gpu)
	if err != nil {
		return err
	}
	r.depth = depth
	return nil
}

func (r *WgpuRenderer) prepareMesh(camera *Camera, mesh *Mesh, textures TextureSource) error {
	if r.geometry != mesh.Geometry {
		if err := r.uploadGeometry(mesh.Geometry); err != nil {
			return err
		}
	}

	material := mesh.Material
	color := r.outputColor(material.Color)
	u := cubeUniforms{
		MVP:   glToWgpuClip.Mul4(camera.ViewProjection()).Mul4(mesh.ModelMatrix()),
		Color: [4]float32{color[0], color[1], color[2], 1},
		Maps:  [4]float32{1, 1, 0, 0},
	}

	rebind := r.bindGroup == nil
	wrap := WrapClampToEdge
	if textures != nil && material.Maps.Any() {
		if tex, ok := textures.Texture(material.Maps.Color); ok {
			changed, err := r.syncTexture(0, material.Maps.Color, tex)
			if err != nil {
				return err
			}
			rebind = rebind || changed
			u.Maps[0], u.Maps[1], u.Maps[2] = tex.Repeat[0], tex.Repeat[1], 1
			wrap = tex.Wrap
		}
		if tex, ok := textures.Texture(material.Maps.Alpha); ok && material.Transparent {
			changed, err := r.syncTexture(1, material.Maps.Alpha, tex)
			if err != nil {
				return err
			}
			rebind = rebind || changed
			u.Maps[3] = 1
		}
	}
	if r.sampler == nil || r.wrap != wrap {
		if r.sampler != nil {
			r.sampler.Release()
		}
		sampler, err := createSampler(wrap, r.gpu)
		if err != nil {
			return fmt.Errorf("sampler: %w", err)
		}
		r.sampler, r.wrap = sampler, wrap
		rebind = true
	}

	r.gpu.queue.WriteBuffer(r.uniformBuf, 0, toBufferBytes(u))

	if rebind {
		return r.rebuildBindGroup()
	}
	return nil
}

func (r *WgpuRenderer) uploadGeometry(g *Geometry) error {
	r.releaseGeometry()
	var err error
	if r.vertexBuf, err = createBuffer("Vertices", g.Vertices, r.gpu, wgpu.BufferUsageVertex); err != nil {
		return err
	}
	if r.indexBuf, err = createBuffer("Indices", g.Indices, r.gpu, wgpu.BufferUsageIndex); err != nil {
		return err
	}
	if r.edgeBuf, err = createBuffer("Edges", g.Edges, r.gpu, wgpu.BufferUsageIndex); err != nil {
		return err
	}
	r.geometry = g
	return nil
}

func (r *WgpuRenderer) syncTexture(slot int, id AssetId, asset *TextureAsset) (bool, error) {
	bound := &r.maps[slot]
	if bound.id == id && bound.tex != nil && bound.tex.version == asset.Version {
		return false, nil
	}
	tex, err := createTextureFromImage(asset.Path, asset.Image, textureFormatFor(asset.ColorSpace), r.gpu)
	if err != nil {
		return false, err
	}
	tex.version = asset.Version
	bound.tex.release()
	bound.id, bound.tex = id, tex
	return true, nil
}

func (r *WgpuRenderer) rebuildBindGroup() error {
	view := func(slot int) *wgpu.TextureView {
		if t := r.maps[slot].tex; t != nil {
			return t.view
		}
		return r.white.view
	}
	entries := []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: r.uniformBuf, Size: wgpu.WholeSize},
		{Binding: 1, TextureView: view(0), Size: wgpu.WholeSize},
		{Binding: 2, TextureView: view(1), Size: wgpu.WholeSize},
		{Binding: 3, Sampler: r.sampler, Size: wgpu.WholeSize},
	}
	group, err := createBindGroup(r.trianglePipeline, entries, r.gpu.device)
	if err != nil {
		return fmt.Errorf("bind group: %w", err)
	}
	lineGroup, err := createBindGroup(r.linePipeline, entries, r.gpu.device)
	if err != nil {
		group.Release()
		return fmt.Errorf("wireframe bind group: %w", err)
	}
	for _, g := range []*wgpu.BindGroup{r.bindGroup, r.lineBindGroup} {
		if g != nil {
			g.Release()
		}
	}
	r.bindGroup, r.lineBindGroup = group, lineGroup
	return nil
}

func (r *WgpuRenderer) prepareOverlay(img *image.RGBA, version uint64, w, h int) error {
	if r.overlayTex == nil || r.overlayVersion != version {
		tex, err := createTextureFromImage("Panel", img, textureFormatFor(ColorSpaceSRGB), r.gpu)
		if err != nil {
			return err
		}
		r.overlayTex.release()
		r.overlayTex = tex
		r.overlayVersion = version

		group, err := createBindGroup(r.overlayPipeline, []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.overlayUniformBuf, Size: wgpu.WholeSize},
			{Binding: 1, TextureView: tex.view, Size: wgpu.WholeSize},
			{Binding: 2, Sampler: r.overlaySampler, Size: wgpu.WholeSize},
		}, r.gpu.device)
		if err != nil {
			return fmt.Errorf("overlay bind group: %w", err)
		}
		if r.overlayBindGroup != nil {
			r.overlayBindGroup.Release()
		}
		r.overlayBindGroup = group
	}

	pw := float32(float64(img.Bounds().Dx()) * r.ratio)
	ph := float32(float64(img.Bounds().Dy()) * r.ratio)
	rect := overlayUniforms{Rect: [4]float32{1 - 2*pw/float32(w), 1, 1, 1 - 2*ph/float32(h)}}
	r.gpu.queue.WriteBuffer(r.overlayUniformBuf, 0, toBufferBytes(rect))
	return nil
}

func (r *WgpuRenderer) releaseGeometry() {
	for _, b := range []*wgpu.Buffer{r.vertexBuf, r.indexBuf, r.edgeBuf} {
		if b != nil {
			b.Release()
		}
	}
	r.vertexBuf, r.indexBuf, r.edgeBuf = nil, nil, nil
	r.geometry = nil
}

func (r *WgpuRenderer) Close() {
	if r.gpu == nil {
		return
	}
	r.releaseGeometry()
	for i := range r.maps {
		r.maps[i].tex.release()
		r.maps[i] = boundTexture{}
	}
	r.overlayTex.release()
	r.white.release()
	r.depth.release()
	for _, g := range []*wgpu.BindGroup{r.bindGroup, r.lineBindGroup, r.overlayBindGroup} {
		if g != nil {
			g.Release()
		}
	}
	for _, s := range []*wgpu.Sampler{r.sampler, r.overlaySampler} {
		if s != nil {
			s.Release()
		}
	}
	for _, b := range []*wgpu.Buffer{r.uniformBuf, r.overlayUniformBuf} {
		if b != nil {
			b.Release()
		}
	}
	for _, p := range []*wgpu.RenderPipeline{r.trianglePipeline, r.linePipeline, r.overlayPipeline} {
		if p != nil {
			p.Release()
		}
	}
	r.gpu.release()
	r.gpu = nil
}

// WgpuRendererModule creates the GPU renderer on the window installed by
// PlatformWindowModule.
type WgpuRendererModule struct{}

func (WgpuRendererModule) Install(app *App, cmd *Commands) {
	slot := ensureSingleRenderer(app, RendererWGPU)
	window := Resource[WindowState](app)
	if window == nil {
		panic("WgpuRendererModule requires PlatformWindowModule")
	}
	renderer, err := NewWgpuRenderer(window)
	if err != nil {
		cmd.Logger().With("render").Errorf("GPU init failed: %v", err)
		panic(err)
	}
	slot.Renderer = renderer
}
