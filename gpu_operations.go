package spincube

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"reflect"
	"strconv"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
)

const depthFormat = wgpu.TextureFormatDepth24Plus

type GpuState struct {
	surface       *wgpu.Surface
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	queue         *wgpu.Queue
	surfaceConfig *wgpu.SurfaceConfiguration
}

func createGpuState(s *WindowState, width, height int) (*GpuState, error) {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(s.windowGlfw))
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	queue := device.GetQueue()

	caps := surface.GetCapabilities(adapter)
	surfaceConfig := wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      preferredSurfaceFormat(caps.Formats),
		Width:       uint32(max(width, 1)),
		Height:      uint32(max(height, 1)),
		PresentMode: wgpu.PresentModeFifo, // vsync, one frame per display refresh
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, &surfaceConfig)

	return &GpuState{
		surface:       surface,
		adapter:       adapter,
		device:        device,
		queue:         queue,
		surfaceConfig: &surfaceConfig,
	}, nil
}

// preferredSurfaceFormat picks an sRGB format when the surface offers one.
func preferredSurfaceFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, f := range formats {
		if isSrgbFormat(f) {
			return f
		}
	}
	return formats[0]
}

func isSrgbFormat(f wgpu.TextureFormat) bool {
	return f == wgpu.TextureFormatBGRA8UnormSrgb || f == wgpu.TextureFormatRGBA8UnormSrgb
}

func (g *GpuState) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if g.surfaceConfig.Width == uint32(width) && g.surfaceConfig.Height == uint32(height) {
		return
	}
	g.surfaceConfig.Width = uint32(width)
	g.surfaceConfig.Height = uint32(height)
	g.surface.Configure(g.adapter, g.device, g.surfaceConfig)
}

func (g *GpuState) release() {
	g.queue.Release()
	g.device.Release()
	g.adapter.Release()
	g.surface.Release()
}

type pipelineOptions struct {
	topology    wgpu.PrimitiveTopology
	cullMode    wgpu.CullMode
	blend       bool
	depthTest   bool // false still attaches depth state but always passes and never writes
	vertexType  any // nil for pipelines that generate their vertices
	entryVertex string
	entryFrag   string
}

var alphaBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

func createRenderPipeline(name string, shaderCode string, opts pipelineOptions, gpuState *GpuState) (*wgpu.RenderPipeline, error) {
	shader, err := gpuState.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaderCode},
	})
	if err != nil {
		return nil, fmt.Errorf("%s shader: %w", name, err)
	}
	defer shader.Release()

	var buffers []wgpu.VertexBufferLayout
	if opts.vertexType != nil {
		buffers = []wgpu.VertexBufferLayout{createVertexBufferLayout(opts.vertexType)}
	}
	var blend *wgpu.BlendState
	if opts.blend {
		b := alphaBlend
		blend = &b
	}
	depthStencil := &wgpu.DepthStencilState{
		Format:            depthFormat,
		DepthWriteEnabled: false,
		DepthCompare:      wgpu.CompareFunctionAlways,
		StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
	}
	if opts.depthTest {
		depthStencil.DepthWriteEnabled = true
		depthStencil.DepthCompare = wgpu.CompareFunctionLess
	}
	entryVertex, entryFrag := opts.entryVertex, opts.entryFrag
	if entryVertex == "" {
		entryVertex = "vs_main"
	}
	if entryFrag == "" {
		entryFrag = "fs_main"
	}

	pipeline, err := gpuState.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: name,
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: entryVertex,
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: entryFrag,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    gpuState.surfaceConfig.Format,
					Blend:     blend,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  opts.topology,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  opts.cullMode,
		},
		DepthStencil: depthStencil,
		Multisample: wgpu.MultisampleState{
			Count:                  1,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s pipeline: %w", name, err)
	}
	return pipeline, nil
}

func createBuffer(name string, data any, gpuState *GpuState, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buffer, err := gpuState.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    name,
		Contents: toBufferBytes(data),
		Usage:    usage,
	})
	if err != nil {
		return nil, fmt.Errorf("%s buffer: %w", name, err)
	}
	return buffer, nil
}

func toBufferBytes(data any) []byte {
	val := reflect.ValueOf(data)
	buf := new(bytes.Buffer)
	readUniformsBytes(val, buf)
	return buf.Bytes()
}

// readUniformsBytes writes structs, arrays and slices of fixed size scalars in
// little endian order, recursing into nested structs.
func readUniformsBytes(field reflect.Value, buf *bytes.Buffer) {
	switch field.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < field.Len(); i++ {
			elem := field.Index(i)
			if elem.Kind() == reflect.Ptr {
				elem = elem.Elem()
			}
			readUniformsBytes(elem, buf)
		}

	case reflect.Struct:
		for i := 0; i < field.NumField(); i++ {
			readUniformsBytes(field.Field(i), buf)
		}

	case reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Float32:
		if err := binary.Write(buf, binary.LittleEndian, field.Interface()); err != nil {
			panic(fmt.Errorf("failed to write scalar field: %w", err))
		}

	default:
		panic(fmt.Errorf("unsupported uniform type: %v", field.Type()))
	}
}

// createVertexBufferLayout derives the attribute layout from struct tags:
// `spincube:"layout" location:"N" format:"floatK"`.
func createVertexBufferLayout(vertexType any) wgpu.VertexBufferLayout {
	t := reflect.TypeOf(vertexType)
	if t.Kind() != reflect.Struct {
		panic("Vertex must be a struct")
	}

	var attributes []wgpu.VertexAttribute
	var offset uint64 = 0

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if "layout" == field.Tag.Get("spincube") {
			format := parseFormat(field.Tag.Get("format"))
			location, err := strconv.Atoi(field.Tag.Get("location"))
			if nil != err {
				panic(err)
			}

			attributes = append(attributes, wgpu.VertexAttribute{
				ShaderLocation: uint32(location),
				Offset:         offset,
				Format:         format,
			})
		}

		offset += uint64(field.Type.Size())
	}

	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attributes,
	}
}

func parseFormat(name string) wgpu.VertexFormat {
	switch name {
	case "float2":
		return wgpu.VertexFormatFloat32x2
	case "float3":
		return wgpu.VertexFormatFloat32x3
	case "float4":
		return wgpu.VertexFormatFloat32x4
	default:
		panic("unsupported vertex layout format: " + name)
	}
}

func wgpuWrapMode(mode WrapMode) wgpu.AddressMode {
	switch mode {
	case WrapRepeat:
		return wgpu.AddressModeRepeat
	case WrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	default:
		panic(fmt.Sprintf("Unknown wrap mode: %d", mode))
	}
}

func textureFormatFor(cs ColorSpace) wgpu.TextureFormat {
	if cs == ColorSpaceSRGB {
		return wgpu.TextureFormatRGBA8UnormSrgb
	}
	return wgpu.TextureFormatRGBA8Unorm
}

type gpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	width   uint32
	height  uint32
	version uint
}

func (t *gpuTexture) release() {
	if t == nil {
		return
	}
	if t.view != nil {
		t.view.Release()
	}
	if t.texture != nil {
		t.texture.Release()
	}
}

func createTextureFromImage(label string, img *image.RGBA, format wgpu.TextureFormat, gpuState *GpuState) (*gpuTexture, error) {
	b := img.Bounds()
	extent := wgpu.Extent3D{
		Width:              uint32(b.Dx()),
		Height:             uint32(b.Dy()),
		DepthOrArrayLayers: 1,
	}
	texture, err := gpuState.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%s texture: %w", label, err)
	}

	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, fmt.Errorf("%s view: %w", label, err)
	}

	err = gpuState.queue.WriteTexture(
		texture.AsImageCopy(),
		wgpu.ToBytes(img.Pix),
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(img.Stride),
			RowsPerImage: extent.Height,
		},
		&extent,
	)
	if err != nil {
		view.Release()
		texture.Release()
		return nil, fmt.Errorf("%s upload: %w", label, err)
	}
	return &gpuTexture{texture: texture, view: view, width: extent.Width, height: extent.Height}, nil
}

func createDepthTexture(width, height uint32, gpuState *GpuState) (*gpuTexture, error) {
	texture, err := gpuState.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth",
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, fmt.Errorf("depth texture: %w", err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, fmt.Errorf("depth view: %w", err)
	}
	return &gpuTexture{texture: texture, view: view, width: width, height: height}, nil
}

func createSampler(wrap WrapMode, gpuState *GpuState) (*wgpu.Sampler, error) {
	mode := wgpuWrapMode(wrap)
	return gpuState.device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  mode,
		AddressModeV:  mode,
		AddressModeW:  mode,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
}

func createBindGroup(pipeline *wgpu.RenderPipeline, entries []wgpu.BindGroupEntry, device *wgpu.Device) (*wgpu.BindGroup, error) {
	layout := pipeline.GetBindGroupLayout(0)
	defer layout.Release()

	return device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout:  layout,
		Entries: entries,
	})
}
