package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/Carmen-Shannon/oxy-space/engine/kernel"
	"github.com/Carmen-Shannon/oxy-space/engine/logging"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

type wgpuPipeline struct {
	module  *wgpu.ShaderModule
	layouts []*wgpu.BindGroupLayout
	layout  *wgpu.PipelineLayout
	render  *wgpu.RenderPipeline
	compute *wgpu.ComputePipeline
}

type wgpuSubmission struct {
	fence Fence
	index wgpu.SubmissionIndex
}

// wgpuDevice is the Device implementation on WebGPU (wgpu-native through cogentcore/webgpu).
type wgpuDevice struct {
	mu *sync.Mutex

	surfaceDescriptor    *wgpu.SurfaceDescriptor
	forceFallbackAdapter bool
	presentMode          wgpu.PresentMode
	sampleCount          MSAASampleCount

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	msaaTexture   *wgpu.Texture
	msaaView      *wgpu.TextureView
	depthTexture  *wgpu.Texture
	depthView     *wgpu.TextureView

	// Frame state between AcquireSurface and Present
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	objects map[Handle]any

	submissions []wgpuSubmission
	submitted   Fence
	completed   Fence

	// polls are blocking waits still inside the native device; generation counts device contexts
	// so a poll that outlives its context cannot complete fences on the next one.
	polls      pollGroup
	generation uint64
}

var _ Device = &wgpuDevice{}

func newWGPUDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, mode PresentMode, sampleCount MSAASampleCount) *wgpuDevice {
	runtime.LockOSThread()
	d := &wgpuDevice{
		mu:                   &sync.Mutex{},
		surfaceDescriptor:    surfaceDescriptor,
		forceFallbackAdapter: forceFallbackAdapter,
		presentMode:          wgpu.PresentModeFifo,
		sampleCount:          sampleCount,
		objects:              make(map[Handle]any),
	}
	if mode == PresentModeUncapped {
		d.presentMode = wgpu.PresentModeImmediate
	}
	return d
}

func (d *wgpuDevice) Init() error {
	idle := d.polls.wait(pollDrainTimeout)
	d.mu.Lock()
	defer d.mu.Unlock()

	d.release(idle)

	d.instance = wgpu.CreateInstance(nil)
	d.surface = d.instance.CreateSurface(d.surfaceDescriptor)

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		return fmt.Errorf("failed to request adapter: %w", err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	capabilities := d.surface.GetCapabilities(d.adapter)
	if len(capabilities.Formats) == 0 {
		return errors.New("surface reports no formats")
	}
	d.surfaceFormat = capabilities.Formats[0]
	return nil
}

func (d *wgpuDevice) ConfigureSurface(width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	releaseTexture(d.msaaTexture, d.msaaView)
	releaseTexture(d.depthTexture, d.depthView)
	d.msaaTexture, d.msaaView = nil, nil

	count := uint32(d.sampleCount)
	size := wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}
	if count > 1 {
		// The scene and overlay passes draw into the MSAA texture; the swapchain view is the resolve target.
		tex, view, err := d.createAttachment("MSAA Texture", size, count, d.surfaceFormat)
		if err != nil {
			return d.classify("create MSAA texture", err)
		}
		d.msaaTexture, d.msaaView = tex, view
	}

	// Depth texture sample count must match the color attachment.
	tex, view, err := d.createAttachment("Depth Texture", size, count, wgpu.TextureFormatDepth24Plus)
	if err != nil {
		return d.classify("create depth texture", err)
	}
	d.depthTexture, d.depthView = tex, view
	return nil
}

func (d *wgpuDevice) createAttachment(label string, size wgpu.Extent3D, samples uint32, format wgpu.TextureFormat) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, err
	}
	return tex, view, nil
}

func (d *wgpuDevice) AcquireSurface() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameSurface != nil {
		return errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "device") && strings.Contains(msg, "lost"):
			return common.Lost("acquire surface", fmt.Errorf("%w: %v", common.ErrDeviceLost, err))
		case strings.Contains(msg, "outdated"):
			return common.Transient("acquire surface", fmt.Errorf("%w: %v", common.ErrSurfaceOutdated, err))
		default:
			return common.Transient("acquire surface", fmt.Errorf("%w: %v", common.ErrSurfaceLost, err))
		}
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return d.classify("create surface view", err)
	}
	d.frameSurface = surfaceTexture
	d.frameView = view
	return nil
}

func (d *wgpuDevice) Present() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameSurface == nil {
		return errors.New("no surface acquired")
	}
	// Present the acquired surface image and release local references.
	d.surface.Present()
	d.frameView.Release()
	d.frameSurface.Release()
	d.frameView = nil
	d.frameSurface = nil
	return nil
}

func (d *wgpuDevice) DiscardSurface() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameSurface != nil {
		d.frameView.Release()
		d.frameSurface.Release()
		d.frameView = nil
		d.frameSurface = nil
	}
}

func (d *wgpuDevice) CreateBuffer(h Handle, desc BufferDesc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	usage := wgpu.BufferUsageCopyDst
	for flag, u := range map[Usage]wgpu.BufferUsage{
		UsageVertex:  wgpu.BufferUsageVertex,
		UsageIndex:   wgpu.BufferUsageIndex,
		UsageUniform: wgpu.BufferUsageUniform,
		UsageStorage: wgpu.BufferUsageStorage,
		UsageCopySrc: wgpu.BufferUsageCopySrc,
	} {
		if desc.Usage.Has(flag) {
			usage |= u
		}
	}

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             desc.Size,
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return d.classify("create buffer", err)
	}
	d.objects[h] = buf
	return nil
}

func (d *wgpuDevice) WriteBuffer(h Handle, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.objects[h].(*wgpu.Buffer)
	if !ok {
		return fmt.Errorf("buffer %s: %w", h, common.ErrNotFound)
	}
	if err := d.queue.WriteBuffer(buf, offset, data); err != nil {
		return d.classify("write buffer", err)
	}
	return nil
}

func (d *wgpuDevice) CreateTexture(h Handle, desc TextureDesc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	usage := wgpu.TextureUsageCopyDst
	if desc.Usage.Has(UsageSampled) {
		usage |= wgpu.TextureUsageTextureBinding
	}
	if desc.Usage.Has(UsageRenderTarget) {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	if desc.Usage.Has(UsageCopySrc) {
		usage |= wgpu.TextureUsageCopySrc
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     usage,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        textureFormat(desc.Format),
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return d.classify("create texture", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return d.classify("create texture view", err)
	}
	d.objects[h] = &wgpuTexture{texture: tex, view: view}
	return nil
}

func (d *wgpuDevice) WriteTexture(h Handle, desc TextureDesc, pixels []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.objects[h].(*wgpuTexture)
	if !ok {
		return fmt.Errorf("texture %s: %w", h, common.ErrNotFound)
	}
	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  desc.Width * desc.Format.BytesPerPixel(),
			RowsPerImage: desc.Height,
		},
		&wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (d *wgpuDevice) CreateSampler(h Handle, desc SamplerDesc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	filter := wgpu.FilterModeLinear
	if desc.Filter == FilterNearest {
		filter = wgpu.FilterModeNearest
	}
	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return d.classify("create sampler", err)
	}
	d.objects[h] = samp
	return nil
}

func (d *wgpuDevice) CreatePipeline(h Handle, desc PipelineDesc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := desc.EntryPoints()
	if err != nil {
		return err
	}

	p := &wgpuPipeline{}
	p.module, err = d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Kernel.Name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Kernel.WGSL,
		},
	})
	if err != nil {
		return d.classify("create shader module", err)
	}

	visibility := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	if desc.Kind == PipelineCompute {
		visibility = wgpu.ShaderStageCompute
	}
	groups := desc.Kernel.BindGroups()
	maxGroup := -1
	for g := range groups {
		maxGroup = max(maxGroup, int(g))
	}
	p.layouts = make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := range p.layouts {
		layoutEntries := make([]wgpu.BindGroupLayoutEntry, 0, len(groups[uint32(g)]))
		for _, b := range groups[uint32(g)] {
			layoutEntries = append(layoutEntries, layoutEntry(b, visibility))
		}
		layout, layoutErr := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", desc.Label, g),
			Entries: layoutEntries,
		})
		if layoutErr != nil {
			p.release()
			return d.classify(fmt.Sprintf("create bind group layout for group %d", g), layoutErr)
		}
		p.layouts[g] = layout
	}

	p.layout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: p.layouts,
	})
	if err != nil {
		p.release()
		return d.classify("create pipeline layout", err)
	}

	if desc.Kind == PipelineCompute {
		p.compute, err = d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label:  desc.Label + " Compute Pipeline",
			Layout: p.layout,
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     p.module,
				EntryPoint: entries[0].Name,
			},
		})
	} else {
		p.render, err = d.device.CreateRenderPipeline(d.renderPipelineDescriptor(desc, p, entries))
	}
	if err != nil {
		p.release()
		return d.classify("create pipeline", err)
	}
	d.objects[h] = p
	return nil
}

func (d *wgpuDevice) renderPipelineDescriptor(desc PipelineDesc, p *wgpuPipeline, entries []kernel.EntryPoint) *wgpu.RenderPipelineDescriptor {
	target := wgpu.ColorTargetState{
		Format:    d.surfaceFormat,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
	if desc.Blend == BlendAlpha {
		target.Blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
		}
	}

	buffers := make([]wgpu.VertexBufferLayout, 0, len(desc.VertexLayouts))
	for _, vl := range desc.VertexLayouts {
		attrs := make([]wgpu.VertexAttribute, 0, len(vl.Attributes))
		for _, a := range vl.Attributes {
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         vertexFormat(a.Format),
				Offset:         a.Offset,
				ShaderLocation: a.Location,
			})
		}
		step := wgpu.VertexStepModeVertex
		if vl.StepMode == StepInstance {
			step = wgpu.VertexStepModeInstance
		}
		buffers = append(buffers, wgpu.VertexBufferLayout{
			ArrayStride: vl.Stride,
			StepMode:    step,
			Attributes:  attrs,
		})
	}

	rpd := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     p.module,
			EntryPoint: entries[0].Name,
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.module,
			EntryPoint: entries[1].Name,
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  primitiveTopology(desc.Topology),
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(d.sampleCount),
			Mask:  0xFFFFFFFF,
		},
	}
	if desc.Pass == PassScene {
		depthCompare := wgpu.CompareFunctionLess
		if !desc.DepthTest {
			depthCompare = wgpu.CompareFunctionAlways
		}
		rpd.DepthStencil = &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: desc.DepthTest,
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}
	return rpd
}

func (d *wgpuDevice) CreateBindGroup(h Handle, desc BindGroupDesc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.objects[desc.Pipeline].(*wgpuPipeline)
	if !ok || int(desc.Group) >= len(p.layouts) {
		return fmt.Errorf("pipeline %s group %d: %w", desc.Pipeline, desc.Group, common.ErrNotFound)
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(desc.Entries))
	for _, e := range desc.Entries {
		entry := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer.Valid():
			buf, ok := d.objects[e.Buffer].(*wgpu.Buffer)
			if !ok {
				return fmt.Errorf("buffer %s: %w", e.Buffer, common.ErrNotFound)
			}
			entry.Buffer = buf
			entry.Offset = 0
			entry.Size = wgpu.WholeSize
		case e.Texture.Valid():
			t, ok := d.objects[e.Texture].(*wgpuTexture)
			if !ok {
				return fmt.Errorf("texture %s: %w", e.Texture, common.ErrNotFound)
			}
			entry.TextureView = t.view
		case e.Sampler.Valid():
			s, ok := d.objects[e.Sampler].(*wgpu.Sampler)
			if !ok {
				return fmt.Errorf("sampler %s: %w", e.Sampler, common.ErrNotFound)
			}
			entry.Sampler = s
		}
		entries = append(entries, entry)
	}

	bindGroup, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label + " Bind Group",
		Layout:  p.layouts[desc.Group],
		Entries: entries,
	})
	if err != nil {
		return d.classify("create bind group", err)
	}
	d.objects[h] = bindGroup
	return nil
}

func (d *wgpuDevice) Release(h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	releaseObject(d.objects[h])
	delete(d.objects, h)
}

func (d *wgpuDevice) BeginCommands() (Commands, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, d.classify("create command encoder", err)
	}
	return &wgpuCommands{d: d, encoder: encoder}, nil
}

func (d *wgpuDevice) Submit(cmds Commands, fence Fence) error {
	c := cmds.(*wgpuCommands)
	defer c.encoder.Release()
	if c.err != nil {
		return c.err
	}

	commandBuffer, err := c.encoder.Finish(nil)
	if err != nil {
		return d.classify("finish commands", err)
	}
	defer commandBuffer.Release()

	d.mu.Lock()
	defer d.mu.Unlock()
	index := d.queue.Submit(commandBuffer)
	d.submissions = append(d.submissions, wgpuSubmission{fence: fence, index: index})
	d.submitted = fence
	return nil
}

func (d *wgpuDevice) Discard(cmds Commands) {
	if c, ok := cmds.(*wgpuCommands); ok {
		c.encoder.Release()
	}
}

func (d *wgpuDevice) Completed() Fence {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return d.completed
	}
	if queueEmpty := d.device.Poll(false, nil); queueEmpty {
		d.markCompleted(d.submitted)
	}
	return d.completed
}

func (d *wgpuDevice) Wait(fence Fence, timeout time.Duration) error {
	d.mu.Lock()
	if fence <= d.completed {
		d.mu.Unlock()
		return nil
	}
	i := slices.IndexFunc(d.submissions, func(s wgpuSubmission) bool { return s.fence >= fence })
	if i < 0 {
		d.mu.Unlock()
		return fmt.Errorf("fence %d was never submitted to this device", fence)
	}
	wrapped := &wgpu.WrappedSubmissionIndex{Queue: d.queue, SubmissionIndex: d.submissions[i].index}
	target := d.submissions[i].fence
	device := d.device
	generation := d.generation
	d.mu.Unlock()

	done := d.polls.start(func() {
		device.Poll(true, wrapped)
		d.mu.Lock()
		if d.generation == generation {
			d.markCompleted(target)
		}
		d.mu.Unlock()
	})

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return common.Transient("wait fence", fmt.Errorf("fence %d after %s: %w", fence, timeout, common.ErrTimeout))
	}
}

// markCompleted advances the completed fence and forgets finished submissions. Callers hold d.mu.
func (d *wgpuDevice) markCompleted(f Fence) {
	if f <= d.completed {
		return
	}
	d.completed = f
	i := 0
	for i < len(d.submissions) && d.submissions[i].fence <= f {
		i++
	}
	d.submissions = slices.Delete(d.submissions, 0, i)
}

func (d *wgpuDevice) Close() {
	idle := d.polls.wait(pollDrainTimeout)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.release(idle)
}

// release tears down the device context. When a poll is still blocked in the native device the
// context is abandoned instead of released. Callers hold d.mu.
func (d *wgpuDevice) release(idle bool) {
	if idle {
		d.releaseAll()
		return
	}
	logging.For("renderer").Warn("device poll still outstanding, abandoning device context")
	d.abandon()
}

// abandon forgets the device context without releasing any native object. Callers hold d.mu.
func (d *wgpuDevice) abandon() {
	clear(d.objects)
	d.frameView, d.frameSurface = nil, nil
	d.msaaTexture, d.msaaView, d.depthTexture, d.depthView = nil, nil, nil, nil
	d.queue, d.device, d.adapter, d.surface, d.instance = nil, nil, nil, nil, nil
	d.submissions = nil
	d.submitted, d.completed = 0, 0
	d.generation++
}

// releaseAll drops every object and the device context. Callers hold d.mu.
func (d *wgpuDevice) releaseAll() {
	for h, obj := range d.objects {
		releaseObject(obj)
		delete(d.objects, h)
	}
	if d.frameView != nil {
		d.frameView.Release()
		d.frameSurface.Release()
		d.frameView, d.frameSurface = nil, nil
	}
	releaseTexture(d.msaaTexture, d.msaaView)
	releaseTexture(d.depthTexture, d.depthView)
	d.msaaTexture, d.msaaView, d.depthTexture, d.depthView = nil, nil, nil, nil

	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
	d.submissions = nil
	d.submitted, d.completed = 0, 0
	d.generation++
}

// classify maps a wgpu error to the application's error kinds. wgpu-native reports device loss and
// allocation failure only through error text.
func (d *wgpuDevice) classify(op string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "lost"):
		return common.Lost(op, fmt.Errorf("%w: %v", common.ErrDeviceLost, err))
	case strings.Contains(msg, "out of memory"):
		return common.Transient(op, fmt.Errorf("%w: %v", common.ErrResourceExhausted, err))
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

type wgpuCommands struct {
	d       *wgpuDevice
	encoder *wgpu.CommandEncoder
	err     error
}

func (c *wgpuCommands) BeginComputePass() ComputePass {
	return &wgpuComputePass{c: c, pass: c.encoder.BeginComputePass(nil)}
}

func (c *wgpuCommands) BeginRenderPass(kind PassKind) RenderPass {
	d := c.d
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameView == nil {
		c.err = common.Transient("begin render pass", errors.New("no surface acquired"))
		return noopRenderPass{}
	}

	// When MSAA is enabled, the MSAA texture is the color attachment View and
	// the swapchain view is the ResolveTarget. When MSAA is off, the swapchain
	// view is the color attachment View directly and ResolveTarget is nil.
	color := wgpu.RenderPassColorAttachment{
		View:    d.frameView,
		LoadOp:  wgpu.LoadOpClear,
		StoreOp: wgpu.StoreOpStore,
		ClearValue: wgpu.Color{
			R: 0, G: 0, B: 0, A: 1.0,
		},
	}
	if d.msaaView != nil {
		color.View = d.msaaView
		color.ResolveTarget = d.frameView
	}

	desc := &wgpu.RenderPassDescriptor{
		Label:            kind.String(),
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
	}
	if kind == PassOverlay {
		desc.ColorAttachments[0].LoadOp = wgpu.LoadOpLoad
	} else {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            d.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		}
	}

	w, h := d.frameSurface.GetWidth(), d.frameSurface.GetHeight()
	return &wgpuRenderPass{d: d, pass: c.encoder.BeginRenderPass(desc), width: w, height: h}
}

type wgpuComputePass struct {
	c    *wgpuCommands
	pass *wgpu.ComputePassEncoder
}

func (p *wgpuComputePass) SetPipeline(pipeline Handle) {
	p.c.d.mu.Lock()
	defer p.c.d.mu.Unlock()
	if obj, ok := p.c.d.objects[pipeline].(*wgpuPipeline); ok && obj.compute != nil {
		p.pass.SetPipeline(obj.compute)
	}
}

func (p *wgpuComputePass) SetBindGroup(index uint32, group Handle) {
	p.c.d.mu.Lock()
	defer p.c.d.mu.Unlock()
	if bg, ok := p.c.d.objects[group].(*wgpu.BindGroup); ok {
		p.pass.SetBindGroup(index, bg, nil)
	}
}

func (p *wgpuComputePass) DispatchWorkgroups(x, y, z uint32) {
	p.pass.DispatchWorkgroups(x, y, z)
}

func (p *wgpuComputePass) End() {
	p.pass.End()
	p.pass.Release()
}

type wgpuRenderPass struct {
	d             *wgpuDevice
	pass          *wgpu.RenderPassEncoder
	width, height uint32
}

func (p *wgpuRenderPass) SetPipeline(pipeline Handle) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	if obj, ok := p.d.objects[pipeline].(*wgpuPipeline); ok && obj.render != nil {
		p.pass.SetPipeline(obj.render)
	}
}

func (p *wgpuRenderPass) SetBindGroup(index uint32, group Handle) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	if bg, ok := p.d.objects[group].(*wgpu.BindGroup); ok {
		p.pass.SetBindGroup(index, bg, nil)
	}
}

func (p *wgpuRenderPass) SetVertexBuffer(slot uint32, buffer Handle) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	if buf, ok := p.d.objects[buffer].(*wgpu.Buffer); ok {
		p.pass.SetVertexBuffer(slot, buf, 0, wgpu.WholeSize)
	}
}

func (p *wgpuRenderPass) SetIndexBuffer(buffer Handle) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	if buf, ok := p.d.objects[buffer].(*wgpu.Buffer); ok {
		p.pass.SetIndexBuffer(buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	}
}

func (p *wgpuRenderPass) SetScissorRect(x, y, width, height uint32) {
	// the scissor must lie inside the render target
	x, y = min(x, p.width), min(y, p.height)
	width, height = min(width, p.width-x), min(height, p.height-y)
	p.pass.SetScissorRect(x, y, width, height)
}

func (p *wgpuRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *wgpuRenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (p *wgpuRenderPass) End() {
	p.pass.End()
	p.pass.Release()
}

type noopRenderPass struct{}

func (noopRenderPass) SetPipeline(Handle)                                {}
func (noopRenderPass) SetBindGroup(uint32, Handle)                       {}
func (noopRenderPass) SetVertexBuffer(uint32, Handle)                    {}
func (noopRenderPass) SetIndexBuffer(Handle)                             {}
func (noopRenderPass) SetScissorRect(uint32, uint32, uint32, uint32)     {}
func (noopRenderPass) Draw(uint32, uint32, uint32, uint32)               {}
func (noopRenderPass) DrawIndexed(uint32, uint32, uint32, int32, uint32) {}
func (noopRenderPass) End()                                              {}

func (p *wgpuPipeline) release() {
	if p.render != nil {
		p.render.Release()
	}
	if p.compute != nil {
		p.compute.Release()
	}
	if p.layout != nil {
		p.layout.Release()
	}
	for _, l := range p.layouts {
		if l != nil {
			l.Release()
		}
	}
	if p.module != nil {
		p.module.Release()
	}
}

func releaseObject(obj any) {
	switch o := obj.(type) {
	case *wgpu.Buffer:
		o.Release()
	case *wgpuTexture:
		releaseTexture(o.texture, o.view)
	case *wgpu.Sampler:
		o.Release()
	case *wgpu.BindGroup:
		o.Release()
	case *wgpuPipeline:
		o.release()
	}
}

func releaseTexture(tex *wgpu.Texture, view *wgpu.TextureView) {
	if view != nil {
		view.Release()
	}
	if tex != nil {
		tex.Release()
	}
}

func layoutEntry(b kernel.Binding, visibility wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    b.Binding,
		Visibility: visibility,
	}
	switch b.Kind {
	case kernel.BindingUniform:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.MinBindingSize = b.MinSize
	case kernel.BindingStorage:
		entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		entry.Buffer.MinBindingSize = b.MinSize
	case kernel.BindingReadOnlyStorage:
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		entry.Buffer.MinBindingSize = b.MinSize
	case kernel.BindingTexture:
		entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
	case kernel.BindingSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	}
	return entry
}

func textureFormat(f Format) wgpu.TextureFormat {
	switch f {
	case FormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case FormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	case FormatR8Unorm:
		return wgpu.TextureFormatR8Unorm
	case FormatDepth24Plus:
		return wgpu.TextureFormatDepth24Plus
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

func vertexFormat(f VertexFormat) wgpu.VertexFormat {
	switch f {
	case VertexFloat32x2:
		return wgpu.VertexFormatFloat32x2
	case VertexFloat32x3:
		return wgpu.VertexFormatFloat32x3
	case VertexFloat32x4:
		return wgpu.VertexFormatFloat32x4
	case VertexUint32:
		return wgpu.VertexFormatUint32
	default:
		return wgpu.VertexFormatFloat32
	}
}

func primitiveTopology(t Topology) wgpu.PrimitiveTopology {
	switch t {
	case TopologyTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip
	case TopologyLineList:
		return wgpu.PrimitiveTopologyLineList
	case TopologyLineStrip:
		return wgpu.PrimitiveTopologyLineStrip
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}
