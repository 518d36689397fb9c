package renderer

import (
	"time"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ParsePresentMode maps a configuration string ("vsync" or "uncapped") to a PresentMode.
func ParsePresentMode(s string) PresentMode {
	if s == "uncapped" {
		return PresentModeUncapped
	}
	return PresentModeVSync
}

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4; higher values are adapter-dependent.
type MSAASampleCount uint32

const (
	MSAAOff MSAASampleCount = 1
	MSAA4x  MSAASampleCount = 4
	MSAA8x  MSAASampleCount = 8
	MSAA16x MSAASampleCount = 16
)

// Device is the GPU device context the Renderer drives: instance, adapter, device, queue and
// presentation surface. It is created once, owned exclusively by one Renderer and only called from
// the goroutine that owns the Renderer.
//
// Device objects are keyed by the Renderer's handles. The Renderer guarantees that a handle passed
// to a Device method was created on this device and not yet released, and that Release is only
// called once every submission referencing the handle has completed.
type Device interface {
	// Init creates (or after a loss, recreates) the device context. All previously created objects
	// are invalid afterwards.
	Init() error

	// ConfigureSurface sizes the presentation surface and its depth/MSAA attachments.
	ConfigureSurface(width, height int) error

	// AcquireSurface acquires the next surface image for this frame's render passes.
	// Errors wrap common.ErrSurfaceLost, common.ErrSurfaceOutdated or common.ErrDeviceLost.
	AcquireSurface() error

	// Present presents the acquired surface image.
	Present() error

	// DiscardSurface releases the acquired surface image without presenting it.
	DiscardSurface()

	CreateBuffer(h Handle, desc BufferDesc) error
	WriteBuffer(h Handle, offset uint64, data []byte) error
	CreateTexture(h Handle, desc TextureDesc) error
	WriteTexture(h Handle, desc TextureDesc, pixels []byte) error
	CreateSampler(h Handle, desc SamplerDesc) error
	CreatePipeline(h Handle, desc PipelineDesc) error

	// CreateBindGroup creates a bind group for desc.Group of the pipeline desc.Pipeline.
	// Entries are already validated against the pipeline's kernel bindings.
	CreateBindGroup(h Handle, desc BindGroupDesc) error

	// Release frees the device object behind h.
	Release(h Handle)

	// BeginCommands starts recording a command buffer.
	BeginCommands() (Commands, error)

	// Submit finishes cmds (as returned by BeginCommands) and submits it to the queue, tagged with fence.
	Submit(cmds Commands, fence Fence) error

	// Discard drops cmds (as returned by BeginCommands) without submitting it.
	Discard(cmds Commands)

	// Completed returns the newest fence known to have completed, without blocking.
	Completed() Fence

	// Wait blocks until fence has completed or timeout elapses (common.ErrTimeout).
	Wait(fence Fence, timeout time.Duration) error

	// Close releases the device context.
	Close()
}

// Commands records GPU work for one submission.
type Commands interface {
	// BeginComputePass starts a compute pass. End must be called before another pass begins.
	BeginComputePass() ComputePass

	// BeginRenderPass starts a render pass targeting the acquired surface. The scene pass clears color
	// and depth; the overlay pass loads the scene's color and has no depth attachment.
	BeginRenderPass(pass PassKind) RenderPass
}

// ComputePass records compute dispatches.
type ComputePass interface {
	SetPipeline(pipeline Handle)
	SetBindGroup(index uint32, group Handle)
	DispatchWorkgroups(x, y, z uint32)
	End()
}

// RenderPass records draws.
type RenderPass interface {
	SetPipeline(pipeline Handle)
	SetBindGroup(index uint32, group Handle)
	SetVertexBuffer(slot uint32, buffer Handle)
	SetIndexBuffer(buffer Handle)
	SetScissorRect(x, y, width, height uint32)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
	End()
}
