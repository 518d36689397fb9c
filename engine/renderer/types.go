package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-space/engine/kernel"
)

// Handle is an opaque identifier for a GPU resource owned by a Renderer.
// The zero Handle is invalid. Handles are never reused.
type Handle uint64

// Valid reports whether h is not the zero handle.
func (h Handle) Valid() bool { return h != 0 }

func (h Handle) String() string { return fmt.Sprintf("#%d", uint64(h)) }

// Fence is the serial of a queue submission. Fences increase monotonically; the zero Fence is
// always complete.
type Fence uint64

// Usage is the set of ways a buffer or texture may be used.
type Usage uint32

const (
	UsageVertex Usage = 1 << iota
	UsageIndex
	UsageUniform
	UsageStorage
	UsageRenderTarget
	UsageSampled
	UsageCopySrc
)

// Has reports whether every bit of flag is set.
func (u Usage) Has(flag Usage) bool { return u&flag == flag }

// Format is a texture texel format.
type Format int

const (
	FormatRGBA8Unorm Format = iota
	FormatRGBA8UnormSrgb
	FormatBGRA8Unorm
	FormatR8Unorm
	FormatDepth24Plus
)

// BytesPerPixel returns the texel size of f.
func (f Format) BytesPerPixel() uint32 {
	if f == FormatR8Unorm {
		return 1
	}
	return 4
}

// PassKind identifies which render pass a pipeline draws in.
type PassKind int

const (
	// PassScene is the 3D pass: cleared color, depth attachment.
	PassScene PassKind = iota
	// PassOverlay is the 2D pass drawn after the scene: loaded color, no depth.
	PassOverlay
)

func (p PassKind) String() string {
	if p == PassOverlay {
		return "overlay"
	}
	return "scene"
}

// PipelineKind distinguishes render and compute pipelines.
type PipelineKind int

const (
	PipelineRender PipelineKind = iota
	PipelineCompute
)

// Topology is the primitive topology of a render pipeline.
type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
	TopologyLineList
	TopologyLineStrip
)

// Blend is the color blend mode of a render pipeline.
type Blend int

const (
	BlendNone Blend = iota
	// BlendAlpha is straight alpha: src*a + dst*(1-a).
	BlendAlpha
)

// VertexFormat is the type of one vertex attribute.
type VertexFormat int

const (
	VertexFloat32 VertexFormat = iota
	VertexFloat32x2
	VertexFloat32x3
	VertexFloat32x4
	VertexUint32
)

// StepMode selects whether a vertex buffer advances per vertex or per instance.
type StepMode int

const (
	StepVertex StepMode = iota
	StepInstance
)

type VertexAttribute struct {
	Location uint32
	Format   VertexFormat
	Offset   uint64
}

// VertexLayout describes one vertex buffer slot.
type VertexLayout struct {
	Stride     uint64
	StepMode   StepMode
	Attributes []VertexAttribute
}

// BufferDesc describes a buffer. Every buffer may be written with UpdateBuffer.
type BufferDesc struct {
	Label string
	Size  uint64
	Usage Usage
}

// TextureDesc describes a 2D texture with one mip level.
type TextureDesc struct {
	Label  string
	Width  uint32
	Height uint32
	Format Format
	Usage  Usage
}

// Size returns the byte size of the texture's texels.
func (d TextureDesc) Size() uint64 {
	return uint64(d.Width) * uint64(d.Height) * uint64(d.Format.BytesPerPixel())
}

// FilterMode selects texel filtering.
type FilterMode int

const (
	FilterLinear FilterMode = iota
	FilterNearest
)

// SamplerDesc describes a clamp-to-edge sampler.
type SamplerDesc struct {
	Label  string
	Filter FilterMode
}

// BindEntry binds one resource to a binding slot. Exactly one of Buffer, Texture or Sampler is set.
type BindEntry struct {
	Binding uint32
	Buffer  Handle
	Texture Handle
	Sampler Handle
}

// BindGroupDesc describes a bind group for one group index of a pipeline.
type BindGroupDesc struct {
	Label    string
	Pipeline Handle
	Group    uint32
	Entries  []BindEntry
}

// PipelineDesc describes a render or compute pipeline built from a kernel module.
// Bind group layouts are derived from the kernel's reflected bindings.
type PipelineDesc struct {
	Label  string
	Kernel kernel.Binary
	Kind   PipelineKind
	Pass   PassKind

	// Entry points; empty names select the kernel's first entry point of the matching stage.
	Vertex   string
	Fragment string
	Compute  string

	VertexLayouts []VertexLayout
	Topology      Topology
	Blend         Blend
	// DepthTest enables depth testing and writing in the scene pass.
	DepthTest bool
}

// EntryPoints resolves the entry point names the pipeline uses.
//
// Returns:
//   - []kernel.EntryPoint: the vertex and fragment entry points, or the compute entry point
//   - error: an error if the kernel does not declare a required entry point
func (d PipelineDesc) EntryPoints() ([]kernel.EntryPoint, error) {
	resolve := func(name string, stage kernel.Stage) (kernel.EntryPoint, error) {
		var e kernel.EntryPoint
		var ok bool
		if name == "" {
			e, ok = d.Kernel.EntryPointFor(stage)
		} else {
			e, ok = d.Kernel.EntryPoint(name)
			ok = ok && e.Stage == stage
		}
		if !ok {
			return kernel.EntryPoint{}, fmt.Errorf("kernel %q has no %s entry point %q", d.Kernel.Name, stage, name)
		}
		return e, nil
	}

	if d.Kind == PipelineCompute {
		cs, err := resolve(d.Compute, kernel.StageCompute)
		if err != nil {
			return nil, err
		}
		return []kernel.EntryPoint{cs}, nil
	}
	vs, err := resolve(d.Vertex, kernel.StageVertex)
	if err != nil {
		return nil, err
	}
	fs, err := resolve(d.Fragment, kernel.StageFragment)
	if err != nil {
		return nil, err
	}
	return []kernel.EntryPoint{vs, fs}, nil
}

// Stats is a snapshot of resource manager bookkeeping.
type Stats struct {
	Live            int
	PendingDestroys int
	Bytes           uint64
	Submitted       Fence
	Completed       Fence
}
