package ui

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/Carmen-Shannon/oxy-space/engine/frame"
	"github.com/Carmen-Shannon/oxy-space/engine/kernel"
	"github.com/Carmen-Shannon/oxy-space/engine/logging"
	"github.com/Carmen-Shannon/oxy-space/engine/renderer"
	"github.com/chewxy/math32"
	"github.com/sirupsen/logrus"
)

// minBufferSize is the smallest vertex or index buffer the compositor allocates.
const minBufferSize = 4096

// Compositor is the overlay frame layer. Each frame it asks its PaintSource for a paint list,
// uploads the list's vertices and indices, and replays its draw commands as scissored indexed draws
// over the scene, alpha blended and without depth. It holds GPU state only; the UI state lives in
// the PaintSource.
type Compositor struct {
	log *logrus.Entry
	r   renderer.Renderer
	src PaintSource

	pipeline  renderer.Handle
	screen    renderer.Handle
	atlas     renderer.Handle
	sampler   renderer.Handle
	bindGroup renderer.Handle

	vertices    renderer.Handle
	indices     renderer.Handle
	vertexBytes uint64
	indexBytes  uint64

	list          *PaintList
	width, height int
}

var _ frame.Layer = &Compositor{}

// NewCompositor creates the overlay pipeline and uploads the atlas.
//
// Parameters:
//   - r: the renderer
//   - k: the overlay kernel
//   - atlas: the glyph atlas every AtlasTexture command samples
//   - src: the paint list producer
//
// Returns:
//   - *Compositor: the layer
//   - error: an error if a GPU object could not be created
func NewCompositor(r renderer.Renderer, k kernel.Binary, atlas *Atlas, src PaintSource) (*Compositor, error) {
	c := &Compositor{log: logging.For("ui"), r: r, src: src}
	if err := c.init(k, atlas); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Compositor) init(k kernel.Binary, atlas *Atlas) error {
	var err error
	c.pipeline, err = c.r.CreatePipeline(renderer.PipelineDesc{
		Label:  "overlay",
		Kernel: k,
		Kind:   renderer.PipelineRender,
		Pass:   renderer.PassOverlay,
		VertexLayouts: []renderer.VertexLayout{{
			Stride:   VertexSize,
			StepMode: renderer.StepVertex,
			Attributes: []renderer.VertexAttribute{
				{Location: 0, Format: renderer.VertexFloat32x2, Offset: 0},
				{Location: 1, Format: renderer.VertexFloat32x2, Offset: 8},
				{Location: 2, Format: renderer.VertexFloat32x4, Offset: 16},
			},
		}},
		Topology: renderer.TopologyTriangleList,
		Blend:    renderer.BlendAlpha,
	})
	if err != nil {
		return fmt.Errorf("failed to create overlay pipeline: %w", err)
	}

	screen := GPUScreen{}
	if c.screen, err = c.r.CreateBuffer("overlay screen", uint64(len(screen.Marshal())), renderer.UsageUniform); err != nil {
		return fmt.Errorf("failed to create overlay uniform: %w", err)
	}

	staged := common.StageImage(atlas.Image)
	c.atlas, err = c.r.CreateTexture(renderer.TextureDesc{
		Label:  "overlay atlas",
		Width:  staged.Width,
		Height: staged.Height,
		Format: renderer.FormatRGBA8Unorm,
		Usage:  renderer.UsageSampled,
	})
	if err != nil {
		return fmt.Errorf("failed to create atlas texture: %w", err)
	}
	if err := c.r.WriteTexture(c.atlas, staged.Pixels); err != nil {
		return fmt.Errorf("failed to upload atlas: %w", err)
	}
	if c.sampler, err = c.r.CreateSampler(renderer.SamplerDesc{Label: "overlay atlas", Filter: renderer.FilterNearest}); err != nil {
		return fmt.Errorf("failed to create atlas sampler: %w", err)
	}

	c.bindGroup, err = c.r.CreateBindGroup(renderer.BindGroupDesc{
		Label:    "overlay",
		Pipeline: c.pipeline,
		Group:    0,
		Entries: []renderer.BindEntry{
			{Binding: 0, Buffer: c.screen},
			{Binding: 1, Texture: c.atlas},
			{Binding: 2, Sampler: c.sampler},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create overlay bind group: %w", err)
	}
	return nil
}

func (c *Compositor) Pass() renderer.PassKind {
	return renderer.PassOverlay
}

func (c *Compositor) Prepare(ctx *frame.Context) error {
	c.list = c.src.Paint(ctx.Width, ctx.Height)

	if ctx.Width != c.width || ctx.Height != c.height {
		screen := GPUScreen{Size: [2]float32{float32(ctx.Width), float32(ctx.Height)}}
		if err := c.r.UpdateBuffer(c.screen, screen.Marshal(), 0); err != nil {
			return fmt.Errorf("failed to update overlay uniform: %w", err)
		}
		c.width, c.height = ctx.Width, ctx.Height
	}

	if c.list.Empty() {
		return nil
	}

	vb := common.SliceToBytes(c.list.Vertices)
	if err := c.ensure(&c.vertices, &c.vertexBytes, uint64(len(vb)), "overlay vertices", renderer.UsageVertex); err != nil {
		return err
	}
	ib := common.SliceToBytes(c.list.Indices)
	if err := c.ensure(&c.indices, &c.indexBytes, uint64(len(ib)), "overlay indices", renderer.UsageIndex); err != nil {
		return err
	}
	if err := c.r.UpdateBuffer(c.vertices, vb, 0); err != nil {
		return fmt.Errorf("failed to upload overlay vertices: %w", err)
	}
	if err := c.r.UpdateBuffer(c.indices, ib, 0); err != nil {
		return fmt.Errorf("failed to upload overlay indices: %w", err)
	}
	return nil
}

// ensure grows *h to hold need bytes, doubling from minBufferSize. The replaced buffer is destroyed
// once the frames still drawing from it complete.
func (c *Compositor) ensure(h *renderer.Handle, capacity *uint64, need uint64, label string, usage renderer.Usage) error {
	if h.Valid() && need <= *capacity {
		return nil
	}
	size := max(*capacity, minBufferSize)
	for size < need {
		size *= 2
	}

	next, err := c.r.CreateBuffer(label, size, usage)
	if err != nil {
		return fmt.Errorf("failed to grow %s to %d bytes: %w", label, size, err)
	}
	if h.Valid() {
		if err := c.r.Destroy(*h); err != nil {
			c.log.WithError(err).Warnf("failed to destroy old %s", label)
		}
	}
	c.log.WithFields(logrus.Fields{"buffer": label, "bytes": size}).Debug("grew overlay buffer")
	*h, *capacity = next, size
	return nil
}

func (c *Compositor) RecordCompute(*frame.Context, renderer.ComputePass) {}

func (c *Compositor) RecordRender(ctx *frame.Context, pass renderer.RenderPass) {
	if c.list == nil || c.list.Empty() {
		return
	}
	surface := common.Rect{MaxX: float32(ctx.Width), MaxY: float32(ctx.Height)}

	pass.SetPipeline(c.pipeline)
	pass.SetBindGroup(0, c.bindGroup)
	pass.SetVertexBuffer(0, c.vertices)
	pass.SetIndexBuffer(c.indices)

	for _, cmd := range c.list.Commands {
		if cmd.Texture != AtlasTexture {
			c.log.WithField("texture", cmd.Texture).Debug("skipping draw with unknown texture")
			continue
		}
		clip := cmd.Clip.Intersect(surface)
		if clip.Empty() {
			continue
		}
		x, y := uint32(math32.Floor(clip.MinX)), uint32(math32.Floor(clip.MinY))
		w := uint32(math32.Ceil(clip.MaxX)) - x
		h := uint32(math32.Ceil(clip.MaxY)) - y
		pass.SetScissorRect(x, y, w, h)
		pass.DrawIndexed(cmd.IndexCount, 1, cmd.FirstIndex, 0, 0)
	}
	pass.SetScissorRect(0, 0, uint32(ctx.Width), uint32(ctx.Height))
}

// Close destroys every GPU object of the compositor.
//
// Returns:
//   - error: the joined destroy errors
func (c *Compositor) Close() error {
	var errs []error
	// the bind group goes first; it references the uniform, atlas and sampler
	for _, h := range []renderer.Handle{c.bindGroup, c.pipeline, c.screen, c.atlas, c.sampler, c.vertices, c.indices} {
		if h.Valid() {
			if err := c.r.Destroy(h); err != nil {
				errs = append(errs, err)
			}
		}
	}
	c.bindGroup, c.pipeline, c.screen, c.atlas, c.sampler, c.vertices, c.indices = 0, 0, 0, 0, 0, 0, 0
	return errors.Join(errs...)
}
