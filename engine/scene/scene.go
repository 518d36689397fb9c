// Package scene holds the Space layer: the frame layer that turns simulation samples into
// projected body discs and fading orbit trails.
package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/Carmen-Shannon/oxy-space/engine/camera"
	"github.com/Carmen-Shannon/oxy-space/engine/frame"
	"github.com/Carmen-Shannon/oxy-space/engine/kernel"
	"github.com/Carmen-Shannon/oxy-space/engine/logging"
	"github.com/Carmen-Shannon/oxy-space/engine/renderer"
	"github.com/Carmen-Shannon/oxy-space/engine/sim"
	"github.com/Carmen-Shannon/oxy-space/engine/ui"
	"github.com/sirupsen/logrus"
)

// workgroupSize matches @workgroup_size in kernels/bodies.wgsl.
const workgroupSize = 64

// Kernels are the kernel binaries the Space layer draws with.
type Kernels struct {
	// Bodies projects bodies to screen-space discs (compute).
	Bodies kernel.Binary
	// Discs draws the projected discs (vertex and fragment).
	Discs kernel.Binary
	// Trails draws the fading orbit trails (vertex and fragment).
	Trails kernel.Binary
}

// Space is the scene-pass frame layer of the simulation. It reads snapshots from the simulation's
// Exchange, never the simulation state itself, and is the target of the camera controller's
// actions and the info panel's model.
type Space interface {
	frame.Layer
	camera.Actions
	ui.Model

	// SetFocusSource sets where the focused body shown by Info comes from, usually the camera
	// controller's Focus.
	//
	// Parameters:
	//   - focus: returns the focused body index and whether a body is focused
	SetFocusSource(focus func() (int, bool))

	// Camera returns the camera the layer projects with.
	Camera() camera.Camera

	// Sampled reports whether the layer has received its first snapshot.
	Sampled() bool

	// Close destroys every GPU object of the layer.
	//
	// Returns:
	//   - error: the joined destroy errors
	Close() error
}

// slotResources are the GPU objects the layer keeps per frame slot, so a frame never overwrites
// data an earlier frame in flight still reads.
type slotResources struct {
	camera    renderer.Handle
	bodies    renderer.Handle
	instances renderer.Handle

	computeGroup renderer.Handle
	discGroup    renderer.Handle
	trailGroup   renderer.Handle
}

// space is the implementation of the Space interface.
type space struct {
	mu  *sync.Mutex // guards sample, sampled, clear and focus
	log *logrus.Entry

	r        renderer.Renderer
	runner   sim.Runner
	exchange *sim.Exchange
	cam      camera.Camera

	n      int
	names  []string
	radius []float32
	color  []common.Vec3f

	sample  sim.Sample
	sampled bool
	clear   bool
	focus   func() (int, bool)
	fps     func() float64

	trailsEnabled bool
	trails        *sim.Trails
	packed        []GPUBody

	computePipe renderer.Handle
	discPipe    renderer.Handle
	trailPipe   renderer.Handle

	slots        []*slotResources
	trailVerts   renderer.Handle
	trailIndices renderer.Handle
	trailParams  renderer.Handle
	trailColors  renderer.Handle
}

var _ Space = &space{}

// NewSpace creates the layer and its pipelines and shared buffers. Per-slot buffers are created on
// the first frame that uses each slot.
//
// Parameters:
//   - r: the renderer
//   - k: the bodies, discs and trails kernels
//   - runner: the simulation runner; the layer pauses and rescales it
//   - exchange: the mailbox the runner stores snapshots into
//   - cam: the camera to project with
//   - options: functional options to configure the layer
//
// Returns:
//   - Space: the layer
//   - error: an error if a GPU object could not be created
func NewSpace(r renderer.Renderer, k Kernels, runner sim.Runner, exchange *sim.Exchange, cam camera.Camera, options ...SpaceBuilderOption) (Space, error) {
	bodies := runner.Simulation().Bodies()
	s := &space{
		mu:            &sync.Mutex{},
		log:           logging.For("scene"),
		r:             r,
		runner:        runner,
		exchange:      exchange,
		cam:           cam,
		n:             len(bodies),
		names:         make([]string, len(bodies)),
		radius:        make([]float32, len(bodies)),
		color:         make([]common.Vec3f, len(bodies)),
		fps:           func() float64 { return 0 },
		trailsEnabled: true,
	}
	for i, b := range bodies {
		s.names[i] = b.Name
		s.radius[i] = float32(b.Radius)
		s.color[i] = b.Color
	}
	for _, option := range options {
		option(s)
	}
	if s.trailsEnabled {
		s.trails = sim.NewTrails(s.n)
	}

	if err := s.init(k); err != nil {
		if cerr := s.Close(); cerr != nil {
			s.log.WithError(cerr).Warn("failed to release partially created scene")
		}
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"bodies": s.n, "trails": s.trailsEnabled}).Info("scene created")
	return s, nil
}

func (s *space) init(k Kernels) error {
	var err error
	s.computePipe, err = s.r.CreatePipeline(renderer.PipelineDesc{
		Label:  "bodies",
		Kernel: k.Bodies,
		Kind:   renderer.PipelineCompute,
		Pass:   renderer.PassScene,
	})
	if err != nil {
		return fmt.Errorf("failed to create bodies pipeline: %w", err)
	}

	s.discPipe, err = s.r.CreatePipeline(renderer.PipelineDesc{
		Label:  "discs",
		Kernel: k.Discs,
		Kind:   renderer.PipelineRender,
		Pass:   renderer.PassScene,
		VertexLayouts: []renderer.VertexLayout{{
			Stride:   instanceSize,
			StepMode: renderer.StepInstance,
			Attributes: []renderer.VertexAttribute{
				{Location: 0, Format: renderer.VertexFloat32x4, Offset: 0},
				{Location: 1, Format: renderer.VertexFloat32x3, Offset: 16},
				{Location: 2, Format: renderer.VertexFloat32, Offset: 28},
			},
		}},
		Topology:  renderer.TopologyTriangleList,
		Blend:     renderer.BlendNone,
		DepthTest: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create discs pipeline: %w", err)
	}

	if s.trails == nil {
		return nil
	}
	s.trailPipe, err = s.r.CreatePipeline(renderer.PipelineDesc{
		Label:  "trails",
		Kernel: k.Trails,
		Kind:   renderer.PipelineRender,
		Pass:   renderer.PassScene,
		VertexLayouts: []renderer.VertexLayout{{
			Stride:   uint64(sim.TrailVertexSize),
			StepMode: renderer.StepVertex,
			Attributes: []renderer.VertexAttribute{
				{Location: 0, Format: renderer.VertexFloat32x3, Offset: 0},
				{Location: 1, Format: renderer.VertexUint32, Offset: 12},
			},
		}},
		Topology: renderer.TopologyLineList,
		Blend:    renderer.BlendAlpha,
	})
	if err != nil {
		return fmt.Errorf("failed to create trails pipeline: %w", err)
	}

	n := uint64(max(s.n, 1))
	if s.trailVerts, err = s.r.CreateBuffer("trail vertices", n*sim.TrailLength*uint64(sim.TrailVertexSize), renderer.UsageVertex); err != nil {
		return fmt.Errorf("failed to create trail vertices: %w", err)
	}
	if s.trailIndices, err = s.r.CreateBuffer("trail indices", n*sim.TrailLength*2*4, renderer.UsageIndex); err != nil {
		return fmt.Errorf("failed to create trail indices: %w", err)
	}
	if s.trailParams, err = s.r.CreateBuffer("trail params", trailParamsSize, renderer.UsageUniform); err != nil {
		return fmt.Errorf("failed to create trail params: %w", err)
	}
	if s.trailColors, err = s.r.CreateBuffer("trail colors", n*trailColorSize, renderer.UsageStorage); err != nil {
		return fmt.Errorf("failed to create trail colors: %w", err)
	}

	if s.n == 0 {
		return nil
	}
	if err := s.r.UpdateBuffer(s.trailIndices, common.SliceToBytes(s.trails.Indices()), 0); err != nil {
		return fmt.Errorf("failed to upload trail indices: %w", err)
	}
	colors := make([][4]float32, s.n)
	for i, c := range s.color {
		colors[i] = [4]float32{c[0], c[1], c[2], 1}
	}
	if err := s.r.UpdateBuffer(s.trailColors, common.SliceToBytes(colors), 0); err != nil {
		return fmt.Errorf("failed to upload trail colors: %w", err)
	}
	return nil
}

// slot returns the resources of frame slot i, creating them on first use.
func (s *space) slot(i int) (*slotResources, error) {
	for len(s.slots) <= i {
		s.slots = append(s.slots, nil)
	}
	if s.slots[i] != nil {
		return s.slots[i], nil
	}

	sr := &slotResources{}
	if err := s.createSlot(i, sr); err != nil {
		for _, h := range sr.handles() {
			if h.Valid() {
				if derr := s.r.Destroy(h); derr != nil {
					s.log.WithError(derr).WithField("slot", i).Warn("failed to release partial slot resources")
				}
			}
		}
		return nil, err
	}
	s.slots[i] = sr
	s.log.WithField("slot", i).Debug("created frame slot resources")
	return sr, nil
}

// handles lists the slot's objects with bind groups ahead of the buffers they reference.
func (sr *slotResources) handles() []renderer.Handle {
	return []renderer.Handle{sr.computeGroup, sr.discGroup, sr.trailGroup, sr.camera, sr.bodies, sr.instances}
}

func (s *space) createSlot(i int, sr *slotResources) error {
	n := uint64(max(s.n, 1))
	uniform := camera.GPUCameraUniform{}
	var err error

	if sr.camera, err = s.r.CreateBuffer(fmt.Sprintf("camera %d", i), uint64(uniform.Size()), renderer.UsageUniform); err != nil {
		return fmt.Errorf("failed to create camera uniform: %w", err)
	}
	if sr.bodies, err = s.r.CreateBuffer(fmt.Sprintf("bodies %d", i), n*GPUBodySize, renderer.UsageStorage); err != nil {
		return fmt.Errorf("failed to create body buffer: %w", err)
	}
	if sr.instances, err = s.r.CreateBuffer(fmt.Sprintf("instances %d", i), n*instanceSize, renderer.UsageStorage|renderer.UsageVertex); err != nil {
		return fmt.Errorf("failed to create instance buffer: %w", err)
	}

	sr.computeGroup, err = s.r.CreateBindGroup(renderer.BindGroupDesc{
		Label:    fmt.Sprintf("bodies %d", i),
		Pipeline: s.computePipe,
		Entries: []renderer.BindEntry{
			{Binding: 0, Buffer: sr.camera},
			{Binding: 1, Buffer: sr.bodies},
			{Binding: 2, Buffer: sr.instances},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create bodies bind group: %w", err)
	}
	sr.discGroup, err = s.r.CreateBindGroup(renderer.BindGroupDesc{
		Label:    fmt.Sprintf("discs %d", i),
		Pipeline: s.discPipe,
		Entries:  []renderer.BindEntry{{Binding: 0, Buffer: sr.camera}},
	})
	if err != nil {
		return fmt.Errorf("failed to create discs bind group: %w", err)
	}

	if s.trails != nil {
		sr.trailGroup, err = s.r.CreateBindGroup(renderer.BindGroupDesc{
			Label:    fmt.Sprintf("trails %d", i),
			Pipeline: s.trailPipe,
			Entries: []renderer.BindEntry{
				{Binding: 0, Buffer: sr.camera},
				{Binding: 1, Buffer: s.trailParams},
				{Binding: 2, Buffer: s.trailColors},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create trails bind group: %w", err)
		}
	}
	return nil
}

func (s *space) Pass() renderer.PassKind {
	return renderer.PassScene
}

func (s *space) Prepare(ctx *frame.Context) error {
	if ctx.Recreated {
		s.log.Info("device recreated, scene resources restored")
	}
	sr, err := s.slot(ctx.Slot)
	if err != nil {
		return err
	}
	s.cam.Resize(ctx.Width, ctx.Height)

	s.mu.Lock()
	fresh := s.exchange.Sample(&s.sample)
	if fresh {
		s.sampled = true
	}
	clearTrails := s.clear
	s.clear = false
	sampled := s.sampled
	if sampled {
		s.packed = marshalBodies(s.packed, s.sample.Positions, s.radius, s.color)
	}
	var positions []float32
	if fresh && s.trails != nil {
		positions = s.sample.Positions
	}
	s.mu.Unlock()

	if s.trails != nil {
		if clearTrails {
			s.trails.Clear()
		}
		if positions != nil {
			if err := s.trails.Push(positions); err != nil {
				return fmt.Errorf("failed to push trail sample: %w", err)
			}
		}
		if err := s.trails.Flush(func(offset int, data []byte) error {
			return s.r.UpdateBuffer(s.trailVerts, data, uint64(offset))
		}); err != nil {
			return fmt.Errorf("failed to upload trails: %w", err)
		}
		params := s.trails.Params()
		if err := s.r.UpdateBuffer(s.trailParams, common.StructToBytes(&params), 0); err != nil {
			return fmt.Errorf("failed to update trail params: %w", err)
		}
	}

	uniform := s.cam.Uniform()
	if err := s.r.UpdateBuffer(sr.camera, uniform.Marshal(), 0); err != nil {
		return fmt.Errorf("failed to update camera uniform: %w", err)
	}
	if sampled && s.n > 0 {
		if err := s.r.UpdateBuffer(sr.bodies, common.SliceToBytes(s.packed), 0); err != nil {
			return fmt.Errorf("failed to upload bodies: %w", err)
		}
	}
	return nil
}

func (s *space) drawable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampled && s.n > 0
}

func (s *space) RecordCompute(ctx *frame.Context, pass renderer.ComputePass) {
	if !s.drawable() {
		return
	}
	sr := s.slots[ctx.Slot]
	pass.SetPipeline(s.computePipe)
	pass.SetBindGroup(0, sr.computeGroup)
	pass.DispatchWorkgroups(uint32(common.CeilDiv(s.n, workgroupSize)), 1, 1)
}

func (s *space) RecordRender(ctx *frame.Context, pass renderer.RenderPass) {
	if !s.drawable() {
		return
	}
	sr := s.slots[ctx.Slot]

	if s.trails != nil {
		if ranges := s.trails.IndexRanges(); len(ranges) > 0 {
			pass.SetPipeline(s.trailPipe)
			pass.SetBindGroup(0, sr.trailGroup)
			pass.SetVertexBuffer(0, s.trailVerts)
			pass.SetIndexBuffer(s.trailIndices)
			for _, r := range ranges {
				pass.DrawIndexed(r.Count, 1, r.First, 0, 0)
			}
		}
	}

	pass.SetPipeline(s.discPipe)
	pass.SetBindGroup(0, sr.discGroup)
	pass.SetVertexBuffer(0, sr.instances)
	pass.Draw(6, uint32(s.n), 0, 0)
}

func (s *space) SetFocusSource(focus func() (int, bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focus = focus
}

func (s *space) Camera() camera.Camera {
	return s.cam
}

func (s *space) Sampled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampled
}

func (s *space) Bodies() int {
	return s.n
}

func (s *space) BodyPosition(i int) ([3]float32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sampled || i < 0 || i >= s.n || 3*i+2 >= len(s.sample.Positions) {
		return [3]float32{}, false
	}
	p := s.sample.Positions[3*i:]
	return [3]float32{p[0], p[1], p[2]}, true
}

func (s *space) ScaleDelta(f float64) {
	dt := s.runner.Simulation().ScaleDelta(f)
	s.log.WithField("delta", dt).Debug("step size changed")
}

func (s *space) TogglePause() {
	paused := s.runner.TogglePause()
	s.log.WithField("paused", paused).Info("simulation pause toggled")
}

// ClearTrails drops every trail sample at the start of the next frame.
func (s *space) ClearTrails() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear = true
}

func (s *space) Info() ui.Info {
	s.mu.Lock()
	tick, elapsed := s.sample.Tick, s.sample.Elapsed
	focus := s.focus
	s.mu.Unlock()

	info := ui.Info{
		Tick:    tick,
		Elapsed: elapsed,
		Delta:   s.runner.Simulation().Delta(),
		Paused:  s.runner.Paused(),
		Bodies:  s.n,
		FPS:     s.fps(),
	}
	if focus != nil {
		if i, ok := focus(); ok && i < s.n {
			info.Focus = s.names[i]
			if info.Focus == "" {
				info.Focus = fmt.Sprintf("#%d", i)
			}
		}
	}
	return info
}

func (s *space) Close() error {
	var handles []renderer.Handle
	// bind groups go first; they reference the buffers and pipelines
	for _, sr := range s.slots {
		if sr != nil {
			handles = append(handles, sr.computeGroup, sr.discGroup, sr.trailGroup)
		}
	}
	for _, sr := range s.slots {
		if sr != nil {
			handles = append(handles, sr.camera, sr.bodies, sr.instances)
		}
	}
	handles = append(handles, s.trailVerts, s.trailIndices, s.trailParams, s.trailColors,
		s.computePipe, s.discPipe, s.trailPipe)

	var errs []error
	for _, h := range handles {
		if h.Valid() {
			if err := s.r.Destroy(h); err != nil {
				errs = append(errs, err)
			}
		}
	}
	s.slots = nil
	s.trailVerts, s.trailIndices, s.trailParams, s.trailColors = 0, 0, 0, 0
	s.computePipe, s.discPipe, s.trailPipe = 0, 0, 0
	return errors.Join(errs...)
}
