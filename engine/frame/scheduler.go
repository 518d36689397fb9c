package frame

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/Carmen-Shannon/oxy-space/engine/logging"
	"github.com/Carmen-Shannon/oxy-space/engine/renderer"
	"github.com/sirupsen/logrus"
)

type slot struct {
	// fence is the newest submission that used this slot's resources.
	fence renderer.Fence
}

type size struct {
	width, height int
}

// scheduler implements the Scheduler interface.
type scheduler struct {
	mu  *sync.Mutex // guards layers and pending
	log *logrus.Entry

	r      renderer.Renderer
	layers map[int]Layer

	slots         []slot
	fenceTimeout  time.Duration
	maxRecoveries int

	// pending is the newest size reported by Resize and not yet applied.
	pending *size
	target  size

	state     State
	frame     uint64
	lastStart time.Time
	recreated bool
	losses    int

	stats Stats
}

// Scheduler produces frames on the goroutine that owns the renderer.
//
// Each frame runs Prepare on every layer, acquires the surface, submits one compute submission and
// then one render submission on the same queue, and presents. Queue order is the only barrier
// between compute and render work; the CPU never waits between them. The CPU only blocks when a
// frame slot is reused while the GPU still holds the frame that last used it.
type Scheduler interface {
	// AddLayer registers a layer at the given z-index. Lower keys record first.
	AddLayer(key int, l Layer)

	// RemoveLayer removes the layer at the given z-index.
	RemoveLayer(key int)

	// Resize records a new surface size. It is safe to call from any goroutine; only the newest size
	// is applied, at the start of the next frame. Zero-area sizes pause rendering until a real size
	// arrives.
	Resize(width, height int)

	// Frame produces one frame.
	//
	// Transient failures (surface lost twice in a row, a slot that did not free up in time, an
	// exhausted allocation) drop the frame and return nil. A lost device is recreated, up to the
	// configured number of consecutive attempts.
	//
	// Returns:
	//   - error: a FatalInit error when recovery is exhausted, or any unclassified error
	Frame() error

	// State returns where the scheduler is within a frame. Between calls to Frame it is StateIdle.
	State() State

	// Drain waits up to timeout for every submitted frame to complete, then collects destroyed
	// resources.
	Drain(timeout time.Duration) error

	// Stats returns frame counters.
	Stats() Stats
}

var _ Scheduler = &scheduler{}

// NewScheduler creates a frame scheduler driving r.
//
// Parameters:
//   - r: the renderer whose device the frames are produced on; its surface must already be configured
//   - options: variadic list of SchedulerBuilderOption functions to configure the Scheduler
//
// Returns:
//   - Scheduler: the scheduler
func NewScheduler(r renderer.Renderer, options ...SchedulerBuilderOption) Scheduler {
	s := &scheduler{
		mu:            &sync.Mutex{},
		log:           logging.For("frame"),
		r:             r,
		layers:        make(map[int]Layer),
		slots:         make([]slot, 2),
		fenceTimeout:  time.Second,
		maxRecoveries: 3,
		state:         StateIdle,
	}
	for _, opt := range options {
		opt(s)
	}
	s.target.width, s.target.height = r.SurfaceSize()
	return s
}

func (s *scheduler) AddLayer(key int, l Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers[key] = l
}

func (s *scheduler) RemoveLayer(key int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.layers, key)
}

func (s *scheduler) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &size{width: width, height: height}
}

func (s *scheduler) State() State {
	return s.state
}

func (s *scheduler) Stats() Stats {
	return s.stats
}

func (s *scheduler) Frame() error {
	if s.state != StateIdle {
		return fmt.Errorf("frame started in state %s", s.state)
	}
	defer func() { s.frame++ }()

	now := time.Now()
	ctx := &Context{
		Frame:     s.frame,
		Slot:      int(s.frame % uint64(len(s.slots))),
		Recreated: s.recreated,
		Renderer:  s.r,
	}
	if !s.lastStart.IsZero() {
		ctx.Delta = now.Sub(s.lastStart)
	}
	s.lastStart = now
	s.stats.Frames++

	if err := s.applyResize(); err != nil {
		return s.fail("resize surface", err)
	}
	if s.target.width <= 0 || s.target.height <= 0 {
		s.skip("zero-area surface", nil)
		return nil
	}
	ctx.Width, ctx.Height = s.target.width, s.target.height

	if f := s.slots[ctx.Slot].fence; f > s.r.Completed() {
		s.stats.Waits++
		if err := s.r.WaitFence(f, s.fenceTimeout); err != nil {
			return s.fail("wait for frame slot", err)
		}
	}
	s.r.Collect()

	layers := s.sortedLayers()
	for _, l := range layers {
		if err := l.Prepare(ctx); err != nil {
			return s.fail("prepare layer", err)
		}
	}
	s.recreated = false

	if err := s.acquire(); err != nil {
		return s.fail("acquire surface", err)
	}
	if err := s.transition(StateSurfaceAcquired); err != nil {
		return err
	}

	if err := s.submitCompute(ctx, layers); err != nil {
		return s.fail("submit compute", err)
	}
	if err := s.transition(StateComputeSubmitted); err != nil {
		return err
	}

	if err := s.submitRender(ctx, layers); err != nil {
		return s.fail("submit render", err)
	}
	if err := s.transition(StateRenderSubmitted); err != nil {
		return err
	}

	if err := s.r.Present(); err != nil {
		return s.fail("present", err)
	}
	if err := s.transition(StatePresented); err != nil {
		return err
	}

	s.stats.Presented++
	s.losses = 0
	return s.transition(StateIdle)
}

func (s *scheduler) submitCompute(ctx *Context, layers []Layer) error {
	cmds, err := s.r.BeginCommands()
	if err != nil {
		return err
	}
	pass := cmds.BeginComputePass()
	for _, l := range layers {
		l.RecordCompute(ctx, pass)
	}
	pass.End()

	fence, err := s.r.Submit(cmds)
	if err != nil {
		return err
	}
	s.slots[ctx.Slot].fence = fence
	return nil
}

func (s *scheduler) submitRender(ctx *Context, layers []Layer) error {
	cmds, err := s.r.BeginCommands()
	if err != nil {
		return err
	}
	for _, kind := range []renderer.PassKind{renderer.PassScene, renderer.PassOverlay} {
		var inPass []Layer
		for _, l := range layers {
			if l.Pass() == kind {
				inPass = append(inPass, l)
			}
		}
		// the scene pass always runs: it clears the frame
		if kind == renderer.PassOverlay && len(inPass) == 0 {
			continue
		}
		pass := cmds.BeginRenderPass(kind)
		for _, l := range inPass {
			l.RecordRender(ctx, pass)
		}
		pass.End()
	}

	fence, err := s.r.Submit(cmds)
	if err != nil {
		return err
	}
	s.slots[ctx.Slot].fence = fence
	return nil
}

// acquire acquires the surface. A lost or outdated surface is reconfigured at the newest known
// size and acquired once more.
func (s *scheduler) acquire() error {
	err := s.r.AcquireSurface()
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrSurfaceLost) && !errors.Is(err, common.ErrSurfaceOutdated) {
		return err
	}

	s.log.WithError(err).Debug("surface unavailable, reconfiguring")
	s.takePending()
	if s.target.width <= 0 || s.target.height <= 0 {
		return common.Transient("acquire surface", fmt.Errorf("zero-area surface: %w", common.ErrFrameSkipped))
	}
	if err := s.r.ConfigureSurface(s.target.width, s.target.height); err != nil {
		return err
	}
	return s.r.AcquireSurface()
}

// applyResize configures the surface at the newest requested size if it differs from the current one.
func (s *scheduler) applyResize() error {
	s.takePending()
	if s.target.width <= 0 || s.target.height <= 0 {
		return nil
	}
	if w, h := s.r.SurfaceSize(); w == s.target.width && h == s.target.height {
		return nil
	}
	s.log.WithFields(logrus.Fields{"width": s.target.width, "height": s.target.height}).Debug("resizing surface")
	return s.r.ConfigureSurface(s.target.width, s.target.height)
}

func (s *scheduler) takePending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.target = *s.pending
		s.pending = nil
	}
}

func (s *scheduler) transition(to State) error {
	if to != StateIdle && next[s.state] != to {
		return fmt.Errorf("illegal frame state transition %s -> %s", s.state, to)
	}
	s.state = to
	return nil
}

// fail abandons the current frame and decides whether err ends the loop.
func (s *scheduler) fail(op string, err error) error {
	s.r.DiscardSurface()
	s.state = StateIdle

	switch common.KindOf(err) {
	case common.KindTransientFrame:
		s.skip(op, err)
		return nil
	case common.KindDeviceLost:
		s.skip(op, err)
		return s.recoverDevice(err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func (s *scheduler) skip(reason string, err error) {
	s.stats.Skipped++
	s.stats.LastSkip = reason
	entry := s.log.WithFields(logrus.Fields{"frame": s.frame, "reason": reason})
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Debug("frame skipped")
}

// recoverDevice recreates the device context, giving up after maxRecoveries consecutive attempts.
func (s *scheduler) recoverDevice(lost error) error {
	last := lost
	for {
		s.losses++
		if s.losses > s.maxRecoveries {
			return common.Fatal("recover device", fmt.Errorf("gave up after %d consecutive attempts (last: %v): %w", s.maxRecoveries, last, lost))
		}
		s.log.WithError(last).WithField("attempt", s.losses).Warn("device lost, recreating")

		err := s.r.Recreate()
		if err == nil {
			s.stats.Recoveries++
			s.recreated = true
			return nil
		}
		last = err
	}
}

func (s *scheduler) sortedLayers() []Layer {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]int, 0, len(s.layers))
	for k := range s.layers {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	layers := make([]Layer, 0, len(keys))
	for _, k := range keys {
		layers = append(layers, s.layers[k])
	}
	return layers
}

func (s *scheduler) Drain(timeout time.Duration) error {
	if last := s.r.LastSubmitted(); last > 0 {
		if err := s.r.WaitFence(last, timeout); err != nil {
			return fmt.Errorf("failed to drain: %w", err)
		}
	}
	s.r.Collect()
	return nil
}
