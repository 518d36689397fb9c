package renderer

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/Carmen-Shannon/oxy-space/engine/kernel"
	"github.com/Carmen-Shannon/oxy-space/engine/logging"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

var errClosed = errors.New("renderer is closed")

type resourceKind int

const (
	kindBuffer resourceKind = iota
	kindTexture
	kindSampler
	kindBindGroup
	kindPipeline
)

func (k resourceKind) String() string {
	switch k {
	case kindBuffer:
		return "buffer"
	case kindTexture:
		return "texture"
	case kindSampler:
		return "sampler"
	case kindBindGroup:
		return "bind group"
	default:
		return "pipeline"
	}
}

// resource is the renderer's record of one device object: the descriptor it was created from,
// the last contents written to it, and the newest submission that referenced it.
type resource struct {
	handle  Handle
	kind    resourceKind
	label   string
	bytes   uint64
	lastUse Fence

	buffer    BufferDesc
	texture   TextureDesc
	sampler   SamplerDesc
	bindGroup BindGroupDesc
	pipeline  PipelineDesc

	// contents holds the last written buffer bytes or texture pixels so the resource can be
	// restored after a device loss.
	contents []byte
}

type stagedWrite struct {
	handle Handle
	offset uint64
	data   []byte
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu  *sync.Mutex
	log *logrus.Entry

	device  Device
	surface SurfaceSource

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	presentMode          PresentMode
	msaa                 MSAASampleCount
	budget               uint64

	nextHandle Handle
	resources  map[Handle]*resource
	pending    []*resource
	staged     []stagedWrite
	bytes      uint64

	submitted Fence
	// recovered is the newest fence submitted before the last device recreation; it is complete by definition.
	recovered Fence

	width, height int
	acquired      bool
	closed        bool
}

// SurfaceSource is the window the renderer presents to.
type SurfaceSource interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// Renderer is the GPU resource manager. It creates buffers, textures, samplers, bind groups and
// pipelines behind stable handles, stages buffer updates until the next submission, defers the
// release of destroyed resources until the GPU no longer uses them, and can rebuild every live
// resource after the device is lost.
//
// A Renderer is used from a single goroutine (the frame producer); its methods are nevertheless
// safe for concurrent use.
type Renderer interface {
	// CreateBuffer allocates a GPU buffer.
	//
	// Parameters:
	//   - label: a debug label
	//   - size: the size in bytes; rounded up to a multiple of 4
	//   - usage: how the buffer will be bound
	//
	// Returns:
	//   - Handle: the buffer handle
	//   - error: a TransientFrame error wrapping common.ErrResourceExhausted when over budget
	CreateBuffer(label string, size uint64, usage Usage) (Handle, error)

	// CreateTexture allocates a 2D texture.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//
	// Returns:
	//   - Handle: the texture handle
	//   - error: a TransientFrame error wrapping common.ErrResourceExhausted when over budget
	CreateTexture(desc TextureDesc) (Handle, error)

	// WriteTexture replaces the full contents of a texture.
	//
	// Parameters:
	//   - h: the texture handle
	//   - pixels: exactly Width*Height*BytesPerPixel bytes, rows tightly packed
	//
	// Returns:
	//   - error: an error if the handle is unknown or the pixel data has the wrong size
	WriteTexture(h Handle, pixels []byte) error

	// CreateSampler creates a sampler.
	CreateSampler(desc SamplerDesc) (Handle, error)

	// CreatePipeline creates a render or compute pipeline from a kernel binary. The pipeline's bind
	// group layouts are derived from the kernel's reflected bindings.
	//
	// Parameters:
	//   - desc: the pipeline descriptor
	//
	// Returns:
	//   - Handle: the pipeline handle
	//   - error: an error if an entry point is missing or the device rejects the pipeline
	CreatePipeline(desc PipelineDesc) (Handle, error)

	// CreateBindGroup binds resources to one group of a pipeline. Every binding the kernel declares
	// in that group must be supplied with a resource of the matching kind and sufficient size.
	//
	// Parameters:
	//   - desc: the bind group descriptor
	//
	// Returns:
	//   - Handle: the bind group handle
	//   - error: an error if the entries do not match the kernel's bindings
	CreateBindGroup(desc BindGroupDesc) (Handle, error)

	// UpdateBuffer copies data and stages it for upload at offset. Staged writes are flushed to the
	// queue immediately before the next Submit, so the next submitted work sees all of them.
	//
	// Parameters:
	//   - h: the buffer handle
	//   - data: the bytes to write; length must be a multiple of 4
	//   - offset: the byte offset; must be a multiple of 4
	//
	// Returns:
	//   - error: an error if the handle is unknown or the write falls outside the buffer
	UpdateBuffer(h Handle, data []byte, offset uint64) error

	// Destroy invalidates h immediately and releases the device object once every submission that
	// referenced it has completed.
	//
	// Parameters:
	//   - h: the handle to destroy
	//
	// Returns:
	//   - error: an error if h is unknown or still referenced by a live bind group
	Destroy(h Handle) error

	// Collect releases destroyed resources whose last submission has completed.
	//
	// Returns:
	//   - int: the number of resources released
	Collect() int

	// ConfigureSurface sizes the presentation surface.
	ConfigureSurface(width, height int) error

	// SurfaceSize returns the configured surface size.
	SurfaceSize() (int, int)

	// AcquireSurface acquires the surface image the next render passes draw into.
	AcquireSurface() error

	// Present presents the acquired surface image.
	Present() error

	// DiscardSurface releases the acquired surface image without presenting it, for frames abandoned
	// after AcquireSurface. It is a no-op when nothing is acquired.
	DiscardSurface()

	// BeginCommands starts recording GPU work for one submission.
	BeginCommands() (Commands, error)

	// Submit flushes staged buffer writes and submits recorded commands.
	//
	// Parameters:
	//   - cmds: commands returned by BeginCommands on this renderer
	//
	// Returns:
	//   - Fence: the fence that signals when the submission has completed
	//   - error: a recording error (e.g. a destroyed handle was used) or a device error
	Submit(cmds Commands) (Fence, error)

	// Completed returns the newest completed fence without blocking.
	Completed() Fence

	// LastSubmitted returns the newest submitted fence.
	LastSubmitted() Fence

	// WaitFence blocks until f has completed or timeout elapses.
	WaitFence(f Fence, timeout time.Duration) error

	// Recreate rebuilds the device context after a loss and recreates every live resource from its
	// descriptor and last written contents. Handles stay valid.
	Recreate() error

	// Stats returns bookkeeping counters.
	Stats() Stats

	// Close waits up to timeout for in-flight work, then releases every resource and the device.
	Close(timeout time.Duration) error
}

var _ Renderer = &renderer{}

// NewRenderer creates the device context for the given window and returns a Renderer owning it.
// The surface is configured at the window's current size.
//
// Parameters:
//   - surface: the window to present to; may be nil when a device is injected with WithDevice
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the resource manager
//   - error: a FatalInit error if no adapter or device could be created
func NewRenderer(surface SurfaceSource, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		log:         logging.For("renderer"),
		surface:     surface,
		msaa:        MSAAOff,
		presentMode: PresentModeVSync,
		resources:   make(map[Handle]*resource),
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the device requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	if r.device == nil {
		if surface == nil {
			return nil, common.Fatal("create renderer", errors.New("no surface and no device"))
		}
		r.device = newWGPUDevice(surface.SurfaceDescriptor(), r.forceFallbackAdapter, r.presentMode, r.msaa)
	}
	if err := r.device.Init(); err != nil {
		return nil, common.Fatal("create renderer", err)
	}

	if surface != nil {
		if err := r.ConfigureSurface(surface.Width(), surface.Height()); err != nil {
			r.device.Close()
			return nil, common.Fatal("create renderer", err)
		}
	}
	return r, nil
}

func (r *renderer) CreateBuffer(label string, size uint64, usage Usage) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if size == 0 {
		return 0, fmt.Errorf("failed to create buffer %q: zero size", label)
	}
	desc := BufferDesc{Label: label, Size: (size + 3) &^ 3, Usage: usage}
	if err := r.reserve("create buffer "+label, desc.Size); err != nil {
		return 0, err
	}

	res := r.newResource(kindBuffer, label, desc.Size)
	res.buffer = desc
	if err := r.device.CreateBuffer(res.handle, desc); err != nil {
		delete(r.resources, res.handle)
		r.bytes -= desc.Size
		return 0, fmt.Errorf("failed to create buffer %q: %w", label, err)
	}
	return res.handle, nil
}

func (r *renderer) CreateTexture(desc TextureDesc) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if desc.Width == 0 || desc.Height == 0 {
		return 0, fmt.Errorf("failed to create texture %q: zero size", desc.Label)
	}
	if err := r.reserve("create texture "+desc.Label, desc.Size()); err != nil {
		return 0, err
	}

	res := r.newResource(kindTexture, desc.Label, desc.Size())
	res.texture = desc
	if err := r.device.CreateTexture(res.handle, desc); err != nil {
		delete(r.resources, res.handle)
		r.bytes -= desc.Size()
		return 0, fmt.Errorf("failed to create texture %q: %w", desc.Label, err)
	}
	return res.handle, nil
}

func (r *renderer) WriteTexture(h Handle, pixels []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.lookup("write texture", h, kindTexture)
	if err != nil {
		return err
	}
	if uint64(len(pixels)) != res.texture.Size() {
		return fmt.Errorf("failed to write texture %q: %d bytes, want %d", res.label, len(pixels), res.texture.Size())
	}
	res.contents = append(res.contents[:0], pixels...)
	if err := r.device.WriteTexture(h, res.texture, res.contents); err != nil {
		return fmt.Errorf("failed to write texture %q: %w", res.label, err)
	}
	return nil
}

func (r *renderer) CreateSampler(desc SamplerDesc) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, errClosed
	}
	res := r.newResource(kindSampler, desc.Label, 0)
	res.sampler = desc
	if err := r.device.CreateSampler(res.handle, desc); err != nil {
		delete(r.resources, res.handle)
		return 0, fmt.Errorf("failed to create sampler %q: %w", desc.Label, err)
	}
	return res.handle, nil
}

func (r *renderer) CreatePipeline(desc PipelineDesc) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, errClosed
	}
	if _, err := desc.EntryPoints(); err != nil {
		return 0, fmt.Errorf("failed to create pipeline %q: %w", desc.Label, err)
	}
	res := r.newResource(kindPipeline, desc.Label, 0)
	res.pipeline = desc
	if err := r.device.CreatePipeline(res.handle, desc); err != nil {
		delete(r.resources, res.handle)
		return 0, fmt.Errorf("failed to create pipeline %q: %w", desc.Label, err)
	}
	r.log.WithField("kernel", desc.Kernel.Name).Debugf("created %s pipeline %q", desc.Pass, desc.Label)
	return res.handle, nil
}

func (r *renderer) CreateBindGroup(desc BindGroupDesc) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.lookup("create bind group", desc.Pipeline, kindPipeline)
	if err != nil {
		return 0, err
	}
	if err := r.validateBindGroup(p.pipeline.Kernel, desc); err != nil {
		return 0, fmt.Errorf("failed to create bind group %q: %w", desc.Label, err)
	}

	desc.Entries = slices.Clone(desc.Entries)
	res := r.newResource(kindBindGroup, desc.Label, 0)
	res.bindGroup = desc
	if err := r.device.CreateBindGroup(res.handle, desc); err != nil {
		delete(r.resources, res.handle)
		return 0, fmt.Errorf("failed to create bind group %q: %w", desc.Label, err)
	}
	return res.handle, nil
}

// validateBindGroup checks desc against the bindings the kernel declares for desc.Group.
func (r *renderer) validateBindGroup(k kernel.Binary, desc BindGroupDesc) error {
	declared := k.BindGroups()[desc.Group]
	if len(declared) == 0 {
		return fmt.Errorf("kernel %q declares no bindings in group %d", k.Name, desc.Group)
	}
	if len(desc.Entries) != len(declared) {
		return fmt.Errorf("kernel %q group %d declares %d bindings, got %d entries", k.Name, desc.Group, len(declared), len(desc.Entries))
	}

	for _, b := range declared {
		idx := slices.IndexFunc(desc.Entries, func(e BindEntry) bool { return e.Binding == b.Binding })
		if idx < 0 {
			return fmt.Errorf("binding %d (%s) has no entry", b.Binding, b.Name)
		}
		e := desc.Entries[idx]

		switch b.Kind {
		case kernel.BindingUniform, kernel.BindingStorage, kernel.BindingReadOnlyStorage:
			res, err := r.lookup("bind "+b.Name, e.Buffer, kindBuffer)
			if err != nil {
				return err
			}
			want := UsageStorage
			if b.Kind == kernel.BindingUniform {
				want = UsageUniform
			}
			if !res.buffer.Usage.Has(want) {
				return fmt.Errorf("binding %d (%s) needs a %s buffer, %q lacks the usage", b.Binding, b.Name, b.Kind, res.label)
			}
			if res.buffer.Size < b.MinSize {
				return fmt.Errorf("binding %d (%s) needs %d bytes, %q has %d", b.Binding, b.Name, b.MinSize, res.label, res.buffer.Size)
			}
		case kernel.BindingTexture:
			res, err := r.lookup("bind "+b.Name, e.Texture, kindTexture)
			if err != nil {
				return err
			}
			if !res.texture.Usage.Has(UsageSampled) {
				return fmt.Errorf("binding %d (%s) needs a sampled texture", b.Binding, b.Name)
			}
		case kernel.BindingSampler:
			if _, err := r.lookup("bind "+b.Name, e.Sampler, kindSampler); err != nil {
				return err
			}
		default:
			return fmt.Errorf("binding %d (%s) has unsupported type %q", b.Binding, b.Name, b.Type)
		}
	}
	return nil
}

func (r *renderer) UpdateBuffer(h Handle, data []byte, offset uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.lookup("update buffer", h, kindBuffer)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	end := offset + uint64(len(data))
	if offset%4 != 0 || len(data)%4 != 0 {
		return fmt.Errorf("failed to update buffer %q: offset %d and length %d must be multiples of 4", res.label, offset, len(data))
	}
	if end > res.buffer.Size {
		return fmt.Errorf("failed to update buffer %q: write [%d, %d) exceeds size %d", res.label, offset, end, res.buffer.Size)
	}

	if res.contents == nil {
		res.contents = make([]byte, res.buffer.Size)
	}
	copy(res.contents[offset:end], data)
	r.staged = append(r.staged, stagedWrite{handle: h, offset: offset, data: slices.Clone(data)})
	return nil
}

func (r *renderer) Destroy(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[h]
	if !ok {
		return fmt.Errorf("failed to destroy %s: %w", h, common.ErrNotFound)
	}
	for _, other := range r.resources {
		if other.kind == kindBindGroup && other.handle != h && bindGroupReferences(other.bindGroup, h) {
			return fmt.Errorf("failed to destroy %s %q: still referenced by bind group %q", res.kind, res.label, other.label)
		}
	}

	delete(r.resources, h)
	if res.lastUse <= r.completedLocked() {
		r.release(res)
		return nil
	}
	r.pending = append(r.pending, res)
	return nil
}

func bindGroupReferences(desc BindGroupDesc, h Handle) bool {
	if desc.Pipeline == h {
		return true
	}
	for _, e := range desc.Entries {
		if e.Buffer == h || e.Texture == h || e.Sampler == h {
			return true
		}
	}
	return false
}

func (r *renderer) Collect() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	completed := r.completedLocked()
	released := 0
	kept := r.pending[:0]
	for _, res := range r.pending {
		if res.lastUse <= completed {
			r.release(res)
			released++
			continue
		}
		kept = append(kept, res)
	}
	clear(r.pending[len(kept):])
	r.pending = kept
	return released
}

func (r *renderer) ConfigureSurface(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errClosed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("failed to configure surface: size %dx%d", width, height)
	}
	if err := r.device.ConfigureSurface(width, height); err != nil {
		return fmt.Errorf("failed to configure surface: %w", err)
	}
	r.width, r.height = width, height
	return nil
}

func (r *renderer) SurfaceSize() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) AcquireSurface() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errClosed
	}
	if r.acquired {
		return errors.New("previous frame surface not yet presented")
	}
	if err := r.device.AcquireSurface(); err != nil {
		return err
	}
	r.acquired = true
	return nil
}

func (r *renderer) Present() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.acquired {
		return errors.New("no surface acquired")
	}
	r.acquired = false
	return r.device.Present()
}

func (r *renderer) DiscardSurface() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.acquired {
		r.acquired = false
		r.device.DiscardSurface()
	}
}

func (r *renderer) BeginCommands() (Commands, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errClosed
	}
	dev, err := r.device.BeginCommands()
	if err != nil {
		return nil, fmt.Errorf("failed to begin commands: %w", err)
	}
	return &commands{r: r, dev: dev, used: make(map[Handle]struct{})}, nil
}

func (r *renderer) Submit(cmds Commands) (Fence, error) {
	c, ok := cmds.(*commands)
	if !ok || c.r != r {
		return 0, errors.New("commands were not recorded by this renderer")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c.done {
		return 0, errors.New("commands already submitted")
	}
	c.done = true
	if c.err != nil {
		r.device.Discard(c.dev)
		return 0, c.err
	}

	for _, w := range r.staged {
		if _, live := r.resources[w.handle]; !live {
			continue
		}
		if err := r.device.WriteBuffer(w.handle, w.offset, w.data); err != nil {
			r.device.Discard(c.dev)
			return 0, fmt.Errorf("failed to flush buffer writes: %w", err)
		}
	}
	clear(r.staged)
	r.staged = r.staged[:0]

	fence := r.submitted + 1
	if err := r.device.Submit(c.dev, fence); err != nil {
		return 0, fmt.Errorf("failed to submit: %w", err)
	}
	r.submitted = fence
	for h := range c.used {
		if res, ok := r.resources[h]; ok {
			res.lastUse = fence
		}
	}
	return fence, nil
}

func (r *renderer) Completed() Fence {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completedLocked()
}

func (r *renderer) completedLocked() Fence {
	return min(max(r.device.Completed(), r.recovered), r.submitted)
}

func (r *renderer) LastSubmitted() Fence {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submitted
}

func (r *renderer) WaitFence(f Fence, timeout time.Duration) error {
	r.mu.Lock()
	if f > r.submitted {
		r.mu.Unlock()
		return fmt.Errorf("failed to wait for fence %d: only %d submitted", f, r.submitted)
	}
	if f <= r.completedLocked() {
		r.mu.Unlock()
		return nil
	}
	dev := r.device
	r.mu.Unlock()

	if err := dev.Wait(f, timeout); err != nil {
		return fmt.Errorf("failed to wait for fence %d: %w", f, err)
	}
	return nil
}

func (r *renderer) Recreate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errClosed
	}
	start := time.Now()
	if err := r.device.Init(); err != nil {
		return fmt.Errorf("failed to recreate device: %w", err)
	}
	r.recovered = r.submitted
	r.acquired = false
	// the old device took pending objects with it
	for _, res := range r.pending {
		r.bytes -= res.bytes
	}
	clear(r.pending)
	r.pending = r.pending[:0]
	r.staged = r.staged[:0]

	if r.width > 0 && r.height > 0 {
		if err := r.device.ConfigureSurface(r.width, r.height); err != nil {
			return fmt.Errorf("failed to reconfigure surface: %w", err)
		}
	}

	handles := make([]Handle, 0, len(r.resources))
	for h := range r.resources {
		handles = append(handles, h)
	}
	slices.Sort(handles)

	for _, h := range handles {
		res := r.resources[h]
		if err := r.restore(res); err != nil {
			return fmt.Errorf("failed to recreate %s %q: %w", res.kind, res.label, err)
		}
		res.lastUse = 0
	}

	r.log.WithFields(logrus.Fields{
		"resources": len(handles),
		"elapsed":   time.Since(start),
	}).Warn("device context recreated")
	return nil
}

// restore recreates one resource on the fresh device. Handles are restored in creation order, so
// everything a bind group references already exists.
func (r *renderer) restore(res *resource) error {
	switch res.kind {
	case kindBuffer:
		if err := r.device.CreateBuffer(res.handle, res.buffer); err != nil {
			return err
		}
		if res.contents != nil {
			return r.device.WriteBuffer(res.handle, 0, res.contents)
		}
	case kindTexture:
		if err := r.device.CreateTexture(res.handle, res.texture); err != nil {
			return err
		}
		if res.contents != nil {
			return r.device.WriteTexture(res.handle, res.texture, res.contents)
		}
	case kindSampler:
		return r.device.CreateSampler(res.handle, res.sampler)
	case kindPipeline:
		return r.device.CreatePipeline(res.handle, res.pipeline)
	case kindBindGroup:
		return r.device.CreateBindGroup(res.handle, res.bindGroup)
	}
	return nil
}

func (r *renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Live:            len(r.resources),
		PendingDestroys: len(r.pending),
		Bytes:           r.bytes,
		Submitted:       r.submitted,
		Completed:       r.completedLocked(),
	}
}

func (r *renderer) Close(timeout time.Duration) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	last := r.submitted
	r.mu.Unlock()

	var waitErr error
	if last > 0 {
		if waitErr = r.WaitFence(last, timeout); waitErr != nil {
			r.log.WithError(waitErr).Warn("in-flight work did not drain before close")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, res := range r.pending {
		r.release(res)
	}
	r.pending = nil

	handles := make([]Handle, 0, len(r.resources))
	for h := range r.resources {
		handles = append(handles, h)
	}
	// bind groups and pipelines first: newest handles reference older ones
	slices.Sort(handles)
	slices.Reverse(handles)
	for _, h := range handles {
		r.release(r.resources[h])
		delete(r.resources, h)
	}

	r.device.Close()
	r.closed = true
	return waitErr
}

// newResource allocates the next handle and registers a record for it. Callers hold r.mu.
func (r *renderer) newResource(kind resourceKind, label string, bytes uint64) *resource {
	r.nextHandle++
	res := &resource{handle: r.nextHandle, kind: kind, label: label, bytes: bytes}
	r.resources[res.handle] = res
	return res
}

// reserve accounts bytes against the memory budget. Callers hold r.mu.
func (r *renderer) reserve(op string, bytes uint64) error {
	if r.closed {
		return errClosed
	}
	if r.budget > 0 && r.bytes+bytes > r.budget {
		return common.Transient(op, fmt.Errorf("%d bytes requested, %d of %d in use: %w", bytes, r.bytes, r.budget, common.ErrResourceExhausted))
	}
	r.bytes += bytes
	return nil
}

// release frees the device object and its accounting. Callers hold r.mu.
func (r *renderer) release(res *resource) {
	r.device.Release(res.handle)
	r.bytes -= res.bytes
	res.contents = nil
}

// lookup returns the live resource of the given kind. Callers hold r.mu.
func (r *renderer) lookup(op string, h Handle, kind resourceKind) (*resource, error) {
	if r.closed {
		return nil, errClosed
	}
	res, ok := r.resources[h]
	if !ok {
		return nil, fmt.Errorf("failed to %s: %s %s: %w", op, kind, h, common.ErrNotFound)
	}
	if res.kind != kind {
		return nil, fmt.Errorf("failed to %s: %s is a %s, not a %s", op, h, res.kind, kind)
	}
	return res, nil
}
