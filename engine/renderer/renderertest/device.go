// Package renderertest provides a GPU-free renderer.Device for tests. It records every call, tracks
// fences explicitly and flags any release of an object that an unsignaled submission still uses.
package renderertest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/Carmen-Shannon/oxy-space/engine/renderer"
)

// Device is a fake renderer.Device. By default every submission completes immediately
// (AutoComplete); set AutoComplete to false and call Signal to control completion.
type Device struct {
	mu sync.Mutex

	// AutoComplete signals each fence as soon as it is submitted.
	AutoComplete bool
	// FailAcquire makes the next n AcquireSurface calls fail with AcquireErr.
	FailAcquire int
	// AcquireErr is returned by failing acquires; defaults to a TransientFrame ErrSurfaceLost error.
	AcquireErr error
	// FailInit makes the next n Init calls fail.
	FailInit int

	objects   map[renderer.Handle]any
	contents  map[renderer.Handle][]byte
	inFlight  map[renderer.Fence][]renderer.Handle
	submitted renderer.Fence
	completed renderer.Fence
	lost      bool

	Width, Height   int
	Inits           int
	Configures      int
	Acquires        int
	Presents        int
	SurfaceDiscards int
	Submits         int
	Discards        int
	Releases        int
	Draws           int
	DrawnIndexed    int
	Dispatches      int
	Scissors        []Scissor
	Passes          []renderer.PassKind

	// Violations lists releases of objects still used by an unsignaled submission.
	Violations []string

	acquired bool
}

// Scissor is one recorded SetScissorRect call.
type Scissor struct {
	X, Y, Width, Height uint32
}

var _ renderer.Device = &Device{}

// NewDevice returns a fake device that completes work immediately.
func NewDevice() *Device {
	return &Device{
		AutoComplete: true,
		objects:      make(map[renderer.Handle]any),
		contents:     make(map[renderer.Handle][]byte),
		inFlight:     make(map[renderer.Fence][]renderer.Handle),
	}
}

func (d *Device) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Inits++
	if d.FailInit > 0 {
		d.FailInit--
		return errors.New("no adapter")
	}
	clear(d.objects)
	clear(d.contents)
	clear(d.inFlight)
	d.submitted, d.completed = 0, 0
	d.lost = false
	d.acquired = false
	return nil
}

func (d *Device) ConfigureSurface(width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lost {
		return common.Lost("configure surface", common.ErrDeviceLost)
	}
	d.Configures++
	d.Width, d.Height = width, height
	return nil
}

func (d *Device) AcquireSurface() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Acquires++
	if d.lost {
		return common.Lost("acquire surface", common.ErrDeviceLost)
	}
	if d.FailAcquire > 0 {
		d.FailAcquire--
		if d.AcquireErr != nil {
			return d.AcquireErr
		}
		return common.Transient("acquire surface", common.ErrSurfaceLost)
	}
	d.acquired = true
	return nil
}

func (d *Device) Present() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.acquired {
		return errors.New("present without acquire")
	}
	d.acquired = false
	d.Presents++
	return nil
}

func (d *Device) DiscardSurface() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acquired = false
	d.SurfaceDiscards++
}

func (d *Device) CreateBuffer(h renderer.Handle, desc renderer.BufferDesc) error {
	return d.create(h, desc)
}

func (d *Device) WriteBuffer(h renderer.Handle, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	desc, ok := d.objects[h].(renderer.BufferDesc)
	if !ok {
		return fmt.Errorf("buffer %s: %w", h, common.ErrNotFound)
	}
	buf := d.contents[h]
	if buf == nil {
		buf = make([]byte, desc.Size)
		d.contents[h] = buf
	}
	copy(buf[offset:], data)
	return nil
}

func (d *Device) CreateTexture(h renderer.Handle, desc renderer.TextureDesc) error {
	return d.create(h, desc)
}

func (d *Device) WriteTexture(h renderer.Handle, desc renderer.TextureDesc, pixels []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.objects[h].(renderer.TextureDesc); !ok {
		return fmt.Errorf("texture %s: %w", h, common.ErrNotFound)
	}
	d.contents[h] = append([]byte(nil), pixels...)
	return nil
}

func (d *Device) CreateSampler(h renderer.Handle, desc renderer.SamplerDesc) error {
	return d.create(h, desc)
}

func (d *Device) CreatePipeline(h renderer.Handle, desc renderer.PipelineDesc) error {
	return d.create(h, desc)
}

func (d *Device) CreateBindGroup(h renderer.Handle, desc renderer.BindGroupDesc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.objects[desc.Pipeline]; !ok {
		return fmt.Errorf("pipeline %s: %w", desc.Pipeline, common.ErrNotFound)
	}
	for _, e := range desc.Entries {
		for _, ref := range [...]renderer.Handle{e.Buffer, e.Texture, e.Sampler} {
			if _, ok := d.objects[ref]; ref.Valid() && !ok {
				return fmt.Errorf("bind group entry %s: %w", ref, common.ErrNotFound)
			}
		}
	}
	d.objects[h] = desc
	return nil
}

func (d *Device) create(h renderer.Handle, desc any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lost {
		return common.Lost("create object", common.ErrDeviceLost)
	}
	if _, ok := d.objects[h]; ok {
		return fmt.Errorf("handle %s created twice", h)
	}
	d.objects[h] = desc
	return nil
}

func (d *Device) Release(h renderer.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for f, used := range d.inFlight {
		if f <= d.completed {
			continue
		}
		for _, u := range used {
			if u == h {
				d.Violations = append(d.Violations, fmt.Sprintf("%s released while fence %d is unsignaled", h, f))
			}
		}
	}
	delete(d.objects, h)
	delete(d.contents, h)
	d.Releases++
}

func (d *Device) BeginCommands() (renderer.Commands, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lost {
		return nil, common.Lost("begin commands", common.ErrDeviceLost)
	}
	return &commands{d: d}, nil
}

func (d *Device) Submit(cmds renderer.Commands, fence renderer.Fence) error {
	c := cmds.(*commands)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lost {
		return common.Lost("submit", common.ErrDeviceLost)
	}
	if fence <= d.submitted {
		return fmt.Errorf("fence %d submitted after %d", fence, d.submitted)
	}
	d.Submits++
	d.submitted = fence
	d.inFlight[fence] = c.used
	if d.AutoComplete {
		d.completed = fence
	}
	return nil
}

func (d *Device) Discard(renderer.Commands) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Discards++
}

func (d *Device) Completed() renderer.Fence {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completed
}

func (d *Device) Wait(fence renderer.Fence, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		d.mu.Lock()
		done := fence <= d.completed
		d.mu.Unlock()
		if done {
			return nil
		}
		if time.Now().After(deadline) {
			return common.Transient("wait fence", common.ErrTimeout)
		}
		time.Sleep(time.Millisecond)
	}
}

func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.objects)
}

// Signal marks every submission up to and including fence as complete.
func (d *Device) Signal(fence renderer.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completed = max(d.completed, min(fence, d.submitted))
}

// SignalAll completes every submitted fence.
func (d *Device) SignalAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completed = d.submitted
}

// LoseDevice makes every following call fail with a DeviceLost error until the next Init.
func (d *Device) LoseDevice() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lost = true
}

// Live returns the number of objects currently alive on the device.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.objects)
}

// Has reports whether h is alive on the device.
func (d *Device) Has(h renderer.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.objects[h]
	return ok
}

// Contents returns a copy of the last bytes written to a buffer or texture.
func (d *Device) Contents(h renderer.Handle) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.contents[h]...)
}

type commands struct {
	d    *Device
	used []renderer.Handle
}

func (c *commands) BeginComputePass() renderer.ComputePass {
	return &pass{c: c}
}

func (c *commands) BeginRenderPass(kind renderer.PassKind) renderer.RenderPass {
	c.d.mu.Lock()
	c.d.Passes = append(c.d.Passes, kind)
	c.d.mu.Unlock()
	return &pass{c: c}
}

func (c *commands) use(h renderer.Handle) {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()

	c.used = append(c.used, h)
	if desc, ok := c.d.objects[h].(renderer.BindGroupDesc); ok {
		c.used = append(c.used, desc.Pipeline)
		for _, e := range desc.Entries {
			for _, ref := range [...]renderer.Handle{e.Buffer, e.Texture, e.Sampler} {
				if ref.Valid() {
					c.used = append(c.used, ref)
				}
			}
		}
	}
}

// pass implements both renderer.ComputePass and renderer.RenderPass.
type pass struct {
	c *commands
}

func (p *pass) SetPipeline(pipeline renderer.Handle)             { p.c.use(pipeline) }
func (p *pass) SetBindGroup(_ uint32, group renderer.Handle)     { p.c.use(group) }
func (p *pass) SetVertexBuffer(_ uint32, buffer renderer.Handle) { p.c.use(buffer) }
func (p *pass) SetIndexBuffer(buffer renderer.Handle)            { p.c.use(buffer) }
func (p *pass) End()                                             {}

func (p *pass) SetScissorRect(x, y, width, height uint32) {
	p.c.d.mu.Lock()
	defer p.c.d.mu.Unlock()
	p.c.d.Scissors = append(p.c.d.Scissors, Scissor{x, y, width, height})
}

func (p *pass) DispatchWorkgroups(x, y, z uint32) {
	p.c.d.mu.Lock()
	defer p.c.d.mu.Unlock()
	p.c.d.Dispatches++
}

func (p *pass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.c.d.mu.Lock()
	defer p.c.d.mu.Unlock()
	p.c.d.Draws++
}

func (p *pass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.c.d.mu.Lock()
	defer p.c.d.mu.Unlock()
	p.c.d.DrawnIndexed++
}

// Stats is a snapshot of the fake device counters, safe to read while the device is in use.
type Stats struct {
	Configures, Acquires, Presents, SurfaceDiscards int
	Submits, Draws, DrawnIndexed, Dispatches        int
	Width, Height                                   int
	Violations                                      []string
}

// Snapshot returns the device counters under the device lock.
func (d *Device) Snapshot() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Configures:      d.Configures,
		Acquires:        d.Acquires,
		Presents:        d.Presents,
		SurfaceDiscards: d.SurfaceDiscards,
		Submits:         d.Submits,
		Draws:           d.Draws,
		DrawnIndexed:    d.DrawnIndexed,
		Dispatches:      d.Dispatches,
		Width:           d.Width,
		Height:          d.Height,
		Violations:      append([]string(nil), d.Violations...),
	}
}
