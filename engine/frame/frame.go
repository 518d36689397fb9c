// Package frame drives one GPU frame at a time: acquire the surface, submit compute work, submit
// render work on the same queue, present. It owns frame-slot pacing, surface resize coalescing and
// device-loss recovery so layers only record commands.
package frame

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-space/engine/renderer"
)

// State is the position of the scheduler within a frame.
type State int

const (
	StateIdle State = iota
	StateSurfaceAcquired
	StateComputeSubmitted
	StateRenderSubmitted
	StatePresented
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSurfaceAcquired:
		return "surface-acquired"
	case StateComputeSubmitted:
		return "compute-submitted"
	case StateRenderSubmitted:
		return "render-submitted"
	case StatePresented:
		return "presented"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// next lists the legal successor of each state. Any state may also fall back to StateIdle when a
// frame is abandoned.
var next = map[State]State{
	StateIdle:             StateSurfaceAcquired,
	StateSurfaceAcquired:  StateComputeSubmitted,
	StateComputeSubmitted: StateRenderSubmitted,
	StateRenderSubmitted:  StatePresented,
	StatePresented:        StateIdle,
}

// Context is the per-frame scratch state handed to layers. It is created at frame start and
// dropped after present; layers must not retain it.
type Context struct {
	// Frame is the number of the frame being produced, counting from zero.
	Frame uint64
	// Slot indexes the per-frame resources a layer may keep (0 <= Slot < FramesInFlight).
	Slot int
	// Width and Height are the surface size this frame renders at.
	Width, Height int
	// Delta is the wall time since the previous frame started.
	Delta time.Duration
	// Recreated is set on the first frame after the device context was recreated. Layers that
	// cache device state derived from buffer contents should rewrite it.
	Recreated bool

	Renderer renderer.Renderer
}

// Layer is one z-ordered contributor to a frame.
type Layer interface {
	// Pass returns the render pass the layer draws in.
	Pass() renderer.PassKind

	// Prepare samples state and stages buffer updates for this frame. It runs before the surface is
	// acquired. A TransientFrame error skips the frame; any other error is returned from Frame.
	Prepare(ctx *Context) error

	// RecordCompute records compute dispatches. All layers share one compute pass.
	RecordCompute(ctx *Context, pass renderer.ComputePass)

	// RecordRender records draws into the layer's pass.
	RecordRender(ctx *Context, pass renderer.RenderPass)
}

// Stats counts frame outcomes.
type Stats struct {
	Frames     uint64
	Presented  uint64
	Skipped    uint64
	Recoveries uint64
	// Waits counts frames that blocked on a slot whose previous fence had not signaled.
	Waits uint64
	// LastSkip is the reason of the most recent skipped frame.
	LastSkip string
}
