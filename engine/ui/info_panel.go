package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/Carmen-Shannon/oxy-space/engine/profiler"
	"github.com/Carmen-Shannon/oxy-space/engine/sim"
)

// Info is what the info panel shows about the running simulation.
type Info struct {
	Tick    uint64
	Elapsed float64 // simulated seconds
	Delta   float64 // seconds per tick
	Paused  bool
	Bodies  int
	// Focus names the focused body; empty when nothing is focused.
	Focus string
	FPS   float64
}

// Model is the state the info panel reads and the controls it writes back.
type Model interface {
	Info() Info
	ScaleDelta(f float64)
	TogglePause()
	ClearTrails()
}

type button struct {
	label  string
	rect   common.Rect
	action func(Model)
}

// InfoPanel is an immediate-mode panel with simulation statistics and buttons for the step size,
// the trails and pausing. Clicks are hit-tested against the buttons of the last painted frame and
// applied on the next Paint, on the frame goroutine.
type InfoPanel struct {
	mu    *sync.Mutex // guards buttons and pending
	model Model

	origin  [2]float32
	padding float32
	now     func() time.Time
	ticks   *profiler.RateMeter

	buttons []button
	pending []func(Model)
}

// NewInfoPanel creates a panel over model.
//
// Parameters:
//   - model: the simulation state and controls
//   - options: functional options to configure the panel
//
// Returns:
//   - *InfoPanel: the panel
func NewInfoPanel(model Model, options ...InfoPanelOption) *InfoPanel {
	ip := &InfoPanel{
		mu:      &sync.Mutex{},
		model:   model,
		origin:  [2]float32{10, 10},
		padding: 6,
		now:     time.Now,
		ticks:   profiler.NewRateMeter(profiler.DefaultRateSamples),
	}
	for _, option := range options {
		option(ip)
	}
	return ip
}

// Click hit-tests a pointer press against the buttons painted last frame.
//
// Parameters:
//   - x, y: the pointer position in pixels
//
// Returns:
//   - bool: true if a button was hit; the press should not reach the camera
func (ip *InfoPanel) Click(x, y float64) bool {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	for _, b := range ip.buttons {
		if b.rect.Contains(float32(x), float32(y)) {
			ip.pending = append(ip.pending, b.action)
			return true
		}
	}
	return false
}

// Paint applies pending clicks and draws the panel.
func (ip *InfoPanel) Paint(p *Painter) {
	ip.mu.Lock()
	pending := ip.pending
	ip.pending = nil
	ip.mu.Unlock()

	for _, action := range pending {
		action(ip.model)
	}

	info := ip.model.Info()
	ip.ticks.Observe(info.Tick, ip.now())
	rate := ip.ticks.Rate()

	lines := ip.lines(info, rate)
	atlas := p.Atlas()
	text := strings.Join(lines, "\n")
	tw, th := atlas.Measure(text)

	labels := []string{"dt -", "dt +", "clear trails", "pause"}
	if info.Paused {
		labels[3] = "resume"
	}
	actions := []func(Model){
		func(m Model) { m.ScaleDelta(0.9) },
		func(m Model) { m.ScaleDelta(1.1) },
		func(m Model) { m.ClearTrails() },
		func(m Model) { m.TogglePause() },
	}

	pad := ip.padding
	x, y := ip.origin[0]+pad, ip.origin[1]+pad
	by := y + th + pad
	bh := atlas.LineHeight + pad

	buttons := make([]button, len(labels))
	bx := x
	for i, label := range labels {
		lw, _ := atlas.Measure(label)
		buttons[i] = button{
			label:  label,
			rect:   common.Rect{MinX: bx, MinY: by, MaxX: bx + lw + pad, MaxY: by + bh},
			action: actions[i],
		}
		bx += lw + 2*pad
	}

	width := max(tw, bx-x-pad) + 2*pad
	panel := common.Rect{MinX: ip.origin[0], MinY: ip.origin[1], MaxX: ip.origin[0] + width, MaxY: by + bh + pad}

	p.PushClip(panel)
	p.Rect(panel, Panel)
	p.Text(x, y, text, White)
	for _, b := range buttons {
		p.Rect(b.rect, Button)
		p.Text(b.rect.MinX+pad/2, b.rect.MinY+pad/2, b.label, White)
	}
	p.PopClip()

	ip.mu.Lock()
	ip.buttons = buttons
	ip.mu.Unlock()
}

func (ip *InfoPanel) lines(info Info, tickRate float64) []string {
	focus := info.Focus
	if focus == "" {
		focus = "none"
	}
	state := "running"
	if info.Paused {
		state = "paused"
	}
	return []string{
		fmt.Sprintf("time     %s", sim.FormatDuration(info.Elapsed)),
		fmt.Sprintf("ticks    %d (%s)", info.Tick, state),
		fmt.Sprintf("speed    %s /s", sim.FormatDuration(tickRate*info.Delta)),
		fmt.Sprintf("dt       %.4gs /tick", info.Delta),
		fmt.Sprintf("tick/s   %.1f", tickRate),
		fmt.Sprintf("fps      %.1f", info.FPS),
		fmt.Sprintf("bodies   %d", info.Bodies),
		fmt.Sprintf("focus    %s", focus),
	}
}
