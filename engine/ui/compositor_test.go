package ui

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/Carmen-Shannon/oxy-space/engine/frame"
	"github.com/Carmen-Shannon/oxy-space/engine/renderer"
	"github.com/Carmen-Shannon/oxy-space/engine/renderer/renderertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCompositor(t *testing.T, widgets ...Widget) (*Compositor, frame.Scheduler, renderer.Renderer, *renderertest.Device) {
	t.Helper()
	dev := renderertest.NewDevice()
	r, err := renderer.NewRenderer(nil, renderer.WithDevice(dev))
	require.NoError(t, err)
	require.NoError(t, r.ConfigureSurface(640, 480))

	k, err := renderertest.Kernel("overlay")
	require.NoError(t, err)
	atlas := newAtlas(t)

	c, err := NewCompositor(r, k, atlas, NewOverlay(atlas, widgets...))
	require.NoError(t, err)
	return c, frame.NewScheduler(r, frame.WithLayer(10, c)), r, dev
}

func TestCompositorScissorsEachCommand(t *testing.T) {
	_, s, _, dev := newTestCompositor(t, widgetFunc(func(p *Painter) {
		p.Rect(common.Rect{MaxX: 10, MaxY: 10}, White)

		p.PushClip(common.Rect{MinX: 700, MaxX: 800, MaxY: 100})
		p.Rect(common.Rect{MinX: 700, MaxX: 720, MaxY: 20}, White)
		p.PopClip()

		p.PushClip(common.Rect{MinX: 600, MinY: 400, MaxX: 700, MaxY: 500})
		p.Rect(common.Rect{MinX: 600, MinY: 400, MaxX: 700, MaxY: 500}, White)
		p.PopClip()
	}))

	require.NoError(t, s.Frame())

	stats := dev.Snapshot()
	assert.Equal(t, 2, stats.DrawnIndexed, "the command clipped off the surface is skipped")
	assert.Equal(t, []renderertest.Scissor{
		{X: 0, Y: 0, Width: 640, Height: 480},
		{X: 600, Y: 400, Width: 40, Height: 80},
		{X: 0, Y: 0, Width: 640, Height: 480},
	}, dev.Scissors)
	assert.Equal(t, []renderer.PassKind{renderer.PassScene, renderer.PassOverlay}, dev.Passes)
	assert.Empty(t, stats.Violations)
}

func TestCompositorEmptyListDrawsNothing(t *testing.T) {
	_, s, _, dev := newTestCompositor(t)
	require.NoError(t, s.Frame())
	assert.Equal(t, 0, dev.Snapshot().DrawnIndexed)
	assert.Empty(t, dev.Scissors)
}

func TestCompositorGrowsBuffersAfterInFlightFrames(t *testing.T) {
	quads := 1
	c, s, r, dev := newTestCompositor(t, widgetFunc(func(p *Painter) {
		for i := range quads {
			x := float32(i % 100)
			p.Rect(common.Rect{MinX: x, MaxX: x + 1, MaxY: 1}, White)
		}
	}))
	dev.AutoComplete = false

	require.NoError(t, s.Frame())
	assert.Equal(t, uint64(minBufferSize), c.vertexBytes)
	assert.Equal(t, uint64(minBufferSize), c.indexBytes)

	quads = 200
	require.NoError(t, s.Frame())
	assert.Equal(t, uint64(32768), c.vertexBytes, "200 quads need 25600 vertex bytes")
	assert.Equal(t, uint64(4096)*2, c.indexBytes, "200 quads need 4800 index bytes")
	assert.Equal(t, 2, r.Stats().PendingDestroys, "the old buffers wait for the first frame")

	dev.SignalAll()
	r.Collect()
	assert.Equal(t, 0, r.Stats().PendingDestroys)
	assert.Empty(t, dev.Snapshot().Violations)
	assert.Equal(t, 2, dev.Snapshot().DrawnIndexed)
}

func TestCompositorClose(t *testing.T) {
	c, s, r, dev := newTestCompositor(t, widgetFunc(func(p *Painter) {
		p.Text(0, 0, "x", White)
	}))
	require.NoError(t, s.Frame())
	require.NoError(t, c.Close())
	r.Collect()
	assert.Equal(t, 0, r.Stats().Live)
	assert.Equal(t, 0, dev.Live())
	assert.NoError(t, c.Close(), "closing twice is a no-op")
}
