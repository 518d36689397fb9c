package ui

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widgetFunc func(p *Painter)

func (f widgetFunc) Paint(p *Painter) { f(p) }

func newAtlas(t *testing.T) *Atlas {
	t.Helper()
	a, err := NewAtlas()
	require.NoError(t, err)
	return a
}

func TestAtlasGlyphs(t *testing.T) {
	a := newAtlas(t)
	assert.Equal(t, float32(13), a.LineHeight)

	w := a.White()
	b := a.Image.Bounds()
	assert.Equal(t, uint8(255), a.Image.AlphaAt(int(w[0]*float32(b.Dx())), int(w[1]*float32(b.Dy()))).A)

	g := a.Glyph('A')
	assert.Equal(t, [2]float32{6, 13}, g.Size)
	assert.Equal(t, float32(7), g.Advance)
	assert.True(t, g.UV.MinX >= 0 && g.UV.MaxX <= 1 && g.UV.MinY >= 0 && g.UV.MaxY <= 1)

	covered := 0
	for y := int(g.UV.MinY * float32(b.Dy())); y < int(g.UV.MaxY*float32(b.Dy())); y++ {
		for x := int(g.UV.MinX * float32(b.Dx())); x < int(g.UV.MaxX*float32(b.Dx())); x++ {
			if a.Image.AlphaAt(x, y).A > 0 {
				covered++
			}
		}
	}
	assert.Positive(t, covered, "the glyph was rasterized")

	assert.Equal(t, a.Glyph('?'), a.Glyph('é'), "unknown characters fall back to '?'")
}

func TestAtlasMeasure(t *testing.T) {
	a := newAtlas(t)
	w, h := a.Measure("ab\ncde")
	assert.Equal(t, float32(21), w)
	assert.Equal(t, float32(26), h)
}

func TestPainterMergesCommandsByClip(t *testing.T) {
	p := NewPainter(newAtlas(t))
	p.Begin(100, 100)

	p.Rect(common.Rect{MaxX: 10, MaxY: 10}, White)
	p.Text(0, 20, "hi there", White)
	list := p.List()
	require.Len(t, list.Commands, 1)
	assert.Equal(t, uint32(6*8), list.Commands[0].IndexCount, "one rect and seven visible glyphs")
	assert.Len(t, list.Vertices, 4*8)

	p.PushClip(common.Rect{MaxX: 50, MaxY: 50})
	p.Rect(common.Rect{MinX: 5, MinY: 5, MaxX: 60, MaxY: 60}, White)
	p.Rect(common.Rect{MinX: 70, MinY: 70, MaxX: 80, MaxY: 80}, White)
	p.PopClip()
	p.PopClip()
	p.Rect(common.Rect{MinX: 90, MinY: 90, MaxX: 95, MaxY: 95}, White)

	require.Len(t, list.Commands, 3, "the rect outside the clip was culled")
	assert.Equal(t, common.Rect{MaxX: 50, MaxY: 50}, list.Commands[1].Clip)
	assert.Equal(t, common.Rect{MaxX: 100, MaxY: 100}, list.Commands[2].Clip, "the surface clip is never popped")
	assert.Equal(t, list.Commands[1].FirstIndex+6, list.Commands[2].FirstIndex)

	p.Begin(100, 100)
	assert.True(t, p.List().Empty())
	assert.Empty(t, p.List().Vertices)
}

func TestTextBounds(t *testing.T) {
	p := NewPainter(newAtlas(t))
	p.Begin(200, 200)
	r := p.Text(10, 10, "abc\nd", White)
	assert.Equal(t, common.Rect{MinX: 10, MinY: 10, MaxX: 31, MaxY: 36}, r)
}

func TestOverlayPaintsWidgetsInOrder(t *testing.T) {
	var order []int
	o := NewOverlay(newAtlas(t), widgetFunc(func(p *Painter) {
		order = append(order, 1)
		p.Rect(common.Rect{MaxX: 1, MaxY: 1}, White)
	}))
	o.Add(widgetFunc(func(p *Painter) { order = append(order, 2) }))

	list := o.Paint(10, 10)
	assert.Equal(t, []int{1, 2}, order)
	assert.Len(t, list.Commands, 1)

	list = o.Paint(10, 10)
	assert.Len(t, list.Vertices, 4, "every frame starts from an empty list")
}
