package ui

import "github.com/Carmen-Shannon/oxy-space/common"

// Painter records rectangles and text into a PaintList. Consecutive shapes with the same clip share
// one draw command.
type Painter struct {
	atlas *Atlas
	list  PaintList
	clips []common.Rect
}

// NewPainter creates a painter drawing glyphs from atlas.
func NewPainter(atlas *Atlas) *Painter {
	return &Painter{atlas: atlas}
}

// Atlas returns the glyph atlas the painter draws with.
func (p *Painter) Atlas() *Atlas {
	return p.atlas
}

// Begin empties the paint list and sets the clip to the whole surface.
//
// Parameters:
//   - width, height: the surface size in pixels
func (p *Painter) Begin(width, height int) {
	p.list.Reset()
	p.clips = append(p.clips[:0], common.Rect{MaxX: float32(width), MaxY: float32(height)})
}

// List returns the paint list recorded since Begin.
func (p *Painter) List() *PaintList {
	return &p.list
}

// PushClip narrows the clip to its intersection with r until the matching PopClip.
func (p *Painter) PushClip(r common.Rect) {
	p.clips = append(p.clips, p.clip().Intersect(r))
}

// PopClip restores the clip in effect before the last PushClip. The surface clip is never popped.
func (p *Painter) PopClip() {
	if len(p.clips) > 1 {
		p.clips = p.clips[:len(p.clips)-1]
	}
}

func (p *Painter) clip() common.Rect {
	if len(p.clips) == 0 {
		return common.Rect{}
	}
	return p.clips[len(p.clips)-1]
}

// Rect fills r with a solid color.
func (p *Painter) Rect(r common.Rect, c Color) {
	w := p.atlas.White()
	p.quad(r, common.Rect{MinX: w[0], MinY: w[1], MaxX: w[0], MaxY: w[1]}, c)
}

// Text draws s with its top left at (x, y). Newlines start a new line.
//
// Parameters:
//   - x, y: the pen position in pixels
//   - s: the text; characters outside printable ASCII draw as '?'
//   - c: the text color
//
// Returns:
//   - common.Rect: the area the text covers
func (p *Painter) Text(x, y float32, s string, c Color) common.Rect {
	penX, penY := x, y
	for _, r := range s {
		if r == '\n' {
			penX = x
			penY += p.atlas.LineHeight
			continue
		}
		g := p.atlas.Glyph(r)
		if g.Size[0] > 0 && g.Size[1] > 0 && r != ' ' {
			gx, gy := penX+g.Offset[0], penY+g.Offset[1]
			p.quad(common.Rect{MinX: gx, MinY: gy, MaxX: gx + g.Size[0], MaxY: gy + g.Size[1]}, g.UV, c)
		}
		penX += g.Advance
	}
	w, h := p.atlas.Measure(s)
	return common.Rect{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
}

func (p *Painter) quad(pos, uv common.Rect, c Color) {
	clip := p.clip()
	if pos.Intersect(clip).Empty() {
		return
	}

	base := uint32(len(p.list.Vertices))
	p.list.Vertices = append(p.list.Vertices,
		Vertex{Pos: [2]float32{pos.MinX, pos.MinY}, UV: [2]float32{uv.MinX, uv.MinY}, Color: c},
		Vertex{Pos: [2]float32{pos.MaxX, pos.MinY}, UV: [2]float32{uv.MaxX, uv.MinY}, Color: c},
		Vertex{Pos: [2]float32{pos.MaxX, pos.MaxY}, UV: [2]float32{uv.MaxX, uv.MaxY}, Color: c},
		Vertex{Pos: [2]float32{pos.MinX, pos.MaxY}, UV: [2]float32{uv.MinX, uv.MaxY}, Color: c},
	)
	first := uint32(len(p.list.Indices))
	p.list.Indices = append(p.list.Indices, base, base+1, base+2, base, base+2, base+3)

	if n := len(p.list.Commands); n > 0 {
		last := &p.list.Commands[n-1]
		if last.Clip == clip && last.Texture == AtlasTexture && last.FirstIndex+last.IndexCount == first {
			last.IndexCount += 6
			return
		}
	}
	p.list.Commands = append(p.list.Commands, DrawCmd{Texture: AtlasTexture, Clip: clip, FirstIndex: first, IndexCount: 6})
}
