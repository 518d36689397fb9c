package ui

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/Carmen-Shannon/oxy-space/common"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	firstGlyph = ' '
	lastGlyph  = '~'
	atlasCols  = 16
)

// Glyph locates one character in the atlas.
type Glyph struct {
	// UV is the glyph's texture rectangle, normalized.
	UV common.Rect
	// Offset is the glyph's top left relative to the pen, which sits at the top of the line.
	Offset [2]float32
	Size   [2]float32
	// Advance is how far the pen moves after the glyph.
	Advance float32
}

// Atlas is a single-channel coverage texture holding the printable ASCII glyphs of a fixed-width
// bitmap font and a white block for solid fills.
type Atlas struct {
	Image      *image.Alpha
	LineHeight float32

	glyphs map[rune]Glyph
	white  [2]float32
}

// NewAtlas rasterizes the 7x13 basic font.
//
// Returns:
//   - *Atlas: the atlas
//   - error: an error if the font lacks a printable ASCII glyph
func NewAtlas() (*Atlas, error) {
	face := basicfont.Face7x13
	cellW, cellH := face.Advance+1, face.Height+1
	cells := int(lastGlyph-firstGlyph) + 2 // cell 0 is the white block
	rows := common.CeilDiv(cells, atlasCols)

	img := image.NewAlpha(image.Rect(0, 0, atlasCols*cellW, rows*cellH))
	draw.Draw(img, image.Rect(0, 0, 3, 3), image.Opaque, image.Point{}, draw.Src)

	w, h := float32(img.Bounds().Dx()), float32(img.Bounds().Dy())
	a := &Atlas{
		Image:      img,
		LineHeight: float32(face.Height),
		glyphs:     make(map[rune]Glyph, cells-1),
		white:      [2]float32{1.5 / w, 1.5 / h},
	}

	for r := firstGlyph; r <= lastGlyph; r++ {
		cell := int(r-firstGlyph) + 1
		x, y := (cell%atlasCols)*cellW, (cell/atlasCols)*cellH
		dr, mask, maskp, advance, ok := face.Glyph(fixed.P(x, y+face.Ascent), r)
		if !ok {
			return nil, fmt.Errorf("font has no glyph for %q", r)
		}
		draw.DrawMask(img, dr, image.Opaque, image.Point{}, mask, maskp, draw.Over)

		a.glyphs[r] = Glyph{
			UV: common.Rect{
				MinX: float32(dr.Min.X) / w, MinY: float32(dr.Min.Y) / h,
				MaxX: float32(dr.Max.X) / w, MaxY: float32(dr.Max.Y) / h,
			},
			Offset:  [2]float32{float32(dr.Min.X - x), float32(dr.Min.Y - y)},
			Size:    [2]float32{float32(dr.Dx()), float32(dr.Dy())},
			Advance: float32(advance.Ceil()),
		}
	}
	return a, nil
}

// Glyph returns the glyph for r, falling back to '?' for characters the atlas lacks.
func (a *Atlas) Glyph(r rune) Glyph {
	if g, ok := a.glyphs[r]; ok {
		return g
	}
	return a.glyphs['?']
}

// White returns the texture coordinate of a fully covered texel.
func (a *Atlas) White() [2]float32 {
	return a.white
}

// Measure returns the width and height of s in pixels. Newlines start a new line.
func (a *Atlas) Measure(s string) (float32, float32) {
	var width, line float32
	lines := 1
	for _, r := range s {
		if r == '\n' {
			lines++
			line = 0
			continue
		}
		line += a.Glyph(r).Advance
		width = max(width, line)
	}
	return width, float32(lines) * a.LineHeight
}
