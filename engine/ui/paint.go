// Package ui builds the 2D overlay drawn over the scene: an immediate-mode painter producing a
// PaintList, the info panel, and the Compositor layer that turns paint lists into GPU draws.
package ui

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-space/common"
)

// Color is a straight-alpha RGBA color.
type Color [4]float32

var (
	White = Color{1, 1, 1, 1}
	Gray  = Color{0.65, 0.65, 0.7, 1}
	Panel = Color{0.05, 0.05, 0.08, 0.72}
	// Button is the fill behind button labels.
	Button = Color{0.2, 0.22, 0.3, 0.9}
)

// Vertex is one overlay vertex as laid out in the GPU vertex buffer.
type Vertex struct {
	Pos   [2]float32 // pixels, origin top left
	UV    [2]float32
	Color Color
}

// VertexSize is the byte size of one Vertex.
const VertexSize = uint64(unsafe.Sizeof(Vertex{}))

// TextureID names a texture a draw command samples. The compositor owns the textures.
type TextureID int

// AtlasTexture is the glyph atlas, whose white texel also serves solid fills.
const AtlasTexture TextureID = 0

// DrawCmd draws IndexCount indices starting at FirstIndex, clipped to Clip.
type DrawCmd struct {
	Texture    TextureID
	Clip       common.Rect
	FirstIndex uint32
	IndexCount uint32
}

// PaintList is the overlay's output for one frame: triangles plus the draw commands that clip and
// texture them.
type PaintList struct {
	Vertices []Vertex
	Indices  []uint32
	Commands []DrawCmd
}

// Reset empties the list, keeping its storage.
func (l *PaintList) Reset() {
	l.Vertices = l.Vertices[:0]
	l.Indices = l.Indices[:0]
	l.Commands = l.Commands[:0]
}

// Empty reports whether the list draws nothing.
func (l *PaintList) Empty() bool {
	return len(l.Commands) == 0
}

// PaintSource produces the overlay paint list for a frame.
type PaintSource interface {
	// Paint builds the paint list for a surface of the given size. The returned list is only valid
	// until the next call.
	Paint(width, height int) *PaintList
}
