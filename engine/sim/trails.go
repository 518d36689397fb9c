package sim

import (
	"fmt"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-space/common"
)

// TrailLength is the number of samples kept per body.
const TrailLength = 100

// TrailVertex is one trail point as laid out in the GPU vertex buffer.
type TrailVertex struct {
	Pos [3]float32
	// Slot is the ring slot the point was written to; the shader derives its age from it.
	Slot uint32
}

// TrailVertexSize is the byte size of one TrailVertex.
const TrailVertexSize = int(unsafe.Sizeof(TrailVertex{}))

// TrailParams is the uniform the trail shader fades with.
type TrailParams struct {
	Head   uint32
	Count  uint32
	Bodies uint32
	Length uint32
}

// IndexRange is a contiguous range of the trail index buffer.
type IndexRange struct {
	First uint32
	Count uint32
}

// Trails keeps the last TrailLength sampled positions of every body in a ring.
//
// The vertex buffer is sample-major: slot s holds one point per body, body k at s*n+k. A static
// line-list index buffer connects slot s to slot s+1 for every body, so drawing the trail of the
// live samples is at most two index ranges.
type Trails struct {
	n     int
	verts []TrailVertex

	head  int // oldest live slot
	count int // live slots

	// dirty slots not yet flushed, starting at dirtyStart
	dirtyStart int
	dirty      int
}

// NewTrails creates an empty trail cache for n bodies.
func NewTrails(n int) *Trails {
	return &Trails{n: n, verts: make([]TrailVertex, n*TrailLength)}
}

// Bodies returns the number of bodies per sample.
func (t *Trails) Bodies() int { return t.n }

// Count returns the number of live samples.
func (t *Trails) Count() int { return t.count }

// Push appends one sample. Once TrailLength samples are live the oldest is overwritten.
//
// Parameters:
//   - positions: packed float32 xyz triples, one per body
//
// Returns:
//   - error: if the sample does not hold exactly one point per body
func (t *Trails) Push(positions []float32) error {
	if len(positions) != 3*t.n {
		return fmt.Errorf("trail sample has %d floats, want %d", len(positions), 3*t.n)
	}

	slot := (t.head + t.count) % TrailLength
	if t.count == TrailLength {
		t.head = (t.head + 1) % TrailLength
	} else {
		t.count++
	}

	base := slot * t.n
	for k := range t.n {
		t.verts[base+k] = TrailVertex{
			Pos:  [3]float32{positions[3*k], positions[3*k+1], positions[3*k+2]},
			Slot: uint32(slot),
		}
	}

	if t.dirty == 0 {
		t.dirtyStart = slot
	}
	t.dirty = min(t.dirty+1, TrailLength)
	if t.dirty == TrailLength {
		t.dirtyStart = 0
	}
	return nil
}

// Flush writes every slot pushed since the last flush as at most two contiguous byte ranges.
//
// Parameters:
//   - write: receives each byte offset into the vertex buffer and the bytes to put there
//
// Returns:
//   - error: the first error returned by write; the dirty slots stay dirty
func (t *Trails) Flush(write func(offset int, data []byte) error) error {
	if t.dirty == 0 || t.n == 0 {
		return nil
	}

	end := t.dirtyStart + t.dirty
	ranges := [][2]int{{t.dirtyStart, min(end, TrailLength)}}
	if end > TrailLength {
		ranges = append(ranges, [2]int{0, end - TrailLength})
	}
	for _, r := range ranges {
		data := common.SliceToBytes(t.verts[r[0]*t.n : r[1]*t.n])
		if err := write(r[0]*t.n*TrailVertexSize, data); err != nil {
			return err
		}
	}
	t.dirty = 0
	return nil
}

// IndexRanges returns the parts of the index buffer that connect consecutive live samples.
func (t *Trails) IndexRanges() []IndexRange {
	segments := t.count - 1
	if segments <= 0 || t.n == 0 {
		return nil
	}

	perSlot := uint32(2 * t.n)
	first := t.head
	end := first + segments
	out := []IndexRange{{First: uint32(first) * perSlot, Count: uint32(min(end, TrailLength)-first) * perSlot}}
	if end > TrailLength {
		out = append(out, IndexRange{First: 0, Count: uint32(end-TrailLength) * perSlot})
	}
	return out
}

// Indices returns the static line-list index buffer contents. Segment s of body k joins slot s to
// slot s+1 (wrapping) and sits at index 2*(s*n+k).
func (t *Trails) Indices() []uint32 {
	out := make([]uint32, 0, 2*TrailLength*t.n)
	for s := range TrailLength {
		next := (s + 1) % TrailLength
		for k := range t.n {
			out = append(out, uint32(s*t.n+k), uint32(next*t.n+k))
		}
	}
	return out
}

// Params returns the fade uniform for the current ring state.
func (t *Trails) Params() TrailParams {
	return TrailParams{
		Head:   uint32(t.head),
		Count:  uint32(t.count),
		Bodies: uint32(t.n),
		Length: TrailLength,
	}
}

// Clear drops every live sample. Nothing needs to be rewritten on the GPU: no range is drawn
// until new samples arrive.
func (t *Trails) Clear() {
	t.head, t.count = 0, 0
	t.dirtyStart, t.dirty = 0, 0
}

// Dirty reports whether Flush has anything to write.
func (t *Trails) Dirty() bool { return t.dirty > 0 }
