package sim

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type write struct {
	offset int
	size   int
}

func flushAll(t *testing.T, tr *Trails, gpu []byte) []write {
	t.Helper()
	var writes []write
	require.NoError(t, tr.Flush(func(offset int, data []byte) error {
		writes = append(writes, write{offset, len(data)})
		copy(gpu[offset:], data)
		return nil
	}))
	return writes
}

func sample(n int, v float32) []float32 {
	out := make([]float32, 3*n)
	for i := range out {
		out[i] = v
	}
	return out
}

func vertexAt(gpu []byte, i int) TrailVertex {
	b := gpu[i*TrailVertexSize:]
	return TrailVertex{
		Pos: [3]float32{
			math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
			math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
			math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
		},
		Slot: binary.LittleEndian.Uint32(b[12:]),
	}
}

func TestTrailsPushAndFlush(t *testing.T) {
	const n = 3
	tr := NewTrails(n)
	gpu := make([]byte, n*TrailLength*TrailVertexSize)
	require.Equal(t, 16, TrailVertexSize)

	assert.Error(t, tr.Push(sample(2, 0)))
	assert.Empty(t, flushAll(t, tr, gpu))
	assert.Nil(t, tr.IndexRanges(), "one sample has no segments")

	require.NoError(t, tr.Push(sample(n, 1)))
	require.NoError(t, tr.Push(sample(n, 2)))
	writes := flushAll(t, tr, gpu)
	assert.Equal(t, []write{{0, 2 * n * TrailVertexSize}}, writes, "consecutive samples flush as one range")
	assert.False(t, tr.Dirty())

	assert.Equal(t, TrailVertex{Pos: [3]float32{2, 2, 2}, Slot: 1}, vertexAt(gpu, n+2))
	assert.Equal(t, []IndexRange{{First: 0, Count: 2 * n}}, tr.IndexRanges())
	assert.Equal(t, TrailParams{Head: 0, Count: 2, Bodies: n, Length: TrailLength}, tr.Params())
}

func TestTrailsWrap(t *testing.T) {
	const n = 2
	tr := NewTrails(n)
	gpu := make([]byte, n*TrailLength*TrailVertexSize)

	for i := range TrailLength - 2 {
		require.NoError(t, tr.Push(sample(n, float32(i))))
	}
	flushAll(t, tr, gpu)

	// four more samples wrap: two fill the end, two overwrite the oldest slots
	for i := range 4 {
		require.NoError(t, tr.Push(sample(n, float32(1000+i))))
	}
	writes := flushAll(t, tr, gpu)
	assert.Equal(t, []write{
		{(TrailLength - 2) * n * TrailVertexSize, 2 * n * TrailVertexSize},
		{0, 2 * n * TrailVertexSize},
	}, writes)

	assert.Equal(t, TrailLength, tr.Count())
	assert.Equal(t, uint32(2), tr.Params().Head)
	assert.Equal(t, TrailVertex{Pos: [3]float32{1003, 1003, 1003}, Slot: 1}, vertexAt(gpu, n+1))

	// 99 segments starting at the oldest slot, split where the ring wraps
	assert.Equal(t, []IndexRange{
		{First: 2 * 2 * n, Count: (TrailLength - 2) * 2 * n},
		{First: 0, Count: 1 * 2 * n},
	}, tr.IndexRanges())
}

func TestTrailsFullRewrite(t *testing.T) {
	tr := NewTrails(1)
	for i := range 3 * TrailLength {
		require.NoError(t, tr.Push(sample(1, float32(i))))
	}
	writes := flushAll(t, tr, make([]byte, TrailLength*TrailVertexSize))
	assert.Equal(t, []write{{0, TrailLength * TrailVertexSize}}, writes)
}

func TestTrailsIndices(t *testing.T) {
	tr := NewTrails(2)
	idx := tr.Indices()
	require.Len(t, idx, 2*2*TrailLength)

	// segment 0 of body 1 joins slot 0 to slot 1
	assert.Equal(t, []uint32{1, 3}, idx[2:4])
	// the last segment wraps back to slot 0
	last := idx[len(idx)-2:]
	assert.Equal(t, []uint32{(TrailLength-1)*2 + 1, 1}, last)
}

func TestTrailsClear(t *testing.T) {
	tr := NewTrails(1)
	for range 5 {
		require.NoError(t, tr.Push(sample(1, 1)))
	}
	tr.Clear()
	assert.Zero(t, tr.Count())
	assert.False(t, tr.Dirty())
	assert.Nil(t, tr.IndexRanges())

	require.NoError(t, tr.Push(sample(1, 9)))
	require.NoError(t, tr.Push(sample(1, 9)))
	assert.Equal(t, []IndexRange{{First: 0, Count: 2}}, tr.IndexRanges())
}
