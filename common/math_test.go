package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestMul4Identity(t *testing.T) {
	var id, m, out [16]float32
	Identity(id[:])
	for i := range m {
		m[i] = float32(i + 1)
	}
	Mul4(out[:], id[:], m[:])
	assert.Equal(t, m, out)

	Mul4(out[:], m[:], id[:])
	assert.Equal(t, m, out)
}

func TestLookAtMovesTargetOntoNegativeZ(t *testing.T) {
	var view [16]float32
	LookAt(view[:], Vec3f{0, 0, 2}, Vec3f{}, Vec3f{0, 1, 0})

	p := MulVec4(view[:], [4]float32{0, 0, 0, 1})
	assert.InDelta(t, 0, p[0], 1e-6)
	assert.InDelta(t, 0, p[1], 1e-6)
	assert.InDelta(t, -2, p[2], 1e-6)
	assert.InDelta(t, 1, p[3], 1e-6)
}

func TestInfinitePerspectiveDepthRange(t *testing.T) {
	var proj [16]float32
	const near = 0.01
	InfinitePerspective(proj[:], Radians(45), 1.5, near)

	atNear := MulVec4(proj[:], [4]float32{0, 0, -near, 1})
	assert.InDelta(t, 0, atNear[2]/atNear[3], 1e-5)

	far := MulVec4(proj[:], [4]float32{0, 0, -1e9, 1})
	depth := far[2] / far[3]
	assert.Greater(t, depth, float32(0.99))
	assert.LessOrEqual(t, depth, float32(1))

	assert.InDelta(t, 1/math32.Tan(Radians(45)/2)/1.5, proj[0], 1e-6)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(0.5, 1.0, 2.0))
	assert.Equal(t, 2.0, Clamp(3.0, 1.0, 2.0))
	assert.Equal(t, 5, Clamp(5, 0, 10))
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes([]float32{}))
	assert.Len(t, SliceToBytes([]float32{1, 2, 3}), 12)

	v := struct{ A, B uint32 }{1, 2}
	assert.Len(t, StructToBytes(&v), 8)
}
