package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestVec3Basics(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}

	assert.Equal(t, Vec3{5, 7, 9}, a.Add(b))
	assert.Equal(t, Vec3{-3, -3, -3}, a.Sub(b))
	assert.Equal(t, 32.0, a.Dot(b))
	assert.Equal(t, Vec3{-3, 6, -3}, a.Cross(b))
	assert.Equal(t, Vec3{}, Vec3{}.Normalize())
	assert.InDelta(t, 1.0, a.Normalize().Norm(), 1e-12)
}

func TestRotateAxis(t *testing.T) {
	r := RotateAxis(Vec3f{1, 0, 0}, Vec3f{0, 0, 1}, math32.Pi/2)
	assert.InDelta(t, 0, r[0], 1e-6)
	assert.InDelta(t, 1, r[1], 1e-6)
	assert.InDelta(t, 0, r[2], 1e-6)

	// zero angle is exact
	v := Vec3f{0.3, -1.7, 2.25}
	assert.Equal(t, v, RotateAxis(v, Vec3f{0, 1, 0}, 0))

	// degenerate axis leaves the vector alone
	assert.Equal(t, v, RotateAxis(v, Vec3f{}, 1))
}

func TestVec3fIsFinite(t *testing.T) {
	assert.True(t, Vec3f{1, 2, 3}.IsFinite())
	assert.False(t, Vec3f{math32.NaN(), 0, 0}.IsFinite())
	assert.False(t, Vec3f{0, math32.Inf(1), 0}.IsFinite())
}
