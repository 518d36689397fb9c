package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCameraDefaults(t *testing.T) {
	c := NewCamera()
	assert.Equal(t, common.Vec3f{0, 0, 2}, c.Eye())
	assert.Equal(t, common.Vec3f{}, c.Target())
	assert.Equal(t, common.Vec3f{0, 1, 0}, c.Up())
	assert.InDelta(t, math.Pi/4, c.Fovy(), 1e-6)
	assert.Equal(t, float32(1), c.Aspect())
	assert.Equal(t, float32(1e-6), c.Near())
}

func TestSetViewRejectsDegenerateViews(t *testing.T) {
	c := NewCamera()
	nan := math32.NaN()

	assert.False(t, c.SetView(common.Vec3f{1, 1, 1}, common.Vec3f{1, 1, 1}, common.Vec3f{0, 1, 0}), "eye on target")
	assert.False(t, c.SetView(common.Vec3f{0, 2, 0}, common.Vec3f{}, common.Vec3f{0, 1, 0}), "up along the view")
	assert.False(t, c.SetView(common.Vec3f{0, 0, 2}, common.Vec3f{}, common.Vec3f{}), "zero up")
	assert.False(t, c.SetView(common.Vec3f{nan, 0, 2}, common.Vec3f{}, common.Vec3f{0, 1, 0}), "non-finite eye")
	assert.Equal(t, common.Vec3f{0, 0, 2}, c.Eye(), "rejected views leave the camera alone")

	require.True(t, c.SetView(common.Vec3f{3, 0, 0}, common.Vec3f{}, common.Vec3f{0, 5, 0}))
	assert.Equal(t, common.Vec3f{3, 0, 0}, c.Eye())
	assert.Equal(t, common.Vec3f{0, 1, 0}, c.Up(), "up is normalized")
}

func TestViewProjectionCentersTarget(t *testing.T) {
	c := NewCamera(WithView(common.Vec3f{4, 3, 2}, common.Vec3f{1, -1, 0.5}, common.Vec3f{0, 0, 1}), WithSize(800, 600))
	vp := c.ViewProjectionMatrix()
	clip := common.MulVec4(vp[:], [4]float32{1, -1, 0.5, 1})
	require.Greater(t, clip[3], float32(0), "the target is in front of the eye")
	assert.InDelta(t, 0, clip[0]/clip[3], 1e-5)
	assert.InDelta(t, 0, clip[1]/clip[3], 1e-5)
}

func TestResize(t *testing.T) {
	c := NewCamera()
	c.Resize(800, 400)
	assert.Equal(t, float32(2), c.Aspect())

	c.Resize(0, 600)
	c.Resize(600, -1)
	assert.Equal(t, float32(2), c.Aspect(), "zero-area sizes are ignored")
}

func TestSetFovyClamps(t *testing.T) {
	c := NewCamera()
	c.SetFovy(10)
	assert.Less(t, c.Fovy(), float32(math.Pi))
	c.SetFovy(math32.NaN())
	assert.Less(t, c.Fovy(), float32(math.Pi), "NaN is ignored")
	c.SetFovy(-1)
	assert.Greater(t, c.Fovy(), float32(0))
}

func TestWithOptionsRejectBadValues(t *testing.T) {
	c := NewCamera(WithFovy(0), WithNear(-1), WithSize(0, 0), WithView(common.Vec3f{}, common.Vec3f{}, common.Vec3f{0, 1, 0}))
	assert.InDelta(t, math.Pi/4, c.Fovy(), 1e-6)
	assert.Equal(t, float32(1e-6), c.Near())
	assert.Equal(t, float32(1), c.Aspect())
	assert.Equal(t, common.Vec3f{0, 0, 2}, c.Eye())
}

func TestUniformLayout(t *testing.T) {
	c := NewCamera(WithSize(800, 600), WithMinPixelRadius(2))
	u := c.Uniform()
	require.Equal(t, 96, u.Size())

	assert.InDelta(t, 300/math.Tan(math.Pi/8), u.Focal, 1e-3)
	assert.Equal(t, [2]float32{800, 600}, u.Viewport)
	assert.Equal(t, c.ViewProjectionMatrix(), u.ViewProj)

	buf := u.Marshal()
	require.Len(t, buf, 96)
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, u.ViewProj[0], f(0))
	assert.Equal(t, u.ViewProj[15], f(60))
	assert.Equal(t, float32(2), f(72), "eye z")
	assert.Equal(t, u.Focal, f(76))
	assert.Equal(t, float32(800), f(80))
	assert.Equal(t, float32(600), f(84))
	assert.Equal(t, float32(2), f(88))
	assert.Equal(t, float32(0), f(92))
}
