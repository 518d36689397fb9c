package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeActions struct {
	n      int
	pos    map[int][3]float32
	scaled []float64
	pauses int
	clears int
}

func (f *fakeActions) Bodies() int { return f.n }

func (f *fakeActions) BodyPosition(i int) ([3]float32, bool) {
	p, ok := f.pos[i]
	return p, ok
}

func (f *fakeActions) ScaleDelta(s float64) { f.scaled = append(f.scaled, s) }
func (f *fakeActions) TogglePause()         { f.pauses++ }
func (f *fakeActions) ClearTrails()         { f.clears++ }

// tap presses and releases key, then applies it.
func tap(cc CameraController, key int) {
	cc.KeyDown(key)
	cc.KeyUp(key)
	cc.Update()
}

func distance(c Camera) float32 {
	return c.Target().Sub(c.Eye()).Norm()
}

func angle(a, b common.Vec3f) float32 {
	return math32.Acos(common.Clamp(a.Normalize().Dot(b.Normalize()), -1, 1))
}

func TestUpdateWithoutInputNeverDrifts(t *testing.T) {
	cam := NewCamera(WithView(common.Vec3f{0.3, -1.7, 2.9}, common.Vec3f{0.1, 0.2, 0.3}, common.Vec3f{0, 0, 1}))
	cc := NewCameraController(cam, WithActions(&fakeActions{n: 3}))
	eye, target, up := cam.Eye(), cam.Target(), cam.Up()

	for range 1000 {
		assert.False(t, cc.Update())
	}
	assert.Equal(t, eye, cam.Eye())
	assert.Equal(t, target, cam.Target())
	assert.Equal(t, up, cam.Up())
}

func TestPanMovesEyeAndTarget(t *testing.T) {
	cam := NewCamera()
	cc := NewCameraController(cam, WithMoveSpeed(0.1))

	cc.KeyDown(common.KeyW)
	require.True(t, cc.Update())
	cc.KeyUp(common.KeyW)

	target, eye := cam.Target(), cam.Eye()
	assert.InDeltaSlice(t, []float32{0, 0.2, 0}, target[:], 1e-6)
	assert.InDeltaSlice(t, []float32{0, 0.2, 2}, eye[:], 1e-6)
	assert.False(t, cc.Update(), "released keys stop moving")

	cc.KeyDown(common.KeyD)
	cc.Update()
	assert.Greater(t, cam.Target()[0], float32(0), "D moves right")
}

func TestScrollZoomsAndClamps(t *testing.T) {
	cam := NewCamera()
	cc := NewCameraController(cam)

	cc.Scroll(0, 1)
	require.True(t, cc.Update())
	assert.InDelta(t, 1.8, distance(cam), 1e-6)
	assert.Equal(t, common.Vec3f{}, cam.Target(), "zoom keeps the target")

	cc.Scroll(0, 1e9)
	cc.Update()
	assert.InDelta(t, 1.8*math.Pow(0.9, 10), distance(cam), 1e-5, "one scroll event is clamped")

	limited := NewCamera()
	lc := NewCameraController(limited, WithZoomLimits(1, 3))
	lc.Scroll(0, -10)
	lc.Update()
	assert.InDelta(t, 3, distance(limited), 1e-6)
}

func TestZoomKeys(t *testing.T) {
	cam := NewCamera()
	cc := NewCameraController(cam)

	cc.KeyDown(common.KeyEqual)
	cc.Update()
	cc.KeyUp(common.KeyEqual)
	assert.InDelta(t, 1.8, distance(cam), 1e-6)

	cc.KeyDown(common.KeyKPSubtract)
	cc.Update()
	cc.KeyUp(common.KeyKPSubtract)
	assert.InDelta(t, 1.98, distance(cam), 1e-6)
}

func TestNonFiniteInputIsIgnored(t *testing.T) {
	cam := NewCamera()
	cc := NewCameraController(cam)

	cc.Scroll(0, math.NaN())
	cc.CursorMove(math.Inf(1), 0)
	cc.MouseButton(common.MouseButtonLeft, true)
	cc.CursorMove(0, math.NaN())

	assert.Equal(t, uint64(3), cc.Ignored())
	assert.False(t, cc.Update())
	assert.Equal(t, common.Vec3f{0, 0, 2}, cam.Eye())
}

func TestDragRotatesAroundTarget(t *testing.T) {
	cam := NewCamera()
	cc := NewCameraController(cam, WithDragSensitivity(0.005))
	before := cam.Eye()

	cc.CursorMove(0, 0)
	cc.CursorMove(100, 0)
	require.False(t, cc.Update(), "moving without a button held does not drag")

	cc.MouseButton(common.MouseButtonLeft, true)
	cc.CursorMove(10000, 0)
	require.True(t, cc.Update())

	after := cam.Eye()
	assert.InDelta(t, 2, distance(cam), 1e-5)
	assert.InDelta(t, 0, after[1], 1e-6, "yaw stays in the plane perpendicular to up")
	assert.InDelta(t, 1, angle(before, after), 1e-5, "a cursor event is clamped to 200 pixels")

	cc.MouseButton(common.MouseButtonLeft, false)
	cc.CursorMove(0, 0)
	assert.False(t, cc.Update())
}

func TestPitchStopsShortOfPole(t *testing.T) {
	cam := NewCamera()
	cc := NewCameraController(cam, WithRotateSpeed(0.02))

	cc.KeyDown(common.KeyUp)
	for range 500 {
		cc.Update()
	}
	cc.KeyUp(common.KeyUp)

	polar := angle(cam.Eye().Sub(cam.Target()), cam.Up())
	assert.GreaterOrEqual(t, polar, float32(0.009))
	assert.Less(t, polar, float32(0.02), "pitch reaches the pole")
	assert.InDelta(t, 2, distance(cam), 1e-5)
	assert.Equal(t, uint64(0), cc.Ignored(), "every intermediate view was valid")
}

func TestRollRotatesUp(t *testing.T) {
	cam := NewCamera()
	cc := NewCameraController(cam, WithRotateSpeed(0.1))

	cc.KeyDown(common.KeyHome)
	require.True(t, cc.Update())

	assert.InDelta(t, 0.1, angle(common.Vec3f{0, 1, 0}, cam.Up()), 1e-5)
	assert.Equal(t, common.Vec3f{0, 0, 2}, cam.Eye(), "roll keeps the eye")
}

func TestFocusCycling(t *testing.T) {
	actions := &fakeActions{n: 3}
	cc := NewCameraController(NewCamera(), WithActions(actions))

	focus := func() int {
		i, _ := cc.Focus()
		return i
	}

	_, ok := cc.Focus()
	assert.False(t, ok)

	tap(cc, common.KeyG)
	assert.Equal(t, 0, focus(), "next from nothing is the first body")
	tap(cc, common.KeyG)
	assert.Equal(t, 1, focus())
	tap(cc, common.KeyF)
	assert.Equal(t, 0, focus())
	tap(cc, common.KeyF)
	assert.Equal(t, 2, focus(), "previous wraps around")
	tap(cc, common.KeyG)
	assert.Equal(t, 0, focus(), "next wraps around")

	tap(cc, common.KeyH)
	_, ok = cc.Focus()
	assert.False(t, ok)

	tap(cc, common.KeyF)
	assert.Equal(t, 0, focus(), "previous from nothing is the first body")
}

func TestFocusIgnoredWithoutBodies(t *testing.T) {
	cc := NewCameraController(NewCamera(), WithActions(&fakeActions{}))
	tap(cc, common.KeyG)
	_, ok := cc.Focus()
	assert.False(t, ok)
}

func TestFocusTracksBody(t *testing.T) {
	actions := &fakeActions{n: 2, pos: map[int][3]float32{1: {5, 0, 0}}}
	cam := NewCamera()
	cc := NewCameraController(cam, WithActions(actions))

	cc.SetFocus(1)
	require.True(t, cc.Update())
	assert.Equal(t, common.Vec3f{5, 0, 0}, cam.Target())
	assert.Equal(t, common.Vec3f{5, 0, 2}, cam.Eye(), "the eye keeps its offset")
	assert.False(t, cc.Update(), "a still body does not move the camera")

	actions.pos[1] = [3]float32{5, 1, 0}
	require.True(t, cc.Update())
	assert.Equal(t, common.Vec3f{5, 1, 2}, cam.Eye())
}

func TestTriggersFireOncePerPress(t *testing.T) {
	actions := &fakeActions{n: 1}
	cc := NewCameraController(NewCamera(), WithActions(actions))

	cc.KeyDown(common.KeyP)
	cc.Update()
	cc.KeyDown(common.KeyP)
	cc.Update()
	assert.Equal(t, 1, actions.pauses, "holding a trigger fires once")
	cc.KeyUp(common.KeyP)
	tap(cc, common.KeyP)
	assert.Equal(t, 2, actions.pauses)

	tap(cc, common.KeyO)
	tap(cc, common.KeyL)
	assert.Equal(t, []float64{1.1, 0.9}, actions.scaled)

	tap(cc, common.KeySpace)
	assert.Equal(t, 1, actions.clears)
}

func TestTriggersWithoutActions(t *testing.T) {
	cc := NewCameraController(NewCamera())
	tap(cc, common.KeyP)
	tap(cc, common.KeyG)
	_, ok := cc.Focus()
	assert.False(t, ok)
}

func TestKeyTrigger(t *testing.T) {
	var k KeyTrigger
	assert.False(t, k.Fire())

	k.Event(true)
	assert.True(t, k.Held())
	assert.True(t, k.Fire())
	assert.False(t, k.Fire(), "a press fires once")

	k.Event(true)
	assert.False(t, k.Fire(), "repeat events while held do not fire")

	k.Event(false)
	assert.False(t, k.Held())
	k.Event(true)
	assert.True(t, k.Fire())
}
