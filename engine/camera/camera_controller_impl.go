package camera

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/Carmen-Shannon/oxy-space/engine/logging"
	"github.com/chewxy/math32"
	"github.com/sirupsen/logrus"
)

// cameraControllerImpl is the single implementation of CameraController.
type cameraControllerImpl struct {
	mu  *sync.Mutex
	log *logrus.Entry

	camera  Camera
	actions Actions

	held     map[int]bool
	triggers map[int]*KeyTrigger

	// pending input since the last Update
	scroll float64
	drag   [2]float64

	dragging bool
	cursor   *[2]float64

	focus int

	// Speeds and limits
	moveSpeed       float32 // fraction of the eye-target distance per update
	rotateSpeed     float32 // radians per update
	zoomStep        float32 // fraction of the distance per zoom key update or scroll unit
	dragSensitivity float32 // radians per pixel
	maxDrag         float64 // pixels per cursor event
	maxScroll       float64 // scroll units per event
	minDistance     float32
	maxDistance     float32
	minPolar        float32 // closest the view direction may come to the up pole, in radians

	ignored atomic.Uint64
}

// Compile-time interface compliance check
var _ CameraController = &cameraControllerImpl{}

// triggerKeys are the keys handled as one-shot triggers rather than held state.
var triggerKeys = []int{
	common.KeyF, common.KeyG, common.KeyH, common.KeySpace,
	common.KeyO, common.KeyL, common.KeyP,
}

// NewCameraController creates a controller driving cam.
//
// Parameters:
//   - cam: the camera to drive
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(cam Camera, options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:       &sync.Mutex{},
		log:      logging.For("camera"),
		camera:   cam,
		held:     make(map[int]bool),
		triggers: make(map[int]*KeyTrigger, len(triggerKeys)),
		focus:    -1,

		moveSpeed:       0.1,
		rotateSpeed:     0.02,
		zoomStep:        0.1,
		dragSensitivity: 0.005,
		maxDrag:         200,
		maxScroll:       10,
		minDistance:     1e-7,
		maxDistance:     1e4,
		minPolar:        0.01,
	}
	for _, k := range triggerKeys {
		cc.triggers[k] = &KeyTrigger{}
	}

	for _, option := range options {
		option(cc)
	}
	return cc
}

// ignore counts a dropped input event. It is logged at debug level and never surfaced.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) ignore(op string, err error) {
	cc.ignored.Add(1)
	cc.log.WithError(common.Ignored(op, err)).Debug("input ignored")
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (cc *cameraControllerImpl) KeyDown(key int) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if t, ok := cc.triggers[key]; ok {
		t.Event(true)
		return
	}
	cc.held[key] = true
}

func (cc *cameraControllerImpl) KeyUp(key int) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if t, ok := cc.triggers[key]; ok {
		t.Event(false)
		return
	}
	delete(cc.held, key)
}

func (cc *cameraControllerImpl) Scroll(dx, dy float64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if !finite(dx, dy) {
		cc.ignore("scroll", fmt.Errorf("non-finite offset (%v, %v)", dx, dy))
		return
	}
	cc.scroll += common.Clamp(dy, -cc.maxScroll, cc.maxScroll)
}

func (cc *cameraControllerImpl) MouseButton(button int, pressed bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if button == common.MouseButtonLeft {
		cc.dragging = pressed
	}
}

func (cc *cameraControllerImpl) CursorMove(x, y float64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if !finite(x, y) {
		cc.ignore("cursor move", fmt.Errorf("non-finite position (%v, %v)", x, y))
		return
	}
	if cc.dragging && cc.cursor != nil {
		cc.drag[0] += common.Clamp(x-cc.cursor[0], -cc.maxDrag, cc.maxDrag)
		cc.drag[1] += common.Clamp(y-cc.cursor[1], -cc.maxDrag, cc.maxDrag)
	}
	cc.cursor = &[2]float64{x, y}
}

func (cc *cameraControllerImpl) Focus() (int, bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.focus, cc.focus >= 0
}

func (cc *cameraControllerImpl) SetFocus(i int) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.focus = max(i, -1)
}

func (cc *cameraControllerImpl) Ignored() uint64 {
	return cc.ignored.Load()
}

func (cc *cameraControllerImpl) Camera() Camera {
	return cc.camera
}

func (cc *cameraControllerImpl) Update() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	cc.applyTriggers()

	eye0, target0, up0 := cc.camera.Eye(), cc.camera.Target(), cc.camera.Up()
	eye, target, up := eye0, target0, up0

	look := target.Sub(eye)
	dist := look.Norm()
	if dist == 0 {
		return false
	}
	dir := look.Scale(1 / dist)
	right := dir.Cross(up).Normalize()

	// pan
	var move common.Vec3f
	step := cc.moveSpeed * dist
	if cc.held[common.KeyW] {
		move = move.Add(up.Scale(step))
	}
	if cc.held[common.KeyS] {
		move = move.Sub(up.Scale(step))
	}
	if cc.held[common.KeyA] {
		move = move.Sub(right.Scale(step))
	}
	if cc.held[common.KeyD] {
		move = move.Add(right.Scale(step))
	}
	if move != (common.Vec3f{}) {
		eye, target = eye.Add(move), target.Add(move)
	}

	// zoom
	factor := math.Pow(float64(1-cc.zoomStep), cc.scroll)
	cc.scroll = 0
	if cc.held[common.KeyEqual] || cc.held[common.KeyKPAdd] {
		factor *= float64(1 - cc.zoomStep)
	}
	if cc.held[common.KeyMinus] || cc.held[common.KeyKPSubtract] {
		factor *= float64(1 + cc.zoomStep)
	}
	if factor != 1 {
		d := common.Clamp(dist*float32(factor), cc.minDistance, cc.maxDistance)
		if d != dist {
			eye = target.Sub(dir.Scale(d))
		}
	}

	// rotate
	var yaw, pitch, roll float32
	if cc.held[common.KeyLeft] {
		yaw -= cc.rotateSpeed
	}
	if cc.held[common.KeyRight] {
		yaw += cc.rotateSpeed
	}
	if cc.held[common.KeyUp] {
		pitch += cc.rotateSpeed
	}
	if cc.held[common.KeyDown] {
		pitch -= cc.rotateSpeed
	}
	if cc.held[common.KeyHome] {
		roll += cc.rotateSpeed
	}
	if cc.held[common.KeyPageUp] {
		roll -= cc.rotateSpeed
	}
	yaw -= float32(cc.drag[0]) * cc.dragSensitivity
	pitch += float32(cc.drag[1]) * cc.dragSensitivity
	cc.drag = [2]float64{}

	if roll != 0 {
		up = common.RotateAxis(up, target.Sub(eye), roll)
	}
	if yaw != 0 || pitch != 0 {
		offset := eye.Sub(target)
		if yaw != 0 {
			offset = common.RotateAxis(offset, up, yaw)
		}
		if pitch != 0 {
			offset = cc.pitch(offset, up, pitch)
		}
		eye = target.Add(offset)
	}

	// follow the focused body, keeping the eye's offset from the target
	if cc.focus >= 0 && cc.actions != nil {
		if pos, ok := cc.actions.BodyPosition(cc.focus); ok {
			if p := common.Vec3f(pos); p != target {
				offset := eye.Sub(target)
				target = p
				eye = target.Add(offset)
			}
		}
	}

	if eye == eye0 && target == target0 && up == up0 {
		return false
	}
	if !cc.camera.SetView(eye, target, up) {
		cc.ignore("update camera", fmt.Errorf("degenerate view eye=%v target=%v up=%v", eye, target, up))
		return false
	}
	return true
}

// pitch rotates offset around the axis perpendicular to it and up, stopping short of the up pole.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) pitch(offset, up common.Vec3f, angle float32) common.Vec3f {
	axis := up.Cross(offset)
	if axis.Norm() == 0 {
		return offset
	}
	polar := func(v common.Vec3f) float32 {
		return math32.Acos(common.Clamp(v.Normalize().Dot(up.Normalize()), -1, 1))
	}

	before := polar(offset)
	after := common.Clamp(before-angle, cc.minPolar, math32.Pi-cc.minPolar)
	if after == before {
		return offset
	}
	// a positive rotation around up x offset moves the offset away from up
	return common.RotateAxis(offset, axis, after-before)
}

// applyTriggers consumes one-shot keys. Caller must hold the mutex.
func (cc *cameraControllerImpl) applyTriggers() {
	fire := func(key int) bool { return cc.triggers[key].Fire() }

	n := 0
	if cc.actions != nil {
		n = cc.actions.Bodies()
	}
	if fire(common.KeyF) && n > 0 {
		cc.focus = euclidMod(cc.or(1)-1, n)
		cc.log.WithField("body", cc.focus).Debug("focus previous")
	}
	if fire(common.KeyG) && n > 0 {
		cc.focus = euclidMod(cc.or(-1)+1, n)
		cc.log.WithField("body", cc.focus).Debug("focus next")
	}
	if fire(common.KeyH) {
		cc.focus = -1
	}
	if cc.focus >= n && n > 0 {
		cc.focus = -1
	}

	if cc.actions == nil {
		for _, k := range triggerKeys {
			cc.triggers[k].Fire()
		}
		return
	}
	if fire(common.KeySpace) {
		cc.actions.ClearTrails()
	}
	if fire(common.KeyO) {
		cc.actions.ScaleDelta(1.1)
	}
	if fire(common.KeyL) {
		cc.actions.ScaleDelta(0.9)
	}
	if fire(common.KeyP) {
		cc.actions.TogglePause()
	}
}

// or returns the focused body, or fallback when nothing is focused.
func (cc *cameraControllerImpl) or(fallback int) int {
	if cc.focus < 0 {
		return fallback
	}
	return cc.focus
}

func euclidMod(a, n int) int {
	return ((a % n) + n) % n
}
