package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/chewxy/math32"
)

type cameraImpl struct {
	mu *sync.Mutex

	eye    common.Vec3f
	target common.Vec3f
	up     common.Vec3f

	fovy   float32
	aspect float32
	near   float32

	minPixelRadius float32
	width, height  int

	dirty                bool
	viewMatrix           [16]float32
	projectionMatrix     [16]float32
	viewProjectionMatrix [16]float32
}

// Camera holds the view of the scene: an eye looking at a target with an up vector, projected with an
// infinite far plane so bodies never clip however far away they are.
//
// Matrices are column-major float32 and recomputed lazily after any change.
type Camera interface {
	// Eye returns the camera position.
	//
	// Returns:
	//   - common.Vec3f: world-space eye position in AU
	Eye() common.Vec3f

	// Target returns the look-at point.
	//
	// Returns:
	//   - common.Vec3f: world-space target in AU
	Target() common.Vec3f

	// Up returns the up vector.
	//
	// Returns:
	//   - common.Vec3f: the unit up vector
	Up() common.Vec3f

	// Fovy returns the vertical field of view in radians.
	Fovy() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near plane distance.
	Near() float32

	// SetView replaces eye, target and up together. Degenerate or non-finite views are rejected.
	//
	// Parameters:
	//   - eye: the new eye position
	//   - target: the new look-at point; must differ from eye
	//   - up: the new up vector; must not be parallel to the view direction
	//
	// Returns:
	//   - bool: true if the view was applied
	SetView(eye, target, up common.Vec3f) bool

	// Resize updates the aspect ratio and viewport size. Zero-area sizes are ignored.
	//
	// Parameters:
	//   - width, height: the surface size in pixels
	Resize(width, height int)

	// SetFovy sets the vertical field of view in radians, clamped to (0, pi).
	SetFovy(fovy float32)

	// ViewMatrix returns the current view matrix.
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current projection matrix.
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns projection * view.
	ViewProjectionMatrix() [16]float32

	// Uniform returns the GPU camera uniform for the current state.
	//
	// Returns:
	//   - GPUCameraUniform: the uniform, ready to Marshal
	Uniform() GPUCameraUniform
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera two AU back from the origin looking at it, with a 45 degree field of view.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:             &sync.Mutex{},
		eye:            common.Vec3f{0, 0, 2},
		up:             common.Vec3f{0, 1, 0},
		fovy:           common.Radians(45),
		aspect:         1,
		near:           1e-6,
		minPixelRadius: 1.5,
		width:          1,
		height:         1,
		dirty:          true,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *cameraImpl) Eye() common.Vec3f {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eye
}

func (c *cameraImpl) Target() common.Vec3f {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Up() common.Vec3f {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fovy() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fovy
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) SetView(eye, target, up common.Vec3f) bool {
	if !validView(eye, target, up) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eye, c.target, c.up = eye, target, up.Normalize()
	c.dirty = true
	return true
}

// validView reports whether eye, target and up describe a usable view.
func validView(eye, target, up common.Vec3f) bool {
	if !eye.IsFinite() || !target.IsFinite() || !up.IsFinite() {
		return false
	}
	look := target.Sub(eye)
	if look.Norm() == 0 || up.Norm() == 0 {
		return false
	}
	return look.Normalize().Cross(up.Normalize()).Norm() > 1e-6
}

func (c *cameraImpl) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if width == c.width && height == c.height {
		return
	}
	c.width, c.height = width, height
	c.aspect = float32(width) / float32(height)
	c.dirty = true
}

func (c *cameraImpl) SetFovy(fovy float32) {
	if math32.IsNaN(fovy) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fovy = common.Clamp(fovy, 1e-3, math32.Pi-1e-3)
	c.dirty = true
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
	return GPUCameraUniform{
		ViewProj:       c.viewProjectionMatrix,
		Eye:            c.eye,
		Focal:          float32(c.height) / 2 / math32.Tan(c.fovy/2),
		Viewport:       [2]float32{float32(c.width), float32(c.height)},
		MinPixelRadius: c.minPixelRadius,
	}
}

// updateMatrices recalculates the view, projection and view-projection matrices if anything changed.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if !c.dirty {
		return
	}
	common.LookAt(c.viewMatrix[:], c.eye, c.target, c.up)
	common.InfinitePerspective(c.projectionMatrix[:], c.fovy, c.aspect, c.near)
	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
	c.dirty = false
}
