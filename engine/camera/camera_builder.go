package camera

import "github.com/Carmen-Shannon/oxy-space/common"

type CameraBuilderOption func(*cameraImpl)

// WithView sets the initial eye, target and up vector. An invalid view leaves the default in place.
//
// Parameters:
//   - eye: eye position in AU
//   - target: look-at point in AU
//   - up: up vector
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's view
func WithView(eye, target, up common.Vec3f) CameraBuilderOption {
	return func(c *cameraImpl) {
		if validView(eye, target, up) {
			c.eye, c.target, c.up = eye, target, up.Normalize()
		}
	}
}

// WithFovy sets the vertical field of view in degrees.
//
// Parameters:
//   - degrees: field of view in degrees
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFovy(degrees float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if degrees > 0 && degrees < 180 {
			c.fovy = common.Radians(degrees)
		}
	}
}

// WithNear sets the near plane distance in AU.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the near plane
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if near > 0 {
			c.near = near
		}
	}
}

// WithSize sets the initial viewport size.
func WithSize(width, height int) CameraBuilderOption {
	return func(c *cameraImpl) {
		if width > 0 && height > 0 {
			c.width, c.height = width, height
			c.aspect = float32(width) / float32(height)
		}
	}
}

// WithMinPixelRadius sets the smallest on-screen radius a body is drawn with, in pixels.
func WithMinPixelRadius(px float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if px >= 0 {
			c.minPixelRadius = px
		}
	}
}
