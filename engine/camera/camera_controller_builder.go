package camera

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithActions connects the controller's trigger keys to the application.
//
// Parameters:
//   - actions: the body, step size, pause and trail controls; nil disables the triggers
//
// Returns:
//   - CameraControllerOption: functional option to set the actions
func WithActions(actions Actions) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.actions = actions
	}
}

// WithMoveSpeed sets the pan speed as a fraction of the eye-target distance per update.
//
// Parameters:
//   - speed: fraction of the distance moved per update
//
// Returns:
//   - CameraControllerOption: functional option to set the pan speed
func WithMoveSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		if speed > 0 {
			cc.moveSpeed = speed
		}
	}
}

// WithRotateSpeed sets the keyboard rotation speed.
//
// Parameters:
//   - speed: radians per update
//
// Returns:
//   - CameraControllerOption: functional option to set the rotation speed
func WithRotateSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		if speed > 0 {
			cc.rotateSpeed = speed
		}
	}
}

// WithZoomLimits sets the closest and farthest the eye may be from the target.
//
// Parameters:
//   - min: minimum distance in AU
//   - max: maximum distance in AU
//
// Returns:
//   - CameraControllerOption: functional option to set the zoom limits
func WithZoomLimits(min, max float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		if min > 0 && max >= min {
			cc.minDistance, cc.maxDistance = min, max
		}
	}
}

// WithDragSensitivity sets how far a left-button drag rotates the camera.
func WithDragSensitivity(radiansPerPixel float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		if radiansPerPixel > 0 {
			cc.dragSensitivity = radiansPerPixel
		}
	}
}
