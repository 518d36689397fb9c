package camera

// Actions is the part of the application, besides the camera, that input drives.
type Actions interface {
	// Bodies returns how many bodies can be focused.
	Bodies() int

	// BodyPosition returns the latest sampled position of body i.
	//
	// Parameters:
	//   - i: the body index
	//
	// Returns:
	//   - [3]float32: the position in AU
	//   - bool: false if no sample holds body i yet
	BodyPosition(i int) ([3]float32, bool)

	// ScaleDelta multiplies the simulation step size by f.
	ScaleDelta(f float64)

	// TogglePause pauses or resumes the simulation.
	TogglePause()

	// ClearTrails drops every trail sample.
	ClearTrails()
}

// CameraController maps window input onto a Camera and the application's Actions.
//
// Event methods record input as it arrives. Update applies it, once per frame. With no input and no
// focused body, Update never changes the camera.
type CameraController interface {
	// KeyDown records a key press.
	//
	// Parameters:
	//   - key: the key code (see common.Key*)
	KeyDown(key int)

	// KeyUp records a key release.
	//
	// Parameters:
	//   - key: the key code
	KeyUp(key int)

	// Scroll zooms toward the target. Positive dy zooms in.
	//
	// Parameters:
	//   - dx, dy: scroll offsets; non-finite values are ignored
	Scroll(dx, dy float64)

	// MouseButton records a button press or release. A held left button drags the camera around its target.
	//
	// Parameters:
	//   - button: the button code (see common.MouseButton*)
	//   - pressed: true on press
	MouseButton(button int, pressed bool)

	// CursorMove records the cursor position in pixels.
	//
	// Parameters:
	//   - x, y: the cursor position; non-finite values are ignored
	CursorMove(x, y float64)

	// Update applies held keys, triggers, drags, zoom and focus tracking to the camera.
	//
	// Returns:
	//   - bool: true if the camera view changed
	Update() bool

	// Focus returns the focused body.
	//
	// Returns:
	//   - int: the body index
	//   - bool: false when nothing is focused
	Focus() (int, bool)

	// SetFocus focuses body i, or clears the focus when i is negative.
	SetFocus(i int)

	// Ignored returns how many input events were dropped as out of range or non-finite.
	Ignored() uint64

	// Camera returns the controlled camera.
	Camera() Camera
}
