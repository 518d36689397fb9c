package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyW     = 87 // W key (ASCII)
	KeyA     = 65 // A key (ASCII)
	KeyS     = 83 // S key (ASCII)
	KeyD     = 68 // D key (ASCII)
	KeyF     = 70 // F key (ASCII)
	KeyG     = 71 // G key (ASCII)
	KeyH     = 72 // H key (ASCII)
	KeyO     = 79 // O key (ASCII)
	KeyL     = 76 // L key (ASCII)
	KeyP     = 80 // P key (ASCII)
	KeySpace = 32 // Spacebar (ASCII)
	KeyMinus = 45 // - key (ASCII)
	KeyEqual = 61 // = / + key (ASCII)
)

// Navigation and keypad keys (GLFW).
const (
	KeyEsc        = 256
	KeyRight      = 262
	KeyLeft       = 263
	KeyDown       = 264
	KeyUp         = 265
	KeyPageUp     = 266
	KeyHome       = 268
	KeyKPSubtract = 333
	KeyKPAdd      = 334
)

// Mouse buttons (GLFW).
const (
	MouseButtonLeft   = 0
	MouseButtonRight  = 1
	MouseButtonMiddle = 2
)
