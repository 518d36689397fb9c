package renderer

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for the renderer.
// When not specified, the default is MSAAOff. Higher values (MSAA8x, MSAA16x) are
// adapter-dependent and may not be supported by all hardware.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.msaa = count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithMemoryBudget caps the bytes of buffers and textures the renderer will hold at once.
// Allocations beyond the budget fail with common.ErrResourceExhausted. Zero means unlimited.
//
// Parameters:
//   - bytes: the budget in bytes
//
// Returns:
//   - RendererBuilderOption: a function that applies the budget to a renderer
func WithMemoryBudget(bytes uint64) RendererBuilderOption {
	return func(r *renderer) {
		r.budget = bytes
	}
}

// WithDevice replaces the WebGPU device with the given implementation.
//
// Parameters:
//   - device: the device the renderer will own
//
// Returns:
//   - RendererBuilderOption: a function that applies the device to a renderer
func WithDevice(device Device) RendererBuilderOption {
	return func(r *renderer) {
		r.device = device
	}
}
