package engine

import (
	"github.com/Carmen-Shannon/oxy-space/engine/kernel"
	"github.com/Carmen-Shannon/oxy-space/engine/renderer"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables the periodic frame statistics log.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithWindowFactory replaces the GLFW window, e.g. with a headless window in tests.
//
// Parameters:
//   - factory: creates the window; it is only called once the kernels and bodies loaded
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindowFactory(factory WindowFactory) EngineBuilderOption {
	return func(e *engine) {
		if factory != nil {
			e.windowFactory = factory
		}
	}
}

// WithKernelProvider replaces the provider reading the configured kernel directory.
func WithKernelProvider(p kernel.Provider) EngineBuilderOption {
	return func(e *engine) {
		e.provider = p
	}
}

// WithKernels supplies already loaded kernels, skipping the provider.
//
// Parameters:
//   - kernels: the kernels keyed by name; every name in kernels.Names must be present
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithKernels(kernels map[string]kernel.Binary) EngineBuilderOption {
	return func(e *engine) {
		e.kernels = kernels
	}
}

// WithRendererOptions appends renderer options to the ones derived from the configuration.
//
// Parameters:
//   - options: renderer builder options, e.g. renderer.WithDevice
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRendererOptions(options ...renderer.RendererBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.rendererOptions = append(e.rendererOptions, options...)
	}
}
