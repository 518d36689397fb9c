package scene

// SpaceBuilderOption is a functional option for configuring a Space.
// Use the With* functions to create options.
type SpaceBuilderOption func(s *space)

// WithFPS sets the source of the frame rate shown in the info panel.
//
// Parameters:
//   - fps: returns the measured frames per second
//
// Returns:
//   - SpaceBuilderOption: option function to apply
func WithFPS(fps func() float64) SpaceBuilderOption {
	return func(s *space) {
		if fps != nil {
			s.fps = fps
		}
	}
}

// WithTrails enables or disables the orbit trails. Trails are enabled by default.
//
// Parameters:
//   - enabled: false skips trail sampling and drawing
//
// Returns:
//   - SpaceBuilderOption: option function to apply
func WithTrails(enabled bool) SpaceBuilderOption {
	return func(s *space) {
		s.trailsEnabled = enabled
	}
}
