package sim

// RunnerBuilderOption is a functional option applied to a runner during construction via NewRunner.
type RunnerBuilderOption func(*runner)

// WithTickRate paces the runner to hz steps per second. Zero runs as fast as the solver allows.
//
// Parameters:
//   - hz: the target step rate
//
// Returns:
//   - RunnerBuilderOption: a function that applies the rate to a runner
func WithTickRate(hz float64) RunnerBuilderOption {
	return func(r *runner) {
		r.SetTickRate(hz)
	}
}

// WithCheckInterval sets how many steps pass between checks for a snapshot request.
//
// Parameters:
//   - n: the interval in steps; values below 1 are treated as 1
//
// Returns:
//   - RunnerBuilderOption: a function that applies the interval to a runner
func WithCheckInterval(n int) RunnerBuilderOption {
	return func(r *runner) {
		r.checkInterval = uint64(max(n, 1))
	}
}

// WithPaused starts the runner paused.
func WithPaused(paused bool) RunnerBuilderOption {
	return func(r *runner) {
		r.paused.Store(paused)
	}
}
