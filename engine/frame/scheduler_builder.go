package frame

import "time"

// SchedulerBuilderOption is a functional option applied to a scheduler during construction via NewScheduler.
type SchedulerBuilderOption func(*scheduler)

// WithFramesInFlight sets how many frames may be queued on the GPU at once.
// Values outside [1, 3] are clamped. The default is 2.
//
// Parameters:
//   - n: the number of frame slots
//
// Returns:
//   - SchedulerBuilderOption: a function that applies the slot count to a scheduler
func WithFramesInFlight(n int) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.slots = make([]slot, min(max(n, 1), 3))
	}
}

// WithFenceTimeout bounds how long a frame waits for a slot to free up before it is skipped.
//
// Parameters:
//   - d: the wait bound
//
// Returns:
//   - SchedulerBuilderOption: a function that applies the timeout to a scheduler
func WithFenceTimeout(d time.Duration) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.fenceTimeout = d
	}
}

// WithMaxDeviceRecoveries sets how many consecutive device recreations are attempted before a
// device loss becomes fatal.
//
// Parameters:
//   - n: the recovery limit
//
// Returns:
//   - SchedulerBuilderOption: a function that applies the limit to a scheduler
func WithMaxDeviceRecoveries(n int) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.maxRecoveries = n
	}
}

// WithLayer registers a layer at the given z-index.
func WithLayer(key int, l Layer) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.layers[key] = l
	}
}
