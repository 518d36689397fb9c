package sim

// SimulationBuilderOption is a functional option applied to a simulation during construction via NewSimulation.
type SimulationBuilderOption func(*simulation)

// WithSolver sets the acceleration solver.
//
// Parameters:
//   - solver: the solver used by every Step
//
// Returns:
//   - SimulationBuilderOption: a function that applies the solver to a simulation
func WithSolver(solver Solver) SimulationBuilderOption {
	return func(s *simulation) {
		if solver != nil {
			s.solver = solver
		}
	}
}

// WithExecutor sets how each Step is partitioned across goroutines.
//
// Parameters:
//   - exec: the executor; the simulation closes it on Close
//
// Returns:
//   - SimulationBuilderOption: a function that applies the executor to a simulation
func WithExecutor(exec Executor) SimulationBuilderOption {
	return func(s *simulation) {
		if exec != nil {
			s.exec = exec
		}
	}
}

// WithDelta sets the initial step size in seconds, clamped like SetDelta.
func WithDelta(dt float64) SimulationBuilderOption {
	return func(s *simulation) {
		s.SetDelta(dt)
	}
}
