// Package sim integrates an N-body gravity system on the CPU.
//
// Distances are in astronomical units, masses in earth masses and time in seconds. A Simulation
// keeps two states: each Step reads the committed state and writes the other one, so every body
// sees the same prior snapshot no matter how the work is partitioned.
package sim

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-space/common"
)

const (
	// AU is one astronomical unit in meters.
	AU = 1.495e11
	// M0 is one earth mass in kilograms.
	M0 = 5.972e24
	// GAbs is the gravitational constant in SI units.
	GAbs = 6.674e-11
	// G is the gravitational constant in AU^3 / (M0 s^2).
	G = GAbs * M0 / (AU * AU * AU)

	// CollisionEpsilon softens the inverse-square term.
	CollisionEpsilon = 0.0

	DefaultDelta         = 10.0
	MinDelta             = 1e-3
	MaxDelta             = 1e6
	ObjectsPerThread     = 500
	MaxThreads           = 20
	DefaultCheckInterval = 1
)

// Body is the initial description of one simulated body.
type Body struct {
	Name     string
	Position common.Vec3
	Velocity common.Vec3
	Mass     float64
	Radius   float64
	Color    common.Vec3f
}

// State holds the dynamic part of every body.
type State struct {
	Pos []common.Vec3
	Vel []common.Vec3
}

func newState(n int) *State {
	return &State{Pos: make([]common.Vec3, n), Vel: make([]common.Vec3, n)}
}

// simulation implements the Simulation interface.
type simulation struct {
	mu *sync.RWMutex // guards read against the swap in Step

	bodies []Body
	mass   []float64
	read   *State
	write  *State

	solver Solver
	exec   Executor

	tick    atomic.Uint64
	delta   atomic.Uint64 // math.Float64bits of the step size
	elapsed atomic.Uint64 // math.Float64bits of the simulated seconds so far
}

// Simulation advances a set of bodies under mutual gravity.
//
// Step must only be called from one goroutine. Every other method is safe to call concurrently
// with Step.
type Simulation interface {
	// Step advances the system by one tick of Delta seconds.
	Step()

	// Tick returns the number of completed steps.
	Tick() uint64

	// Delta returns the current step size in seconds.
	Delta() float64

	// Elapsed returns the simulated seconds covered by every completed step. Steps taken at
	// different sizes each count with their own size.
	Elapsed() float64

	// SetDelta sets the step size, clamped to [MinDelta, MaxDelta]. Non-finite or non-positive values
	// are ignored.
	//
	// Parameters:
	//   - dt: the requested step size in seconds
	//
	// Returns:
	//   - float64: the step size now in effect
	SetDelta(dt float64) float64

	// ScaleDelta multiplies the step size by f, with the same clamping as SetDelta.
	ScaleDelta(f float64) float64

	// Len returns the number of bodies.
	Len() int

	// Bodies returns the bodies with their current position and velocity.
	Bodies() []Body

	// Position returns the committed position of body i.
	Position(i int) common.Vec3

	// Snapshot appends the committed positions to dst as packed float32 xyz triples.
	Snapshot(dst []float32) []float32

	// Close releases the executor.
	Close()
}

var _ Simulation = &simulation{}

// NewSimulation creates a Simulation over a copy of bodies.
//
// Parameters:
//   - bodies: the initial bodies
//   - options: variadic list of SimulationBuilderOption functions to configure the Simulation
//
// Returns:
//   - Simulation: the simulation, with the Barnes-Hut solver and a sequential executor by default
func NewSimulation(bodies []Body, options ...SimulationBuilderOption) Simulation {
	n := len(bodies)
	s := &simulation{
		mu:     &sync.RWMutex{},
		bodies: append([]Body(nil), bodies...),
		mass:   make([]float64, n),
		read:   newState(n),
		write:  newState(n),
		solver: NewBarnesHut(DefaultTheta),
		exec:   Sequential{},
	}
	s.delta.Store(math.Float64bits(DefaultDelta))

	for i, b := range bodies {
		s.mass[i] = b.Mass
		s.read.Pos[i] = b.Position
		s.read.Vel[i] = b.Velocity
	}

	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *simulation) Step() {
	n := len(s.bodies)
	dt := s.Delta()
	read, write := s.read, s.write

	s.solver.Prepare(read, s.mass)
	s.exec.Run(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			acc := s.solver.Accel(i, read, s.mass)
			vel := read.Vel[i].Add(acc.Scale(dt))
			write.Vel[i] = vel
			write.Pos[i] = read.Pos[i].Add(vel.Scale(dt))
		}
	})

	s.mu.Lock()
	s.read, s.write = write, read
	s.mu.Unlock()
	s.elapsed.Store(math.Float64bits(s.Elapsed() + dt))
	s.tick.Add(1)
}

func (s *simulation) Tick() uint64 {
	return s.tick.Load()
}

func (s *simulation) Delta() float64 {
	return math.Float64frombits(s.delta.Load())
}

func (s *simulation) Elapsed() float64 {
	return math.Float64frombits(s.elapsed.Load())
}

func (s *simulation) SetDelta(dt float64) float64 {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		return s.Delta()
	}
	dt = common.Clamp(dt, MinDelta, MaxDelta)
	s.delta.Store(math.Float64bits(dt))
	return dt
}

func (s *simulation) ScaleDelta(f float64) float64 {
	return s.SetDelta(s.Delta() * f)
}

func (s *simulation) Len() int {
	return len(s.bodies)
}

func (s *simulation) Bodies() []Body {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Body, len(s.bodies))
	for i, b := range s.bodies {
		b.Position = s.read.Pos[i]
		b.Velocity = s.read.Vel[i]
		out[i] = b
	}
	return out
}

func (s *simulation) Position(i int) common.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read.Pos[i]
}

func (s *simulation) Snapshot(dst []float32) []float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.read.Pos {
		dst = append(dst, float32(p[0]), float32(p[1]), float32(p[2]))
	}
	return dst
}

func (s *simulation) Close() {
	s.exec.Close()
}
