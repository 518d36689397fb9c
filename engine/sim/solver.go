package sim

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-space/common"
)

// Solver computes the gravitational acceleration of each body.
//
// Prepare runs once per step on the stepping goroutine. Accel may then be called concurrently for
// different bodies and must only read shared state.
type Solver interface {
	// Prepare builds whatever per-step structure the solver needs from the committed state.
	Prepare(read *State, mass []float64)

	// Accel returns the acceleration of body i in AU/s^2.
	Accel(i int, read *State, mass []float64) common.Vec3
}

// Direct sums the pull of every other body. It is exact and O(n^2).
type Direct struct{}

var _ Solver = Direct{}

func (Direct) Prepare(*State, []float64) {}

func (Direct) Accel(i int, read *State, mass []float64) common.Vec3 {
	var acc common.Vec3
	p := read.Pos[i]
	for j, q := range read.Pos {
		if j == i || mass[j] == 0 {
			continue
		}
		acc = acc.Add(pull(q.Sub(p), mass[j]))
	}
	return acc
}

// CentralField pulls every body toward one fixed mass and ignores the bodies themselves, so each
// body evolves independently of the others.
type CentralField struct {
	Mass   float64
	Center common.Vec3
}

var _ Solver = CentralField{}

func (CentralField) Prepare(*State, []float64) {}

func (c CentralField) Accel(i int, read *State, _ []float64) common.Vec3 {
	return pull(c.Center.Sub(read.Pos[i]), c.Mass)
}

// pull returns the acceleration toward a mass m at offset rel. Coincident points exert nothing.
func pull(rel common.Vec3, m float64) common.Vec3 {
	d2 := rel.Norm2()
	if d2 == 0 {
		return common.Vec3{}
	}
	return rel.Scale(m * G / (d2*math.Sqrt(d2) + CollisionEpsilon))
}

// NewSolver returns the solver registered under name.
//
// Parameters:
//   - name: one of "barnes-hut", "direct" or "central"
//   - theta: the Barnes-Hut opening angle
//   - bodies: the initial bodies; the central solver uses the heaviest one as its fixed mass
//
// Returns:
//   - Solver: the solver
//   - error: ErrNotFound for an unknown name
func NewSolver(name string, theta float64, bodies []Body) (Solver, error) {
	switch name {
	case "barnes-hut", "":
		return NewBarnesHut(theta), nil
	case "direct":
		return Direct{}, nil
	case "central":
		var c CentralField
		for _, b := range bodies {
			if b.Mass > c.Mass {
				c = CentralField{Mass: b.Mass, Center: b.Position}
			}
		}
		return c, nil
	}
	return nil, fmt.Errorf("solver %q: %w", name, common.ErrNotFound)
}
