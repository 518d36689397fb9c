package sim

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stateOf(bodies []Body) (*State, []float64) {
	st := newState(len(bodies))
	mass := make([]float64, len(bodies))
	for i, b := range bodies {
		st.Pos[i], st.Vel[i], mass[i] = b.Position, b.Velocity, b.Mass
	}
	return st, mass
}

func relErr(got, want common.Vec3) float64 {
	return got.Sub(want).Norm() / want.Norm()
}

func TestDirectSkipsSelfAndMassless(t *testing.T) {
	st, mass := stateOf([]Body{
		{Mass: 4},
		{Position: common.Vec3{2, 0, 0}, Mass: 0},
		{Position: common.Vec3{0, 0, 0}, Mass: 1},
	})

	acc := Direct{}.Accel(1, st, mass)
	assert.InDelta(t, -5*G/4, acc[0], 1e-30)

	// coincident bodies exert nothing instead of producing NaN
	acc = Direct{}.Accel(0, st, mass)
	assert.Equal(t, common.Vec3{}, acc)
}

func TestCentralField(t *testing.T) {
	c := CentralField{Mass: 8, Center: common.Vec3{0, 2, 0}}
	st, mass := stateOf([]Body{{Mass: 1}})
	acc := c.Accel(0, st, mass)
	assert.InDelta(t, 8*G/4, acc[1], 1e-30)
	assert.Zero(t, acc[0])
}

func TestBarnesHutSmallThetaMatchesDirect(t *testing.T) {
	bodies, err := Preset("cloud", 343, 1)
	require.NoError(t, err)
	st, mass := stateOf(bodies)

	bh := NewBarnesHut(1e-9)
	bh.Prepare(st, mass)
	for i := range bodies {
		want := Direct{}.Accel(i, st, mass)
		got := bh.Accel(i, st, mass)
		require.Less(t, relErr(got, want), 1e-9, "body %d", i)
	}
}

func TestBarnesHutApproximates(t *testing.T) {
	bodies, err := Preset("cloud", 1000, 1)
	require.NoError(t, err)
	st, mass := stateOf(bodies)

	bh := NewBarnesHut(DefaultTheta)
	bh.Prepare(st, mass)

	var total float64
	for i := range bodies {
		total += relErr(bh.Accel(i, st, mass), Direct{}.Accel(i, st, mass))
	}
	assert.Less(t, total/float64(len(bodies)), 0.05)
	assert.Less(t, bh.Nodes(), 4*len(bodies))
}

func TestBarnesHutSkipsMassless(t *testing.T) {
	bodies, err := Preset("shell", 100, 1)
	require.NoError(t, err)
	st, mass := stateOf(bodies)

	bh := NewBarnesHut(DefaultTheta)
	bh.Prepare(st, mass)
	assert.Equal(t, 1, bh.Nodes(), "only the central mass is in the tree")

	assert.Equal(t, Direct{}.Accel(5, st, mass), bh.Accel(5, st, mass))
	assert.Equal(t, common.Vec3{}, bh.Accel(0, st, mass), "the center feels nothing")
}

func TestBarnesHutCoincidentBodies(t *testing.T) {
	st, mass := stateOf([]Body{
		{Position: common.Vec3{1, 1, 1}, Mass: 1},
		{Position: common.Vec3{1, 1, 1}, Mass: 2},
		{Position: common.Vec3{-1, 1, 1}, Mass: 1},
	})
	bh := NewBarnesHut(DefaultTheta)
	require.NotPanics(t, func() { bh.Prepare(st, mass) })

	acc := bh.Accel(2, st, mass)
	assert.InDelta(t, 3*G/4, acc[0], 1e-30)
}

func TestBarnesHutEmpty(t *testing.T) {
	bh := NewBarnesHut(-1)
	assert.Equal(t, DefaultTheta, bh.Theta)

	st, mass := stateOf([]Body{{Position: common.Vec3{1, 0, 0}}})
	bh.Prepare(st, mass)
	assert.Equal(t, common.Vec3{}, bh.Accel(0, st, mass))
}

func TestNewSolver(t *testing.T) {
	bodies := []Body{{Mass: 1}, {Mass: 50, Position: common.Vec3{1, 2, 3}}}

	s, err := NewSolver("central", 0, bodies)
	require.NoError(t, err)
	assert.Equal(t, CentralField{Mass: 50, Center: common.Vec3{1, 2, 3}}, s)

	s, err = NewSolver("barnes-hut", 0.7, bodies)
	require.NoError(t, err)
	assert.Equal(t, 0.7, s.(*BarnesHut).Theta)

	_, err = NewSolver("fmm", 0, bodies)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
