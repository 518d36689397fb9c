package sim

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoBodies() []Body {
	return []Body{
		{Name: "a", Mass: 1000},
		{Name: "b", Position: common.Vec3{1, 0, 0}, Velocity: common.Vec3{0, 1e-6, 0}, Mass: 1},
	}
}

func TestStepIntegratesSemiImplicit(t *testing.T) {
	s := NewSimulation(twoBodies(), WithSolver(Direct{}), WithDelta(2))
	require.Equal(t, uint64(0), s.Tick())

	s.Step()
	assert.Equal(t, uint64(1), s.Tick())

	accB := -1000 * G // toward a, which sits at the origin one AU away
	velB := common.Vec3{accB * 2, 1e-6, 0}
	posB := common.Vec3{1, 0, 0}.Add(velB.Scale(2))

	bodies := s.Bodies()
	assert.InDelta(t, velB[0], bodies[1].Velocity[0], 1e-24)
	assert.InDelta(t, posB[0], bodies[1].Position[0], 1e-15)
	assert.InDelta(t, posB[1], bodies[1].Position[1], 1e-15)
	assert.Greater(t, bodies[0].Velocity[0], 0.0, "a is pulled toward b")
	assert.Equal(t, bodies[1].Position, s.Position(1))
}

func TestStepReadsPriorState(t *testing.T) {
	// both bodies must see each other's pre-step position, so the pair stays symmetric
	bodies := []Body{
		{Position: common.Vec3{-1, 0, 0}, Mass: 10},
		{Position: common.Vec3{1, 0, 0}, Mass: 10},
	}
	s := NewSimulation(bodies, WithSolver(Direct{}))
	for range 10 {
		s.Step()
	}
	got := s.Bodies()
	assert.Equal(t, -got[0].Position[0], got[1].Position[0])
	assert.Equal(t, -got[0].Velocity[0], got[1].Velocity[0])
}

func TestSetDeltaClamps(t *testing.T) {
	s := NewSimulation(twoBodies())
	assert.Equal(t, DefaultDelta, s.Delta())

	assert.Equal(t, MaxDelta, s.SetDelta(1e12))
	assert.Equal(t, MinDelta, s.SetDelta(1e-12))
	assert.Equal(t, 5.0, s.SetDelta(5))

	for _, bad := range []float64{math.NaN(), math.Inf(1), -1, 0} {
		assert.Equal(t, 5.0, s.SetDelta(bad), "%v is ignored", bad)
	}

	assert.InDelta(t, 5.5, s.ScaleDelta(1.1), 1e-12)
	assert.Equal(t, MaxDelta, s.ScaleDelta(1e9))
}

func TestElapsedFollowsStepSize(t *testing.T) {
	s := NewSimulation(twoBodies(), WithSolver(Direct{}))
	s.SetDelta(10)
	s.Step()
	s.Step()
	s.SetDelta(1)
	s.Step()
	assert.Equal(t, uint64(3), s.Tick())
	assert.Equal(t, 21.0, s.Elapsed())
}

func TestSnapshot(t *testing.T) {
	s := NewSimulation(twoBodies())
	got := s.Snapshot(nil)
	assert.Equal(t, []float32{0, 0, 0, 1, 0, 0}, got)

	buf := make([]float32, 0, 6)
	got = s.Snapshot(buf)
	assert.Len(t, got, 6)
	assert.Equal(t, 2, s.Len())
}

func TestEmptySimulation(t *testing.T) {
	s := NewSimulation(nil, WithExecutor(NewPool(4)))
	defer s.Close()
	assert.NotPanics(t, s.Step)
	assert.Empty(t, s.Snapshot(nil))
}

func runSteps(t *testing.T, bodies []Body, solver Solver, exec Executor, steps int) []Body {
	t.Helper()
	s := NewSimulation(bodies, WithSolver(solver), WithExecutor(exec), WithDelta(1000))
	defer s.Close()
	for range steps {
		s.Step()
	}
	return s.Bodies()
}

func TestParallelMatchesSequential(t *testing.T) {
	bodies, err := Preset("collision", 2000, 1)
	require.NoError(t, err)

	solvers := map[string]func() Solver{
		"direct":     func() Solver { return Direct{} },
		"barnes-hut": func() Solver { return NewBarnesHut(0.5) },
		"central":    func() Solver { return CentralField{Mass: 1e7, Center: common.Vec3{-15, 0, 0}} },
	}
	for name, solver := range solvers {
		t.Run(name, func(t *testing.T) {
			seq := runSteps(t, bodies, solver(), Sequential{}, 3)
			par := runSteps(t, bodies, solver(), NewPool(8), 3)
			require.Len(t, par, len(seq))
			for i := range seq {
				// bit-for-bit, not approximately
				require.Equal(t, seq[i].Position, par[i].Position, "body %d", i)
				require.Equal(t, seq[i].Velocity, par[i].Velocity, "body %d", i)
			}
		})
	}
}

func TestIndependentBodiesAreIdentical(t *testing.T) {
	if testing.Short() {
		t.Skip("10k bodies x 100 ticks")
	}
	bodies, err := Preset("field", 10000, 7)
	require.NoError(t, err)
	central := CentralField{Mass: bodies[0].Mass, Center: bodies[0].Position}

	seq := runSteps(t, bodies, central, Sequential{}, 100)
	par := runSteps(t, bodies, central, NewPool(MaxThreads), 100)
	for i := range seq {
		require.Equal(t, seq[i].Position, par[i].Position, "body %d", i)
	}

	// a body run on its own ends where it ends inside the full system
	for _, i := range []int{1, 4999, 10000} {
		alone := runSteps(t, bodies[i:i+1], central, Sequential{}, 100)
		assert.Equal(t, seq[i].Position, alone[0].Position, "body %d", i)
	}
}

func BenchmarkStep(b *testing.B) {
	bodies, err := Preset("cloud", 5000, 1)
	require.NoError(b, err)

	cases := []struct {
		name   string
		solver Solver
		exec   Executor
	}{
		{"direct/sequential", Direct{}, Sequential{}},
		{"direct/pool", Direct{}, NewPool(MaxThreads)},
		{"barnes-hut/sequential", NewBarnesHut(DefaultTheta), Sequential{}},
		{"barnes-hut/pool", NewBarnesHut(DefaultTheta), NewPool(MaxThreads)},
	}
	for _, c := range cases {
		b.Run(c.name, func(b *testing.B) {
			s := NewSimulation(bodies, WithSolver(c.solver), WithExecutor(c.exec))
			defer s.Close()
			b.ResetTimer()
			for range b.N {
				s.Step()
			}
		})
	}
}
