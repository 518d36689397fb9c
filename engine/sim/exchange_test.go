package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeHandshake(t *testing.T) {
	s := NewSimulation(twoBodies(), WithSolver(Direct{}))
	ex := NewExchange()

	var got Sample
	assert.False(t, ex.Sample(&got), "nothing stored yet")

	require.True(t, ex.ShouldStore())
	assert.False(t, ex.ShouldStore(), "one request stores once")
	s.Step()
	ex.Store(s)

	require.True(t, ex.Sample(&got))
	assert.Equal(t, uint64(1), got.Tick)
	assert.Equal(t, s.Snapshot(nil), got.Positions)

	assert.False(t, ex.Sample(&got), "a sample is served once")
	assert.Equal(t, ExchangeStats{Stored: 1, Served: 1, Stale: 2}, ex.Stats())
	assert.True(t, ex.ShouldStore(), "sampling re-arms the request")
}

func TestRunnerFeedsExchange(t *testing.T) {
	s := NewSimulation(twoBodies(), WithSolver(Direct{}))
	ex := NewExchange()
	r := NewRunner(s, ex, WithCheckInterval(3))

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.ErrorIs(t, r.Run(ctx), context.Canceled)
	}()

	var got Sample
	require.Eventually(t, func() bool { return ex.Sample(&got) }, time.Second, time.Millisecond)
	assert.Zero(t, got.Tick%3, "samples land on check intervals")
	assert.Len(t, got.Positions, 6)

	first := got.Tick
	require.Eventually(t, func() bool { return ex.Sample(&got) && got.Tick > first }, time.Second, time.Millisecond)

	cancel()
	wg.Wait()
	assert.Same(t, s, r.Simulation())
}

func TestRunnerPause(t *testing.T) {
	s := NewSimulation(twoBodies(), WithSolver(Direct{}))
	ex := NewExchange()
	r := NewRunner(s, ex, WithPaused(true))
	assert.True(t, r.Paused())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()

	var got Sample
	require.Eventually(t, func() bool { return ex.Sample(&got) }, time.Second, time.Millisecond, "a paused runner still answers requests")
	assert.Equal(t, uint64(0), s.Tick())

	assert.False(t, r.TogglePause())
	require.Eventually(t, func() bool { return s.Tick() > 0 }, time.Second, time.Millisecond)

	r.SetPaused(true)
	cancel()
	<-done
}

func TestRunnerTickRate(t *testing.T) {
	s := NewSimulation(twoBodies(), WithSolver(Direct{}))
	r := NewRunner(s, nil, WithTickRate(200))
	assert.Equal(t, 200.0, r.TickRate())

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	_ = r.Run(ctx)

	// 200 Hz for a quarter second is 50 steps; leave room for a slow scheduler
	assert.Greater(t, s.Tick(), uint64(10))
	assert.Less(t, s.Tick(), uint64(80))

	r.SetTickRate(-5)
	assert.Zero(t, r.TickRate())
}
