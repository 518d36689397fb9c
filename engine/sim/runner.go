package sim

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-space/engine/logging"
	"github.com/sirupsen/logrus"
)

// pausedPoll is how often a paused runner checks for a resume or a snapshot request.
const pausedPoll = 5 * time.Millisecond

// runner implements the Runner interface.
type runner struct {
	log *logrus.Entry

	sim           Simulation
	exchange      *Exchange
	checkInterval uint64

	tickRate atomic.Uint64 // math.Float64bits of ticks per second; 0 is unpaced
	paused   atomic.Bool
	rate     atomic.Uint64 // math.Float64bits of the measured ticks per second
}

// Runner steps a Simulation on its own goroutine and feeds its Exchange.
type Runner interface {
	// Run steps until ctx is cancelled. It is meant to be called on a dedicated goroutine.
	//
	// Parameters:
	//   - ctx: cancelling it stops the loop between two steps
	//
	// Returns:
	//   - error: ctx.Err() once the loop stops
	Run(ctx context.Context) error

	// SetTickRate paces the loop to hz steps per second. Zero or a negative rate runs unpaced.
	SetTickRate(hz float64)

	// TickRate returns the configured pace.
	TickRate() float64

	// SetPaused stops or resumes stepping. A paused runner still answers snapshot requests.
	SetPaused(paused bool)

	// TogglePause flips the paused state and returns the new one.
	TogglePause() bool

	// Paused reports whether stepping is paused.
	Paused() bool

	// Rate returns the measured steps per second over the last second of running.
	Rate() float64

	// Simulation returns the driven simulation.
	Simulation() Simulation
}

var _ Runner = &runner{}

// NewRunner creates a Runner for s that stores snapshots into ex.
//
// Parameters:
//   - s: the simulation to step; the runner is its only caller of Step
//   - ex: the exchange to feed
//   - options: variadic list of RunnerBuilderOption functions to configure the Runner
//
// Returns:
//   - Runner: the runner
func NewRunner(s Simulation, ex *Exchange, options ...RunnerBuilderOption) Runner {
	r := &runner{
		log:           logging.For("sim"),
		sim:           s,
		exchange:      ex,
		checkInterval: DefaultCheckInterval,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *runner) Run(ctx context.Context) error {
	r.log.WithFields(logrus.Fields{
		"bodies": r.sim.Len(),
		"delta":  r.sim.Delta(),
		"rate":   r.TickRate(),
	}).Info("simulation started")

	windowStart := time.Now()
	var windowTicks uint64
	next := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			r.log.WithField("ticks", r.sim.Tick()).Info("simulation stopped")
			return err
		}

		if r.paused.Load() {
			r.serve()
			select {
			case <-ctx.Done():
			case <-time.After(pausedPoll):
			}
			next = time.Now()
			windowStart, windowTicks = next, 0
			r.rate.Store(0)
			continue
		}

		r.sim.Step()
		windowTicks++
		if r.sim.Tick()%r.checkInterval == 0 {
			r.serve()
		}

		if elapsed := time.Since(windowStart); elapsed >= time.Second {
			r.rate.Store(math.Float64bits(float64(windowTicks) / elapsed.Seconds()))
			windowStart, windowTicks = time.Now(), 0
		}

		if hz := r.TickRate(); hz > 0 {
			next = next.Add(time.Duration(float64(time.Second) / hz))
			if wait := time.Until(next); wait > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(wait):
				}
			} else if wait < -time.Second {
				// fell too far behind; do not try to catch up in a burst
				next = time.Now()
			}
		}
	}
}

func (r *runner) serve() {
	if r.exchange != nil && r.exchange.ShouldStore() {
		r.exchange.Store(r.sim)
	}
}

func (r *runner) SetTickRate(hz float64) {
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz < 0 {
		hz = 0
	}
	r.tickRate.Store(math.Float64bits(hz))
}

func (r *runner) TickRate() float64 {
	return math.Float64frombits(r.tickRate.Load())
}

func (r *runner) SetPaused(paused bool) {
	r.paused.Store(paused)
}

func (r *runner) TogglePause() bool {
	for {
		old := r.paused.Load()
		if r.paused.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

func (r *runner) Paused() bool {
	return r.paused.Load()
}

func (r *runner) Rate() float64 {
	return math.Float64frombits(r.rate.Load())
}

func (r *runner) Simulation() Simulation {
	return r.sim
}
