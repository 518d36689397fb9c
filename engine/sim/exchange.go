package sim

import (
	"sync"
	"sync/atomic"
)

// Sample is one committed snapshot handed from the simulation to the frame producer.
type Sample struct {
	Tick uint64
	// Elapsed is the simulated time at Tick, in seconds.
	Elapsed float64
	// Positions holds packed float32 xyz triples, one per body.
	Positions []float32
}

// ExchangeStats counts exchange traffic.
type ExchangeStats struct {
	Stored uint64
	Served uint64
	// Stale counts Sample calls that found no new snapshot.
	Stale uint64
}

// Exchange is a one-slot mailbox between the simulation goroutine and the frame producer.
//
// The frame producer arms a request with every Sample call. The simulation checks the request
// between steps and, when armed, stores a snapshot of its committed state. Neither side ever waits
// for the other.
type Exchange struct {
	requested atomic.Bool

	mu     *sync.Mutex // guards sample and fresh
	sample Sample
	fresh  bool

	stored atomic.Uint64
	served atomic.Uint64
	stale  atomic.Uint64
}

// NewExchange creates an exchange with a request already armed.
func NewExchange() *Exchange {
	e := &Exchange{mu: &sync.Mutex{}}
	e.requested.Store(true)
	return e
}

// ShouldStore reports whether a snapshot was requested, and disarms the request.
func (e *Exchange) ShouldStore() bool {
	return e.requested.CompareAndSwap(true, false)
}

// Store copies the committed state of s into the mailbox.
func (e *Exchange) Store(s Simulation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sample.Positions = s.Snapshot(e.sample.Positions[:0])
	e.sample.Tick = s.Tick()
	e.sample.Elapsed = s.Elapsed()
	e.fresh = true
	e.stored.Add(1)
}

// Sample copies the newest snapshot into dst and arms the next request.
//
// Parameters:
//   - dst: the destination; its Positions slice is reused
//
// Returns:
//   - bool: true if dst received a snapshot not returned before
func (e *Exchange) Sample(dst *Sample) bool {
	defer e.requested.Store(true)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.fresh {
		e.stale.Add(1)
		return false
	}
	dst.Tick = e.sample.Tick
	dst.Elapsed = e.sample.Elapsed
	dst.Positions = append(dst.Positions[:0], e.sample.Positions...)
	e.fresh = false
	e.served.Add(1)
	return true
}

// Stats returns exchange counters.
func (e *Exchange) Stats() ExchangeStats {
	return ExchangeStats{Stored: e.stored.Load(), Served: e.served.Load(), Stale: e.stale.Load()}
}
