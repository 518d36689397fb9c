package renderer

import (
	"sync"
	"time"
)

// pollDrainTimeout bounds how long device teardown waits for blocking polls to return.
const pollDrainTimeout = 2 * time.Second

// pollGroup tracks goroutines blocked in a native device poll. The device they poll must not be
// released until every one of them has returned.
type pollGroup struct {
	wg sync.WaitGroup
}

// start runs poll on its own goroutine.
//
// Parameters:
//   - poll: the blocking call
//
// Returns:
//   - <-chan struct{}: closed once poll returns
func (g *pollGroup) start(poll func()) <-chan struct{} {
	done := make(chan struct{})
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer close(done)
		poll()
	}()
	return done
}

// wait blocks until every started poll has returned or the timeout elapses.
//
// Parameters:
//   - timeout: the longest to wait
//
// Returns:
//   - bool: true when no poll is outstanding
func (g *pollGroup) wait(timeout time.Duration) bool {
	idle := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		return true
	case <-time.After(timeout):
		return false
	}
}
