package sim

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/Carmen-Shannon/oxy-space/engine/logging"
)

// Executor runs fn over [0, n) split into contiguous ranges and returns once every range is done.
type Executor interface {
	Run(n int, fn func(lo, hi int))
	Close()
}

// Sequential runs the whole range on the calling goroutine.
type Sequential struct{}

var _ Executor = Sequential{}

func (Sequential) Run(n int, fn func(lo, hi int)) {
	if n > 0 {
		fn(0, n)
	}
}

func (Sequential) Close() {}

// Pool fans a step out over a bounded worker pool.
type Pool struct {
	pool    worker.DynamicWorkerPool
	workers int
	taskID  int
}

var _ Executor = &Pool{}

// NewPool creates a pool executor.
//
// Parameters:
//   - workers: the maximum number of goroutines a step is split across, capped at MaxThreads
//
// Returns:
//   - *Pool: the executor
func NewPool(workers int) *Pool {
	workers = common.Clamp(workers, 1, MaxThreads)
	logging.For("sim").WithField("workers", workers).Debug("starting worker pool")
	return &Pool{
		pool:    worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		workers: workers,
	}
}

// Partitions returns how many ranges a step over n bodies is split into.
func (p *Pool) Partitions(n int) int {
	return min(common.CeilDiv(n, ObjectsPerThread), MaxThreads, p.workers)
}

func (p *Pool) Run(n int, fn func(lo, hi int)) {
	parts := p.Partitions(n)
	if parts <= 1 {
		Sequential{}.Run(n, fn)
		return
	}

	// pool.Wait blocks until workers go idle, which is the wrong barrier for one step
	var wg sync.WaitGroup
	chunk := common.CeilDiv(n, parts)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		p.taskID++
		p.pool.SubmitTask(worker.Task{
			ID: p.taskID,
			Do: func() (any, error) {
				defer wg.Done()
				fn(lo, hi)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (p *Pool) Close() {
	p.pool.Stop()
}
