package sim

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolPartitions(t *testing.T) {
	p := NewPool(8)
	defer p.Close()

	assert.Equal(t, 1, p.Partitions(100))
	assert.Equal(t, 3, p.Partitions(1200))
	assert.Equal(t, 8, p.Partitions(1_000_000))

	wide := NewPool(64)
	defer wide.Close()
	assert.Equal(t, MaxThreads, wide.Partitions(1_000_000))
}

func TestPoolCoversRangeOnce(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	for _, n := range []int{0, 1, 499, 501, 1999, 2000, 12345} {
		hits := make([]int, n)
		var mu sync.Mutex
		var calls int
		p.Run(n, func(lo, hi int) {
			mu.Lock()
			calls++
			mu.Unlock()
			for i := lo; i < hi; i++ {
				hits[i]++
			}
		})
		for i, h := range hits {
			if !assert.Equal(t, 1, h, "n=%d index %d", n, i) {
				break
			}
		}
		if n > 0 {
			assert.LessOrEqual(t, calls, p.Partitions(n))
		}
	}
}

func TestSequentialRun(t *testing.T) {
	var got [][2]int
	Sequential{}.Run(10, func(lo, hi int) { got = append(got, [2]int{lo, hi}) })
	Sequential{}.Run(0, func(lo, hi int) { got = append(got, [2]int{lo, hi}) })
	assert.Equal(t, [][2]int{{0, 10}}, got)
}
