package renderer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollGroupWaitsForOutstandingPolls(t *testing.T) {
	var g pollGroup
	assert.True(t, g.wait(time.Millisecond), "nothing started")

	release := make(chan struct{})
	done := g.start(func() { <-release })

	assert.False(t, g.wait(10*time.Millisecond), "a blocked poll keeps the group busy")
	select {
	case <-done:
		t.Fatal("poll reported done while still blocked")
	default:
	}

	close(release)
	<-done
	assert.True(t, g.wait(time.Second))
}

func TestWGPUDeviceCloseWaitsForPolls(t *testing.T) {
	d := newWGPUDevice(nil, false, PresentModeVSync, MSAAOff)
	release := make(chan struct{})
	var closedAfterPoll bool
	polled := make(chan struct{})

	d.polls.start(func() {
		<-release
		close(polled)
	})
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		d.Close()
		select {
		case <-polled:
			closedAfterPoll = true
		default:
		}
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a poll was outstanding")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-closed
	assert.True(t, closedAfterPoll)
}

func TestWGPUDeviceAbandonStartsNewGeneration(t *testing.T) {
	d := newWGPUDevice(nil, false, PresentModeVSync, MSAAOff)
	d.submissions = []wgpuSubmission{{fence: 3, index: 7}}
	d.submitted, d.completed = 3, 1
	before := d.generation

	d.mu.Lock()
	d.release(false)
	d.mu.Unlock()

	assert.Equal(t, before+1, d.generation, "late polls from the old context are ignored")
	assert.Empty(t, d.submissions)
	assert.Equal(t, Fence(0), d.completed)
}
