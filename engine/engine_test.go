package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/Carmen-Shannon/oxy-space/engine/config"
	"github.com/Carmen-Shannon/oxy-space/engine/kernel"
	"github.com/Carmen-Shannon/oxy-space/engine/renderer"
	"github.com/Carmen-Shannon/oxy-space/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-space/engine/window"
	"github.com/Carmen-Shannon/oxy-space/kernels"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWindow runs the update callback in a plain loop instead of a GLFW event loop.
type fakeWindow struct {
	width, height int
	frames        int // iterations before the loop ends by itself; 0 runs until closed
	onFrame       func(i int)

	running atomic.Bool
	closed  atomic.Bool

	update     func()
	resize     func(w, h int)
	keyDown    func(key int)
	keyUp      func(key int)
	scroll     func(dx, dy float64)
	mouse      func(button int, pressed bool, x, y float64)
	cursor     func(x, y float64)
	closeEvent func()
}

var _ window.Window = &fakeWindow{}

func newFakeWindow(frames int) *fakeWindow {
	w := &fakeWindow{width: 640, height: 480, frames: frames}
	w.running.Store(true)
	return w
}

func (w *fakeWindow) SetUpdateCallback(cb func()) {
	w.update = cb
}

func (w *fakeWindow) SetResizeCallback(cb func(width, height int)) {
	w.resize = cb
}

func (w *fakeWindow) SetScrollCallback(cb func(dx, dy float64)) {
	w.scroll = cb
}

func (w *fakeWindow) SetKeyDownCallback(cb func(key int)) {
	w.keyDown = cb
}

func (w *fakeWindow) SetKeyUpCallback(cb func(key int)) {
	w.keyUp = cb
}

func (w *fakeWindow) SetMouseButtonCallback(cb func(int, bool, float64, float64)) {
	w.mouse = cb
}

func (w *fakeWindow) SetCursorMoveCallback(cb func(x, y float64)) {
	w.cursor = cb
}

func (w *fakeWindow) SetCloseCallback(cb func()) {
	w.closeEvent = cb
}

func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return nil
}

func (w *fakeWindow) IsRunning() bool {
	return w.running.Load()
}

func (w *fakeWindow) RequestClose() {
	w.running.Store(false)
}

func (w *fakeWindow) Width() int {
	return w.width
}

func (w *fakeWindow) Height() int {
	return w.height
}

func (w *fakeWindow) Close() error {
	w.closed.Store(true)
	return nil
}

func (w *fakeWindow) ProcessMessages() {
	for i := 0; w.running.Load() && (w.frames == 0 || i < w.frames); i++ {
		if w.onFrame != nil {
			w.onFrame(i)
		}
		if w.update != nil {
			w.update()
		}
		if w.frames == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	w.running.Store(false)
	if w.closeEvent != nil {
		w.closeEvent()
	}
}

func testKernels(t *testing.T) map[string]kernel.Binary {
	t.Helper()
	out := make(map[string]kernel.Binary, len(kernels.Names))
	for _, name := range kernels.Names {
		k, err := renderertest.Kernel(name)
		require.NoError(t, err)
		out[name] = k
	}
	return out
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Sim.Preset = "earth-sun"
	cfg.Sim.Workers = 1
	cfg.Renderer.DrainTimeout = time.Second
	return cfg
}

func newTestEngine(t *testing.T, w *fakeWindow, cfg *config.Config) (*engine, *renderertest.Device) {
	t.Helper()
	dev := renderertest.NewDevice()
	e, err := NewEngine(cfg,
		WithKernels(testKernels(t)),
		WithWindowFactory(func(config.WindowConfig) (window.Window, error) { return w, nil }),
		WithRendererOptions(renderer.WithDevice(dev)),
	)
	require.NoError(t, err)
	return e.(*engine), dev
}

func TestRunProducesFramesAndShutsDown(t *testing.T) {
	w := newFakeWindow(5)
	e, dev := newTestEngine(t, w, testConfig())
	w.onFrame = func(i int) {
		if i == 0 {
			require.Eventually(t, func() bool { return e.exchange.Stats().Stored > 0 }, time.Second, time.Millisecond)
		}
	}

	require.NoError(t, e.Run(context.Background()))

	stats := dev.Snapshot()
	assert.Equal(t, 5, stats.Presents)
	assert.Empty(t, stats.Violations)
	assert.Positive(t, stats.Draws, "bodies were drawn")
	assert.Equal(t, uint64(5), e.Scheduler().Stats().Presented)
	assert.True(t, w.closed.Load())
	assert.Zero(t, dev.Live())
}

func TestContextCancelClosesWindow(t *testing.T) {
	w := newFakeWindow(0)
	e, _ := newTestEngine(t, w, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after the context was cancelled")
	}
	assert.False(t, w.IsRunning())
	assert.True(t, w.closed.Load())
}

func TestQuitIsIdempotent(t *testing.T) {
	w := newFakeWindow(0)
	e, _ := newTestEngine(t, w, testConfig())

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Quit()
		}()
	}
	wg.Wait()
	require.NoError(t, e.Run(context.Background()))
	assert.True(t, w.closed.Load())
}

func TestInputReachesControllerAndScheduler(t *testing.T) {
	w := newFakeWindow(1)
	e, dev := newTestEngine(t, w, testConfig())

	w.keyDown(common.KeyP)
	w.update()
	w.keyUp(common.KeyP)
	assert.True(t, e.runner.Paused(), "P toggles pause")

	w.resize(800, 600)
	w.update()
	assert.Equal(t, 800, dev.Snapshot().Width)
	assert.Equal(t, 600, dev.Snapshot().Height)

	w.mouse(common.MouseButtonLeft, true, 630, 470)
	w.cursor(600, 470)
	w.mouse(common.MouseButtonLeft, false, 600, 470)
	w.update()
	assert.Zero(t, e.controller.Ignored())

	w.closeEvent()
	select {
	case <-e.quit:
	default:
		t.Fatal("the close event did not quit the engine")
	}
	require.NoError(t, e.shutdown())
}

func TestStartupFailuresNeverCreateWindow(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func(*config.Config)
		options func(t *testing.T) []EngineBuilderOption
	}{
		{
			name: "missing kernels",
			options: func(t *testing.T) []EngineBuilderOption {
				return []EngineBuilderOption{WithKernelProvider(kernel.NewProvider(t.TempDir()))}
			},
		},
		{
			name: "unknown preset",
			cfg:  func(c *config.Config) { c.Sim.Preset = "no-such-preset" },
			options: func(t *testing.T) []EngineBuilderOption {
				return []EngineBuilderOption{WithKernels(testKernels(t))}
			},
		},
		{
			name: "missing scenario",
			cfg:  func(c *config.Config) { c.Sim.Scenario = "does-not-exist.toml" },
			options: func(t *testing.T) []EngineBuilderOption {
				return []EngineBuilderOption{WithKernels(testKernels(t))}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.cfg != nil {
				tt.cfg(cfg)
			}
			created := false
			options := append(tt.options(t), WithWindowFactory(func(config.WindowConfig) (window.Window, error) {
				created = true
				return newFakeWindow(1), nil
			}))

			e, err := NewEngine(cfg, options...)
			require.Error(t, err)
			assert.Nil(t, e)
			assert.True(t, common.IsFatal(err))
			assert.False(t, created)
		})
	}
}

func TestWindowFailureIsFatal(t *testing.T) {
	boom := errors.New("no display")
	_, err := NewEngine(testConfig(),
		WithKernels(testKernels(t)),
		WithWindowFactory(func(config.WindowConfig) (window.Window, error) { return nil, boom }),
	)
	require.Error(t, err)
	assert.True(t, common.IsFatal(err))
	assert.ErrorIs(t, err, boom)
}

func TestExtentIsAtLeastOneAU(t *testing.T) {
	assert.Equal(t, float32(1), extent(nil))
}
