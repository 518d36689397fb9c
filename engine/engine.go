package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/Carmen-Shannon/oxy-space/engine/camera"
	"github.com/Carmen-Shannon/oxy-space/engine/config"
	"github.com/Carmen-Shannon/oxy-space/engine/frame"
	"github.com/Carmen-Shannon/oxy-space/engine/kernel"
	"github.com/Carmen-Shannon/oxy-space/engine/logging"
	"github.com/Carmen-Shannon/oxy-space/engine/profiler"
	"github.com/Carmen-Shannon/oxy-space/engine/renderer"
	"github.com/Carmen-Shannon/oxy-space/engine/scene"
	"github.com/Carmen-Shannon/oxy-space/engine/sim"
	"github.com/Carmen-Shannon/oxy-space/engine/ui"
	"github.com/Carmen-Shannon/oxy-space/engine/window"
	"github.com/Carmen-Shannon/oxy-space/kernels"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Z-indices of the frame layers.
const (
	layerSpace   = 0
	layerOverlay = 10
)

// WindowFactory creates the application window.
type WindowFactory func(cfg config.WindowConfig) (window.Window, error)

// engine implements the Engine interface.
// Coordinates the window thread, the frame producer and the simulation goroutine.
type engine struct {
	log *logrus.Entry
	cfg *config.Config

	windowFactory   WindowFactory
	provider        kernel.Provider
	kernels         map[string]kernel.Binary
	rendererOptions []renderer.RendererBuilderOption

	window     window.Window
	renderer   renderer.Renderer
	frames     frame.Scheduler
	simulation sim.Simulation
	runner     sim.Runner
	exchange   *sim.Exchange
	space      scene.Space
	controller camera.CameraController
	panel      *ui.InfoPanel
	compositor *ui.Compositor

	profiler         *profiler.Profiler
	profilingEnabled bool
	frameLimit       time.Duration // minimum frame duration; 0 = uncapped

	quitOnce sync.Once
	quit     chan struct{}

	errMu    sync.Mutex
	frameErr error
}

// Engine is the main entry point of the application.
// It owns the window, the renderer, the simulation and the frame layers, and runs them until the
// window closes.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Simulation returns the running simulation.
	Simulation() sim.Simulation

	// Scheduler returns the frame scheduler.
	Scheduler() frame.Scheduler

	// Run starts the simulation goroutine and the window loop, which produces one frame per
	// iteration. It blocks until the window closes, ctx is cancelled or a frame fails fatally, then
	// drains the GPU and releases everything. Run must be called from the goroutine that created the
	// engine.
	//
	// Parameters:
	//   - ctx: cancelling it closes the window
	//
	// Returns:
	//   - error: the fatal frame error, if any, joined with shutdown errors
	Run(ctx context.Context) error

	// Quit asks the engine to stop. Safe to call multiple times and from any goroutine.
	Quit()
}

// NewEngine loads the kernels, builds the simulation, and only then creates the window, the
// renderer and the frame layers. A startup failure before the window exists never creates one.
//
// Parameters:
//   - cfg: the validated configuration
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the engine, ready to Run
//   - error: a FatalInit error describing the first startup failure
func NewEngine(cfg *config.Config, options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		log:              logging.For("engine"),
		cfg:              cfg,
		windowFactory:    defaultWindowFactory,
		profilingEnabled: cfg.Profiling,
		quit:             make(chan struct{}),
	}
	if cfg.Renderer.FrameLimit > 0 {
		e.frameLimit = time.Second / time.Duration(cfg.Renderer.FrameLimit)
	}
	for _, opt := range options {
		opt(e)
	}

	if err := e.loadKernels(); err != nil {
		return nil, err
	}
	if err := e.buildSimulation(); err != nil {
		return nil, err
	}
	if err := e.buildWindow(); err != nil {
		e.simulation.Close()
		return nil, err
	}
	if err := e.buildFrames(); err != nil {
		e.release()
		return nil, err
	}
	return e, nil
}

func defaultWindowFactory(cfg config.WindowConfig) (window.Window, error) {
	return window.NewWindow(window.WithTitle(cfg.Title), window.WithSize(cfg.Width, cfg.Height))
}

func (e *engine) loadKernels() error {
	if e.kernels != nil {
		return nil
	}
	if e.provider == nil {
		options := []kernel.ProviderBuilderOption{kernel.WithFormatVersion(e.cfg.Kernels.Format)}
		if src := e.cfg.Kernels.SourceDir; src != "" {
			options = append(options, kernel.WithSourceFS(os.DirFS(src)))
		}
		e.provider = kernel.NewProvider(e.cfg.Kernels.Dir, options...)
	}
	loaded, err := e.provider.LoadAll(kernels.Names...)
	if err != nil {
		return err
	}
	e.kernels = loaded
	e.log.WithFields(logrus.Fields{"dir": e.provider.Dir(), "kernels": len(loaded)}).Info("kernels loaded")
	return nil
}

// loadBodies builds the initial system from the scenario file, or else from the preset.
func loadBodies(cfg config.SimConfig) ([]sim.Body, error) {
	if cfg.Scenario != "" {
		return sim.LoadScenario(cfg.Scenario)
	}
	return sim.Preset(cfg.Preset, cfg.Bodies, uint64(cfg.Seed))
}

func (e *engine) buildSimulation() error {
	bodies, err := loadBodies(e.cfg.Sim)
	if err != nil {
		return common.Fatal("load bodies", err)
	}
	solver, err := sim.NewSolver(e.cfg.Sim.Solver, e.cfg.Sim.Theta, bodies)
	if err != nil {
		return common.Fatal("create solver", err)
	}

	var exec sim.Executor = sim.Sequential{}
	if workers := common.Coalesce(e.cfg.Sim.Workers, runtime.NumCPU()); workers > 1 {
		exec = sim.NewPool(workers)
	}

	e.simulation = sim.NewSimulation(bodies,
		sim.WithSolver(solver),
		sim.WithExecutor(exec),
		sim.WithDelta(e.cfg.Sim.Delta),
	)
	e.exchange = sim.NewExchange()
	e.runner = sim.NewRunner(e.simulation, e.exchange,
		sim.WithTickRate(float64(e.cfg.Sim.TickRate)),
		sim.WithCheckInterval(e.cfg.Sim.CheckInterval),
	)
	e.log.WithFields(logrus.Fields{
		"bodies": len(bodies),
		"preset": e.cfg.Sim.Preset,
		"solver": e.cfg.Sim.Solver,
	}).Info("simulation created")
	return nil
}

func (e *engine) buildWindow() error {
	w, err := e.windowFactory(e.cfg.Window)
	if err != nil {
		return common.Fatal("create window", err)
	}
	e.window = w

	options := []renderer.RendererBuilderOption{
		renderer.WithPresentMode(renderer.ParsePresentMode(e.cfg.Renderer.PresentMode)),
		renderer.WithMSAA(renderer.MSAASampleCount(e.cfg.Renderer.MSAA)),
		renderer.WithForceSoftwareRenderer(e.cfg.Renderer.ForceSoftware),
		renderer.WithMemoryBudget(uint64(e.cfg.Renderer.MemoryBudgetMB) << 20),
	}
	r, err := renderer.NewRenderer(w, append(options, e.rendererOptions...)...)
	if err != nil {
		if cerr := w.Close(); cerr != nil {
			e.log.WithError(cerr).Warn("failed to close window")
		}
		e.window = nil
		return err
	}
	e.renderer = r
	return nil
}

// extent returns the distance of the farthest body from the origin, at least 1 AU.
func extent(bodies []sim.Body) float32 {
	far := 1.0
	for _, b := range bodies {
		far = max(far, b.Position.Norm())
	}
	return float32(far)
}

func (e *engine) buildFrames() error {
	width, height := e.window.Width(), e.window.Height()
	far := extent(e.simulation.Bodies())
	cam := camera.NewCamera(
		camera.WithView(common.Vec3f{0, 0, 2 * far}, common.Vec3f{}, common.Vec3f{0, 1, 0}),
		camera.WithFovy(e.cfg.Camera.Fovy),
		camera.WithNear(e.cfg.Camera.Near),
		camera.WithSize(width, height),
	)

	e.profiler = profiler.NewProfiler(profiler.WithFields(e.statsFields))

	var err error
	e.space, err = scene.NewSpace(e.renderer, scene.Kernels{
		Bodies: e.kernels["bodies"],
		Discs:  e.kernels["discs"],
		Trails: e.kernels["trails"],
	}, e.runner, e.exchange, cam, scene.WithFPS(e.profiler.FPS))
	if err != nil {
		return common.Fatal("create scene", err)
	}

	e.controller = camera.NewCameraController(cam,
		camera.WithActions(e.space),
		camera.WithMoveSpeed(e.cfg.Camera.MoveSpeed),
		camera.WithRotateSpeed(e.cfg.Camera.RotateSpeed),
		camera.WithZoomLimits(1e-7, 1e3*far),
	)
	e.space.SetFocusSource(e.controller.Focus)

	atlas, err := ui.NewAtlas()
	if err != nil {
		return common.Fatal("create glyph atlas", err)
	}
	e.panel = ui.NewInfoPanel(e.space)
	e.compositor, err = ui.NewCompositor(e.renderer, e.kernels["overlay"], atlas, ui.NewOverlay(atlas, e.panel))
	if err != nil {
		return common.Fatal("create overlay", err)
	}

	e.frames = frame.NewScheduler(e.renderer,
		frame.WithFramesInFlight(e.cfg.Renderer.FramesInFlight),
		frame.WithFenceTimeout(e.cfg.Renderer.FenceTimeout),
		frame.WithMaxDeviceRecoveries(e.cfg.Renderer.MaxDeviceRecoveries),
		frame.WithLayer(layerSpace, e.space),
		frame.WithLayer(layerOverlay, e.compositor),
	)
	e.bindInput()
	return nil
}

// bindInput routes window events. Left clicks on the overlay are consumed by its buttons; every
// other event reaches the camera controller.
func (e *engine) bindInput() {
	w := e.window
	w.SetResizeCallback(e.frames.Resize)
	w.SetKeyDownCallback(e.controller.KeyDown)
	w.SetKeyUpCallback(e.controller.KeyUp)
	w.SetScrollCallback(e.controller.Scroll)
	w.SetCursorMoveCallback(e.controller.CursorMove)
	w.SetMouseButtonCallback(func(button int, pressed bool, x, y float64) {
		if pressed && button == common.MouseButtonLeft && e.panel.Click(x, y) {
			return
		}
		e.controller.MouseButton(button, pressed)
	})
	w.SetCloseCallback(e.Quit)
	w.SetUpdateCallback(e.update)
}

// statsFields adds the simulation and frame counters to the profiler's periodic log entry.
func (e *engine) statsFields() logrus.Fields {
	fs := e.frames.Stats()
	ex := e.exchange.Stats()
	rs := e.renderer.Stats()
	return logrus.Fields{
		"tick":           e.simulation.Tick(),
		"tick_rate":      int64(e.runner.Rate()),
		"frames_skipped": fs.Skipped,
		"recoveries":     fs.Recoveries,
		"samples_stale":  ex.Stale,
		"gpu_live":       rs.Live,
		"gpu_mb":         rs.Bytes >> 20,
	}
}

// update produces one frame. It runs on the window thread once per message loop iteration.
func (e *engine) update() {
	start := time.Now()
	e.controller.Update()

	if err := e.frames.Frame(); err != nil {
		e.fail(err)
		return
	}
	if e.profilingEnabled {
		e.profiler.Tick()
	}

	if e.frameLimit > 0 {
		if wait := e.frameLimit - time.Since(start); wait > 0 {
			time.Sleep(wait)
		}
	}
}

// fail records the first fatal frame error and stops the window loop.
func (e *engine) fail(err error) {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	if e.frameErr == nil {
		e.frameErr = err
		e.log.WithError(err).Error("frame failed")
	}
	e.Quit()
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Simulation() sim.Simulation {
	return e.simulation
}

func (e *engine) Scheduler() frame.Scheduler {
	return e.frames
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quit)
	})
}

func (e *engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := e.runner.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-e.quit:
		}
		e.window.RequestClose()
		return nil
	})

	e.log.WithField("session", logging.Session()).Info("engine running")
	e.window.ProcessMessages()
	e.Quit()
	cancel()
	runErr := g.Wait()

	e.errMu.Lock()
	frameErr := e.frameErr
	e.errMu.Unlock()
	return errors.Join(frameErr, runErr, e.shutdown())
}

// shutdown drains the in-flight frames and releases the layers, the renderer, the window and the
// simulation.
func (e *engine) shutdown() error {
	timeout := e.cfg.Renderer.DrainTimeout
	var errs []error
	if err := e.frames.Drain(timeout); err != nil {
		errs = append(errs, fmt.Errorf("failed to drain frames: %w", err))
	}
	errs = append(errs, e.release())
	e.log.WithFields(logrus.Fields{
		"frames": e.frames.Stats().Presented,
		"ticks":  e.simulation.Tick(),
	}).Info("engine stopped")
	return errors.Join(errs...)
}

// release frees whatever the engine created, in reverse order.
func (e *engine) release() error {
	var errs []error
	if e.compositor != nil {
		errs = append(errs, e.compositor.Close())
	}
	if e.space != nil {
		errs = append(errs, e.space.Close())
	}
	if e.renderer != nil {
		errs = append(errs, e.renderer.Close(e.cfg.Renderer.DrainTimeout))
	}
	if e.window != nil {
		errs = append(errs, e.window.Close())
	}
	e.simulation.Close()
	return errors.Join(errs...)
}
