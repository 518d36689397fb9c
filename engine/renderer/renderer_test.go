package renderer_test

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/Carmen-Shannon/oxy-space/engine/kernel"
	"github.com/Carmen-Shannon/oxy-space/engine/renderer"
	"github.com/Carmen-Shannon/oxy-space/engine/renderer/renderertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKernel = kernel.Binary{
	Name:    "bodies",
	Version: "test",
	EntryPoints: []kernel.EntryPoint{
		{Name: "cs_main", Stage: kernel.StageCompute, WorkgroupSize: [3]uint32{64, 1, 1}},
	},
	Bindings: []kernel.Binding{
		{Group: 0, Binding: 0, Name: "camera", Type: "Camera", Kind: kernel.BindingUniform, MinSize: 80},
		{Group: 0, Binding: 1, Name: "bodies", Type: "array<Body>", Kind: kernel.BindingReadOnlyStorage, MinSize: 32},
	},
}

type fixture struct {
	dev      *renderertest.Device
	r        renderer.Renderer
	pipeline renderer.Handle
	camera   renderer.Handle
	bodies   renderer.Handle
	group    renderer.Handle
}

func newFixture(t *testing.T, options ...renderer.RendererBuilderOption) *fixture {
	t.Helper()
	dev := renderertest.NewDevice()
	r, err := renderer.NewRenderer(nil, append([]renderer.RendererBuilderOption{renderer.WithDevice(dev)}, options...)...)
	require.NoError(t, err)
	require.NoError(t, r.ConfigureSurface(800, 600))

	f := &fixture{dev: dev, r: r}
	f.pipeline, err = r.CreatePipeline(renderer.PipelineDesc{Label: "bodies", Kernel: testKernel, Kind: renderer.PipelineCompute})
	require.NoError(t, err)
	f.camera, err = r.CreateBuffer("camera", 80, renderer.UsageUniform)
	require.NoError(t, err)
	f.bodies, err = r.CreateBuffer("bodies", 64, renderer.UsageStorage)
	require.NoError(t, err)
	f.group, err = r.CreateBindGroup(renderer.BindGroupDesc{
		Label:    "bodies",
		Pipeline: f.pipeline,
		Entries: []renderer.BindEntry{
			{Binding: 0, Buffer: f.camera},
			{Binding: 1, Buffer: f.bodies},
		},
	})
	require.NoError(t, err)
	return f
}

// dispatch records and submits one compute pass using the fixture's bind group.
func (f *fixture) dispatch(t *testing.T) renderer.Fence {
	t.Helper()
	cmds, err := f.r.BeginCommands()
	require.NoError(t, err)
	pass := cmds.BeginComputePass()
	pass.SetPipeline(f.pipeline)
	pass.SetBindGroup(0, f.group)
	pass.DispatchWorkgroups(1, 1, 1)
	pass.End()
	fence, err := f.r.Submit(cmds)
	require.NoError(t, err)
	return fence
}

func TestCreateResources(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.camera.Valid())
	assert.NotEqual(t, f.camera, f.bodies)

	h, err := f.r.CreateBuffer("odd", 10, renderer.UsageVertex)
	require.NoError(t, err)

	stats := f.r.Stats()
	assert.Equal(t, 5, stats.Live)
	assert.Equal(t, uint64(80+64+12), stats.Bytes)
	assert.Equal(t, 5, f.dev.Live())

	_, err = f.r.CreateBuffer("empty", 0, renderer.UsageVertex)
	assert.Error(t, err)

	require.NoError(t, f.r.Destroy(h))
	assert.False(t, f.dev.Has(h))
	assert.Equal(t, uint64(80+64), f.r.Stats().Bytes)
}

func TestBindGroupValidation(t *testing.T) {
	f := newFixture(t)
	small, err := f.r.CreateBuffer("small", 16, renderer.UsageStorage)
	require.NoError(t, err)
	vertex, err := f.r.CreateBuffer("vertex", 128, renderer.UsageVertex)
	require.NoError(t, err)

	tests := []struct {
		name    string
		entries []renderer.BindEntry
	}{
		{"missing entry", []renderer.BindEntry{{Binding: 0, Buffer: f.camera}}},
		{"too small", []renderer.BindEntry{{Binding: 0, Buffer: f.camera}, {Binding: 1, Buffer: small}}},
		{"wrong usage", []renderer.BindEntry{{Binding: 0, Buffer: vertex}, {Binding: 1, Buffer: f.bodies}}},
		{"unknown handle", []renderer.BindEntry{{Binding: 0, Buffer: f.camera}, {Binding: 1, Buffer: 999}}},
		{"wrong binding", []renderer.BindEntry{{Binding: 0, Buffer: f.camera}, {Binding: 5, Buffer: f.bodies}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.r.CreateBindGroup(renderer.BindGroupDesc{Label: tt.name, Pipeline: f.pipeline, Entries: tt.entries})
			assert.Error(t, err)
		})
	}

	_, err = f.r.CreateBindGroup(renderer.BindGroupDesc{Label: "group 1", Pipeline: f.pipeline, Group: 1})
	assert.Error(t, err)
}

func TestPipelineEntryPoints(t *testing.T) {
	f := newFixture(t)

	_, err := f.r.CreatePipeline(renderer.PipelineDesc{Label: "render", Kernel: testKernel, Kind: renderer.PipelineRender})
	assert.Error(t, err)

	_, err = f.r.CreatePipeline(renderer.PipelineDesc{Label: "named", Kernel: testKernel, Kind: renderer.PipelineCompute, Compute: "other"})
	assert.Error(t, err)
}

func TestUpdateBufferVisibleAtNextSubmit(t *testing.T) {
	f := newFixture(t)

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, f.r.UpdateBuffer(f.bodies, data, 8))
	assert.Empty(t, f.dev.Contents(f.bodies), "staged writes must not reach the device before submission")

	f.dispatch(t)
	got := f.dev.Contents(f.bodies)
	require.Len(t, got, 64)
	assert.Equal(t, data, got[8:16])

	assert.Error(t, f.r.UpdateBuffer(f.bodies, data, 60), "out of range")
	assert.Error(t, f.r.UpdateBuffer(f.bodies, data[:3], 0), "unaligned length")
	assert.Error(t, f.r.UpdateBuffer(f.bodies, data, 2), "unaligned offset")
	assert.ErrorIs(t, f.r.UpdateBuffer(999, data, 0), common.ErrNotFound)
}

func TestDeferredDestroy(t *testing.T) {
	f := newFixture(t)
	f.dev.AutoComplete = false

	fence := f.dispatch(t)
	assert.Equal(t, renderer.Fence(1), fence)
	assert.Equal(t, renderer.Fence(0), f.r.Completed())

	assert.Error(t, f.r.Destroy(f.bodies), "a live bind group still references the buffer")

	require.NoError(t, f.r.Destroy(f.group))
	require.NoError(t, f.r.Destroy(f.bodies))
	assert.ErrorIs(t, f.r.UpdateBuffer(f.bodies, []byte{0, 0, 0, 0}, 0), common.ErrNotFound)

	assert.Equal(t, 0, f.r.Collect())
	assert.True(t, f.dev.Has(f.bodies))
	assert.Equal(t, 2, f.r.Stats().PendingDestroys)

	f.dev.Signal(fence)
	assert.Equal(t, 2, f.r.Collect())
	assert.False(t, f.dev.Has(f.bodies))
	assert.False(t, f.dev.Has(f.group))
	assert.Empty(t, f.dev.Snapshot().Violations)

	// the camera buffer was never used after the signal; it is released at once
	require.NoError(t, f.r.Destroy(f.camera))
	assert.False(t, f.dev.Has(f.camera))
}

func TestSubmitWithDestroyedHandle(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.r.Destroy(f.group))

	cmds, err := f.r.BeginCommands()
	require.NoError(t, err)
	pass := cmds.BeginComputePass()
	pass.SetPipeline(f.pipeline)
	pass.SetBindGroup(0, f.group)
	pass.DispatchWorkgroups(1, 1, 1)
	pass.End()

	_, err = f.r.Submit(cmds)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, common.KindTransientFrame, common.KindOf(err))
	assert.Equal(t, 1, f.dev.Discards)
	assert.Equal(t, 0, f.dev.Snapshot().Dispatches)

	_, err = f.r.Submit(cmds)
	assert.Error(t, err, "commands can only be submitted once")
}

func TestMemoryBudget(t *testing.T) {
	f := newFixture(t, renderer.WithMemoryBudget(256))

	_, err := f.r.CreateBuffer("big", 200, renderer.UsageStorage)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrResourceExhausted)
	assert.Equal(t, common.KindTransientFrame, common.KindOf(err))

	h, err := f.r.CreateBuffer("fits", 100, renderer.UsageStorage)
	require.NoError(t, err)
	require.NoError(t, f.r.Destroy(h))
	_, err = f.r.CreateBuffer("fits again", 100, renderer.UsageStorage)
	assert.NoError(t, err)
}

func TestWaitFence(t *testing.T) {
	f := newFixture(t)
	f.dev.AutoComplete = false
	fence := f.dispatch(t)

	err := f.r.WaitFence(fence, 5*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTimeout)

	go func() {
		time.Sleep(5 * time.Millisecond)
		f.dev.SignalAll()
	}()
	assert.NoError(t, f.r.WaitFence(fence, time.Second))
	assert.Error(t, f.r.WaitFence(fence+1, time.Millisecond), "never submitted")
}

func TestRecreateRestoresResources(t *testing.T) {
	f := newFixture(t)
	f.dev.AutoComplete = false

	data := []byte{9, 9, 9, 9}
	require.NoError(t, f.r.UpdateBuffer(f.camera, data, 0))
	f.dispatch(t)

	f.dev.LoseDevice()
	cmds, err := f.r.BeginCommands()
	require.Error(t, err)
	assert.Nil(t, cmds)
	assert.Equal(t, common.KindDeviceLost, common.KindOf(err))

	require.NoError(t, f.r.Recreate())
	assert.Equal(t, 2, f.dev.Inits)
	assert.Equal(t, 800, f.dev.Width)
	for _, h := range []renderer.Handle{f.pipeline, f.camera, f.bodies, f.group} {
		assert.True(t, f.dev.Has(h), "handle %s", h)
	}
	assert.Equal(t, data, f.dev.Contents(f.camera)[:4])

	// work submitted before the loss counts as complete
	assert.Equal(t, renderer.Fence(1), f.r.Completed())

	f.dev.AutoComplete = true
	assert.Equal(t, renderer.Fence(2), f.dispatch(t))
}

func TestNewRendererInitFailure(t *testing.T) {
	dev := renderertest.NewDevice()
	dev.FailInit = 1

	_, err := renderer.NewRenderer(nil, renderer.WithDevice(dev))
	require.Error(t, err)
	assert.Equal(t, common.KindFatalInit, common.KindOf(err))

	_, err = renderer.NewRenderer(nil)
	assert.Equal(t, common.KindFatalInit, common.KindOf(err))
}

func TestSurfaceLifecycle(t *testing.T) {
	f := newFixture(t)

	assert.Error(t, f.r.ConfigureSurface(0, 600))
	w, h := f.r.SurfaceSize()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)

	assert.Error(t, f.r.Present(), "nothing acquired")
	require.NoError(t, f.r.AcquireSurface())
	assert.Error(t, f.r.AcquireSurface(), "already acquired")
	require.NoError(t, f.r.Present())
	assert.Equal(t, 1, f.dev.Presents)

	f.dev.FailAcquire = 1
	err := f.r.AcquireSurface()
	assert.ErrorIs(t, err, common.ErrSurfaceLost)
	assert.NoError(t, f.r.AcquireSurface())
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t)

	require.NoError(t, f.r.Close(time.Second))
	assert.Equal(t, 0, f.dev.Live())
	assert.Equal(t, 0, f.r.Stats().Live)
	assert.Empty(t, f.dev.Snapshot().Violations)

	_, err := f.r.CreateBuffer("late", 4, renderer.UsageVertex)
	assert.Error(t, err)
	assert.NoError(t, f.r.Close(time.Second))
}
