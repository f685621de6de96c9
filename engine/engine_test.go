package engine

import (
	"io"
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/platform"
	"github.com/spaghettifunk/ember/engine/renderer"
	"github.com/spaghettifunk/ember/engine/renderer/rendertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

type rendererFunc func(ctx *renderer.FrameContext) (renderer.Future, error)

func (f rendererFunc) RenderFrame(ctx *renderer.FrameContext) (renderer.Future, error) {
	return f(ctx)
}

type harness struct {
	window   *rendertest.Window
	backend  *rendertest.Backend
	physical *rendertest.PhysicalDevice
	engine   *Engine
}

func newEngine(t *testing.T, g *Game, opts ...Option) *harness {
	t.Helper()
	if g == nil {
		g = &Game{}
	}
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = DefaultApplicationConfig()
	}
	h := &harness{
		window:   rendertest.NewWindow(1280, 720),
		physical: rendertest.NewPhysicalDevice("gpu", renderer.DeviceTypeDiscreteGPU),
	}
	h.backend = rendertest.NewBackend(h.physical)

	e, err := New(g, h.window, h.backend, opts...)
	require.NoError(t, err)
	h.engine = e
	return h
}

func newInitializedEngine(t *testing.T, g *Game, opts ...Option) *harness {
	t.Helper()
	h := newEngine(t, g, opts...)
	require.NoError(t, h.engine.Initialize())
	t.Cleanup(func() { _ = h.engine.Shutdown() })
	return h
}

func (h *harness) device() *rendertest.Device { return h.physical.Device() }

func record(e *Engine, code core.SystemEventCode) *[]core.EventContext {
	var got []core.EventContext
	e.Events().Register(code, &got, func(ctx core.EventContext, listener interface{}) bool {
		got = append(got, ctx)
		return false
	})
	return &got
}

func TestEngineRendersFrames(t *testing.T) {
	h := newInitializedEngine(t, nil)
	h.window.QueueFrames(3)

	require.NoError(t, h.engine.Run())

	device := h.device()
	assert.Equal(t, []uint32{0, 1, 2}, device.Presented)
	assert.Equal(t, 3, device.Acquires)
	require.Len(t, device.Submitted, 3)
	for i, cb := range device.Submitted {
		assert.Equal(t, []string{"BeginRenderPass", "SetViewport", "EndRenderPass", "End"}, cb.Commands)
		assert.Equal(t, mgl32.Vec4{0, 0, 0, 1}, cb.ClearColor)
		assert.Same(t, device.Framebuffers[i], cb.Framebuffer)
	}
	assert.Equal(t, 0, device.Recreations)
	assert.Equal(t, uint64(3), h.engine.FrameNumber())
	assert.Equal(t, FrameShuttingDown, h.engine.FrameState())
	assert.Equal(t, 4, h.window.Polls())
}

func TestEngineFrameContext(t *testing.T) {
	var contexts []*renderer.FrameContext
	var rendered []renderer.Future
	g := &Game{Renderer: rendererFunc(func(ctx *renderer.FrameContext) (renderer.Future, error) {
		f, err := renderer.ClearFrame(ctx, mgl32.Vec4{})
		contexts = append(contexts, ctx)
		rendered = append(rendered, f)
		return f, err
	})}
	h := newInitializedEngine(t, g)
	h.window.QueueFrames(2)

	require.NoError(t, h.engine.Run())
	require.Len(t, contexts, 2)

	first := contexts[0].Previous.(*rendertest.Future)
	assert.True(t, first.IsReady())
	assert.Equal(t, 1, first.Cleanups)

	second := contexts[1].Previous.(*rendertest.Future)
	assert.True(t, second.DependsOn(rendered[0].(*rendertest.Future)))
	assert.Equal(t, 1, second.Cleanups)

	for i, ctx := range contexts {
		assert.Equal(t, uint32(i), ctx.ImageIndex)
		assert.Equal(t, uint64(i), ctx.FrameNumber)
		assert.Equal(t, mgl32.Vec2{1280, 720}, ctx.Viewport.Dimensions)
		submitted := rendered[i].(*rendertest.Future)
		assert.True(t, submitted.DependsOn(ctx.Acquired.(*rendertest.Future)))
		assert.True(t, submitted.DependsOn(ctx.Previous.(*rendertest.Future)))
	}
}

func TestEngineHeldTokenDoesNotGrow(t *testing.T) {
	ancestorsAfter := func(frames int) int {
		h := newInitializedEngine(t, nil)
		h.window.QueueFrames(frames)
		require.NoError(t, h.engine.Run())
		require.Equal(t, uint64(frames), h.engine.FrameNumber())
		return h.engine.previous.(*rendertest.Future).Ancestors()
	}

	short := ancestorsAfter(10)
	assert.Equal(t, short, ancestorsAfter(200))
	assert.Less(t, short, 12)
}

func TestEngineResize(t *testing.T) {
	var resizes [][2]uint32
	g := &Game{FnOnResize: func(width, height uint32) error {
		resizes = append(resizes, [2]uint32{width, height})
		return nil
	}}
	h := newInitializedEngine(t, g)
	recreated := record(h.engine, core.EventCodeSwapchainRecreated)
	resized := record(h.engine, core.EventCodeResized)

	h.window.QueueFrames(1)
	h.window.Queue(platform.Resized(800, 600))
	h.window.QueueFrames(1)
	require.NoError(t, h.engine.Run())

	device := h.device()
	assert.Equal(t, 1, device.Recreations)
	assert.Equal(t, 1, device.WaitIdles)
	assert.Equal(t, 3, device.Presents)
	assert.True(t, device.Swapchains[0].Retired)

	sc := h.engine.Swapchain()
	assert.Equal(t, uint64(2), sc.Generation())
	assert.Equal(t, renderer.Extent{Width: 800, Height: 600}, sc.Extent())
	assert.Equal(t, mgl32.Vec2{800, 600}, h.engine.Viewport().Dimensions)
	assert.Equal(t, len(sc.Images()), device.LiveFramebuffers())
	for _, fb := range device.Framebuffers[:3] {
		assert.True(t, fb.Destroyed)
	}
	last := device.Submitted[len(device.Submitted)-1]
	assert.Equal(t, renderer.Extent{Width: 800, Height: 600}, last.Framebuffer.Extent())

	require.Len(t, *resized, 1)
	assert.Equal(t, &core.SystemEvent{WindowWidth: 800, WindowHeight: 600}, (*resized)[0].Data)
	require.Len(t, *recreated, 1)
	event := (*recreated)[0].Data.(*core.SwapchainEvent)
	assert.Equal(t, uint64(2), event.Generation)
	assert.Equal(t, uint32(800), event.Width)
	assert.Equal(t, [][2]uint32{{1280, 720}, {800, 600}}, resizes)
}

func TestEngineMinimizedSkipsFrames(t *testing.T) {
	h := newInitializedEngine(t, nil)
	skipped := record(h.engine, core.EventCodeFrameSkipped)

	h.window.Queue(platform.Resized(0, 0))
	h.window.QueueFrames(1)
	h.window.Queue(platform.Resized(640, 480))
	require.NoError(t, h.engine.Run())

	device := h.device()
	assert.Len(t, *skipped, 2)
	assert.Equal(t, 1, device.Recreations)
	assert.Equal(t, 3, device.WaitIdles)
	assert.Equal(t, 1, device.Acquires)
	assert.Equal(t, 1, device.Presents)
	assert.Equal(t, renderer.Extent{Width: 640, Height: 480}, h.engine.Swapchain().Extent())
	assert.Equal(t, uint64(2), h.engine.Swapchain().Generation())
}

func TestEngineAcquireOutOfDate(t *testing.T) {
	tests := []struct {
		name    string
		outcome rendertest.AcquireOutcome
	}{
		{"out of date", rendertest.AcquireOutcome{Err: errors.Wrap(core.ErrOutOfDate, "acquire")}},
		{"suboptimal", rendertest.AcquireOutcome{Suboptimal: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newInitializedEngine(t, nil)
			skipped := record(h.engine, core.EventCodeFrameSkipped)
			h.device().AcquireScript = []rendertest.AcquireOutcome{tt.outcome}
			h.window.QueueFrames(2)

			require.NoError(t, h.engine.Run())

			device := h.device()
			assert.Len(t, *skipped, 1)
			assert.Equal(t, 2, device.Acquires)
			assert.Len(t, device.Submitted, 1)
			assert.Equal(t, 1, device.Presents)
			assert.Equal(t, 1, device.Recreations)
			assert.Equal(t, uint64(1), h.engine.FrameNumber())
		})
	}
}

func TestEngineAcquireTimeoutSkipsFrame(t *testing.T) {
	h := newInitializedEngine(t, nil)
	h.device().AcquireScript = []rendertest.AcquireOutcome{{Err: errors.Wrap(core.ErrTimeout, "acquire")}}
	h.window.QueueFrames(2)

	require.NoError(t, h.engine.Run())

	device := h.device()
	assert.Equal(t, 0, device.Recreations)
	assert.Equal(t, 1, device.Presents)
}

func TestEnginePresentOutOfDate(t *testing.T) {
	h := newInitializedEngine(t, nil)
	h.device().PresentScript = []error{errors.Wrap(core.ErrOutOfDate, "present")}
	h.window.QueueFrames(2)

	require.NoError(t, h.engine.Run())

	device := h.device()
	assert.Len(t, device.Submitted, 2)
	assert.Equal(t, 2, device.Presents)
	assert.Len(t, device.Presented, 1)
	assert.Equal(t, 1, device.Recreations)
}

func TestEnginePresentFailureDegrades(t *testing.T) {
	var contexts []*renderer.FrameContext
	g := &Game{Renderer: rendererFunc(func(ctx *renderer.FrameContext) (renderer.Future, error) {
		contexts = append(contexts, ctx)
		return renderer.ClearFrame(ctx, mgl32.Vec4{})
	})}
	h := newInitializedEngine(t, g)
	degraded := record(h.engine, core.EventCodePresentDegraded)
	h.device().PresentScript = []error{errors.New("surface lost")}
	h.window.QueueFrames(3)

	require.NoError(t, h.engine.Run())

	device := h.device()
	require.Len(t, *degraded, 1)
	assert.EqualError(t, (*degraded)[0].Data.(*core.FrameEvent).Err, "surface lost")
	assert.Equal(t, 3, device.Presents)
	assert.Len(t, device.Presented, 2)
	assert.Equal(t, 0, device.Recreations)
	require.Len(t, contexts, 3)
	assert.True(t, contexts[1].Previous.IsReady())
}

func TestEngineRenderErrorIsFatal(t *testing.T) {
	g := &Game{Renderer: rendererFunc(func(ctx *renderer.FrameContext) (renderer.Future, error) {
		return nil, errors.New("boom")
	})}
	h := newInitializedEngine(t, g)
	h.window.QueueFrames(3)

	err := h.engine.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render failed")
	assert.Equal(t, 0, h.device().Presents)
	assert.Equal(t, 1, h.device().Acquires)
}

func TestEngineCloseIsAbsorbing(t *testing.T) {
	h := newInitializedEngine(t, nil)
	quit := record(h.engine, core.EventCodeApplicationQuit)
	h.window.Queue(platform.CloseRequested())
	h.window.QueueFrames(2)

	require.NoError(t, h.engine.Run())

	assert.Equal(t, 0, h.device().Acquires)
	assert.Equal(t, 1, h.window.Polls())
	assert.Len(t, *quit, 1)
	require.NoError(t, h.engine.Shutdown())
	assert.Len(t, *quit, 1)
}

func TestEngineRequestClose(t *testing.T) {
	h := newInitializedEngine(t, nil)
	h.window.QueueFrames(5)
	h.window.RequestClose()

	require.NoError(t, h.engine.Run())
	assert.Equal(t, 0, h.device().Acquires)
}

func TestEngineShutdownReleasesEverything(t *testing.T) {
	h := newInitializedEngine(t, nil)
	h.window.QueueFrames(1)
	require.NoError(t, h.engine.Run())

	device := h.device()
	instance := h.backend.Instance()
	require.NoError(t, h.engine.Shutdown())

	assert.Equal(t, 0, device.LiveFramebuffers())
	assert.True(t, device.RenderPasses[0].Destroyed)
	assert.True(t, device.Allocators[0].Destroyed)
	assert.True(t, device.CurrentSwapchain().Destroyed)
	assert.True(t, device.Destroyed)
	assert.True(t, instance.Surfaces[0].Destroyed)
	assert.True(t, instance.Destroyed)
	assert.True(t, h.window.ShutDown)
	assert.Equal(t, EngineStageUninitialized, h.engine.Stage())

	require.NoError(t, h.engine.Shutdown())
}

func TestEngineStageGuards(t *testing.T) {
	h := newEngine(t, nil)
	assert.True(t, errors.Is(h.engine.Run(), core.ErrEngineStage))

	require.NoError(t, h.engine.Initialize())
	defer h.engine.Shutdown()
	assert.Equal(t, EngineStageInitialized, h.engine.Stage())
	assert.True(t, errors.Is(h.engine.Initialize(), core.ErrEngineStage))
}

func TestEngineInitializeWithoutDevice(t *testing.T) {
	h := newEngine(t, nil)
	h.backend.Devices = nil

	err := h.engine.Initialize()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoSuitableDevice))

	instance := h.backend.Instance()
	assert.True(t, instance.Destroyed)
	assert.True(t, instance.Surfaces[0].Destroyed)
	assert.True(t, h.window.ShutDown)
	assert.Equal(t, EngineStageUninitialized, h.engine.Stage())
}

func TestEngineInitializeInstanceInfo(t *testing.T) {
	cfg := DefaultApplicationConfig()
	cfg.Name = "testbed"
	cfg.Renderer.Validation = true
	cfg.Renderer.MaxAPIVersion = "1.2"
	h := newInitializedEngine(t, &Game{ApplicationConfig: cfg})

	info := h.backend.Instance().Info
	assert.Equal(t, "testbed", info.ApplicationName)
	assert.Equal(t, engineName, info.EngineName)
	assert.Equal(t, renderer.MakeVersion(1, 2, 0), info.MaxAPIVersion)
	assert.Equal(t, []string{"VK_KHR_surface"}, info.Extensions)
	assert.True(t, info.Validation)
	assert.Equal(t, []string{renderer.KhrSwapchainExtensionName}, h.device().Info.Extensions)
	assert.Equal(t, platform.WindowConfig{Title: "testbed", X: 100, Y: 100, Width: 1280, Height: 720}, h.window.Config)
}

func TestEngineAppliesConfigUpdates(t *testing.T) {
	updates := make(chan *ApplicationConfig, 1)
	h := newInitializedEngine(t, nil, WithConfigUpdates(updates))

	cfg := DefaultApplicationConfig()
	cfg.Renderer.ClearColor = "#ff0000"
	updates <- cfg
	h.window.QueueFrames(1)

	require.NoError(t, h.engine.Run())
	require.Len(t, h.device().Submitted, 1)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, h.device().Submitted[0].ClearColor)
}

func TestNewValidatesInput(t *testing.T) {
	window := rendertest.NewWindow(1, 1)
	backend := rendertest.NewBackend()

	_, err := New(nil, window, backend)
	assert.Error(t, err)

	cfg := DefaultApplicationConfig()
	cfg.StartWidth = 0
	_, err = New(&Game{ApplicationConfig: cfg}, window, backend)
	assert.Error(t, err)

	_, err = New(&Game{ApplicationConfig: DefaultApplicationConfig()}, nil, backend)
	assert.Error(t, err)
}
