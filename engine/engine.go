package engine

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/platform"
	"github.com/spaghettifunk/ember/engine/renderer"
)

const engineName = "Ember"

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *ApplicationConfig

	window        platform.Window
	windowStarted bool
	backend       renderer.Backend
	events        *core.EventSystem
	clock         *core.Clock
	metrics       *core.Metrics
	lastTime      float64
	configUpdates <-chan *ApplicationConfig

	instance       renderer.Instance
	surface        renderer.Surface
	device         renderer.Device
	queue          renderer.Queue
	swapchain      *renderer.SwapchainState
	renderPass     renderer.RenderPass
	framebuffers   *renderer.FramebufferSet
	allocator      renderer.CommandBufferAllocator
	viewport       renderer.Viewport
	frameRenderer  renderer.FrameRenderer
	acquireTimeout time.Duration

	// Completion token of the last frame.
	previous    renderer.Future
	loop        loopState
	frameNumber uint64
	quitFired   bool
}

type Option func(*Engine)

// WithConfigUpdates applies configs received on ch between event batches.
func WithConfigUpdates(ch <-chan *ApplicationConfig) Option {
	return func(e *Engine) {
		e.configUpdates = ch
	}
}

func New(g *Game, window platform.Window, backend renderer.Backend, opts ...Option) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("game and application config are required")
	}
	if window == nil || backend == nil {
		return nil, errors.New("window and backend are required")
	}
	if err := g.ApplicationConfig.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       g.ApplicationConfig,
		window:       window,
		backend:      backend,
		events:       core.NewEventSystem(),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		viewport:     renderer.NewViewport(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Stage() Stage { return e.currentStage }

// Events is where listeners register for engine notifications.
func (e *Engine) Events() *core.EventSystem { return e.events }

// FrameState is the state the loop reached with the last event or frame.
func (e *Engine) FrameState() FrameState { return e.loop.state }

func (e *Engine) FrameNumber() uint64 { return e.frameNumber }

// Swapchain is nil until Initialize succeeded.
func (e *Engine) Swapchain() *renderer.SwapchainState { return e.swapchain }

func (e *Engine) Viewport() renderer.Viewport { return e.viewport }

// Initialize opens the window and builds the renderer: instance, surface,
// device, swapchain, render pass, framebuffers and command buffer allocator.
// On failure everything created so far is released.
func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return errors.Wrapf(core.ErrEngineStage, "initialize in stage %d", e.currentStage)
	}
	if err := core.SetLogLevel(e.config.LogLevel); err != nil {
		return err
	}

	e.currentStage = EngineStageBooting
	if err := e.window.Startup(platform.WindowConfig{
		Title:  e.config.windowTitle(),
		X:      e.config.StartPosX,
		Y:      e.config.StartPosY,
		Width:  e.config.StartWidth,
		Height: e.config.StartHeight,
	}); err != nil {
		e.currentStage = EngineStageUninitialized
		return errors.Wrap(err, "failed to start the window")
	}
	e.windowStarted = true
	e.currentStage = EngineStageBootComplete

	e.currentStage = EngineStageInitializing
	if err := e.initializeRenderer(); err != nil {
		e.teardown()
		e.currentStage = EngineStageUninitialized
		return err
	}

	if fn := e.gameInstance.FnInitialize; fn != nil {
		if err := fn(); err != nil {
			e.teardown()
			e.currentStage = EngineStageUninitialized
			return errors.Wrap(err, "game initialization failed")
		}
	}
	extent := e.swapchain.Extent()
	if fn := e.gameInstance.FnOnResize; fn != nil {
		if err := fn(extent.Width, extent.Height); err != nil {
			e.teardown()
			e.currentStage = EngineStageUninitialized
			return errors.Wrap(err, "game resize failed")
		}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("Engine initialized, rendering at %s.", extent)
	return nil
}

func (e *Engine) initializeRenderer() error {
	apiVersion, err := e.config.Renderer.APIVersion()
	if err != nil {
		return err
	}
	if e.acquireTimeout, err = e.config.Renderer.Timeout(); err != nil {
		return err
	}
	clearColor, err := e.config.Renderer.Color()
	if err != nil {
		return err
	}

	e.instance, err = e.backend.CreateInstance(renderer.InstanceCreateInfo{
		ApplicationName:    e.config.windowTitle(),
		ApplicationVersion: renderer.MakeVersion(1, 0, 0),
		EngineName:         engineName,
		MaxAPIVersion:      apiVersion,
		Extensions:         e.window.RequiredInstanceExtensions(),
		Validation:         e.config.Renderer.Validation,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create instance")
	}

	if e.surface, err = e.instance.CreateSurface(e.window); err != nil {
		return errors.Wrap(err, "failed to create surface")
	}

	deviceExtensions := []string{renderer.KhrSwapchainExtensionName}
	candidate, err := renderer.SelectPhysicalDevice(e.instance, e.surface, deviceExtensions)
	if err != nil {
		return err
	}
	if e.device, e.queue, err = renderer.CreateLogicalDevice(candidate, deviceExtensions); err != nil {
		return err
	}

	e.swapchain, err = renderer.CreateSwapchain(e.device, e.surface, renderer.SwapchainOptions{
		PresentMode: e.config.Renderer.PresentMode(),
	})
	if err != nil {
		return err
	}

	if e.renderPass, err = e.device.CreateRenderPass(renderer.RenderPassCreateInfo{ColorFormat: e.swapchain.Format()}); err != nil {
		return errors.Wrap(err, "failed to create render pass")
	}
	if e.framebuffers, err = renderer.BuildFramebuffers(e.device, e.renderPass, e.swapchain, &e.viewport); err != nil {
		return err
	}
	if e.allocator, err = e.device.CreateCommandBufferAllocator(e.queue.FamilyIndex()); err != nil {
		return errors.Wrap(err, "failed to create command buffer allocator")
	}

	e.frameRenderer = e.gameInstance.Renderer
	if e.frameRenderer == nil {
		e.frameRenderer = renderer.NewClearRenderer(clearColor)
	}
	e.previous = e.device.Now()
	e.loop = loopState{state: FrameIdle}
	return nil
}

// Run drives the frame loop until the window asks to close. Errors are
// fatal; the caller still has to call Shutdown.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.Wrapf(core.ErrEngineStage, "run in stage %d", e.currentStage)
	}
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.loop.state != FrameShuttingDown {
		e.applyConfigUpdates()

		for _, event := range e.window.PollEvents() {
			e.loop = transition(e.loop, event)

			switch event.Type {
			case platform.EventCloseRequested:
				e.fireQuit()
			case platform.EventResized:
				if e.loop.state != FrameShuttingDown {
					e.events.Fire(core.EventContext{
						Type:   core.EventCodeResized,
						Sender: e,
						Data:   &core.SystemEvent{WindowWidth: event.Width, WindowHeight: event.Height},
					})
				}
			case platform.EventRedrawReady:
				if e.loop.state != FrameBegin {
					continue
				}
				if err := e.drawFrame(e.tick()); err != nil {
					return err
				}
			}
			if e.loop.state == FrameShuttingDown {
				break
			}
		}
	}
	core.LogInfo("Window closed after %d frames.", e.frameNumber)
	return nil
}

// tick advances the clock and returns the seconds since the previous frame.
func (e *Engine) tick() float64 {
	e.clock.Update()
	now := e.clock.Elapsed()
	delta := now - e.lastTime
	e.lastTime = now
	return delta
}

func (e *Engine) fireQuit() {
	if e.quitFired {
		return
	}
	e.quitFired = true
	core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
	e.events.Fire(core.EventContext{Type: core.EventCodeApplicationQuit, Sender: e})
}

func (e *Engine) applyConfigUpdates() {
	if e.configUpdates == nil {
		return
	}
	for {
		select {
		case cfg, ok := <-e.configUpdates:
			if !ok {
				e.configUpdates = nil
				return
			}
			e.applyConfig(cfg)
		default:
			return
		}
	}
}

type clearColorSetter interface {
	SetClearColor(color mgl32.Vec4)
}

// applyConfig hot-applies the settings that do not need a renderer rebuild.
func (e *Engine) applyConfig(cfg *ApplicationConfig) {
	if cfg == nil {
		return
	}
	if err := core.SetLogLevel(cfg.LogLevel); err != nil {
		core.LogWarn("Ignoring log level %q: %s", cfg.LogLevel, err)
	} else {
		e.config.LogLevel = cfg.LogLevel
	}

	color, err := cfg.Renderer.Color()
	if err != nil {
		core.LogWarn("Ignoring clear color: %s", err)
	} else if setter, ok := e.frameRenderer.(clearColorSetter); ok {
		setter.SetClearColor(color)
		e.config.Renderer.ClearColor = cfg.Renderer.ClearColor
	}

	if timeout, err := cfg.Renderer.Timeout(); err != nil {
		core.LogWarn("Ignoring acquire timeout: %s", err)
	} else {
		e.acquireTimeout = timeout
		e.config.Renderer.AcquireTimeout = cfg.Renderer.AcquireTimeout
	}
	core.LogInfo("Configuration reloaded.")
}

// Shutdown releases everything Initialize created, in reverse order.
func (e *Engine) Shutdown() error {
	switch e.currentStage {
	case EngineStageUninitialized, EngineStageShuttingDown:
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.fireQuit()

	var errs error
	if fn := e.gameInstance.FnShutdown; fn != nil {
		if err := fn(); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrap(err, "game shutdown failed"))
		}
	}
	if err := e.teardown(); err != nil {
		errs = errors.CombineErrors(errs, err)
	}
	e.events.Shutdown()
	e.currentStage = EngineStageUninitialized
	core.LogInfo("Engine shut down.")
	return errs
}

func (e *Engine) teardown() error {
	var errs error
	if e.device != nil {
		if err := e.device.WaitIdle(); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrap(err, "failed to wait for device idle"))
		}
	}
	e.previous = nil
	if e.framebuffers != nil {
		e.framebuffers.Destroy()
		e.framebuffers = nil
	}
	if e.renderPass != nil {
		e.renderPass.Destroy()
		e.renderPass = nil
	}
	if e.allocator != nil {
		e.allocator.Destroy()
		e.allocator = nil
	}
	if e.swapchain != nil {
		e.swapchain.Destroy()
		e.swapchain = nil
	}
	if e.device != nil {
		e.device.Destroy()
		e.device = nil
		e.queue = nil
	}
	if e.surface != nil {
		e.surface.Destroy()
		e.surface = nil
	}
	if e.instance != nil {
		e.instance.Destroy()
		e.instance = nil
	}
	if e.windowStarted {
		if err := e.window.Shutdown(); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrap(err, "failed to shut the window down"))
		}
		e.windowStarted = false
	}
	return errs
}
