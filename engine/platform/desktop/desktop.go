// Package desktop implements the platform window on top of GLFW.
package desktop

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/ember/engine/containers"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/platform"
	"github.com/spaghettifunk/ember/engine/renderer"
)

const (
	// How long PollEvents sleeps while the window is minimized.
	minimizedWaitSeconds = 0.1
	// Events kept between two polls. The oldest are dropped beyond that.
	eventQueueSize = 64
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window

	mu      sync.Mutex
	pending *containers.RingQueue[platform.Event]
	closing atomic.Bool
}

func New() *Platform {
	return &Platform{
		pending: containers.NewRingQueue[platform.Event](eventQueueSize),
	}
}

func (p *Platform) Startup(config platform.WindowConfig) error {
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize glfw")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return errors.New("glfw reports no Vulkan loader")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(config.Width), int(config.Height), config.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return errors.Wrap(err, "failed to create window")
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetPos(int(config.X), int(config.Y))
	p.Window.Show()

	core.LogInfo("Window '%s' created at %dx%d.", config.Title, config.Width, config.Height)
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PollEvents pumps GLFW and returns what the callbacks queued. A minimized
// window waits for events instead of spinning.
func (p *Platform) PollEvents() []platform.Event {
	if p.FramebufferSize().IsZero() {
		glfw.WaitEventsTimeout(minimizedWaitSeconds)
	} else {
		glfw.PollEvents()
	}

	p.mu.Lock()
	events := p.pending.Drain()
	p.mu.Unlock()

	if p.closing.Load() || p.Window.ShouldClose() {
		return append(events, platform.CloseRequested())
	}
	return append(events, platform.RedrawReady())
}

func (p *Platform) RequestClose() {
	p.closing.Store(true)
	glfw.PostEmptyEvent()
}

func (p *Platform) FramebufferSize() renderer.Extent {
	width, height := p.Window.GetFramebufferSize()
	return renderer.Extent{Width: uint32(width), Height: uint32(height)}
}

func (p *Platform) RequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) CreateWindowSurface(instance interface{}, allocator unsafe.Pointer) (uintptr, error) {
	return p.Window.CreateWindowSurface(instance, allocator)
}

func (p *Platform) push(e platform.Event) {
	p.mu.Lock()
	evicted := p.pending.Push(e)
	p.mu.Unlock()
	if evicted {
		core.LogWarn("Platform event queue full, dropped the oldest event.")
	}
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.push(platform.Resized(uint32(width), uint32(height)))
}
