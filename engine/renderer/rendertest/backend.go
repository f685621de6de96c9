// Package rendertest provides an in-memory renderer backend with scriptable
// failures, used to drive the engine without a GPU.
package rendertest

import (
	"sync"

	"github.com/spaghettifunk/ember/engine/renderer"
)

type Backend struct {
	Devices      []*PhysicalDevice
	InstanceErr  error
	EnumerateErr error
	SurfaceErr   error

	mu        sync.Mutex
	instances []*Instance
}

func NewBackend(devices ...*PhysicalDevice) *Backend {
	return &Backend{Devices: devices}
}

func (b *Backend) CreateInstance(info renderer.InstanceCreateInfo) (renderer.Instance, error) {
	if b.InstanceErr != nil {
		return nil, b.InstanceErr
	}
	instance := &Instance{backend: b, Info: info}
	b.mu.Lock()
	b.instances = append(b.instances, instance)
	b.mu.Unlock()
	return instance, nil
}

// Instance returns the most recently created instance, or nil.
func (b *Backend) Instance() *Instance {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.instances) == 0 {
		return nil
	}
	return b.instances[len(b.instances)-1]
}

type Instance struct {
	Info      renderer.InstanceCreateInfo
	Surfaces  []*Surface
	Destroyed bool

	backend *Backend
}

func (i *Instance) EnumeratePhysicalDevices() ([]renderer.PhysicalDevice, error) {
	if i.backend.EnumerateErr != nil {
		return nil, i.backend.EnumerateErr
	}
	devices := make([]renderer.PhysicalDevice, len(i.backend.Devices))
	for idx, d := range i.backend.Devices {
		devices[idx] = d
	}
	return devices, nil
}

func (i *Instance) CreateSurface(window renderer.Window) (renderer.Surface, error) {
	if i.backend.SurfaceErr != nil {
		return nil, i.backend.SurfaceErr
	}
	surface := &Surface{window: window}
	i.Surfaces = append(i.Surfaces, surface)
	return surface, nil
}

func (i *Instance) Destroy() { i.Destroyed = true }

// Surface reports the framebuffer size of its window, or a fixed size when it
// was built with NewSurface.
type Surface struct {
	Destroyed bool

	mu     sync.Mutex
	window renderer.Window
	size   renderer.Extent
}

func NewSurface(width, height uint32) *Surface {
	return &Surface{size: renderer.Extent{Width: width, Height: height}}
}

func (s *Surface) SetSize(width, height uint32) {
	s.mu.Lock()
	s.size = renderer.Extent{Width: width, Height: height}
	s.window = nil
	s.mu.Unlock()
}

func (s *Surface) FramebufferSize() renderer.Extent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.window != nil {
		return s.window.FramebufferSize()
	}
	return s.size
}

func (s *Surface) Destroy() { s.Destroyed = true }
