package rendertest

import (
	"github.com/spaghettifunk/ember/engine/renderer"
)

const (
	FormatB8G8R8A8Srgb   renderer.Format     = 50
	ColorSpaceSrgbLinear renderer.ColorSpace = 0
)

// PhysicalDevice is a scriptable adapter. Its fields may be changed between
// calls to model a device that changes its answers.
type PhysicalDevice struct {
	Props         renderer.PhysicalDeviceProperties
	Extensions    []string
	ExtensionsErr error
	QueueFamilies []renderer.QueueFamilyProperties
	// PresentFamilies lists the queue families that can present to any surface.
	PresentFamilies   []uint32
	SurfaceSupportErr error
	Caps              renderer.SurfaceCapabilities
	CapsErr           error
	Formats           []renderer.SurfaceFormat
	FormatsErr        error
	PresentModes      []renderer.PresentMode
	DeviceErr         error

	device *Device
}

// NewPhysicalDevice returns a device that qualifies for rendering: it exposes
// the swapchain extension and one graphics family that can present.
func NewPhysicalDevice(name string, deviceType renderer.DeviceType) *PhysicalDevice {
	return &PhysicalDevice{
		Props: renderer.PhysicalDeviceProperties{
			Name:          name,
			Type:          deviceType,
			APIVersion:    renderer.MakeVersion(1, 3, 0),
			DriverVersion: renderer.MakeVersion(1, 0, 0),
		},
		Extensions: []string{renderer.KhrSwapchainExtensionName},
		QueueFamilies: []renderer.QueueFamilyProperties{
			{Flags: renderer.QueueGraphics | renderer.QueueCompute | renderer.QueueTransfer, QueueCount: 1},
		},
		PresentFamilies: []uint32{0},
		Caps: renderer.SurfaceCapabilities{
			MinImageCount:           2,
			MaxImageCount:           8,
			MinImageExtent:          renderer.Extent{Width: 1, Height: 1},
			MaxImageExtent:          renderer.Extent{Width: 16384, Height: 16384},
			SupportedUsage:          renderer.ImageUsageColorAttachment | renderer.ImageUsageTransferDst,
			SupportedCompositeAlpha: renderer.CompositeAlphaOpaque,
		},
		Formats:      []renderer.SurfaceFormat{{Format: FormatB8G8R8A8Srgb, ColorSpace: ColorSpaceSrgbLinear}},
		PresentModes: []renderer.PresentMode{renderer.PresentModeFIFO, renderer.PresentModeMailbox},
	}
}

func (p *PhysicalDevice) Properties() renderer.PhysicalDeviceProperties { return p.Props }

func (p *PhysicalDevice) SupportedExtensions() ([]string, error) {
	return p.Extensions, p.ExtensionsErr
}

func (p *PhysicalDevice) QueueFamilyProperties() []renderer.QueueFamilyProperties {
	return p.QueueFamilies
}

func (p *PhysicalDevice) SurfaceSupport(queueFamilyIndex uint32, surface renderer.Surface) (bool, error) {
	if p.SurfaceSupportErr != nil {
		return false, p.SurfaceSupportErr
	}
	for _, idx := range p.PresentFamilies {
		if idx == queueFamilyIndex {
			return true, nil
		}
	}
	return false, nil
}

// SurfaceCapabilities reports Caps with CurrentExtent following the surface.
func (p *PhysicalDevice) SurfaceCapabilities(surface renderer.Surface) (renderer.SurfaceCapabilities, error) {
	if p.CapsErr != nil {
		return renderer.SurfaceCapabilities{}, p.CapsErr
	}
	caps := p.Caps
	caps.CurrentExtent = surface.FramebufferSize()
	return caps, nil
}

func (p *PhysicalDevice) SurfaceFormats(surface renderer.Surface) ([]renderer.SurfaceFormat, error) {
	return p.Formats, p.FormatsErr
}

func (p *PhysicalDevice) SurfacePresentModes(surface renderer.Surface) ([]renderer.PresentMode, error) {
	return p.PresentModes, nil
}

func (p *PhysicalDevice) CreateDevice(info renderer.DeviceCreateInfo) (renderer.Device, renderer.Queue, error) {
	if p.DeviceErr != nil {
		return nil, nil, p.DeviceErr
	}
	d := &Device{physical: p, Info: info}
	d.queue = &Queue{device: d, family: info.QueueFamilyIndex}
	p.device = d
	return d, d.queue, nil
}

// Device returns the logical device created from p, or nil.
func (p *PhysicalDevice) Device() *Device { return p.device }
