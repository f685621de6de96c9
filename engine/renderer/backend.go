package renderer

import (
	"time"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Backend is the entry point of a native graphics API binding.
type Backend interface {
	CreateInstance(info InstanceCreateInfo) (Instance, error)
}

// Window is what a surface needs from the platform window.
type Window interface {
	FramebufferSize() Extent
	RequiredInstanceExtensions() []string
	CreateWindowSurface(instance interface{}, allocator unsafe.Pointer) (uintptr, error)
}

type Instance interface {
	EnumeratePhysicalDevices() ([]PhysicalDevice, error)
	CreateSurface(window Window) (Surface, error)
	Destroy()
}

// Surface binds a window to the presentation engine.
type Surface interface {
	// FramebufferSize is the current pixel size of the window behind the surface.
	FramebufferSize() Extent
	Destroy()
}

type PhysicalDevice interface {
	Properties() PhysicalDeviceProperties
	SupportedExtensions() ([]string, error)
	QueueFamilyProperties() []QueueFamilyProperties
	SurfaceSupport(queueFamilyIndex uint32, surface Surface) (bool, error)
	SurfaceCapabilities(surface Surface) (SurfaceCapabilities, error)
	SurfaceFormats(surface Surface) ([]SurfaceFormat, error)
	SurfacePresentModes(surface Surface) ([]PresentMode, error)
	CreateDevice(info DeviceCreateInfo) (Device, Queue, error)
}

type Device interface {
	PhysicalDevice() PhysicalDevice
	CreateSwapchain(surface Surface, info SwapchainCreateInfo) (Swapchain, []Image, error)
	CreateRenderPass(info RenderPassCreateInfo) (RenderPass, error)
	CreateFramebuffer(pass RenderPass, image Image) (Framebuffer, error)
	CreateCommandBufferAllocator(queueFamilyIndex uint32) (CommandBufferAllocator, error)
	// Now returns a completion token that is already complete.
	Now() Future
	WaitIdle() error
	Destroy()
}

type Queue interface {
	FamilyIndex() uint32
	// Submit executes the command buffer once everything after depends on has
	// completed. The returned future completes with the submitted work.
	Submit(after Future, commands CommandBuffer) (Future, error)
	// Present queues the image for display once after completes. An error
	// matching core.ErrOutOfDate means the chain must be recreated.
	Present(after Future, swapchain Swapchain, imageIndex uint32) (Future, error)
}

type Swapchain interface {
	CreateInfo() SwapchainCreateInfo
	// Recreate builds a replacement chain. On success the receiver is retired
	// and destroyed. An error matching core.ErrImageExtentNotSupported leaves
	// the receiver untouched.
	Recreate(info SwapchainCreateInfo) (Swapchain, []Image, error)
	// AcquireNextImage blocks until an image is available. An error matching
	// core.ErrOutOfDate means the chain must be recreated.
	AcquireNextImage(timeout time.Duration) (AcquiredImage, error)
	Destroy()
}

type AcquiredImage struct {
	Index      uint32
	Suboptimal bool
	// Future completes once the presentation engine released the image.
	Future Future
}

type Image interface {
	Extent() Extent
	Format() Format
}

type RenderPass interface {
	Format() Format
	Destroy()
}

type Framebuffer interface {
	Extent() Extent
	Destroy()
}

type CommandBufferAllocator interface {
	Allocate() (CommandBuffer, error)
	Destroy()
}

type CommandBuffer interface {
	BeginRenderPass(framebuffer Framebuffer, clearColor mgl32.Vec4) error
	SetViewport(viewport Viewport)
	EndRenderPass() error
	End() error
	// Free returns a command buffer that was never submitted.
	Free()
}

// Future is a completion token for GPU work.
type Future interface {
	// CleanupFinished releases resources of work known to be complete. It
	// never blocks.
	CleanupFinished()
	// Join returns a future that completes when both complete.
	Join(other Future) Future
	IsReady() bool
	Wait(timeout time.Duration) error
}
