package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
)

// VulkanContext is the created instance and the state shared by every object
// derived from it.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks

	// Only set when validation is enabled.
	debugMessenger vk.DebugReportCallback

	locks *VulkanLockPool
}

func (vc *VulkanContext) EnumeratePhysicalDevices() ([]renderer.PhysicalDevice, error) {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(vc.Instance, &count, nil); res != vk.Success {
		return nil, VulkanResultError(res, "failed to enumerate physical devices")
	}
	if count == 0 {
		return nil, nil
	}
	handles := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(vc.Instance, &count, handles); res != vk.Success {
		return nil, VulkanResultError(res, "failed to enumerate physical devices")
	}

	devices := make([]renderer.PhysicalDevice, 0, count)
	for _, handle := range handles[:count] {
		devices = append(devices, newVulkanPhysicalDevice(vc, handle))
	}
	return devices, nil
}

func (vc *VulkanContext) CreateSurface(window renderer.Window) (renderer.Surface, error) {
	core.LogDebug("Creating Vulkan surface...")
	handle, err := window.CreateWindowSurface(vc.Instance, nil)
	if err != nil {
		return nil, errors.Wrap(err, "vulkan surface creation failed")
	}
	if handle == 0 {
		return nil, errors.New("failed to create platform surface")
	}
	core.LogDebug("Vulkan surface created.")
	return &VulkanSurface{
		context: vc,
		Handle:  vk.SurfaceFromPointer(handle),
		window:  window,
	}, nil
}

func (vc *VulkanContext) Destroy() {
	if vc.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugMessenger, vc.Allocator)
		vc.debugMessenger = vk.NullDebugReportCallback
	}
	if vc.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}

type VulkanSurface struct {
	context *VulkanContext
	Handle  vk.Surface
	window  renderer.Window
}

func (vs *VulkanSurface) FramebufferSize() renderer.Extent {
	return vs.window.FramebufferSize()
}

func (vs *VulkanSurface) Destroy() {
	if vs.Handle != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(vs.context.Instance, vs.Handle, vs.context.Allocator)
		vs.Handle = vk.NullSurface
	}
}

func asVulkanSurface(surface renderer.Surface) (*VulkanSurface, error) {
	vs, ok := surface.(*VulkanSurface)
	if !ok {
		return nil, errors.Newf("surface %T was not created by the vulkan backend", surface)
	}
	return vs, nil
}
