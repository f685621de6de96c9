package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
)

const portabilitySubsetExtension = "VK_KHR_portability_subset"

type VulkanPhysicalDevice struct {
	context    *VulkanContext
	Handle     vk.PhysicalDevice
	properties vk.PhysicalDeviceProperties
	Memory     vk.PhysicalDeviceMemoryProperties
}

func newVulkanPhysicalDevice(context *VulkanContext, handle vk.PhysicalDevice) *VulkanPhysicalDevice {
	pd := &VulkanPhysicalDevice{context: context, Handle: handle}
	vk.GetPhysicalDeviceProperties(handle, &pd.properties)
	pd.properties.Deref()
	vk.GetPhysicalDeviceMemoryProperties(handle, &pd.Memory)
	pd.Memory.Deref()
	return pd
}

func (pd *VulkanPhysicalDevice) Properties() renderer.PhysicalDeviceProperties {
	return renderer.PhysicalDeviceProperties{
		Name:          vk.ToString(pd.properties.DeviceName[:]),
		Type:          toDeviceType(pd.properties.DeviceType),
		APIVersion:    renderer.Version(pd.properties.ApiVersion),
		DriverVersion: renderer.Version(pd.properties.DriverVersion),
		VendorID:      pd.properties.VendorID,
		DeviceID:      pd.properties.DeviceID,
	}
}

func (pd *VulkanPhysicalDevice) SupportedExtensions() ([]string, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(pd.Handle, "", &count, nil); res != vk.Success {
		return nil, VulkanResultError(res, "error in EnumerateDeviceExtensionProperties")
	}
	if count == 0 {
		return nil, nil
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(pd.Handle, "", &count, available); res != vk.Success {
		return nil, VulkanResultError(res, "error in EnumerateDeviceExtensionProperties")
	}
	names := make([]string, 0, count)
	for i := range available[:count] {
		available[i].Deref()
		names = append(names, vk.ToString(available[i].ExtensionName[:]))
	}
	return names, nil
}

func (pd *VulkanPhysicalDevice) QueueFamilyProperties() []renderer.QueueFamilyProperties {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd.Handle, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd.Handle, &count, families)

	out := make([]renderer.QueueFamilyProperties, 0, count)
	for i := range families[:count] {
		families[i].Deref()
		out = append(out, renderer.QueueFamilyProperties{
			Flags:      toQueueFlags(families[i].QueueFlags),
			QueueCount: families[i].QueueCount,
		})
	}
	return out
}

func (pd *VulkanPhysicalDevice) SurfaceSupport(queueFamilyIndex uint32, surface renderer.Surface) (bool, error) {
	vs, err := asVulkanSurface(surface)
	if err != nil {
		return false, err
	}
	var supported vk.Bool32 = vk.False
	if res := vk.GetPhysicalDeviceSurfaceSupport(pd.Handle, queueFamilyIndex, vs.Handle, &supported); res != vk.Success {
		return false, VulkanResultError(res, "failed to query surface support")
	}
	return supported == vk.True, nil
}

func (pd *VulkanPhysicalDevice) surfaceCapabilities(surface *VulkanSurface) (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(pd.Handle, surface.Handle, &caps); res != vk.Success {
		return caps, VulkanResultError(res, "failed to get surface capabilities")
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

func (pd *VulkanPhysicalDevice) SurfaceCapabilities(surface renderer.Surface) (renderer.SurfaceCapabilities, error) {
	vs, err := asVulkanSurface(surface)
	if err != nil {
		return renderer.SurfaceCapabilities{}, err
	}
	caps, err := pd.surfaceCapabilities(vs)
	if err != nil {
		return renderer.SurfaceCapabilities{}, err
	}
	return renderer.SurfaceCapabilities{
		MinImageCount:           caps.MinImageCount,
		MaxImageCount:           caps.MaxImageCount,
		CurrentExtent:           toExtent(caps.CurrentExtent),
		MinImageExtent:          toExtent(caps.MinImageExtent),
		MaxImageExtent:          toExtent(caps.MaxImageExtent),
		SupportedUsage:          toImageUsage(caps.SupportedUsageFlags),
		SupportedCompositeAlpha: toCompositeAlpha(caps.SupportedCompositeAlpha),
	}, nil
}

func (pd *VulkanPhysicalDevice) SurfaceFormats(surface renderer.Surface) ([]renderer.SurfaceFormat, error) {
	vs, err := asVulkanSurface(surface)
	if err != nil {
		return nil, err
	}
	var count uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(pd.Handle, vs.Handle, &count, nil); res != vk.Success {
		return nil, VulkanResultError(res, "failed to get surface formats")
	}
	if count == 0 {
		return nil, nil
	}
	formats := make([]vk.SurfaceFormat, count)
	if res := vk.GetPhysicalDeviceSurfaceFormats(pd.Handle, vs.Handle, &count, formats); res != vk.Success {
		return nil, VulkanResultError(res, "failed to get surface formats")
	}
	out := make([]renderer.SurfaceFormat, 0, count)
	for i := range formats[:count] {
		formats[i].Deref()
		out = append(out, renderer.SurfaceFormat{
			Format:     renderer.Format(formats[i].Format),
			ColorSpace: renderer.ColorSpace(formats[i].ColorSpace),
		})
	}
	return out, nil
}

func (pd *VulkanPhysicalDevice) SurfacePresentModes(surface renderer.Surface) ([]renderer.PresentMode, error) {
	vs, err := asVulkanSurface(surface)
	if err != nil {
		return nil, err
	}
	var count uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(pd.Handle, vs.Handle, &count, nil); res != vk.Success {
		return nil, VulkanResultError(res, "failed to get physical device surface present modes")
	}
	if count == 0 {
		return nil, nil
	}
	modes := make([]vk.PresentMode, count)
	if res := vk.GetPhysicalDeviceSurfacePresentModes(pd.Handle, vs.Handle, &count, modes); res != vk.Success {
		return nil, VulkanResultError(res, "failed to get physical device surface present modes")
	}
	out := make([]renderer.PresentMode, 0, count)
	for _, mode := range modes[:count] {
		out = append(out, toPresentMode(mode))
	}
	return out, nil
}

// CreateDevice creates a logical device with a single queue from the given
// family. VK_KHR_portability_subset is enabled whenever the device exposes it.
func (pd *VulkanPhysicalDevice) CreateDevice(info renderer.DeviceCreateInfo) (renderer.Device, renderer.Queue, error) {
	extensions := append([]string{}, info.Extensions...)
	if available, err := pd.SupportedExtensions(); err == nil {
		for _, name := range available {
			if name == portabilitySubsetExtension {
				core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtension)
				extensions = append(extensions, portabilitySubsetExtension)
				break
			}
		}
	}

	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: info.QueueFamilyIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
		// Deprecated and ignored, so pass nothing.
		EnabledLayerCount:   0,
		PpEnabledLayerNames: nil,
	}

	device := &VulkanDevice{
		context:  pd.context,
		physical: pd,
	}
	if res := vk.CreateDevice(pd.Handle, &deviceCreateInfo, pd.context.Allocator, &device.LogicalDevice); res != vk.Success {
		return nil, nil, VulkanResultError(res, "failed to create logical device")
	}
	device.tracker = newSubmissionTracker(device, pd.context.locks)

	queue := &VulkanQueue{device: device, familyIndex: info.QueueFamilyIndex}
	vk.GetDeviceQueue(device.LogicalDevice, info.QueueFamilyIndex, 0, &queue.Handle)
	pd.context.locks.SetQueueFamily(info.QueueFamilyIndex)
	core.LogInfo("Queues obtained.")

	return device, queue, nil
}

type VulkanDevice struct {
	context       *VulkanContext
	physical      *VulkanPhysicalDevice
	LogicalDevice vk.Device
	tracker       *submissionTracker
}

func (d *VulkanDevice) PhysicalDevice() renderer.PhysicalDevice { return d.physical }

func (d *VulkanDevice) CreateSwapchain(surface renderer.Surface, info renderer.SwapchainCreateInfo) (renderer.Swapchain, []renderer.Image, error) {
	vs, err := asVulkanSurface(surface)
	if err != nil {
		return nil, nil, err
	}
	sc, err := newVulkanSwapchain(d, vs, info, vk.NullSwapchain)
	if err != nil {
		return nil, nil, err
	}
	return sc, sc.images(), nil
}

func (d *VulkanDevice) CreateCommandBufferAllocator(queueFamilyIndex uint32) (renderer.CommandBufferAllocator, error) {
	return NewVulkanCommandPool(d, queueFamilyIndex)
}

// Now returns a future with nothing to wait for.
func (d *VulkanDevice) Now() renderer.Future {
	return &VulkanFuture{device: d}
}

// WaitIdle blocks until the device finished all work and then releases every
// tracked submission.
func (d *VulkanDevice) WaitIdle() error {
	if res := vk.DeviceWaitIdle(d.LogicalDevice); res != vk.Success {
		return VulkanResultError(res, "vkDeviceWaitIdle failed")
	}
	d.tracker.releaseAll()
	return nil
}

func (d *VulkanDevice) Destroy() {
	if d.LogicalDevice == nil {
		return
	}
	vk.DeviceWaitIdle(d.LogicalDevice)
	d.tracker.releaseAll()

	core.LogInfo("Destroying logical device...")
	vk.DestroyDevice(d.LogicalDevice, d.context.Allocator)
	d.LogicalDevice = nil
	// Physical devices are not destroyed.
}

func (d *VulkanDevice) createSemaphore() (vk.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(d.LogicalDevice, &semaphoreCreateInfo, d.context.Allocator, &semaphore); res != vk.Success {
		return vk.NullSemaphore, VulkanResultError(res, "failed to create semaphore")
	}
	return semaphore, nil
}

func (d *VulkanDevice) destroySemaphore(semaphore vk.Semaphore) {
	if semaphore != vk.NullSemaphore {
		vk.DestroySemaphore(d.LogicalDevice, semaphore, d.context.Allocator)
	}
}

func (d *VulkanDevice) fenceSignaled(fence *VulkanFence) bool {
	return fence.FenceStatus(d)
}

func (d *VulkanDevice) destroyFence(fence *VulkanFence) {
	fence.FenceDestroy(d)
}

func (d *VulkanDevice) freeCommandBuffer(cb *VulkanCommandBuffer) {
	cb.Free()
}

func asVulkanDevice(device renderer.Device) (*VulkanDevice, error) {
	d, ok := device.(*VulkanDevice)
	if !ok {
		return nil, errors.Newf("device %T was not created by the vulkan backend", device)
	}
	return d, nil
}
