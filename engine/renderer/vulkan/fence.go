package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(device *VulkanDevice, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if res := vk.CreateFence(device.LogicalDevice, &fenceCreateInfo, device.context.Allocator, &pFence); res != vk.Success {
		return nil, VulkanResultError(res, "failed to create fence")
	}
	fence.Handle = pFence
	return fence, nil
}

// FenceDestroy releases the handle. A destroyed fence reports as signaled so
// futures still holding it never wait on a dead handle.
func (vf *VulkanFence) FenceDestroy(device *VulkanDevice) {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(device.LogicalDevice, vf.Handle, device.context.Allocator)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = true
}

// FenceStatus polls the fence without blocking.
func (vf *VulkanFence) FenceStatus(device *VulkanDevice) bool {
	if vf.IsSignaled {
		return true
	}
	if vk.GetFenceStatus(device.LogicalDevice, vf.Handle) == vk.Success {
		vf.IsSignaled = true
	}
	return vf.IsSignaled
}

func (vf *VulkanFence) FenceWait(device *VulkanDevice, timeoutNs uint64) error {
	if vf.IsSignaled {
		// If already signaled, do not wait.
		return nil
	}
	result := vk.WaitForFences(device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
	default:
		core.LogError("vk_fence_wait - %s", VulkanResultString(result, false))
	}
	return VulkanResultError(result, "fence wait failed")
}
