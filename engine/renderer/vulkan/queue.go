package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
)

type VulkanQueue struct {
	device      *VulkanDevice
	Handle      vk.Queue
	familyIndex uint32
}

func (q *VulkanQueue) FamilyIndex() uint32 { return q.familyIndex }

// Submit waits on the semaphores of after and signals a new semaphore and
// fence. The returned future also carries the fences of after that have not
// signaled yet.
func (q *VulkanQueue) Submit(after renderer.Future, commands renderer.CommandBuffer) (renderer.Future, error) {
	cb, ok := commands.(*VulkanCommandBuffer)
	if !ok {
		return nil, errForeignCommandBuffer
	}
	waitFor := asVulkanFuture(after)
	tracker := q.device.tracker

	signal, err := tracker.newSemaphore()
	if err != nil {
		cb.Free()
		return nil, err
	}
	fence, err := NewFence(q.device, false)
	if err != nil {
		tracker.discard(signal)
		cb.Free()
		return nil, err
	}

	// VK_PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT prevents colour attachment
	// writes from executing until the semaphores signal.
	waitStages := make([]vk.PipelineStageFlags, len(waitFor.semaphores))
	for i := range waitStages {
		waitStages[i] = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waitFor.semaphores)),
		PWaitSemaphores:      waitFor.semaphores,
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signal},
	}

	err = q.device.context.locks.SafeQueueCall(q.familyIndex, func() error {
		return VulkanResultError(vk.QueueSubmit(q.Handle, 1, []vk.SubmitInfo{submitInfo}, fence.Handle), "vkQueueSubmit failed")
	})
	if err != nil {
		core.LogError(err.Error())
		tracker.discard(signal)
		fence.FenceDestroy(q.device)
		cb.Free()
		return nil, err
	}
	cb.UpdateSubmitted()

	tracker.track(&submission{
		fence:          fence,
		commandBuffers: []*VulkanCommandBuffer{cb},
	}, waitFor.semaphores)

	return submittedFuture(q.device, waitFor, signal, fence), nil
}

// Present gives the image back to the swapchain once after completes. The
// returned future completes with the work after depended on.
func (q *VulkanQueue) Present(after renderer.Future, swapchain renderer.Swapchain, imageIndex uint32) (renderer.Future, error) {
	sc, ok := swapchain.(*VulkanSwapchain)
	if !ok {
		return nil, errForeignSwapchain
	}
	waitFor := asVulkanFuture(after)

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waitFor.semaphores)),
		PWaitSemaphores:    waitFor.semaphores,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	var result vk.Result
	q.device.context.locks.SafeQueueCall(q.familyIndex, func() error {
		result = vk.QueuePresent(q.Handle, &presentInfo)
		return nil
	})
	// The semaphores are consumed even when presentation fails.
	q.device.tracker.presentedWith(waitFor.semaphores)

	// Suboptimal still presented the image; the next acquire reports it.
	if result != vk.Success && result != vk.Suboptimal {
		return nil, VulkanResultError(result, "failed to present swap chain image")
	}
	return presentedFuture(q.device, waitFor), nil
}
