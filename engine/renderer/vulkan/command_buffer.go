package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

// VulkanCommandPool hands out one-time-submit primary command buffers. They
// are freed by the submission tracker once their work completes.
type VulkanCommandPool struct {
	device      *VulkanDevice
	Handle      vk.CommandPool
	familyIndex uint32
}

func NewVulkanCommandPool(device *VulkanDevice, queueFamilyIndex uint32) (*VulkanCommandPool, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueFamilyIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
	}
	pool := &VulkanCommandPool{device: device, familyIndex: queueFamilyIndex}
	if res := vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, device.context.Allocator, &pool.Handle); res != vk.Success {
		return nil, VulkanResultError(res, "failed to create command pool")
	}
	core.LogInfo("Graphics command pool created.")
	return pool, nil
}

func (p *VulkanCommandPool) Allocate() (renderer.CommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(p, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		cb.Free()
		return nil, err
	}
	return cb, nil
}

func (p *VulkanCommandPool) Destroy() {
	if p.Handle != vk.NullCommandPool {
		core.LogInfo("Destroying command pools...")
		vk.DestroyCommandPool(p.device.LogicalDevice, p.Handle, p.device.context.Allocator)
		p.Handle = vk.NullCommandPool
	}
}

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState

	pool   *VulkanCommandPool
	extent renderer.Extent
}

func NewVulkanCommandBuffer(pool *VulkanCommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	vCommandBuffer := &VulkanCommandBuffer{
		State: COMMAND_BUFFER_STATE_NOT_ALLOCATED,
		pool:  pool,
	}

	level := vk.CommandBufferLevelSecondary
	if isPrimary {
		level = vk.CommandBufferLevelPrimary
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool.Handle,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(pool.device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
		return nil, VulkanResultError(res, "failed to allocate command buffer")
	}
	vCommandBuffer.Handle = handles[0]
	vCommandBuffer.State = COMMAND_BUFFER_STATE_READY

	return vCommandBuffer, nil
}

func (v *VulkanCommandBuffer) Free() {
	if v.Handle == nil {
		return
	}
	vk.FreeCommandBuffers(v.pool.device.LogicalDevice, v.pool.Handle, 1, []vk.CommandBuffer{v.Handle})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if res := vk.BeginCommandBuffer(v.Handle, beginInfo); res != vk.Success {
		return VulkanResultError(res, "failed to begin command buffer")
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) BeginRenderPass(framebuffer renderer.Framebuffer, clearColor mgl32.Vec4) error {
	fb, ok := framebuffer.(*VulkanFramebuffer)
	if !ok {
		return errors.Newf("framebuffer %T was not created by the vulkan backend", framebuffer)
	}
	if v.State != COMMAND_BUFFER_STATE_RECORDING {
		return errors.Newf("cannot begin a render pass in command buffer state %d", v.State)
	}
	fb.Renderpass.RenderpassBegin(v, fb, clearColor)
	v.extent = fb.extent
	return nil
}

// SetViewport sets the dynamic viewport and a scissor covering the target.
func (v *VulkanCommandBuffer) SetViewport(viewport renderer.Viewport) {
	vk.CmdSetViewport(v.Handle, 0, 1, []vk.Viewport{{
		X:        viewport.Origin.X(),
		Y:        viewport.Origin.Y(),
		Width:    viewport.Dimensions.X(),
		Height:   viewport.Dimensions.Y(),
		MinDepth: viewport.MinDepth,
		MaxDepth: viewport.MaxDepth,
	}})
	vk.CmdSetScissor(v.Handle, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: fromExtent(v.extent),
	}})
}

func (v *VulkanCommandBuffer) EndRenderPass() error {
	if v.State != COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		return errors.New("no render pass in progress")
	}
	vk.CmdEndRenderPass(v.Handle)
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		return VulkanResultError(res, "failed to end command buffer")
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}
