package vulkan

import (
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer"
)

// VulkanRenderpass has a single color attachment that is cleared on load and
// left ready for presentation.
type VulkanRenderpass struct {
	device *VulkanDevice
	Handle vk.RenderPass
	format renderer.Format
}

func (d *VulkanDevice) CreateRenderPass(info renderer.RenderPassCreateInfo) (renderer.RenderPass, error) {
	return RenderpassCreate(d, info.ColorFormat)
}

func RenderpassCreate(device *VulkanDevice, format renderer.Format) (*VulkanRenderpass, error) {
	colorAttachment := vk.AttachmentDescription{
		Format:         vk.Format(format),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,  // Do not expect any particular layout before render pass starts.
		FinalLayout:    vk.ImageLayoutPresentSrc, // Transitioned to after the render pass
	}

	colorAttachmentReference := []vk.AttachmentReference{{
		Attachment: 0, // Attachment description array index
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachmentReference,
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	renderpass := &VulkanRenderpass{device: device, format: format}
	if res := vk.CreateRenderPass(device.LogicalDevice, &renderpassCreateInfo, device.context.Allocator, &renderpass.Handle); res != vk.Success {
		return nil, VulkanResultError(res, "failed to create render pass")
	}
	return renderpass, nil
}

func (vr *VulkanRenderpass) Format() renderer.Format { return vr.format }

func (vr *VulkanRenderpass) Destroy() {
	if vr.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(vr.device.LogicalDevice, vr.Handle, vr.device.context.Allocator)
		vr.Handle = vk.NullRenderPass
	}
}

func (vr *VulkanRenderpass) RenderpassBegin(commandBuffer *VulkanCommandBuffer, framebuffer *VulkanFramebuffer, color mgl32.Vec4) {
	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(color[:])

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: framebuffer.Handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: fromExtent(framebuffer.extent),
		},
		ClearValueCount: 1,
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}
