package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer"
)

type VulkanFramebuffer struct {
	device      *VulkanDevice
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
	extent      renderer.Extent
}

func (d *VulkanDevice) CreateFramebuffer(pass renderer.RenderPass, image renderer.Image) (renderer.Framebuffer, error) {
	renderpass, ok := pass.(*VulkanRenderpass)
	if !ok {
		return nil, errors.Newf("render pass %T was not created by the vulkan backend", pass)
	}
	target, ok := image.(*VulkanSwapchainImage)
	if !ok {
		return nil, errors.Newf("image %T is not a swapchain image", image)
	}
	return FramebufferCreate(d, renderpass, target.extent, []vk.ImageView{target.View})
}

func FramebufferCreate(device *VulkanDevice, renderpass *VulkanRenderpass, extent renderer.Extent, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	outFramebuffer := &VulkanFramebuffer{
		device:      device,
		Attachments: append([]vk.ImageView{}, attachments...),
		Renderpass:  renderpass,
		extent:      extent,
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(outFramebuffer.Attachments)),
		PAttachments:    outFramebuffer.Attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	if res := vk.CreateFramebuffer(device.LogicalDevice, &framebufferCreateInfo, device.context.Allocator, &outFramebuffer.Handle); res != vk.Success {
		return nil, VulkanResultError(res, "failed to create framebuffer")
	}
	return outFramebuffer, nil
}

func (vfb *VulkanFramebuffer) Extent() renderer.Extent { return vfb.extent }

func (vfb *VulkanFramebuffer) Destroy() {
	if vfb.Handle != vk.NullFramebuffer {
		vk.DestroyFramebuffer(vfb.device.LogicalDevice, vfb.Handle, vfb.device.context.Allocator)
		vfb.Handle = vk.NullFramebuffer
	}
	vfb.Attachments = nil
	vfb.Renderpass = nil
}
