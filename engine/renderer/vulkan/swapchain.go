package vulkan

import (
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
)

var errForeignSwapchain = errors.New("swapchain was not created by the vulkan backend")

type VulkanSwapchain struct {
	device  *VulkanDevice
	surface *VulkanSurface
	Handle  vk.Swapchain
	info    renderer.SwapchainCreateInfo
	Images  []*VulkanSwapchainImage
}

// VulkanSwapchainImage is a presentable image and its color view. The image
// itself is owned by the swapchain.
type VulkanSwapchainImage struct {
	Handle vk.Image
	View   vk.ImageView
	extent renderer.Extent
	format renderer.Format
}

func (i *VulkanSwapchainImage) Extent() renderer.Extent { return i.extent }

func (i *VulkanSwapchainImage) Format() renderer.Format { return i.format }

func newVulkanSwapchain(device *VulkanDevice, surface *VulkanSurface, info renderer.SwapchainCreateInfo, old vk.Swapchain) (*VulkanSwapchain, error) {
	caps, err := device.physical.surfaceCapabilities(surface)
	if err != nil {
		return nil, err
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface.Handle,
		MinImageCount:    info.MinImageCount,
		ImageFormat:      vk.Format(info.ImageFormat.Format),
		ImageColorSpace:  vk.ColorSpace(info.ImageFormat.ColorSpace),
		ImageExtent:      fromExtent(info.ImageExtent),
		ImageArrayLayers: 1,
		ImageUsage:       fromImageUsage(info.ImageUsage),
		// A single queue family draws and presents.
		ImageSharingMode:      vk.SharingModeExclusive,
		QueueFamilyIndexCount: 0,
		PQueueFamilyIndices:   nil,
		PreTransform:          caps.CurrentTransform,
		CompositeAlpha:        fromCompositeAlpha(info.CompositeAlpha),
		PresentMode:           fromPresentMode(info.PresentMode),
		Clipped:               vk.True,
		OldSwapchain:          old,
	}

	swapchain := &VulkanSwapchain{
		device:  device,
		surface: surface,
		info:    info,
	}
	err = device.context.locks.SafeCall(SwapchainManagement, func() error {
		return VulkanResultError(vk.CreateSwapchain(device.LogicalDevice, &swapchainCreateInfo, device.context.Allocator, &swapchain.Handle), "failed to create swapchain")
	})
	if err != nil {
		return nil, err
	}

	var imageCount uint32
	if res := vk.GetSwapchainImages(device.LogicalDevice, swapchain.Handle, &imageCount, nil); res != vk.Success {
		swapchain.Destroy()
		return nil, VulkanResultError(res, "failed to get swapchain images")
	}
	handles := make([]vk.Image, imageCount)
	if res := vk.GetSwapchainImages(device.LogicalDevice, swapchain.Handle, &imageCount, handles); res != vk.Success {
		swapchain.Destroy()
		return nil, VulkanResultError(res, "failed to get swapchain images")
	}

	// Views
	for _, handle := range handles[:imageCount] {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    handle,
			ViewType: vk.ImageViewType2d,
			Format:   vk.Format(info.ImageFormat.Format),
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
		image := &VulkanSwapchainImage{
			Handle: handle,
			extent: info.ImageExtent,
			format: info.ImageFormat.Format,
		}
		if res := vk.CreateImageView(device.LogicalDevice, &viewInfo, device.context.Allocator, &image.View); res != vk.Success {
			swapchain.Destroy()
			return nil, VulkanResultError(res, "failed to create image view")
		}
		swapchain.Images = append(swapchain.Images, image)
	}

	core.LogDebug("Swapchain handle created with %d images.", len(swapchain.Images))
	return swapchain, nil
}

func (vs *VulkanSwapchain) images() []renderer.Image {
	out := make([]renderer.Image, len(vs.Images))
	for i, img := range vs.Images {
		out[i] = img
	}
	return out
}

func (vs *VulkanSwapchain) CreateInfo() renderer.SwapchainCreateInfo { return vs.info }

// Recreate builds the replacement from the retiring chain, then destroys the
// retired one. The caller must make sure the device is idle.
func (vs *VulkanSwapchain) Recreate(info renderer.SwapchainCreateInfo) (renderer.Swapchain, []renderer.Image, error) {
	caps, err := vs.device.physical.surfaceCapabilities(vs.surface)
	if err != nil {
		return nil, nil, err
	}
	supported := renderer.SurfaceCapabilities{
		MinImageExtent: toExtent(caps.MinImageExtent),
		MaxImageExtent: toExtent(caps.MaxImageExtent),
	}
	if !supported.SupportsExtent(info.ImageExtent) {
		return nil, nil, errors.Wrapf(core.ErrImageExtentNotSupported, "extent %s outside [%s, %s]",
			info.ImageExtent, supported.MinImageExtent, supported.MaxImageExtent)
	}

	next, err := newVulkanSwapchain(vs.device, vs.surface, info, vs.Handle)
	if err != nil {
		return nil, nil, err
	}
	vs.Destroy()
	return next, next.images(), nil
}

func (vs *VulkanSwapchain) AcquireNextImage(timeout time.Duration) (renderer.AcquiredImage, error) {
	tracker := vs.device.tracker
	semaphore, err := tracker.newSemaphore()
	if err != nil {
		return renderer.AcquiredImage{}, err
	}

	var imageIndex uint32
	result := vk.AcquireNextImage(vs.device.LogicalDevice, vs.Handle, timeoutNanos(timeout), semaphore, vk.NullFence, &imageIndex)
	switch result {
	case vk.Success, vk.Suboptimal:
		return renderer.AcquiredImage{
			Index:      imageIndex,
			Suboptimal: result == vk.Suboptimal,
			Future: &VulkanFuture{
				device:     vs.device,
				semaphores: []vk.Semaphore{semaphore},
			},
		}, nil
	default:
		// Nothing was signaled, so the semaphore can go right away.
		tracker.discard(semaphore)
		return renderer.AcquiredImage{}, VulkanResultError(result, "failed to acquire swapchain image")
	}
}

func (vs *VulkanSwapchain) Destroy() {
	// Only destroy the views, not the images, since those are owned by the
	// swapchain and are thus destroyed when it is.
	for _, image := range vs.Images {
		if image.View != vk.NullImageView {
			vk.DestroyImageView(vs.device.LogicalDevice, image.View, vs.device.context.Allocator)
			image.View = vk.NullImageView
		}
	}
	vs.Images = nil
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(vs.device.LogicalDevice, vs.Handle, vs.device.context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}
