package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spaghettifunk/ember/engine/core"
	"golang.org/x/exp/constraints"
)

type SwapchainOptions struct {
	// PresentMode is used when the surface supports it, FIFO otherwise.
	PresentMode PresentMode
}

// SwapchainState owns the presentable chain together with its images. The two
// are only ever replaced together.
type SwapchainState struct {
	device     Device
	surface    Surface
	swapchain  Swapchain
	images     []Image
	info       SwapchainCreateInfo
	generation uint64
	id         uuid.UUID
}

// CreateSwapchain builds the first chain for the surface at the window's
// current size.
func CreateSwapchain(device Device, surface Surface, options SwapchainOptions) (*SwapchainState, error) {
	physical := device.PhysicalDevice()

	caps, err := physical.SurfaceCapabilities(surface)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to get surface capabilities"), core.ErrSurfaceQuery)
	}
	formats, err := physical.SurfaceFormats(surface)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to get surface formats"), core.ErrSurfaceQuery)
	}
	if len(formats) == 0 {
		return nil, errors.Wrap(core.ErrSurfaceQuery, "surface reports no formats")
	}
	alpha := caps.SupportedCompositeAlpha.First()
	if alpha == 0 {
		return nil, errors.Wrap(core.ErrSurfaceQuery, "surface reports no composite alpha mode")
	}

	presentMode := PresentModeFIFO
	if options.PresentMode != PresentModeFIFO {
		modes, err := physical.SurfacePresentModes(surface)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "failed to get surface present modes"), core.ErrSurfaceQuery)
		}
		for _, mode := range modes {
			if mode == options.PresentMode {
				presentMode = mode
				break
			}
		}
	}

	// There is no older chain to fall back to, so clamp into what the surface allows.
	extent := surface.FramebufferSize()
	extent.Width = Clamp(extent.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
	extent.Height = Clamp(extent.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height)

	info := SwapchainCreateInfo{
		MinImageCount:  caps.MinImageCount,
		ImageFormat:    formats[0],
		ImageExtent:    extent,
		ImageUsage:     caps.SupportedUsage,
		CompositeAlpha: alpha,
		PresentMode:    presentMode,
	}

	swapchain, images, err := device.CreateSwapchain(surface, info)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "impossible to create the swapchain"), core.ErrSwapchainCreation)
	}

	s := &SwapchainState{
		device:     device,
		surface:    surface,
		swapchain:  swapchain,
		images:     images,
		info:       info,
		generation: 1,
		id:         uuid.New(),
	}
	core.LogInfo("Swapchain created: %s, %d images, present mode %s.", extent, len(images), presentMode)
	return s, nil
}

// Recreate rebuilds the chain at the window's current size. It reports false
// without an error when the surface cannot take that size right now; the
// current chain is left as it was and the caller should retry later.
func (s *SwapchainState) Recreate() (bool, error) {
	info := s.swapchain.CreateInfo()
	info.ImageExtent = s.surface.FramebufferSize()

	swapchain, images, err := s.swapchain.Recreate(info)
	if errors.Is(err, core.ErrImageExtentNotSupported) {
		core.LogDebug("Swapchain recreation skipped, extent %s not supported.", info.ImageExtent)
		return false, nil
	}
	if err != nil {
		return false, errors.Mark(errors.Wrap(err, "failed to recreate swapchain"), core.ErrSwapchainCreation)
	}

	s.swapchain, s.images, s.info = swapchain, images, info
	s.generation++
	s.id = uuid.New()
	core.LogInfo("Swapchain recreated: %s, %d images.", info.ImageExtent, len(images))
	return true, nil
}

func (s *SwapchainState) Swapchain() Swapchain { return s.swapchain }

func (s *SwapchainState) Images() []Image { return s.images }

func (s *SwapchainState) CreateInfo() SwapchainCreateInfo { return s.info }

// Extent is the size of the current images.
func (s *SwapchainState) Extent() Extent {
	if len(s.images) == 0 {
		return s.info.ImageExtent
	}
	return s.images[0].Extent()
}

func (s *SwapchainState) Format() Format { return s.info.ImageFormat.Format }

// Generation counts how many chains have been built, starting at 1.
func (s *SwapchainState) Generation() uint64 { return s.generation }

// ID identifies the current chain and image set.
func (s *SwapchainState) ID() uuid.UUID { return s.id }

func (s *SwapchainState) Destroy() {
	if s.swapchain != nil {
		s.swapchain.Destroy()
		s.swapchain = nil
	}
	s.images = nil
}

func Clamp[T constraints.Ordered](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
