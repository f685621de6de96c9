package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// FramebufferSet holds one framebuffer per swapchain image.
type FramebufferSet struct {
	framebuffers []Framebuffer
	extent       Extent
	swapchainID  uuid.UUID
}

// BuildFramebuffers creates the framebuffers for the current swapchain images
// and resizes the viewport to match them.
func BuildFramebuffers(device Device, pass RenderPass, swapchain *SwapchainState, viewport *Viewport) (*FramebufferSet, error) {
	images := swapchain.Images()
	if len(images) == 0 {
		return nil, errors.New("swapchain has no images")
	}

	extent := images[0].Extent()
	viewport.Origin = mgl32.Vec2{0, 0}
	viewport.Dimensions = mgl32.Vec2{float32(extent.Width), float32(extent.Height)}

	set := &FramebufferSet{
		framebuffers: make([]Framebuffer, 0, len(images)),
		extent:       extent,
		swapchainID:  swapchain.ID(),
	}
	for i, image := range images {
		fb, err := device.CreateFramebuffer(pass, image)
		if err != nil {
			set.Destroy()
			return nil, errors.Wrapf(err, "failed to create framebuffer %d", i)
		}
		set.framebuffers = append(set.framebuffers, fb)
	}
	return set, nil
}

func (fs *FramebufferSet) Len() int { return len(fs.framebuffers) }

func (fs *FramebufferSet) At(index uint32) Framebuffer { return fs.framebuffers[index] }

func (fs *FramebufferSet) Extent() Extent { return fs.extent }

// SwapchainID is the identity of the swapchain the set was built for.
func (fs *FramebufferSet) SwapchainID() uuid.UUID { return fs.swapchainID }

func (fs *FramebufferSet) Destroy() {
	for _, fb := range fs.framebuffers {
		fb.Destroy()
	}
	fs.framebuffers = nil
}
