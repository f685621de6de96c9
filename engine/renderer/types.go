package renderer

import (
	"fmt"
	"math/bits"

	"github.com/go-gl/mathgl/mgl32"
)

// Extent is a size in pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

// IsZero reports whether either dimension is zero, which is the case for a
// minimized window.
func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

func (e Extent) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// DeviceType follows the numbering of VkPhysicalDeviceType.
type DeviceType uint8

const (
	DeviceTypeOther DeviceType = iota
	DeviceTypeIntegratedGPU
	DeviceTypeDiscreteGPU
	DeviceTypeVirtualGPU
	DeviceTypeCPU
)

// Rank orders device classes by preference, lower is better.
func (t DeviceType) Rank() int {
	switch t {
	case DeviceTypeDiscreteGPU:
		return 0
	case DeviceTypeIntegratedGPU:
		return 1
	case DeviceTypeVirtualGPU:
		return 2
	case DeviceTypeCPU:
		return 3
	case DeviceTypeOther:
		return 4
	default:
		return 5
	}
}

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeDiscreteGPU:
		return "Discrete"
	case DeviceTypeIntegratedGPU:
		return "Integrated"
	case DeviceTypeVirtualGPU:
		return "Virtual"
	case DeviceTypeCPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

// Version is a packed API version using the Vulkan encoding.
type Version uint32

func MakeVersion(major, minor, patch uint32) Version {
	return Version(major<<22 | minor<<12 | patch)
}

func (v Version) Major() uint32 { return uint32(v) >> 22 }
func (v Version) Minor() uint32 { return (uint32(v) >> 12) & 0x3ff }
func (v Version) Patch() uint32 { return uint32(v) & 0xfff }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}

type PhysicalDeviceProperties struct {
	Name          string
	Type          DeviceType
	APIVersion    Version
	DriverVersion Version
	VendorID      uint32
	DeviceID      uint32
}

type QueueFlags uint32

const (
	QueueGraphics QueueFlags = 1 << iota
	QueueCompute
	QueueTransfer
)

type QueueFamilyProperties struct {
	Flags      QueueFlags
	QueueCount uint32
}

// Format and ColorSpace carry the backend's native enumeration values.
type Format uint32
type ColorSpace uint32

type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

type ImageUsage uint32

const (
	ImageUsageTransferSrc ImageUsage = 1 << iota
	ImageUsageTransferDst
	ImageUsageSampled
	ImageUsageStorage
	ImageUsageColorAttachment
)

type CompositeAlpha uint32

const (
	CompositeAlphaOpaque CompositeAlpha = 1 << iota
	CompositeAlphaPreMultiplied
	CompositeAlphaPostMultiplied
	CompositeAlphaInherit
)

// First returns the lowest supported mode, or 0 when the set is empty.
func (a CompositeAlpha) First() CompositeAlpha {
	if a == 0 {
		return 0
	}
	return CompositeAlpha(1) << bits.TrailingZeros32(uint32(a))
}

type PresentMode uint32

const (
	PresentModeImmediate PresentMode = iota
	PresentModeMailbox
	PresentModeFIFO
	PresentModeFIFORelaxed
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeImmediate:
		return "immediate"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeFIFO:
		return "fifo"
	case PresentModeFIFORelaxed:
		return "fifo_relaxed"
	default:
		return fmt.Sprintf("present_mode(%d)", uint32(m))
	}
}

type SurfaceCapabilities struct {
	MinImageCount           uint32
	MaxImageCount           uint32
	CurrentExtent           Extent
	MinImageExtent          Extent
	MaxImageExtent          Extent
	SupportedUsage          ImageUsage
	SupportedCompositeAlpha CompositeAlpha
}

// SupportsExtent reports whether a swapchain of the given size can be built.
func (c SurfaceCapabilities) SupportsExtent(e Extent) bool {
	if e.IsZero() {
		return false
	}
	return e.Width >= c.MinImageExtent.Width && e.Width <= c.MaxImageExtent.Width &&
		e.Height >= c.MinImageExtent.Height && e.Height <= c.MaxImageExtent.Height
}

type SwapchainCreateInfo struct {
	MinImageCount  uint32
	ImageFormat    SurfaceFormat
	ImageExtent    Extent
	ImageUsage     ImageUsage
	CompositeAlpha CompositeAlpha
	PresentMode    PresentMode
}

type InstanceCreateInfo struct {
	ApplicationName    string
	ApplicationVersion Version
	EngineName         string
	MaxAPIVersion      Version
	Extensions         []string
	Validation         bool
}

type DeviceCreateInfo struct {
	Extensions       []string
	QueueFamilyIndex uint32
}

type RenderPassCreateInfo struct {
	ColorFormat Format
}

// Viewport is the render target rectangle derived from the swapchain extent.
type Viewport struct {
	Origin     mgl32.Vec2
	Dimensions mgl32.Vec2
	MinDepth   float32
	MaxDepth   float32
}

func NewViewport() Viewport {
	return Viewport{MinDepth: 0, MaxDepth: 1}
}
