package vulkan

import (
	"math"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVulkanResultError(t *testing.T) {
	assert.NoError(t, VulkanResultError(vk.Success, "ok"))

	tests := []struct {
		result   vk.Result
		sentinel error
	}{
		{vk.ErrorOutOfDate, core.ErrOutOfDate},
		{vk.ErrorDeviceLost, core.ErrDeviceLost},
		{vk.Timeout, core.ErrTimeout},
		{vk.NotReady, core.ErrTimeout},
		{vk.ErrorSurfaceLost, core.ErrSurfaceQuery},
	}
	for _, tt := range tests {
		err := VulkanResultError(tt.result, "acquire")
		require.Error(t, err)
		assert.True(t, errors.Is(err, tt.sentinel), "%s should match %v", VulkanResultString(tt.result, false), tt.sentinel)
		assert.Contains(t, err.Error(), "acquire: ")
	}

	err := VulkanResultError(vk.ErrorOutOfHostMemory, "alloc")
	require.Error(t, err)
	assert.False(t, errors.Is(err, core.ErrOutOfDate))
	assert.False(t, errors.Is(err, core.ErrDeviceLost))
}

func TestVulkanResultIsSuccess(t *testing.T) {
	assert.True(t, VulkanResultIsSuccess(vk.Success))
	assert.True(t, VulkanResultIsSuccess(vk.Suboptimal))
	assert.False(t, VulkanResultIsSuccess(vk.ErrorOutOfDate))
	assert.False(t, VulkanResultIsSuccess(vk.Result(-12345)))
}

func TestVulkanResultStringUnknown(t *testing.T) {
	assert.Equal(t, "VkResult(-12345)", VulkanResultString(vk.Result(-12345), false))
}

func TestVulkanSafeStrings(t *testing.T) {
	assert.Equal(t, "\x00", VulkanSafeString(""))
	assert.Equal(t, "VK_KHR_surface\x00", VulkanSafeString("VK_KHR_surface"))
	assert.Equal(t, "already\x00", VulkanSafeString("already\x00"))

	in := []string{"a", "b"}
	out := VulkanSafeStrings(in)
	assert.Equal(t, []string{"a\x00", "b\x00"}, out)
	assert.Equal(t, []string{"a", "b"}, in)
}

func TestImageUsageRoundTrip(t *testing.T) {
	usage := renderer.ImageUsageColorAttachment | renderer.ImageUsageTransferDst
	flags := fromImageUsage(usage)
	assert.Equal(t, vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit|vk.ImageUsageTransferDstBit), flags)
	assert.Equal(t, usage, toImageUsage(flags))
}

func TestCompositeAlpha(t *testing.T) {
	supported := toCompositeAlpha(vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit | vk.CompositeAlphaInheritBit))
	assert.Equal(t, renderer.CompositeAlphaOpaque|renderer.CompositeAlphaInherit, supported)
	assert.Equal(t, vk.CompositeAlphaInheritBit, fromCompositeAlpha(renderer.CompositeAlphaInherit))
	assert.Equal(t, vk.CompositeAlphaOpaqueBit, fromCompositeAlpha(0))
}

func TestPresentModes(t *testing.T) {
	for _, mode := range []renderer.PresentMode{
		renderer.PresentModeImmediate,
		renderer.PresentModeMailbox,
		renderer.PresentModeFIFO,
		renderer.PresentModeFIFORelaxed,
	} {
		assert.Equal(t, mode, toPresentMode(fromPresentMode(mode)))
	}
}

func TestDeviceTypeAndQueueFlags(t *testing.T) {
	assert.Equal(t, renderer.DeviceTypeDiscreteGPU, toDeviceType(vk.PhysicalDeviceTypeDiscreteGpu))
	assert.Equal(t, renderer.DeviceTypeOther, toDeviceType(vk.PhysicalDeviceTypeOther))

	flags := toQueueFlags(vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueTransferBit))
	assert.Equal(t, renderer.QueueGraphics|renderer.QueueTransfer, flags)
}

func TestTimeoutNanos(t *testing.T) {
	assert.Equal(t, uint64(math.MaxUint64), timeoutNanos(0))
	assert.Equal(t, uint64(math.MaxUint64), timeoutNanos(-time.Second))
	assert.Equal(t, uint64(1_000_000), timeoutNanos(time.Millisecond))
}

func TestVertexInputState(t *testing.T) {
	binding, attributes := VertexInputState(renderer.Vertex{}.Layout())
	assert.Equal(t, uint32(12), binding.Stride)
	assert.Equal(t, vk.VertexInputRateVertex, binding.InputRate)
	require.Len(t, attributes, 1)
	assert.Equal(t, vk.FormatR32g32b32Sfloat, attributes[0].Format)
	assert.Equal(t, uint32(0), attributes[0].Location)
}

func TestLockPoolQueueFallback(t *testing.T) {
	pool := NewVulkanLockPool()
	called := 0
	require.NoError(t, pool.SafeQueueCall(3, func() error { called++; return nil }))
	pool.SetQueueFamily(3)
	require.NoError(t, pool.SafeQueueCall(3, func() error {
		called++
		// Other groups stay available while a queue lock is held.
		return pool.SafeCall(SynchronizationManagement, func() error { called++; return nil })
	}))
	assert.Equal(t, 3, called)
}
