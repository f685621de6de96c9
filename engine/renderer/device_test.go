package renderer_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
	"github.com/spaghettifunk/ember/engine/renderer/rendertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var swapchainExtensions = []string{renderer.KhrSwapchainExtensionName}

func newInstance(t *testing.T, devices ...*rendertest.PhysicalDevice) (renderer.Instance, renderer.Surface) {
	t.Helper()
	instance, err := rendertest.NewBackend(devices...).CreateInstance(renderer.InstanceCreateInfo{})
	require.NoError(t, err)
	return instance, rendertest.NewSurface(800, 600)
}

func TestSelectPhysicalDevicePrefersDiscrete(t *testing.T) {
	tests := []struct {
		name   string
		others renderer.DeviceType
	}{
		{"virtual", renderer.DeviceTypeVirtualGPU},
		{"cpu", renderer.DeviceTypeCPU},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instance, surface := newInstance(t,
				rendertest.NewPhysicalDevice("integrated", renderer.DeviceTypeIntegratedGPU),
				rendertest.NewPhysicalDevice("discrete", renderer.DeviceTypeDiscreteGPU),
				rendertest.NewPhysicalDevice(tt.name, tt.others),
			)

			selected, err := renderer.SelectPhysicalDevice(instance, surface, swapchainExtensions)
			require.NoError(t, err)
			assert.Equal(t, "discrete", selected.Device.Properties().Name)
			assert.Equal(t, uint32(0), selected.QueueFamilyIndex)

			again, err := renderer.SelectPhysicalDevice(instance, surface, swapchainExtensions)
			require.NoError(t, err)
			assert.Same(t, selected.Device, again.Device)
			assert.Equal(t, selected.QueueFamilyIndex, again.QueueFamilyIndex)
		})
	}
}

func TestSelectPhysicalDeviceSkipsMissingExtension(t *testing.T) {
	discrete := rendertest.NewPhysicalDevice("discrete", renderer.DeviceTypeDiscreteGPU)
	discrete.Extensions = []string{"VK_KHR_maintenance1"}
	integrated := rendertest.NewPhysicalDevice("integrated", renderer.DeviceTypeIntegratedGPU)
	instance, surface := newInstance(t, discrete, integrated)

	selected, err := renderer.SelectPhysicalDevice(instance, surface, swapchainExtensions)
	require.NoError(t, err)
	assert.Equal(t, "integrated", selected.Device.Properties().Name)
}

func TestSelectPhysicalDeviceSkipsExtensionQueryFailure(t *testing.T) {
	broken := rendertest.NewPhysicalDevice("broken", renderer.DeviceTypeDiscreteGPU)
	broken.ExtensionsErr = errors.New("driver error")
	cpu := rendertest.NewPhysicalDevice("cpu", renderer.DeviceTypeCPU)
	instance, surface := newInstance(t, broken, cpu)

	selected, err := renderer.SelectPhysicalDevice(instance, surface, swapchainExtensions)
	require.NoError(t, err)
	assert.Equal(t, "cpu", selected.Device.Properties().Name)
}

func TestSelectPhysicalDeviceSkipsDeviceWithoutPresentFamily(t *testing.T) {
	headless := rendertest.NewPhysicalDevice("headless", renderer.DeviceTypeDiscreteGPU)
	headless.PresentFamilies = nil
	noGraphics := rendertest.NewPhysicalDevice("compute", renderer.DeviceTypeDiscreteGPU)
	noGraphics.QueueFamilies = []renderer.QueueFamilyProperties{{Flags: renderer.QueueCompute, QueueCount: 4}}
	virtual := rendertest.NewPhysicalDevice("virtual", renderer.DeviceTypeVirtualGPU)
	instance, surface := newInstance(t, headless, noGraphics, virtual)

	candidates, err := renderer.CompatiblePhysicalDevices(instance, surface, swapchainExtensions)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "virtual", candidates[0].Device.Properties().Name)
}

func TestCompatiblePhysicalDevicesUsesFirstGraphicsPresentFamily(t *testing.T) {
	device := rendertest.NewPhysicalDevice("gpu", renderer.DeviceTypeDiscreteGPU)
	device.QueueFamilies = []renderer.QueueFamilyProperties{
		{Flags: renderer.QueueTransfer, QueueCount: 1},
		{Flags: renderer.QueueGraphics, QueueCount: 1},
		{Flags: renderer.QueueGraphics | renderer.QueueCompute, QueueCount: 1},
		{Flags: renderer.QueueGraphics, QueueCount: 1},
	}
	device.PresentFamilies = []uint32{0, 2, 3}
	instance, surface := newInstance(t, device)

	candidates, err := renderer.CompatiblePhysicalDevices(instance, surface, swapchainExtensions)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, uint32(2), candidates[0].QueueFamilyIndex)
}

func TestCompatiblePhysicalDevicesTreatsSupportQueryErrorAsUnsupported(t *testing.T) {
	device := rendertest.NewPhysicalDevice("gpu", renderer.DeviceTypeDiscreteGPU)
	device.SurfaceSupportErr = errors.New("surface lost")
	instance, surface := newInstance(t, device)

	candidates, err := renderer.CompatiblePhysicalDevices(instance, surface, swapchainExtensions)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestPreferredPhysicalDeviceTieKeepsFirst(t *testing.T) {
	instance, surface := newInstance(t,
		rendertest.NewPhysicalDevice("cpu", renderer.DeviceTypeCPU),
		rendertest.NewPhysicalDevice("first", renderer.DeviceTypeIntegratedGPU),
		rendertest.NewPhysicalDevice("second", renderer.DeviceTypeIntegratedGPU),
	)

	for i := 0; i < 3; i++ {
		selected, err := renderer.SelectPhysicalDevice(instance, surface, swapchainExtensions)
		require.NoError(t, err)
		assert.Equal(t, "first", selected.Device.Properties().Name)
	}
}

func TestSelectPhysicalDeviceNoDevices(t *testing.T) {
	instance, surface := newInstance(t)

	candidates, err := renderer.CompatiblePhysicalDevices(instance, surface, swapchainExtensions)
	require.NoError(t, err)
	assert.Empty(t, candidates)

	_, err = renderer.SelectPhysicalDevice(instance, surface, swapchainExtensions)
	assert.True(t, errors.Is(err, core.ErrNoSuitableDevice))
}

func TestSelectPhysicalDeviceNoneQualify(t *testing.T) {
	device := rendertest.NewPhysicalDevice("gpu", renderer.DeviceTypeDiscreteGPU)
	device.Extensions = nil
	instance, surface := newInstance(t, device)

	_, err := renderer.SelectPhysicalDevice(instance, surface, swapchainExtensions)
	assert.True(t, errors.Is(err, core.ErrNoSuitableDevice))
}

func TestCompatiblePhysicalDevicesEnumerationError(t *testing.T) {
	backend := rendertest.NewBackend()
	backend.EnumerateErr = errors.New("instance lost")
	instance, err := backend.CreateInstance(renderer.InstanceCreateInfo{})
	require.NoError(t, err)

	_, err = renderer.CompatiblePhysicalDevices(instance, rendertest.NewSurface(1, 1), swapchainExtensions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instance lost")
}

func TestDeviceTypeRank(t *testing.T) {
	order := []renderer.DeviceType{
		renderer.DeviceTypeDiscreteGPU,
		renderer.DeviceTypeIntegratedGPU,
		renderer.DeviceTypeVirtualGPU,
		renderer.DeviceTypeCPU,
		renderer.DeviceTypeOther,
		renderer.DeviceType(42),
	}
	for i := 1; i < len(order); i++ {
		assert.Less(t, order[i-1].Rank(), order[i].Rank(), "%s should rank before %s", order[i-1], order[i])
	}
}

func TestCreateLogicalDevice(t *testing.T) {
	physical := rendertest.NewPhysicalDevice("gpu", renderer.DeviceTypeDiscreteGPU)
	candidate := renderer.PhysicalDeviceCandidate{Device: physical, QueueFamilyIndex: 0}

	device, queue, err := renderer.CreateLogicalDevice(candidate, swapchainExtensions)
	require.NoError(t, err)
	assert.Same(t, physical.Device(), device)
	assert.Equal(t, uint32(0), queue.FamilyIndex())
	assert.Equal(t, swapchainExtensions, physical.Device().Info.Extensions)
}

func TestCreateLogicalDeviceFailure(t *testing.T) {
	physical := rendertest.NewPhysicalDevice("gpu", renderer.DeviceTypeDiscreteGPU)
	physical.DeviceErr = errors.New("out of memory")

	_, _, err := renderer.CreateLogicalDevice(renderer.PhysicalDeviceCandidate{Device: physical}, swapchainExtensions)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDeviceCreation))
}
