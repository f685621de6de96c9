package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/core"
)

// KhrSwapchainExtensionName is the device extension every candidate must expose.
const KhrSwapchainExtensionName = "VK_KHR_swapchain"

// PhysicalDeviceCandidate is a device paired with a queue family that can both
// draw and present to the surface.
type PhysicalDeviceCandidate struct {
	Device           PhysicalDevice
	QueueFamilyIndex uint32
}

// CompatiblePhysicalDevices returns, in enumeration order, every device that
// supports all required extensions and owns a queue family with graphics and
// presentation support for the surface.
func CompatiblePhysicalDevices(instance Instance, surface Surface, requiredExtensions []string) ([]PhysicalDeviceCandidate, error) {
	devices, err := instance.EnumeratePhysicalDevices()
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate physical devices")
	}
	if len(devices) == 0 {
		core.LogError("No devices which support Vulkan were found.")
		return nil, nil
	}

	candidates := make([]PhysicalDeviceCandidate, 0, len(devices))
	for _, device := range devices {
		properties := device.Properties()

		if missing, ok := supportsExtensions(device, requiredExtensions); !ok {
			core.LogInfo("Required extension not found: '%s', skipping device '%s'.", missing, properties.Name)
			continue
		}

		familyIndex, ok := graphicsPresentFamily(device, surface)
		if !ok {
			core.LogInfo("Device '%s' has no queue family with graphics and present support, skipping.", properties.Name)
			continue
		}

		core.LogDebug("Device '%s' qualifies with queue family %d.", properties.Name, familyIndex)
		candidates = append(candidates, PhysicalDeviceCandidate{
			Device:           device,
			QueueFamilyIndex: familyIndex,
		})
	}
	return candidates, nil
}

// PreferredPhysicalDevice picks the candidate with the best device class rank.
// Ties keep the first one encountered.
func PreferredPhysicalDevice(candidates []PhysicalDeviceCandidate) (PhysicalDeviceCandidate, error) {
	if len(candidates) == 0 {
		return PhysicalDeviceCandidate{}, core.ErrNoSuitableDevice
	}
	best := 0
	bestRank := candidates[0].Device.Properties().Type.Rank()
	for i := 1; i < len(candidates); i++ {
		if rank := candidates[i].Device.Properties().Type.Rank(); rank < bestRank {
			best, bestRank = i, rank
		}
	}
	return candidates[best], nil
}

// SelectPhysicalDevice filters and ranks the devices of the instance.
func SelectPhysicalDevice(instance Instance, surface Surface, requiredExtensions []string) (PhysicalDeviceCandidate, error) {
	candidates, err := CompatiblePhysicalDevices(instance, surface, requiredExtensions)
	if err != nil {
		return PhysicalDeviceCandidate{}, err
	}
	selected, err := PreferredPhysicalDevice(candidates)
	if err != nil {
		return PhysicalDeviceCandidate{}, err
	}

	properties := selected.Device.Properties()
	core.LogInfo("Selected device: '%s'.", properties.Name)
	core.LogInfo("GPU type is %s.", properties.Type)
	core.LogInfo("GPU Driver version: %s", properties.DriverVersion)
	core.LogInfo("Vulkan API version: %s", properties.APIVersion)
	core.LogDebug("Graphics/Present Family Index: %d", selected.QueueFamilyIndex)
	return selected, nil
}

// CreateLogicalDevice creates the device and the single graphics+present queue.
func CreateLogicalDevice(candidate PhysicalDeviceCandidate, extensions []string) (Device, Queue, error) {
	core.LogInfo("Creating logical device...")
	device, queue, err := candidate.Device.CreateDevice(DeviceCreateInfo{
		Extensions:       extensions,
		QueueFamilyIndex: candidate.QueueFamilyIndex,
	})
	if err != nil {
		return nil, nil, errors.Mark(errors.Wrapf(err, "device '%s'", candidate.Device.Properties().Name), core.ErrDeviceCreation)
	}
	core.LogInfo("Logical device created.")
	return device, queue, nil
}

func supportsExtensions(device PhysicalDevice, required []string) (string, bool) {
	if len(required) == 0 {
		return "", true
	}
	available, err := device.SupportedExtensions()
	if err != nil {
		core.LogWarn("Failed to query extensions of '%s': %s", device.Properties().Name, err)
		return required[0], false
	}
	set := make(map[string]struct{}, len(available))
	for _, name := range available {
		set[name] = struct{}{}
	}
	for _, name := range required {
		if _, ok := set[name]; !ok {
			return name, false
		}
	}
	return "", true
}

func graphicsPresentFamily(device PhysicalDevice, surface Surface) (uint32, bool) {
	for i, family := range device.QueueFamilyProperties() {
		if family.Flags&QueueGraphics == 0 {
			continue
		}
		supported, err := device.SurfaceSupport(uint32(i), surface)
		if err != nil {
			core.LogDebug("Surface support query failed for family %d: %s", i, err)
			continue
		}
		if supported {
			return uint32(i), true
		}
	}
	return 0, false
}
