package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
)

const (
	validationLayerName                = "VK_LAYER_KHRONOS_validation"
	portabilityEnumerationExtension    = "VK_KHR_portability_enumeration"
	physicalDeviceProperties2Extension = "VK_KHR_get_physical_device_properties2"
	// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	instanceCreateEnumeratePortabilityBit vk.InstanceCreateFlags = 0x00000001
)

// VulkanBackend loads the Vulkan loader through GLFW and creates instances.
type VulkanBackend struct{}

func New() *VulkanBackend {
	return &VulkanBackend{}
}

func (vb *VulkanBackend) CreateInstance(info renderer.InstanceCreateInfo) (renderer.Instance, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize vk")
	}

	context := &VulkanContext{
		// TODO: custom allocator.
		Allocator: nil,
		locks:     NewVulkanLockPool(),
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(info.MaxAPIVersion),
		ApplicationVersion: uint32(info.ApplicationVersion),
		PApplicationName:   VulkanSafeString(info.ApplicationName),
		PEngineName:        VulkanSafeString(info.EngineName),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := append([]string{}, info.Extensions...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions, portabilityEnumerationExtension, physicalDeviceProperties2Extension)
		createInfo.Flags |= instanceCreateEnumeratePortabilityBit
	}

	var layers []string
	if info.Validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		if hasInstanceLayer(validationLayerName) {
			layers = append(layers, validationLayerName)
			core.LogInfo("Validation layers enabled.")
		} else {
			core.LogWarn("Required validation layer is missing: %s", validationLayerName)
		}
	}

	core.LogInfo("Required extensions:")
	for _, name := range requiredExtensions {
		core.LogInfo(name)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if res := vk.CreateInstance(&createInfo, context.Allocator, &context.Instance); res != vk.Success {
		return nil, VulkanResultError(res, "failed in creating the Vulkan Instance")
	}
	if err := vk.InitInstance(context.Instance); err != nil {
		vk.DestroyInstance(context.Instance, context.Allocator)
		return nil, errors.Wrap(err, "failed to load instance functions")
	}
	core.LogInfo("Vulkan Instance created.")

	if info.Validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(context.Instance, &debugCreateInfo, context.Allocator, &dbg); res != vk.Success {
			core.LogWarn("vk.CreateDebugReportCallback failed with %s", VulkanResultString(res, false))
		} else {
			context.debugMessenger = dbg
			core.LogDebug("Vulkan debugger created.")
		}
	}

	return context, nil
}

func hasInstanceLayer(name string) bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return false
	}
	for i := range available[:count] {
		available[i].Deref()
		if vk.ToString(available[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
