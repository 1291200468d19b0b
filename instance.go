package vkframe

import (
	"context"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
const instanceCreateEnumeratePortability = vk.InstanceCreateFlags(0x00000001)

// Instance wraps the Vulkan instance and the debug-report callback installed
// in debug mode.
type Instance struct {
	handle        vk.Instance
	debugCallback vk.DebugReportCallback
	// layers enabled on the instance, passed on to the logical device.
	layers []string
}

// NewInstance creates the Vulkan instance. windowExtensions are the names the
// window system needs (glfw.GetRequiredInstanceExtensions). In debug mode the
// validation layer and a debug-report callback are enabled when available.
func NewInstance(name string, windowExtensions []string, debug bool) (*Instance, error) {
	actual, err := InstanceExtensions()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate instance extensions")
	}
	wanted := []string{portabilityEnumerationExtension, physicalDeviceProps2Extension}
	if debug {
		wanted = append(wanted, debugReportExtension)
	}
	exts := NewExtensionSet(windowExtensions, wanted, actual)
	if ok, missing := exts.HasRequired(); !ok {
		return nil, errors.Wrapf(ErrMissingExtension, "instance extensions %v", missing)
	}
	enabled := exts.Enabled()

	var layers []string
	if debug {
		available, err := ValidationLayers()
		if err != nil {
			return nil, errors.Wrap(err, "enumerate validation layers")
		}
		layerSet := NewExtensionSet(nil, []string{validationLayer}, available)
		if ok, missing := layerSet.HasWanted(); !ok {
			Logger().Warn("validation layers not available", "missing", missing)
		}
		layers = layerSet.Enabled()
	}

	var flags vk.InstanceCreateFlags
	if exts.Has(portabilityEnumerationExtension) {
		flags |= instanceCreateEnumeratePortability
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		Flags: flags,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         vk.MakeVersion(1, 1, 0),
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PApplicationName:   safeString(name),
			PEngineName:        "vkframe\x00",
		},
		EnabledExtensionCount:   uint32(len(enabled)),
		PpEnabledExtensionNames: safeStrings(enabled),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}, nil, &instance)
	if err := NewError(ret); err != nil {
		return nil, errors.Wrap(err, "create instance")
	}
	vk.InitInstance(instance)
	Logger().Debug("instance created", "extensions", enabled, "layers", layers)

	inst := &Instance{handle: instance, layers: layers}
	if debug && exts.Has(debugReportExtension) {
		ret := vk.CreateDebugReportCallback(instance, &vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}, nil, &inst.debugCallback)
		if err := NewError(ret); err != nil {
			inst.Destroy()
			return nil, errors.Wrap(err, "create debug report callback")
		}
		Logger().Info("debug report callback enabled")
	}
	return inst, nil
}

// Handle returns the vk.Instance.
func (i *Instance) Handle() vk.Instance {
	return i.handle
}

// Layers returns the validation layers enabled on the instance.
func (i *Instance) Layers() []string {
	return i.layers
}

// DestroySurface releases a surface created against this instance.
func (i *Instance) DestroySurface(surface vk.Surface) {
	if surface != vk.NullSurface {
		vk.DestroySurface(i.handle, surface, nil)
	}
}

func (i *Instance) Destroy() {
	if i.handle == nil {
		return
	}
	if i.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(i.handle, i.debugCallback, nil)
		i.debugCallback = vk.NullDebugReportCallback
	}
	vk.DestroyInstance(i.handle, nil)
	i.handle = nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	level := slog.LevelInfo
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		level = slog.LevelError
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		level = slog.LevelWarn
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		level = slog.LevelDebug
	}
	Logger().Log(context.Background(), level, pMessage, "layer", pLayerPrefix, "code", messageCode)
	return vk.Bool32(vk.False)
}
