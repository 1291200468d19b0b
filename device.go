package vkframe

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// RequiredFeatures lists the device features a GPU must expose to be
// selected. All of them must be present.
type RequiredFeatures struct {
	FillModeNonSolid  bool `toml:"fill_mode_non_solid"`
	SamplerAnisotropy bool `toml:"sampler_anisotropy"`
}

// DeviceConfig controls physical device selection and logical device creation.
type DeviceConfig struct {
	Features RequiredFeatures
	// Layers are enabled on the logical device, for older loaders that
	// still honour device layers.
	Layers []string
}

// DefaultDeviceConfig requires non-solid fill and anisotropic sampling.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		Features: RequiredFeatures{FillModeNonSolid: true, SamplerAnisotropy: true},
	}
}

func (f RequiredFeatures) satisfiedBy(avail vk.PhysicalDeviceFeatures) bool {
	if f.FillModeNonSolid && !avail.FillModeNonSolid.B() {
		return false
	}
	if f.SamplerAnisotropy && !avail.SamplerAnisotropy.B() {
		return false
	}
	return true
}

func (f RequiredFeatures) enabled() vk.PhysicalDeviceFeatures {
	var feats vk.PhysicalDeviceFeatures
	if f.FillModeNonSolid {
		feats.FillModeNonSolid = vk.True
	}
	if f.SamplerAnisotropy {
		feats.SamplerAnisotropy = vk.True
	}
	return feats
}

// DeviceContext owns the logical device, its queues and the shared command
// pool. It is created once and destroyed after every resource made from it.
type DeviceContext struct {
	drv      Driver
	gpu      vk.PhysicalDevice
	device   vk.Device
	families QueueFamilies
	queues   Queues
	pool     *CommandPool
	features RequiredFeatures

	props    vk.PhysicalDeviceProperties
	memProps vk.PhysicalDeviceMemoryProperties
}

type deviceCandidate struct {
	gpu      vk.PhysicalDevice
	props    vk.PhysicalDeviceProperties
	families QueueFamilies
}

// NewDeviceContext selects a physical device that can render to surface and
// creates the logical device on it.
func NewDeviceContext(drv Driver, instance vk.Instance, surface vk.Surface, cfg DeviceConfig) (*DeviceContext, error) {
	gpus, err := drv.EnumeratePhysicalDevices(instance)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate physical devices")
	}
	if len(gpus) == 0 {
		return nil, errors.WithStack(ErrNoDevice)
	}

	cand, err := selectDevice(drv, gpus, surface, cfg.Features)
	if err != nil {
		return nil, err
	}
	Logger().Info("selected device",
		"name", vk.ToString(cand.props.DeviceName[:]),
		"type", deviceTypeName(cand.props.DeviceType),
		"graphics_family", cand.families.Graphics,
		"present_family", cand.families.Present)

	available, err := drv.DeviceExtensions(cand.gpu)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate device extensions")
	}
	exts := NewExtensionSet([]string{vk.KhrSwapchainExtensionName}, []string{portabilitySubsetExtension}, available)
	if ok, missing := exts.HasRequired(); !ok {
		return nil, errors.Wrapf(ErrMissingExtension, "%v", missing)
	}
	enabled := exts.Enabled()

	device, err := drv.CreateDevice(cand.gpu, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(cand.families.Indices())),
		PQueueCreateInfos:       queueCreateInfos(cand.families),
		EnabledExtensionCount:   uint32(len(enabled)),
		PpEnabledExtensionNames: safeStrings(enabled),
		EnabledLayerCount:       uint32(len(cfg.Layers)),
		PpEnabledLayerNames:     safeStrings(cfg.Layers),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{cfg.Features.enabled()},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create logical device")
	}

	ctx := &DeviceContext{
		drv:      drv,
		gpu:      cand.gpu,
		device:   device,
		families: cand.families,
		queues:   getQueues(drv, device, cand.families),
		features: cfg.Features,
		props:    cand.props,
		memProps: drv.PhysicalDeviceMemoryProperties(cand.gpu),
	}
	ctx.pool, err = newCommandPool(drv, device, cand.families.Graphics)
	if err != nil {
		drv.DestroyDevice(device)
		return nil, err
	}
	Logger().Debug("device extensions enabled", "extensions", enabled)
	return ctx, nil
}

// selectDevice keeps the GPUs that have the required features, graphics and
// present queue families and the swap-chain extension, then prefers a
// discrete GPU, then an integrated one, then whatever is left.
func selectDevice(drv Driver, gpus []vk.PhysicalDevice, surface vk.Surface, features RequiredFeatures) (deviceCandidate, error) {
	var candidates []deviceCandidate
	for _, gpu := range gpus {
		if !features.satisfiedBy(drv.PhysicalDeviceFeatures(gpu)) {
			continue
		}
		fams, ok := findQueueFamilies(drv, gpu, surface)
		if !ok {
			continue
		}
		if !hasDeviceExtension(drv, gpu, vk.KhrSwapchainExtensionName) {
			continue
		}
		candidates = append(candidates, deviceCandidate{
			gpu:      gpu,
			props:    drv.PhysicalDeviceProperties(gpu),
			families: fams,
		})
	}
	if len(candidates) == 0 {
		return deviceCandidate{}, errors.WithStack(ErrNoSuitableDevice)
	}
	for _, want := range []vk.PhysicalDeviceType{vk.PhysicalDeviceTypeDiscreteGpu, vk.PhysicalDeviceTypeIntegratedGpu} {
		for _, c := range candidates {
			if c.props.DeviceType == want {
				return c, nil
			}
		}
	}
	return candidates[0], nil
}

func hasDeviceExtension(drv Driver, gpu vk.PhysicalDevice, name string) bool {
	names, err := drv.DeviceExtensions(gpu)
	if err != nil {
		return false
	}
	return NewExtensionSet(nil, nil, names).Has(name)
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	}
	return "other"
}

// Driver returns the driver the context was created with.
func (c *DeviceContext) Driver() Driver { return c.drv }

// Device returns the logical device handle.
func (c *DeviceContext) Device() vk.Device { return c.device }

// PhysicalDevice returns the selected GPU.
func (c *DeviceContext) PhysicalDevice() vk.PhysicalDevice { return c.gpu }

func (c *DeviceContext) Families() QueueFamilies { return c.families }

func (c *DeviceContext) Queues() Queues { return c.queues }

func (c *DeviceContext) GraphicsQueue() vk.Queue { return c.queues.Graphics }

func (c *DeviceContext) PresentQueue() vk.Queue { return c.queues.Present }

// Pool returns the shared command pool, bound to the graphics family.
func (c *DeviceContext) Pool() *CommandPool { return c.pool }

// Properties returns the selected GPU's properties.
func (c *DeviceContext) Properties() vk.PhysicalDeviceProperties { return c.props }

// Limits returns the selected GPU's limits.
func (c *DeviceContext) Limits() vk.PhysicalDeviceLimits { return c.props.Limits }

// MemoryProperties returns the selected GPU's memory heaps and types.
func (c *DeviceContext) MemoryProperties() vk.PhysicalDeviceMemoryProperties { return c.memProps }

// FindMemoryType returns the lowest memory type index allowed by typeBits
// whose property flags include props. The second result is false when no
// such type exists.
func (c *DeviceContext) FindMemoryType(typeBits uint32, props vk.MemoryPropertyFlags) (uint32, bool) {
	return findMemoryType(c.memProps, typeBits, props)
}

func findMemoryType(memProps vk.PhysicalDeviceMemoryProperties, typeBits uint32, props vk.MemoryPropertyFlags) (uint32, bool) {
	for i := uint32(0); i < memProps.MemoryTypeCount && i < vk.MaxMemoryTypes; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		if memProps.MemoryTypes[i].PropertyFlags&props == props {
			return i, true
		}
	}
	return 0, false
}

// FindBestFormat returns the first candidate whose tiling features include
// features, or vk.FormatUndefined.
func (c *DeviceContext) FindBestFormat(candidates []vk.Format, tiling vk.ImageTiling, features vk.FormatFeatureFlags) vk.Format {
	for _, format := range candidates {
		props := c.drv.PhysicalDeviceFormatProperties(c.gpu, format)
		var have vk.FormatFeatureFlags
		switch tiling {
		case vk.ImageTilingLinear:
			have = props.LinearTilingFeatures
		case vk.ImageTilingOptimal:
			have = props.OptimalTilingFeatures
		}
		if have&features == features {
			return format
		}
	}
	return vk.FormatUndefined
}

// depthStencilCandidates lists formats from best to worst for the requested
// aspects.
func depthStencilCandidates(depth, stencil bool) []vk.Format {
	var formats []vk.Format
	if !depth {
		formats = append(formats, vk.FormatS8Uint)
	}
	if !stencil {
		formats = append(formats, vk.FormatD32Sfloat)
	}
	formats = append(formats, vk.FormatD32SfloatS8Uint)
	if !stencil {
		formats = append(formats, vk.FormatX8D24UnormPack32, vk.FormatD16Unorm)
	}
	formats = append(formats, vk.FormatD16UnormS8Uint)
	return formats
}

// DepthStencilFormat picks the best supported format for a depth and/or
// stencil attachment. It returns vk.FormatUndefined when neither is requested
// or nothing is supported.
func (c *DeviceContext) DepthStencilFormat(depth, stencil bool) vk.Format {
	if !depth && !stencil {
		return vk.FormatUndefined
	}
	return c.FindBestFormat(depthStencilCandidates(depth, stencil),
		vk.ImageTilingOptimal,
		vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit))
}

// WaitIdle blocks until the device has finished all submitted work.
func (c *DeviceContext) WaitIdle() error {
	return errors.Wrap(c.drv.DeviceWaitIdle(c.device), "device wait idle")
}

// Destroy releases the command pool and the logical device.
func (c *DeviceContext) Destroy() {
	if c.device == nil {
		return
	}
	if c.pool != nil {
		c.pool.Destroy()
		c.pool = nil
	}
	c.drv.DestroyDevice(c.device)
	c.device = nil
}
