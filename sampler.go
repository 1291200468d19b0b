package vkframe

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// SamplerInfo holds the sampler settings a texture usually varies.
type SamplerInfo struct {
	MagFilter    vk.Filter
	MinFilter    vk.Filter
	MipmapMode   vk.SamplerMipmapMode
	AddressModeU vk.SamplerAddressMode
	AddressModeV vk.SamplerAddressMode
	AddressModeW vk.SamplerAddressMode
	BorderColor  vk.BorderColor
}

// DefaultSamplerInfo is linear filtering with repeat addressing.
func DefaultSamplerInfo() SamplerInfo {
	return SamplerInfo{
		MagFilter:    vk.FilterLinear,
		MinFilter:    vk.FilterLinear,
		MipmapMode:   vk.SamplerMipmapModeLinear,
		AddressModeU: vk.SamplerAddressModeRepeat,
		AddressModeV: vk.SamplerAddressModeRepeat,
		AddressModeW: vk.SamplerAddressModeRepeat,
		BorderColor:  vk.BorderColorIntOpaqueBlack,
	}
}

func (c *DeviceContext) samplerCreateInfo(info SamplerInfo) vk.SamplerCreateInfo {
	ci := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               info.MagFilter,
		MinFilter:               info.MinFilter,
		MipmapMode:              info.MipmapMode,
		AddressModeU:            info.AddressModeU,
		AddressModeV:            info.AddressModeV,
		AddressModeW:            info.AddressModeW,
		BorderColor:             info.BorderColor,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
	}
	if c.features.SamplerAnisotropy {
		ci.AnisotropyEnable = vk.True
		ci.MaxAnisotropy = c.props.Limits.MaxSamplerAnisotropy
	}
	return ci
}

// CreateSampler creates a sampler. Anisotropic filtering is enabled at the
// device maximum when the device was created with that feature.
func (c *DeviceContext) CreateSampler(info SamplerInfo) (vk.Sampler, error) {
	ci := c.samplerCreateInfo(info)
	sampler, err := c.drv.CreateSampler(c.device, &ci)
	return sampler, errors.Wrap(err, "create sampler")
}

// DestroySampler releases a sampler made by CreateSampler.
func (c *DeviceContext) DestroySampler(sampler vk.Sampler) {
	c.drv.DestroySampler(c.device, sampler)
}
