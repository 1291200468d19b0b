package vkframe

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Driver is the set of Vulkan entry points used by the resource, swap-chain
// and synchronization code. VulkanDriver calls straight into vulkan-go.
//
// Create* methods return errors built with NewError. The fence, acquire and
// present calls return the raw vk.Result because callers branch on it.
type Driver interface {
	// Physical device queries.
	EnumeratePhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, error)
	PhysicalDeviceProperties(gpu vk.PhysicalDevice) vk.PhysicalDeviceProperties
	PhysicalDeviceFeatures(gpu vk.PhysicalDevice) vk.PhysicalDeviceFeatures
	PhysicalDeviceMemoryProperties(gpu vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties
	PhysicalDeviceFormatProperties(gpu vk.PhysicalDevice, format vk.Format) vk.FormatProperties
	QueueFamilyProperties(gpu vk.PhysicalDevice) []vk.QueueFamilyProperties
	DeviceExtensions(gpu vk.PhysicalDevice) ([]string, error)

	// Surface queries.
	SurfaceSupport(gpu vk.PhysicalDevice, family uint32, surface vk.Surface) bool
	SurfaceCapabilities(gpu vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, error)
	SurfaceFormats(gpu vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, error)
	SurfacePresentModes(gpu vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, error)

	// Logical device.
	CreateDevice(gpu vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, error)
	DestroyDevice(device vk.Device)
	DeviceQueue(device vk.Device, family uint32) vk.Queue
	DeviceWaitIdle(device vk.Device) error

	// Synchronization.
	CreateSemaphore(device vk.Device) (vk.Semaphore, error)
	DestroySemaphore(device vk.Device, sem vk.Semaphore)
	CreateFence(device vk.Device, signaled bool) (vk.Fence, error)
	DestroyFence(device vk.Device, fence vk.Fence)
	WaitForFence(device vk.Device, fence vk.Fence, timeout uint64) vk.Result
	ResetFence(device vk.Device, fence vk.Fence) error

	// Queues.
	AcquireNextImage(device vk.Device, chain vk.Swapchain, timeout uint64, sem vk.Semaphore) (uint32, vk.Result)
	QueueSubmit(queue vk.Queue, info vk.SubmitInfo, fence vk.Fence) error
	QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result
	QueueWaitIdle(queue vk.Queue) error

	// Memory.
	AllocateMemory(device vk.Device, size vk.DeviceSize, typeIndex uint32) (vk.DeviceMemory, error)
	FreeMemory(device vk.Device, mem vk.DeviceMemory)
	MapMemory(device vk.Device, mem vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, error)
	UnmapMemory(device vk.Device, mem vk.DeviceMemory)

	// Buffers and images.
	CreateBuffer(device vk.Device, info *vk.BufferCreateInfo) (vk.Buffer, error)
	DestroyBuffer(device vk.Device, buf vk.Buffer)
	BufferMemoryRequirements(device vk.Device, buf vk.Buffer) vk.MemoryRequirements
	BindBufferMemory(device vk.Device, buf vk.Buffer, mem vk.DeviceMemory, offset vk.DeviceSize) error
	CreateImage(device vk.Device, info *vk.ImageCreateInfo) (vk.Image, error)
	DestroyImage(device vk.Device, img vk.Image)
	ImageMemoryRequirements(device vk.Device, img vk.Image) vk.MemoryRequirements
	BindImageMemory(device vk.Device, img vk.Image, mem vk.DeviceMemory, offset vk.DeviceSize) error
	CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, error)
	DestroyImageView(device vk.Device, view vk.ImageView)
	CreateSampler(device vk.Device, info *vk.SamplerCreateInfo) (vk.Sampler, error)
	DestroySampler(device vk.Device, sampler vk.Sampler)

	// Pipeline objects.
	CreateShaderModule(device vk.Device, code []uint32) (vk.ShaderModule, error)
	DestroyShaderModule(device vk.Device, module vk.ShaderModule)
	CreateRenderPass(device vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, error)
	DestroyRenderPass(device vk.Device, pass vk.RenderPass)
	CreateFramebuffer(device vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, error)
	DestroyFramebuffer(device vk.Device, fb vk.Framebuffer)
	CreatePipelineLayout(device vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error)
	DestroyPipelineLayout(device vk.Device, layout vk.PipelineLayout)
	CreateGraphicsPipeline(device vk.Device, info vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error)
	DestroyPipeline(device vk.Device, pipeline vk.Pipeline)

	// Swap chain.
	CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, error)
	DestroySwapchain(device vk.Device, chain vk.Swapchain)
	SwapchainImages(device vk.Device, chain vk.Swapchain) ([]vk.Image, error)

	// Command pools and buffers.
	CreateCommandPool(device vk.Device, family uint32, flags vk.CommandPoolCreateFlags) (vk.CommandPool, error)
	DestroyCommandPool(device vk.Device, pool vk.CommandPool)
	AllocateCommandBuffer(device vk.Device, pool vk.CommandPool) (vk.CommandBuffer, error)
	FreeCommandBuffer(device vk.Device, pool vk.CommandPool, cmd vk.CommandBuffer)
	BeginCommandBuffer(cmd vk.CommandBuffer, flags vk.CommandBufferUsageFlags) error
	EndCommandBuffer(cmd vk.CommandBuffer) error
	ResetCommandBuffer(cmd vk.CommandBuffer) error

	// Recording.
	CmdPipelineBarrier(cmd vk.CommandBuffer, src, dst vk.PipelineStageFlags, barrier vk.ImageMemoryBarrier)
	CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, region vk.BufferCopy)
	CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, region vk.BufferImageCopy)
	CmdSetViewport(cmd vk.CommandBuffer, viewport vk.Viewport)
	CmdSetScissor(cmd vk.CommandBuffer, scissor vk.Rect2D)
	CmdBeginRenderPass(cmd vk.CommandBuffer, info *vk.RenderPassBeginInfo)
	CmdEndRenderPass(cmd vk.CommandBuffer)
	CmdBindGraphicsPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline)
	CmdBindVertexBuffer(cmd vk.CommandBuffer, buf vk.Buffer)
	CmdBindIndexBuffer(cmd vk.CommandBuffer, buf vk.Buffer, indexType vk.IndexType)
	CmdDraw(cmd vk.CommandBuffer, vertexCount, instanceCount uint32)
	CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount uint32)
}

type vulkanDriver struct{}

// VulkanDriver returns the Driver backed by the Vulkan loader. vk.Init must
// have succeeded before any of its methods are called.
func VulkanDriver() Driver {
	return vulkanDriver{}
}

func (vulkanDriver) EnumeratePhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var count uint32
	if err := NewError(vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	gpus := make([]vk.PhysicalDevice, count)
	if err := NewError(vk.EnumeratePhysicalDevices(instance, &count, gpus)); err != nil {
		return nil, err
	}
	return gpus[:count], nil
}

func (vulkanDriver) PhysicalDeviceProperties(gpu vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(gpu, &props)
	props.Deref()
	props.Limits.Deref()
	return props
}

func (vulkanDriver) PhysicalDeviceFeatures(gpu vk.PhysicalDevice) vk.PhysicalDeviceFeatures {
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(gpu, &features)
	features.Deref()
	return features
}

func (vulkanDriver) PhysicalDeviceMemoryProperties(gpu vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties {
	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(gpu, &props)
	props.Deref()
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		props.MemoryTypes[i].Deref()
	}
	return props
}

func (vulkanDriver) PhysicalDeviceFormatProperties(gpu vk.PhysicalDevice, format vk.Format) vk.FormatProperties {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(gpu, format, &props)
	props.Deref()
	return props
}

func (vulkanDriver) QueueFamilyProperties(gpu vk.PhysicalDevice) []vk.QueueFamilyProperties {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, props)
	for i := range props {
		props[i].Deref()
	}
	return props
}

func (vulkanDriver) DeviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if err := NewError(vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)); err != nil {
		return nil, err
	}
	list := make([]vk.ExtensionProperties, count)
	if err := NewError(vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

func (vulkanDriver) SurfaceSupport(gpu vk.PhysicalDevice, family uint32, surface vk.Surface) bool {
	var supported vk.Bool32
	if isError(vk.GetPhysicalDeviceSurfaceSupport(gpu, family, surface, &supported)) {
		return false
	}
	return supported.B()
}

func (vulkanDriver) SurfaceCapabilities(gpu vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := NewError(vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &caps)); err != nil {
		return caps, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

func (vulkanDriver) SurfaceFormats(gpu vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, error) {
	var count uint32
	if err := NewError(vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &count, nil)); err != nil {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if count == 0 {
		return formats, nil
	}
	if err := NewError(vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &count, formats)); err != nil {
		return nil, err
	}
	for i := range formats {
		formats[i].Deref()
	}
	return formats, nil
}

func (vulkanDriver) SurfacePresentModes(gpu vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, error) {
	var count uint32
	if err := NewError(vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &count, nil)); err != nil {
		return nil, err
	}
	modes := make([]vk.PresentMode, count)
	if count == 0 {
		return modes, nil
	}
	if err := NewError(vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &count, modes)); err != nil {
		return nil, err
	}
	return modes, nil
}

func (vulkanDriver) CreateDevice(gpu vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, error) {
	var device vk.Device
	return device, NewError(vk.CreateDevice(gpu, info, nil, &device))
}

func (vulkanDriver) DestroyDevice(device vk.Device) {
	vk.DestroyDevice(device, nil)
}

func (vulkanDriver) DeviceQueue(device vk.Device, family uint32) vk.Queue {
	var queue vk.Queue
	vk.GetDeviceQueue(device, family, 0, &queue)
	return queue
}

func (vulkanDriver) DeviceWaitIdle(device vk.Device) error {
	return NewError(vk.DeviceWaitIdle(device))
}

func (vulkanDriver) CreateSemaphore(device vk.Device) (vk.Semaphore, error) {
	var sem vk.Semaphore
	ret := vk.CreateSemaphore(device, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &sem)
	return sem, NewError(ret)
}

func (vulkanDriver) DestroySemaphore(device vk.Device, sem vk.Semaphore) {
	vk.DestroySemaphore(device, sem, nil)
}

func (vulkanDriver) CreateFence(device vk.Device, signaled bool) (vk.Fence, error) {
	var flags vk.FenceCreateFlags
	if signaled {
		flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	ret := vk.CreateFence(device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: flags,
	}, nil, &fence)
	return fence, NewError(ret)
}

func (vulkanDriver) DestroyFence(device vk.Device, fence vk.Fence) {
	vk.DestroyFence(device, fence, nil)
}

func (vulkanDriver) WaitForFence(device vk.Device, fence vk.Fence, timeout uint64) vk.Result {
	return vk.WaitForFences(device, 1, []vk.Fence{fence}, vk.True, timeout)
}

func (vulkanDriver) ResetFence(device vk.Device, fence vk.Fence) error {
	return NewError(vk.ResetFences(device, 1, []vk.Fence{fence}))
}

func (vulkanDriver) AcquireNextImage(device vk.Device, chain vk.Swapchain, timeout uint64, sem vk.Semaphore) (uint32, vk.Result) {
	var index uint32
	ret := vk.AcquireNextImage(device, chain, timeout, sem, vk.Fence(vk.NullHandle), &index)
	return index, ret
}

func (vulkanDriver) QueueSubmit(queue vk.Queue, info vk.SubmitInfo, fence vk.Fence) error {
	return NewError(vk.QueueSubmit(queue, 1, []vk.SubmitInfo{info}, fence))
}

func (vulkanDriver) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	return vk.QueuePresent(queue, info)
}

func (vulkanDriver) QueueWaitIdle(queue vk.Queue) error {
	return NewError(vk.QueueWaitIdle(queue))
}

func (vulkanDriver) AllocateMemory(device vk.Device, size vk.DeviceSize, typeIndex uint32) (vk.DeviceMemory, error) {
	var mem vk.DeviceMemory
	ret := vk.AllocateMemory(device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  size,
		MemoryTypeIndex: typeIndex,
	}, nil, &mem)
	return mem, NewError(ret)
}

func (vulkanDriver) FreeMemory(device vk.Device, mem vk.DeviceMemory) {
	vk.FreeMemory(device, mem, nil)
}

func (vulkanDriver) MapMemory(device vk.Device, mem vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, error) {
	var data unsafe.Pointer
	ret := vk.MapMemory(device, mem, offset, size, 0, &data)
	return data, NewError(ret)
}

func (vulkanDriver) UnmapMemory(device vk.Device, mem vk.DeviceMemory) {
	vk.UnmapMemory(device, mem)
}

func (vulkanDriver) CreateBuffer(device vk.Device, info *vk.BufferCreateInfo) (vk.Buffer, error) {
	var buf vk.Buffer
	return buf, NewError(vk.CreateBuffer(device, info, nil, &buf))
}

func (vulkanDriver) DestroyBuffer(device vk.Device, buf vk.Buffer) {
	vk.DestroyBuffer(device, buf, nil)
}

func (vulkanDriver) BufferMemoryRequirements(device vk.Device, buf vk.Buffer) vk.MemoryRequirements {
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, buf, &reqs)
	reqs.Deref()
	return reqs
}

func (vulkanDriver) BindBufferMemory(device vk.Device, buf vk.Buffer, mem vk.DeviceMemory, offset vk.DeviceSize) error {
	return NewError(vk.BindBufferMemory(device, buf, mem, offset))
}

func (vulkanDriver) CreateImage(device vk.Device, info *vk.ImageCreateInfo) (vk.Image, error) {
	var img vk.Image
	return img, NewError(vk.CreateImage(device, info, nil, &img))
}

func (vulkanDriver) DestroyImage(device vk.Device, img vk.Image) {
	vk.DestroyImage(device, img, nil)
}

func (vulkanDriver) ImageMemoryRequirements(device vk.Device, img vk.Image) vk.MemoryRequirements {
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, img, &reqs)
	reqs.Deref()
	return reqs
}

func (vulkanDriver) BindImageMemory(device vk.Device, img vk.Image, mem vk.DeviceMemory, offset vk.DeviceSize) error {
	return NewError(vk.BindImageMemory(device, img, mem, offset))
}

func (vulkanDriver) CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	var view vk.ImageView
	return view, NewError(vk.CreateImageView(device, info, nil, &view))
}

func (vulkanDriver) DestroyImageView(device vk.Device, view vk.ImageView) {
	vk.DestroyImageView(device, view, nil)
}

func (vulkanDriver) CreateSampler(device vk.Device, info *vk.SamplerCreateInfo) (vk.Sampler, error) {
	var sampler vk.Sampler
	return sampler, NewError(vk.CreateSampler(device, info, nil, &sampler))
}

func (vulkanDriver) DestroySampler(device vk.Device, sampler vk.Sampler) {
	vk.DestroySampler(device, sampler, nil)
}

func (vulkanDriver) CreateShaderModule(device vk.Device, code []uint32) (vk.ShaderModule, error) {
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}, nil, &module)
	return module, NewError(ret)
}

func (vulkanDriver) DestroyShaderModule(device vk.Device, module vk.ShaderModule) {
	vk.DestroyShaderModule(device, module, nil)
}

func (vulkanDriver) CreateRenderPass(device vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	var pass vk.RenderPass
	return pass, NewError(vk.CreateRenderPass(device, info, nil, &pass))
}

func (vulkanDriver) DestroyRenderPass(device vk.Device, pass vk.RenderPass) {
	vk.DestroyRenderPass(device, pass, nil)
}

func (vulkanDriver) CreateFramebuffer(device vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	var fb vk.Framebuffer
	return fb, NewError(vk.CreateFramebuffer(device, info, nil, &fb))
}

func (vulkanDriver) DestroyFramebuffer(device vk.Device, fb vk.Framebuffer) {
	vk.DestroyFramebuffer(device, fb, nil)
}

func (vulkanDriver) CreatePipelineLayout(device vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	var layout vk.PipelineLayout
	return layout, NewError(vk.CreatePipelineLayout(device, info, nil, &layout))
}

func (vulkanDriver) DestroyPipelineLayout(device vk.Device, layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(device, layout, nil)
}

func (vulkanDriver) CreateGraphicsPipeline(device vk.Device, info vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(device, vk.PipelineCache(vk.NullHandle), 1,
		[]vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	return pipelines[0], NewError(ret)
}

func (vulkanDriver) DestroyPipeline(device vk.Device, pipeline vk.Pipeline) {
	vk.DestroyPipeline(device, pipeline, nil)
}

func (vulkanDriver) CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	var chain vk.Swapchain
	return chain, NewError(vk.CreateSwapchain(device, info, nil, &chain))
}

func (vulkanDriver) DestroySwapchain(device vk.Device, chain vk.Swapchain) {
	vk.DestroySwapchain(device, chain, nil)
}

func (vulkanDriver) SwapchainImages(device vk.Device, chain vk.Swapchain) ([]vk.Image, error) {
	var count uint32
	if err := NewError(vk.GetSwapchainImages(device, chain, &count, nil)); err != nil {
		return nil, err
	}
	images := make([]vk.Image, count)
	if err := NewError(vk.GetSwapchainImages(device, chain, &count, images)); err != nil {
		return nil, err
	}
	return images[:count], nil
}

func (vulkanDriver) CreateCommandPool(device vk.Device, family uint32, flags vk.CommandPoolCreateFlags) (vk.CommandPool, error) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
		Flags:            flags,
	}, nil, &pool)
	return pool, NewError(ret)
}

func (vulkanDriver) DestroyCommandPool(device vk.Device, pool vk.CommandPool) {
	vk.DestroyCommandPool(device, pool, nil)
}

func (vulkanDriver) AllocateCommandBuffer(device vk.Device, pool vk.CommandPool) (vk.CommandBuffer, error) {
	bufs := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, bufs)
	return bufs[0], NewError(ret)
}

func (vulkanDriver) FreeCommandBuffer(device vk.Device, pool vk.CommandPool, cmd vk.CommandBuffer) {
	vk.FreeCommandBuffers(device, pool, 1, []vk.CommandBuffer{cmd})
}

func (vulkanDriver) BeginCommandBuffer(cmd vk.CommandBuffer, flags vk.CommandBufferUsageFlags) error {
	return NewError(vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	}))
}

func (vulkanDriver) EndCommandBuffer(cmd vk.CommandBuffer) error {
	return NewError(vk.EndCommandBuffer(cmd))
}

func (vulkanDriver) ResetCommandBuffer(cmd vk.CommandBuffer) error {
	return NewError(vk.ResetCommandBuffer(cmd, 0))
}

func (vulkanDriver) CmdPipelineBarrier(cmd vk.CommandBuffer, src, dst vk.PipelineStageFlags, barrier vk.ImageMemoryBarrier) {
	vk.CmdPipelineBarrier(cmd, src, dst, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func (vulkanDriver) CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, region vk.BufferCopy) {
	vk.CmdCopyBuffer(cmd, src, dst, 1, []vk.BufferCopy{region})
}

func (vulkanDriver) CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, region vk.BufferImageCopy) {
	vk.CmdCopyBufferToImage(cmd, src, dst, layout, 1, []vk.BufferImageCopy{region})
}

func (vulkanDriver) CmdSetViewport(cmd vk.CommandBuffer, viewport vk.Viewport) {
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{viewport})
}

func (vulkanDriver) CmdSetScissor(cmd vk.CommandBuffer, scissor vk.Rect2D) {
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{scissor})
}

func (vulkanDriver) CmdBeginRenderPass(cmd vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	vk.CmdBeginRenderPass(cmd, info, vk.SubpassContentsInline)
}

func (vulkanDriver) CmdEndRenderPass(cmd vk.CommandBuffer) {
	vk.CmdEndRenderPass(cmd)
}

func (vulkanDriver) CmdBindGraphicsPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, pipeline)
}

func (vulkanDriver) CmdBindVertexBuffer(cmd vk.CommandBuffer, buf vk.Buffer) {
	vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{buf}, []vk.DeviceSize{0})
}

func (vulkanDriver) CmdBindIndexBuffer(cmd vk.CommandBuffer, buf vk.Buffer, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(cmd, buf, 0, indexType)
}

func (vulkanDriver) CmdDraw(cmd vk.CommandBuffer, vertexCount, instanceCount uint32) {
	vk.CmdDraw(cmd, vertexCount, instanceCount, 0, 0)
}

func (vulkanDriver) CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount uint32) {
	vk.CmdDrawIndexed(cmd, indexCount, instanceCount, 0, 0, 0)
}
