package vkframe

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Buffer is a GPU buffer bound at offset 0 to a memory object it owns.
type Buffer struct {
	ctx   *DeviceContext
	buf   vk.Buffer
	size  vk.DeviceSize
	usage vk.BufferUsageFlags
	mem   *MemoryObject
}

// NewBuffer creates a buffer of size bytes, allocates memory with props for
// it and binds the two together.
func NewBuffer(ctx *DeviceContext, size int, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags) (*Buffer, error) {
	must(size > 0, "buffer size must be positive, got %d", size)
	drv, device := ctx.drv, ctx.device

	buf, err := drv.CreateBuffer(device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create buffer")
	}

	mem, err := NewMemoryObject(ctx, drv.BufferMemoryRequirements(device, buf), props)
	if err != nil {
		drv.DestroyBuffer(device, buf)
		return nil, errors.Wrap(err, "buffer memory")
	}
	if err := drv.BindBufferMemory(device, buf, mem.Handle(), 0); err != nil {
		mem.Destroy()
		drv.DestroyBuffer(device, buf)
		return nil, errors.Wrap(err, "bind buffer memory")
	}
	return &Buffer{
		ctx:   ctx,
		buf:   buf,
		size:  vk.DeviceSize(size),
		usage: usage,
		mem:   mem,
	}, nil
}

// Handle returns the vk.Buffer.
func (b *Buffer) Handle() vk.Buffer { return b.buf }

// Size is the requested buffer size in bytes.
func (b *Buffer) Size() vk.DeviceSize { return b.size }

// Usage returns the usage flags fixed at creation.
func (b *Buffer) Usage() vk.BufferUsageFlags { return b.usage }

// Memory returns the memory object backing the buffer.
func (b *Buffer) Memory() *MemoryObject { return b.mem }

// CopyTo writes data into the buffer at offset. The buffer memory must be
// host visible.
func (b *Buffer) CopyTo(data []byte, offset int) error {
	must(vk.DeviceSize(offset+len(data)) <= b.size,
		"copy of %d bytes at offset %d exceeds buffer size %d", len(data), offset, b.size)
	return b.mem.CopyTo(data, offset)
}

// Destroy releases the buffer and then its memory.
func (b *Buffer) Destroy() {
	if b.buf == vk.NullBuffer {
		return
	}
	b.ctx.drv.DestroyBuffer(b.ctx.device, b.buf)
	b.buf = vk.NullBuffer
	b.mem.Destroy()
}

func hostBufferUsage(usage vk.BufferUsageFlagBits) vk.BufferUsageFlags {
	return vk.BufferUsageFlags(usage | vk.BufferUsageTransferDstBit)
}

// VertexBuffer holds per-vertex data.
type VertexBuffer struct {
	*Buffer
}

// NewVertexBuffer creates a host-visible vertex buffer of size bytes.
func NewVertexBuffer(ctx *DeviceContext, size int) (*VertexBuffer, error) {
	buf, err := NewBuffer(ctx, size, hostBufferUsage(vk.BufferUsageVertexBufferBit), HostVisible)
	if err != nil {
		return nil, errors.Wrap(err, "vertex buffer")
	}
	return &VertexBuffer{buf}, nil
}

// IndexBuffer holds indices and remembers how many there are.
type IndexBuffer struct {
	*Buffer
	nIndices uint32
}

// NewIndexBuffer creates a host-visible index buffer for nIndices indices
// taking size bytes.
func NewIndexBuffer(ctx *DeviceContext, nIndices uint32, size int) (*IndexBuffer, error) {
	buf, err := NewBuffer(ctx, size, hostBufferUsage(vk.BufferUsageIndexBufferBit), HostVisible)
	if err != nil {
		return nil, errors.Wrap(err, "index buffer")
	}
	return &IndexBuffer{Buffer: buf, nIndices: nIndices}, nil
}

// NumIndices is the index count given at creation.
func (b *IndexBuffer) NumIndices() uint32 { return b.nIndices }

// UniformBuffer holds shader uniforms.
type UniformBuffer struct {
	*Buffer
}

// NewUniformBuffer creates a host-visible uniform buffer of size bytes.
func NewUniformBuffer(ctx *DeviceContext, size int) (*UniformBuffer, error) {
	buf, err := NewBuffer(ctx, size, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), HostVisible)
	if err != nil {
		return nil, errors.Wrap(err, "uniform buffer")
	}
	return &UniformBuffer{buf}, nil
}

// LayoutBinding describes the buffer as a uniform descriptor at binding for
// the given shader stages.
func (b *UniformBuffer) LayoutBinding(binding uint32, stages vk.ShaderStageFlags) vk.DescriptorSetLayoutBinding {
	return vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      stages,
	}
}

// DescriptorInfo covers the whole buffer.
func (b *UniformBuffer) DescriptorInfo() vk.DescriptorBufferInfo {
	return vk.DescriptorBufferInfo{
		Buffer: b.buf,
		Offset: 0,
		Range:  b.size,
	}
}

// NewStagingBuffer creates a host-visible transfer source holding data.
func NewStagingBuffer(ctx *DeviceContext, data []byte) (*Buffer, error) {
	buf, err := NewBuffer(ctx, len(data), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), HostVisible)
	if err != nil {
		return nil, errors.Wrap(err, "staging buffer")
	}
	if err := buf.CopyTo(data, 0); err != nil {
		buf.Destroy()
		return nil, errors.Wrap(err, "fill staging buffer")
	}
	return buf, nil
}

// NewDeviceLocalBuffer creates a device-local buffer and fills it with data
// through a staging buffer.
func NewDeviceLocalBuffer(ctx *DeviceContext, data []byte, usage vk.BufferUsageFlagBits) (*Buffer, error) {
	staging, err := NewStagingBuffer(ctx, data)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	buf, err := NewBuffer(ctx, len(data), hostBufferUsage(usage), DeviceLocal)
	if err != nil {
		return nil, err
	}
	if err := CopyBuffer(ctx, staging, buf, staging.Size()); err != nil {
		buf.Destroy()
		return nil, err
	}
	return buf, nil
}
