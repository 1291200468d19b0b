package vkframe

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// HostVisible is the property set used for memory the CPU writes into.
const HostVisible = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

// DeviceLocal is the property set for GPU-only memory.
const DeviceLocal = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)

// MemoryObject is one device memory allocation owned by a single buffer or
// image.
type MemoryObject struct {
	ctx       *DeviceContext
	mem       vk.DeviceMemory
	size      vk.DeviceSize
	typeIndex uint32
	props     vk.MemoryPropertyFlags
}

// alignUp rounds size up to a multiple of align, which must be a power of two.
func alignUp(size, align vk.DeviceSize) vk.DeviceSize {
	if align <= 1 {
		return size
	}
	return (size + align - 1) &^ (align - 1)
}

// NewMemoryObject allocates memory satisfying reqs with the given properties.
func NewMemoryObject(ctx *DeviceContext, reqs vk.MemoryRequirements, props vk.MemoryPropertyFlags) (*MemoryObject, error) {
	typeIndex, ok := ctx.FindMemoryType(reqs.MemoryTypeBits, props)
	if !ok {
		return nil, errors.Wrapf(ErrNoMemoryType, "type bits %#x, properties %#x", reqs.MemoryTypeBits, props)
	}
	size := alignUp(reqs.Size, reqs.Alignment)
	mem, err := ctx.drv.AllocateMemory(ctx.device, size, typeIndex)
	if err != nil {
		return nil, errors.Wrapf(err, "allocate %d bytes of device memory", size)
	}
	return &MemoryObject{
		ctx:       ctx,
		mem:       mem,
		size:      size,
		typeIndex: typeIndex,
		props:     props,
	}, nil
}

// Handle returns the vk.DeviceMemory.
func (m *MemoryObject) Handle() vk.DeviceMemory { return m.mem }

// Size is the allocated size, rounded up to the required alignment.
func (m *MemoryObject) Size() vk.DeviceSize { return m.size }

// TypeIndex is the memory type the allocation was made from.
func (m *MemoryObject) TypeIndex() uint32 { return m.typeIndex }

// CopyTo writes src into the memory at offset. The memory must be host
// visible and the range must fit in the allocation.
func (m *MemoryObject) CopyTo(src []byte, offset int) error {
	m.checkRange(offset, len(src))
	if len(src) == 0 {
		return nil
	}
	ptr, err := m.ctx.drv.MapMemory(m.ctx.device, m.mem, vk.DeviceSize(offset), vk.DeviceSize(len(src)))
	if err != nil {
		return errors.Wrap(err, "map memory")
	}
	defer m.ctx.drv.UnmapMemory(m.ctx.device, m.mem)
	if n := vk.Memcopy(ptr, src); n != len(src) {
		return errors.Errorf("short copy to device memory, %d != %d", n, len(src))
	}
	return nil
}

// CopyFrom reads len(dst) bytes at offset back from host-visible memory.
func (m *MemoryObject) CopyFrom(dst []byte, offset int) error {
	m.checkRange(offset, len(dst))
	if len(dst) == 0 {
		return nil
	}
	ptr, err := m.ctx.drv.MapMemory(m.ctx.device, m.mem, vk.DeviceSize(offset), vk.DeviceSize(len(dst)))
	if err != nil {
		return errors.Wrap(err, "map memory")
	}
	defer m.ctx.drv.UnmapMemory(m.ctx.device, m.mem)
	copy(dst, unsafe.Slice((*byte)(ptr), len(dst)))
	return nil
}

func (m *MemoryObject) checkRange(offset, n int) {
	must(m.mem != vk.NullDeviceMemory, "copy on freed memory object")
	must(offset >= 0 && vk.DeviceSize(offset+n) <= m.size,
		"copy of %d bytes at offset %d exceeds memory size %d", n, offset, m.size)
}

// Destroy frees the allocation. Further calls do nothing.
func (m *MemoryObject) Destroy() {
	if m.mem == vk.NullDeviceMemory {
		return
	}
	m.ctx.drv.FreeMemory(m.ctx.device, m.mem)
	m.mem = vk.NullDeviceMemory
}
