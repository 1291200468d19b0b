package vkframe

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// CommandPool is the device's shared pool. Its buffers can be reset
// individually, which the frame loop relies on.
type CommandPool struct {
	drv    Driver
	device vk.Device
	pool   vk.CommandPool
	family uint32
}

func newCommandPool(drv Driver, device vk.Device, family uint32) (*CommandPool, error) {
	pool, err := drv.CreateCommandPool(device, family,
		vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit))
	if err != nil {
		return nil, errors.Wrap(err, "create command pool")
	}
	return &CommandPool{drv: drv, device: device, pool: pool, family: family}, nil
}

// Handle returns the vk.CommandPool.
func (c *CommandPool) Handle() vk.CommandPool {
	return c.pool
}

// Family is the queue family the pool is bound to.
func (c *CommandPool) Family() uint32 {
	return c.family
}

// Allocate returns a primary command buffer from the pool.
func (c *CommandPool) Allocate() (vk.CommandBuffer, error) {
	cmd, err := c.drv.AllocateCommandBuffer(c.device, c.pool)
	return cmd, errors.Wrap(err, "allocate command buffer")
}

// Free returns cmd to the pool.
func (c *CommandPool) Free(cmd vk.CommandBuffer) {
	c.drv.FreeCommandBuffer(c.device, c.pool, cmd)
}

func (c *CommandPool) Destroy() {
	if c.pool != vk.NullCommandPool {
		c.drv.DestroyCommandPool(c.device, c.pool)
		c.pool = vk.NullCommandPool
	}
}
