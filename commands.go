package vkframe

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// NewCommandBuf allocates a primary command buffer from the device pool.
func NewCommandBuf(ctx *DeviceContext) (vk.CommandBuffer, error) {
	return ctx.pool.Allocate()
}

// BeginCommands starts recording a buffer that will be submitted once.
func BeginCommands(ctx *DeviceContext, cmd vk.CommandBuffer) error {
	err := ctx.drv.BeginCommandBuffer(cmd, vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit))
	return errors.Wrap(err, "begin command buffer")
}

// EndCommands finishes recording.
func EndCommands(ctx *DeviceContext, cmd vk.CommandBuffer) error {
	return errors.Wrap(ctx.drv.EndCommandBuffer(cmd), "end command buffer")
}

// SubmitCommands submits cmd to the graphics queue and blocks until the
// queue is idle. It is meant for setup work, not the render loop.
func SubmitCommands(ctx *DeviceContext, cmd vk.CommandBuffer) error {
	err := ctx.drv.QueueSubmit(ctx.queues.Graphics, vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}, vk.NullFence)
	if err != nil {
		return errors.Wrap(err, "submit commands")
	}
	return errors.Wrap(ctx.drv.QueueWaitIdle(ctx.queues.Graphics), "wait for graphics queue")
}

// FreeCommandBuf returns cmd to the device pool.
func FreeCommandBuf(ctx *DeviceContext, cmd vk.CommandBuffer) {
	ctx.pool.Free(cmd)
}

// RunOneShot records commands with record into a fresh command buffer,
// submits it and waits for completion. The buffer is freed on every path.
func RunOneShot(ctx *DeviceContext, record func(cmd vk.CommandBuffer) error) error {
	cmd, err := NewCommandBuf(ctx)
	if err != nil {
		return err
	}
	defer FreeCommandBuf(ctx, cmd)

	if err := BeginCommands(ctx, cmd); err != nil {
		return err
	}
	if err := record(cmd); err != nil {
		// End the buffer so it is not left in the recording state.
		_ = EndCommands(ctx, cmd)
		return err
	}
	if err := EndCommands(ctx, cmd); err != nil {
		return err
	}
	return SubmitCommands(ctx, cmd)
}

// CopyBuffer copies size bytes from the start of src to the start of dst.
func CopyBuffer(ctx *DeviceContext, src, dst *Buffer, size vk.DeviceSize) error {
	must(size <= src.Size() && size <= dst.Size(),
		"copy of %d bytes exceeds buffer sizes %d -> %d", size, src.Size(), dst.Size())
	err := RunOneShot(ctx, func(cmd vk.CommandBuffer) error {
		ctx.drv.CmdCopyBuffer(cmd, src.Handle(), dst.Handle(), vk.BufferCopy{Size: size})
		return nil
	})
	return errors.Wrap(err, "copy buffer")
}

type layoutTransition struct {
	srcAccess vk.AccessFlags
	dstAccess vk.AccessFlags
	srcStage  vk.PipelineStageFlags
	dstStage  vk.PipelineStageFlags
}

// transitionFor returns the barrier masks for the two transitions a texture
// upload goes through.
func transitionFor(oldLayout, newLayout vk.ImageLayout) (layoutTransition, error) {
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		return layoutTransition{
			srcAccess: 0,
			dstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		}, nil
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		return layoutTransition{
			srcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		}, nil
	}
	return layoutTransition{}, errors.Wrapf(ErrUnsupportedTransition, "%d -> %d", oldLayout, newLayout)
}

func colorSubresource() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

// TransitionImageLayout moves image between layouts with a one-shot
// pipeline barrier. Only Undefined -> TransferDstOptimal and
// TransferDstOptimal -> ShaderReadOnlyOptimal are supported; anything else
// returns ErrUnsupportedTransition without touching the device.
func TransitionImageLayout(ctx *DeviceContext, image vk.Image, format vk.Format, oldLayout, newLayout vk.ImageLayout) error {
	tr, err := transitionFor(oldLayout, newLayout)
	if err != nil {
		return err
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       tr.srcAccess,
		DstAccessMask:       tr.dstAccess,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange:    colorSubresource(),
	}
	err = RunOneShot(ctx, func(cmd vk.CommandBuffer) error {
		ctx.drv.CmdPipelineBarrier(cmd, tr.srcStage, tr.dstStage, barrier)
		return nil
	})
	return errors.Wrap(err, "transition image layout")
}

// CopyBufferToImage copies a tightly packed buffer into mip 0, layer 0 of an
// image in the TransferDstOptimal layout.
func CopyBufferToImage(ctx *DeviceContext, buf *Buffer, image vk.Image, width, height uint32) error {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
	}
	err := RunOneShot(ctx, func(cmd vk.CommandBuffer) error {
		ctx.drv.CmdCopyBufferToImage(cmd, buf.Handle(), image, vk.ImageLayoutTransferDstOptimal, region)
		return nil
	})
	return errors.Wrap(err, "copy buffer to image")
}
