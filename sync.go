package vkframe

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// SyncObjs holds the synchronization for one frame in flight: a semaphore
// signaled when the acquired image is ready to be written, a semaphore
// signaled when rendering is done and the image may be presented, and a fence
// signaled when the GPU has finished the frame's commands.
//
// A frame runs AcquireNextImage, Reset, SubmitCommands, Present in that
// order. The fence starts signaled so the first acquire does not block.
type SyncObjs struct {
	ctx  *DeviceContext
	swap *SwapChain

	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	inFlight       vk.Fence
}

// NewSyncObjs creates the synchronization objects for presenting to swap.
func NewSyncObjs(ctx *DeviceContext, swap *SwapChain) (*SyncObjs, error) {
	s := &SyncObjs{ctx: ctx, swap: swap}
	if err := s.Allocate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Allocate creates the semaphores and the fence. Calling it again once they
// exist does nothing.
func (s *SyncObjs) Allocate() (err error) {
	if s.imageAvailable != vk.NullSemaphore {
		return nil
	}
	drv, device := s.ctx.drv, s.ctx.device
	defer func() {
		if err != nil {
			s.Destroy()
		}
	}()
	if s.imageAvailable, err = drv.CreateSemaphore(device); err != nil {
		return errors.Wrap(err, "create image-available semaphore")
	}
	if s.renderFinished, err = drv.CreateSemaphore(device); err != nil {
		return errors.Wrap(err, "create render-finished semaphore")
	}
	if s.inFlight, err = drv.CreateFence(device, true); err != nil {
		return errors.Wrap(err, "create in-flight fence")
	}
	return nil
}

// SetSwapChain points the objects at a rebuilt swap chain.
func (s *SyncObjs) SetSwapChain(swap *SwapChain) { s.swap = swap }

// AcquireNextImage waits for the previous frame's fence and then asks for the
// next swap chain image. On ErrSuboptimal the returned index is still valid
// and the frame may be drawn; on ErrOutOfDate it is not.
func (s *SyncObjs) AcquireNextImage() (uint32, error) {
	must(s.inFlight != vk.NullFence, "acquire without allocated sync objects")
	drv, device := s.ctx.drv, s.ctx.device

	if ret := drv.WaitForFence(device, s.inFlight, vk.MaxUint64); isError(ret) {
		return 0, errors.Wrap(NewError(ret), "wait for in-flight fence")
	}
	index, ret := drv.AcquireNextImage(device, s.swap.Handle(), vk.MaxUint64, s.imageAvailable)
	if err := surfaceResult(ret, "acquire next image"); err != nil {
		if errors.Is(err, ErrOutOfDate) {
			return 0, err
		}
		return index, err
	}
	return index, nil
}

// Reset puts the in-flight fence back to unsignaled. Call it after a
// successful acquire and before SubmitCommands.
func (s *SyncObjs) Reset() error {
	must(s.inFlight != vk.NullFence, "reset without allocated sync objects")
	return errors.Wrap(s.ctx.drv.ResetFence(s.ctx.device, s.inFlight), "reset in-flight fence")
}

// SubmitCommands submits cmd to queue. Execution waits at the colour
// attachment output stage until the acquired image is available, and signals
// the render-finished semaphore and the in-flight fence.
func (s *SyncObjs) SubmitCommands(queue vk.Queue, cmd vk.CommandBuffer) error {
	must(s.inFlight != vk.NullFence, "submit without allocated sync objects")
	err := s.ctx.drv.QueueSubmit(queue, vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{s.imageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{s.renderFinished},
	}, s.inFlight)
	return errors.Wrap(err, "submit frame commands")
}

// Present queues image index for presentation once rendering has finished.
func (s *SyncObjs) Present(queue vk.Queue, index uint32) error {
	must(s.renderFinished != vk.NullSemaphore, "present without allocated sync objects")
	ret := s.ctx.drv.QueuePresent(queue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{s.renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.swap.Handle()},
		PImageIndices:      []uint32{index},
	})
	return surfaceResult(ret, "present")
}

// Destroy releases the fence and semaphores. It is safe to call twice.
func (s *SyncObjs) Destroy() {
	drv, device := s.ctx.drv, s.ctx.device
	if s.inFlight != vk.NullFence {
		drv.DestroyFence(device, s.inFlight)
		s.inFlight = vk.NullFence
	}
	if s.renderFinished != vk.NullSemaphore {
		drv.DestroySemaphore(device, s.renderFinished)
		s.renderFinished = vk.NullSemaphore
	}
	if s.imageAvailable != vk.NullSemaphore {
		drv.DestroySemaphore(device, s.imageAvailable)
		s.imageAvailable = vk.NullSemaphore
	}
}
