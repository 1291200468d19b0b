package vkframe

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// RecordFunc records the commands for one frame into cmd, which is already
// in the recording state. imageIndex selects the swap chain framebuffer.
type RecordFunc func(cmd vk.CommandBuffer, imageIndex uint32) error

// Frame drives the per-frame protocol for a swap chain with a single frame in
// flight: acquire, reset, record, submit, present, and rebuild the swap chain
// when the surface changes.
type Frame struct {
	ctx  *DeviceContext
	swap *SwapChain
	sync *SyncObjs
	cmd  vk.CommandBuffer

	// size reports the current framebuffer size for swap chain rebuilds.
	size  func() (int, int)
	stale bool
	// onRecreate runs after every swap chain rebuild.
	onRecreate func()
}

// NewFrame allocates the command buffer and synchronization objects for
// rendering to swap. size is called to get the framebuffer size whenever the
// swap chain has to be rebuilt.
func NewFrame(ctx *DeviceContext, swap *SwapChain, size func() (int, int)) (*Frame, error) {
	sync, err := NewSyncObjs(ctx, swap)
	if err != nil {
		return nil, err
	}
	cmd, err := NewCommandBuf(ctx)
	if err != nil {
		sync.Destroy()
		return nil, errors.Wrap(err, "frame command buffer")
	}
	return &Frame{ctx: ctx, swap: swap, sync: sync, cmd: cmd, size: size}, nil
}

// MarkStale makes the next frame rebuild the swap chain after presenting.
func (f *Frame) MarkStale() { f.stale = true }

// Stale reports whether a rebuild is pending.
func (f *Frame) Stale() bool { return f.stale }

// OnRecreate registers fn to run after each swap chain rebuild.
func (f *Frame) OnRecreate(fn func()) { f.onRecreate = fn }

func (f *Frame) SwapChain() *SwapChain { return f.swap }

func (f *Frame) SyncObjs() *SyncObjs { return f.sync }

func (f *Frame) CommandBuffer() vk.CommandBuffer { return f.cmd }

// Recreate rebuilds the swap chain for the current framebuffer size.
func (f *Frame) Recreate() error {
	w, h := f.size()
	if err := f.swap.Recreate(w, h); err != nil {
		return err
	}
	f.stale = false
	Logger().Debug("swap chain rebuilt", "width", w, "height", h)
	if f.onRecreate != nil {
		f.onRecreate()
	}
	return nil
}

// Render draws one frame with record. An out-of-date swap chain at acquire
// time rebuilds it and skips the frame. A suboptimal or out-of-date result at
// present time, or a pending resize, rebuilds it after presenting. Any other
// present failure is returned without a rebuild.
func (f *Frame) Render(record RecordFunc) error {
	drv := f.ctx.drv

	index, err := f.sync.AcquireNextImage()
	suboptimal := errors.Is(err, ErrSuboptimal)
	switch {
	case errors.Is(err, ErrOutOfDate):
		return f.Recreate()
	case err != nil && !suboptimal:
		return err
	}

	if err := drv.ResetCommandBuffer(f.cmd); err != nil {
		return errors.Wrap(err, "reset frame command buffer")
	}
	if err := drv.BeginCommandBuffer(f.cmd, 0); err != nil {
		return errors.Wrap(err, "begin frame command buffer")
	}
	if err := record(f.cmd, index); err != nil {
		_ = drv.EndCommandBuffer(f.cmd)
		return errors.Wrap(err, "record frame")
	}
	if err := drv.EndCommandBuffer(f.cmd); err != nil {
		return errors.Wrap(err, "end frame command buffer")
	}
	// The fence is reset only when the submit that signals it is next, so a
	// failed frame leaves it signaled for the following acquire.
	if err := f.sync.Reset(); err != nil {
		return err
	}
	if err := f.sync.SubmitCommands(f.ctx.GraphicsQueue(), f.cmd); err != nil {
		return err
	}

	err = f.sync.Present(f.ctx.PresentQueue(), index)
	if err != nil && !IsSurfaceChanged(err) {
		return err
	}
	if err != nil || suboptimal || f.stale {
		return f.Recreate()
	}
	return nil
}

// Destroy waits for the device and releases the command buffer and the
// synchronization objects.
func (f *Frame) Destroy() {
	if f.sync == nil {
		return
	}
	if err := f.ctx.WaitIdle(); err != nil {
		Logger().Warn("wait idle before frame teardown", "error", err)
	}
	FreeCommandBuf(f.ctx, f.cmd)
	f.sync.Destroy()
	f.sync = nil
}
