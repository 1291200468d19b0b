package vkframe

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func newTestSwapChain(t *testing.T, d *fakeDriver) (*DeviceContext, *SwapChain) {
	t.Helper()
	ctx := newTestContext(t, d)
	sc, err := NewSwapChain(ctx, fakeSurface, 800, 600, false, false)
	require.NoError(t, err)
	d.calls = nil
	return ctx, sc
}

func TestNewSyncObjs(t *testing.T) {
	d := newFakeDriver()
	ctx, sc := newTestSwapChain(t, d)
	defer ctx.Destroy()
	defer sc.Cleanup()

	s, err := NewSyncObjs(ctx, sc)
	require.NoError(t, err)
	assert.Equal(t, 2, d.created["semaphore"])
	assert.Equal(t, 1, d.created["fence"])
	assert.True(t, d.fenceSignaled[s.inFlight], "fence must start signaled")

	require.NoError(t, s.Allocate())
	assert.Equal(t, 2, d.created["semaphore"], "second Allocate must not create more")

	s.Destroy()
	s.Destroy()
	assert.Equal(t, 2, d.destroyed["semaphore"])
	assert.Equal(t, 1, d.destroyed["fence"])
	assert.Empty(t, d.badFrees)
}

func TestNewSyncObjsFailureReleases(t *testing.T) {
	for _, op := range []string{"CreateSemaphore", "CreateFence"} {
		t.Run(op, func(t *testing.T) {
			d := newFakeDriver()
			ctx, sc := newTestSwapChain(t, d)
			defer ctx.Destroy()
			defer sc.Cleanup()

			d.fail[op] = vk.ErrorOutOfHostMemory
			_, err := NewSyncObjs(ctx, sc)
			require.Error(t, err)
			assert.Zero(t, d.liveCount("semaphore"))
			assert.Zero(t, d.liveCount("fence"))
		})
	}
}

func TestSyncObjsFrameOrder(t *testing.T) {
	d := newFakeDriver()
	ctx, sc := newTestSwapChain(t, d)
	defer ctx.Destroy()
	defer sc.Cleanup()
	s, err := NewSyncObjs(ctx, sc)
	require.NoError(t, err)
	defer s.Destroy()

	for frame := uint32(0); frame < 4; frame++ {
		index, err := s.AcquireNextImage()
		require.NoError(t, err)
		assert.Equal(t, frame%3, index)
		require.NoError(t, s.Reset())
		assert.False(t, d.fenceSignaled[s.inFlight])
		require.NoError(t, s.SubmitCommands(ctx.GraphicsQueue(), nil))
		assert.True(t, d.fenceSignaled[s.inFlight], "submit must signal the in-flight fence")
		require.NoError(t, s.Present(ctx.PresentQueue(), index))
	}
	assert.Equal(t, []string{"WaitForFence", "AcquireNextImage", "ResetFence", "QueueSubmit", "QueuePresent"},
		d.calls[:5])

	submit := d.submits[0]
	require.Len(t, submit.PWaitSemaphores, 1)
	assertSame(t, s.imageAvailable, submit.PWaitSemaphores[0])
	assert.Equal(t, []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		submit.PWaitDstStageMask)
	require.Len(t, submit.PSignalSemaphores, 1)
	assertSame(t, s.renderFinished, submit.PSignalSemaphores[0])
	assertSame(t, s.inFlight, d.submitFences[0])

	present := d.presents[0]
	require.Len(t, present.PWaitSemaphores, 1)
	assertSame(t, s.renderFinished, present.PWaitSemaphores[0])
	assertSame(t, sc.Handle(), present.PSwapchains[0])
	assert.Equal(t, []uint32{0}, present.PImageIndices)
}

func TestSyncObjsAcquireWaitsOnUnsignaledFence(t *testing.T) {
	d := newFakeDriver()
	ctx, sc := newTestSwapChain(t, d)
	defer ctx.Destroy()
	defer sc.Cleanup()
	s, err := NewSyncObjs(ctx, sc)
	require.NoError(t, err)
	defer s.Destroy()

	// Reset without a submit leaves nothing to signal the fence; the fake
	// reports a timeout instead of blocking.
	require.NoError(t, s.Reset())
	_, err = s.AcquireNextImage()
	require.Error(t, err)
	ret, ok := ResultOf(err)
	assert.True(t, ok)
	assert.Equal(t, vk.Timeout, ret)
	assert.NotContains(t, d.calls, "AcquireNextImage")
}

func TestSyncObjsAcquireResults(t *testing.T) {
	tests := []struct {
		name      string
		result    vk.Result
		is        error
		wantIndex bool
		changed   bool
	}{
		{"suboptimal", vk.Suboptimal, ErrSuboptimal, true, true},
		{"out of date", vk.ErrorOutOfDate, ErrOutOfDate, false, true},
		{"device lost", vk.ErrorDeviceLost, nil, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDriver()
			ctx, sc := newTestSwapChain(t, d)
			defer ctx.Destroy()
			defer sc.Cleanup()
			s, err := NewSyncObjs(ctx, sc)
			require.NoError(t, err)
			defer s.Destroy()

			// Move the image index off zero first.
			_, err = s.AcquireNextImage()
			require.NoError(t, err)

			d.acquireResults = []vk.Result{tt.result}
			index, err := s.AcquireNextImage()
			require.Error(t, err)
			assert.Equal(t, tt.changed, IsSurfaceChanged(err))
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is))
			} else {
				ret, ok := ResultOf(err)
				assert.True(t, ok)
				assert.Equal(t, tt.result, ret)
			}
			if tt.wantIndex {
				assert.Equal(t, uint32(1), index)
			} else {
				assert.Equal(t, uint32(0), index)
			}
		})
	}
}

func TestSyncObjsPresentResults(t *testing.T) {
	d := newFakeDriver()
	ctx, sc := newTestSwapChain(t, d)
	defer ctx.Destroy()
	defer sc.Cleanup()
	s, err := NewSyncObjs(ctx, sc)
	require.NoError(t, err)
	defer s.Destroy()

	d.presentResults = []vk.Result{vk.ErrorOutOfDate, vk.Suboptimal, vk.ErrorSurfaceLost}
	assert.True(t, errors.Is(s.Present(ctx.PresentQueue(), 0), ErrOutOfDate))
	assert.True(t, errors.Is(s.Present(ctx.PresentQueue(), 0), ErrSuboptimal))
	err = s.Present(ctx.PresentQueue(), 0)
	assert.False(t, IsSurfaceChanged(err))
	ret, _ := ResultOf(err)
	assert.Equal(t, vk.ErrorSurfaceLost, ret)
}

func TestSyncObjsRequireAllocation(t *testing.T) {
	d := newFakeDriver()
	ctx, sc := newTestSwapChain(t, d)
	defer ctx.Destroy()
	defer sc.Cleanup()

	s := &SyncObjs{ctx: ctx, swap: sc}
	assert.Panics(t, func() { _, _ = s.AcquireNextImage() })
	assert.Panics(t, func() { _ = s.Reset() })
	assert.Panics(t, func() { _ = s.SubmitCommands(ctx.GraphicsQueue(), nil) })
	assert.Panics(t, func() { _ = s.Present(ctx.PresentQueue(), 0) })
	assert.Empty(t, d.calls)
}

func TestSyncObjsSetSwapChain(t *testing.T) {
	d := newFakeDriver()
	ctx, sc := newTestSwapChain(t, d)
	defer ctx.Destroy()
	defer sc.Cleanup()
	s, err := NewSyncObjs(ctx, sc)
	require.NoError(t, err)
	defer s.Destroy()

	other, err := NewSwapChain(ctx, fakeSurface, 800, 600, false, false)
	require.NoError(t, err)
	defer other.Cleanup()
	s.SetSwapChain(other)
	require.NoError(t, s.Present(ctx.PresentQueue(), 0))
	assertSame(t, other.Handle(), d.presents[0].PSwapchains[0])
}
