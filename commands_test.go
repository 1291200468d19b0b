package vkframe

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestRunOneShot(t *testing.T) {
	d := newFakeDriver()
	ctx := newTestContext(t, d)
	defer ctx.Destroy()

	var recorded vk.CommandBuffer
	err := RunOneShot(ctx, func(cmd vk.CommandBuffer) error {
		recorded = cmd
		return nil
	})
	require.NoError(t, err)
	assert.NotNil(t, recorded)
	assert.Equal(t, []string{
		"AllocateCommandBuffer", "BeginCommandBuffer", "EndCommandBuffer",
		"QueueSubmit", "QueueWaitIdle", "FreeCommandBuffer",
	}, d.calls)
	require.Len(t, d.submits, 1)
	require.Len(t, d.submits[0].PCommandBuffers, 1)
	assertSame(t, recorded, d.submits[0].PCommandBuffers[0])
	assertSame(t, vk.NullFence, d.submitFences[0])
	assert.Zero(t, d.liveCount("cmdbuf"))
}

func TestRunOneShotRecordError(t *testing.T) {
	d := newFakeDriver()
	ctx := newTestContext(t, d)
	defer ctx.Destroy()

	boom := errors.New("boom")
	err := RunOneShot(ctx, func(vk.CommandBuffer) error { return boom })
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, []string{
		"AllocateCommandBuffer", "BeginCommandBuffer", "EndCommandBuffer", "FreeCommandBuffer",
	}, d.calls)
	assert.Zero(t, d.liveCount("cmdbuf"))
}

func TestRunOneShotFailures(t *testing.T) {
	for _, op := range []string{"BeginCommandBuffer", "EndCommandBuffer", "QueueSubmit", "QueueWaitIdle"} {
		t.Run(op, func(t *testing.T) {
			d := newFakeDriver()
			ctx := newTestContext(t, d)
			defer ctx.Destroy()

			d.fail[op] = vk.ErrorDeviceLost
			err := RunOneShot(ctx, func(vk.CommandBuffer) error { return nil })
			require.Error(t, err)
			ret, ok := ResultOf(err)
			assert.True(t, ok)
			assert.Equal(t, vk.ErrorDeviceLost, ret)
			assert.Zero(t, d.liveCount("cmdbuf"), "command buffer leaked")
		})
	}
}

func TestRunOneShotAllocateFailure(t *testing.T) {
	d := newFakeDriver()
	ctx := newTestContext(t, d)
	defer ctx.Destroy()

	d.fail["AllocateCommandBuffer"] = vk.ErrorOutOfHostMemory
	called := false
	err := RunOneShot(ctx, func(vk.CommandBuffer) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.NotContains(t, d.calls, "FreeCommandBuffer")
}

func TestTransitionFor(t *testing.T) {
	tr, err := transitionFor(vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	require.NoError(t, err)
	assert.Equal(t, vk.AccessFlags(0), tr.srcAccess)
	assert.Equal(t, vk.AccessFlags(vk.AccessTransferWriteBit), tr.dstAccess)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), tr.srcStage)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTransferBit), tr.dstStage)

	tr, err = transitionFor(vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	require.NoError(t, err)
	assert.Equal(t, vk.AccessFlags(vk.AccessTransferWriteBit), tr.srcAccess)
	assert.Equal(t, vk.AccessFlags(vk.AccessShaderReadBit), tr.dstAccess)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTransferBit), tr.srcStage)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), tr.dstStage)

	unsupported := [][2]vk.ImageLayout{
		{vk.ImageLayoutUndefined, vk.ImageLayoutShaderReadOnlyOptimal},
		{vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferDstOptimal},
		{vk.ImageLayoutUndefined, vk.ImageLayoutPresentSrc},
	}
	for _, pair := range unsupported {
		_, err := transitionFor(pair[0], pair[1])
		assert.True(t, errors.Is(err, ErrUnsupportedTransition), "%d -> %d", pair[0], pair[1])
	}
}

func TestTransitionImageLayout(t *testing.T) {
	d := newFakeDriver()
	ctx := newTestContext(t, d)
	defer ctx.Destroy()

	img := vk.Image(fakePointer())
	err := TransitionImageLayout(ctx, img, vk.FormatR8g8b8a8Srgb,
		vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	require.NoError(t, err)
	require.Len(t, d.barriers, 1)
	b := d.barriers[0]
	assertSame(t, img, b.Image)
	assert.Equal(t, vk.ImageLayoutUndefined, b.OldLayout)
	assert.Equal(t, vk.ImageLayoutTransferDstOptimal, b.NewLayout)
	assert.Equal(t, vk.AccessFlags(vk.AccessTransferWriteBit), b.DstAccessMask)
	assert.Equal(t, uint32(vk.QueueFamilyIgnored), b.SrcQueueFamilyIndex)
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit), b.SubresourceRange.AspectMask)
	assert.Equal(t, uint32(1), b.SubresourceRange.LevelCount)
	assert.Equal(t, uint32(1), b.SubresourceRange.LayerCount)
}

func TestTransitionImageLayoutUnsupportedTouchesNothing(t *testing.T) {
	d := newFakeDriver()
	ctx := newTestContext(t, d)
	defer ctx.Destroy()

	img := vk.Image(fakePointer())
	err := TransitionImageLayout(ctx, img, vk.FormatR8g8b8a8Srgb,
		vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal)
	assert.True(t, errors.Is(err, ErrUnsupportedTransition))
	assert.Empty(t, d.calls)
}

func TestCopyBufferToImage(t *testing.T) {
	d := newFakeDriver()
	ctx := newTestContext(t, d)
	defer ctx.Destroy()

	buf, err := NewStagingBuffer(ctx, make([]byte, 4*3*2))
	require.NoError(t, err)
	defer buf.Destroy()

	img := vk.Image(fakePointer())
	require.NoError(t, CopyBufferToImage(ctx, buf, img, 3, 2))
	require.Len(t, d.imageCopies, 1)
	region := d.imageCopies[0]
	assert.Equal(t, vk.Extent3D{Width: 3, Height: 2, Depth: 1}, region.ImageExtent)
	assert.Equal(t, vk.DeviceSize(0), region.BufferOffset)
	assert.Equal(t, uint32(0), region.ImageSubresource.MipLevel)
	assert.Equal(t, uint32(1), region.ImageSubresource.LayerCount)
}

func TestCopyBufferTooLarge(t *testing.T) {
	d := newFakeDriver()
	ctx := newTestContext(t, d)
	defer ctx.Destroy()

	small, err := NewStagingBuffer(ctx, make([]byte, 8))
	require.NoError(t, err)
	defer small.Destroy()
	big, err := NewVertexBuffer(ctx, 16)
	require.NoError(t, err)
	defer big.Destroy()

	assert.Panics(t, func() { _ = CopyBuffer(ctx, small, big.Buffer, 16) })
	require.NoError(t, CopyBuffer(ctx, small, big.Buffer, 8))
}
