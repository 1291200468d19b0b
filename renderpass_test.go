package vkframe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestAttachmentsColourOnly(t *testing.T) {
	d := newFakeDriver()
	ctx := newTestContext(t, d)
	defer ctx.Destroy()

	sc, err := NewSwapChain(ctx, fakeSurface, 800, 600, false, false)
	require.NoError(t, err)
	defer sc.Cleanup()

	descs, refs := sc.Attachments()
	require.Len(t, descs, 1)
	require.Len(t, refs, 1)
	c := descs[0]
	assert.Equal(t, sc.Format(), c.Format)
	assert.Equal(t, vk.AttachmentLoadOpClear, c.LoadOp)
	assert.Equal(t, vk.AttachmentStoreOpStore, c.StoreOp)
	assert.Equal(t, vk.ImageLayoutUndefined, c.InitialLayout)
	assert.Equal(t, vk.ImageLayoutPresentSrc, c.FinalLayout)
	assert.Equal(t, uint32(0), refs[0].Attachment)
	assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, refs[0].Layout)
}

func TestAttachmentsDepthStencil(t *testing.T) {
	tests := []struct {
		name        string
		stencil     bool
		stencilLoad vk.AttachmentLoadOp
	}{
		{"depth", false, vk.AttachmentLoadOpDontCare},
		{"depth and stencil", true, vk.AttachmentLoadOpClear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDriver()
			ctx := newTestContext(t, d)
			defer ctx.Destroy()

			sc, err := NewSwapChain(ctx, fakeSurface, 800, 600, true, tt.stencil)
			require.NoError(t, err)
			defer sc.Cleanup()

			descs, refs := sc.Attachments()
			require.Len(t, descs, 2)
			require.Len(t, refs, 2)
			ds := descs[1]
			assert.Equal(t, sc.DepthStencil().Format, ds.Format)
			assert.Equal(t, vk.AttachmentLoadOpClear, ds.LoadOp)
			assert.Equal(t, vk.AttachmentStoreOpDontCare, ds.StoreOp)
			assert.Equal(t, tt.stencilLoad, ds.StencilLoadOp)
			assert.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, ds.FinalLayout)
			assert.Equal(t, uint32(1), refs[1].Attachment)
			assert.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, refs[1].Layout)
		})
	}
}

func TestNewRenderPass(t *testing.T) {
	d := newFakeDriver()
	ctx := newTestContext(t, d)
	defer ctx.Destroy()

	sc, err := NewSwapChain(ctx, fakeSurface, 800, 600, true, false)
	require.NoError(t, err)
	defer sc.Cleanup()

	rp, err := NewRenderPass(ctx, sc)
	require.NoError(t, err)
	require.Len(t, d.renderPassInfos, 1)
	info := d.renderPassInfos[0]
	assert.Equal(t, uint32(2), info.AttachmentCount)
	assert.Equal(t, uint32(1), info.SubpassCount)

	subpass := info.PSubpasses[0]
	assert.Equal(t, vk.PipelineBindPointGraphics, subpass.PipelineBindPoint)
	assert.Equal(t, uint32(1), subpass.ColorAttachmentCount)
	require.NotNil(t, subpass.PDepthStencilAttachment)
	assert.Equal(t, uint32(1), subpass.PDepthStencilAttachment.Attachment)

	require.Len(t, info.PDependencies, 1)
	dep := info.PDependencies[0]
	assert.Equal(t, uint32(vk.MaxUint32), dep.SrcSubpass)
	assert.Equal(t, uint32(0), dep.DstSubpass)
	assert.NotZero(t, dep.DstStageMask&vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit))
	assert.NotZero(t, dep.DstStageMask&vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit))
	assert.NotZero(t, dep.DstAccessMask&vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit))

	rp.Destroy()
	rp.Destroy()
	assert.Equal(t, 1, d.destroyed["renderpass"])
}

func TestNewRenderPassColourOnly(t *testing.T) {
	d := newFakeDriver()
	ctx := newTestContext(t, d)
	defer ctx.Destroy()

	sc, err := NewSwapChain(ctx, fakeSurface, 800, 600, false, false)
	require.NoError(t, err)
	defer sc.Cleanup()

	rp, err := NewRenderPass(ctx, sc)
	require.NoError(t, err)
	defer rp.Destroy()
	info := d.renderPassInfos[0]
	assert.Equal(t, uint32(1), info.AttachmentCount)
	assert.Nil(t, info.PSubpasses[0].PDepthStencilAttachment)
	assert.Zero(t, info.PDependencies[0].DstStageMask&vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit))
}

func TestRenderPassBegin(t *testing.T) {
	d := newFakeDriver()
	ctx := newTestContext(t, d)
	defer ctx.Destroy()

	sc, err := NewSwapChain(ctx, fakeSurface, 800, 600, true, false)
	require.NoError(t, err)
	defer sc.Cleanup()
	rp, err := NewRenderPass(ctx, sc)
	require.NoError(t, err)
	defer rp.Destroy()
	require.NoError(t, sc.InitFramebuffers(rp.Handle()))

	rp.SetClearColor(0.25, 0.5, 0.75, 1)
	rp.Begin(nil, sc, sc.Framebuffer(1))
	rp.End(nil)

	assert.Equal(t, []string{"CmdBeginRenderPass", "CmdEndRenderPass"},
		d.callsOf("CmdBeginRenderPass", "CmdEndRenderPass"))
	require.Len(t, d.beginPasses, 1)
	begin := d.beginPasses[0]
	assertSame(t, rp.Handle(), begin.RenderPass)
	assertSame(t, sc.Framebuffer(1), begin.Framebuffer)
	assert.Equal(t, sc.RenderArea(), begin.RenderArea)
	assert.Equal(t, uint32(2), begin.ClearValueCount)
	assert.Len(t, begin.PClearValues, 2)
}
