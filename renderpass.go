package vkframe

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

func hasStencil(format vk.Format) bool {
	return depthStencilAspect(format)&vk.ImageAspectFlags(vk.ImageAspectStencilBit) != 0
}

// Attachments describes the swap chain's attachments for a render pass: the
// colour attachment cleared, stored and left ready to present, followed by
// the depth/stencil attachment when there is one. The references index into
// the descriptions in the same order.
func (sc *SwapChain) Attachments() ([]vk.AttachmentDescription, []vk.AttachmentReference) {
	descs := []vk.AttachmentDescription{{
		Format:         sc.format.Format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}
	refs := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	if sc.dsBuf == nil {
		return descs, refs
	}

	ds := vk.AttachmentDescription{
		Format:         sc.dsBuf.Format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	if hasStencil(ds.Format) {
		ds.StencilLoadOp = vk.AttachmentLoadOpClear
	}
	descs = append(descs, ds)
	refs = append(refs, vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	})
	return descs, refs
}

// RenderPass is a single-subpass graphics render pass over a swap chain's
// attachments.
type RenderPass struct {
	ctx         *DeviceContext
	handle      vk.RenderPass
	clearValues []vk.ClearValue
}

// NewRenderPass creates the default render pass for swap: one subpass writing
// the colour attachment and, when present, the depth/stencil attachment.
func NewRenderPass(ctx *DeviceContext, swap *SwapChain) (*RenderPass, error) {
	descs, refs := swap.Attachments()

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    refs[:1],
	}
	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	access := vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	if len(refs) > 1 {
		subpass.PDepthStencilAttachment = &refs[1]
		stages |= vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
		access |= vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
	}

	// Wait for the presentation engine to release the image before writing it.
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.MaxUint32,
		DstSubpass:    0,
		SrcStageMask:  stages,
		DstStageMask:  stages,
		SrcAccessMask: 0,
		DstAccessMask: access,
	}

	handle, err := ctx.drv.CreateRenderPass(ctx.device, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(descs)),
		PAttachments:    descs,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create render pass")
	}

	clear := make([]vk.ClearValue, len(descs))
	clear[0].SetColor([]float32{0, 0, 0, 1})
	if len(descs) > 1 {
		clear[1].SetDepthStencil(1, 0)
	}
	return &RenderPass{ctx: ctx, handle: handle, clearValues: clear}, nil
}

// Handle returns the vk.RenderPass.
func (rp *RenderPass) Handle() vk.RenderPass { return rp.handle }

// SetClearColor changes the colour the colour attachment is cleared to.
func (rp *RenderPass) SetClearColor(r, g, b, a float32) {
	rp.clearValues[0].SetColor([]float32{r, g, b, a})
}

// Begin starts the render pass on framebuffer fb covering swap's extent.
func (rp *RenderPass) Begin(cmd vk.CommandBuffer, swap *SwapChain, fb vk.Framebuffer) {
	rp.ctx.drv.CmdBeginRenderPass(cmd, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      rp.handle,
		Framebuffer:     fb,
		RenderArea:      swap.RenderArea(),
		ClearValueCount: uint32(len(rp.clearValues)),
		PClearValues:    rp.clearValues,
	})
}

func (rp *RenderPass) End(cmd vk.CommandBuffer) {
	rp.ctx.drv.CmdEndRenderPass(cmd)
}

// Destroy releases the render pass.
func (rp *RenderPass) Destroy() {
	if rp.handle == vk.NullRenderPass {
		return
	}
	rp.ctx.drv.DestroyRenderPass(rp.ctx.device, rp.handle)
	rp.handle = vk.NullRenderPass
}
