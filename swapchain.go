package vkframe

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// SwapChainDetails is what the surface reports about itself.
type SwapChainDetails struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// QuerySwapChainDetails asks the GPU for the surface capabilities, formats
// and present modes.
func QuerySwapChainDetails(drv Driver, gpu vk.PhysicalDevice, surface vk.Surface) (SwapChainDetails, error) {
	var details SwapChainDetails
	var err error
	if details.Capabilities, err = drv.SurfaceCapabilities(gpu, surface); err != nil {
		return details, errors.Wrap(err, "surface capabilities")
	}
	if details.Formats, err = drv.SurfaceFormats(gpu, surface); err != nil {
		return details, errors.Wrap(err, "surface formats")
	}
	if details.PresentModes, err = drv.SurfacePresentModes(gpu, surface); err != nil {
		return details, errors.Wrap(err, "surface present modes")
	}
	return details, nil
}

// ChooseSurfaceFormat prefers B8G8R8A8_SRGB with the sRGB non-linear colour
// space and otherwise takes the first format listed. formats must not be
// empty.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

// ChoosePresentMode prefers mailbox and falls back to FIFO, which every
// implementation supports.
func ChoosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent returns the surface's current extent, or the framebuffer size
// clamped to the allowed range when the surface leaves the choice to us.
func ChooseExtent(caps vk.SurfaceCapabilities, fbWidth, fbHeight int) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clampUint32(uint32(maxInt(fbWidth, 0)), caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clampUint32(uint32(maxInt(fbHeight, 0)), caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image more than the minimum, bounded by the
// maximum when the surface has one.
func ChooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

func clampUint32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// DepthStencilBuffer is the swap chain's depth and/or stencil attachment.
type DepthStencilBuffer struct {
	Format vk.Format
	Image  vk.Image
	Memory *MemoryObject
	View   vk.ImageView
}

func depthStencilAspect(format vk.Format) vk.ImageAspectFlags {
	switch format {
	case vk.FormatS8Uint:
		return vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	case vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
}

func newDepthStencilBuffer(ctx *DeviceContext, format vk.Format, extent vk.Extent2D) (ds *DepthStencilBuffer, err error) {
	img, err := CreateImage(ctx, ImageInfo{
		Width:  extent.Width,
		Height: extent.Height,
		Format: format,
		Tiling: vk.ImageTilingOptimal,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
	})
	if err != nil {
		return nil, errors.Wrap(err, "depth/stencil image")
	}
	buf := &DepthStencilBuffer{Format: format, Image: img}
	defer func() {
		if err != nil {
			buf.destroy(ctx)
		}
	}()
	if buf.Memory, err = AllocImageMemory(ctx, img, DeviceLocal); err != nil {
		return nil, errors.Wrap(err, "depth/stencil memory")
	}
	if buf.View, err = CreateImageView(ctx, img, format, depthStencilAspect(format)); err != nil {
		return nil, errors.Wrap(err, "depth/stencil view")
	}
	return buf, nil
}

func (ds *DepthStencilBuffer) destroy(ctx *DeviceContext) {
	if ds.View != vk.NullImageView {
		ctx.drv.DestroyImageView(ctx.device, ds.View)
		ds.View = vk.NullImageView
	}
	if ds.Image != vk.NullImage {
		ctx.drv.DestroyImage(ctx.device, ds.Image)
		ds.Image = vk.NullImage
	}
	if ds.Memory != nil {
		ds.Memory.Destroy()
		ds.Memory = nil
	}
}

// SwapChain is the set of presentable images for a surface. The images
// belong to the presentation engine and are never destroyed here; the views,
// the depth/stencil buffer and the framebuffers are owned.
type SwapChain struct {
	ctx     *DeviceContext
	surface vk.Surface
	depth   bool
	stencil bool

	chain       vk.Swapchain
	images      []vk.Image
	views       []vk.ImageView
	format      vk.SurfaceFormat
	presentMode vk.PresentMode
	extent      vk.Extent2D
	// dsBuf is nil when no depth or stencil attachment was requested.
	dsBuf *DepthStencilBuffer

	renderPass   vk.RenderPass
	framebuffers []vk.Framebuffer
}

// NewSwapChain creates a swap chain for surface sized from the framebuffer
// size, with a depth/stencil buffer when depth or stencil is requested.
func NewSwapChain(ctx *DeviceContext, surface vk.Surface, fbWidth, fbHeight int, depth, stencil bool) (*SwapChain, error) {
	sc := &SwapChain{ctx: ctx, surface: surface, depth: depth, stencil: stencil}
	if err := sc.create(fbWidth, fbHeight); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *SwapChain) create(fbWidth, fbHeight int) (err error) {
	ctx := sc.ctx
	drv, device := ctx.drv, ctx.device

	dsFormat := ctx.DepthStencilFormat(sc.depth, sc.stencil)
	if dsFormat == vk.FormatUndefined && (sc.depth || sc.stencil) {
		return errors.WithStack(ErrNoDepthFormat)
	}

	details, err := QuerySwapChainDetails(drv, ctx.gpu, sc.surface)
	if err != nil {
		return err
	}
	if len(details.Formats) == 0 {
		return errors.New("surface reports no formats")
	}
	caps := details.Capabilities
	sc.format = ChooseSurfaceFormat(details.Formats)
	sc.presentMode = ChoosePresentMode(details.PresentModes)
	sc.extent = ChooseExtent(caps, fbWidth, fbHeight)

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          sc.surface,
		MinImageCount:    ChooseImageCount(caps),
		ImageFormat:      sc.format.Format,
		ImageColorSpace:  sc.format.ColorSpace,
		ImageExtent:      sc.extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      sc.presentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}
	if fams := ctx.families; fams.Separate() {
		info.ImageSharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = 2
		info.PQueueFamilyIndices = fams.Indices()
	}

	sc.chain, err = drv.CreateSwapchain(device, &info)
	if err != nil {
		return errors.Wrap(err, "create swap chain")
	}
	defer func() {
		if err != nil {
			sc.Cleanup()
		}
	}()

	if sc.images, err = drv.SwapchainImages(device, sc.chain); err != nil {
		return errors.Wrap(err, "swap chain images")
	}
	sc.views = make([]vk.ImageView, 0, len(sc.images))
	for _, img := range sc.images {
		view, err := CreateImageView(ctx, img, sc.format.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return errors.Wrap(err, "swap chain image view")
		}
		sc.views = append(sc.views, view)
	}

	if dsFormat != vk.FormatUndefined {
		if sc.dsBuf, err = newDepthStencilBuffer(ctx, dsFormat, sc.extent); err != nil {
			return err
		}
	}

	Logger().Debug("swap chain created",
		"images", len(sc.images),
		"width", sc.extent.Width, "height", sc.extent.Height,
		"format", sc.format.Format, "present_mode", sc.presentMode,
		"depth_format", dsFormat)
	return nil
}

// InitFramebuffers creates one framebuffer per image for renderPass,
// replacing any made before.
func (sc *SwapChain) InitFramebuffers(renderPass vk.RenderPass) error {
	must(len(sc.views) > 0, "framebuffers for an empty swap chain")
	sc.destroyFramebuffers()
	sc.renderPass = renderPass

	attachments := make([]vk.ImageView, sc.NumAttachments())
	if sc.dsBuf != nil {
		attachments[1] = sc.dsBuf.View
	}
	sc.framebuffers = make([]vk.Framebuffer, 0, len(sc.views))
	for _, view := range sc.views {
		attachments[0] = view
		fb, err := sc.ctx.drv.CreateFramebuffer(sc.ctx.device, &vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      renderPass,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    append([]vk.ImageView(nil), attachments...),
			Width:           sc.extent.Width,
			Height:          sc.extent.Height,
			Layers:          1,
		})
		if err != nil {
			sc.destroyFramebuffers()
			return errors.Wrap(err, "create framebuffer")
		}
		sc.framebuffers = append(sc.framebuffers, fb)
	}
	return nil
}

// Recreate waits for the device to go idle, destroys every size-dependent
// object and builds them again for the new framebuffer size. Framebuffers are
// rebuilt against the last render pass given to InitFramebuffers.
func (sc *SwapChain) Recreate(fbWidth, fbHeight int) error {
	if err := sc.ctx.WaitIdle(); err != nil {
		return err
	}
	renderPass := sc.renderPass
	sc.Cleanup()
	if err := sc.create(fbWidth, fbHeight); err != nil {
		return errors.Wrap(err, "recreate swap chain")
	}
	if renderPass != vk.NullRenderPass {
		return sc.InitFramebuffers(renderPass)
	}
	return nil
}

func (sc *SwapChain) destroyFramebuffers() {
	for _, fb := range sc.framebuffers {
		sc.ctx.drv.DestroyFramebuffer(sc.ctx.device, fb)
	}
	sc.framebuffers = nil
}

// Cleanup destroys the framebuffers, the image views, the depth/stencil
// buffer and the swap chain. The images themselves are left alone.
func (sc *SwapChain) Cleanup() {
	drv, device := sc.ctx.drv, sc.ctx.device
	sc.destroyFramebuffers()
	for _, view := range sc.views {
		drv.DestroyImageView(device, view)
	}
	sc.views = nil
	if sc.dsBuf != nil {
		sc.dsBuf.destroy(sc.ctx)
		sc.dsBuf = nil
	}
	if sc.chain != vk.NullSwapchain {
		drv.DestroySwapchain(device, sc.chain)
		sc.chain = vk.NullSwapchain
	}
	sc.images = nil
}

// Handle returns the vk.Swapchain.
func (sc *SwapChain) Handle() vk.Swapchain { return sc.chain }

// Size is the number of images in the chain.
func (sc *SwapChain) Size() int { return len(sc.images) }

func (sc *SwapChain) Images() []vk.Image { return sc.images }

func (sc *SwapChain) Views() []vk.ImageView { return sc.views }

// Format is the colour format of the images.
func (sc *SwapChain) Format() vk.Format { return sc.format.Format }

func (sc *SwapChain) SurfaceFormat() vk.SurfaceFormat { return sc.format }

func (sc *SwapChain) PresentMode() vk.PresentMode { return sc.presentMode }

func (sc *SwapChain) Extent() vk.Extent2D { return sc.extent }

// DepthStencil returns the depth/stencil buffer, or nil when there is none.
func (sc *SwapChain) DepthStencil() *DepthStencilBuffer { return sc.dsBuf }

// NumAttachments is 1 for colour only and 2 with a depth/stencil buffer.
func (sc *SwapChain) NumAttachments() int {
	if sc.dsBuf != nil {
		return 2
	}
	return 1
}

// Framebuffer returns the framebuffer for image i.
func (sc *SwapChain) Framebuffer(i uint32) vk.Framebuffer {
	must(int(i) < len(sc.framebuffers), "framebuffer %d of %d", i, len(sc.framebuffers))
	return sc.framebuffers[i]
}

func (sc *SwapChain) Framebuffers() []vk.Framebuffer { return sc.framebuffers }

// RenderArea covers the whole extent.
func (sc *SwapChain) RenderArea() vk.Rect2D {
	return vk.Rect2D{Offset: vk.Offset2D{}, Extent: sc.extent}
}

// SetViewportCmd sets a viewport over the whole extent with the Y axis
// pointing up, and a matching scissor.
func (sc *SwapChain) SetViewportCmd(cmd vk.CommandBuffer) {
	h := int32(sc.extent.Height)
	sc.SetViewportRectCmd(cmd, 0, h, int32(sc.extent.Width), -h)
}

// SetViewportRectCmd sets the viewport to the given rectangle. A negative
// height flips the Y axis. The scissor covers the same area.
func (sc *SwapChain) SetViewportRectCmd(cmd vk.CommandBuffer, x, y, w, h int32) {
	drv := sc.ctx.drv
	drv.CmdSetViewport(cmd, vk.Viewport{
		X:        float32(x),
		Y:        float32(y),
		Width:    float32(w),
		Height:   float32(h),
		MinDepth: 0,
		MaxDepth: 1,
	})
	sx, sy := x, y
	if w < 0 {
		sx, w = x+w, -w
	}
	if h < 0 {
		sy, h = y+h, -h
	}
	drv.CmdSetScissor(cmd, vk.Rect2D{
		Offset: vk.Offset2D{X: sx, Y: sy},
		Extent: vk.Extent2D{Width: uint32(w), Height: uint32(h)},
	})
}
