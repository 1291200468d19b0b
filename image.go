package vkframe

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// ImageInfo describes a single-mip, single-layer 2D image.
type ImageInfo struct {
	Width, Height uint32
	Format        vk.Format
	Tiling        vk.ImageTiling
	Usage         vk.ImageUsageFlags
}

// CreateImage creates an image in the Undefined layout. Memory is not bound.
func CreateImage(ctx *DeviceContext, info ImageInfo) (vk.Image, error) {
	img, err := ctx.drv.CreateImage(ctx.device, &vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    info.Format,
		Extent: vk.Extent3D{
			Width:  info.Width,
			Height: info.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        info.Tiling,
		Usage:         info.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	})
	return img, errors.Wrap(err, "create image")
}

// AllocImageMemory allocates memory with props for img and binds it.
func AllocImageMemory(ctx *DeviceContext, img vk.Image, props vk.MemoryPropertyFlags) (*MemoryObject, error) {
	mem, err := NewMemoryObject(ctx, ctx.drv.ImageMemoryRequirements(ctx.device, img), props)
	if err != nil {
		return nil, errors.Wrap(err, "image memory")
	}
	if err := ctx.drv.BindImageMemory(ctx.device, img, mem.Handle(), 0); err != nil {
		mem.Destroy()
		return nil, errors.Wrap(err, "bind image memory")
	}
	return mem, nil
}

// CreateImageView creates a 2D view over the single mip level and layer of img.
func CreateImageView(ctx *DeviceContext, img vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	must(img != vk.NullImage, "image view of a null image")
	view, err := ctx.drv.CreateImageView(ctx.device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	return view, errors.Wrap(err, "create image view")
}

// Image1D is a row of pixels in host memory.
type Image1D struct {
	Width  uint32
	Format vk.Format
	Pixels []byte
}

// Image2D is a tightly packed image in host memory.
type Image2D struct {
	Width, Height uint32
	Format        vk.Format
	Pixels        []byte
}

// NBytes is the size of the pixel data.
func (img *Image2D) NBytes() int { return len(img.Pixels) }

// LoadImage2D decodes a PNG, JPEG, GIF, BMP or TIFF file into RGBA8 pixels.
func LoadImage2D(path string) (*Image2D, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open image %s", path)
	}
	defer f.Close()

	src, format, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode image %s", path)
	}
	Logger().Debug("image loaded", "path", path, "format", format,
		"width", src.Bounds().Dx(), "height", src.Bounds().Dy())
	return NewImage2D(src), nil
}

// NewImage2D converts src into tightly packed sRGB RGBA8 pixels.
func NewImage2D(src image.Image) *Image2D {
	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	return &Image2D{
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
		Format: vk.FormatR8g8b8a8Srgb,
		Pixels: rgba.Pix,
	}
}

// Texture is a sampled device-local image with its view.
type Texture struct {
	ctx    *DeviceContext
	image  vk.Image
	view   vk.ImageView
	mem    *MemoryObject
	format vk.Format
	width  uint32
	height uint32
}

// Texture1D is a texture with a height of one.
type Texture1D struct {
	*Texture
}

// Texture2D is a two-dimensional texture.
type Texture2D struct {
	*Texture
}

// NewTexture1D uploads img to a new texture.
func NewTexture1D(ctx *DeviceContext, img *Image1D) (*Texture1D, error) {
	tex, err := newTexture(ctx, img.Width, 1, img.Format, img.Pixels)
	if err != nil {
		return nil, errors.Wrap(err, "texture 1D")
	}
	return &Texture1D{tex}, nil
}

// NewTexture2D uploads img to a new texture.
func NewTexture2D(ctx *DeviceContext, img *Image2D) (*Texture2D, error) {
	tex, err := newTexture(ctx, img.Width, img.Height, img.Format, img.Pixels)
	if err != nil {
		return nil, errors.Wrap(err, "texture 2D")
	}
	return &Texture2D{tex}, nil
}

// texelSize is the size in bytes of one texel of an uncompressed colour
// format, or 0 for formats textures cannot be uploaded in.
func texelSize(format vk.Format) int {
	switch format {
	case vk.FormatR16Uint, vk.FormatR16Sint:
		return 2
	case vk.FormatR8g8b8a8Unorm, vk.FormatR8g8b8a8Uint, vk.FormatR8g8b8a8Srgb,
		vk.FormatB8g8r8a8Unorm, vk.FormatB8g8r8a8Srgb,
		vk.FormatR32Sfloat, vk.FormatR32Uint, vk.FormatR32Sint:
		return 4
	case vk.FormatR32g32Sfloat, vk.FormatR32g32Uint, vk.FormatR32g32Sint:
		return 8
	case vk.FormatR32g32b32Sfloat:
		return 12
	case vk.FormatR32g32b32a32Sfloat, vk.FormatR32g32b32a32Uint, vk.FormatR32g32b32a32Sint:
		return 16
	}
	return 0
}

// newTexture creates the image, memory and view, fills a staging buffer,
// moves the image to TransferDstOptimal, copies the pixels and moves it to
// ShaderReadOnlyOptimal.
func newTexture(ctx *DeviceContext, width, height uint32, format vk.Format, pixels []byte) (_ *Texture, err error) {
	size := texelSize(format)
	must(size > 0, "unsupported texture format %d", format)
	need := int(width) * int(height) * size
	must(need > 0 && len(pixels) >= need, "texture %dx%d needs %d bytes of pixel data, got %d",
		width, height, need, len(pixels))

	img, err := CreateImage(ctx, ImageInfo{
		Width:  width,
		Height: height,
		Format: format,
		Tiling: vk.ImageTilingOptimal,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
	})
	if err != nil {
		return nil, err
	}
	tex := &Texture{ctx: ctx, image: img, format: format, width: width, height: height}
	defer func() {
		if err != nil {
			tex.Destroy()
		}
	}()

	if tex.mem, err = AllocImageMemory(ctx, img, DeviceLocal); err != nil {
		return nil, err
	}
	if tex.view, err = CreateImageView(ctx, img, format, vk.ImageAspectFlags(vk.ImageAspectColorBit)); err != nil {
		return nil, err
	}

	staging, err := NewStagingBuffer(ctx, pixels)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	if err = TransitionImageLayout(ctx, img, format, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		return nil, err
	}
	if err = CopyBufferToImage(ctx, staging, img, width, height); err != nil {
		return nil, err
	}
	if err = TransitionImageLayout(ctx, img, format, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		return nil, err
	}
	return tex, nil
}

// Image returns the vk.Image.
func (t *Texture) Image() vk.Image { return t.image }

// View returns the image view.
func (t *Texture) View() vk.ImageView { return t.view }

func (t *Texture) Format() vk.Format { return t.format }

func (t *Texture) Width() uint32 { return t.width }

func (t *Texture) Height() uint32 { return t.height }

// DescriptorInfo describes the texture for a combined image sampler binding.
func (t *Texture) DescriptorInfo(sampler vk.Sampler) vk.DescriptorImageInfo {
	return vk.DescriptorImageInfo{
		Sampler:     sampler,
		ImageView:   t.view,
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
}

// Destroy releases the view, the image and its memory.
func (t *Texture) Destroy() {
	drv, device := t.ctx.drv, t.ctx.device
	if t.view != vk.NullImageView {
		drv.DestroyImageView(device, t.view)
		t.view = vk.NullImageView
	}
	if t.image != vk.NullImage {
		drv.DestroyImage(device, t.image)
		t.image = vk.NullImage
	}
	if t.mem != nil {
		t.mem.Destroy()
		t.mem = nil
	}
}
