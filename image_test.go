package vkframe

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/image/bmp"
)

func checkerboard() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{G: 255, A: 255})
	img.Set(0, 1, color.NRGBA{B: 255, A: 255})
	img.Set(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	return img
}

var checkerboardPixels = []byte{
	255, 0, 0, 255, 0, 255, 0, 255,
	0, 0, 255, 255, 255, 255, 255, 255,
}

func TestNewImage2D(t *testing.T) {
	img := NewImage2D(checkerboard())
	assert.Equal(t, uint32(2), img.Width)
	assert.Equal(t, uint32(2), img.Height)
	assert.Equal(t, vk.FormatR8g8b8a8Srgb, img.Format)
	assert.Equal(t, 16, img.NBytes())
	assert.Equal(t, checkerboardPixels, img.Pixels)
}

func TestNewImage2DSubImage(t *testing.T) {
	// A sub-image starts at a non-zero origin and must still be packed.
	sub := checkerboard().SubImage(image.Rect(1, 1, 2, 2))
	img := NewImage2D(sub)
	assert.Equal(t, uint32(1), img.Width)
	assert.Equal(t, []byte{255, 255, 255, 255}, img.Pixels)
}

func TestLoadImage2D(t *testing.T) {
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "board.png")
	f, err := os.Create(pngPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, checkerboard()))
	require.NoError(t, f.Close())

	bmpPath := filepath.Join(dir, "board.bmp")
	f, err = os.Create(bmpPath)
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, checkerboard()))
	require.NoError(t, f.Close())

	for _, path := range []string{pngPath, bmpPath} {
		img, err := LoadImage2D(path)
		require.NoError(t, err, path)
		assert.Equal(t, checkerboardPixels, img.Pixels, path)
	}
}

func TestLoadImage2DErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadImage2D(filepath.Join(dir, "missing.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.png")

	junk := filepath.Join(dir, "junk.png")
	require.NoError(t, os.WriteFile(junk, []byte("not an image"), 0o644))
	_, err = LoadImage2D(junk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode image")
}

func TestNewTexture2DUpload(t *testing.T) {
	d := newFakeDriver()
	ctx := newTestContext(t, d)
	defer ctx.Destroy()

	tex, err := NewTexture2D(ctx, NewImage2D(checkerboard()))
	require.NoError(t, err)

	upload := d.callsOf("CreateImage", "BindImageMemory", "CreateImageView", "CreateBuffer",
		"CmdPipelineBarrier", "CmdCopyBufferToImage", "DestroyBuffer")
	assert.Equal(t, []string{
		"CreateImage", "BindImageMemory", "CreateImageView", "CreateBuffer",
		"CmdPipelineBarrier", "CmdCopyBufferToImage", "CmdPipelineBarrier", "DestroyBuffer",
	}, upload)

	require.Len(t, d.barriers, 2)
	assert.Equal(t, vk.ImageLayoutUndefined, d.barriers[0].OldLayout)
	assert.Equal(t, vk.ImageLayoutTransferDstOptimal, d.barriers[0].NewLayout)
	assert.Equal(t, vk.ImageLayoutTransferDstOptimal, d.barriers[1].OldLayout)
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, d.barriers[1].NewLayout)
	for _, b := range d.barriers {
		assertSame(t, tex.Image(), b.Image)
	}
	require.Len(t, d.imageCopies, 1)
	assert.Equal(t, vk.Extent3D{Width: 2, Height: 2, Depth: 1}, d.imageCopies[0].ImageExtent)

	info := d.imgInfo[tex.Image()]
	assert.Equal(t, vk.FormatR8g8b8a8Srgb, info.Format)
	assert.Equal(t, vk.ImageTilingOptimal, info.Tiling)
	assert.Equal(t, vk.ImageLayoutUndefined, info.InitialLayout)
	assert.Equal(t, vk.ImageUsageFlags(vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit), info.Usage)

	// Staging buffer and its memory are gone; the texture's memory remains.
	assert.Zero(t, d.liveCount("buffer"))
	assert.Equal(t, 1, d.liveCount("memory"))
	assert.Zero(t, d.liveCount("cmdbuf"))

	desc := tex.DescriptorInfo(nil)
	assertSame(t, tex.View(), desc.ImageView)
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, desc.ImageLayout)

	tex.Destroy()
	tex.Destroy()
	assert.Zero(t, d.liveCount("image"))
	assert.Zero(t, d.liveCount("imageview"))
	assert.Zero(t, d.liveCount("memory"))
	assert.Empty(t, d.badFrees)
}

func TestNewTexture1D(t *testing.T) {
	d := newFakeDriver()
	ctx := newTestContext(t, d)
	defer ctx.Destroy()

	tex, err := NewTexture1D(ctx, &Image1D{Width: 4, Format: vk.FormatR8g8b8a8Unorm, Pixels: make([]byte, 16)})
	require.NoError(t, err)
	defer tex.Destroy()
	assert.Equal(t, uint32(4), tex.Width())
	assert.Equal(t, uint32(1), tex.Height())
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, tex.Format())
}

func TestNewTextureFailureCleansUp(t *testing.T) {
	for _, op := range []string{"BindImageMemory", "CreateImageView", "CreateBuffer", "QueueSubmit"} {
		t.Run(op, func(t *testing.T) {
			d := newFakeDriver()
			ctx := newTestContext(t, d)
			defer ctx.Destroy()

			d.fail[op] = vk.ErrorOutOfDeviceMemory
			_, err := NewTexture2D(ctx, NewImage2D(checkerboard()))
			require.Error(t, err)
			assert.Zero(t, d.liveCount("image"))
			assert.Zero(t, d.liveCount("imageview"))
			assert.Zero(t, d.liveCount("buffer"))
			assert.Zero(t, d.liveCount("memory"))
			assert.Zero(t, d.liveCount("cmdbuf"))
		})
	}
}

func TestCreateSampler(t *testing.T) {
	d := newFakeDriver()
	ctx, err := NewDeviceContext(d, fakeInstance, fakeSurface, DefaultDeviceConfig())
	require.NoError(t, err)
	defer ctx.Destroy()

	sampler, err := ctx.CreateSampler(DefaultSamplerInfo())
	require.NoError(t, err)
	require.Len(t, d.samplerInfos, 1)
	info := d.samplerInfos[0]
	assert.Equal(t, vk.Bool32(vk.True), info.AnisotropyEnable)
	assert.Equal(t, float32(16), info.MaxAnisotropy)
	assert.Equal(t, vk.FilterLinear, info.MagFilter)
	assert.Equal(t, vk.SamplerAddressModeRepeat, info.AddressModeU)

	ctx.DestroySampler(sampler)
	assert.Zero(t, d.liveCount("sampler"))
}

func TestCreateSamplerWithoutAnisotropy(t *testing.T) {
	d := newFakeDriver()
	ctx := newTestContext(t, d)
	defer ctx.Destroy()

	info := DefaultSamplerInfo()
	info.MagFilter = vk.FilterNearest
	sampler, err := ctx.CreateSampler(info)
	require.NoError(t, err)
	defer ctx.DestroySampler(sampler)
	assert.Equal(t, vk.Bool32(vk.False), d.samplerInfos[0].AnisotropyEnable)
	assert.Equal(t, vk.FilterNearest, d.samplerInfos[0].MagFilter)
}

func TestTexelSize(t *testing.T) {
	tests := []struct {
		format vk.Format
		size   int
	}{
		{vk.FormatR8g8b8a8Srgb, 4},
		{vk.FormatB8g8r8a8Unorm, 4},
		{vk.FormatR16Uint, 2},
		{vk.FormatR32g32Sfloat, 8},
		{vk.FormatR32g32b32Sfloat, 12},
		{vk.FormatR32g32b32a32Sfloat, 16},
		{vk.FormatD32Sfloat, 0},
		{vk.FormatUndefined, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.size, texelSize(tt.format), "format %d", tt.format)
	}
}

func TestNewTextureShortPixelData(t *testing.T) {
	d := newFakeDriver()
	ctx := newTestContext(t, d)
	defer ctx.Destroy()

	short := &Image2D{Width: 4, Height: 4, Format: vk.FormatR8g8b8a8Srgb, Pixels: make([]byte, 63)}
	assert.PanicsWithValue(t, "vkframe: texture 4x4 needs 64 bytes of pixel data, got 63", func() {
		_, _ = NewTexture2D(ctx, short)
	})
	assert.Panics(t, func() {
		_, _ = NewTexture1D(ctx, &Image1D{Width: 2, Format: vk.FormatD32Sfloat, Pixels: make([]byte, 8)})
	})
	assert.Zero(t, d.created["image"], "nothing is created for rejected pixel data")

	exact := &Image2D{Width: 4, Height: 4, Format: vk.FormatR8g8b8a8Srgb, Pixels: make([]byte, 64)}
	tex, err := NewTexture2D(ctx, exact)
	require.NoError(t, err)
	tex.Destroy()
}
