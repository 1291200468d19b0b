package vkframe

import (
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

type clearHandler struct {
	win    *Window
	pass   *RenderPass
	frames int
}

func (h *clearHandler) Draw() error {
	h.frames++
	return h.win.Render(func(cmd vk.CommandBuffer, index uint32) error {
		swap := h.win.SwapChain()
		h.pass.Begin(cmd, swap, swap.Framebuffer(index))
		h.win.SetViewportCmd(cmd)
		h.pass.End(cmd)
		return nil
	})
}

// TestRenderClear drives a real GPU. It needs a display and a Vulkan driver,
// and only runs when VKFRAME_GPU_TESTS is set.
func TestRenderClear(t *testing.T) {
	if testing.Short() || runtime.GOOS == "darwin" || os.Getenv("VKFRAME_GPU_TESTS") == "" {
		t.Skip("GPU tests disabled")
	}
	if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		t.Skip("no display")
	}

	cfg := DefaultConfig()
	cfg.Window.Title = "vkframe test"
	app, err := NewApplication(cfg)
	if err != nil {
		t.Skipf("no Vulkan: %v", err)
	}
	defer app.Destroy()

	h := &clearHandler{}
	h.win, err = app.NewWindow(h, cfg.Window)
	if err != nil {
		t.Skipf("no usable device: %v", err)
	}
	h.pass, err = h.win.NewRenderPass()
	require.NoError(t, err)
	defer h.pass.Destroy()

	h.pass.SetClearColor(0.2, 0.3, 0.4, 1)
	for i := 0; i < 5; i++ {
		require.NoError(t, h.win.Refresh())
	}
	require.NoError(t, h.win.RecreateSwapChain())
	require.NoError(t, h.win.Refresh())
	require.NoError(t, app.Context().WaitIdle())
	assert.Equal(t, 6, h.frames)
}
