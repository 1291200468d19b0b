package vkframe

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// newGLFWWindow creates a GLFW window with no client API, so Vulkan can own
// its surface.
func newGLFWWindow(cfg WindowConfig) (*glfw.Window, error) {
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	resizable := glfw.False
	if cfg.Resizable {
		resizable = glfw.True
	}
	glfw.WindowHint(glfw.Resizable, resizable)

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "create window %q", cfg.Title)
	}
	return win, nil
}

// createSurface makes the Vulkan surface for win.
func createSurface(win *glfw.Window, instance *Instance) (vk.Surface, error) {
	ptr, err := win.CreateWindowSurface(instance.Handle(), nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "create window surface")
	}
	return vk.SurfaceFromPointer(ptr), nil
}
