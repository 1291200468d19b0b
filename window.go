package vkframe

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Handler draws a window's contents. Draw is called from Refresh while the
// window is visible; it usually records the frame with Window.Render.
type Handler interface {
	Draw() error
}

// A Handler may also implement any of the following to receive events. Input
// events are only delivered after the matching Enable*Event call.
type (
	// Reshaper is told the new framebuffer size after a resize. The swap
	// chain is rebuilt before the next frame is presented.
	Reshaper interface {
		Reshape(width, height int)
	}
	Iconifier interface {
		Iconify(iconified bool)
	}
	KeyHandler interface {
		Key(key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey)
	}
	CursorPosHandler interface {
		CursorPos(x, y float64)
	}
	CursorEnterHandler interface {
		CursorEnter(entered bool)
	}
	MouseButtonHandler interface {
		MouseButton(button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey)
	}
	ScrollHandler interface {
		Scroll(xoff, yoff float64)
	}
)

// Window is a GLFW window with a Vulkan surface, a swap chain and the frame
// loop state for drawing to it.
type Window struct {
	app     *Application
	win     *glfw.Window
	cfg     WindowConfig
	handler Handler

	surface vk.Surface
	swap    *SwapChain
	frame   *Frame

	width, height int
	visible       bool
	// err holds a draw error raised inside a GLFW callback until Run sees it.
	err error
}

func newWindow(app *Application, handler Handler, cfg WindowConfig) (_ *Window, err error) {
	glw, err := newGLFWWindow(cfg)
	if err != nil {
		return nil, err
	}
	w := &Window{app: app, win: glw, cfg: cfg, handler: handler, width: cfg.Width, height: cfg.Height}
	defer func() {
		if err != nil {
			w.Destroy()
		}
	}()

	instance, err := app.instanceFor(glw)
	if err != nil {
		return nil, err
	}
	if w.surface, err = createSurface(glw, instance); err != nil {
		return nil, err
	}
	ctx, err := app.deviceFor(w.surface)
	if err != nil {
		return nil, err
	}

	fbw, fbh := glw.GetFramebufferSize()
	if w.swap, err = NewSwapChain(ctx, w.surface, fbw, fbh, cfg.Depth, cfg.Stencil); err != nil {
		return nil, err
	}
	if w.frame, err = NewFrame(ctx, w.swap, glw.GetFramebufferSize); err != nil {
		return nil, err
	}

	glw.SetRefreshCallback(func(*glfw.Window) {
		if err := w.Refresh(); err != nil && w.err == nil {
			w.err = err
		}
	})
	glw.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.reshape(width, height)
	})
	glw.SetIconifyCallback(func(_ *glfw.Window, iconified bool) {
		w.iconify(iconified)
	})
	w.visible = true
	return w, nil
}

func (w *Window) reshape(width, height int) {
	w.width, w.height = width, height
	w.frame.MarkStale()
	if r, ok := w.handler.(Reshaper); ok {
		r.Reshape(width, height)
	}
}

func (w *Window) iconify(iconified bool) {
	w.visible = !iconified
	if ic, ok := w.handler.(Iconifier); ok {
		ic.Iconify(iconified)
	}
}

// Context returns the device context shared by all windows.
func (w *Window) Context() *DeviceContext { return w.app.ctx }

func (w *Window) GLFW() *glfw.Window { return w.win }

func (w *Window) SwapChain() *SwapChain { return w.swap }

func (w *Window) Frame() *Frame { return w.frame }

// Size is the framebuffer size seen by the last resize.
func (w *Window) Size() (int, int) { return w.width, w.height }

func (w *Window) Visible() bool { return w.visible }

// Refresh redraws the window when it is visible.
func (w *Window) Refresh() error {
	if !w.visible {
		return nil
	}
	return w.handler.Draw()
}

// Render runs one frame with record. See Frame.Render.
func (w *Window) Render(record RecordFunc) error {
	return w.frame.Render(record)
}

// NewRenderPass creates the default render pass for the window's swap chain
// and its framebuffers. Framebuffers are rebuilt against it whenever the swap
// chain is.
func (w *Window) NewRenderPass() (*RenderPass, error) {
	rp, err := NewRenderPass(w.Context(), w.swap)
	if err != nil {
		return nil, err
	}
	if err := w.swap.InitFramebuffers(rp.Handle()); err != nil {
		rp.Destroy()
		return nil, err
	}
	return rp, nil
}

// RecreateSwapChain rebuilds the swap chain for the current framebuffer size.
func (w *Window) RecreateSwapChain() error {
	return w.frame.Recreate()
}

// SetViewportCmd sets a viewport covering the window with Y pointing up.
func (w *Window) SetViewportCmd(cmd vk.CommandBuffer) {
	w.swap.SetViewportCmd(cmd)
}

// SetViewportRectCmd sets the viewport and scissor to a rectangle.
func (w *Window) SetViewportRectCmd(cmd vk.CommandBuffer, x, y, width, height int32) {
	w.swap.SetViewportRectCmd(cmd, x, y, width, height)
}

func (w *Window) Show() {
	w.win.Show()
	w.visible = true
}

func (w *Window) Hide() {
	w.win.Hide()
	w.visible = false
}

func (w *Window) ShouldClose() bool { return w.win.ShouldClose() }

// SetCursorMode sets glfw.CursorNormal, glfw.CursorHidden or
// glfw.CursorDisabled.
func (w *Window) SetCursorMode(mode int) {
	w.win.SetInputMode(glfw.CursorMode, mode)
}

// EnableKeyEvent turns delivery of key events to the handler on or off.
func (w *Window) EnableKeyEvent(enable bool) {
	h, ok := w.handler.(KeyHandler)
	if !w.canEnable("key", enable, ok) {
		w.win.SetKeyCallback(nil)
		return
	}
	w.win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		h.Key(key, scancode, action, mods)
	})
}

func (w *Window) EnableCursorPosEvent(enable bool) {
	h, ok := w.handler.(CursorPosHandler)
	if !w.canEnable("cursor position", enable, ok) {
		w.win.SetCursorPosCallback(nil)
		return
	}
	w.win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		h.CursorPos(x, y)
	})
}

func (w *Window) EnableCursorEnterEvent(enable bool) {
	h, ok := w.handler.(CursorEnterHandler)
	if !w.canEnable("cursor enter", enable, ok) {
		w.win.SetCursorEnterCallback(nil)
		return
	}
	w.win.SetCursorEnterCallback(func(_ *glfw.Window, entered bool) {
		h.CursorEnter(entered)
	})
}

func (w *Window) EnableMouseButtonEvent(enable bool) {
	h, ok := w.handler.(MouseButtonHandler)
	if !w.canEnable("mouse button", enable, ok) {
		w.win.SetMouseButtonCallback(nil)
		return
	}
	w.win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		h.MouseButton(button, action, mods)
	})
}

func (w *Window) EnableScrollEvent(enable bool) {
	h, ok := w.handler.(ScrollHandler)
	if !w.canEnable("scroll", enable, ok) {
		w.win.SetScrollCallback(nil)
		return
	}
	w.win.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		h.Scroll(xoff, yoff)
	})
}

func (w *Window) canEnable(event string, enable, implemented bool) bool {
	if enable && !implemented {
		Logger().Warn("handler does not implement event", "event", event)
	}
	return enable && implemented
}

// takeErr returns and clears an error raised inside a callback.
func (w *Window) takeErr() error {
	err := w.err
	w.err = nil
	return errors.Wrap(err, "refresh")
}

// Destroy releases the frame state, the swap chain, the surface and the GLFW
// window. The device context is left to the Application.
func (w *Window) Destroy() {
	if w.frame != nil {
		w.frame.Destroy()
		w.frame = nil
	}
	if w.swap != nil {
		w.swap.Cleanup()
		w.swap = nil
	}
	if w.surface != vk.NullSurface && w.app.instance != nil {
		w.app.instance.DestroySurface(w.surface)
		w.surface = vk.NullSurface
	}
	if w.win != nil {
		w.win.Destroy()
		w.win = nil
	}
}
