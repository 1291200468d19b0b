package vkframe

import (
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Application owns GLFW, the Vulkan instance and the device context shared
// by its windows. It must be created and used from the main goroutine.
type Application struct {
	cfg Config
	drv Driver

	instance *Instance
	ctx      *DeviceContext
	windows  []*Window
	logFile  *os.File
}

// NewApplication initializes GLFW and the Vulkan loader. The instance and the
// device are created with the first window, since the instance extensions
// come from the window system and the device must be able to present to the
// window's surface.
func NewApplication(cfg Config) (app *Application, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	runtime.LockOSThread()

	app = &Application{cfg: cfg, drv: VulkanDriver()}
	if cfg.LogFile != "" {
		if app.logFile, err = openLogFile(cfg.LogFile); err != nil {
			return nil, err
		}
		SetLogger(NewLogger(app.logFile, cfg.Verbose))
	} else if cfg.Verbose {
		SetLogger(NewLogger(os.Stderr, true))
	}

	if err := glfw.Init(); err != nil {
		app.closeLog()
		return nil, errors.Wrap(err, "glfw init")
	}
	if !glfw.VulkanSupported() {
		app.Destroy()
		return nil, errors.New("no Vulkan loader found")
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		app.Destroy()
		return nil, errors.Wrap(err, "vulkan init")
	}
	Logger().Debug("application initialized", "name", cfg.Name, "debug", cfg.Debug)
	return app, nil
}

func (app *Application) Config() Config { return app.cfg }

// Context returns the device context, or nil before the first window.
func (app *Application) Context() *DeviceContext { return app.ctx }

func (app *Application) Instance() *Instance { return app.instance }

func (app *Application) instanceFor(win *glfw.Window) (*Instance, error) {
	if app.instance != nil {
		return app.instance, nil
	}
	inst, err := NewInstance(app.cfg.Name, win.GetRequiredInstanceExtensions(), app.cfg.Debug)
	if err != nil {
		return nil, err
	}
	app.instance = inst
	return inst, nil
}

func (app *Application) deviceFor(surface vk.Surface) (*DeviceContext, error) {
	if app.ctx != nil {
		return app.ctx, nil
	}
	ctx, err := NewDeviceContext(app.drv, app.instance.Handle(), surface, DeviceConfig{
		Features: app.cfg.Features,
		Layers:   app.instance.Layers(),
	})
	if err != nil {
		return nil, err
	}
	app.ctx = ctx
	return ctx, nil
}

// NewWindow opens a window drawn by handler.
func (app *Application) NewWindow(handler Handler, cfg WindowConfig) (*Window, error) {
	w, err := newWindow(app, handler, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "window %q", cfg.Title)
	}
	app.windows = append(app.windows, w)
	return w, nil
}

// Run redraws win until it is asked to close, then waits for the device to
// finish. Events are polled while the window is visible; while it is
// iconified the loop blocks until the next event.
func (app *Application) Run(win *Window) error {
	if err := runLoop(win, glfwEvents); err != nil {
		return err
	}
	return app.ctx.WaitIdle()
}

// loopWindow is the part of Window the event loop drives.
type loopWindow interface {
	ShouldClose() bool
	Visible() bool
	Refresh() error
	takeErr() error
}

type eventPump struct {
	poll, wait func()
}

var glfwEvents = eventPump{poll: glfw.PollEvents, wait: glfw.WaitEvents}

func runLoop(win loopWindow, events eventPump) error {
	for !win.ShouldClose() {
		if win.Visible() {
			events.poll()
		} else {
			events.wait()
		}
		if err := win.takeErr(); err != nil {
			return err
		}
		if err := win.Refresh(); err != nil {
			return err
		}
	}
	return nil
}

// Destroy waits for the device and tears everything down in reverse order of
// creation. Resources the caller made from the device context must be
// destroyed first.
func (app *Application) Destroy() {
	if app.ctx != nil {
		if err := app.ctx.WaitIdle(); err != nil {
			Logger().Warn("wait idle at shutdown", "error", err)
		}
	}
	for i := len(app.windows) - 1; i >= 0; i-- {
		app.windows[i].Destroy()
	}
	app.windows = nil
	if app.ctx != nil {
		app.ctx.Destroy()
		app.ctx = nil
	}
	if app.instance != nil {
		app.instance.Destroy()
		app.instance = nil
	}
	glfw.Terminate()
	app.closeLog()
}

func (app *Application) closeLog() {
	if app.logFile != nil {
		SetLogger(NewLogger(os.Stderr, app.cfg.Verbose))
		app.logFile.Close()
		app.logFile = nil
	}
}
