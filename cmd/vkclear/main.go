// Command vkclear opens a window and clears it to a slowly changing colour.
// Given compiled shaders it also draws a triangle, reloading the shaders
// whenever the files change.
//
//	vkclear -config demo.toml -shaders shaders/tri
package main

import (
	"flag"
	"math"
	"time"

	"github.com/andewx/vkframe"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"
)

var triangleStages = []vkframe.ShaderKind{vkframe.VertexShader, vkframe.FragmentShader}

type demo struct {
	win      *vkframe.Window
	pass     *vkframe.RenderPass
	pipeline *vkframe.Pipeline
	stem     string
	watcher  *vkframe.ShaderWatcher
	start    time.Time
}

func (d *demo) loadPipeline() error {
	ctx := d.win.Context()
	shaders, err := vkframe.NewShadersFromStem(ctx, d.stem, triangleStages)
	if err != nil {
		return err
	}
	defer shaders.Destroy()

	pipeline, err := vkframe.NewPipelineBuilder(shaders).
		DepthTest(false, false).
		Build(ctx, d.pass)
	if err != nil {
		return err
	}
	if d.pipeline != nil {
		d.pipeline.Destroy()
	}
	d.pipeline = pipeline
	return nil
}

// clearColor cycles through hues, one full turn every ten seconds.
func (d *demo) clearColor() mgl32.Vec3 {
	t := time.Since(d.start).Seconds() * 2 * math.Pi / 10
	phase := func(off float64) float32 {
		return float32(0.5 + 0.5*math.Sin(t+off))
	}
	return mgl32.Vec3{phase(0), phase(2 * math.Pi / 3), phase(4 * math.Pi / 3)}
}

func (d *demo) Draw() error {
	if d.watcher != nil && d.watcher.Changed() {
		if err := d.win.Context().WaitIdle(); err != nil {
			return err
		}
		if err := d.loadPipeline(); err != nil {
			vkframe.Logger().Warn("shader reload failed, keeping previous pipeline", "error", err)
		}
	}

	c := d.clearColor()
	d.pass.SetClearColor(c.X(), c.Y(), c.Z(), 1)
	return d.win.Render(func(cmd vk.CommandBuffer, index uint32) error {
		swap := d.win.SwapChain()
		d.pass.Begin(cmd, swap, swap.Framebuffer(index))
		d.win.SetViewportCmd(cmd)
		if d.pipeline != nil {
			d.pipeline.Bind(cmd)
			vkframe.Draw(d.win.Context(), cmd, 3)
		}
		d.pass.End(cmd)
		return nil
	})
}

func (d *demo) Reshape(width, height int) {
	vkframe.Logger().Debug("reshape", "width", width, "height", height)
}

func (d *demo) Key(key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		d.win.GLFW().SetShouldClose(true)
	}
}

func (d *demo) destroy() {
	if d.watcher != nil {
		d.watcher.Close()
	}
	if d.pipeline != nil {
		d.pipeline.Destroy()
	}
	if d.pass != nil {
		d.pass.Destroy()
	}
}

func main() {
	configPath := flag.String("config", "", "TOML configuration file")
	stem := flag.String("shaders", "", "path stem of compiled .vert.spv/.frag.spv shaders")
	debug := flag.Bool("debug", false, "enable validation layers")
	flag.Parse()

	cfg := vkframe.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = vkframe.LoadConfig(*configPath); err != nil {
			vkframe.Fatal(err)
		}
	}
	cfg.Debug = cfg.Debug || *debug
	cfg.Window.Resizable = true

	app, err := vkframe.NewApplication(cfg)
	if err != nil {
		vkframe.Fatal(err)
	}

	d := &demo{stem: *stem, start: time.Now()}
	cleanup := func() {
		d.destroy()
		app.Destroy()
	}

	if d.win, err = app.NewWindow(d, cfg.Window); err != nil {
		vkframe.Fatal(err, cleanup)
	}
	d.win.EnableKeyEvent(true)
	if d.pass, err = d.win.NewRenderPass(); err != nil {
		vkframe.Fatal(err, cleanup)
	}
	if d.stem != "" {
		if err := d.loadPipeline(); err != nil {
			vkframe.Fatal(err, cleanup)
		}
		if d.watcher, err = vkframe.WatchShaders(vkframe.ShaderFiles(d.stem, triangleStages)...); err != nil {
			vkframe.Logger().Warn("shader reloading disabled", "error", err)
		}
	}

	if err := app.Run(d.win); err != nil {
		vkframe.Fatal(err, cleanup)
	}
	cleanup()
}
