package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/gekko3d/voxmarch"
	"github.com/gekko3d/voxmarch/voxelrt/rt/app"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "YAML scene config")
	debug := flag.Bool("debug", false, "Enable debug logging and frame stats")
	flag.Parse()

	logger := voxmarch.NewDefaultLogger("voxmarch", *debug)
	if err := run(*configPath, *debug, logger); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(configPath string, debug bool, logger voxmarch.Logger) error {
	cfg := voxmarch.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = voxmarch.LoadConfig(configPath)
		if err != nil {
			return err
		}
	}
	if len(cfg.Models) == 0 && len(cfg.Primitives) == 0 && !cfg.Terrain.Enabled {
		cfg.Primitives = []voxmarch.PrimitiveConfig{{Shape: "sphere", Size: [3]int{16, 16, 16}, ID: 2, Scale: 1}}
	}
	if debug {
		cfg.Render.Debug = true
	}

	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		return err
	}
	defer window.Destroy()

	application := app.NewApp(window, cfg, logger)
	if err := application.Init(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer application.Release()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})

	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		dx := xpos - application.MouseX
		dy := ypos - application.MouseY
		application.MouseX = xpos
		application.MouseY = ypos
		if application.MouseCaptured {
			application.Camera.Look(float32(dx), float32(dy))
		}
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyTab && action == glfw.Press {
			application.MouseCaptured = !application.MouseCaptured
			if application.MouseCaptured {
				w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			} else {
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			}
		}
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		application.Update()
		if err := application.Render(); err != nil {
			return err
		}
	}
	return nil
}
