package app

import (
	"fmt"
	"strings"

	"github.com/gekko3d/voxmarch"
	"github.com/gekko3d/voxmarch/voxelrt/rt/core"
	"github.com/gekko3d/voxmarch/voxelrt/rt/gpu"
	"github.com/gekko3d/voxmarch/voxelrt/rt/shaders"
	"github.com/gekko3d/voxmarch/voxelrt/rt/terrain"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

// App hosts the ray-march pass in a glfw window through webgpu.
type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	RenderPipeline *wgpu.RenderPipeline

	BufferManager *gpu.GpuBufferManager
	Scene         *core.Scene
	Camera        *core.CameraState
	Driver        *FrameDriver
	Settings      voxmarch.Config
	Logger        voxmarch.Logger
	Background    mgl32.Vec4

	LastTime       float64
	LastRenderTime float64
	MouseCaptured  bool
	MouseX, MouseY float64
	DebugMode      bool

	FrameCount int
	FPS        float64
	FPSTime    float64
}

func NewApp(window *glfw.Window, cfg voxmarch.Config, logger voxmarch.Logger) *App {
	return &App{
		Window:     window,
		Camera:     NewCameraState(cfg.Camera),
		Settings:   cfg,
		Logger:     voxmarch.OrNop(logger),
		Background: mgl32.Vec4(cfg.Render.Background),
		DebugMode:  cfg.Render.Debug,
	}
}

func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)

	surface := a.Instance.CreateSurface(GetSurfaceDescriptor(a.Window))
	a.Surface = surface

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return err
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return err
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	format := caps.Formats[0]

	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	if width > 0 && height > 0 {
		surface.Configure(adapter, a.Device, a.Config)
	}

	module, err := a.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Voxel Raytrace VS/FS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.VoxelRaytraceWGSL},
	})
	if err != nil {
		return fmt.Errorf("raytrace shader: %w", err)
	}
	defer module.Release()

	a.RenderPipeline, err = a.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Raymarch Pipeline",
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}

	if err := a.loadScene(); err != nil {
		return err
	}

	a.BufferManager = gpu.NewGpuBufferManager(a.Device)
	a.BufferManager.UpdateScene(a.Scene)
	if err := a.BufferManager.CreateBindGroups(a.RenderPipeline); err != nil {
		return err
	}

	a.Driver = NewFrameDriver(&gpuSurface{app: a}, &gpuPass{app: a}, uint32(width), uint32(height), a.Logger)

	a.LastTime = glfw.GetTime()
	return nil
}

// loadScene builds the scene, generating terrain on the device when asked.
func (a *App) loadScene() error {
	var src terrain.Source
	if a.Settings.Terrain.Enabled && a.Settings.Terrain.GPU {
		gen, err := gpu.NewTerrainGenerator(a.Device, TerrainArgs(a.Settings.Terrain), a.Logger)
		if err != nil {
			a.Logger.Warnf("gpu terrain unavailable, using cpu: %v", err)
		} else {
			defer gen.Release()
			src = gen
		}
	}
	scene, err := LoadScene(a.Settings, src, a.Logger)
	if err != nil {
		return err
	}
	a.Scene = scene
	return nil
}

func (a *App) Resize(w, h int) {
	if w < 0 || h < 0 {
		return
	}
	if err := a.Driver.Resize(uint32(w), uint32(h)); err != nil {
		a.Logger.Errorf("resize: %v", err)
	}
}

// ProcessInput moves the fly camera from the held keys.
func (a *App) ProcessInput(dt float32) {
	axis := func(pos, neg glfw.Key) float32 {
		v := float32(0)
		if a.Window.GetKey(pos) == glfw.Press {
			v++
		}
		if a.Window.GetKey(neg) == glfw.Press {
			v--
		}
		return v
	}
	a.Camera.Move(
		axis(glfw.KeyW, glfw.KeyS),
		axis(glfw.KeyD, glfw.KeyA),
		axis(glfw.KeySpace, glfw.KeyLeftShift),
		dt,
	)
}

// Update advances time and input, and re-uploads the scene if it changed.
func (a *App) Update() {
	now := glfw.GetTime()
	dt := float32(now - a.LastTime)
	a.LastTime = now
	a.ProcessInput(dt)

	if a.Scene.Dirty() {
		if err := a.Scene.Commit(); err != nil {
			a.Logger.Errorf("scene commit: %v", err)
			return
		}
		if a.BufferManager.UpdateScene(a.Scene) {
			if err := a.BufferManager.CreateBindGroups(a.RenderPipeline); err != nil {
				a.Logger.Errorf("bind groups: %v", err)
			}
		}
	}
}

// Render drives one frame. An error means the main loop must stop.
func (a *App) Render() error {
	if _, err := a.Driver.Frame(a.Camera.Camera()); err != nil {
		return err
	}

	now := glfw.GetTime()
	if a.LastRenderTime > 0 {
		a.FrameCount++
		a.FPSTime += now - a.LastRenderTime
		if a.FPSTime >= 1.0 {
			a.FPS = float64(a.FrameCount) / a.FPSTime
			a.FrameCount = 0
			a.FPSTime = 0
			if a.DebugMode {
				a.Driver.Profiler.SetCount("Instances", len(a.Scene.Records()))
				a.Logger.Debugf("Renderer FPS: %.1f\n%s", a.FPS, a.Driver.Profiler.GetStatsString())
			}
		}
	}
	a.LastRenderTime = now
	return nil
}

// Release waits for the last frame's GPU work, then frees device objects.
func (a *App) Release() {
	if a.Device != nil {
		a.Device.Poll(true, nil)
	}
	if a.BufferManager != nil {
		a.BufferManager.Release()
	}
	if a.RenderPipeline != nil {
		a.RenderPipeline.Release()
	}
	if a.Surface != nil {
		a.Surface.Release()
	}
	if a.Device != nil {
		a.Device.Release()
	}
	if a.Adapter != nil {
		a.Adapter.Release()
	}
	if a.Instance != nil {
		a.Instance.Release()
	}
}

func GetSurfaceDescriptor(w *glfw.Window) *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(w)
}

// classifySurfaceError maps webgpu surface failures onto the frame policy.
func classifySurfaceError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "lost"), strings.Contains(msg, "outdated"):
		return fmt.Errorf("%w: %v", ErrSurfaceLost, err)
	case strings.Contains(msg, "memory"):
		return fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}
	return err
}

type gpuTarget struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (t *gpuTarget) Release() {
	t.view.Release()
	t.texture.Release()
}

type gpuSurface struct {
	app *App
}

func (s *gpuSurface) Acquire() (Target, error) {
	tex, err := s.app.Surface.GetCurrentTexture()
	if err != nil {
		return nil, classifySurfaceError(err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, classifySurfaceError(err)
	}
	return &gpuTarget{texture: tex, view: view}, nil
}

func (s *gpuSurface) Configure(width, height uint32) error {
	a := s.app
	a.Config.Width = width
	a.Config.Height = height
	a.Surface.Configure(a.Adapter, a.Device, a.Config)
	return nil
}

func (s *gpuSurface) Present() error {
	s.app.Surface.Present()
	return nil
}

type gpuPass struct {
	app *App
}

func (p *gpuPass) UploadCamera(rc core.RTCamera) error {
	a := p.app
	if a.BufferManager.UpdateCamera(rc, a.Background) {
		return a.BufferManager.CreateBindGroups(a.RenderPipeline)
	}
	return nil
}

func (p *gpuPass) Draw(t Target) error {
	a := p.app
	gt, ok := t.(*gpuTarget)
	if !ok {
		return fmt.Errorf("gpu pass: unsupported target %T", t)
	}

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		return classifySurfaceError(err)
	}

	rPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       gt.view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{0, 0, 0, 1},
		}},
	})
	rPass.SetPipeline(a.RenderPipeline)
	rPass.SetBindGroup(0, a.BufferManager.BindGroup0, nil)
	rPass.Draw(6, 1, 0, 0)
	if err := rPass.End(); err != nil {
		return err
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return classifySurfaceError(err)
	}
	a.Queue.Submit(cmd)
	return nil
}
