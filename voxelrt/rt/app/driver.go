package app

import (
	"errors"
	"fmt"
	"image"

	"github.com/gekko3d/voxmarch"
	"github.com/gekko3d/voxmarch/voxelrt/rt/core"
	"github.com/gekko3d/voxmarch/voxelrt/rt/render"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrSurfaceLost = errors.New("surface lost")
	ErrOutOfMemory = errors.New("device out of memory")
	// ErrFatal ends the main loop.
	ErrFatal = errors.New("fatal frame error")
)

// Target is one acquired framebuffer.
type Target interface {
	Release()
}

// Surface is the host presentation collaborator. Acquire reports
// ErrSurfaceLost or ErrOutOfMemory (possibly wrapped); any other error is
// treated as transient.
type Surface interface {
	Acquire() (Target, error)
	Configure(width, height uint32) error
	Present() error
}

// Pass is the full-screen ray-march pass.
type Pass interface {
	UploadCamera(rc core.RTCamera) error
	Draw(t Target) error
}

// FrameResult says what happened to one frame.
type FrameResult int

const (
	FramePresented FrameResult = iota
	FrameSkipped
)

// FrameDriver runs one frame at a time: camera upload, full-screen pass,
// present. Frames are not reentrant.
type FrameDriver struct {
	Surface  Surface
	Pass     Pass
	Logger   voxmarch.Logger
	Profiler *Profiler

	Width  uint32
	Height uint32

	Frames  int
	Skipped int
}

func NewFrameDriver(surface Surface, pass Pass, width, height uint32, logger voxmarch.Logger) *FrameDriver {
	return &FrameDriver{
		Surface:  surface,
		Pass:     pass,
		Logger:   voxmarch.OrNop(logger),
		Profiler: NewProfiler(),
		Width:    width,
		Height:   height,
	}
}

// Resize reconfigures the surface. A zero size is recorded and frames are
// skipped until the next non-zero resize.
func (d *FrameDriver) Resize(width, height uint32) error {
	d.Width, d.Height = width, height
	if width == 0 || height == 0 {
		return nil
	}
	if err := d.Surface.Configure(width, height); err != nil {
		return fmt.Errorf("configure %dx%d: %w", width, height, err)
	}
	return nil
}

// Frame renders cam into the surface. Only an error wrapping ErrFatal is
// returned; everything else is logged and the frame skipped.
func (d *FrameDriver) Frame(cam core.Camera) (FrameResult, error) {
	d.Profiler.BeginScope("Frame")
	defer d.Profiler.EndScope("Frame")

	rc, err := core.NewRTCamera(cam, d.Width, d.Height)
	if err != nil {
		d.Logger.Debugf("frame skipped: %v", err)
		return d.skip(), nil
	}

	d.Profiler.BeginScope("Upload")
	err = d.Pass.UploadCamera(rc)
	d.Profiler.EndScope("Upload")
	if err != nil {
		d.Logger.Errorf("camera upload: %v", err)
		return d.skip(), nil
	}

	target, err := d.Surface.Acquire()
	if err != nil {
		return d.acquireFailed(err)
	}
	defer target.Release()

	d.Profiler.BeginScope("Draw")
	err = d.Pass.Draw(target)
	d.Profiler.EndScope("Draw")
	if err != nil {
		if errors.Is(err, ErrOutOfMemory) {
			return d.skip(), fmt.Errorf("%w: draw: %v", ErrFatal, err)
		}
		d.Logger.Errorf("draw: %v", err)
		return d.skip(), nil
	}

	if err := d.Surface.Present(); err != nil {
		if errors.Is(err, ErrSurfaceLost) {
			d.reconfigure()
		} else {
			d.Logger.Errorf("present: %v", err)
		}
		return d.skip(), nil
	}
	d.Frames++
	return FramePresented, nil
}

func (d *FrameDriver) acquireFailed(err error) (FrameResult, error) {
	switch {
	case errors.Is(err, ErrOutOfMemory):
		return d.skip(), fmt.Errorf("%w: acquire: %v", ErrFatal, err)
	case errors.Is(err, ErrSurfaceLost):
		d.reconfigure()
	default:
		d.Logger.Errorf("acquire framebuffer: %v", err)
	}
	return d.skip(), nil
}

func (d *FrameDriver) reconfigure() {
	d.Logger.Warnf("surface lost, reconfiguring at %dx%d", d.Width, d.Height)
	if d.Width == 0 || d.Height == 0 {
		return
	}
	if err := d.Surface.Configure(d.Width, d.Height); err != nil {
		d.Logger.Errorf("reconfigure: %v", err)
	}
}

func (d *FrameDriver) skip() FrameResult {
	d.Skipped++
	return FrameSkipped
}

// ImageTarget is a CPU framebuffer.
type ImageTarget struct {
	Image *image.RGBA
}

func (t *ImageTarget) Release() {}

// ImageSurface presents into an in-memory RGBA image.
type ImageSurface struct {
	Image    *image.RGBA
	Presents int
}

func NewImageSurface(width, height uint32) *ImageSurface {
	return &ImageSurface{Image: image.NewRGBA(image.Rect(0, 0, int(width), int(height)))}
}

func (s *ImageSurface) Acquire() (Target, error) {
	if s.Image == nil {
		return nil, ErrSurfaceLost
	}
	return &ImageTarget{Image: s.Image}, nil
}

func (s *ImageSurface) Configure(width, height uint32) error {
	b := s.Image
	if b != nil && uint32(b.Bounds().Dx()) == width && uint32(b.Bounds().Dy()) == height {
		return nil
	}
	s.Image = image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	return nil
}

func (s *ImageSurface) Present() error {
	s.Presents++
	return nil
}

// SoftwarePass runs the full-screen pass on the CPU into an ImageTarget.
type SoftwarePass struct {
	Scene      *core.Scene
	Background mgl32.Vec4
	Renderer   *render.Renderer
	Profiler   *Profiler

	camera core.RTCamera
}

func NewSoftwarePass(scene *core.Scene, background mgl32.Vec4) *SoftwarePass {
	return &SoftwarePass{Scene: scene, Background: background, Renderer: render.NewRenderer()}
}

func (p *SoftwarePass) UploadCamera(rc core.RTCamera) error {
	p.camera = rc
	return nil
}

func (p *SoftwarePass) Draw(t Target) error {
	it, ok := t.(*ImageTarget)
	if !ok {
		return fmt.Errorf("software pass: unsupported target %T", t)
	}
	stats := p.Renderer.Render(p.Scene, p.camera, p.Background, it.Image)
	if p.Profiler != nil {
		p.Profiler.SetCount("Hits", stats.Hits)
		p.Profiler.SetCount("Misses", stats.Misses)
	}
	return nil
}
