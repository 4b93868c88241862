package render

import (
	"image"
	"image/color"
	"runtime"
	"sync/atomic"

	"github.com/gekko3d/voxmarch/voxelrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// Vertex is one output of the full-screen vertex stage.
type Vertex struct {
	Pos mgl32.Vec4
	UV  mgl32.Vec2
}

// FullscreenVertex emits vertex vi (0..5) of the two screen-covering
// triangles, as vs_main does.
func FullscreenVertex(vi uint32) Vertex {
	x := float32(((vi + 2) / 3) & 1)
	y := float32(((vi + 1) / 3) & 1)
	return Vertex{
		Pos: mgl32.Vec4{-1 + 2*x, -1 + 2*y, 0, 1},
		UV:  mgl32.Vec2{x, y},
	}
}

// PixelFromUV maps an interpolated uv to the pixel the fragment stage shades.
// py counts up from the bottom row.
func PixelFromUV(uv mgl32.Vec2, width, height uint32) (px, py uint32) {
	px = min(uint32(uv[0]*float32(width)), width-1)
	py = min(uint32(uv[1]*float32(height)), height-1)
	return px, py
}

// Stats counts the pixels of one pass.
type Stats struct {
	Hits   int
	Misses int
}

func (s Stats) Pixels() int {
	return s.Hits + s.Misses
}

// Renderer runs the full-screen pass on the CPU, one framebuffer row per task.
type Renderer struct {
	Workers int
}

func NewRenderer() *Renderer {
	return &Renderer{Workers: runtime.GOMAXPROCS(0)}
}

// Shade returns the color of pixel (px, py): the palette entry of the closest
// hit, or background.
func Shade(scene *core.Scene, rc core.RTCamera, px, py uint32, background mgl32.Vec4) (mgl32.Vec4, bool) {
	h := scene.Intersect(rc.Ray(px, py))
	if !h.Hit {
		return background, false
	}
	return scene.Palette.Color(h.ID), true
}

// Render shades every pixel of img. Image row 0 is the top of the frame.
func (r *Renderer) Render(scene *core.Scene, rc core.RTCamera, background mgl32.Vec4, img *image.RGBA) Stats {
	b := img.Bounds()
	w, h := uint32(b.Dx()), uint32(b.Dy())
	if w != rc.Width || h != rc.Height {
		w, h = min(w, rc.Width), min(h, rc.Height)
	}

	var hits, misses atomic.Int64
	var eg errgroup.Group
	if r.Workers > 0 {
		eg.SetLimit(r.Workers)
	}
	for py := uint32(0); py < h; py++ {
		eg.Go(func() error {
			var rowHits, rowMisses int64
			row := int(h-1-py) + b.Min.Y
			for px := uint32(0); px < w; px++ {
				c, hit := Shade(scene, rc, px, py, background)
				if hit {
					rowHits++
				} else {
					rowMisses++
				}
				img.SetRGBA(b.Min.X+int(px), row, ToRGBA(c))
			}
			hits.Add(rowHits)
			misses.Add(rowMisses)
			return nil
		})
	}
	_ = eg.Wait()
	return Stats{Hits: int(hits.Load()), Misses: int(misses.Load())}
}

// ToRGBA quantizes a linear color to 8 bits per channel.
func ToRGBA(c mgl32.Vec4) color.RGBA {
	q := func(v float32) uint8 {
		v = mgl32.Clamp(v, 0, 1)
		return uint8(v*255 + 0.5)
	}
	return color.RGBA{R: q(c[0]), G: q(c[1]), B: q(c[2]), A: q(c[3])}
}
