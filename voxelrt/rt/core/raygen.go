package core

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/gekko3d/voxmarch/voxelrt/rt/volume"
	"github.com/go-gl/mathgl/mgl32"
)

var ErrDegenerateCamera = errors.New("degenerate camera")

var worldUp = mgl32.Vec3{0, 1, 0}

// RTCamera is the per-frame image-plane precompute uploaded to the camera
// uniform. The shader only mixes LowerLeft, Horizontal and Vertical.
type RTCamera struct {
	Eye        mgl32.Vec3
	Target     mgl32.Vec3
	Width      uint32
	Height     uint32
	LowerLeft  mgl32.Vec3
	Horizontal mgl32.Vec3
	Vertical   mgl32.Vec3
}

// NewRTCamera builds the image plane for a width x height framebuffer:
//
//	w = normalize(eye - target), u = normalize(up x w), v = w x u
//	half_h = tan(fov/2), half_w = aspect * half_h
//	lower_left = eye - half_w*u - half_h*v - w
func NewRTCamera(c Camera, width, height uint32) (RTCamera, error) {
	if width == 0 || height == 0 {
		return RTCamera{}, fmt.Errorf("%w: framebuffer %dx%d", ErrDegenerateCamera, width, height)
	}
	if err := c.Validate(); err != nil {
		return RTCamera{}, err
	}

	w := c.Eye.Sub(c.Target).Normalize()
	up := worldUp
	if up.Cross(w).Len() < 1e-6 {
		// Looking straight up or down.
		up = mgl32.Vec3{0, 0, 1}
	}
	u := up.Cross(w).Normalize()
	v := w.Cross(u)

	aspect := float32(width) / float32(height)
	halfH := math32.Tan(c.Fov / 2)
	halfW := aspect * halfH

	return RTCamera{
		Eye:        c.Eye,
		Target:     c.Target,
		Width:      width,
		Height:     height,
		LowerLeft:  c.Eye.Sub(u.Mul(halfW)).Sub(v.Mul(halfH)).Sub(w),
		Horizontal: u.Mul(2 * halfW),
		Vertical:   v.Mul(2 * halfH),
	}, nil
}

// RayAt returns the primary ray through image-plane coordinates s, t in [0, 1).
func (rc RTCamera) RayAt(s, t float32) volume.Ray {
	p := rc.LowerLeft.Add(rc.Horizontal.Mul(s)).Add(rc.Vertical.Mul(t))
	return volume.Ray{Origin: rc.Eye, Direction: p.Sub(rc.Eye).Normalize()}
}

// Ray samples pixel (px, py) at its corner, s = px/width, t = py/height.
// py counts up from the bottom row.
func (rc RTCamera) Ray(px, py uint32) volume.Ray {
	return rc.RayAt(float32(px)/float32(rc.Width), float32(py)/float32(rc.Height))
}
