package core

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is the pinhole descriptor the ray generator consumes. Fov is the
// vertical field of view in radians.
type Camera struct {
	Eye    mgl32.Vec3
	Target mgl32.Vec3
	Fov    float32
}

func (c Camera) Validate() error {
	if c.Eye == c.Target {
		return fmt.Errorf("%w: eye equals target %v", ErrDegenerateCamera, c.Eye)
	}
	if !(c.Fov > 0) || c.Fov >= math32.Pi {
		return fmt.Errorf("%w: fov %v", ErrDegenerateCamera, c.Fov)
	}
	return nil
}

// Forward is the unit view direction, target - eye.
func (c Camera) Forward() mgl32.Vec3 {
	return c.Target.Sub(c.Eye).Normalize()
}

const maxPitch = 89 * math32.Pi / 180

// CameraState is the mutable fly camera. The descriptor is rebuilt from it
// every frame. Y is up; yaw 0 looks down +Z.
type CameraState struct {
	Position    mgl32.Vec3
	Yaw         float32
	Pitch       float32
	Fov         float32
	Speed       float32
	Sensitivity float32
}

func NewCameraState() *CameraState {
	return &CameraState{
		Position:    mgl32.Vec3{0, 2, -20},
		Fov:         mgl32.DegToRad(60),
		Speed:       10.0,
		Sensitivity: 0.003,
	}
}

// LookAt points the camera from its position toward target.
func (c *CameraState) LookAt(target mgl32.Vec3) {
	d := target.Sub(c.Position)
	if d.Len() == 0 {
		return
	}
	d = d.Normalize()
	c.Pitch = clampPitch(math32.Asin(d.Y()))
	c.Yaw = math32.Atan2(d.X(), d.Z())
}

func (c *CameraState) GetForward() mgl32.Vec3 {
	cp := math32.Cos(c.Pitch)
	return mgl32.Vec3{
		cp * math32.Sin(c.Yaw),
		math32.Sin(c.Pitch),
		cp * math32.Cos(c.Yaw),
	}
}

// GetRight matches the image-plane u axis, up x (eye - target).
func (c *CameraState) GetRight() mgl32.Vec3 {
	return mgl32.Vec3{-math32.Cos(c.Yaw), 0, math32.Sin(c.Yaw)}
}

// Move translates along the view axes. Arguments are signed input axes in
// [-1, 1], scaled by Speed and dt.
func (c *CameraState) Move(forward, right, up float32, dt float32) {
	step := c.Speed * dt
	delta := c.GetForward().Mul(forward).
		Add(c.GetRight().Mul(right)).
		Add(mgl32.Vec3{0, up, 0})
	c.Position = c.Position.Add(delta.Mul(step))
}

// Look applies a mouse delta in pixels. Moving right turns right, moving
// down looks down.
func (c *CameraState) Look(dx, dy float32) {
	c.Yaw -= dx * c.Sensitivity
	c.Pitch = clampPitch(c.Pitch - dy*c.Sensitivity)
}

func (c *CameraState) Camera() Camera {
	return Camera{
		Eye:    c.Position,
		Target: c.Position.Add(c.GetForward()),
		Fov:    c.Fov,
	}
}

func clampPitch(p float32) float32 {
	if p > maxPitch {
		return maxPitch
	}
	if p < -maxPitch {
		return -maxPitch
	}
	return p
}
