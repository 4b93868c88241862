package volume

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Placement is a world translation plus a uniform scale. There is no rotation:
// placed volumes stay axis aligned.
type Placement struct {
	Position mgl32.Vec3
	Scale    float32
}

func NewPlacement(position mgl32.Vec3, scale float32) Placement {
	return Placement{Position: position, Scale: scale}
}

func IdentityPlacement() Placement {
	return Placement{Scale: 1}
}

func (p Placement) ObjectToWorld() mgl32.Mat4 {
	// M = T * S
	translate := mgl32.Translate3D(p.Position.X(), p.Position.Y(), p.Position.Z())
	scale := mgl32.Scale3D(p.Scale, p.Scale, p.Scale)
	return translate.Mul4(scale)
}

func (p Placement) WorldToObject() mgl32.Mat4 {
	// inv(M) = inv(S) * inv(T)
	inv := 1.0 / p.Scale
	invScale := mgl32.Scale3D(inv, inv, inv)
	invTranslate := mgl32.Translate3D(-p.Position.X(), -p.Position.Y(), -p.Position.Z())
	return invScale.Mul4(invTranslate)
}

// Instance is one placed volume backed by a slice of the shared voxel buffer
// starting at Base.
type Instance struct {
	Placement Placement
	Volume    Volume
	Base      int
}

// CellSize is the world-space edge of one cell, voxel_size * scale.
func (in Instance) CellSize() float32 {
	return in.Volume.VoxelSize * in.Placement.Scale
}

// Corner is the world-space minimum corner, volume origin + instance origin.
func (in Instance) Corner() mgl32.Vec3 {
	return in.Volume.Origin.Add(in.Placement.Position)
}

func (in Instance) WorldAABB() [2]mgl32.Vec3 {
	minB := in.Corner()
	cs := in.CellSize()
	maxB := minB.Add(mgl32.Vec3{
		float32(in.Volume.Dims[0]) * cs,
		float32(in.Volume.Dims[1]) * cs,
		float32(in.Volume.Dims[2]) * cs,
	})
	return [2]mgl32.Vec3{minB, maxB}
}

// LocalToWorldMatrix maps cell units to world space. The volume origin is
// not scaled by the placement: M = T(volume origin) * ObjectToWorld * S(voxel size).
func (in Instance) LocalToWorldMatrix() mgl32.Mat4 {
	o := in.Volume.Origin
	vs := in.Volume.VoxelSize
	return mgl32.Translate3D(o.X(), o.Y(), o.Z()).
		Mul4(in.Placement.ObjectToWorld()).
		Mul4(mgl32.Scale3D(vs, vs, vs))
}

func (in Instance) WorldToLocalMatrix() mgl32.Mat4 {
	o := in.Volume.Origin
	inv := 1.0 / in.Volume.VoxelSize
	return mgl32.Scale3D(inv, inv, inv).
		Mul4(in.Placement.WorldToObject()).
		Mul4(mgl32.Translate3D(-o.X(), -o.Y(), -o.Z()))
}

// WorldToLocal maps a world point into cell units, where cell (i,j,k) spans
// [i,i+1)x[j,j+1)x[k,k+1).
func (in Instance) WorldToLocal(p mgl32.Vec3) mgl32.Vec3 {
	return mgl32.TransformCoordinate(p, in.WorldToLocalMatrix())
}

func (in Instance) LocalToWorld(p mgl32.Vec3) mgl32.Vec3 {
	return mgl32.TransformCoordinate(p, in.LocalToWorldMatrix())
}

// WorldDirToLocal maps a world direction into cell units. It is not
// renormalized, so ray parameters stay world distances.
func (in Instance) WorldDirToLocal(d mgl32.Vec3) mgl32.Vec3 {
	return mgl32.TransformNormal(d, in.WorldToLocalMatrix())
}

// CellAABB is the world box of cell (x, y, z).
func (in Instance) CellAABB(x, y, z int) [2]mgl32.Vec3 {
	minB := in.LocalToWorld(mgl32.Vec3{float32(x), float32(y), float32(z)})
	maxB := in.LocalToWorld(mgl32.Vec3{float32(x + 1), float32(y + 1), float32(z + 1)})
	return [2]mgl32.Vec3{minB, maxB}
}

// Validate checks the instance against a shared buffer of length n.
func (in Instance) Validate(n int) error {
	if err := in.Volume.Validate(); err != nil {
		return err
	}
	if !(in.Placement.Scale > 0) || math32.IsInf(in.Placement.Scale, 1) {
		return fmt.Errorf("%w: scale %v", ErrInvalidVolume, in.Placement.Scale)
	}
	if in.Base < 0 || in.Base+in.Volume.Len() > n {
		return fmt.Errorf("%w: base %d + %d cells exceeds buffer of %d", ErrGridMismatch, in.Base, in.Volume.Len(), n)
	}
	return nil
}

// Lookup reads the id at local cell (x, y, z) from the shared buffer.
func (in Instance) Lookup(voxels []uint32, x, y, z int) uint32 {
	return voxels[in.Base+Flatten(x, y, z, in.Volume.Dims)]
}
