package volume

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// EmptyID marks an empty cell. Every other id is opaque.
const EmptyID uint32 = 0

var (
	ErrInvalidVolume = errors.New("invalid volume")
	ErrGridMismatch  = errors.New("grid does not match volume extents")
)

// Volume places a dense grid in world space. Origin is the minimum corner.
type Volume struct {
	Origin    mgl32.Vec3
	VoxelSize float32
	Dims      [3]int
}

func NewVolume(origin mgl32.Vec3, voxelSize float32, dx, dy, dz int) (Volume, error) {
	v := Volume{Origin: origin, VoxelSize: voxelSize, Dims: [3]int{dx, dy, dz}}
	return v, v.Validate()
}

func (v Volume) Validate() error {
	if !(v.VoxelSize > 0) {
		return fmt.Errorf("%w: voxel size %v", ErrInvalidVolume, v.VoxelSize)
	}
	if v.Dims[0] <= 0 || v.Dims[1] <= 0 || v.Dims[2] <= 0 {
		return fmt.Errorf("%w: extents %v", ErrInvalidVolume, v.Dims)
	}
	return nil
}

// Len is the number of cells, dim_x*dim_y*dim_z.
func (v Volume) Len() int {
	return v.Dims[0] * v.Dims[1] * v.Dims[2]
}

// Extent is the world-space size of the volume before instance scaling.
func (v Volume) Extent() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(v.Dims[0]) * v.VoxelSize,
		float32(v.Dims[1]) * v.VoxelSize,
		float32(v.Dims[2]) * v.VoxelSize,
	}
}

// AABB is [origin, origin + dims*voxel_size].
func (v Volume) AABB() [2]mgl32.Vec3 {
	return [2]mgl32.Vec3{v.Origin, v.Origin.Add(v.Extent())}
}

// LongestDiagonalSteps bounds the number of cells a ray can cross in this volume.
func (v Volume) LongestDiagonalSteps() int {
	return v.Dims[0] + v.Dims[1] + v.Dims[2]
}

// Fits reports whether grid g can back this volume.
func (v Volume) Fits(g *Grid) error {
	if g == nil {
		return fmt.Errorf("%w: nil grid", ErrGridMismatch)
	}
	if g.Dims != v.Dims {
		return fmt.Errorf("%w: grid %v, volume %v", ErrGridMismatch, g.Dims, v.Dims)
	}
	return nil
}
