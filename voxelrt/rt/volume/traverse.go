package volume

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultMaxSteps is the lower bound on the traversal step budget.
const DefaultMaxSteps = 256

// MaxStepsFor returns a step budget that covers the longest diagonal of every
// volume: max(DefaultMaxSteps, dx+dy+dz).
func MaxStepsFor(vols ...Volume) int {
	n := DefaultMaxSteps
	for _, v := range vols {
		if s := v.LongestDiagonalSteps(); s > n {
			n = s
		}
	}
	return n
}

// Traverse marches r through the cells of inst with a 3D-DDA and returns the
// first non-empty cell. The returned distance is the ray parameter, which is
// the world-space distance for a unit direction.
func Traverse(r Ray, inst Instance, voxels []uint32, maxSteps int) Hit {
	dims := inst.Volume.Dims
	if dims[0] <= 0 || dims[1] <= 0 || dims[2] <= 0 {
		return Miss()
	}
	if inst.Base < 0 || inst.Base+inst.Volume.Len() > len(voxels) {
		return Miss()
	}
	cs := inst.CellSize()
	if !(cs > 0) {
		return Miss()
	}

	// Voxel-local space. The direction is scaled, not renormalized, so the
	// local parameter equals the world parameter.
	local := Ray{
		Origin:    inst.WorldToLocal(r.Origin),
		Direction: inst.WorldDirToLocal(r.Direction),
	}
	maxB := mgl32.Vec3{float32(dims[0]), float32(dims[1]), float32(dims[2])}
	tEnter, _, entryAxis, ok := IntersectAABB(local, mgl32.Vec3{}, maxB)
	if !ok {
		return Miss()
	}

	t := float32(0)
	inside := true
	if tEnter > 0 {
		t = tEnter
		inside = false
	}

	var (
		cell   [3]int
		step   [3]int
		tDelta [3]float32
		tNext  [3]float32
	)
	p := local.At(t)
	for a := 0; a < 3; a++ {
		c := int(math32.Floor(p[a]))
		if c < 0 {
			c = 0
		} else if c > dims[a]-1 {
			c = dims[a] - 1
		}
		cell[a] = c

		d := local.Direction[a]
		switch {
		case d > 0:
			step[a] = 1
			tDelta[a] = 1 / d
			tNext[a] = t + (float32(c+1)-p[a])/d
		case d < 0:
			step[a] = -1
			tDelta[a] = -1 / d
			tNext[a] = t + (float32(c)-p[a])/d
		default:
			tDelta[a] = math32.Inf(1)
			tNext[a] = math32.Inf(1)
		}
	}

	var normal mgl32.Vec3
	if !inside && entryAxis >= 0 {
		normal[entryAxis] = -float32(step[entryAxis])
	}

	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	for i := 0; i < maxSteps; i++ {
		if id := inst.Lookup(voxels, cell[0], cell[1], cell[2]); id != EmptyID {
			return Hit{
				Hit:      true,
				Distance: t,
				ID:       id,
				Cell:     cell,
				Normal:   normal,
				Instance: -1,
			}
		}

		axis := 0
		if tNext[1] < tNext[axis] {
			axis = 1
		}
		if tNext[2] < tNext[axis] {
			axis = 2
		}
		if math32.IsInf(tNext[axis], 1) {
			return Miss()
		}

		t = tNext[axis]
		cell[axis] += step[axis]
		if cell[axis] < 0 || cell[axis] >= dims[axis] {
			return Miss()
		}
		tNext[axis] += tDelta[axis]
		normal = mgl32.Vec3{}
		normal[axis] = -float32(step[axis])
	}
	return Miss()
}
