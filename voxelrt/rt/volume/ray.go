package volume

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// NewRay normalizes dir.
func NewRay(origin, dir mgl32.Vec3) Ray {
	return Ray{Origin: origin, Direction: dir.Normalize()}
}

func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Hit is the result of a traversal. Distance, ID, Cell and Normal are only
// meaningful when Hit is set.
type Hit struct {
	Hit      bool
	Distance float32
	ID       uint32
	Cell     [3]int
	// Normal is the outward normal of the face the ray entered through,
	// zero when the ray starts inside the hit cell.
	Normal mgl32.Vec3
	// Instance is filled in by scene queries; -1 for a bare traversal.
	Instance int
}

func Miss() Hit {
	return Hit{Instance: -1}
}

// IntersectAABB slab-clips r against [minB, maxB]. tEnter may be negative when
// the origin is inside the box. A zero direction component never produces NaN:
// the ray misses unless the origin lies within that slab.
func IntersectAABB(r Ray, minB, maxB mgl32.Vec3) (tEnter, tExit float32, axis int, ok bool) {
	tEnter = math32.Inf(-1)
	tExit = math32.Inf(1)
	axis = -1
	for a := 0; a < 3; a++ {
		o, d := r.Origin[a], r.Direction[a]
		if d == 0 {
			if o < minB[a] || o > maxB[a] {
				return 0, 0, -1, false
			}
			continue
		}
		t1 := (minB[a] - o) / d
		t2 := (maxB[a] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tEnter {
			tEnter = t1
			axis = a
		}
		if t2 < tExit {
			tExit = t2
		}
	}
	if tEnter > tExit || tExit < 0 {
		return 0, 0, -1, false
	}
	return tEnter, tExit, axis, true
}
