package volume

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Sphere fills a sphere in the grid. Cells are tested at their centers.
func Sphere(g *Grid, center mgl32.Vec3, radius float32, id uint32) int {
	r2 := radius * radius
	minB, maxB := cellRange(g, center.Sub(mgl32.Vec3{radius, radius, radius}), center.Add(mgl32.Vec3{radius, radius, radius}))

	n := 0
	for z := minB[2]; z <= maxB[2]; z++ {
		for y := minB[1]; y <= maxB[1]; y++ {
			for x := minB[0]; x <= maxB[0]; x++ {
				dx := float32(x) + 0.5 - center.X()
				dy := float32(y) + 0.5 - center.Y()
				dz := float32(z) + 0.5 - center.Z()
				if dx*dx+dy*dy+dz*dz <= r2 && g.Set(x, y, z, id) {
					n++
				}
			}
		}
	}
	return n
}

// Box fills every cell whose index lies in [minB, maxB].
func Box(g *Grid, minB, maxB [3]int, id uint32) int {
	n := 0
	for z := minB[2]; z <= maxB[2]; z++ {
		for y := minB[1]; y <= maxB[1]; y++ {
			for x := minB[0]; x <= maxB[0]; x++ {
				if g.Set(x, y, z, id) {
					n++
				}
			}
		}
	}
	return n
}

// Cylinder fills an upright cylinder standing on base, y up.
func Cylinder(g *Grid, base mgl32.Vec3, radius, height float32, id uint32) int {
	if height < 1e-5 {
		return 0
	}
	r2 := radius * radius
	minB, maxB := cellRange(g,
		mgl32.Vec3{base.X() - radius, base.Y(), base.Z() - radius},
		mgl32.Vec3{base.X() + radius, base.Y() + height, base.Z() + radius})

	n := 0
	for z := minB[2]; z <= maxB[2]; z++ {
		for y := minB[1]; y <= maxB[1]; y++ {
			cy := float32(y) + 0.5
			if cy < base.Y() || cy > base.Y()+height {
				continue
			}
			for x := minB[0]; x <= maxB[0]; x++ {
				dx := float32(x) + 0.5 - base.X()
				dz := float32(z) + 0.5 - base.Z()
				if dx*dx+dz*dz <= r2 && g.Set(x, y, z, id) {
					n++
				}
			}
		}
	}
	return n
}

// Point fills a single cell.
func Point(g *Grid, x, y, z int, id uint32) bool {
	return g.Set(x, y, z, id)
}

// Shape fills a grid of the given extents with a named primitive that spans it:
// "sphere", "box" or "cylinder". Unknown shapes leave the grid empty.
func Shape(name string, dims [3]int, id uint32) (*Grid, error) {
	g, err := NewGrid(dims[0], dims[1], dims[2])
	if err != nil {
		return nil, err
	}
	size := mgl32.Vec3{float32(dims[0]), float32(dims[1]), float32(dims[2])}
	switch name {
	case "sphere":
		r := math32.Min(size.X(), math32.Min(size.Y(), size.Z())) / 2
		Sphere(g, size.Mul(0.5), r, id)
	case "box":
		Box(g, [3]int{0, 0, 0}, [3]int{dims[0] - 1, dims[1] - 1, dims[2] - 1}, id)
	case "cylinder":
		r := math32.Min(size.X(), size.Z()) / 2
		Cylinder(g, mgl32.Vec3{size.X() / 2, 0, size.Z() / 2}, r, size.Y(), id)
	}
	return g, nil
}

func cellRange(g *Grid, lo, hi mgl32.Vec3) (minB, maxB [3]int) {
	for a := 0; a < 3; a++ {
		minB[a] = int(math32.Floor(lo[a]))
		maxB[a] = int(math32.Ceil(hi[a]))
		if minB[a] < 0 {
			minB[a] = 0
		}
		if maxB[a] > g.Dims[a]-1 {
			maxB[a] = g.Dims[a] - 1
		}
	}
	return minB, maxB
}
