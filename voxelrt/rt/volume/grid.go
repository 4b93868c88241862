package volume

import "fmt"

// Grid is a flat row-major id array: x fastest, then y, then z.
type Grid struct {
	Dims [3]int
	IDs  []uint32
}

func NewGrid(dx, dy, dz int) (*Grid, error) {
	if dx <= 0 || dy <= 0 || dz <= 0 {
		return nil, fmt.Errorf("%w: grid extents %dx%dx%d", ErrInvalidVolume, dx, dy, dz)
	}
	return &Grid{
		Dims: [3]int{dx, dy, dz},
		IDs:  make([]uint32, dx*dy*dz),
	}, nil
}

// GridFromIDs wraps ids without copying.
func GridFromIDs(dx, dy, dz int, ids []uint32) (*Grid, error) {
	if dx <= 0 || dy <= 0 || dz <= 0 {
		return nil, fmt.Errorf("%w: grid extents %dx%dx%d", ErrInvalidVolume, dx, dy, dz)
	}
	if len(ids) != dx*dy*dz {
		return nil, fmt.Errorf("%w: %d ids for %dx%dx%d", ErrGridMismatch, len(ids), dx, dy, dz)
	}
	return &Grid{Dims: [3]int{dx, dy, dz}, IDs: ids}, nil
}

func Flatten(x, y, z int, dims [3]int) int {
	return x + y*dims[0] + z*dims[0]*dims[1]
}

func Unflatten(i int, dims [3]int) (x, y, z int) {
	plane := dims[0] * dims[1]
	z = i / plane
	i -= z * plane
	y = i / dims[0]
	x = i % dims[0]
	return x, y, z
}

func (g *Grid) Len() int {
	return len(g.IDs)
}

func (g *Grid) InBounds(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < g.Dims[0] && y < g.Dims[1] && z < g.Dims[2]
}

func (g *Grid) Index(x, y, z int) int {
	return Flatten(x, y, z, g.Dims)
}

// At returns EmptyID outside the grid.
func (g *Grid) At(x, y, z int) uint32 {
	if !g.InBounds(x, y, z) {
		return EmptyID
	}
	return g.IDs[g.Index(x, y, z)]
}

// Set ignores writes outside the grid and reports whether the write landed.
func (g *Grid) Set(x, y, z int, id uint32) bool {
	if !g.InBounds(x, y, z) {
		return false
	}
	g.IDs[g.Index(x, y, z)] = id
	return true
}

func (g *Grid) Fill(id uint32) {
	for i := range g.IDs {
		g.IDs[i] = id
	}
}

// Count returns the number of non-empty cells.
func (g *Grid) Count() int {
	n := 0
	for _, id := range g.IDs {
		if id != EmptyID {
			n++
		}
	}
	return n
}

// Histogram counts cells per id, empty included.
func (g *Grid) Histogram() map[uint32]int {
	h := make(map[uint32]int)
	for _, id := range g.IDs {
		h[id]++
	}
	return h
}

func (g *Grid) Copy() *Grid {
	ids := make([]uint32, len(g.IDs))
	copy(ids, g.IDs)
	return &Grid{Dims: g.Dims, IDs: ids}
}
