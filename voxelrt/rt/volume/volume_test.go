package volume

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenRoundTrip(t *testing.T) {
	dims := [3]int{3, 4, 5}
	seen := make(map[int]bool)
	for z := 0; z < dims[2]; z++ {
		for y := 0; y < dims[1]; y++ {
			for x := 0; x < dims[0]; x++ {
				i := Flatten(x, y, z, dims)
				if seen[i] {
					t.Fatalf("index %d produced twice", i)
				}
				seen[i] = true
				gx, gy, gz := Unflatten(i, dims)
				if gx != x || gy != y || gz != z {
					t.Errorf("Unflatten(%d) = (%d,%d,%d), want (%d,%d,%d)", i, gx, gy, gz, x, y, z)
				}
			}
		}
	}
	assert.Len(t, seen, 60)
	assert.Equal(t, 1, Flatten(1, 0, 0, dims), "x is fastest")
	assert.Equal(t, 3, Flatten(0, 1, 0, dims))
	assert.Equal(t, 12, Flatten(0, 0, 1, dims))
}

func TestGrid(t *testing.T) {
	g, err := NewGrid(2, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 8, g.Len())

	assert.True(t, g.Set(1, 1, 1, 3))
	assert.False(t, g.Set(2, 0, 0, 3))
	assert.Equal(t, uint32(3), g.At(1, 1, 1))
	assert.Equal(t, EmptyID, g.At(-1, 0, 0))
	assert.Equal(t, 1, g.Count())

	c := g.Copy()
	c.Fill(1)
	assert.Equal(t, 8, c.Count())
	assert.Equal(t, 1, g.Count(), "copy is independent")
	assert.Equal(t, map[uint32]int{0: 7, 3: 1}, g.Histogram())

	_, err = NewGrid(0, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidVolume)
	_, err = GridFromIDs(2, 2, 2, make([]uint32, 7))
	assert.ErrorIs(t, err, ErrGridMismatch)
}

func TestVolume(t *testing.T) {
	v, err := NewVolume(mgl32.Vec3{1, 2, 3}, 0.5, 4, 2, 6)
	require.NoError(t, err)
	assert.Equal(t, 48, v.Len())
	assert.Equal(t, [2]mgl32.Vec3{{1, 2, 3}, {3, 3, 6}}, v.AABB())
	assert.Equal(t, 12, v.LongestDiagonalSteps())

	_, err = NewVolume(mgl32.Vec3{}, 0, 1, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidVolume)
	_, err = NewVolume(mgl32.Vec3{}, 1, 1, -1, 1)
	assert.ErrorIs(t, err, ErrInvalidVolume)

	g, _ := NewGrid(4, 2, 6)
	assert.NoError(t, v.Fits(g))
	g2, _ := NewGrid(4, 6, 2)
	assert.ErrorIs(t, v.Fits(g2), ErrGridMismatch)
}

func TestInstancePlacement(t *testing.T) {
	inst := Instance{
		Placement: NewPlacement(mgl32.Vec3{10, 0, 0}, 2),
		Volume:    Volume{Origin: mgl32.Vec3{1, 1, 1}, VoxelSize: 0.5, Dims: [3]int{2, 3, 4}},
	}
	assert.Equal(t, float32(1), inst.CellSize())
	assert.Equal(t, [2]mgl32.Vec3{{11, 1, 1}, {13, 4, 5}}, inst.WorldAABB())

	p := mgl32.Vec3{12.5, 2, 3.25}
	back := inst.LocalToWorld(inst.WorldToLocal(p))
	assert.True(t, back.ApproxEqualThreshold(p, 1e-5))

	m := inst.Placement.ObjectToWorld().Mul4(inst.Placement.WorldToObject())
	if !m.ApproxEqualThreshold(mgl32.Ident4(), 1e-5) {
		t.Errorf("ObjectToWorld * WorldToObject = %v, want identity", m)
	}
	m = inst.LocalToWorldMatrix().Mul4(inst.WorldToLocalMatrix())
	if !m.ApproxEqualThreshold(mgl32.Ident4(), 1e-5) {
		t.Errorf("LocalToWorldMatrix * WorldToLocalMatrix = %v, want identity", m)
	}

	// The volume origin is added unscaled; only cells scale.
	assert.Equal(t, mgl32.Vec3{}, inst.WorldToLocal(inst.Corner()))
	assert.Equal(t, mgl32.Vec3{2, 3, 4}, inst.WorldToLocal(inst.WorldAABB()[1]))
	assert.Equal(t, mgl32.Vec3{12, 2, 3}, inst.LocalToWorld(mgl32.Vec3{1, 1, 2}))
	assert.Equal(t, [2]mgl32.Vec3{{12, 2, 3}, {13, 3, 4}}, inst.CellAABB(1, 1, 2))

	inst.Placement.Scale = 4
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, inst.WorldDirToLocal(mgl32.Vec3{2, 0, 0}), "directions ignore translation")
	inst.Placement.Scale = 2

	assert.NoError(t, inst.Validate(24))
	assert.ErrorIs(t, inst.Validate(23), ErrGridMismatch)
	inst.Placement.Scale = 0
	assert.ErrorIs(t, inst.Validate(24), ErrInvalidVolume)
}

func TestPrimitives(t *testing.T) {
	g, _ := NewGrid(8, 8, 8)
	assert.Equal(t, 27, Box(g, [3]int{1, 1, 1}, [3]int{3, 3, 3}, 2))
	assert.Equal(t, 27, g.Count())
	assert.Equal(t, 8, Box(g, [3]int{6, 6, 6}, [3]int{9, 9, 9}, 2), "clipped to the grid")

	s, err := Shape("sphere", [3]int{9, 9, 9}, 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), s.At(4, 4, 4))
	assert.Equal(t, EmptyID, s.At(0, 0, 0))

	b, err := Shape("box", [3]int{2, 3, 4}, 1)
	require.NoError(t, err)
	assert.Equal(t, 24, b.Count())

	c, err := Shape("cylinder", [3]int{5, 4, 5}, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), c.At(2, 0, 2))
	assert.Equal(t, uint32(1), c.At(2, 3, 2))
	assert.Equal(t, EmptyID, c.At(0, 0, 0))

	assert.True(t, Point(g, 0, 0, 0, 9))
	assert.Equal(t, uint32(9), g.At(0, 0, 0))
}
