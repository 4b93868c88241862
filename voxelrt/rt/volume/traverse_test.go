package volume

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitInstance(dx, dy, dz int) Instance {
	return Instance{
		Placement: IdentityPlacement(),
		Volume:    Volume{VoxelSize: 1, Dims: [3]int{dx, dy, dz}},
	}
}

// entryDistance is the float64 slab entry of r into box b, clamped at 0.
func entryDistance(r Ray, b [2]mgl32.Vec3) (float64, bool) {
	tMin, tMax := math.Inf(-1), math.Inf(1)
	for a := 0; a < 3; a++ {
		o, d := float64(r.Origin[a]), float64(r.Direction[a])
		lo, hi := float64(b[0][a]), float64(b[1][a])
		if d == 0 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		t1, t2 := (lo-o)/d, (hi-o)/d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
	}
	if tMin > tMax || tMax < 0 {
		return 0, false
	}
	return math.Max(tMin, 0), true
}

func randomUnit(rng *rand.Rand) mgl32.Vec3 {
	for {
		v := mgl32.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1}
		if l := v.Len(); l > 0.1 && l <= 1 {
			return v.Normalize()
		}
	}
}

func TestTraverse_SingleCubeFrontOn(t *testing.T) {
	inst := unitInstance(1, 1, 1)
	voxels := []uint32{1}

	hit := Traverse(Ray{Origin: mgl32.Vec3{0, 0, -5}, Direction: mgl32.Vec3{0, 0, 1}}, inst, voxels, DefaultMaxSteps)
	require.True(t, hit.Hit)
	assert.Equal(t, uint32(1), hit.ID)
	assert.InDelta(t, 5.0, hit.Distance, 1e-4)
	assert.Equal(t, mgl32.Vec3{0, 0, -1}, hit.Normal)

	miss := Traverse(NewRay(mgl32.Vec3{0, 0, -5}, mgl32.Vec3{1, 1, 1}), inst, voxels, DefaultMaxSteps)
	assert.False(t, miss.Hit)
}

func TestTraverse_AdjacentCells(t *testing.T) {
	inst := unitInstance(2, 1, 1)
	voxels := []uint32{1, 2}

	hit := Traverse(Ray{Origin: mgl32.Vec3{10, 0.5, 0.5}, Direction: mgl32.Vec3{-1, 0, 0}}, inst, voxels, DefaultMaxSteps)
	require.True(t, hit.Hit)
	assert.Equal(t, uint32(2), hit.ID)
	assert.InDelta(t, 8.0, hit.Distance, 1e-4)
	assert.Equal(t, [3]int{1, 0, 0}, hit.Cell)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, hit.Normal)

	// With the near cell empty the ray continues into cell 0.
	voxels[1] = EmptyID
	hit = Traverse(Ray{Origin: mgl32.Vec3{10, 0.5, 0.5}, Direction: mgl32.Vec3{-1, 0, 0}}, inst, voxels, DefaultMaxSteps)
	require.True(t, hit.Hit)
	assert.Equal(t, uint32(1), hit.ID)
	assert.InDelta(t, 9.0, hit.Distance, 1e-4)
}

func TestTraverse_OriginInsideFilledCell(t *testing.T) {
	inst := unitInstance(3, 3, 3)
	voxels := make([]uint32, 27)
	for i := range voxels {
		voxels[i] = 1
	}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		hit := Traverse(NewRay(mgl32.Vec3{1.5, 1.5, 1.5}, randomUnit(rng)), inst, voxels, DefaultMaxSteps)
		require.True(t, hit.Hit)
		assert.Equal(t, float32(0), hit.Distance)
		assert.Equal(t, [3]int{1, 1, 1}, hit.Cell)
		assert.Equal(t, mgl32.Vec3{}, hit.Normal)
	}
}

func TestTraverse_OriginInsideEmptyCell(t *testing.T) {
	inst := unitInstance(4, 1, 1)
	voxels := []uint32{0, 0, 0, 3}

	hit := Traverse(Ray{Origin: mgl32.Vec3{0.5, 0.5, 0.5}, Direction: mgl32.Vec3{1, 0, 0}}, inst, voxels, DefaultMaxSteps)
	require.True(t, hit.Hit)
	assert.Equal(t, uint32(3), hit.ID)
	assert.InDelta(t, 2.5, hit.Distance, 1e-5)
}

func TestTraverse_IsolatedCellDistance(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	inst := unitInstance(8, 8, 8)
	center := mgl32.Vec3{4, 4, 4}

	for i := 0; i < 500; i++ {
		cell := [3]int{rng.Intn(8), rng.Intn(8), rng.Intn(8)}
		voxels := make([]uint32, inst.Volume.Len())
		voxels[Flatten(cell[0], cell[1], cell[2], inst.Volume.Dims)] = 7

		origin := center.Add(randomUnit(rng).Mul(20))
		jitter := mgl32.Vec3{rng.Float32()*0.6 - 0.3, rng.Float32()*0.6 - 0.3, rng.Float32()*0.6 - 0.3}
		target := mgl32.Vec3{float32(cell[0]) + 0.5, float32(cell[1]) + 0.5, float32(cell[2]) + 0.5}.Add(jitter)
		r := NewRay(origin, target.Sub(origin))

		want, ok := entryDistance(r, inst.CellAABB(cell[0], cell[1], cell[2]))
		require.True(t, ok)

		hit := Traverse(r, inst, voxels, DefaultMaxSteps)
		require.True(t, hit.Hit, "ray %v toward cell %v", r, cell)
		assert.Equal(t, uint32(7), hit.ID)
		assert.Equal(t, cell, hit.Cell)
		assert.InDelta(t, want, hit.Distance, 1e-4, "ray %v toward cell %v", r, cell)
	}
}

func TestTraverse_ScaledInstance(t *testing.T) {
	inst := Instance{
		Placement: NewPlacement(mgl32.Vec3{10, 0, 0}, 0.5),
		Volume:    Volume{Origin: mgl32.Vec3{0, 1, 0}, VoxelSize: 0.5, Dims: [3]int{4, 4, 4}},
	}
	voxels := make([]uint32, inst.Volume.Len())
	voxels[Flatten(0, 0, 3, inst.Volume.Dims)] = 4

	// Cell edge is 0.25, so cell z=3 spans world z [0.75, 1].
	r := Ray{Origin: mgl32.Vec3{10.1, 1.1, -1}, Direction: mgl32.Vec3{0, 0, 1}}
	hit := Traverse(r, inst, voxels, DefaultMaxSteps)
	require.True(t, hit.Hit)
	assert.Equal(t, uint32(4), hit.ID)
	assert.InDelta(t, 1.75, hit.Distance, 1e-4)
}

func TestTraverse_BaseOffset(t *testing.T) {
	shared := []uint32{9, 9, 0, 5}
	inst := unitInstance(2, 1, 1)
	inst.Base = 2

	hit := Traverse(Ray{Origin: mgl32.Vec3{-3, 0.5, 0.5}, Direction: mgl32.Vec3{1, 0, 0}}, inst, shared, DefaultMaxSteps)
	require.True(t, hit.Hit)
	assert.Equal(t, uint32(5), hit.ID)
	assert.InDelta(t, 4.0, hit.Distance, 1e-5)

	inst.Base = 3
	assert.False(t, Traverse(Ray{Origin: mgl32.Vec3{-3, 0.5, 0.5}, Direction: mgl32.Vec3{1, 0, 0}}, inst, shared, DefaultMaxSteps).Hit,
		"an instance reaching past the buffer never hits")
}

func TestTraverse_EmptyGridMisses(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	inst := unitInstance(6, 5, 4)
	voxels := make([]uint32, inst.Volume.Len())

	for i := 0; i < 300; i++ {
		origin := mgl32.Vec3{rng.Float32()*20 - 7, rng.Float32()*20 - 7, rng.Float32()*20 - 7}
		hit := Traverse(NewRay(origin, randomUnit(rng)), inst, voxels, DefaultMaxSteps)
		if hit.Hit {
			t.Fatalf("empty grid reported a hit: %+v", hit)
		}
	}
}

func TestTraverse_ZeroDirectionComponents(t *testing.T) {
	inst := unitInstance(3, 3, 3)
	voxels := make([]uint32, 27)
	voxels[Flatten(1, 1, 2, inst.Volume.Dims)] = 1

	hit := Traverse(Ray{Origin: mgl32.Vec3{1.5, 1.5, -2}, Direction: mgl32.Vec3{0, 0, 1}}, inst, voxels, DefaultMaxSteps)
	require.True(t, hit.Hit)
	assert.False(t, math.IsNaN(float64(hit.Distance)))
	assert.InDelta(t, 4.0, hit.Distance, 1e-5)

	// Parallel to a slab but outside of it.
	assert.False(t, Traverse(Ray{Origin: mgl32.Vec3{5, 1.5, -2}, Direction: mgl32.Vec3{0, 0, 1}}, inst, voxels, DefaultMaxSteps).Hit)

	// Degenerate direction outside the volume.
	assert.False(t, Traverse(Ray{Origin: mgl32.Vec3{-1, -1, -1}}, inst, voxels, DefaultMaxSteps).Hit)
}

func TestTraverse_MaxSteps(t *testing.T) {
	inst := unitInstance(300, 1, 1)
	voxels := make([]uint32, 300)
	voxels[299] = 2
	r := Ray{Origin: mgl32.Vec3{-1, 0.5, 0.5}, Direction: mgl32.Vec3{1, 0, 0}}

	assert.False(t, Traverse(r, inst, voxels, DefaultMaxSteps).Hit)

	steps := MaxStepsFor(inst.Volume)
	assert.Equal(t, 302, steps)
	hit := Traverse(r, inst, voxels, steps)
	require.True(t, hit.Hit)
	assert.InDelta(t, 300.0, hit.Distance, 1e-3)
}

func TestTraverse_BehindRayMisses(t *testing.T) {
	inst := unitInstance(1, 1, 1)
	hit := Traverse(Ray{Origin: mgl32.Vec3{0.5, 0.5, 3}, Direction: mgl32.Vec3{0, 0, 1}}, inst, []uint32{1}, DefaultMaxSteps)
	assert.False(t, hit.Hit)
	assert.Equal(t, -1, hit.Instance)
}

func TestIntersectAABB(t *testing.T) {
	tEnter, tExit, axis, ok := IntersectAABB(Ray{Origin: mgl32.Vec3{-2, 0.5, 0.5}, Direction: mgl32.Vec3{1, 0, 0}},
		mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1})
	require.True(t, ok)
	assert.Equal(t, float32(2), tEnter)
	assert.Equal(t, float32(3), tExit)
	assert.Equal(t, 0, axis)

	_, _, _, ok = IntersectAABB(Ray{Origin: mgl32.Vec3{-2, 5, 0.5}, Direction: mgl32.Vec3{1, 0, 0}},
		mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1})
	assert.False(t, ok)
}
