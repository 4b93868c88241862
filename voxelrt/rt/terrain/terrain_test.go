package terrain

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/gekko3d/voxmarch/voxelrt/rt/volume"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerlin3_ZeroOnLattice(t *testing.T) {
	for _, p := range [][3]float32{{0, 0, 0}, {1, 2, 3}, {-4, 7, 100}, {288, 289, 290}} {
		if n := Perlin3(p[0], p[1], p[2]); n != 0 {
			t.Errorf("Perlin3(%v) = %v, want 0", p, n)
		}
	}
}

func TestPerlin3_RangeAndContinuity(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	nonZero := 0
	for i := 0; i < 5000; i++ {
		x, y, z := rng.Float32()*50-25, rng.Float32()*50-25, rng.Float32()*50-25
		n := Perlin3(x, y, z)
		require.False(t, math32.IsNaN(n))
		require.LessOrEqual(t, math32.Abs(n), float32(1.5), "at (%v,%v,%v)", x, y, z)
		if n != 0 {
			nonZero++
		}

		d := Perlin3(x+1e-3, y, z) - n
		assert.Less(t, math32.Abs(d), float32(0.05), "noise jumps near (%v,%v,%v)", x, y, z)
	}
	assert.Greater(t, nonZero, 4000)
}

func TestPerlin3_Deterministic(t *testing.T) {
	assert.Equal(t, Perlin3(1.25, -3.5, 7.75), Perlin3(1.25, -3.5, 7.75))
	assert.InDelta(t, Perlin3(0.3, 0.4, 0.5), Perlin3(289.3, 0.4, 0.5), 1e-3, "period 289")
}

func TestUnitAndClassify(t *testing.T) {
	assert.Equal(t, float32(0.5), Unit(0))
	assert.Equal(t, float32(0), Unit(-3))
	assert.Equal(t, float32(1), Unit(3))

	a := DefaultArgs()
	assert.Equal(t, LowID, Classify(a, 0), "exactly the threshold is low")
	assert.Equal(t, HighID, Classify(a, 0.1))
	assert.Equal(t, LowID, Classify(a, -0.1))
}

func TestSeedOffset(t *testing.T) {
	for seed := uint32(0); seed < 100; seed++ {
		off := SeedOffset(seed)
		for a := 0; a < 3; a++ {
			assert.GreaterOrEqual(t, off[a], float32(0))
			assert.Less(t, off[a], float32(289))
		}
	}
	assert.NotEqual(t, SeedOffset(1), SeedOffset(2))
	assert.Equal(t, Hash(12345), Hash(12345))
}

func TestCPUGenerator_Chunk(t *testing.T) {
	a := DefaultArgs()
	a.ChunkSize = 16
	gen := NewCPUGenerator(a)

	g, err := gen.GenerateChunk([3]int32{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, [3]int{16, 16, 16}, g.Dims)
	assert.Len(t, g.IDs, 16*16*16)
	for i, id := range g.IDs {
		if id != HighID && id != LowID {
			t.Fatalf("cell %d has id %d", i, id)
		}
	}

	again, err := gen.GenerateChunk([3]int32{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, g.IDs, again.IDs)

	x, y, z := 3, 9, 14
	p := SamplePoint(a, [3]int32{0, 0, 0}, uint32(x), uint32(y), uint32(z))
	assert.Equal(t, Classify(a, Perlin3(p[0], p[1], p[2])), g.At(x, y, z))
}

func TestCPUGenerator_ChunksTile(t *testing.T) {
	small := DefaultArgs()
	small.ChunkSize = 4
	big := small
	big.ChunkSize = 8

	whole, err := NewCPUGenerator(big).GenerateChunk([3]int32{0, 0, 0})
	require.NoError(t, err)

	gen := NewCPUGenerator(small)
	for cz := int32(0); cz < 2; cz++ {
		for cy := int32(0); cy < 2; cy++ {
			for cx := int32(0); cx < 2; cx++ {
				part, err := gen.GenerateChunk([3]int32{cx, cy, cz})
				require.NoError(t, err)
				for i, id := range part.IDs {
					lx, ly, lz := volume.Unflatten(i, part.Dims)
					wx, wy, wz := int(cx)*4+lx, int(cy)*4+ly, int(cz)*4+lz
					if want := whole.At(wx, wy, wz); id != want {
						t.Fatalf("chunk (%d,%d,%d) cell (%d,%d,%d) = %d, want %d", cx, cy, cz, lx, ly, lz, id, want)
					}
				}
			}
		}
	}
}

func TestCPUGenerator_Invalid(t *testing.T) {
	a := DefaultArgs()
	a.ChunkSize = 0
	_, err := NewCPUGenerator(a).GenerateChunk([3]int32{})
	assert.ErrorIs(t, err, volume.ErrInvalidVolume)

	a = DefaultArgs()
	a.Frequency = 0
	_, err = NewCPUGenerator(a).GenerateChunk([3]int32{})
	assert.ErrorIs(t, err, volume.ErrInvalidVolume)
}

func TestChunkOrigin(t *testing.T) {
	assert.Equal(t, mgl32.Vec3{64, -32, 0}, ChunkOrigin([3]int32{2, -1, 0}, 32, 1))
	assert.Equal(t, mgl32.Vec3{8, 0, 0}, ChunkOrigin([3]int32{1, 0, 0}, 16, 0.5))
}
