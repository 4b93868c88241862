package terrain

import (
	"fmt"
	"runtime"

	"github.com/gekko3d/voxmarch/voxelrt/rt/volume"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// Ids written by the generator.
const (
	HighID uint32 = 1
	LowID  uint32 = 2
)

type Args struct {
	ChunkSize uint32
	Seed      uint32
	Frequency float32
	Threshold float32
}

func DefaultArgs() Args {
	return Args{
		ChunkSize: 32,
		Seed:      1,
		Frequency: 1.0 / 40.0,
		Threshold: 0.5,
	}
}

func (a Args) Validate() error {
	if a.ChunkSize == 0 {
		return fmt.Errorf("%w: chunk size 0", volume.ErrInvalidVolume)
	}
	if !(a.Frequency > 0) {
		return fmt.Errorf("%w: frequency %v", volume.ErrInvalidVolume, a.Frequency)
	}
	return nil
}

// Source produces one dense chunk of chunk_size^3 ids.
type Source interface {
	GenerateChunk(coord [3]int32) (*volume.Grid, error)
}

// Hash is the integer hash shared with terrain_gen.wgsl.
func Hash(x uint32) uint32 {
	v := x*747796405 + 2891336453
	w := ((v >> ((v >> 28) + 4)) ^ v) * 277803737
	return (w >> 22) ^ w
}

// SeedOffset shifts the sample domain per seed. Offsets stay within one noise
// period (289).
func SeedOffset(seed uint32) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(Hash(seed) % 289),
		float32(Hash(seed+1) % 289),
		float32(Hash(seed+2) % 289),
	}
}

// SamplePoint is the noise domain point of local cell l in chunk coord.
func SamplePoint(a Args, coord [3]int32, lx, ly, lz uint32) mgl32.Vec3 {
	size := int32(a.ChunkSize)
	w := [3]int32{
		coord[0]*size + int32(lx),
		coord[1]*size + int32(ly),
		coord[2]*size + int32(lz),
	}
	off := SeedOffset(a.Seed)
	return mgl32.Vec3{
		float32(w[0])*a.Frequency + off[0],
		float32(w[1])*a.Frequency + off[1],
		float32(w[2])*a.Frequency + off[2],
	}
}

// Classify maps a noise sample to a voxel id.
func Classify(a Args, n float32) uint32 {
	if Unit(n) > a.Threshold {
		return HighID
	}
	return LowID
}

// ChunkOrigin is the world-space minimum corner of a chunk.
func ChunkOrigin(coord [3]int32, chunkSize uint32, voxelSize float32) mgl32.Vec3 {
	edge := float32(chunkSize) * voxelSize
	return mgl32.Vec3{float32(coord[0]) * edge, float32(coord[1]) * edge, float32(coord[2]) * edge}
}

// CPUGenerator evaluates chunks on the host, one z slice per task.
type CPUGenerator struct {
	Args    Args
	Workers int
}

func NewCPUGenerator(a Args) *CPUGenerator {
	return &CPUGenerator{Args: a, Workers: runtime.GOMAXPROCS(0)}
}

func (g *CPUGenerator) GenerateChunk(coord [3]int32) (*volume.Grid, error) {
	if err := g.Args.Validate(); err != nil {
		return nil, err
	}
	n := int(g.Args.ChunkSize)
	grid, err := volume.NewGrid(n, n, n)
	if err != nil {
		return nil, err
	}

	var eg errgroup.Group
	if g.Workers > 0 {
		eg.SetLimit(g.Workers)
	}
	for z := 0; z < n; z++ {
		eg.Go(func() error {
			for y := 0; y < n; y++ {
				for x := 0; x < n; x++ {
					p := SamplePoint(g.Args, coord, uint32(x), uint32(y), uint32(z))
					grid.IDs[volume.Flatten(x, y, z, grid.Dims)] = Classify(g.Args, Perlin3(p[0], p[1], p[2]))
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return grid, nil
}
