package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gekko3d/voxmarch/voxelrt/rt/core"
	"github.com/gekko3d/voxmarch/voxelrt/rt/terrain"
	"github.com/gekko3d/voxmarch/voxelrt/rt/volume"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	CameraUniformSize  = 96
	InstanceRecordSize = 48
	PaletteEntrySize   = 16
	TerrainArgsSize    = 16
	ChunkCoordSize     = 16
)

func putF32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

func putU32(buf []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:], v)
}

func putVec3(buf []byte, off int, v mgl32.Vec3) {
	putF32(buf, off, v[0])
	putF32(buf, off+4, v[1])
	putF32(buf, off+8, v[2])
}

// PackCamera lays out the camera uniform:
//
//	struct Camera {
//	  eye: vec3<f32>,        width: u32,          // 0
//	  target_pos: vec3<f32>, height: u32,         // 16
//	  horizontal: vec3<f32>, max_steps: u32,      // 32
//	  vertical: vec3<f32>,   instance_count: u32, // 48
//	  lower_left: vec3<f32>, _pad: u32,           // 64
//	  background: vec4<f32>,                      // 80
//	} -> 96 bytes
func PackCamera(rc core.RTCamera, maxSteps, instanceCount uint32, background mgl32.Vec4) []byte {
	buf := make([]byte, CameraUniformSize)
	putVec3(buf, 0, rc.Eye)
	putU32(buf, 12, rc.Width)
	putVec3(buf, 16, rc.Target)
	putU32(buf, 28, rc.Height)
	putVec3(buf, 32, rc.Horizontal)
	putU32(buf, 44, maxSteps)
	putVec3(buf, 48, rc.Vertical)
	putU32(buf, 60, instanceCount)
	putVec3(buf, 64, rc.LowerLeft)
	for i := 0; i < 4; i++ {
		putF32(buf, 80+4*i, background[i])
	}
	return buf
}

// PackInstances lays out array<Instance>:
//
//	struct Instance {
//	  origin: vec3<f32>,        scale: f32,      // 0
//	  volume_origin: vec3<f32>, voxel_size: f32, // 16
//	  dims: vec3<u32>,          base: u32,       // 32
//	} -> 48 bytes
//
// An empty list still yields one zeroed record; bindings cannot be empty.
func PackInstances(instances []volume.Instance) []byte {
	n := len(instances)
	if n == 0 {
		n = 1
	}
	buf := make([]byte, n*InstanceRecordSize)
	for i, in := range instances {
		off := i * InstanceRecordSize
		putVec3(buf, off, in.Placement.Position)
		putF32(buf, off+12, in.Placement.Scale)
		putVec3(buf, off+16, in.Volume.Origin)
		putF32(buf, off+28, in.Volume.VoxelSize)
		putU32(buf, off+32, uint32(in.Volume.Dims[0]))
		putU32(buf, off+36, uint32(in.Volume.Dims[1]))
		putU32(buf, off+40, uint32(in.Volume.Dims[2]))
		putU32(buf, off+44, uint32(in.Base))
	}
	return buf
}

// PackVoxels lays out array<u32>, at least one element long.
func PackVoxels(ids []uint32) []byte {
	n := len(ids)
	if n == 0 {
		n = 1
	}
	buf := make([]byte, 4*n)
	for i, id := range ids {
		putU32(buf, 4*i, id)
	}
	return buf
}

func UnpackVoxels(data []byte) []uint32 {
	ids := make([]uint32, len(data)/4)
	for i := range ids {
		ids[i] = binary.LittleEndian.Uint32(data[4*i:])
	}
	return ids
}

// PackPalette lays out array<vec4<f32>>.
func PackPalette(p core.Palette) []byte {
	n := len(p)
	if n == 0 {
		n = 1
	}
	buf := make([]byte, n*PaletteEntrySize)
	for i, c := range p {
		for k := 0; k < 4; k++ {
			putF32(buf, i*PaletteEntrySize+4*k, c[k])
		}
	}
	return buf
}

// PackTerrainArgs lays out { chunk_size: u32, seed: u32, frequency: f32, threshold: f32 }.
func PackTerrainArgs(a terrain.Args) []byte {
	buf := make([]byte, TerrainArgsSize)
	putU32(buf, 0, a.ChunkSize)
	putU32(buf, 4, a.Seed)
	putF32(buf, 8, a.Frequency)
	putF32(buf, 12, a.Threshold)
	return buf
}

// PackChunkCoord lays out vec4<i32> with w = 0.
func PackChunkCoord(c [3]int32) []byte {
	buf := make([]byte, ChunkCoordSize)
	for i := 0; i < 3; i++ {
		putU32(buf, 4*i, uint32(c[i]))
	}
	return buf
}

// Workgroups returns ceil(n / size).
func Workgroups(n, size uint32) uint32 {
	return (n + size - 1) / size
}
