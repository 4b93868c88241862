package gpu

import (
	"errors"
	"fmt"

	"github.com/gekko3d/voxmarch"
	"github.com/gekko3d/voxmarch/voxelrt/rt/shaders"
	"github.com/gekko3d/voxmarch/voxelrt/rt/terrain"
	"github.com/gekko3d/voxmarch/voxelrt/rt/volume"

	"github.com/cogentcore/webgpu/wgpu"
)

// TerrainWorkgroupSize matches @workgroup_size in terrain_gen.wgsl.
const TerrainWorkgroupSize = 4

var ErrReadback = errors.New("gpu: buffer readback failed")

// TerrainGenerator evaluates terrain chunks with a compute pass and reads the
// ids back through a staging buffer. It implements terrain.Source.
//
//	@group(0) @binding(0) voxels, storage read_write
//	@group(0) @binding(1) args uniform
//	@group(0) @binding(2) chunk coordinate uniform
type TerrainGenerator struct {
	Device *wgpu.Device
	Args   terrain.Args
	Logger voxmarch.Logger

	Pipeline  *wgpu.ComputePipeline
	OutBuf    *wgpu.Buffer
	StageBuf  *wgpu.Buffer
	ArgsBuf   *wgpu.Buffer
	ChunkBuf  *wgpu.Buffer
	BindGroup *wgpu.BindGroup

	outSize uint64
}

func NewTerrainGenerator(device *wgpu.Device, args terrain.Args, logger voxmarch.Logger) (*TerrainGenerator, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	g := &TerrainGenerator{Device: device, Args: args, Logger: voxmarch.OrNop(logger)}

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Terrain Gen CS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.TerrainGenWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("terrain shader: %w", err)
	}
	defer module.Release()

	g.Pipeline, err = device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: "Terrain Gen Pipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("terrain pipeline: %w", err)
	}

	n := uint64(args.ChunkSize)
	g.outSize = n * n * n * 4

	g.OutBuf = g.createBuffer("TerrainOut", g.outSize, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	g.StageBuf = g.createBuffer("TerrainStage", g.outSize, wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)
	g.ArgsBuf = g.createBuffer("TerrainArgs", TerrainArgsSize, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	g.ChunkBuf = g.createBuffer("TerrainChunk", ChunkCoordSize, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)

	device.GetQueue().WriteBuffer(g.ArgsBuf, 0, PackTerrainArgs(args))

	g.BindGroup, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "TerrainBG",
		Layout: g.Pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: g.OutBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: g.ArgsBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: g.ChunkBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		g.Release()
		return nil, fmt.Errorf("terrain bind group: %w", err)
	}
	return g, nil
}

func (g *TerrainGenerator) createBuffer(label string, size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	buf, err := g.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		panic(err)
	}
	return buf
}

// GenerateChunk dispatches one chunk and blocks until its ids are mapped.
func (g *TerrainGenerator) GenerateChunk(coord [3]int32) (*volume.Grid, error) {
	g.Device.GetQueue().WriteBuffer(g.ChunkBuf, 0, PackChunkCoord(coord))

	encoder, err := g.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	wg := Workgroups(g.Args.ChunkSize, TerrainWorkgroupSize)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(g.Pipeline)
	pass.SetBindGroup(0, g.BindGroup, nil)
	pass.DispatchWorkgroups(wg, wg, wg)
	if err := pass.End(); err != nil {
		return nil, err
	}
	encoder.CopyBufferToBuffer(g.OutBuf, 0, g.StageBuf, 0, g.outSize)

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	g.Device.GetQueue().Submit(cmd)
	g.Logger.Debugf("terrain chunk %v: dispatched %dx%dx%d workgroups", coord, wg, wg, wg)

	ids, err := g.readback()
	if err != nil {
		return nil, fmt.Errorf("terrain chunk %v: %w", coord, err)
	}
	n := int(g.Args.ChunkSize)
	return volume.GridFromIDs(n, n, n, ids)
}

func (g *TerrainGenerator) readback() ([]uint32, error) {
	var status wgpu.BufferMapAsyncStatus
	err := g.StageBuf.MapAsync(wgpu.MapModeRead, 0, g.outSize, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	})
	if err != nil {
		return nil, err
	}
	g.Device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("%w: status %v", ErrReadback, status)
	}
	data := g.StageBuf.GetMappedRange(0, uint(g.outSize))
	ids := UnpackVoxels(data)
	g.StageBuf.Unmap()
	return ids, nil
}

func (g *TerrainGenerator) Release() {
	if g.BindGroup != nil {
		g.BindGroup.Release()
		g.BindGroup = nil
	}
	for _, b := range []**wgpu.Buffer{&g.OutBuf, &g.StageBuf, &g.ArgsBuf, &g.ChunkBuf} {
		if *b != nil {
			(*b).Release()
			*b = nil
		}
	}
	if g.Pipeline != nil {
		g.Pipeline.Release()
		g.Pipeline = nil
	}
}
