package shaders

import (
	_ "embed"
)

//go:embed voxel_raytrace.wgsl
var VoxelRaytraceWGSL string

//go:embed terrain_gen.wgsl
var TerrainGenWGSL string
