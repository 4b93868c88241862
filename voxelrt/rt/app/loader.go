package app

import (
	"fmt"

	"github.com/gekko3d/voxmarch"
	"github.com/gekko3d/voxmarch/voxelrt/rt/core"
	"github.com/gekko3d/voxmarch/voxelrt/rt/terrain"
	"github.com/gekko3d/voxmarch/voxelrt/rt/volume"
	"github.com/gekko3d/voxmarch/voxelrt/rt/vox"
	"github.com/go-gl/mathgl/mgl32"
)

func TerrainArgs(tc voxmarch.TerrainConfig) terrain.Args {
	return terrain.Args{
		ChunkSize: tc.ChunkSize,
		Seed:      tc.Seed,
		Frequency: tc.Frequency,
		Threshold: tc.Threshold,
	}
}

// NewCameraState builds the fly camera described by the config.
func NewCameraState(cc voxmarch.CameraConfig) *core.CameraState {
	cam := core.NewCameraState()
	cam.Position = mgl32.Vec3(cc.Eye)
	cam.Fov = mgl32.DegToRad(cc.FovDegrees)
	if cc.Speed > 0 {
		cam.Speed = cc.Speed
	}
	if cc.Sensitivity > 0 {
		cam.Sensitivity = cc.Sensitivity
	}
	cam.LookAt(mgl32.Vec3(cc.Target))
	return cam
}

// LoadScene imports models, rasterizes primitives and generates terrain chunks
// into one scene, then commits it. src may be nil, in which case terrain is
// generated on the CPU.
func LoadScene(cfg voxmarch.Config, src terrain.Source, logger voxmarch.Logger) (*core.Scene, error) {
	logger = voxmarch.OrNop(logger)
	scene := core.NewScene()
	scene.MaxStepsOverride = cfg.Render.MaxSteps

	paletteSet := false
	for i, mc := range cfg.Models {
		remap, err := vox.ParseRemap(mc.Remap)
		if err != nil {
			return nil, fmt.Errorf("models[%d]: %w", i, err)
		}
		res, err := vox.ImportPath(mc.Path, vox.ImportOptions{
			Origin:    mgl32.Vec3(mc.Origin),
			VoxelSize: mc.VoxelSize,
			Remap:     remap,
		})
		if err != nil {
			return nil, fmt.Errorf("models[%d] %s: %w", i, mc.Path, err)
		}
		// The file palette only makes sense when ids are palette indices.
		if !paletteSet && (mc.Remap == "" || mc.Remap == "identity") {
			scene.Palette = core.NewPalette(res.Colors())
			paletteSet = true
		}
		for j, m := range res.Models {
			name := fmt.Sprintf("%s#%d", mc.Path, j)
			volID, err := scene.AddVolume(name, m.Volume, m.Grid)
			if err != nil {
				return nil, err
			}
			for _, ic := range mc.Instances {
				if _, err := scene.AddInstance(volID, volume.NewPlacement(mgl32.Vec3(ic.Origin), ic.Scale)); err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
			}
			logger.Infof("model %s: %v cells, %d filled, %d instances", name, m.Volume.Dims, m.Grid.Count(), len(mc.Instances))
		}
	}

	for i, pc := range cfg.Primitives {
		g, err := volume.Shape(pc.Shape, pc.Size, pc.ID)
		if err != nil {
			return nil, fmt.Errorf("primitives[%d]: %w", i, err)
		}
		vol, err := volume.NewVolume(mgl32.Vec3{}, 1, pc.Size[0], pc.Size[1], pc.Size[2])
		if err != nil {
			return nil, fmt.Errorf("primitives[%d]: %w", i, err)
		}
		name := fmt.Sprintf("%s#%d", pc.Shape, i)
		volID, err := scene.AddVolume(name, vol, g)
		if err != nil {
			return nil, err
		}
		if _, err := scene.AddInstance(volID, volume.NewPlacement(mgl32.Vec3(pc.Origin), pc.Scale)); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		logger.Debugf("primitive %s: %d filled", name, g.Count())
	}

	if cfg.Terrain.Enabled {
		if err := loadTerrain(scene, cfg.Terrain, src, logger); err != nil {
			return nil, err
		}
	}

	if err := scene.Commit(); err != nil {
		return nil, err
	}
	logger.Infof("scene: %d volumes, %d instances, %d cells, max steps %d",
		len(scene.Volumes), len(scene.Instances), len(scene.Voxels), scene.MaxSteps())
	return scene, nil
}

func loadTerrain(scene *core.Scene, tc voxmarch.TerrainConfig, src terrain.Source, logger voxmarch.Logger) error {
	args := TerrainArgs(tc)
	if src == nil {
		src = terrain.NewCPUGenerator(args)
	}
	n := int(tc.ChunkSize)
	for _, c := range tc.Chunks {
		g, err := src.GenerateChunk(c)
		if err != nil {
			return fmt.Errorf("terrain chunk %v: %w", c, err)
		}
		vol, err := volume.NewVolume(terrain.ChunkOrigin(c, tc.ChunkSize, tc.VoxelSize), tc.VoxelSize, n, n, n)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("chunk(%d,%d,%d)", c[0], c[1], c[2])
		volID, err := scene.AddVolume(name, vol, g)
		if err != nil {
			return err
		}
		if _, err := scene.AddInstance(volID, volume.IdentityPlacement()); err != nil {
			return err
		}
		logger.Debugf("terrain %s: %d high cells", name, g.Histogram()[terrain.HighID])
	}
	return nil
}
