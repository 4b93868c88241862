package voxmarch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Window     WindowConfig      `yaml:"window"`
	Camera     CameraConfig      `yaml:"camera"`
	Render     RenderConfig      `yaml:"render"`
	Models     []ModelConfig     `yaml:"models"`
	Primitives []PrimitiveConfig `yaml:"primitives"`
	Terrain    TerrainConfig     `yaml:"terrain"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

type CameraConfig struct {
	Eye         [3]float32 `yaml:"eye"`
	Target      [3]float32 `yaml:"target"`
	FovDegrees  float32    `yaml:"fov_degrees"`
	Speed       float32    `yaml:"speed"`
	Sensitivity float32    `yaml:"sensitivity"`
}

type RenderConfig struct {
	Background [4]float32 `yaml:"background"`
	// MaxSteps overrides the traversal step bound; 0 derives it from the scene.
	MaxSteps int  `yaml:"max_steps"`
	Debug    bool `yaml:"debug"`
}

type ModelConfig struct {
	Path      string           `yaml:"path"`
	VoxelSize float32          `yaml:"voxel_size"`
	Origin    [3]float32       `yaml:"origin"`
	// Remap is "identity" (palette index is the voxel id) or "solid:<id>".
	Remap     string           `yaml:"remap"`
	Instances []InstanceConfig `yaml:"instances"`
}

type InstanceConfig struct {
	Origin [3]float32 `yaml:"origin"`
	Scale  float32    `yaml:"scale"`
}

// PrimitiveConfig describes a procedural volume: "sphere", "box" or "cylinder".
type PrimitiveConfig struct {
	Shape  string     `yaml:"shape"`
	Size   [3]int     `yaml:"size"`
	ID     uint32     `yaml:"id"`
	Origin [3]float32 `yaml:"origin"`
	Scale  float32    `yaml:"scale"`
}

type TerrainConfig struct {
	Enabled   bool       `yaml:"enabled"`
	GPU       bool       `yaml:"gpu"`
	ChunkSize uint32     `yaml:"chunk_size"`
	Seed      uint32     `yaml:"seed"`
	Frequency float32    `yaml:"frequency"`
	Threshold float32    `yaml:"threshold"`
	VoxelSize float32    `yaml:"voxel_size"`
	Chunks    [][3]int32 `yaml:"chunks"`
}

func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{Width: 1280, Height: 720, Title: "voxmarch"},
		Camera: CameraConfig{
			Eye:         [3]float32{-12, 10, -12},
			Target:      [3]float32{8, 4, 8},
			FovDegrees:  60,
			Speed:       10,
			Sensitivity: 0.003,
		},
		Render: RenderConfig{Background: [4]float32{0, 0, 0, 1}},
		Terrain: TerrainConfig{
			ChunkSize: 32,
			Seed:      1,
			Frequency: 1.0 / 40.0,
			Threshold: 0.5,
			VoxelSize: 1,
			GPU:       true,
			Chunks:    [][3]int32{{0, 0, 0}},
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	for i := range c.Models {
		m := &c.Models[i]
		if m.VoxelSize == 0 {
			m.VoxelSize = 1
		}
		if m.Remap == "" {
			m.Remap = "identity"
		}
		if len(m.Instances) == 0 {
			m.Instances = []InstanceConfig{{Scale: 1}}
		}
		for j := range m.Instances {
			if m.Instances[j].Scale == 0 {
				m.Instances[j].Scale = 1
			}
		}
	}
	for i := range c.Primitives {
		if c.Primitives[i].Scale == 0 {
			c.Primitives[i].Scale = 1
		}
		if c.Primitives[i].ID == 0 {
			c.Primitives[i].ID = 1
		}
	}
}

func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	if c.Camera.FovDegrees <= 0 || c.Camera.FovDegrees >= 180 {
		return fmt.Errorf("%w: fov_degrees %v must be in (0, 180)", ErrInvalidConfig, c.Camera.FovDegrees)
	}
	if c.Camera.Eye == c.Camera.Target {
		return fmt.Errorf("%w: camera eye equals target", ErrInvalidConfig)
	}
	if c.Render.MaxSteps < 0 {
		return fmt.Errorf("%w: max_steps %d", ErrInvalidConfig, c.Render.MaxSteps)
	}
	for i, m := range c.Models {
		if m.Path == "" {
			return fmt.Errorf("%w: models[%d] has no path", ErrInvalidConfig, i)
		}
		if !positive(m.VoxelSize) {
			return fmt.Errorf("%w: models[%d] voxel_size %v", ErrInvalidConfig, i, m.VoxelSize)
		}
		for j, inst := range m.Instances {
			if !positive(inst.Scale) {
				return fmt.Errorf("%w: models[%d].instances[%d] scale %v", ErrInvalidConfig, i, j, inst.Scale)
			}
		}
	}
	for i, p := range c.Primitives {
		switch p.Shape {
		case "sphere", "box", "cylinder":
		default:
			return fmt.Errorf("%w: primitives[%d] unknown shape %q", ErrInvalidConfig, i, p.Shape)
		}
		if p.Size[0] <= 0 || p.Size[1] <= 0 || p.Size[2] <= 0 {
			return fmt.Errorf("%w: primitives[%d] size %v", ErrInvalidConfig, i, p.Size)
		}
		if !positive(p.Scale) {
			return fmt.Errorf("%w: primitives[%d] scale %v", ErrInvalidConfig, i, p.Scale)
		}
	}
	if c.Terrain.Enabled {
		if c.Terrain.ChunkSize == 0 {
			return fmt.Errorf("%w: terrain chunk_size must be positive", ErrInvalidConfig)
		}
		if !positive(c.Terrain.VoxelSize) {
			return fmt.Errorf("%w: terrain voxel_size %v", ErrInvalidConfig, c.Terrain.VoxelSize)
		}
	}
	return nil
}

func positive(v float32) bool {
	return v > 0 && !math.IsInf(float64(v), 1)
}
