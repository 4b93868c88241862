package vox

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/gekko3d/voxmarch/voxelrt/rt/volume"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrNoModel   = errors.New("no model")
	ErrMalformed = errors.New("malformed input")
)

// ImportError is returned for every import failure. Kind is ErrNoModel or
// ErrMalformed; Detail is the parser's message.
type ImportError struct {
	Kind   error
	Detail string
}

func (e *ImportError) Error() string {
	if e.Detail == "" {
		return "vox: " + e.Kind.Error()
	}
	return "vox: " + e.Kind.Error() + ": " + e.Detail
}

func (e *ImportError) Unwrap() error {
	return e.Kind
}

func malformed(format string, args ...any) error {
	return &ImportError{Kind: ErrMalformed, Detail: fmt.Sprintf(format, args...)}
}

// Remap turns a file palette index into an engine voxel id. 0 is empty.
type Remap func(index uint8) uint32

func IdentityRemap(index uint8) uint32 {
	return uint32(index)
}

// SolidRemap maps every non-zero index to id.
func SolidRemap(id uint32) Remap {
	return func(index uint8) uint32 {
		if index == 0 {
			return volume.EmptyID
		}
		return id
	}
}

// ParseRemap understands "identity" and "solid:<id>".
func ParseRemap(s string) (Remap, error) {
	switch {
	case s == "" || s == "identity":
		return IdentityRemap, nil
	case strings.HasPrefix(s, "solid:"):
		id, err := strconv.ParseUint(strings.TrimPrefix(s, "solid:"), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("remap %q: %w", s, err)
		}
		return SolidRemap(uint32(id)), nil
	}
	return nil, fmt.Errorf("unknown remap %q", s)
}

type ImportOptions struct {
	Origin    mgl32.Vec3
	VoxelSize float32
	Remap     Remap
}

func DefaultImportOptions() ImportOptions {
	return ImportOptions{VoxelSize: 1, Remap: IdentityRemap}
}

// Model is a dense, CPU-side import result ready for upload.
type Model struct {
	Volume volume.Volume
	Grid   *volume.Grid
}

type Result struct {
	Models  []Model
	Palette Palette
}

// Colors returns the file palette keyed by engine id for the identity remap.
func (r *Result) Colors() [][4]uint8 {
	out := make([][4]uint8, len(r.Palette))
	copy(out, r.Palette[:])
	out[0] = [4]uint8{}
	return out
}

// Import reads every model of a .vox stream into dense grids. The file is
// Z up; source (x, y, z) lands at engine (x, z, y).
func Import(r io.Reader, opts ImportOptions) (*Result, error) {
	vf, err := Read(r)
	if err != nil {
		return nil, err
	}
	return ImportFromFile(vf, opts)
}

func ImportPath(path string, opts ImportOptions) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Import(f, opts)
}

// ImportFirst imports only the first model.
func ImportFirst(r io.Reader, opts ImportOptions) (Model, error) {
	res, err := Import(r, opts)
	if err != nil {
		return Model{}, err
	}
	return res.Models[0], nil
}

func ImportFromFile(vf *File, opts ImportOptions) (*Result, error) {
	if opts.VoxelSize == 0 {
		opts.VoxelSize = 1
	}
	if !(opts.VoxelSize > 0) || math32.IsInf(opts.VoxelSize, 1) {
		return nil, fmt.Errorf("vox: voxel size %v must be positive and finite", opts.VoxelSize)
	}
	if opts.Remap == nil {
		opts.Remap = IdentityRemap
	}
	if len(vf.Models) == 0 {
		return nil, &ImportError{Kind: ErrNoModel}
	}

	res := &Result{Palette: vf.Palette}
	for i, raw := range vf.Models {
		m, err := importModel(raw, opts)
		if err != nil {
			return nil, fmt.Errorf("model %d: %w", i, err)
		}
		res.Models = append(res.Models, m)
	}
	return res, nil
}

func importModel(raw RawModel, opts ImportOptions) (Model, error) {
	if err := checkExtents(raw.Size); err != nil {
		return Model{}, err
	}
	sx, sy, sz := int(raw.Size[0]), int(raw.Size[1]), int(raw.Size[2])
	vol, err := volume.NewVolume(opts.Origin, opts.VoxelSize, sx, sz, sy)
	if err != nil {
		return Model{}, malformed("model extents %v: %v", raw.Size, err)
	}
	grid, err := volume.NewGrid(sx, sz, sy)
	if err != nil {
		return Model{}, malformed("model extents %v: %v", raw.Size, err)
	}
	for _, v := range raw.Voxels {
		if !grid.Set(int(v.X), int(v.Z), int(v.Y), opts.Remap(v.Index)) {
			return Model{}, malformed("voxel (%d,%d,%d) outside %v", v.X, v.Y, v.Z, raw.Size)
		}
	}
	return Model{Volume: vol, Grid: grid}, nil
}
