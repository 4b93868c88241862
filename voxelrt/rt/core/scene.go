package core

import (
	"fmt"

	"github.com/gekko3d/voxmarch/voxelrt/rt/volume"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// VolumeEntry is a volume whose cells live in the scene voxel buffer at Base.
type VolumeEntry struct {
	ID     uuid.UUID
	Name   string
	Volume volume.Volume
	Base   int
}

type InstanceEntry struct {
	ID        uuid.UUID
	VolumeID  uuid.UUID
	Placement volume.Placement
}

// Scene keeps every volume's ids in one shared buffer. Volumes and the buffer
// are append-only; instances may be added or removed before Commit.
type Scene struct {
	Volumes   []*VolumeEntry
	Instances []*InstanceEntry
	Voxels    []uint32
	Palette   Palette
	// MaxStepsOverride replaces the derived step budget when positive.
	MaxStepsOverride int

	byID     map[uuid.UUID]*VolumeEntry
	records  []volume.Instance
	maxSteps int
	dirty    bool
}

func NewScene() *Scene {
	return &Scene{
		Volumes:   []*VolumeEntry{},
		Instances: []*InstanceEntry{},
		Palette:   DefaultPalette(),
		byID:      make(map[uuid.UUID]*VolumeEntry),
		maxSteps:  volume.DefaultMaxSteps,
	}
}

// AddVolume appends g to the shared buffer and returns the new volume's handle.
func (s *Scene) AddVolume(name string, vol volume.Volume, g *volume.Grid) (uuid.UUID, error) {
	if err := vol.Validate(); err != nil {
		return uuid.Nil, fmt.Errorf("volume %q: %w", name, err)
	}
	if err := vol.Fits(g); err != nil {
		return uuid.Nil, fmt.Errorf("volume %q: %w", name, err)
	}
	e := &VolumeEntry{
		ID:     uuid.New(),
		Name:   name,
		Volume: vol,
		Base:   len(s.Voxels),
	}
	s.Voxels = append(s.Voxels, g.IDs...)
	s.Volumes = append(s.Volumes, e)
	s.byID[e.ID] = e
	s.dirty = true
	return e.ID, nil
}

func (s *Scene) Volume(id uuid.UUID) (*VolumeEntry, bool) {
	e, ok := s.byID[id]
	return e, ok
}

func (s *Scene) AddInstance(volumeID uuid.UUID, p volume.Placement) (uuid.UUID, error) {
	if _, ok := s.byID[volumeID]; !ok {
		return uuid.Nil, fmt.Errorf("unknown volume %s", volumeID)
	}
	if !(p.Scale > 0) {
		return uuid.Nil, fmt.Errorf("%w: scale %v", volume.ErrInvalidVolume, p.Scale)
	}
	e := &InstanceEntry{ID: uuid.New(), VolumeID: volumeID, Placement: p}
	s.Instances = append(s.Instances, e)
	s.dirty = true
	return e.ID, nil
}

func (s *Scene) RemoveInstance(id uuid.UUID) bool {
	for i, e := range s.Instances {
		if e.ID == id {
			s.Instances = append(s.Instances[:i], s.Instances[i+1:]...)
			s.dirty = true
			return true
		}
	}
	return false
}

// Dirty reports whether the scene changed since the last Commit.
func (s *Scene) Dirty() bool {
	return s.dirty
}

// Commit rebuilds the instance records in instance order and the traversal
// step budget.
func (s *Scene) Commit() error {
	records := make([]volume.Instance, 0, len(s.Instances))
	vols := make([]volume.Volume, 0, len(s.Volumes))
	for _, v := range s.Volumes {
		vols = append(vols, v.Volume)
	}
	for i, e := range s.Instances {
		v, ok := s.byID[e.VolumeID]
		if !ok {
			return fmt.Errorf("instance %d: unknown volume %s", i, e.VolumeID)
		}
		rec := volume.Instance{Placement: e.Placement, Volume: v.Volume, Base: v.Base}
		if err := rec.Validate(len(s.Voxels)); err != nil {
			return fmt.Errorf("instance %d: %w", i, err)
		}
		records = append(records, rec)
	}

	s.records = records
	s.maxSteps = volume.MaxStepsFor(vols...)
	if s.MaxStepsOverride > 0 {
		s.maxSteps = s.MaxStepsOverride
	}
	s.dirty = false
	return nil
}

// Records returns the committed instance records.
func (s *Scene) Records() []volume.Instance {
	return s.records
}

func (s *Scene) MaxSteps() int {
	return s.maxSteps
}

// Intersect runs the traversal against every committed instance and keeps the
// closest hit. Equal distances keep the earlier instance.
func (s *Scene) Intersect(r volume.Ray) volume.Hit {
	return IntersectInstances(r, s.records, s.Voxels, s.maxSteps)
}

func IntersectInstances(r volume.Ray, instances []volume.Instance, voxels []uint32, maxSteps int) volume.Hit {
	best := volume.Miss()
	for i, inst := range instances {
		h := volume.Traverse(r, inst, voxels, maxSteps)
		if !h.Hit || h.Distance < 0 {
			continue
		}
		if !best.Hit || h.Distance < best.Distance {
			h.Instance = i
			best = h
		}
	}
	return best
}

// Bounds is the union of the committed instance boxes.
func (s *Scene) Bounds() ([2]mgl32.Vec3, bool) {
	if len(s.records) == 0 {
		return [2]mgl32.Vec3{}, false
	}
	b := s.records[0].WorldAABB()
	for _, rec := range s.records[1:] {
		ib := rec.WorldAABB()
		for a := 0; a < 3; a++ {
			b[0][a] = min(b[0][a], ib[0][a])
			b[1][a] = max(b[1][a], ib[1][a])
		}
	}
	return b, true
}
