package gpu

import (
	"github.com/gekko3d/voxmarch/voxelrt/rt/core"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// GpuBufferManager owns the buffers read by the ray-march pass:
//
//	@group(0) @binding(0) camera uniform
//	@group(0) @binding(1) instances, storage read
//	@group(0) @binding(2) voxel ids, storage read
//	@group(0) @binding(3) palette, storage read
type GpuBufferManager struct {
	Device *wgpu.Device

	CameraBuf    *wgpu.Buffer
	InstancesBuf *wgpu.Buffer
	VoxelsBuf    *wgpu.Buffer
	PaletteBuf   *wgpu.Buffer

	BindGroup0 *wgpu.BindGroup

	InstanceCount uint32
	MaxSteps      uint32
}

func NewGpuBufferManager(device *wgpu.Device) *GpuBufferManager {
	return &GpuBufferManager{Device: device}
}

// ensureBuffer writes data into *buf, recreating it when it is missing or too
// small. It reports whether the buffer was recreated, in which case bind
// groups referring to it are stale.
func (m *GpuBufferManager) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage, headroom int) bool {
	neededSize := uint64(len(data) + headroom)
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}

	current := *buf
	if current == nil || current.GetSize() < neededSize {
		if current != nil {
			current.Release()
		}

		desc := &wgpu.BufferDescriptor{
			Label:            name,
			Size:             neededSize,
			Usage:            usage | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		}
		newBuf, err := m.Device.CreateBuffer(desc)
		if err != nil {
			panic(err)
		}
		*buf = newBuf

		if len(data) > 0 {
			m.Device.GetQueue().WriteBuffer(*buf, 0, data)
		}
		return true
	}
	if len(data) > 0 {
		m.Device.GetQueue().WriteBuffer(*buf, 0, data)
	}
	return false
}

// UpdateCamera uploads the per-frame camera uniform.
func (m *GpuBufferManager) UpdateCamera(rc core.RTCamera, background mgl32.Vec4) bool {
	data := PackCamera(rc, m.MaxSteps, m.InstanceCount, background)
	return m.ensureBuffer("CameraUB", &m.CameraBuf, data, wgpu.BufferUsageUniform, 0)
}

// UpdateScene uploads instances, voxels and palette. Called at scene build;
// the storage buffers are read-only afterwards. Returns true when any buffer
// was recreated.
func (m *GpuBufferManager) UpdateScene(scene *core.Scene) bool {
	records := scene.Records()
	m.InstanceCount = uint32(len(records))
	m.MaxSteps = uint32(scene.MaxSteps())

	recreated := false
	if m.ensureBuffer("InstancesBuf", &m.InstancesBuf, PackInstances(records), wgpu.BufferUsageStorage, 0) {
		recreated = true
	}
	if m.ensureBuffer("VoxelsBuf", &m.VoxelsBuf, PackVoxels(scene.Voxels), wgpu.BufferUsageStorage, 0) {
		recreated = true
	}
	if m.ensureBuffer("PaletteBuf", &m.PaletteBuf, PackPalette(scene.Palette), wgpu.BufferUsageStorage, 0) {
		recreated = true
	}
	return recreated
}

func (m *GpuBufferManager) CreateBindGroups(pipeline *wgpu.RenderPipeline) error {
	if m.CameraBuf == nil {
		m.ensureBuffer("CameraUB", &m.CameraBuf, make([]byte, CameraUniformSize), wgpu.BufferUsageUniform, 0)
	}
	if m.BindGroup0 != nil {
		m.BindGroup0.Release()
	}

	entries0 := []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: m.CameraBuf, Size: wgpu.WholeSize},
		{Binding: 1, Buffer: m.InstancesBuf, Size: wgpu.WholeSize},
		{Binding: 2, Buffer: m.VoxelsBuf, Size: wgpu.WholeSize},
		{Binding: 3, Buffer: m.PaletteBuf, Size: wgpu.WholeSize},
	}
	desc0 := &wgpu.BindGroupDescriptor{
		Label:   "RaymarchBG0",
		Layout:  pipeline.GetBindGroupLayout(0),
		Entries: entries0,
	}
	var err error
	m.BindGroup0, err = m.Device.CreateBindGroup(desc0)
	return err
}

func (m *GpuBufferManager) Release() {
	if m.BindGroup0 != nil {
		m.BindGroup0.Release()
		m.BindGroup0 = nil
	}
	for _, b := range []**wgpu.Buffer{&m.CameraBuf, &m.InstancesBuf, &m.VoxelsBuf, &m.PaletteBuf} {
		if *b != nil {
			(*b).Release()
			*b = nil
		}
	}
}
