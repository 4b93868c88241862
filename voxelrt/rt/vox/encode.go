package vox

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gekko3d/voxmarch/voxelrt/rt/volume"
)

// FromGrid converts an engine grid back to a sparse file model, undoing the
// axis swap. Ids above 255 do not fit a palette index and are rejected.
func FromGrid(g *volume.Grid) (RawModel, error) {
	dx, dy, dz := g.Dims[0], g.Dims[1], g.Dims[2]
	if dx > MaxExtent || dy > MaxExtent || dz > MaxExtent {
		return RawModel{}, fmt.Errorf("grid %v exceeds %d cells per axis", g.Dims, MaxExtent)
	}
	m := RawModel{Size: [3]uint32{uint32(dx), uint32(dz), uint32(dy)}}
	for i, id := range g.IDs {
		if id == volume.EmptyID {
			continue
		}
		if id > 255 {
			return RawModel{}, fmt.Errorf("id %d does not fit a palette index", id)
		}
		x, y, z := volume.Unflatten(i, g.Dims)
		m.Voxels = append(m.Voxels, Voxel{X: uint8(x), Y: uint8(z), Z: uint8(y), Index: uint8(id)})
	}
	return m, nil
}

// Encode writes models and an optional palette as a MAIN chunk with SIZE,
// XYZI and RGBA children.
func Encode(w io.Writer, models []RawModel, palette *Palette) error {
	var children bytes.Buffer
	for _, m := range models {
		var size [12]byte
		binary.LittleEndian.PutUint32(size[0:], m.Size[0])
		binary.LittleEndian.PutUint32(size[4:], m.Size[1])
		binary.LittleEndian.PutUint32(size[8:], m.Size[2])
		writeChunk(&children, "SIZE", size[:])

		xyzi := make([]byte, 4+4*len(m.Voxels))
		binary.LittleEndian.PutUint32(xyzi, uint32(len(m.Voxels)))
		for i, v := range m.Voxels {
			copy(xyzi[4+4*i:], []byte{v.X, v.Y, v.Z, v.Index})
		}
		writeChunk(&children, "XYZI", xyzi)
	}
	if palette != nil {
		rgba := make([]byte, 256*4)
		for i := 0; i < 255; i++ {
			copy(rgba[4*i:], palette[i+1][:])
		}
		writeChunk(&children, "RGBA", rgba)
	}

	var out bytes.Buffer
	out.WriteString(MagicNumber)
	_ = binary.Write(&out, binary.LittleEndian, int32(Version))
	out.WriteString("MAIN")
	_ = binary.Write(&out, binary.LittleEndian, [2]int32{0, int32(children.Len())})
	out.Write(children.Bytes())

	_, err := w.Write(out.Bytes())
	return err
}

func writeChunk(buf *bytes.Buffer, id string, data []byte) {
	buf.WriteString(id)
	_ = binary.Write(buf, binary.LittleEndian, [2]int32{int32(len(data)), 0})
	buf.Write(data)
}
