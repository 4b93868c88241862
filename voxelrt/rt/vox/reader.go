package vox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

const (
	MagicNumber = "VOX "
	// Version written by Encode.
	Version = 150
	// MaxExtent is the largest model edge MagicaVoxel stores.
	MaxExtent = 256

	maxChunkSize = 1 << 28
)

// Voxel is one sparse entry in file coordinates (Z up).
type Voxel struct {
	X, Y, Z, Index uint8
}

type RawModel struct {
	Size   [3]uint32
	Voxels []Voxel
}

// Palette holds file colors keyed by palette index. Entry 0 is unused.
type Palette [256][4]uint8

type Material struct {
	ID       int
	Type     string
	Weight   float32
	Property map[string]string
}

type File struct {
	Version   int
	Models    []RawModel
	Palette   Palette
	Materials []Material
}

func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses a MagicaVoxel stream. Every SIZE chunk opens a new model and
// the following XYZI chunk fills it. Unknown chunks are skipped.
func Read(r io.Reader) (*File, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, malformed("header: %v", err)
	}
	if string(magic[:]) != MagicNumber {
		return nil, malformed("bad magic %q", magic[:])
	}

	var version int32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, malformed("version: %v", err)
	}

	vf := &File{
		Version: int(version),
		Palette: defaultPalette(),
	}
	sizedModels := 0

	for {
		var chunkID [4]byte
		if _, err := io.ReadFull(r, chunkID[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, malformed("chunk id: %v", err)
		}

		var header [2]int32
		if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
			return nil, malformed("chunk %s header: %v", chunkID[:], err)
		}
		chunkSize := header[0]
		if chunkSize < 0 || chunkSize > maxChunkSize {
			return nil, malformed("chunk %s size %d", chunkID[:], chunkSize)
		}

		chunkData, err := readBody(r, int64(chunkSize))
		if err != nil {
			return nil, malformed("chunk %s body: %v", chunkID[:], err)
		}

		switch string(chunkID[:]) {
		case "MAIN":
			// Children follow as regular chunks.
			continue
		case "SIZE":
			if len(chunkData) < 12 {
				return nil, malformed("SIZE chunk too small")
			}
			size := [3]uint32{
				binary.LittleEndian.Uint32(chunkData[0:4]),
				binary.LittleEndian.Uint32(chunkData[4:8]),
				binary.LittleEndian.Uint32(chunkData[8:12]),
			}
			if err := checkExtents(size); err != nil {
				return nil, err
			}
			vf.Models = append(vf.Models, RawModel{Size: size})
			sizedModels++
		case "XYZI":
			if sizedModels == 0 {
				return nil, malformed("XYZI chunk before SIZE")
			}
			if len(chunkData) < 4 {
				return nil, malformed("XYZI chunk too small")
			}
			numVoxels := int(binary.LittleEndian.Uint32(chunkData[:4]))
			if numVoxels < 0 || len(chunkData)-4 < numVoxels*4 {
				return nil, malformed("XYZI chunk holds %d bytes for %d voxels", len(chunkData)-4, numVoxels)
			}
			model := &vf.Models[len(vf.Models)-1]
			model.Voxels = make([]Voxel, numVoxels)
			for i := range model.Voxels {
				off := 4 + i*4
				model.Voxels[i] = Voxel{
					X:     chunkData[off],
					Y:     chunkData[off+1],
					Z:     chunkData[off+2],
					Index: chunkData[off+3],
				}
			}
		case "RGBA":
			// Color i of the chunk belongs to palette index i+1.
			for i := 0; i < 255; i++ {
				off := i * 4
				if off+3 >= len(chunkData) {
					break
				}
				copy(vf.Palette[i+1][:], chunkData[off:off+4])
			}
		case "MATL":
			mat, err := parseMaterial(chunkData)
			if err != nil {
				return nil, malformed("MATL: %v", err)
			}
			vf.Materials = append(vf.Materials, mat)
		}
	}

	return vf, nil
}

// readBody reads exactly n bytes. The buffer grows with the data actually
// present, so a header claiming more than the stream holds fails without
// allocating the claimed size.
func readBody(r io.Reader, n int64) ([]byte, error) {
	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, r, n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%d of %d bytes: %w", copied, n, io.ErrUnexpectedEOF)
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

func checkExtents(size [3]uint32) error {
	for _, e := range size {
		if e == 0 || e > MaxExtent {
			return malformed("model extents %v outside 1..%d", size, MaxExtent)
		}
	}
	return nil
}

func parseMaterial(data []byte) (Material, error) {
	rd := bytes.NewReader(data)
	var id int32
	if err := binary.Read(rd, binary.LittleEndian, &id); err != nil {
		return Material{}, err
	}
	mat := Material{ID: int(id), Property: make(map[string]string)}

	dict, err := readDict(rd)
	if err != nil {
		return mat, err
	}
	for k, v := range dict {
		switch k {
		case "_type":
			mat.Type = v
		case "_weight":
			w, err := strconv.ParseFloat(v, 32)
			if err != nil {
				return mat, fmt.Errorf("weight %q: %w", v, err)
			}
			mat.Weight = float32(w)
		default:
			mat.Property[k] = v
		}
	}
	return mat, nil
}

func readDict(rd *bytes.Reader) (map[string]string, error) {
	var n int32
	if err := binary.Read(rd, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n < 0 || int64(n) > int64(rd.Len()) {
		return nil, fmt.Errorf("dict of %d entries", n)
	}
	out := make(map[string]string, n)
	for i := int32(0); i < n; i++ {
		k, err := readString(rd)
		if err != nil {
			return nil, err
		}
		v, err := readString(rd)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func readString(rd *bytes.Reader) (string, error) {
	var n int32
	if err := binary.Read(rd, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n < 0 || int64(n) > int64(rd.Len()) {
		return "", fmt.Errorf("string of %d bytes", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rd, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func defaultPalette() Palette {
	var palette Palette
	for i := range palette {
		palette[i] = [4]uint8{255, 255, 255, 255} // white as fallback
	}
	palette[0] = [4]uint8{}
	return palette
}
