package core

import "github.com/go-gl/mathgl/mgl32"

// Palette maps a voxel id to a linear RGBA color. Index 0 is the empty id and
// is never drawn.
type Palette []mgl32.Vec4

// ErrorColor is used for ids past the end of the palette.
var ErrorColor = mgl32.Vec4{1, 0, 1, 1}

// Terrain ids of the default palette.
const (
	Air uint32 = iota
	Dirt
	Grass
	Granite
	Sandstone
	TreeBark
	TreeLeaves
	Water
	ErrorVoxel
)

func rgb(r, g, b uint8) mgl32.Vec4 {
	return mgl32.Vec4{float32(r) / 255, float32(g) / 255, float32(b) / 255, 1}
}

func DefaultPalette() Palette {
	return Palette{
		Air:        {0, 0, 0, 0},
		Dirt:       rgb(69, 45, 45),
		Grass:      rgb(93, 146, 77),
		Granite:    rgb(136, 140, 141),
		Sandstone:  rgb(184, 176, 155),
		TreeBark:   rgb(105, 75, 53),
		TreeLeaves: rgb(95, 146, 106),
		Water:      rgb(28, 163, 236),
		ErrorVoxel: ErrorColor,
	}
}

// NewPalette builds a palette from 8-bit colors, colors[i] being the color of id i.
func NewPalette(colors [][4]uint8) Palette {
	p := make(Palette, len(colors))
	for i, c := range colors {
		p[i] = mgl32.Vec4{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255, float32(c[3]) / 255}
	}
	return p
}

func (p Palette) Color(id uint32) mgl32.Vec4 {
	if int(id) >= len(p) {
		return ErrorColor
	}
	return p[id]
}
