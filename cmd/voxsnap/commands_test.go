package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/voxmarch/voxelrt/rt/terrain"
	"github.com/gekko3d/voxmarch/voxelrt/rt/vox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func TestEncodeImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.SetRGBA(1, 1, color.RGBA{10, 20, 30, 255})

	var buf bytes.Buffer
	require.NoError(t, encodeImage(&buf, ".PNG", img))
	got, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), got.Bounds())

	buf.Reset()
	require.NoError(t, encodeImage(&buf, ".bmp", img))
	_, err = bmp.Decode(&buf)
	require.NoError(t, err)

	buf.Reset()
	require.NoError(t, encodeImage(&buf, ".tiff", img))
	got, err = tiff.Decode(&buf)
	require.NoError(t, err)
	r, g, b, _ := got.At(1, 1).RGBA()
	assert.Equal(t, [3]uint32{10, 20, 30}, [3]uint32{r >> 8, g >> 8, b >> 8})

	assert.Error(t, encodeImage(&buf, ".gif", img))
}

func TestTerrainThenImport(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "chunk.vox")

	app := newApp()
	var stdout bytes.Buffer
	app.Writer = &stdout
	require.NoError(t, app.Run([]string{"voxsnap", "terrain", "--chunk-size", "8", "--seed", "3", "-o", out}))
	assert.Contains(t, stdout.String(), "% of chunk")

	res, err := vox.ImportPath(out, vox.DefaultImportOptions())
	require.NoError(t, err)
	require.Len(t, res.Models, 1)

	args := terrain.DefaultArgs()
	args.ChunkSize = 8
	args.Seed = 3
	want, err := terrain.NewCPUGenerator(args).GenerateChunk([3]int32{})
	require.NoError(t, err)
	assert.Equal(t, want.IDs, res.Models[0].Grid.IDs)

	stdout.Reset()
	require.NoError(t, app.Run([]string{"voxsnap", "import", out}))
	assert.Contains(t, stdout.String(), "8x8x8")

	assert.Error(t, app.Run([]string{"voxsnap", "terrain", "--chunk", "1", "--chunk", "2"}))
}

func TestRenderFrame(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "scene.yaml")
	cfg := `
camera:
  eye: [4, 4, -12]
  target: [4, 4, 4]
  fov_degrees: 60
primitives:
  - shape: box
    size: [8, 8, 8]
    id: 3
render:
  background: [0, 0, 0, 1]
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	out := filepath.Join(dir, "frame.png")

	app := newApp()
	require.NoError(t, app.Run([]string{"voxsnap", "render", "--width", "16", "--height", "12", "-o", out, cfgPath}))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 12), img.Bounds())

	r, g, b, _ := img.At(8, 5).RGBA()
	assert.NotZero(t, r+g+b, "center sees the box")
	r, g, b, _ = img.At(0, 0).RGBA()
	assert.Zero(t, r+g+b, "corner sees the background")

	assert.Error(t, app.Run([]string{"voxsnap", "render"}))
}
