package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gekko3d/voxmarch"
	"github.com/gekko3d/voxmarch/voxelrt/rt/app"
	"github.com/gekko3d/voxmarch/voxelrt/rt/terrain"
	"github.com/gekko3d/voxmarch/voxelrt/rt/volume"
	"github.com/gekko3d/voxmarch/voxelrt/rt/vox"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func newLogger(ctx *cli.Context) voxmarch.Logger {
	return voxmarch.NewDefaultLogger("voxsnap", ctx.GlobalBool("v"))
}

// RenderFrame renders a config with the software pass.
func RenderFrame(ctx *cli.Context) error {
	logger := newLogger(ctx)
	if ctx.NArg() != 1 {
		return errors.New("missing config file argument")
	}
	cfg, err := voxmarch.LoadConfig(ctx.Args().First())
	if err != nil {
		return err
	}
	w, h := ctx.Int("width"), ctx.Int("height")
	if w <= 0 {
		w = cfg.Window.Width
	}
	if h <= 0 {
		h = cfg.Window.Height
	}

	start := time.Now()
	scene, err := app.LoadScene(cfg, nil, logger)
	if err != nil {
		return err
	}
	loadTime := time.Since(start)

	surface := app.NewImageSurface(uint32(w), uint32(h))
	pass := app.NewSoftwarePass(scene, mgl32.Vec4(cfg.Render.Background))
	driver := app.NewFrameDriver(surface, pass, uint32(w), uint32(h), logger)
	pass.Profiler = driver.Profiler

	res, err := driver.Frame(app.NewCameraState(cfg.Camera).Camera())
	if err != nil {
		return err
	}
	if res != app.FramePresented {
		return fmt.Errorf("frame %dx%d was skipped", w, h)
	}

	out := ctx.String("out")
	if err := saveImage(out, surface.Image); err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Output", "Size", "Instances", "Hits", "Misses", "Load", "Frame"})
	table.Append([]string{
		out,
		fmt.Sprintf("%dx%d", w, h),
		fmt.Sprintf("%d", len(scene.Records())),
		fmt.Sprintf("%d", driver.Profiler.Counts["Hits"]),
		fmt.Sprintf("%d", driver.Profiler.Counts["Misses"]),
		loadTime.Round(time.Millisecond).String(),
		driver.Profiler.Scopes["Frame"].Round(time.Microsecond).String(),
	})
	table.Render()
	logger.Infof("frame statistics\n%s", buf.String())
	return nil
}

// saveImage encodes img by the extension of path.
func saveImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encodeImage(f, filepath.Ext(path), img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func encodeImage(w io.Writer, ext string, img image.Image) error {
	switch strings.ToLower(ext) {
	case ".png", "":
		return png.Encode(w, img)
	case ".bmp":
		return bmp.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("unsupported image format %q", ext)
}

// ImportModel prints what the importer produces for a .vox file.
func ImportModel(ctx *cli.Context) error {
	logger := newLogger(ctx)
	if ctx.NArg() != 1 {
		return errors.New("missing .vox file argument")
	}
	remap, err := vox.ParseRemap(ctx.String("remap"))
	if err != nil {
		return err
	}
	opts := vox.DefaultImportOptions()
	opts.Remap = remap
	res, err := vox.ImportPath(ctx.Args().First(), opts)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Model", "Dims", "Cells", "Filled", "Ids"})
	for i, m := range res.Models {
		table.Append([]string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%dx%dx%d", m.Volume.Dims[0], m.Volume.Dims[1], m.Volume.Dims[2]),
			fmt.Sprintf("%d", m.Volume.Len()),
			fmt.Sprintf("%d", m.Grid.Count()),
			fmt.Sprintf("%d", distinctIDs(m.Grid)),
		})
	}
	table.Render()
	fmt.Fprint(ctx.App.Writer, buf.String())
	logger.Debugf("imported %d models from %s", len(res.Models), ctx.Args().First())
	return nil
}

// distinctIDs counts the non-empty ids present in g.
func distinctIDs(g *volume.Grid) int {
	h := g.Histogram()
	n := len(h)
	if _, ok := h[volume.EmptyID]; ok {
		n--
	}
	return n
}

// GenerateTerrain evaluates one chunk and prints its id histogram.
func GenerateTerrain(ctx *cli.Context) error {
	logger := newLogger(ctx)
	args := terrain.Args{
		ChunkSize: uint32(ctx.Int("chunk-size")),
		Seed:      uint32(ctx.Int("seed")),
		Frequency: float32(ctx.Float64("frequency")),
		Threshold: float32(ctx.Float64("threshold")),
	}
	var coord [3]int32
	if c := ctx.IntSlice("chunk"); len(c) > 0 {
		if len(c) != 3 {
			return fmt.Errorf("chunk needs 3 coordinates, got %d", len(c))
		}
		coord = [3]int32{int32(c[0]), int32(c[1]), int32(c[2])}
	}

	start := time.Now()
	g, err := terrain.NewCPUGenerator(args).GenerateChunk(coord)
	if err != nil {
		return err
	}
	logger.Debugf("chunk %v generated in %s", coord, time.Since(start))

	hist := g.Histogram()
	ids := make([]int, 0, len(hist))
	for id := range hist {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Id", "Cells", "% of chunk"})
	for _, id := range ids {
		n := hist[uint32(id)]
		table.Append([]string{
			fmt.Sprintf("%d", id),
			fmt.Sprintf("%d", n),
			fmt.Sprintf("%02.1f %%", 100*float64(n)/float64(g.Len())),
		})
	}
	table.Render()
	fmt.Fprint(ctx.App.Writer, buf.String())

	if out := ctx.String("out"); out != "" {
		return writeChunk(out, g)
	}
	return nil
}

func writeChunk(path string, g *volume.Grid) error {
	raw, err := vox.FromGrid(g)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := vox.Encode(f, []vox.RawModel{raw}, nil); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
