package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "voxsnap"
	app.Usage = "offline voxel ray-march tools"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable debug logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a scene config to an image",
			Description: `
Build the scene described by a YAML config and run the full-screen ray-march
pass on the CPU. The image format follows the output extension: .png, .bmp
or .tif/.tiff.`,
			ArgsUsage: "config.yaml",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Value: 0,
					Usage: "frame width, 0 uses the config window width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 0,
					Usage: "frame height, 0 uses the config window height",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
			},
			Action: RenderFrame,
		},
		{
			Name:      "import",
			Usage:     "import a .vox file and print per-model stats",
			ArgsUsage: "model.vox",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "remap",
					Value: "identity",
					Usage: `palette remap, "identity" or "solid:<id>"`,
				},
			},
			Action: ImportModel,
		},
		{
			Name:  "terrain",
			Usage: "generate one terrain chunk on the CPU",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "chunk-size", Value: 32, Usage: "chunk edge in voxels"},
				cli.IntFlag{Name: "seed", Value: 1, Usage: "noise seed"},
				cli.Float64Flag{Name: "frequency", Value: 1.0 / 40.0, Usage: "noise frequency per voxel"},
				cli.Float64Flag{Name: "threshold", Value: 0.5, Usage: "unit noise above which cells are high"},
				cli.IntSliceFlag{Name: "chunk", Value: &cli.IntSlice{}, Usage: "chunk coordinate, repeat three times for x y z"},
				cli.StringFlag{Name: "out, o", Usage: "optional .vox file to write the chunk to"},
			},
			Action: GenerateTerrain,
		},
	}
	return app
}
