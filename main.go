package main

import (
	"os"

	"github.com/urfave/cli"

	"github.com/HugoPeters1024/vk-rays/cmd"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	frameFlags := []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Value: 640,
			Usage: "frame width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 480,
			Usage: "frame height",
		},
		cli.IntFlag{
			Name:  "bounces",
			Value: 8,
			Usage: "max path length per sample",
		},
		cli.Float64Flag{
			Name:  "exposure",
			Value: 1.0,
			Usage: "camera exposure for tone-mapping",
		},
		cli.Float64Flag{
			Name:  "aperture",
			Value: 0.0,
			Usage: "thin lens radius; 0 disables depth of field",
		},
		cli.IntFlag{
			Name:  "workers",
			Value: 0,
			Usage: "trace worker goroutines; 0 picks a default",
		},
	}

	app := cli.NewApp()
	app.Name = "vk-rays"
	app.Usage = "progressive path tracing on a ray-tracing device"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "q",
			Usage: "only log warnings and errors",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "list-devices",
			Usage:  "list available tracing devices",
			Action: cmd.ListDevices,
		},
		{
			Name:   "scene",
			Usage:  "print scene resource summary",
			Action: cmd.SceneInfo,
		},
		{
			Name:  "render",
			Usage: "render the built-in scene",
			Subcommands: []cli.Command{
				{
					Name:        "frame",
					Usage:       "render single frame",
					Description: `Accumulate frames until the sample target is met, then write a PNG.`,
					Flags: append(frameFlags,
						cli.IntFlag{
							Name:  "spp",
							Value: 64,
							Usage: "samples per pixel",
						},
						cli.StringFlag{
							Name:  "out, o",
							Value: "frame.png",
							Usage: "image filename for the rendered frame",
						}),
					Action: cmd.RenderFrame,
				},
				{
					Name:  "interactive",
					Usage: "render interactive view of the scene",
					Description: `Open an OpenGL window. Drag with the left mouse button to look around,
WASD/arrows to move, right click to set the depth-of-field focus,
brackets to adjust exposure.`,
					Flags: append(frameFlags,
						cli.IntFlag{
							Name:  "spp",
							Value: 0,
							Usage: "stop accumulating after this many samples; 0 keeps going",
						}),
					Action: cmd.RenderInteractive,
				},
			},
		},
	}

	app.Run(os.Args)
}
