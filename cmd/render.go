package cmd

import (
	"bytes"

	"github.com/urfave/cli"

	"github.com/HugoPeters1024/vk-rays/renderer"
	"github.com/HugoPeters1024/vk-rays/scene"
	"github.com/HugoPeters1024/vk-rays/tracer/rt"
	"github.com/HugoPeters1024/vk-rays/tracer/soft"
)

func renderOptions(ctx *cli.Context) renderer.Options {
	return renderer.Options{
		FrameW:  uint32(ctx.Int("width")),
		FrameH:  uint32(ctx.Int("height")),
		Samples: uint32(ctx.Int("spp")),
		Bounces: uint32(ctx.Int("bounces")),
	}
}

func setupTracer(ctx *cli.Context, opts renderer.Options) (*rt.Driver, *scene.Scene, error) {
	sc, err := scene.BuildDemoScene()
	if err != nil {
		return nil, nil, err
	}
	sc.Camera.Exposure = float32(ctx.Float64("exposure"))
	sc.Camera.Aperture = float32(ctx.Float64("aperture"))

	driver := rt.NewDriver(soft.New(ctx.Int("workers")))
	if opts.Bounces > 0 {
		driver.SetBounces(opts.Bounces)
	}
	return driver, sc, nil
}

// RenderFrame renders a still frame of the built-in scene to a PNG.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	opts := renderOptions(ctx)
	driver, sc, err := setupTracer(ctx, opts)
	if err != nil {
		return err
	}

	r, err := renderer.NewStill(sc, driver, opts, ctx.String("out"))
	if err != nil {
		return err
	}
	defer r.Close()

	if err = r.Render(); err != nil {
		return err
	}
	displayFrameStats(r.Stats())
	return nil
}

// RenderInteractive opens the OpenGL viewer on the built-in scene.
func RenderInteractive(ctx *cli.Context) error {
	setupLogging(ctx)

	opts := renderOptions(ctx)
	driver, sc, err := setupTracer(ctx, opts)
	if err != nil {
		return err
	}

	r, err := renderer.NewInteractive(sc, driver, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	if err = r.Render(); err != nil {
		return err
	}
	displayFrameStats(r.Stats())
	return nil
}

func displayFrameStats(stats renderer.FrameStats) {
	var buf bytes.Buffer
	stats.Write(&buf)
	logger.Infof("frame statistics\n%s", buf.String())
}
