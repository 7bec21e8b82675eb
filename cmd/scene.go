package cmd

import (
	"bytes"

	"github.com/urfave/cli"

	"github.com/HugoPeters1024/vk-rays/scene"
)

// SceneInfo prints a resource summary of the built-in scene.
func SceneInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	sc, err := scene.BuildDemoScene()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	sc.WriteStats(&buf)
	logger.Infof("scene information\n%s", buf.String())
	return nil
}
