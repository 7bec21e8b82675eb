package cmd

import (
	"bytes"
	"fmt"

	"github.com/urfave/cli"

	"github.com/HugoPeters1024/vk-rays/tracer/soft"
)

// ListDevices prints the available tracing devices and their limits.
func ListDevices(ctx *cli.Context) error {
	setupLogging(ctx)

	var buf bytes.Buffer
	dev := soft.New(0)
	defer dev.Close()

	limits := dev.Limits()
	buf.WriteString(fmt.Sprintf("\n[Device 00]\n  Name             %s\n", dev.Name()))
	buf.WriteString(fmt.Sprintf("  Handle size      %d\n", limits.ShaderGroupHandleSize))
	buf.WriteString(fmt.Sprintf("  Handle alignment %d\n", limits.ShaderGroupHandleAlignment))
	buf.WriteString(fmt.Sprintf("  Base alignment   %d\n", limits.ShaderGroupBaseAlignment))
	buf.WriteString(fmt.Sprintf("  Max bounces      %d\n", limits.MaxBounces))

	logger.Info(buf.String())
	return nil
}
