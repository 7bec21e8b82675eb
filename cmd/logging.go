package cmd

import (
	"github.com/urfave/cli"

	"github.com/HugoPeters1024/vk-rays/log"
)

var logger = log.New("vk-rays")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Debug)
	}
	if ctx.GlobalBool("q") {
		log.SetLevel(log.Warning)
	}
}
