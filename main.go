package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/himatts/LimePipeline-sub001/cmd"
)

const version = "0.1.0"

func main() {
	root := cmd.NewRootCmd()

	// fang cancels the command context on interrupt, which stops a running phase between steps
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
