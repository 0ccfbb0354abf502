package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/lehigh-university-libraries/scanpipe/cmd"
)

const version = "0.1.0"

func main() {
	root := cmd.NewRootCmd()

	// fang renders help and usage errors, adds --version and cancels the context on interrupt
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(cmd.ErrorHandler),
	); err != nil {
		os.Exit(1)
	}
}
