package main

import (
	"context"
	"io"
	"os"

	"github.com/autodd/autodd/internal/app"
	"github.com/autodd/autodd/internal/cli"
)

var exitFunc = os.Exit

func run(args []string, out io.Writer, errOut io.Writer) int {
	logger := cli.NewLogger(errOut, false)
	runner := app.New(out, logger)
	commandLine := cli.New(runner, out, errOut)
	return commandLine.Run(context.Background(), args)
}

func main() {
	exitFunc(run(os.Args[1:], os.Stdout, os.Stderr))
}
