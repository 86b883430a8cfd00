package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/ska-telescope/ska-mid-cbf-deploy/cmd/cbfdeploy/cli"
	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logging.SetupLogging()

	if !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}

	name := path.Base(os.Args[0])

	InitAndExecute(ctx, name)
}

func InitAndExecute(ctx context.Context, name string) {
	if err := cli.RootCmd(ctx, name).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCodeFor(err))
	}
}
