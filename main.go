package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fzft/go-chained-map/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	root := cmd.NewRootCommand(buildInfo())
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
