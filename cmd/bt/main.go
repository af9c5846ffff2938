package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"branch-tracker/internal/cli"
	"branch-tracker/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommandWithLoader(config.NewLoader())
	if err := root.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
