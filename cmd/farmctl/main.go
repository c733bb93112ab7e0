package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"farmcycle/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:   "farmctl",
		Short: "Train, inspect and watch farmcycle policies",
		Long: `farmctl runs headless training against the same engine the server uses,
inspects saved policy files and episode history, and watches a running
server from the terminal.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("FARMCYCLE_CONFIG"), "path to a YAML config file")

	load := func() (config.Config, error) {
		return config.Load(configPath)
	}
	root.AddCommand(newTrainCmd(load), newInspectCmd(load), newWatchCmd())
	return root
}
