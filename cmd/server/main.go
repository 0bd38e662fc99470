package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MindFlow-Startup/MindFlow/internal/platform/config"
)

// main wires the CLI. Business logic lives in internal packages; commands
// only load configuration and assemble dependencies.
func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "mindflow",
		Short:         "Psychologist registration directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "optional config file (yaml, json or env)")

	load := func() (config.Config, error) {
		return config.Load(configPath)
	}
	root.AddCommand(newServeCommand(load), newMigrateCommand(load))
	return root
}
