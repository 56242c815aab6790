// Command blogflow serves the blog workflow API and runs its maintenance tasks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFile    string
	configDirs []string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "blogflow",
		Short:         "Blog content workflow service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env", "", "Path to .env file")
	root.PersistentFlags().StringSliceVar(&opts.configDirs, "config-dir", nil, "Directories searched for config.yaml")

	root.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newRunStepCommand(opts),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
