package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "banemails",
		Short:        "Block purchases from banned email addresses",
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newListCommand(),
		newImportCommand(),
		newTokenCommand(),
	)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
